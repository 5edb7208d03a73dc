package db

import (
	"context"
	"fmt"
	"log"
)

// vacancy_id carries the source-local identifier and is the conflict
// target for the at-most-once batch insert.
const createVacanciesTable = `
CREATE TABLE IF NOT EXISTS vacancies (
	id               SERIAL PRIMARY KEY,
	vacancy_id       VARCHAR(100) UNIQUE NOT NULL,
	title            VARCHAR(500) NOT NULL,
	url              TEXT NOT NULL,
	salary_from      INTEGER,
	salary_to        INTEGER,
	salary_currency  VARCHAR(10),
	description      TEXT,
	requirements     TEXT,
	responsibilities TEXT,
	experience       VARCHAR(200),
	employment       VARCHAR(200),
	area             VARCHAR(200),
	source           VARCHAR(50),
	employer_name    VARCHAR(500),
	employer_id      VARCHAR(50),
	published_at     TIMESTAMPTZ,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

var vacancyIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_vacancies_title ON vacancies (title)`,
	`CREATE INDEX IF NOT EXISTS idx_vacancies_salary ON vacancies (salary_from, salary_to)`,
	`CREATE INDEX IF NOT EXISTS idx_vacancies_employer_id ON vacancies (employer_id)`,
}

// EnsureSchema creates the vacancies table and its indexes if they do
// not exist yet. Safe to run on every startup.
func EnsureSchema(ctx context.Context, mgr *Manager) error {
	return mgr.WithConn(ctx, func(conn Conn) error {
		if _, err := conn.Exec(ctx, createVacanciesTable); err != nil {
			return fmt.Errorf("create vacancies table: %w", err)
		}
		for _, stmt := range vacancyIndexes {
			if _, err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("create index: %w", err)
			}
		}
		log.Println("[db] schema verified")
		return nil
	})
}
