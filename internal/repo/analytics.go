package repo

import (
	"context"
	"fmt"

	"jobmate/ingest-service/internal/db"
	"jobmate/ingest-service/internal/model"
)

// EmployerCount pairs an employer with its stored vacancy count.
type EmployerCount struct {
	Employer  string
	Vacancies int
}

// salaryMidpoint averages the bounds when both are set, otherwise
// takes whichever bound exists.
const salaryMidpoint = `CASE
	WHEN salary_from IS NOT NULL AND salary_to IS NOT NULL THEN (salary_from + salary_to) / 2
	WHEN salary_from IS NOT NULL THEN salary_from
	WHEN salary_to IS NOT NULL THEN salary_to
	ELSE NULL
END`

// CountByEmployer returns vacancy counts grouped by employer name,
// largest first.
func (r *Repository) CountByEmployer(ctx context.Context) ([]EmployerCount, error) {
	var counts []EmployerCount
	err := r.source.WithConn(ctx, func(conn db.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT COALESCE(employer_name, 'Unknown'), COUNT(*)
			FROM vacancies
			GROUP BY employer_name
			ORDER BY COUNT(*) DESC, 1`)
		if err != nil {
			return fmt.Errorf("count by employer: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var c EmployerCount
			if err := rows.Scan(&c.Employer, &c.Vacancies); err != nil {
				return fmt.Errorf("scan employer count: %w", err)
			}
			counts = append(counts, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// AverageSalary returns the mean salary midpoint across records that
// declare any salary bound, or nil when none do.
func (r *Repository) AverageSalary(ctx context.Context) (*float64, error) {
	var avg *float64
	err := r.source.WithConn(ctx, func(conn db.Conn) error {
		row := conn.QueryRow(ctx, fmt.Sprintf(`
			SELECT AVG(%s)
			FROM vacancies
			WHERE salary_from IS NOT NULL OR salary_to IS NOT NULL`, salaryMidpoint))
		if err := row.Scan(&avg); err != nil {
			return fmt.Errorf("average salary: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return avg, nil
}

// AboveAverageSalary returns the records whose salary midpoint beats
// the stored average, highest first.
func (r *Repository) AboveAverageSalary(ctx context.Context) ([]model.VacancyRecord, error) {
	avg, err := r.AverageSalary(ctx)
	if err != nil {
		return nil, err
	}
	if avg == nil {
		return nil, nil
	}

	var records []model.VacancyRecord
	err = r.source.WithConn(ctx, func(conn db.Conn) error {
		rows, err := conn.Query(ctx, fmt.Sprintf(`
			SELECT %s FROM vacancies
			WHERE (%s) > $1
			ORDER BY (%s) DESC`, selectColumns, salaryMidpoint, salaryMidpoint), *avg)
		if err != nil {
			return fmt.Errorf("above-average query: %w", err)
		}
		defer rows.Close()

		records, err = scanRecords(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// SearchByKeyword returns records whose title contains the keyword,
// case-insensitive. A blank keyword matches nothing.
func (r *Repository) SearchByKeyword(ctx context.Context, keyword string) ([]model.VacancyRecord, error) {
	if keyword == "" {
		return nil, nil
	}

	var records []model.VacancyRecord
	err := r.source.WithConn(ctx, func(conn db.Conn) error {
		rows, err := conn.Query(ctx, fmt.Sprintf(`
			SELECT %s FROM vacancies
			WHERE title ILIKE $1
			ORDER BY created_at DESC`, selectColumns), "%"+keyword+"%")
		if err != nil {
			return fmt.Errorf("keyword search: %w", err)
		}
		defer rows.Close()

		records, err = scanRecords(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Count returns the number of stored records matching the filters.
func (r *Repository) Count(ctx context.Context, f Filters) (int, error) {
	query, args := buildSelect(`SELECT COUNT(*) FROM vacancies`, f, false)

	var count int
	err := r.source.WithConn(ctx, func(conn db.Conn) error {
		if err := conn.QueryRow(ctx, query, args...).Scan(&count); err != nil {
			return fmt.Errorf("count vacancies: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
