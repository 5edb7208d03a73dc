// Package repo implements PostgreSQL persistence for vacancy records.
// It is transport-agnostic: the ingestion coordinator and any future
// API layer both sit on top of it.
package repo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"

	"jobmate/ingest-service/internal/db"
	"jobmate/ingest-service/internal/ingest"
	"jobmate/ingest-service/internal/model"
)

// ConnSource provides scoped access to a live database connection.
type ConnSource interface {
	WithConn(ctx context.Context, fn func(db.Conn) error) error
}

// ValidationError reports a record rejected before touching storage.
// The record must be corrected upstream; retrying as-is cannot help.
type ValidationError struct {
	VacancyID  string
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("vacancy %q failed validation: %s", e.VacancyID, strings.Join(e.Violations, "; "))
}

// Filters narrows Get. Zero-valued predicates are ignored rather than
// matching "equals empty".
type Filters struct {
	EmployerID string
	MinSalary  int
	Source     string
	Limit      int
	Offset     int
}

// Repository exposes CRUD, existence-checking and the optimized batch
// insert over the vacancies table. Every operation acquires a live
// connection per call via the ConnSource.
type Repository struct {
	source    ConnSource
	validator *ingest.Validator
}

func New(source ConnSource, validator *ingest.Validator) *Repository {
	return &Repository{source: source, validator: validator}
}

const insertColumns = `vacancy_id, title, url, salary_from, salary_to, salary_currency,
	description, requirements, responsibilities, experience, employment, area,
	source, employer_name, employer_id, published_at`

const selectColumns = `vacancy_id, title, url, salary_from, salary_to, salary_currency,
	description, requirements, responsibilities, experience, employment, area,
	COALESCE(source, ''), employer_name, employer_id, published_at::text`

const insertValuesWidth = 16

// Add validates and inserts one record. An id conflict is not an
// error: the vacancy was already ingested and the insert is a no-op.
func (r *Repository) Add(ctx context.Context, rec model.VacancyRecord) error {
	if res := r.validator.Validate(rec); !res.Valid {
		return &ValidationError{VacancyID: rec.ID, Violations: res.Violations}
	}

	query := fmt.Sprintf(`INSERT INTO vacancies (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16::timestamptz)
		ON CONFLICT (vacancy_id) DO NOTHING`, insertColumns)

	return r.source.WithConn(ctx, func(conn db.Conn) error {
		if _, err := conn.Exec(ctx, query, insertArgs(rec)...); err != nil {
			return fmt.Errorf("insert vacancy %s: %w", rec.ID, err)
		}
		return nil
	})
}

// Get returns stored records matching the filters, newest first.
func (r *Repository) Get(ctx context.Context, f Filters) ([]model.VacancyRecord, error) {
	query, args := buildSelect("SELECT "+selectColumns+" FROM vacancies", f, true)

	var records []model.VacancyRecord
	err := r.source.WithConn(ctx, func(conn db.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("query vacancies: %w", err)
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

// Delete removes a record by id. A missing id is logged as a warning,
// not returned as an error: deleting something already gone is fine
// for an idempotent caller.
func (r *Repository) Delete(ctx context.Context, rec model.VacancyRecord) error {
	return r.source.WithConn(ctx, func(conn db.Conn) error {
		tag, err := conn.Exec(ctx, `DELETE FROM vacancies WHERE vacancy_id = $1`, rec.ID)
		if err != nil {
			return fmt.Errorf("delete vacancy %s: %w", rec.ID, err)
		}
		if tag.RowsAffected() == 0 {
			slog.Warn("vacancy not found for delete", "vacancyId", rec.ID)
		}
		return nil
	})
}

// DeleteBatch removes all records whose id is in ids and reports how
// many rows went away.
func (r *Repository) DeleteBatch(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var deleted int64
	err := r.source.WithConn(ctx, func(conn db.Conn) error {
		tag, err := conn.Exec(ctx, `DELETE FROM vacancies WHERE vacancy_id = ANY($1)`, ids)
		if err != nil {
			return fmt.Errorf("batch delete: %w", err)
		}
		deleted = tag.RowsAffected()
		return nil
	})
	return deleted, err
}

// ExistsBatch reports, in one round-trip, which of the given records
// already exist by id. Empty input short-circuits to an empty map
// without touching storage.
func (r *Repository) ExistsBatch(ctx context.Context, records []model.VacancyRecord) (map[string]bool, error) {
	result := make(map[string]bool, len(records))
	if len(records) == 0 {
		return result, nil
	}

	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ID)
	}

	err := r.source.WithConn(ctx, func(conn db.Conn) error {
		rows, err := conn.Query(ctx, `SELECT vacancy_id FROM vacancies WHERE vacancy_id = ANY($1)`, ids)
		if err != nil {
			return fmt.Errorf("existence query: %w", err)
		}
		defer rows.Close()

		existing := make(map[string]struct{})
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return fmt.Errorf("existence scan: %w", err)
			}
			existing[id] = struct{}{}
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("existence rows: %w", err)
		}

		for _, id := range ids {
			_, ok := existing[id]
			result[id] = ok
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AddBatchOptimized validates the whole batch, discards invalid
// records, and inserts the remainder with one multi-row statement.
// Conflicts on vacancy_id are absorbed silently; the returned ids are
// the ones attempted, whether newly inserted or already present.
func (r *Repository) AddBatchOptimized(ctx context.Context, records []model.VacancyRecord) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}

	verdicts := r.validator.ValidateBatch(records)
	valid := make([]model.VacancyRecord, 0, len(records))
	for _, rec := range records {
		if verdicts[rec.ID] {
			valid = append(valid, rec)
		}
	}
	if len(valid) == 0 {
		slog.Warn("no valid vacancies in batch", "received", len(records))
		return nil, nil
	}

	query, args := buildBatchInsert(valid)
	err := r.source.WithConn(ctx, func(conn db.Conn) error {
		if _, err := conn.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("batch insert of %d vacancies: %w", len(valid), err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(valid))
	for _, rec := range valid {
		ids = append(ids, rec.ID)
	}
	return ids, nil
}

// buildBatchInsert renders one INSERT covering every valid record.
func buildBatchInsert(records []model.VacancyRecord) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO vacancies (%s) VALUES ", insertColumns)

	args := make([]any, 0, len(records)*insertValuesWidth)
	for i, rec := range records {
		if i > 0 {
			b.WriteString(", ")
		}
		base := i * insertValuesWidth
		b.WriteByte('(')
		for j := 1; j <= insertValuesWidth; j++ {
			if j > 1 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", base+j)
			if j == insertValuesWidth {
				b.WriteString("::timestamptz")
			}
		}
		b.WriteByte(')')
		args = append(args, insertArgs(rec)...)
	}
	b.WriteString(" ON CONFLICT (vacancy_id) DO NOTHING")
	return b.String(), args
}

func insertArgs(rec model.VacancyRecord) []any {
	var salaryFrom, salaryTo *int
	var currency *string
	if rec.Salary != nil {
		salaryFrom = rec.Salary.From
		salaryTo = rec.Salary.To
		currency = rec.Salary.Currency
	}
	return []any{
		rec.ID, rec.Title, rec.URL,
		salaryFrom, salaryTo, currency,
		rec.Description, rec.Requirements, rec.Responsibilities,
		rec.Experience, rec.Employment, rec.Area,
		rec.Source, rec.EmployerName, rec.EmployerID,
		rec.PublishedAt,
	}
}

// buildSelect appends AND-ed WHERE clauses for the non-zero filters,
// plus ordering and pagination when order is true.
func buildSelect(base string, f Filters, order bool) (string, []any) {
	var conditions []string
	var args []any

	if f.EmployerID != "" {
		args = append(args, f.EmployerID)
		conditions = append(conditions, fmt.Sprintf("employer_id = $%d", len(args)))
	}
	if f.MinSalary > 0 {
		args = append(args, f.MinSalary)
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(salary_from >= $%d OR salary_to >= $%d)", n, n))
	}
	if f.Source != "" {
		args = append(args, f.Source)
		conditions = append(conditions, fmt.Sprintf("source = $%d", len(args)))
	}

	query := base
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	if order {
		query += " ORDER BY created_at DESC"
		if f.Limit > 0 {
			args = append(args, f.Limit)
			query += fmt.Sprintf(" LIMIT $%d", len(args))
		}
		if f.Offset > 0 {
			args = append(args, f.Offset)
			query += fmt.Sprintf(" OFFSET $%d", len(args))
		}
	}
	return query, args
}

func scanRecords(rows pgx.Rows) ([]model.VacancyRecord, error) {
	var records []model.VacancyRecord
	for rows.Next() {
		var rec model.VacancyRecord
		var salaryFrom, salaryTo *int
		var currency *string
		if err := rows.Scan(
			&rec.ID, &rec.Title, &rec.URL,
			&salaryFrom, &salaryTo, &currency,
			&rec.Description, &rec.Requirements, &rec.Responsibilities,
			&rec.Experience, &rec.Employment, &rec.Area,
			&rec.Source, &rec.EmployerName, &rec.EmployerID,
			&rec.PublishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan vacancy: %w", err)
		}
		if salaryFrom != nil || salaryTo != nil || currency != nil {
			rec.Salary = &model.SalaryRange{From: salaryFrom, To: salaryTo, Currency: currency}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
