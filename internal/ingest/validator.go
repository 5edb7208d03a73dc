// Package ingest implements the vacancy ingestion pipeline: allow-list
// filtering, fingerprint deduplication, field validation and the
// coordinator that drives a batch through to storage.
package ingest

import (
	"fmt"
	"log"
	"strings"

	"jobmate/ingest-service/internal/model"
)

// Field limits mirror the vacancies table column widths.
const (
	maxIDLen       = 100
	maxTitleLen    = 500
	maxLabelLen    = 200 // experience, employment, area
	maxEmployerLen = 500
	maxCurrencyLen = 10
)

// ValidationResult is the verdict of a single Validate call. It is a
// value, never shared state: a Validator is safe for concurrent use.
type ValidationResult struct {
	Valid      bool
	Violations []string
}

// Validator checks vacancy records in three ordered phases: required
// fields, optional-field bounds, business rules. A failing phase
// short-circuits the phases after it; violations accumulate within a
// phase.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks a single record. It is deterministic and has no
// side effects.
func (v *Validator) Validate(rec model.VacancyRecord) ValidationResult {
	if violations := checkRequired(rec); len(violations) > 0 {
		return ValidationResult{Valid: false, Violations: violations}
	}
	if violations := checkOptional(rec); len(violations) > 0 {
		return ValidationResult{Valid: false, Violations: violations}
	}
	if violations := checkBusinessRules(rec); len(violations) > 0 {
		return ValidationResult{Valid: false, Violations: violations}
	}
	return ValidationResult{Valid: true}
}

// ValidateBatch applies Validate to every record, keyed by record id.
// One record's internal failure never aborts the batch: a panic while
// validating is logged and recorded as false. A record whose id is
// unreadable is keyed "unknown".
func (v *Validator) ValidateBatch(records []model.VacancyRecord) map[string]bool {
	results := make(map[string]bool, len(records))
	for _, rec := range records {
		key := rec.ID
		if key == "" {
			key = "unknown"
		}
		results[key] = v.validateQuietly(rec)
	}
	return results
}

func (v *Validator) validateQuietly(rec model.VacancyRecord) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[validator] record %q: unexpected error: %v", rec.ID, r)
			ok = false
		}
	}()
	return v.Validate(rec).Valid
}

// Phase 1: id, title and url must be non-blank after trimming.
func checkRequired(rec model.VacancyRecord) []string {
	var violations []string
	for _, f := range []struct{ name, value string }{
		{"id", rec.ID},
		{"title", rec.Title},
		{"url", rec.URL},
	} {
		if strings.TrimSpace(f.value) == "" {
			violations = append(violations, fmt.Sprintf("required field %q is missing or blank", f.name))
		}
	}
	return violations
}

// Phase 2: optional fields that are present must fit their declared
// bounds. Absence is never a violation.
func checkOptional(rec model.VacancyRecord) []string {
	var violations []string
	for _, f := range []struct {
		name  string
		value *string
		max   int
	}{
		{"experience", rec.Experience, maxLabelLen},
		{"employment", rec.Employment, maxLabelLen},
		{"area", rec.Area, maxLabelLen},
		{"employerName", rec.EmployerName, maxEmployerLen},
	} {
		if f.value != nil && len(*f.value) > f.max {
			violations = append(violations, fmt.Sprintf("field %q exceeds %d characters", f.name, f.max))
		}
	}
	if rec.Salary != nil && rec.Salary.Currency != nil && len(*rec.Salary.Currency) > maxCurrencyLen {
		violations = append(violations, fmt.Sprintf("salary currency exceeds %d characters", maxCurrencyLen))
	}
	return violations
}

// Phase 3: business rules on the required fields.
func checkBusinessRules(rec model.VacancyRecord) []string {
	var violations []string
	if !strings.HasPrefix(rec.URL, "http://") && !strings.HasPrefix(rec.URL, "https://") {
		violations = append(violations, "url must start with http:// or https://")
	}
	if len(rec.ID) > maxIDLen {
		violations = append(violations, fmt.Sprintf("id exceeds %d characters", maxIDLen))
	}
	if len(rec.Title) > maxTitleLen {
		violations = append(violations, fmt.Sprintf("title exceeds %d characters", maxTitleLen))
	}
	return violations
}
