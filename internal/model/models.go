// Package model defines shared data structures for the ingest service.
package model

// SalaryRange is the optional salary block of a vacancy. Any subset of
// its fields may be absent.
type SalaryRange struct {
	From     *int    `json:"from,omitempty"`
	To       *int    `json:"to,omitempty"`
	Currency *string `json:"currency,omitempty"`
}

// VacancyRecord is a normalised vacancy parsed from an external job
// board. ID is unique within its Source; ID, Title and URL must be
// non-blank before a record may be persisted.
type VacancyRecord struct {
	ID               string       `json:"id"`
	Title            string       `json:"title"`
	URL              string       `json:"url"`
	Salary           *SalaryRange `json:"salary,omitempty"`
	Description      *string      `json:"description,omitempty"`
	Requirements     *string      `json:"requirements,omitempty"`
	Responsibilities *string      `json:"responsibilities,omitempty"`
	Experience       *string      `json:"experience,omitempty"`
	Employment       *string      `json:"employment,omitempty"`
	Area             *string      `json:"area,omitempty"`
	EmployerName     *string      `json:"employerName,omitempty"`
	EmployerID       *string      `json:"employerId,omitempty"`
	Source           string       `json:"source"`
	PublishedAt      *string      `json:"publishedAt,omitempty"`
}

// Employer returns the employer name, or "" when absent.
func (r VacancyRecord) Employer() string {
	if r.EmployerName == nil {
		return ""
	}
	return *r.EmployerName
}

// EmployerIDOrEmpty returns the employer identifier, or "" when absent.
func (r VacancyRecord) EmployerIDOrEmpty() string {
	if r.EmployerID == nil {
		return ""
	}
	return *r.EmployerID
}
