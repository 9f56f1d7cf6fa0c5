package models

import "time"

// Student is a student row from the ODS mirror.
type Student struct {
	ID            string     `json:"id"`
	LastName      string     `json:"last_name"`
	FirstName     *string    `json:"first_name,omitempty"`
	BirthDate     *time.Time `json:"birth_date,omitempty"`
	GradYear      *int       `json:"grad_year,omitempty"`
	GPA           *float64   `json:"gpa,omitempty"`
	WorkplaceCode *string    `json:"workplace_code,omitempty"`
}

func (Student) ExportHeaders() []string {
	return []string{"id", "last_name", "first_name", "birth_date", "grad_year", "gpa", "workplace_code"}
}

func (s Student) ExportRow() map[string]string {
	return map[string]string{
		"id":             s.ID,
		"last_name":      s.LastName,
		"first_name":     str(s.FirstName),
		"birth_date":     date(s.BirthDate),
		"grad_year":      integer(s.GradYear),
		"gpa":            double(s.GPA),
		"workplace_code": str(s.WorkplaceCode),
	}
}
