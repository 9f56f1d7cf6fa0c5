package models

import "time"

// Term is an academic term row. SchoolYear has already been expanded from
// its two-digit legacy form.
type Term struct {
	Code       string     `json:"code"`
	Name       TermName   `json:"name"`
	SchoolYear *int       `json:"school_year,omitempty"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
}

func (Term) ExportHeaders() []string {
	return []string{"code", "name", "school_year", "start_date", "end_date"}
}

func (t Term) ExportRow() map[string]string {
	return map[string]string{
		"code":        t.Code,
		"name":        string(t.Name),
		"school_year": integer(t.SchoolYear),
		"start_date":  date(t.StartDate),
		"end_date":    date(t.EndDate),
	}
}
