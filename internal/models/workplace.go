package models

import "time"

// Workplace is a school building or office from the legacy schema.
type Workplace struct {
	Code     string     `json:"code"`
	Name     *string    `json:"name,omitempty"`
	District *string    `json:"district,omitempty"`
	Capacity *int       `json:"capacity,omitempty"`
	OpenedOn *time.Time `json:"opened_on,omitempty"`
}

func (Workplace) ExportHeaders() []string {
	return []string{"code", "name", "district", "capacity", "opened_on"}
}

func (w Workplace) ExportRow() map[string]string {
	return map[string]string{
		"code":      w.Code,
		"name":      str(w.Name),
		"district":  str(w.District),
		"capacity":  integer(w.Capacity),
		"opened_on": date(w.OpenedOn),
	}
}
