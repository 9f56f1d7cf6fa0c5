package models

import (
	"strings"
	"time"
)

// DisciplineAction is a consequence recorded against an incident.
type DisciplineAction struct {
	ID         string     `json:"id"`
	IncidentID string     `json:"incident_id"`
	Code       ActionCode `json:"code"`
	Days       *float64   `json:"days,omitempty"`
	StartDate  *time.Time `json:"start_date,omitempty"`
}

func (DisciplineAction) ExportHeaders() []string {
	return []string{"id", "incident_id", "code", "label", "days", "start_date"}
}

func (a DisciplineAction) ExportRow() map[string]string {
	return map[string]string{
		"id":          a.ID,
		"incident_id": a.IncidentID,
		"code":        string(a.Code),
		"label":       a.Code.Label(),
		"days":        double(a.Days),
		"start_date":  date(a.StartDate),
	}
}

// DisciplineIncident is an incident together with the actions taken.
type DisciplineIncident struct {
	ID          string             `json:"id"`
	StudentID   string             `json:"student_id"`
	Type        IncidentType       `json:"type"`
	OccurredOn  *time.Time         `json:"occurred_on,omitempty"`
	Description *string            `json:"description,omitempty"`
	Actions     []DisciplineAction `json:"actions"`
}

func (DisciplineIncident) ExportHeaders() []string {
	return []string{"id", "student_id", "type", "label", "occurred_on", "description", "actions"}
}

func (i DisciplineIncident) ExportRow() map[string]string {
	codes := make([]string, len(i.Actions))
	for idx, a := range i.Actions {
		codes[idx] = string(a.Code)
	}
	return map[string]string{
		"id":          i.ID,
		"student_id":  i.StudentID,
		"type":        string(i.Type),
		"label":       i.Type.Label(),
		"occurred_on": date(i.OccurredOn),
		"description": str(i.Description),
		"actions":     strings.Join(codes, ";"),
	}
}
