package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-records/internal/models"
	"github.com/noah-isme/sma-records/internal/record"
)

const (
	// IncidentTable holds discipline incidents in the ODS.
	IncidentTable = "dsc_incident"
	// ActionTable holds the actions taken per incident.
	ActionTable = "dsc_action"
)

// DisciplineActionMapping maps dsc_action rows. Unknown action codes are
// skipped.
type DisciplineActionMapping struct{}

func (DisciplineActionMapping) TableName() string { return ActionTable }

func (DisciplineActionMapping) FromRow(_ context.Context, _ sqlx.QueryerContext, row record.Row) (record.Result[models.DisciplineAction], error) {
	r := record.NewReader(row)
	id := r.Text("action_id")
	rawCode := r.Text("action_code")
	action := models.DisciplineAction{
		ID:         id,
		IncidentID: r.Text("incident_id"),
		Days:       r.Double("duration_days"),
		StartDate:  r.Date("start_date"),
	}
	if err := r.Err(); err != nil {
		return record.Result[models.DisciplineAction]{}, err
	}

	code, ok := models.ParseActionCode(rawCode)
	if id == "" || !ok {
		return record.Skip[models.DisciplineAction](), nil
	}
	action.Code = code
	return record.Emit(action), nil
}

// DisciplineIncidentMapping maps dsc_incident rows and loads each incident's
// actions through the same connection.
type DisciplineIncidentMapping struct {
	Actions DisciplineActionMapping
}

func (DisciplineIncidentMapping) TableName() string { return IncidentTable }

func (m DisciplineIncidentMapping) FromRow(ctx context.Context, conn sqlx.QueryerContext, row record.Row) (record.Result[models.DisciplineIncident], error) {
	r := record.NewReader(row)
	id := r.Text("incident_id")
	rawType := r.Text("incident_type")
	incident := models.DisciplineIncident{
		ID:          id,
		StudentID:   r.Text("student_id"),
		OccurredOn:  r.Date("incident_date"),
		Description: r.String("description"),
	}
	if err := r.Err(); err != nil {
		return record.Result[models.DisciplineIncident]{}, err
	}

	kind, ok := models.ParseIncidentType(rawType)
	if id == "" || !ok {
		return record.Skip[models.DisciplineIncident](), nil
	}
	incident.Type = kind

	actions, err := m.actionsFor(ctx, conn, id)
	if err != nil {
		return record.Result[models.DisciplineIncident]{}, err
	}
	incident.Actions = actions
	return record.Emit(incident), nil
}

func (m DisciplineIncidentMapping) actionsFor(ctx context.Context, conn sqlx.QueryerContext, incidentID string) ([]models.DisciplineAction, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE incident_id = $1", m.Actions.TableName())
	rows, err := record.Query(ctx, conn, query, incidentID)
	if err != nil {
		return nil, fmt.Errorf("load actions for incident %s: %w", incidentID, err)
	}

	actions := make([]models.DisciplineAction, 0, len(rows))
	for _, row := range rows {
		res, err := m.Actions.FromRow(ctx, conn, row)
		if err != nil {
			return nil, fmt.Errorf("incident %s action: %w", incidentID, err)
		}
		if action, ok := res.Record(); ok {
			actions = append(actions, action)
		}
	}
	return actions, nil
}
