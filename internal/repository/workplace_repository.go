package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-records/internal/models"
	"github.com/noah-isme/sma-records/internal/record"
)

// WorkplaceTable holds school buildings and offices in the legacy schema.
const WorkplaceTable = "sch_workplace"

// WorkplaceMapping maps sch_workplace rows. Rows without a code are skipped.
type WorkplaceMapping struct{}

func (WorkplaceMapping) TableName() string { return WorkplaceTable }

func (WorkplaceMapping) FromRow(_ context.Context, _ sqlx.QueryerContext, row record.Row) (record.Result[models.Workplace], error) {
	r := record.NewReader(row)
	w := models.Workplace{
		Code:     r.Text("wp_code"),
		Name:     r.String("wp_name"),
		District: r.String("district"),
		Capacity: r.Integer("capacity"),
		OpenedOn: r.Date("opened_on"),
	}
	if err := r.Err(); err != nil {
		return record.Result[models.Workplace]{}, err
	}
	if w.Code == "" {
		return record.Skip[models.Workplace](), nil
	}
	return record.Emit(w), nil
}
