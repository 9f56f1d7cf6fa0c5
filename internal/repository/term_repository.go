package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-records/internal/models"
	"github.com/noah-isme/sma-records/internal/record"
)

// TermTable holds academic terms in the legacy schema.
const TermTable = "sch_term"

// TermMapping maps sch_term rows. school_year is stored with two digits.
// Rows with an unrecognised term name are skipped.
type TermMapping struct{}

func (TermMapping) TableName() string { return TermTable }

func (TermMapping) FromRow(_ context.Context, _ sqlx.QueryerContext, row record.Row) (record.Result[models.Term], error) {
	r := record.NewReader(row)
	code := r.Text("term_code")
	rawName := r.Text("term_name")
	term := models.Term{
		Code:       code,
		SchoolYear: r.Year("school_year"),
		StartDate:  r.Date("start_date"),
		EndDate:    r.Date("end_date"),
	}
	if err := r.Err(); err != nil {
		return record.Result[models.Term]{}, err
	}

	name, ok := models.ParseTermName(rawName)
	if code == "" || !ok {
		return record.Skip[models.Term](), nil
	}
	term.Name = name
	return record.Emit(term), nil
}
