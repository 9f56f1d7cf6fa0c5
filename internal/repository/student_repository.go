package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-records/internal/models"
	"github.com/noah-isme/sma-records/internal/record"
)

// StudentTable is the ODS student mirror.
const StudentTable = "stu_student"

// StudentMapping maps stu_student rows. Rows missing an id or last name are
// placeholders left by the mirror load and are skipped.
type StudentMapping struct{}

func (StudentMapping) TableName() string { return StudentTable }

func (StudentMapping) FromRow(_ context.Context, _ sqlx.QueryerContext, row record.Row) (record.Result[models.Student], error) {
	r := record.NewReader(row)
	s := models.Student{
		ID:            r.Text("student_id"),
		LastName:      r.Text("last_name"),
		FirstName:     r.String("first_name"),
		BirthDate:     r.Date("birth_date"),
		GradYear:      r.Year("grad_year"),
		GPA:           r.Double("gpa"),
		WorkplaceCode: r.String("workplace_code"),
	}
	if err := r.Err(); err != nil {
		return record.Result[models.Student]{}, err
	}
	if s.ID == "" || s.LastName == "" {
		return record.Skip[models.Student](), nil
	}
	return record.Emit(s), nil
}
