package record

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const descriptorQuery = "SELECT environment FROM sys_descriptor"

type workplace struct {
	Code string
	Name *string
}

type workplaceMapping struct {
	table string
}

func (m workplaceMapping) TableName() string { return m.table }

func (m workplaceMapping) FromRow(_ context.Context, _ sqlx.QueryerContext, row Row) (Result[workplace], error) {
	code, err := row.String("code")
	if err != nil {
		return Result[workplace]{}, err
	}
	if code == nil {
		return Skip[workplace](), nil
	}
	name, err := row.String("name")
	if err != nil {
		return Result[workplace]{}, err
	}
	return Emit(workplace{Code: *code, Name: name}), nil
}

func newRecordMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCount(t *testing.T) {
	db, mock, cleanup := newRecordMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM sch_workplace")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM sch_workplace")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	m := workplaceMapping{table: "sch_workplace"}
	empty, err := Count(context.Background(), db, m)
	require.NoError(t, err)
	assert.Equal(t, 0, empty)

	total, err := Count(context.Background(), db, m)
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountFailures(t *testing.T) {
	db, mock, cleanup := newRecordMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM sch_workplace")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM sch_workplace")).
		WillReturnError(errors.New("connection reset"))

	m := workplaceMapping{table: "sch_workplace"}
	_, err := Count(context.Background(), db, m)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	_, err = Count(context.Background(), db, m)
	assert.ErrorContains(t, err, "connection reset")

	_, err = Count(context.Background(), db, workplaceMapping{table: "  "})
	assert.ErrorIs(t, err, ErrEmptyTableName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryAllEmptyTable(t *testing.T) {
	db, mock, cleanup := newRecordMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM sch_workplace")).
		WillReturnRows(sqlmock.NewRows([]string{"code", "name"}))

	records, err := QueryAll[workplace](context.Background(), db, workplaceMapping{table: "sch_workplace"})
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryAllOmitsSkippedRows(t *testing.T) {
	db, mock, cleanup := newRecordMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"code", "name"}).
		AddRow("A1", "Main Office").
		AddRow(nil, "Orphan").
		AddRow("B2", "  ").
		AddRow("   ", "Blank").
		AddRow([]byte(" C3 "), nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM sch_workplace")).WillReturnRows(rows)

	records, err := QueryAll[workplace](context.Background(), db, workplaceMapping{table: "sch_workplace"})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "A1", records[0].Code)
	assert.Equal(t, "Main Office", *records[0].Name)
	assert.Equal(t, "B2", records[1].Code)
	assert.Nil(t, records[1].Name)
	assert.Equal(t, "C3", records[2].Code)
	assert.Nil(t, records[2].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryAllAgreesWithCount(t *testing.T) {
	db, mock, cleanup := newRecordMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM sch_workplace")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM sch_workplace")).
		WillReturnRows(sqlmock.NewRows([]string{"code", "name"}).AddRow("A1", "x").AddRow("A2", "y"))

	m := workplaceMapping{table: "sch_workplace"}
	total, err := Count(context.Background(), db, m)
	require.NoError(t, err)
	records, err := QueryAll[workplace](context.Background(), db, m)
	require.NoError(t, err)
	assert.Len(t, records, total)
}

func TestQueryAllPropagatesErrors(t *testing.T) {
	db, mock, cleanup := newRecordMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM sch_workplace")).
		WillReturnError(errors.New("relation does not exist"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM sch_workplace")).
		WillReturnRows(sqlmock.NewRows([]string{"code", "name"}).
			AddRow("A1", "x").
			RowError(0, errors.New("cursor lost")))

	m := workplaceMapping{table: "sch_workplace"}
	_, err := QueryAll[workplace](context.Background(), db, m)
	assert.ErrorContains(t, err, "relation does not exist")

	_, err = QueryAll[workplace](context.Background(), db, m)
	assert.ErrorContains(t, err, "cursor lost")
	assert.NoError(t, mock.ExpectationsWereMet())
}

type failingMapping struct{ workplaceMapping }

func (failingMapping) FromRow(_ context.Context, _ sqlx.QueryerContext, row Row) (Result[workplace], error) {
	if _, err := row.Integer("code"); err != nil {
		return Result[workplace]{}, err
	}
	return Skip[workplace](), nil
}

func TestQueryAllSurfacesCoercionErrors(t *testing.T) {
	db, mock, cleanup := newRecordMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM sch_workplace")).
		WillReturnRows(sqlmock.NewRows([]string{"code"}).AddRow("12x"))

	_, err := QueryAll[workplace](context.Background(), db, failingMapping{workplaceMapping{table: "sch_workplace"}})
	var coercion *CoercionError
	require.ErrorAs(t, err, &coercion)
	assert.Equal(t, "code", coercion.Field)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCleanOnTestInstance(t *testing.T) {
	db, mock, cleanup := newRecordMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(descriptorQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"environment"}).AddRow(" TEST "))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sch_workplace")).
		WillReturnResult(sqlmock.NewResult(0, 4))

	deleted, err := Clean(context.Background(), db, workplaceMapping{table: "sch_workplace"}, descriptorQuery)
	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCleanReportsUnknownRowCount(t *testing.T) {
	db, mock, cleanup := newRecordMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(descriptorQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"environment"}).AddRow("TEST"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sch_workplace")).
		WillReturnResult(sqlmock.NewErrorResult(errors.New("rows affected not supported")))

	deleted, err := Clean(context.Background(), db, workplaceMapping{table: "sch_workplace"}, descriptorQuery)
	assert.Zero(t, deleted)
	assert.ErrorIs(t, err, ErrRowCountUnknown)
	assert.ErrorContains(t, err, "clean sch_workplace")
	assert.ErrorContains(t, err, "rows affected not supported")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCleanRefusesOutsideTest(t *testing.T) {
	cases := map[string]*sqlmock.Rows{
		"prod":   sqlmock.NewRows([]string{"environment"}).AddRow("PROD"),
		"casing": sqlmock.NewRows([]string{"environment"}).AddRow("test"),
		"null":   sqlmock.NewRows([]string{"environment"}).AddRow(nil),
		"no row": sqlmock.NewRows([]string{"environment"}),
	}

	for name, rows := range cases {
		t.Run(name, func(t *testing.T) {
			db, mock, cleanup := newRecordMock(t)
			defer cleanup()

			mock.ExpectQuery(regexp.QuoteMeta(descriptorQuery)).WillReturnRows(rows)

			_, err := Clean(context.Background(), db, workplaceMapping{table: "sch_workplace"}, descriptorQuery)
			assert.ErrorIs(t, err, ErrNotTestEnvironment)
			// no DELETE was expected; an unexpected exec would fail here
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCleanRefusesWhenDescriptorFails(t *testing.T) {
	db, mock, cleanup := newRecordMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(descriptorQuery)).WillReturnError(errors.New("permission denied"))

	_, err := Clean(context.Background(), db, workplaceMapping{table: "sch_workplace"}, descriptorQuery)
	assert.ErrorIs(t, err, ErrNotTestEnvironment)
	assert.ErrorContains(t, err, "permission denied")

	_, err = Clean(context.Background(), db, workplaceMapping{table: "sch_workplace"}, "")
	assert.ErrorIs(t, err, ErrNotTestEnvironment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResult(t *testing.T) {
	emitted := Emit(workplace{Code: "A1"})
	rec, ok := emitted.Record()
	assert.True(t, ok)
	assert.False(t, emitted.Skipped())
	assert.Equal(t, "A1", rec.Code)

	skipped := Skip[workplace]()
	_, ok = skipped.Record()
	assert.False(t, ok)
	assert.True(t, skipped.Skipped())
}
