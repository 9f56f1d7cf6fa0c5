// Package record marshals query results into typed, immutable domain records.
//
// Each entity supplies a Mapping: the table it lives in and a row constructor.
// The helpers here run the shared statements against a caller-owned
// connection and never acquire or release it, with the exception of Clean,
// which checks out its own connection from a pool.
package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// TestEnvironment is the descriptor value that unlocks Clean.
const TestEnvironment = "TEST"

var (
	// ErrEmptyTableName is returned when a mapping reports a blank table.
	ErrEmptyTableName = errors.New("record: empty table name")
	// ErrNotTestEnvironment is returned by Clean when the database could not
	// be verified as a TEST instance. Nothing is deleted.
	ErrNotTestEnvironment = errors.New("record: database is not a TEST instance")
	// ErrRowCountUnknown is returned by Clean when the DELETE ran but the
	// driver could not report how many rows it removed.
	ErrRowCountUnknown = errors.New("record: deleted row count unknown")
)

// Table is implemented by every entity mapping. The returned name is used
// verbatim in generated SQL and must be a trusted constant.
type Table interface {
	TableName() string
}

// Mapping turns rows of one table into records of type E.
type Mapping[E any] interface {
	Table
	// FromRow builds a record from a buffered row. conn may be used for
	// follow-up lookups. Returning Skip omits the row from QueryAll.
	FromRow(ctx context.Context, conn sqlx.QueryerContext, row Row) (Result[E], error)
}

// Result is the outcome of a row constructor: either a record or a skip.
type Result[E any] struct {
	record  E
	emitted bool
}

// Emit wraps a constructed record.
func Emit[E any](record E) Result[E] {
	return Result[E]{record: record, emitted: true}
}

// Skip tells QueryAll to leave the row out. It is not an error.
func Skip[E any]() Result[E] {
	return Result[E]{}
}

// Record returns the record and whether one was emitted.
func (r Result[E]) Record() (E, bool) {
	return r.record, r.emitted
}

// Skipped reports whether the row was skipped.
func (r Result[E]) Skipped() bool {
	return !r.emitted
}

// Pool hands out dedicated connections. *sqlx.DB satisfies it.
type Pool interface {
	Connx(ctx context.Context) (*sqlx.Conn, error)
}

// Count returns the number of rows in the mapping's table.
func Count(ctx context.Context, conn sqlx.QueryerContext, t Table) (int, error) {
	table, err := tableName(t)
	if err != nil {
		return 0, err
	}

	var total int
	if err := conn.QueryRowxContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&total); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return total, nil
}

// QueryAll loads every row of the mapping's table and constructs records
// from them. Rows are buffered and the cursor closed before any constructor
// runs, so constructors are free to query the same connection. Ordering is
// whatever the database returns.
func QueryAll[E any](ctx context.Context, conn sqlx.QueryerContext, m Mapping[E]) ([]E, error) {
	table, err := tableName(m)
	if err != nil {
		return nil, err
	}

	rows, err := Query(ctx, conn, "SELECT * FROM "+table)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}

	records := make([]E, 0, len(rows))
	for i, row := range rows {
		res, err := m.FromRow(ctx, conn, row)
		if err != nil {
			return nil, fmt.Errorf("construct %s row %d: %w", table, i, err)
		}
		if rec, ok := res.Record(); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// Query runs an arbitrary statement and buffers its rows.
func Query(ctx context.Context, conn sqlx.QueryerContext, query string, args ...interface{}) ([]Row, error) {
	rows, err := conn.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		row := Row{}
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Clean deletes every row of the mapping's table after verifying, on the
// same connection, that descriptorQuery reads TEST. The connection is taken
// from pool and returned on every path. It reports the number of rows
// removed, or ErrRowCountUnknown once the table is already empty but the
// driver has no count.
func Clean(ctx context.Context, pool Pool, t Table, descriptorQuery string) (int64, error) {
	table, err := tableName(t)
	if err != nil {
		return 0, err
	}

	conn, err := pool.Connx(ctx)
	if err != nil {
		return 0, fmt.Errorf("checkout connection: %w", err)
	}
	defer conn.Close()

	if err := VerifyTestEnvironment(ctx, conn, descriptorQuery); err != nil {
		return 0, err
	}

	res, err := conn.ExecContext(ctx, "DELETE FROM "+table)
	if err != nil {
		return 0, fmt.Errorf("clean %s: %w", table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clean %s: %w: %w", table, ErrRowCountUnknown, err)
	}
	return affected, nil
}

// VerifyTestEnvironment runs the single-row descriptor query and fails with
// ErrNotTestEnvironment unless its trimmed value is exactly TEST.
func VerifyTestEnvironment(ctx context.Context, conn sqlx.QueryerContext, descriptorQuery string) error {
	if strings.TrimSpace(descriptorQuery) == "" {
		return fmt.Errorf("%w: no descriptor query configured", ErrNotTestEnvironment)
	}

	var value sql.NullString
	if err := conn.QueryRowxContext(ctx, descriptorQuery).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: descriptor query returned no row", ErrNotTestEnvironment)
		}
		return fmt.Errorf("%w: descriptor query: %v", ErrNotTestEnvironment, err)
	}
	if !value.Valid {
		return fmt.Errorf("%w: descriptor is NULL", ErrNotTestEnvironment)
	}
	if got := strings.TrimSpace(value.String); got != TestEnvironment {
		return fmt.Errorf("%w: descriptor reads %q", ErrNotTestEnvironment, got)
	}
	return nil
}

func tableName(t Table) (string, error) {
	name := strings.TrimSpace(t.TableName())
	if name == "" {
		return "", ErrEmptyTableName
	}
	return name, nil
}
