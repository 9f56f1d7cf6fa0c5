package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-records/internal/record"
)

// RecordRepository runs the shared record statements for one entity
// mapping. Each call checks out a single connection from the pool and
// hands it to the row constructors.
type RecordRepository[E any] struct {
	db      *sqlx.DB
	mapping record.Mapping[E]
}

// NewRecordRepository binds a mapping to a database.
func NewRecordRepository[E any](db *sqlx.DB, mapping record.Mapping[E]) *RecordRepository[E] {
	return &RecordRepository[E]{db: db, mapping: mapping}
}

// TableName returns the mapped table.
func (r *RecordRepository[E]) TableName() string {
	return r.mapping.TableName()
}

// Count returns the number of rows in the table.
func (r *RecordRepository[E]) Count(ctx context.Context) (int, error) {
	conn, err := r.conn(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	return record.Count(ctx, conn, r.mapping)
}

// List loads every record in the table.
func (r *RecordRepository[E]) List(ctx context.Context) ([]E, error) {
	conn, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	return record.QueryAll(ctx, conn, r.mapping)
}

// Clean empties the table once descriptorQuery confirms a TEST database.
func (r *RecordRepository[E]) Clean(ctx context.Context, descriptorQuery string) (int64, error) {
	return record.Clean(ctx, r.db, r.mapping, descriptorQuery)
}

func (r *RecordRepository[E]) conn(ctx context.Context) (*sqlx.Conn, error) {
	conn, err := r.db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("checkout connection for %s: %w", r.mapping.TableName(), err)
	}
	return conn, nil
}
