package record

import "time"

// Reader wraps a Row and keeps the first coercion error, so a mapping can
// read all its columns and check Err once.
type Reader struct {
	row Row
	err error
}

// NewReader returns a Reader over row.
func NewReader(row Row) *Reader {
	return &Reader{row: row}
}

// Err returns the first error seen.
func (r *Reader) Err() error {
	return r.err
}

// String reads field with Row.String unless an earlier read failed.
func (r *Reader) String(field string) *string {
	if r.err != nil {
		return nil
	}
	v, err := r.row.String(field)
	r.err = err
	return v
}

// Text returns the column text, or "" when absent.
func (r *Reader) Text(field string) string {
	if v := r.String(field); v != nil {
		return *v
	}
	return ""
}

// Integer reads field with Row.Integer unless an earlier read failed.
func (r *Reader) Integer(field string) *int {
	if r.err != nil {
		return nil
	}
	v, err := r.row.Integer(field)
	r.err = err
	return v
}

// Double reads field with Row.Double unless an earlier read failed.
func (r *Reader) Double(field string) *float64 {
	if r.err != nil {
		return nil
	}
	v, err := r.row.Double(field)
	r.err = err
	return v
}

// Date reads field with Row.Date unless an earlier read failed.
func (r *Reader) Date(field string) *time.Time {
	if r.err != nil {
		return nil
	}
	v, err := r.row.Date(field)
	r.err = err
	return v
}

// Year reads field with Row.Year unless an earlier read failed.
func (r *Reader) Year(field string) *int {
	if r.err != nil {
		return nil
	}
	v, err := r.row.Year(field)
	r.err = err
	return v
}
