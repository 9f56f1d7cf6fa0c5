package record

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Row is one buffered result row keyed by column name.
type Row map[string]interface{}

// CoercionError reports a column value that could not be converted.
type CoercionError struct {
	Field string
	Kind  string
	Value string
	Err   error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("field %s: cannot read %q as %s: %v", e.Field, e.Value, e.Kind, e.Err)
}

func (e *CoercionError) Unwrap() error {
	return e.Err
}

// MissingColumnError is returned when a mapping asks for a column the
// row does not carry.
type MissingColumnError struct {
	Field string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("field %s: column not present in row", e.Field)
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
}

func (r Row) lookup(field string) (interface{}, error) {
	if v, ok := r[field]; ok {
		return v, nil
	}
	if v, ok := r[strings.ToLower(field)]; ok {
		return v, nil
	}
	return nil, &MissingColumnError{Field: field}
}

// text renders a column as trimmed text. The second value is false for NULL
// and for values that are blank after trimming.
func (r Row) text(field string) (string, bool, error) {
	v, err := r.lookup(field)
	if err != nil {
		return "", false, err
	}

	var s string
	switch val := v.(type) {
	case nil:
		return "", false, nil
	case []byte:
		s = string(val)
	case string:
		s = val
	case int64:
		s = strconv.FormatInt(val, 10)
	case int:
		s = strconv.Itoa(val)
	case float64:
		s = strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(val)
	case time.Time:
		s = val.Format(time.RFC3339)
	default:
		s = fmt.Sprint(val)
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return "", false, nil
	}
	return s, true, nil
}

// String returns the trimmed column text, or nil when it is NULL or blank.
func (r Row) String(field string) (*string, error) {
	s, ok, err := r.text(field)
	if err != nil || !ok {
		return nil, err
	}
	return &s, nil
}

// StringOr returns the trimmed column text or fallback when absent.
func (r Row) StringOr(field, fallback string) (string, error) {
	s, err := r.String(field)
	if err != nil || s == nil {
		return fallback, err
	}
	return *s, nil
}

// Integer parses the trimmed column text as a base-10 integer. NULL and
// blank values are absent; malformed text is a *CoercionError.
func (r Row) Integer(field string) (*int, error) {
	s, ok, err := r.text(field)
	if err != nil || !ok {
		return nil, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, &CoercionError{Field: field, Kind: "integer", Value: s, Err: err}
	}
	return &n, nil
}

// Double parses the trimmed column text as a float64.
func (r Row) Double(field string) (*float64, error) {
	s, ok, err := r.text(field)
	if err != nil || !ok {
		return nil, err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, &CoercionError{Field: field, Kind: "double", Value: s, Err: err}
	}
	return &f, nil
}

// Date returns the column as a calendar date at midnight in the local time
// zone. A value at midnight in its own zone is a DATE and keeps its stored
// year, month and day. Any other value is an instant, such as a TIMESTAMPTZ,
// and takes the day it falls on in the local zone.
func (r Row) Date(field string) (*time.Time, error) {
	v, err := r.lookup(field)
	if err != nil {
		return nil, err
	}

	if t, ok := v.(time.Time); ok {
		d := localDate(t)
		return &d, nil
	}

	s, ok, err := r.text(field)
	if err != nil || !ok {
		return nil, err
	}
	for _, layout := range dateLayouts {
		if t, perr := time.Parse(layout, s); perr == nil {
			d := localDate(t)
			return &d, nil
		}
	}
	return nil, &CoercionError{Field: field, Kind: "date", Value: s, Err: fmt.Errorf("unrecognised date layout")}
}

// Year reads an integer column and expands two-digit years with
// TwoDigitYear.
func (r Row) Year(field string) (*int, error) {
	n, err := r.Integer(field)
	if err != nil || n == nil {
		return nil, err
	}
	y := TwoDigitYear(*n)
	return &y, nil
}

// TwoDigitYear expands legacy two-digit years: 80-99 become 1980-1999 and
// 0-79 become 2000-2079. Anything else is returned unchanged. The pivot is
// fixed.
func TwoDigitYear(year int) int {
	switch {
	case year >= 80 && year <= 99:
		return 1900 + year
	case year >= 0 && year < 80:
		return 2000 + year
	default:
		return year
	}
}

func localDate(t time.Time) time.Time {
	if h, m, sec := t.Clock(); h != 0 || m != 0 || sec != 0 || t.Nanosecond() != 0 {
		t = t.In(time.Local)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}
