package models

import (
	"strconv"
	"time"
)

// Exportable records can be flattened into a tabular dataset.
type Exportable interface {
	ExportHeaders() []string
	ExportRow() map[string]string
}

func str(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func integer(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func double(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func date(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.Format("2006-01-02")
}
