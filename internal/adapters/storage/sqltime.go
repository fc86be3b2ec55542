package storage

import (
	"database/sql"
	"time"
)

// TimeLayout is the text encoding of timestamp columns.
const TimeLayout = time.RFC3339Nano

// SortableTimeLayout has fixed-width fractional seconds so that encoded
// values compare lexically in time order. ParseTime reads it.
const SortableTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatSortableTime encodes t in UTC for a column used in range filters
// or ORDER BY.
func FormatSortableTime(t time.Time) string {
	return t.UTC().Format(SortableTimeLayout)
}

// FormatTime encodes t in UTC for a timestamp column.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime decodes a timestamp column, returning the zero time for NULL or
// unparseable values.
func ParseTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(TimeLayout, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

// NullTime encodes a zero time as NULL.
func NullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return FormatTime(t)
}

// NullString encodes an empty string as NULL.
func NullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
