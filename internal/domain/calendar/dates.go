package calendar

import (
	"time"

	"gymdesk/internal/domain/booking"
)

// DayDates returns the single date containing t.
func DayDates(t time.Time) []time.Time {
	return []time.Time{startOfDay(t)}
}

// WeekDates returns the seven dates of the Monday-start week containing t.
func WeekDates(t time.Time) []time.Time {
	d := startOfDay(t)
	offset := (int(d.Weekday()) + 6) % 7
	monday := d.AddDate(0, 0, -offset)

	dates := make([]time.Time, 7)
	for i := range dates {
		dates[i] = monday.AddDate(0, 0, i)
	}
	return dates
}

// MonthDates returns every date from the first to the last day of t's month.
func MonthDates(t time.Time) []time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	var dates []time.Time
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// DateRange resolves a calendar view around anchor.
func DateRange(view string, anchor time.Time) ([]time.Time, error) {
	switch view {
	case ViewDay:
		return DayDates(anchor), nil
	case ViewWeek:
		return WeekDates(anchor), nil
	case ViewMonth:
		return MonthDates(anchor), nil
	default:
		return nil, ErrInvalidView
	}
}

// FormatDates renders dates as YYYY-MM-DD strings.
func FormatDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(booking.DateLayout)
	}
	return out
}

// startOfDay drops the time of day, keeping the date as written in t's location.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
