package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestWeekDates(t *testing.T) {
	tests := []struct {
		name   string
		anchor time.Time
		monday string
	}{
		{"monday anchor", date("2026-10-19"), "2026-10-19"},
		{"midweek anchor", date("2026-10-22"), "2026-10-19"},
		{"sunday belongs to previous week", date("2026-10-25"), "2026-10-19"},
		{"week spanning months", date("2026-11-01"), "2026-10-26"},
		{"time of day ignored", date("2026-10-21").Add(23 * time.Hour), "2026-10-19"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dates := WeekDates(tt.anchor)
			require.Len(t, dates, 7)
			assert.Equal(t, tt.monday, dates[0].Format("2006-01-02"))
			assert.Equal(t, time.Monday, dates[0].Weekday())
			assert.Equal(t, time.Sunday, dates[6].Weekday())
			for i := 1; i < len(dates); i++ {
				assert.Equal(t, 24*time.Hour, dates[i].Sub(dates[i-1]))
			}
		})
	}
}

func TestMonthDates(t *testing.T) {
	tests := []struct {
		anchor string
		want   int
		last   string
	}{
		{"2026-10-19", 31, "2026-10-31"},
		{"2026-11-30", 30, "2026-11-30"},
		{"2026-02-14", 28, "2026-02-28"},
		{"2028-02-01", 29, "2028-02-29"},
	}
	for _, tt := range tests {
		t.Run(tt.anchor, func(t *testing.T) {
			dates := MonthDates(date(tt.anchor))
			require.Len(t, dates, tt.want)
			assert.Equal(t, 1, dates[0].Day())
			assert.Equal(t, tt.last, dates[len(dates)-1].Format("2006-01-02"))
		})
	}
}

func TestDateRange(t *testing.T) {
	anchor := date("2026-10-22")

	day, err := DateRange(ViewDay, anchor)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-10-22"}, FormatDates(day))

	week, err := DateRange(ViewWeek, anchor)
	require.NoError(t, err)
	assert.Len(t, week, 7)

	month, err := DateRange(ViewMonth, anchor)
	require.NoError(t, err)
	assert.Len(t, month, 31)

	_, err = DateRange("year", anchor)
	assert.ErrorIs(t, err, ErrInvalidView)
}
