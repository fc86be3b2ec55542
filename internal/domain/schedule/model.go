package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Day of week constants
const (
	Monday    = "monday"
	Tuesday   = "tuesday"
	Wednesday = "wednesday"
	Thursday  = "thursday"
	Friday    = "friday"
	Saturday  = "saturday"
	Sunday    = "sunday"
)

// TimeLayout is the layout of StartTime and EndTime.
const TimeLayout = "15:04"

// ValidDays contains all valid day values.
var ValidDays = []string{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Domain errors
var (
	ErrEmptyClassTypeID = errors.New("class type ID cannot be empty")
	ErrInvalidDay       = errors.New("day must be a valid day of the week")
	ErrInvalidStartTime = errors.New("start time must be HH:MM")
	ErrInvalidEndTime   = errors.New("end time must be HH:MM")
	ErrNegativeCapacity = errors.New("capacity cannot be negative")
)

// Schedule represents a recurring weekly class slot.
// Occurrences are the concrete dates on which the slot's day falls.
type Schedule struct {
	ID           string
	ClassTypeID  string
	InstructorID string // optional
	Day          string // monday, tuesday, etc.
	StartTime    string // HH:MM format
	EndTime      string // HH:MM format
	Capacity     int    // 0 means not set
}

// Validate checks if the Schedule has valid data.
// PRE: Schedule struct is populated
// POST: Returns nil if valid, error otherwise
func (s *Schedule) Validate() error {
	if strings.TrimSpace(s.ClassTypeID) == "" {
		return ErrEmptyClassTypeID
	}
	if !IsValidDay(s.Day) {
		return ErrInvalidDay
	}
	if _, err := time.Parse(TimeLayout, s.StartTime); err != nil {
		return ErrInvalidStartTime
	}
	if _, err := time.Parse(TimeLayout, s.EndTime); err != nil {
		return ErrInvalidEndTime
	}
	if s.Capacity < 0 {
		return ErrNegativeCapacity
	}
	return nil
}

// DurationHours returns the session duration in hours.
// PRE: StartTime and EndTime are in HH:MM format
// POST: Returns duration as float64 hours, or error if times can't be parsed
func (s *Schedule) DurationHours() (float64, error) {
	start, err := time.Parse(TimeLayout, s.StartTime)
	if err != nil {
		return 0, fmt.Errorf("invalid start time %q: %w", s.StartTime, err)
	}
	end, err := time.Parse(TimeLayout, s.EndTime)
	if err != nil {
		return 0, fmt.Errorf("invalid end time %q: %w", s.EndTime, err)
	}
	dur := end.Sub(start)
	if dur <= 0 {
		dur += 24 * time.Hour // handle overnight classes
	}
	return dur.Hours(), nil
}

// DayOf returns the lowercase weekday name for t.
func DayOf(t time.Time) string {
	return strings.ToLower(t.Weekday().String())
}

// IsValidDay reports whether day is a lowercase weekday name.
func IsValidDay(day string) bool {
	for _, d := range ValidDays {
		if d == day {
			return true
		}
	}
	return false
}
