package calendar

import (
	"errors"

	"gymdesk/internal/domain/booking"
)

// DefaultCapacity is used when a schedule row carries no capacity.
const DefaultCapacity = 20

// NearlyFullPercent is the utilization at which a class that is not full
// is flagged as nearly full.
const NearlyFullPercent = 80

// UnknownClassName labels bookings whose schedule could not be joined.
const UnknownClassName = "Unknown Class"

// View constants for date ranges.
const (
	ViewDay   = "day"
	ViewWeek  = "week"
	ViewMonth = "month"
)

// ErrInvalidView is returned for a view other than day, week or month.
var ErrInvalidView = errors.New("view must be day, week or month")

// ClassWithBookings summarises one schedule's occurrence on one date.
type ClassWithBookings struct {
	ScheduleID         string            `json:"schedule_id"`
	ClassName          string            `json:"class_name"`
	Date               string            `json:"date"`
	DayOfWeek          string            `json:"day_of_week"`
	StartTime          string            `json:"start_time"`
	EndTime            string            `json:"end_time,omitempty"`
	Capacity           int               `json:"capacity"`
	InstructorName     string            `json:"instructor_name,omitempty"`
	Bookings           []booking.Booking `json:"bookings"`
	BookingCount       int               `json:"booking_count"` // confirmed + pending
	UtilizationPercent int               `json:"utilization_percent"`
	IsFull             bool              `json:"is_full"`
	IsNearlyFull       bool              `json:"is_nearly_full"`
}

// AvailableSpots returns capacity minus active bookings, never negative.
func (c *ClassWithBookings) AvailableSpots() int {
	if c.BookingCount >= c.Capacity {
		return 0
	}
	return c.Capacity - c.BookingCount
}

// DayBookingSummary aggregates every class occurrence on one date.
type DayBookingSummary struct {
	Date               string              `json:"date"`
	TotalClasses       int                 `json:"total_classes"`
	TotalBookings      int                 `json:"total_bookings"` // all statuses
	ConfirmedBookings  int                 `json:"confirmed_bookings"`
	PendingBookings    int                 `json:"pending_bookings"`
	CancelledBookings  int                 `json:"cancelled_bookings"`
	TotalCapacity      int                 `json:"total_capacity"`
	UtilizationPercent int                 `json:"utilization_percent"`
	Classes            []ClassWithBookings `json:"classes"`
}

// PopularClass names the class with the most active bookings in a range.
type PopularClass struct {
	Name     string `json:"name"`
	Bookings int    `json:"bookings"`
}

// CalendarStats aggregates a sequence of day summaries.
// BusiestDay and MostPopularClass are nil when there is nothing to report.
type CalendarStats struct {
	TotalBookings      int           `json:"total_bookings"`
	TotalCapacity      int           `json:"total_capacity"`
	AverageUtilization int           `json:"average_utilization"`
	FullClasses        int           `json:"full_classes"`
	AvailableSpots     int           `json:"available_spots"`
	BusiestDay         *string       `json:"busiest_day,omitempty"`
	MostPopularClass   *PopularClass `json:"most_popular_class,omitempty"`
}
