package booking

import (
	"errors"
	"strings"
	"time"

	"gymdesk/internal/domain/member"
)

// Status constants for the booking lifecycle.
// Transitions are driven by the booking flow outside this service.
const (
	StatusConfirmed = "confirmed"
	StatusPending   = "pending"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// DateLayout is the layout of an occurrence date.
const DateLayout = "2006-01-02"

// ValidStatuses contains all valid status values.
var ValidStatuses = []string{StatusConfirmed, StatusPending, StatusCancelled, StatusCompleted}

// Domain errors
var (
	ErrEmptyMemberID   = errors.New("member ID cannot be empty")
	ErrEmptyScheduleID = errors.New("schedule ID cannot be empty")
	ErrInvalidDate     = errors.New("booking date must be YYYY-MM-DD")
	ErrInvalidStatus   = errors.New("booking status must be confirmed, pending, cancelled or completed")
)

// ScheduleDetails is the denormalized schedule, class and instructor data
// carried alongside a booking row.
type ScheduleDetails struct {
	DayOfWeek        string `json:"day_of_week"`
	StartTime        string `json:"start_time"` // HH:MM
	EndTime          string `json:"end_time,omitempty"`
	Capacity         int    `json:"capacity"`
	ClassName        string `json:"class_name"`
	ClassDescription string `json:"class_description,omitempty"`
	InstructorName   string `json:"instructor_name,omitempty"`
	InstructorEmail  string `json:"instructor_email,omitempty"`
}

// Booking is a member's claim on one occurrence of a scheduled class.
// Member and Schedule are nil when the related row is absent.
type Booking struct {
	ID          string           `json:"id"`
	MemberID    string           `json:"member_id"`
	ScheduleID  string           `json:"schedule_id"`
	BookingDate string           `json:"booking_date"` // YYYY-MM-DD
	Status      string           `json:"status"`
	BookedAt    time.Time        `json:"booked_at"`
	CreatedAt   time.Time        `json:"created_at"`
	Member      *member.Contact  `json:"member,omitempty"`
	Schedule    *ScheduleDetails `json:"schedule,omitempty"`
}

// Validate checks if the Booking has valid data.
// PRE: Booking struct is populated
// POST: Returns nil if valid, error otherwise
func (b *Booking) Validate() error {
	if strings.TrimSpace(b.MemberID) == "" {
		return ErrEmptyMemberID
	}
	if strings.TrimSpace(b.ScheduleID) == "" {
		return ErrEmptyScheduleID
	}
	if _, err := time.Parse(DateLayout, b.Date()); err != nil {
		return ErrInvalidDate
	}
	if !isValidStatus(b.Status) {
		return ErrInvalidStatus
	}
	return nil
}

// IsActive reports whether the booking counts against class capacity.
// INVARIANT: Status field is not mutated
func (b *Booking) IsActive() bool {
	return IsActiveStatus(b.Status)
}

// Date returns the date portion of BookingDate.
// Rows from some drivers carry a time suffix; only the first ten characters are significant.
func (b *Booking) Date() string {
	return DatePortion(b.BookingDate)
}

// IsActiveStatus reports whether status is confirmed or pending.
func IsActiveStatus(status string) bool {
	return status == StatusConfirmed || status == StatusPending
}

// DatePortion trims a date or timestamp string to YYYY-MM-DD.
func DatePortion(s string) string {
	if len(s) > len(DateLayout) {
		return s[:len(DateLayout)]
	}
	return s
}

func isValidStatus(status string) bool {
	for _, s := range ValidStatuses {
		if s == status {
			return true
		}
	}
	return false
}
