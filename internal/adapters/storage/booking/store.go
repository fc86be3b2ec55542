package booking

import (
	"context"
	"errors"

	domain "gymdesk/internal/domain/booking"
)

// ErrNotFound is returned when no booking matches.
var ErrNotFound = errors.New("booking not found")

// Filter scopes a calendar fetch. From and To are inclusive YYYY-MM-DD dates;
// empty slices mean no restriction.
type Filter struct {
	From          string
	To            string
	ClassTypeIDs  []string
	InstructorIDs []string
	Statuses      []string
}

// Store persists Booking state and serves the calendar row fetch.
// Rows come back with Member and Schedule already resolved to single
// objects, or nil when the related row is missing.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Booking, error)
	Save(ctx context.Context, value domain.Booking) error
	ListByDateRange(ctx context.Context, filter Filter) ([]domain.Booking, error)
	// ListActiveBySchedule returns confirmed and pending bookings for a
	// schedule, limited to one occurrence when date is non-empty.
	ListActiveBySchedule(ctx context.Context, scheduleID, date string) ([]domain.Booking, error)
}
