package waitlist

import (
	"context"
	"errors"
	"time"

	domain "gymdesk/internal/domain/waitlist"
)

// ErrNotFound is returned when no waitlist entry matches an ID.
var ErrNotFound = errors.New("waitlist entry not found")

// MarkNotifiedParams describes the conditional waiting -> notified write.
type MarkNotifiedParams struct {
	EntryID    string
	NotifiedAt time.Time
	ExpiresAt  time.Time
}

// Store persists waitlist queues.
type Store interface {
	// GetHead returns the waiting entry at position 1 for a schedule, with
	// member contact resolved. Returns domain.ErrNoWaitingEntry when the
	// queue has no waiting head.
	GetHead(ctx context.Context, scheduleID string) (domain.Entry, error)

	// MarkNotified moves the entry to notified only if it is still waiting
	// at position 1. It reports whether a row changed; false means another
	// invocation already promoted it and is not an error.
	MarkNotified(ctx context.Context, params MarkNotifiedParams) (bool, error)

	GetByID(ctx context.Context, id string) (domain.Entry, error)
	ListBySchedule(ctx context.Context, scheduleID string) ([]domain.Entry, error)
	Save(ctx context.Context, value domain.Entry) error
}
