package outbox

import (
	"context"
	"time"

	domain "gymdesk/internal/domain/outbox"
)

// Store persists deferred side effects.
type Store interface {
	// GetByID retrieves an outbox entry by its ID.
	// PRE: id is non-empty
	// POST: Returns the entry or ErrNotFound
	GetByID(ctx context.Context, id string) (domain.Entry, error)

	// Save inserts or updates an entry.
	// PRE: entry has been validated
	Save(ctx context.Context, e domain.Entry) error

	// ListDue returns pending and retrying entries whose NextAttemptAt is
	// at or before now, earliest first.
	// PRE: limit > 0
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Entry, error)

	// CountByStatus reports how many entries are in each status.
	CountByStatus(ctx context.Context) (map[string]int, error)
}
