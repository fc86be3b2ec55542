package schedule

import (
	"context"
	"errors"

	domain "gymdesk/internal/domain/schedule"
)

// ErrNotFound is returned when no schedule matches.
var ErrNotFound = errors.New("schedule not found")

// Store persists Schedule state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Schedule, error)
	Save(ctx context.Context, value domain.Schedule) error
	List(ctx context.Context) ([]domain.Schedule, error)
	ListByDay(ctx context.Context, day string) ([]domain.Schedule, error)
}
