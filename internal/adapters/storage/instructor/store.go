package instructor

import (
	"context"
	"errors"

	domain "gymdesk/internal/domain/instructor"
)

// ErrNotFound is returned when no instructor matches.
var ErrNotFound = errors.New("instructor not found")

// Store persists Instructor state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Instructor, error)
	Save(ctx context.Context, value domain.Instructor) error
	List(ctx context.Context) ([]domain.Instructor, error)
}
