package classtype

import (
	"context"
	"errors"

	domain "gymdesk/internal/domain/classtype"
)

// ErrNotFound is returned when no class type matches.
var ErrNotFound = errors.New("class type not found")

// Store persists ClassType state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.ClassType, error)
	Save(ctx context.Context, value domain.ClassType) error
	List(ctx context.Context) ([]domain.ClassType, error)
}
