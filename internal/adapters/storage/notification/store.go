package notification

import (
	"context"

	domain "gymdesk/internal/domain/notification"
)

// Store persists in-app notifications. The workflows only insert; reads
// serve the member dashboard.
type Store interface {
	Save(ctx context.Context, value domain.Notification) error
	ListByUserID(ctx context.Context, userID string) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
}
