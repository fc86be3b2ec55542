package notification

import (
	"context"
	"database/sql"
	"fmt"

	"gymdesk/internal/adapters/storage"
	domain "gymdesk/internal/domain/notification"
)

type notificationRow struct {
	ID        string         `db:"id"`
	UserID    string         `db:"user_id"`
	Type      string         `db:"type"`
	Title     string         `db:"title"`
	Message   string         `db:"message"`
	RelatedID sql.NullString `db:"related_id"`
	ReadAt    sql.NullString `db:"read_at"`
	CreatedAt sql.NullString `db:"created_at"`
}

// SQLStore implements Store on any SQLDB.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new notification SQLStore.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// Save persists a Notification to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLStore) Save(ctx context.Context, n domain.Notification) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO notification (id, user_id, type, title, message, related_id, read_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET read_at=excluded.read_at`),
		n.ID, n.UserID, n.Type, n.Title, n.Message,
		storage.NullString(n.RelatedID), storage.NullTime(n.ReadAt), storage.FormatTime(n.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("save notification: %w", err)
	}
	return nil
}

// ListByUserID retrieves Notifications for a recipient, newest first.
// PRE: userID is non-empty
// POST: Returns notifications for the given recipient
func (s *SQLStore) ListByUserID(ctx context.Context, userID string) ([]domain.Notification, error) {
	var rows []notificationRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(
		`SELECT id, user_id, type, title, message, related_id, read_at, created_at
		 FROM notification WHERE user_id = ? ORDER BY created_at DESC, id`), userID); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	results := make([]domain.Notification, 0, len(rows))
	for _, r := range rows {
		results = append(results, domain.Notification{
			ID:        r.ID,
			UserID:    r.UserID,
			Type:      r.Type,
			Title:     r.Title,
			Message:   r.Message,
			RelatedID: r.RelatedID.String,
			ReadAt:    storage.ParseTime(r.ReadAt),
			CreatedAt: storage.ParseTime(r.CreatedAt),
		})
	}
	return results, nil
}

// CountUnread counts unread notifications for a recipient.
// PRE: userID is non-empty
// POST: Returns count of unread notifications
func (s *SQLStore) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		s.db.Rebind(`SELECT COUNT(*) FROM notification WHERE user_id = ? AND read_at IS NULL`), userID)
	return count, err
}
