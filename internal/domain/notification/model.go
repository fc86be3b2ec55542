package notification

import (
	"errors"
	"time"
)

// Type tags for in-app notifications.
const (
	TypeWaitlistSpotAvailable = "waitlist_spot_available"
	TypeClassCancelled        = "class_cancelled"
)

// Max length constants.
const (
	MaxTitleLength = 200
)

// Domain errors
var (
	ErrEmptyUserID  = errors.New("recipient user ID is required")
	ErrEmptyType    = errors.New("notification type is required")
	ErrEmptyTitle   = errors.New("notification title cannot be empty")
	ErrTitleTooLong = errors.New("notification title cannot exceed 200 characters")
	ErrEmptyMessage = errors.New("notification message cannot be empty")
)

// Notification is an in-app message shown on a member's dashboard.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"` // recipient member ID
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	RelatedID string    `json:"related_id,omitempty"` // e.g. the schedule the notification is about
	ReadAt    time.Time `json:"read_at,omitzero"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks if the Notification has valid data.
// PRE: Notification struct is populated
// POST: Returns nil if valid, error otherwise
func (n *Notification) Validate() error {
	if n.UserID == "" {
		return ErrEmptyUserID
	}
	if n.Type == "" {
		return ErrEmptyType
	}
	if n.Title == "" {
		return ErrEmptyTitle
	}
	if len(n.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if n.Message == "" {
		return ErrEmptyMessage
	}
	if n.CreatedAt.IsZero() {
		return errors.New("created_at must be set")
	}
	return nil
}

// IsRead returns true if the notification has been read.
// INVARIANT: ReadAt field is not mutated
func (n *Notification) IsRead() bool {
	return !n.ReadAt.IsZero()
}

// MarkRead records when the notification was read.
// PRE: Notification exists
// POST: ReadAt is set to at if previously zero
func (n *Notification) MarkRead(at time.Time) {
	if n.ReadAt.IsZero() {
		n.ReadAt = at
	}
}
