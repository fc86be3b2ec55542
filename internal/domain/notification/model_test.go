package notification

import (
	"strings"
	"testing"
	"time"
)

// TestNotification_Validate tests notification validation rules.
func TestNotification_Validate(t *testing.T) {
	valid := Notification{
		UserID:    "m1",
		Type:      TypeWaitlistSpotAvailable,
		Title:     "A spot opened up",
		Message:   "Claim it within 24 hours.",
		RelatedID: "s1",
		CreatedAt: time.Now(),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid notification, got: %v", err)
	}

	tests := []struct {
		name    string
		modify  func(n *Notification)
		wantErr error
	}{
		{"missing recipient", func(n *Notification) { n.UserID = "" }, ErrEmptyUserID},
		{"missing type", func(n *Notification) { n.Type = "" }, ErrEmptyType},
		{"missing title", func(n *Notification) { n.Title = "" }, ErrEmptyTitle},
		{"title too long", func(n *Notification) { n.Title = strings.Repeat("t", MaxTitleLength+1) }, ErrTitleTooLong},
		{"missing message", func(n *Notification) { n.Message = "" }, ErrEmptyMessage},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n := valid
			tc.modify(&n)
			if err := n.Validate(); err != tc.wantErr {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

// TestNotification_MarkRead tests that the first read time sticks.
func TestNotification_MarkRead(t *testing.T) {
	n := Notification{}
	if n.IsRead() {
		t.Fatal("new notification should be unread")
	}
	first := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	n.MarkRead(first)
	n.MarkRead(first.Add(time.Hour))
	if !n.IsRead() || !n.ReadAt.Equal(first) {
		t.Fatalf("expected ReadAt %v, got %v", first, n.ReadAt)
	}
}
