package waitlist

import (
	"errors"
	"time"

	"gymdesk/internal/domain/member"
)

// Status constants for the waitlist entry lifecycle.
// This service only performs waiting -> notified; claimed comes from the
// booking flow and expired from the sweeper.
const (
	StatusWaiting   = "waiting"
	StatusNotified  = "notified"
	StatusExpired   = "expired"
	StatusClaimed   = "claimed"
	StatusCancelled = "cancelled"
)

// HeadPosition is the queue position promoted next.
const HeadPosition = 1

// ClaimWindow is how long a notified member has to claim the freed spot.
const ClaimWindow = 24 * time.Hour

// Domain errors
var (
	ErrEmptyMemberID    = errors.New("member ID cannot be empty")
	ErrEmptyScheduleID  = errors.New("schedule ID cannot be empty")
	ErrInvalidPosition  = errors.New("queue position must be 1 or greater")
	ErrNotPromotable    = errors.New("only the waiting entry at position 1 can be promoted")
	ErrNoWaitingEntry   = errors.New("no waiting entry at the head of the queue")
	ErrInvalidStatus    = errors.New("invalid waitlist status")
	errCreatedAtMissing = errors.New("created_at must be set")
)

// Entry is one member's place in a schedule's waiting queue.
type Entry struct {
	ID         string
	MemberID   string
	ScheduleID string
	Position   int // 1-based, contiguous per schedule
	Status     string
	NotifiedAt time.Time
	ExpiresAt  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// Member is nil when the member row could not be joined.
	Member *member.Contact
}

// Validate checks if the Entry has valid data.
// PRE: Entry struct is populated
// POST: Returns nil if valid, error otherwise
func (e *Entry) Validate() error {
	if e.MemberID == "" {
		return ErrEmptyMemberID
	}
	if e.ScheduleID == "" {
		return ErrEmptyScheduleID
	}
	if e.Position < 1 {
		return ErrInvalidPosition
	}
	switch e.Status {
	case StatusWaiting, StatusNotified, StatusExpired, StatusClaimed, StatusCancelled:
	default:
		return ErrInvalidStatus
	}
	if e.CreatedAt.IsZero() {
		return errCreatedAtMissing
	}
	return nil
}

// IsPromotable reports whether the entry is the waiting head of its queue.
// INVARIANT: Entry fields are not mutated
func (e *Entry) IsPromotable() bool {
	return e.Status == StatusWaiting && e.Position == HeadPosition
}

// Promote moves the entry to notified and opens the claim window.
// PRE: IsPromotable() is true
// POST: Status is notified, NotifiedAt = now, ExpiresAt = now + ClaimWindow
func (e *Entry) Promote(now time.Time) error {
	if !e.IsPromotable() {
		return ErrNotPromotable
	}
	e.Status = StatusNotified
	e.NotifiedAt = now
	e.ExpiresAt = ClaimDeadline(now)
	e.UpdatedAt = now
	return nil
}

// ClaimDeadline returns the instant a promotion made at now expires.
func ClaimDeadline(now time.Time) time.Time {
	return now.Add(ClaimWindow)
}
