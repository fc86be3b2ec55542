// Package outbox models deferred delivery of side effects that failed
// inline, such as a workflow email the provider rejected.
package outbox

import (
	"errors"
	"time"
)

// Status constants for the entry lifecycle.
const (
	StatusPending  = "pending"
	StatusRetrying = "retrying"
	StatusDone     = "done"
	StatusFailed   = "failed"
)

// KindEmail is the only kind produced today.
const KindEmail = "email"

// DefaultMaxAttempts bounds retries when an entry does not set its own.
const DefaultMaxAttempts = 5

// Domain errors.
var (
	ErrEmptyKind    = errors.New("kind is required")
	ErrEmptyPayload = errors.New("payload is required")
	ErrNotRetryable = errors.New("entry is not retryable")
)

// Entry is one side effect waiting to be delivered.
type Entry struct {
	ID              string
	Kind            string
	Payload         string // JSON, replayed verbatim
	Status          string
	Attempts        int
	MaxAttempts     int
	LastAttemptedAt time.Time
	NextAttemptAt   time.Time // earliest time the next attempt may run
	CreatedAt       time.Time
	ExternalID      string // provider message id once delivered
	ErrorMessage    string
}

// Validate checks the entry and fills MaxAttempts, Status and
// NextAttemptAt defaults. A new entry is due as soon as it is created.
// PRE: Entry struct is populated
// POST: Returns nil if valid, error otherwise
func (e *Entry) Validate() error {
	if e.Kind == "" {
		return ErrEmptyKind
	}
	if e.Payload == "" {
		return ErrEmptyPayload
	}
	if e.CreatedAt.IsZero() {
		return errors.New("created_at must be set")
	}
	if e.MaxAttempts <= 0 {
		e.MaxAttempts = DefaultMaxAttempts
	}
	if e.Status == "" {
		e.Status = StatusPending
	}
	if e.NextAttemptAt.IsZero() {
		e.NextAttemptAt = e.CreatedAt
	}
	return nil
}

// CanRetry reports whether another attempt is allowed.
func (e *Entry) CanRetry() bool {
	return (e.Status == StatusPending || e.Status == StatusRetrying) && e.Attempts < e.MaxAttempts
}

// IsTerminal reports whether the entry will never be attempted again.
func (e *Entry) IsTerminal() bool {
	return e.Status == StatusDone || e.Status == StatusFailed
}

// NextRetryDelay is 2^attempts * base, capped at max.
func (e *Entry) NextRetryDelay(base, max time.Duration) time.Duration {
	if e.Attempts >= 30 {
		return max
	}
	delay := base * (1 << e.Attempts)
	if delay > max || delay <= 0 {
		return max
	}
	return delay
}

// Due reports whether the entry may be attempted at now.
func (e *Entry) Due(now time.Time) bool {
	return !now.Before(e.NextAttemptAt)
}

// ScheduleRetry pushes NextAttemptAt past the backoff of a retrying entry.
// PRE: called after MarkFailed
// POST: NextAttemptAt = LastAttemptedAt + NextRetryDelay while retrying
func (e *Entry) ScheduleRetry(base, max time.Duration) {
	if e.Status != StatusRetrying {
		return
	}
	e.NextAttemptAt = e.LastAttemptedAt.Add(e.NextRetryDelay(base, max))
}

// MarkAttempt records the start of an attempt.
// PRE: CanRetry()
// POST: Attempts incremented, status retrying
func (e *Entry) MarkAttempt(now time.Time) error {
	if !e.CanRetry() {
		return ErrNotRetryable
	}
	e.Attempts++
	e.LastAttemptedAt = now
	e.Status = StatusRetrying
	return nil
}

// MarkSuccess records delivery.
// POST: Status done, error cleared
func (e *Entry) MarkSuccess(externalID string) {
	e.Status = StatusDone
	e.ExternalID = externalID
	e.ErrorMessage = ""
}

// MarkFailed records a failed attempt; the entry fails for good once
// attempts are exhausted.
// POST: ErrorMessage set; Status failed when Attempts >= MaxAttempts
func (e *Entry) MarkFailed(err error) {
	e.ErrorMessage = err.Error()
	if e.Attempts >= e.MaxAttempts {
		e.Status = StatusFailed
	}
}
