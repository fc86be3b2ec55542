package outbox

import (
	"errors"
	"testing"
	"time"
)

var t0 = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func newEntry() Entry {
	return Entry{ID: "o1", Kind: KindEmail, Payload: `{"to":"a@b.c"}`, CreatedAt: t0}
}

func TestEntry_Validate(t *testing.T) {
	e := newEntry()
	if err := e.Validate(); err != nil {
		t.Fatalf("expected valid entry, got: %v", err)
	}
	if e.MaxAttempts != DefaultMaxAttempts || e.Status != StatusPending {
		t.Errorf("defaults not applied: max=%d status=%q", e.MaxAttempts, e.Status)
	}
	if !e.NextAttemptAt.Equal(t0) {
		t.Errorf("NextAttemptAt = %v, want created_at %v", e.NextAttemptAt, t0)
	}

	tests := []struct {
		name    string
		modify  func(e *Entry)
		wantErr error
	}{
		{"missing kind", func(e *Entry) { e.Kind = "" }, ErrEmptyKind},
		{"missing payload", func(e *Entry) { e.Payload = "" }, ErrEmptyPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEntry()
			tt.modify(&e)
			if err := e.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}

	noTime := newEntry()
	noTime.CreatedAt = time.Time{}
	if err := noTime.Validate(); err == nil {
		t.Error("expected error for zero created_at")
	}
}

func TestEntry_Lifecycle(t *testing.T) {
	e := newEntry()
	e.MaxAttempts = 2
	_ = e.Validate()

	if err := e.MarkAttempt(t0); err != nil {
		t.Fatalf("first attempt: %v", err)
	}
	e.MarkFailed(errors.New("503"))
	if e.Status != StatusRetrying || e.IsTerminal() {
		t.Fatalf("after one failure status = %q, want retrying", e.Status)
	}

	if err := e.MarkAttempt(t0.Add(time.Minute)); err != nil {
		t.Fatalf("second attempt: %v", err)
	}
	e.MarkFailed(errors.New("503 again"))
	if e.Status != StatusFailed || !e.IsTerminal() {
		t.Fatalf("after exhausting attempts status = %q, want failed", e.Status)
	}
	if e.ErrorMessage != "503 again" {
		t.Errorf("ErrorMessage = %q", e.ErrorMessage)
	}
	if err := e.MarkAttempt(t0.Add(time.Hour)); !errors.Is(err, ErrNotRetryable) {
		t.Errorf("MarkAttempt on failed entry = %v, want ErrNotRetryable", err)
	}
}

func TestEntry_MarkSuccess(t *testing.T) {
	e := newEntry()
	_ = e.Validate()
	_ = e.MarkAttempt(t0)
	e.MarkFailed(errors.New("timeout"))
	_ = e.MarkAttempt(t0.Add(time.Minute))
	e.MarkSuccess("msg-1")

	if e.Status != StatusDone || e.ExternalID != "msg-1" || e.ErrorMessage != "" {
		t.Errorf("unexpected entry after success: %+v", e)
	}
	if e.CanRetry() {
		t.Error("done entry must not be retryable")
	}
}

func TestEntry_Backoff(t *testing.T) {
	base, max := time.Minute, 10*time.Minute
	e := newEntry()
	_ = e.Validate()

	if !e.Due(t0) {
		t.Error("never-attempted entry should be due")
	}

	_ = e.MarkAttempt(t0)
	if got := e.NextRetryDelay(base, max); got != 2*time.Minute {
		t.Errorf("delay after 1 attempt = %v, want 2m", got)
	}
	e.MarkFailed(errors.New("503"))
	e.ScheduleRetry(base, max)
	if !e.NextAttemptAt.Equal(t0.Add(2 * time.Minute)) {
		t.Errorf("NextAttemptAt = %v, want t0+2m", e.NextAttemptAt)
	}
	if e.Due(t0.Add(time.Minute)) {
		t.Error("entry should not be due inside its backoff")
	}
	if !e.Due(t0.Add(2 * time.Minute)) {
		t.Error("entry should be due once backoff elapsed")
	}

	e.Attempts = 8
	if got := e.NextRetryDelay(base, max); got != max {
		t.Errorf("delay = %v, want cap %v", got, max)
	}
	e.Attempts = 64
	if got := e.NextRetryDelay(base, max); got != max {
		t.Errorf("delay with huge attempt count = %v, want cap %v", got, max)
	}
}

func TestEntry_ScheduleRetry_IgnoresTerminal(t *testing.T) {
	e := newEntry()
	e.MaxAttempts = 1
	_ = e.Validate()
	_ = e.MarkAttempt(t0)
	e.MarkFailed(errors.New("503"))
	e.ScheduleRetry(time.Minute, time.Hour)
	if !e.NextAttemptAt.Equal(t0) {
		t.Errorf("failed entry rescheduled to %v", e.NextAttemptAt)
	}
}
