package orchestrators

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	emailAdapter "gymdesk/internal/adapters/email"
	"gymdesk/internal/domain/outbox"
)

// OutboxStoreForOrchestrator queues emails whose inline send failed.
type OutboxStoreForOrchestrator interface {
	Save(ctx context.Context, e outbox.Entry) error
}

// emailDelivery sends workflow email and hands provider failures to the
// outbox when one is configured.
type emailDelivery struct {
	sender     emailAdapter.Sender
	queue      OutboxStoreForOrchestrator // optional
	generateID func() string
	now        time.Time
}

// send returns the inline send error; queued reports whether the message
// was stored for a later retry.
func (d emailDelivery) send(ctx context.Context, req emailAdapter.SendRequest) (queued bool, err error) {
	if err := req.Validate(); err != nil {
		return false, err
	}
	if _, err = d.sender.Send(ctx, req); err == nil {
		return false, nil
	}
	if d.queue == nil {
		return false, err
	}
	payload, mErr := json.Marshal(req)
	if mErr != nil {
		slog.Error("outbox_event", "event", "encode_failed", "error", mErr)
		return false, err
	}
	entry := outbox.Entry{
		ID:           d.generateID(),
		Kind:         outbox.KindEmail,
		Payload:      string(payload),
		CreatedAt:    d.now,
		ErrorMessage: err.Error(),
	}
	if vErr := entry.Validate(); vErr != nil {
		slog.Error("outbox_event", "event", "invalid_entry", "error", vErr)
		return false, err
	}
	if sErr := d.queue.Save(ctx, entry); sErr != nil {
		slog.Error("outbox_event", "event", "enqueue_failed", "error", sErr)
		return false, err
	}
	slog.Info("outbox_event", "event", "email_queued", "entry_id", entry.ID, "subject", req.Subject)
	return true, err
}

// OutboxRetryStore lists and updates queued entries.
type OutboxRetryStore interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]outbox.Entry, error)
	Save(ctx context.Context, e outbox.Entry) error
}

// RetryEmailOutboxDeps holds dependencies for RetryEmailOutbox.
type RetryEmailOutboxDeps struct {
	OutboxStore OutboxRetryStore
	EmailSender emailAdapter.Sender
	Now         func() time.Time
	BaseDelay   time.Duration // default 30s
	MaxDelay    time.Duration // default 1h
	BatchSize   int           // default 10
}

func (d *RetryEmailOutboxDeps) withDefaults() {
	if d.BaseDelay <= 0 {
		d.BaseDelay = 30 * time.Second
	}
	if d.MaxDelay <= 0 {
		d.MaxDelay = time.Hour
	}
	if d.BatchSize <= 0 {
		d.BatchSize = 10
	}
	if d.Now == nil {
		d.Now = time.Now
	}
}

// OutboxRetryResult counts what one retry pass did.
type OutboxRetryResult struct {
	Processed int
	Sent      int
	Failed    int
	Deferred  int
}

// ExecuteRetryEmailOutbox resends queued emails whose backoff has elapsed.
// PRE: deps.OutboxStore and deps.EmailSender are non-nil
// POST: up to BatchSize due entries, earliest NextAttemptAt first, are
// attempted once and saved with their new status and next attempt time
// INVARIANT: an entry with an undecodable payload fails without a send
func ExecuteRetryEmailOutbox(ctx context.Context, deps RetryEmailOutboxDeps) (OutboxRetryResult, error) {
	deps.withDefaults()
	now := deps.Now()
	entries, err := deps.OutboxStore.ListDue(ctx, now, deps.BatchSize)
	if err != nil {
		return OutboxRetryResult{}, fmt.Errorf("list due outbox entries: %w", err)
	}

	var result OutboxRetryResult
	for _, entry := range entries {
		if !entry.Due(now) {
			result.Deferred++
			continue
		}
		if err := entry.MarkAttempt(now); err != nil {
			continue
		}
		result.Processed++

		var req emailAdapter.SendRequest
		if entry.Kind != outbox.KindEmail {
			entry.MaxAttempts = entry.Attempts
			entry.MarkFailed(fmt.Errorf("unsupported outbox kind %q", entry.Kind))
		} else if err := json.Unmarshal([]byte(entry.Payload), &req); err != nil {
			entry.MaxAttempts = entry.Attempts
			entry.MarkFailed(fmt.Errorf("decode payload: %w", err))
		} else if res, err := deps.EmailSender.Send(ctx, req); err != nil {
			entry.MarkFailed(err)
			entry.ScheduleRetry(deps.BaseDelay, deps.MaxDelay)
		} else {
			entry.MarkSuccess(res.MessageID)
		}

		if entry.Status == outbox.StatusDone {
			result.Sent++
			slog.Info("outbox_event", "event", "retry_succeeded", "entry_id", entry.ID, "attempt", entry.Attempts)
		} else {
			result.Failed++
			slog.Warn("outbox_event", "event", "retry_failed", "entry_id", entry.ID,
				"attempt", entry.Attempts, "status", entry.Status, "next_attempt_at", entry.NextAttemptAt, "error", entry.ErrorMessage)
		}

		if err := deps.OutboxStore.Save(ctx, entry); err != nil {
			slog.Error("outbox_event", "event", "save_failed", "entry_id", entry.ID, "error", err)
		}
	}
	return result, nil
}

// StartEmailOutboxWorker runs ExecuteRetryEmailOutbox every interval until
// ctx is done. The returned channel closes when the worker has stopped.
func StartEmailOutboxWorker(ctx context.Context, deps RetryEmailOutboxDeps, interval time.Duration) <-chan struct{} {
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Info("outbox_event", "event", "worker_stopped")
				return
			case <-ticker.C:
				res, err := ExecuteRetryEmailOutbox(ctx, deps)
				if err != nil {
					slog.Error("outbox_event", "event", "retry_pass_failed", "error", err)
					continue
				}
				if res.Processed > 0 {
					slog.Info("outbox_event", "event", "retry_pass_complete",
						"processed", res.Processed, "sent", res.Sent, "failed", res.Failed, "deferred", res.Deferred)
				}
			}
		}
	}()
	return stopped
}
