package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	emailAdapter "gymdesk/internal/adapters/email"
	waitlistStore "gymdesk/internal/adapters/storage/waitlist"
	"gymdesk/internal/domain/notification"
	"gymdesk/internal/domain/waitlist"
)

// ErrScheduleIDRequired is returned when a trigger omits the schedule ID.
var ErrScheduleIDRequired = errors.New("schedule_id is required")

// WaitlistStoreForOrchestrator defines the queue operations promotion needs.
type WaitlistStoreForOrchestrator interface {
	GetHead(ctx context.Context, scheduleID string) (waitlist.Entry, error)
	MarkNotified(ctx context.Context, params waitlistStore.MarkNotifiedParams) (bool, error)
}

// NotificationStoreForOrchestrator inserts in-app notifications.
type NotificationStoreForOrchestrator interface {
	Save(ctx context.Context, n notification.Notification) error
}

// Sender is the email identity used on outgoing mail.
type Sender struct {
	Name    string
	Address string
	ReplyTo string
}

// request addresses a rendered message from this identity.
func (s Sender) request(to string, msg renderedMessage) emailAdapter.SendRequest {
	return emailAdapter.SendRequest{
		FromName: s.Name,
		From:     s.Address,
		To:       to,
		Subject:  msg.Subject,
		HTML:     msg.HTML,
		Text:     msg.Text,
		ReplyTo:  s.ReplyTo,
		Category: msg.Category,
	}
}

// PromoteWaitlistInput carries the trigger payload for a freed spot.
type PromoteWaitlistInput struct {
	ScheduleID string `json:"schedule_id"`
	ClassName  string `json:"class_name"`
	DayOfWeek  string `json:"day_of_week"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

func (in PromoteWaitlistInput) occurrence() ClassOccurrence {
	return ClassOccurrence{ClassName: in.ClassName, DayOfWeek: in.DayOfWeek, StartTime: in.StartTime, EndTime: in.EndTime}
}

// PromoteWaitlistDeps holds dependencies for PromoteWaitlist.
type PromoteWaitlistDeps struct {
	WaitlistStore     WaitlistStoreForOrchestrator
	NotificationStore NotificationStoreForOrchestrator
	EmailSender       emailAdapter.Sender
	Outbox            OutboxStoreForOrchestrator // optional
	From              Sender
	Perf              StepRecorder // optional
	GenerateID        func() string
	Now               func() time.Time
}

// PromoteWaitlistResult summarizes one promotion attempt.
type PromoteWaitlistResult struct {
	Promoted         bool          `json:"promoted"`
	EntryID          string        `json:"entry_id,omitempty"`
	MemberID         string        `json:"member_id,omitempty"`
	NotificationSent bool          `json:"notification_sent"`
	EmailSent        bool          `json:"email_sent"`
	EmailQueued      bool          `json:"email_queued,omitempty"`
	ExpiresAt        *time.Time    `json:"expires_at,omitempty"`
	Steps            []StepOutcome `json:"steps"`
}

// Recipients reports how many members were notified, 0 or 1.
func (r PromoteWaitlistResult) Recipients() int {
	if r.Promoted {
		return 1
	}
	return 0
}

// ExecutePromoteWaitlist advances the head of a schedule's waiting queue to
// notified and tells the member a spot is held for them.
// PRE: input.ScheduleID is non-empty
// POST: at most one entry per schedule moves waiting -> notified with
// ExpiresAt = now + waitlist.ClaimWindow; notification and email are best-effort
// INVARIANT: only the head query and the conditional write can fail the call
func ExecutePromoteWaitlist(ctx context.Context, input PromoteWaitlistInput, deps PromoteWaitlistDeps) (PromoteWaitlistResult, error) {
	if input.ScheduleID == "" {
		return PromoteWaitlistResult{}, ErrScheduleIDRequired
	}
	scheduleAttr := attribute.String("schedule_id", input.ScheduleID)
	log := stepLog{rec: deps.Perf}

	var head waitlist.Entry
	err := log.run(ctx, StepQueryHead, func(ctx context.Context) error {
		var err error
		head, err = deps.WaitlistStore.GetHead(ctx, input.ScheduleID)
		if errors.Is(err, waitlist.ErrNoWaitingEntry) {
			return nil
		}
		return err
	}, scheduleAttr)
	if err != nil {
		return PromoteWaitlistResult{Steps: log.Steps()}, fmt.Errorf("query waitlist head: %w", err)
	}
	if head.ID == "" {
		slog.Info("waitlist_event", "event", "queue_empty", "schedule_id", input.ScheduleID)
		return PromoteWaitlistResult{Steps: log.Steps()}, nil
	}

	now := deps.Now()
	if err := head.Promote(now); err != nil {
		// GetHead only returns promotable rows; anything else is a store bug.
		return PromoteWaitlistResult{Steps: log.Steps()}, fmt.Errorf("entry %s: %w", head.ID, err)
	}

	var won bool
	err = log.run(ctx, StepMarkNotified, func(ctx context.Context) error {
		var err error
		won, err = deps.WaitlistStore.MarkNotified(ctx, waitlistStore.MarkNotifiedParams{
			EntryID:    head.ID,
			NotifiedAt: head.NotifiedAt,
			ExpiresAt:  head.ExpiresAt,
		})
		return err
	}, scheduleAttr, attribute.String("entry_id", head.ID))
	if err != nil {
		return PromoteWaitlistResult{Steps: log.Steps()}, fmt.Errorf("mark entry notified: %w", err)
	}
	if !won {
		slog.Info("waitlist_event", "event", "promotion_contended", "schedule_id", input.ScheduleID, "entry_id", head.ID)
		return PromoteWaitlistResult{Steps: log.Steps()}, nil
	}

	expiresAt := head.ExpiresAt
	result := PromoteWaitlistResult{
		Promoted:  true,
		EntryID:   head.ID,
		MemberID:  head.MemberID,
		ExpiresAt: &expiresAt,
	}
	slog.Info("waitlist_event", "event", "entry_promoted", "schedule_id", input.ScheduleID, "entry_id", head.ID, "member_id", head.MemberID, "expires_at", expiresAt)

	greeting := "there"
	var to string
	if head.Member != nil {
		greeting = head.Member.Greeting()
		to = head.Member.Email
	}

	msg, err := renderSpotAvailable(greeting, input.occurrence(), expiresAt)
	if err != nil {
		// Templates are static; a failure here skips the side effects only.
		slog.Error("waitlist_event", "event", "render_failed", "entry_id", head.ID, "error", err)
		result.Steps = log.Steps()
		return result, nil
	}

	result.NotificationSent = log.bestEffort(ctx, StepInsertNotice, func(ctx context.Context) error {
		n := notification.Notification{
			ID:        deps.GenerateID(),
			UserID:    head.MemberID,
			Type:      notification.TypeWaitlistSpotAvailable,
			Title:     msg.Title,
			Message:   msg.Message,
			RelatedID: input.ScheduleID,
			CreatedAt: now,
		}
		if err := n.Validate(); err != nil {
			return err
		}
		return deps.NotificationStore.Save(ctx, n)
	}, scheduleAttr)

	delivery := emailDelivery{sender: deps.EmailSender, queue: deps.Outbox, generateID: deps.GenerateID, now: now}
	result.EmailSent = log.bestEffort(ctx, StepSendEmail, func(ctx context.Context) error {
		var err error
		result.EmailQueued, err = delivery.send(ctx, deps.From.request(to, msg))
		return err
	}, scheduleAttr)

	result.Steps = log.Steps()
	return result, nil
}
