package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	emailAdapter "gymdesk/internal/adapters/email"
	"gymdesk/internal/domain/booking"
	"gymdesk/internal/domain/notification"
)

// BookingStoreForOrchestrator lists the bookings affected by a cancellation.
type BookingStoreForOrchestrator interface {
	ListActiveBySchedule(ctx context.Context, scheduleID, date string) ([]booking.Booking, error)
}

// CacheInvalidator drops cached calendar results.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// NotifyCancellationInput carries the trigger payload for a cancelled class.
type NotifyCancellationInput struct {
	ScheduleID string `json:"schedule_id"`
	ClassName  string `json:"class_name"`
	DayOfWeek  string `json:"day_of_week"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Reason     string `json:"reason"`
	Date       string `json:"date"` // optional YYYY-MM-DD occurrence
}

// NotifyCancellationDeps holds dependencies for NotifyCancellation.
type NotifyCancellationDeps struct {
	BookingStore      BookingStoreForOrchestrator
	NotificationStore NotificationStoreForOrchestrator
	EmailSender       emailAdapter.Sender
	Outbox            OutboxStoreForOrchestrator // optional
	Cache             CacheInvalidator           // optional
	From              Sender
	Perf              StepRecorder // optional
	GenerateID        func() string
	Now               func() time.Time
}

// CancellationResult counts per-recipient outcomes of a fan-out.
type CancellationResult struct {
	Recipients          int           `json:"recipients"`
	NotificationsSent   int           `json:"notifications_sent"`
	NotificationsFailed int           `json:"notifications_failed"`
	EmailsSent          int           `json:"emails_sent"`
	EmailsFailed        int           `json:"emails_failed"`
	EmailsQueued        int           `json:"emails_queued"`
	Steps               []StepOutcome `json:"steps"`
}

// ExecuteNotifyCancellation tells every member with an active booking on a
// schedule that the class is cancelled.
// PRE: input.ScheduleID is non-empty
// POST: one notification insert and one email attempted per active booking;
// NotificationsSent+NotificationsFailed == EmailsSent+EmailsFailed == Recipients
// INVARIANT: a failed side effect for one recipient never skips the others
func ExecuteNotifyCancellation(ctx context.Context, input NotifyCancellationInput, deps NotifyCancellationDeps) (CancellationResult, error) {
	if input.ScheduleID == "" {
		return CancellationResult{}, ErrScheduleIDRequired
	}
	if input.Date != "" {
		if _, err := time.Parse(booking.DateLayout, input.Date); err != nil {
			return CancellationResult{}, booking.ErrInvalidDate
		}
	}
	scheduleAttr := attribute.String("schedule_id", input.ScheduleID)
	log := stepLog{rec: deps.Perf}

	var bookings []booking.Booking
	err := log.run(ctx, StepListRecipients, func(ctx context.Context) error {
		var err error
		bookings, err = deps.BookingStore.ListActiveBySchedule(ctx, input.ScheduleID, input.Date)
		return err
	}, scheduleAttr)
	if err != nil {
		return CancellationResult{Steps: log.Steps()}, fmt.Errorf("list affected bookings: %w", err)
	}

	class := ClassOccurrence{
		ClassName: input.ClassName,
		DayOfWeek: input.DayOfWeek,
		StartTime: input.StartTime,
		EndTime:   input.EndTime,
		Date:      input.Date,
	}
	result := CancellationResult{Recipients: len(bookings)}
	now := deps.Now()
	delivery := emailDelivery{sender: deps.EmailSender, queue: deps.Outbox, generateID: deps.GenerateID, now: now}

	for _, b := range bookings {
		greeting := "there"
		var to string
		if b.Member != nil {
			greeting = b.Member.Greeting()
			to = b.Member.Email
		}
		occurrence := class
		if occurrence.Date == "" {
			occurrence.Date = b.Date()
		}
		memberAttr := attribute.String("member_id", b.MemberID)

		msg, err := renderClassCancelled(greeting, occurrence, input.Reason)
		if err != nil {
			slog.Error("cancellation_event", "event", "render_failed", "booking_id", b.ID, "error", err)
			result.NotificationsFailed++
			result.EmailsFailed++
			continue
		}

		sent := log.bestEffort(ctx, StepInsertNotice, func(ctx context.Context) error {
			n := notification.Notification{
				ID:        deps.GenerateID(),
				UserID:    b.MemberID,
				Type:      notification.TypeClassCancelled,
				Title:     msg.Title,
				Message:   msg.Message,
				RelatedID: input.ScheduleID,
				CreatedAt: now,
			}
			if err := n.Validate(); err != nil {
				return err
			}
			return deps.NotificationStore.Save(ctx, n)
		}, scheduleAttr, memberAttr)
		if sent {
			result.NotificationsSent++
		} else {
			result.NotificationsFailed++
		}

		sent = log.bestEffort(ctx, StepSendEmail, func(ctx context.Context) error {
			queued, err := delivery.send(ctx, deps.From.request(to, msg))
			if queued {
				result.EmailsQueued++
			}
			return err
		}, scheduleAttr, memberAttr)
		if sent {
			result.EmailsSent++
		} else {
			result.EmailsFailed++
		}
	}

	if deps.Cache != nil {
		log.bestEffort(ctx, StepInvalidate, deps.Cache.Invalidate, scheduleAttr)
	}

	slog.Info("cancellation_event", "event", "fanout_complete",
		"schedule_id", input.ScheduleID,
		"recipients", result.Recipients,
		"notifications_sent", result.NotificationsSent,
		"emails_sent", result.EmailsSent,
		"emails_failed", result.EmailsFailed,
	)
	result.Steps = log.Steps()
	return result, nil
}
