// Package events consumes workflow triggers from Kafka.
//
// Payloads are the same JSON documents the /functions/v1 endpoints accept,
// so a database trigger can publish to either transport.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"gymdesk/internal/application/orchestrators"
	"gymdesk/internal/domain/booking"
)

// Default topic names.
const (
	TopicCapacityFreed = "schedule.capacity_freed"
	TopicCancelled     = "schedule.cancelled"
)

// ErrUnknownTopic is returned for records from a topic with no handler.
var ErrUnknownTopic = errors.New("no handler for topic")

// permanentError marks a record that can never succeed, e.g. a malformed
// payload. Such records are committed without retry.
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// IsPermanent reports whether retrying the record is pointless.
func IsPermanent(err error) bool {
	var pe permanentError
	return errors.As(err, &pe)
}

// Workflows runs the trigger workflows. *web.Server satisfies it.
type Workflows interface {
	PromoteWaitlist(ctx context.Context, input orchestrators.PromoteWaitlistInput) (orchestrators.PromoteWaitlistResult, error)
	NotifyCancellation(ctx context.Context, input orchestrators.NotifyCancellationInput) (orchestrators.CancellationResult, error)
}

// Topics maps trigger kinds to topic names.
type Topics struct {
	CapacityFreed string
	Cancelled     string
}

// withDefaults fills empty topic names.
func (t Topics) withDefaults() Topics {
	if t.CapacityFreed == "" {
		t.CapacityFreed = TopicCapacityFreed
	}
	if t.Cancelled == "" {
		t.Cancelled = TopicCancelled
	}
	return t
}

// Names returns the topics to subscribe to.
func (t Topics) Names() []string {
	return []string{t.CapacityFreed, t.Cancelled}
}

// Dispatcher decodes a record and runs the matching workflow.
type Dispatcher struct {
	topics    Topics
	workflows Workflows
}

// NewDispatcher returns a dispatcher for the given topics.
func NewDispatcher(topics Topics, workflows Workflows) *Dispatcher {
	return &Dispatcher{topics: topics.withDefaults(), workflows: workflows}
}

// Topics returns the resolved topic names.
func (d *Dispatcher) Topics() Topics {
	return d.topics
}

// Dispatch handles one record value.
// PRE: value is a JSON trigger payload
// POST: decode and validation failures are permanent; workflow errors are not
func (d *Dispatcher) Dispatch(ctx context.Context, topic string, value []byte) error {
	switch topic {
	case d.topics.CapacityFreed:
		var input orchestrators.PromoteWaitlistInput
		if err := decode(value, &input); err != nil {
			return err
		}
		if input.ScheduleID == "" {
			return permanentError{orchestrators.ErrScheduleIDRequired}
		}
		res, err := d.workflows.PromoteWaitlist(ctx, input)
		if err != nil {
			return fmt.Errorf("promote waitlist for %s: %w", input.ScheduleID, err)
		}
		slog.Info("trigger_event", "event", "waitlist_trigger_handled",
			"topic", topic,
			"schedule_id", input.ScheduleID,
			"promoted", res.Promoted,
		)
		return nil

	case d.topics.Cancelled:
		var input orchestrators.NotifyCancellationInput
		if err := decode(value, &input); err != nil {
			return err
		}
		if input.ScheduleID == "" {
			return permanentError{orchestrators.ErrScheduleIDRequired}
		}
		res, err := d.workflows.NotifyCancellation(ctx, input)
		if errors.Is(err, booking.ErrInvalidDate) {
			return permanentError{err}
		}
		if err != nil {
			return fmt.Errorf("notify cancellation for %s: %w", input.ScheduleID, err)
		}
		slog.Info("trigger_event", "event", "cancellation_trigger_handled",
			"topic", topic,
			"schedule_id", input.ScheduleID,
			"recipients", res.Recipients,
		)
		return nil
	}
	return permanentError{fmt.Errorf("%w: %s", ErrUnknownTopic, topic)}
}

func decode(value []byte, dst any) error {
	if err := json.Unmarshal(value, dst); err != nil {
		return permanentError{fmt.Errorf("decode trigger: %w", err)}
	}
	return nil
}
