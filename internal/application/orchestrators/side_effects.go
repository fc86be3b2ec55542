package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("gymdesk/orchestrators")

// Workflow step names reported in results and span names.
const (
	StepQueryHead      = "query_head"
	StepMarkNotified   = "mark_notified"
	StepInsertNotice   = "insert_notification"
	StepSendEmail      = "send_email"
	StepListRecipients = "list_recipients"
	StepInvalidate     = "invalidate_calendar"
)

// StepOutcome records how one workflow step went.
type StepOutcome struct {
	Step  string `json:"step"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// StepRecorder receives the timing of each workflow step.
type StepRecorder interface {
	RecordStep(step string, d time.Duration, ok bool)
}

// stepLog accumulates ordered step outcomes for a single invocation.
type stepLog struct {
	rec   StepRecorder // optional
	steps []StepOutcome
}

// run executes fn inside a span and records its outcome.
// POST: one StepOutcome appended; fn's error returned unchanged
func (l *stepLog) run(ctx context.Context, step string, fn func(ctx context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := tracer.Start(ctx, "workflow."+step, trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	if l.rec != nil {
		l.rec.RecordStep(step, time.Since(start), err == nil)
	}
	out := StepOutcome{Step: step, OK: err == nil}
	if err != nil {
		out.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	l.steps = append(l.steps, out)
	return err
}

// bestEffort runs a step whose failure is logged and swallowed.
// POST: returns true when the step succeeded
func (l *stepLog) bestEffort(ctx context.Context, step string, fn func(ctx context.Context) error, attrs ...attribute.KeyValue) bool {
	if err := l.run(ctx, step, fn, attrs...); err != nil {
		slog.Warn("workflow_event", "event", "side_effect_failed", "step", step, "error", err)
		return false
	}
	return true
}

// Steps returns a copy of the recorded outcomes, never nil.
func (l *stepLog) Steps() []StepOutcome {
	out := make([]StepOutcome, len(l.steps))
	copy(out, l.steps)
	return out
}
