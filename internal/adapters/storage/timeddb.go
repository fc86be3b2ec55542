package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gymdesk/internal/adapters/http/perf"
)

// DefaultSlowQueryMs is the default threshold for slow query warnings.
const DefaultSlowQueryMs = 50

var tracer = otel.Tracer("gymdesk/storage")

// TimedDB wraps a *sqlx.DB to log slow queries, trace each call and
// optionally record to a collector.
// Satisfies the SQLDB interface so it can be passed to any store constructor.
type TimedDB struct {
	db        *sqlx.DB
	collector *perf.Collector
	threshold float64
}

// Compile-time check that *TimedDB satisfies SQLDB.
var _ SQLDB = (*TimedDB)(nil)

// NewTimedDB wraps a *sqlx.DB with timing instrumentation.
// A slowQueryMs of zero or less selects DefaultSlowQueryMs.
// PRE: db is a valid database connection
// POST: Returns a TimedDB that logs slow queries and records to collector
func NewTimedDB(db *sqlx.DB, collector *perf.Collector, slowQueryMs int) *TimedDB {
	if slowQueryMs <= 0 {
		slowQueryMs = DefaultSlowQueryMs
	}
	return &TimedDB{
		db:        db,
		collector: collector,
		threshold: float64(slowQueryMs),
	}
}

// RawDB returns the underlying *sqlx.DB (needed for pool config and shutdown).
func (t *TimedDB) RawDB() *sqlx.DB {
	return t.db
}

func (t *TimedDB) startSpan(ctx context.Context, op, query string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "db."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", t.db.DriverName()),
			attribute.String("db.statement", query),
		),
	)
}

// finish ends the span and logs and records the query timing.
func (t *TimedDB) finish(span trace.Span, op string, start time.Time, err error) {
	if err != nil && err != sql.ErrNoRows {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	durationMs := float64(time.Since(start).Microseconds()) / 1000.0
	if durationMs >= t.threshold {
		slog.Warn("slow_query",
			"op", op,
			"duration_ms", durationMs,
		)
	} else {
		slog.Debug("query",
			"op", op,
			"duration_ms", durationMs,
		)
	}

	if t.collector != nil {
		t.collector.Record(perf.Entry{
			Kind:       perf.KindQuery,
			Path:       op,
			DurationMs: durationMs,
			Timestamp:  start,
		})
	}
}

// ExecContext wraps sqlx.DB.ExecContext with timing.
// PRE: ctx is valid, query is non-empty
// POST: query executed, timing recorded to collector
func (t *TimedDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	ctx, span := t.startSpan(ctx, "ExecContext", query)
	result, err := t.db.ExecContext(ctx, query, args...)
	t.finish(span, "ExecContext", start, err)
	return result, err
}

// QueryxContext wraps sqlx.DB.QueryxContext with timing.
// PRE: ctx is valid, query is non-empty
// POST: query executed, timing recorded to collector
func (t *TimedDB) QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error) {
	start := time.Now()
	ctx, span := t.startSpan(ctx, "QueryxContext", query)
	rows, err := t.db.QueryxContext(ctx, query, args...)
	t.finish(span, "QueryxContext", start, err)
	return rows, err
}

// GetContext wraps sqlx.DB.GetContext with timing.
// PRE: ctx is valid, dest is a pointer
// POST: dest populated from the single result row
func (t *TimedDB) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	start := time.Now()
	ctx, span := t.startSpan(ctx, "GetContext", query)
	err := t.db.GetContext(ctx, dest, query, args...)
	t.finish(span, "GetContext", start, err)
	return err
}

// SelectContext wraps sqlx.DB.SelectContext with timing.
// PRE: ctx is valid, dest is a pointer to a slice
// POST: dest populated from all result rows
func (t *TimedDB) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	start := time.Now()
	ctx, span := t.startSpan(ctx, "SelectContext", query)
	err := t.db.SelectContext(ctx, dest, query, args...)
	t.finish(span, "SelectContext", start, err)
	return err
}

// Rebind converts ? placeholders to the driver's bind style.
func (t *TimedDB) Rebind(query string) string {
	return t.db.Rebind(query)
}

// DriverName returns the driver the pool was opened with.
func (t *TimedDB) DriverName() string {
	return t.db.DriverName()
}

// Close closes the underlying database connection.
func (t *TimedDB) Close() error {
	return t.db.Close()
}

// PingContext verifies the database connection.
// POST: returns nil if connection is alive
func (t *TimedDB) PingContext(ctx context.Context) error {
	return t.db.PingContext(ctx)
}
