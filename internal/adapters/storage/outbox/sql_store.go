package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gymdesk/internal/adapters/storage"
	domain "gymdesk/internal/domain/outbox"
)

// ErrNotFound is returned by GetByID for unknown ids.
var ErrNotFound = errors.New("outbox entry not found")

const selectColumns = `SELECT id, kind, payload, status, attempts, max_attempts,
	last_attempted_at, next_attempt_at, created_at, external_id, error_message FROM outbox`

type entryRow struct {
	ID              string         `db:"id"`
	Kind            string         `db:"kind"`
	Payload         string         `db:"payload"`
	Status          string         `db:"status"`
	Attempts        int            `db:"attempts"`
	MaxAttempts     int            `db:"max_attempts"`
	LastAttemptedAt sql.NullString `db:"last_attempted_at"`
	NextAttemptAt   sql.NullString `db:"next_attempt_at"`
	CreatedAt       sql.NullString `db:"created_at"`
	ExternalID      sql.NullString `db:"external_id"`
	ErrorMessage    sql.NullString `db:"error_message"`
}

func (r entryRow) toDomain() domain.Entry {
	return domain.Entry{
		ID:              r.ID,
		Kind:            r.Kind,
		Payload:         r.Payload,
		Status:          r.Status,
		Attempts:        r.Attempts,
		MaxAttempts:     r.MaxAttempts,
		LastAttemptedAt: storage.ParseTime(r.LastAttemptedAt),
		NextAttemptAt:   storage.ParseTime(r.NextAttemptAt),
		CreatedAt:       storage.ParseTime(r.CreatedAt),
		ExternalID:      r.ExternalID.String,
		ErrorMessage:    r.ErrorMessage.String,
	}
}

// SQLStore implements Store on any SQLDB.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new outbox store.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// GetByID retrieves an outbox entry by its ID.
func (s *SQLStore) GetByID(ctx context.Context, id string) (domain.Entry, error) {
	var row entryRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(selectColumns+` WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Entry{}, ErrNotFound
	}
	if err != nil {
		return domain.Entry{}, fmt.Errorf("get outbox entry: %w", err)
	}
	return row.toDomain(), nil
}

// Save persists an outbox entry (insert or update).
// PRE: entity has been validated
// POST: Entity is persisted
func (s *SQLStore) Save(ctx context.Context, e domain.Entry) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO outbox (id, kind, payload, status, attempts, max_attempts, last_attempted_at, next_attempt_at, created_at, external_id, error_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   status=excluded.status, attempts=excluded.attempts, max_attempts=excluded.max_attempts,
		   last_attempted_at=excluded.last_attempted_at, next_attempt_at=excluded.next_attempt_at,
		   external_id=excluded.external_id, error_message=excluded.error_message`),
		e.ID, e.Kind, e.Payload, e.Status, e.Attempts, e.MaxAttempts,
		storage.NullTime(e.LastAttemptedAt), storage.FormatSortableTime(nextAttempt(e)), storage.FormatTime(e.CreatedAt),
		storage.NullString(e.ExternalID), storage.NullString(e.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("save outbox entry: %w", err)
	}
	return nil
}

// nextAttempt falls back to CreatedAt for entries saved before Validate.
func nextAttempt(e domain.Entry) time.Time {
	if e.NextAttemptAt.IsZero() {
		return e.CreatedAt
	}
	return e.NextAttemptAt
}

// ListDue returns pending and retrying entries whose next attempt is at or
// before now, earliest first. Entries still backing off are not returned.
func (s *SQLStore) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Entry, error) {
	var rows []entryRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(
		selectColumns+` WHERE status IN (?, ?) AND next_attempt_at <= ?
		 ORDER BY next_attempt_at, id LIMIT ?`),
		domain.StatusPending, domain.StatusRetrying, storage.FormatSortableTime(now), limit); err != nil {
		return nil, fmt.Errorf("list due outbox entries: %w", err)
	}
	entries := make([]domain.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.toDomain())
	}
	return entries, nil
}

// CountByStatus reports entry counts keyed by status.
func (s *SQLStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Status string `db:"status"`
		N      int    `db:"n"`
	}
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT status, COUNT(*) AS n FROM outbox GROUP BY status`); err != nil {
		return nil, fmt.Errorf("count outbox entries: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.N
	}
	return counts, nil
}
