package waitlist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gymdesk/internal/adapters/storage"
	"gymdesk/internal/domain/member"
	domain "gymdesk/internal/domain/waitlist"
)

const selectJoined = `SELECT
	w.id, w.member_id, w.schedule_id, w.position, w.status,
	w.notified_at, w.expires_at, w.created_at, w.updated_at,
	m.id AS m_id, m.first_name AS m_first_name, m.last_name AS m_last_name,
	m.email AS m_email, m.phone AS m_phone
FROM waitlist w
LEFT JOIN member m ON m.id = w.member_id`

type entryRow struct {
	ID         string         `db:"id"`
	MemberID   string         `db:"member_id"`
	ScheduleID string         `db:"schedule_id"`
	Position   int            `db:"position"`
	Status     string         `db:"status"`
	NotifiedAt sql.NullString `db:"notified_at"`
	ExpiresAt  sql.NullString `db:"expires_at"`
	CreatedAt  sql.NullString `db:"created_at"`
	UpdatedAt  sql.NullString `db:"updated_at"`

	MemberRowID     sql.NullString `db:"m_id"`
	MemberFirstName sql.NullString `db:"m_first_name"`
	MemberLastName  sql.NullString `db:"m_last_name"`
	MemberEmail     sql.NullString `db:"m_email"`
	MemberPhone     sql.NullString `db:"m_phone"`
}

func (r entryRow) toDomain() domain.Entry {
	e := domain.Entry{
		ID:         r.ID,
		MemberID:   r.MemberID,
		ScheduleID: r.ScheduleID,
		Position:   r.Position,
		Status:     r.Status,
		NotifiedAt: storage.ParseTime(r.NotifiedAt),
		ExpiresAt:  storage.ParseTime(r.ExpiresAt),
		CreatedAt:  storage.ParseTime(r.CreatedAt),
		UpdatedAt:  storage.ParseTime(r.UpdatedAt),
	}
	if r.MemberRowID.Valid {
		e.Member = &member.Contact{
			FirstName: r.MemberFirstName.String,
			LastName:  r.MemberLastName.String,
			Email:     r.MemberEmail.String,
			Phone:     r.MemberPhone.String,
		}
	}
	return e
}

// SQLStore implements Store on any SQLDB.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new waitlist SQLStore.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// GetHead returns the waiting entry at the head of a schedule's queue.
// PRE: scheduleID is non-empty
// POST: Returns the entry or domain.ErrNoWaitingEntry
func (s *SQLStore) GetHead(ctx context.Context, scheduleID string) (domain.Entry, error) {
	var row entryRow
	err := s.db.GetContext(ctx, &row,
		s.db.Rebind(selectJoined+" WHERE w.schedule_id = ? AND w.status = ? AND w.position = ?"),
		scheduleID, domain.StatusWaiting, domain.HeadPosition)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Entry{}, domain.ErrNoWaitingEntry
	}
	if err != nil {
		return domain.Entry{}, fmt.Errorf("get waitlist head: %w", err)
	}
	return row.toDomain(), nil
}

// MarkNotified applies the conditional promotion write.
// PRE: params.EntryID is non-empty
// POST: Returns true iff the entry was waiting at position 1 and is now notified
// INVARIANT: At most one concurrent caller observes true for the same entry
func (s *SQLStore) MarkNotified(ctx context.Context, params MarkNotifiedParams) (bool, error) {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE waitlist
		 SET status = ?, notified_at = ?, expires_at = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND position = ?`),
		domain.StatusNotified,
		storage.FormatTime(params.NotifiedAt),
		storage.FormatTime(params.ExpiresAt),
		storage.FormatTime(params.NotifiedAt),
		params.EntryID,
		domain.StatusWaiting,
		domain.HeadPosition,
	)
	if err != nil {
		return false, fmt.Errorf("mark waitlist entry notified: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark waitlist entry notified: %w", err)
	}
	return n == 1, nil
}

// GetByID retrieves a waitlist Entry by its ID.
// PRE: id is non-empty
// POST: Returns the entity or ErrNotFound
func (s *SQLStore) GetByID(ctx context.Context, id string) (domain.Entry, error) {
	var row entryRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(selectJoined+" WHERE w.id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Entry{}, ErrNotFound
	}
	if err != nil {
		return domain.Entry{}, fmt.Errorf("get waitlist entry: %w", err)
	}
	return row.toDomain(), nil
}

// ListBySchedule returns every entry for a schedule in queue order.
// PRE: scheduleID is non-empty
// POST: Returns entries ordered by position
func (s *SQLStore) ListBySchedule(ctx context.Context, scheduleID string) ([]domain.Entry, error) {
	var rows []entryRow
	if err := s.db.SelectContext(ctx, &rows,
		s.db.Rebind(selectJoined+" WHERE w.schedule_id = ? ORDER BY w.position, w.created_at"), scheduleID); err != nil {
		return nil, fmt.Errorf("list waitlist: %w", err)
	}
	results := make([]domain.Entry, 0, len(rows))
	for _, r := range rows {
		results = append(results, r.toDomain())
	}
	return results, nil
}

// Save persists a waitlist Entry.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLStore) Save(ctx context.Context, entity domain.Entry) error {
	updatedAt := entity.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = entity.CreatedAt
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO waitlist (id, member_id, schedule_id, position, status, notified_at, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   member_id=excluded.member_id, schedule_id=excluded.schedule_id,
		   position=excluded.position, status=excluded.status,
		   notified_at=excluded.notified_at, expires_at=excluded.expires_at,
		   updated_at=excluded.updated_at`),
		entity.ID, entity.MemberID, entity.ScheduleID, entity.Position, entity.Status,
		storage.NullTime(entity.NotifiedAt), storage.NullTime(entity.ExpiresAt),
		storage.FormatTime(entity.CreatedAt), storage.FormatTime(updatedAt),
	)
	return err
}
