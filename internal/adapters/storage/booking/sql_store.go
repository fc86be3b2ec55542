package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"gymdesk/internal/adapters/storage"
	domain "gymdesk/internal/domain/booking"
	"gymdesk/internal/domain/member"
)

const selectJoined = `SELECT
	b.id, b.member_id, b.schedule_id, b.booking_date, b.status, b.booked_at, b.created_at,
	m.id AS m_id, m.first_name AS m_first_name, m.last_name AS m_last_name,
	m.email AS m_email, m.phone AS m_phone,
	s.id AS s_id, s.day_of_week AS s_day_of_week, s.start_time AS s_start_time,
	s.end_time AS s_end_time, s.capacity AS s_capacity,
	ct.name AS ct_name, ct.description AS ct_description,
	i.first_name AS i_first_name, i.last_name AS i_last_name, i.email AS i_email
FROM booking b
LEFT JOIN member m ON m.id = b.member_id
LEFT JOIN schedule s ON s.id = b.schedule_id
LEFT JOIN class_type ct ON ct.id = s.class_type_id
LEFT JOIN instructor i ON i.id = s.instructor_id`

// bookingRow is the flat left-join shape; nullable columns belong to
// related rows that may be absent.
type bookingRow struct {
	ID          string         `db:"id"`
	MemberID    string         `db:"member_id"`
	ScheduleID  string         `db:"schedule_id"`
	BookingDate string         `db:"booking_date"`
	Status      string         `db:"status"`
	BookedAt    sql.NullString `db:"booked_at"`
	CreatedAt   sql.NullString `db:"created_at"`

	MemberRowID     sql.NullString `db:"m_id"`
	MemberFirstName sql.NullString `db:"m_first_name"`
	MemberLastName  sql.NullString `db:"m_last_name"`
	MemberEmail     sql.NullString `db:"m_email"`
	MemberPhone     sql.NullString `db:"m_phone"`

	ScheduleRowID    sql.NullString `db:"s_id"`
	DayOfWeek        sql.NullString `db:"s_day_of_week"`
	StartTime        sql.NullString `db:"s_start_time"`
	EndTime          sql.NullString `db:"s_end_time"`
	Capacity         sql.NullInt64  `db:"s_capacity"`
	ClassName        sql.NullString `db:"ct_name"`
	ClassDescription sql.NullString `db:"ct_description"`
	InstructorFirst  sql.NullString `db:"i_first_name"`
	InstructorLast   sql.NullString `db:"i_last_name"`
	InstructorEmail  sql.NullString `db:"i_email"`
}

// toDomain normalizes the joined columns into optional related objects.
func (r bookingRow) toDomain() domain.Booking {
	b := domain.Booking{
		ID:          r.ID,
		MemberID:    r.MemberID,
		ScheduleID:  r.ScheduleID,
		BookingDate: domain.DatePortion(r.BookingDate),
		Status:      r.Status,
		BookedAt:    storage.ParseTime(r.BookedAt),
		CreatedAt:   storage.ParseTime(r.CreatedAt),
	}
	if r.MemberRowID.Valid {
		b.Member = &member.Contact{
			FirstName: r.MemberFirstName.String,
			LastName:  r.MemberLastName.String,
			Email:     r.MemberEmail.String,
			Phone:     r.MemberPhone.String,
		}
	}
	if r.ScheduleRowID.Valid {
		b.Schedule = &domain.ScheduleDetails{
			DayOfWeek:        r.DayOfWeek.String,
			StartTime:        r.StartTime.String,
			EndTime:          r.EndTime.String,
			Capacity:         int(r.Capacity.Int64),
			ClassName:        r.ClassName.String,
			ClassDescription: r.ClassDescription.String,
			InstructorName:   strings.TrimSpace(r.InstructorFirst.String + " " + r.InstructorLast.String),
			InstructorEmail:  r.InstructorEmail.String,
		}
	}
	return b
}

// SQLStore implements Store on any SQLDB.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new booking SQLStore.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// GetByID retrieves a Booking with its related rows.
// PRE: id is non-empty
// POST: Returns the entity or ErrNotFound
func (s *SQLStore) GetByID(ctx context.Context, id string) (domain.Booking, error) {
	var row bookingRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(selectJoined+" WHERE b.id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Booking{}, ErrNotFound
	}
	if err != nil {
		return domain.Booking{}, fmt.Errorf("get booking: %w", err)
	}
	return row.toDomain(), nil
}

// Save persists a Booking to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLStore) Save(ctx context.Context, entity domain.Booking) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO booking (id, member_id, schedule_id, booking_date, status, booked_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   member_id=excluded.member_id, schedule_id=excluded.schedule_id,
		   booking_date=excluded.booking_date, status=excluded.status,
		   booked_at=excluded.booked_at`),
		entity.ID, entity.MemberID, entity.ScheduleID, entity.Date(), entity.Status,
		storage.FormatTime(entity.BookedAt), storage.FormatTime(entity.CreatedAt),
	)
	return err
}

// ListByDateRange is the calendar row fetch.
// PRE: filter.From <= filter.To, both YYYY-MM-DD
// POST: Returns bookings ordered by date then creation, related rows normalized
func (s *SQLStore) ListByDateRange(ctx context.Context, filter Filter) ([]domain.Booking, error) {
	where := []string{"b.booking_date >= ?", "b.booking_date <= ?"}
	args := []any{filter.From, filter.To}
	if len(filter.ClassTypeIDs) > 0 {
		where = append(where, "s.class_type_id IN (?)")
		args = append(args, filter.ClassTypeIDs)
	}
	if len(filter.InstructorIDs) > 0 {
		where = append(where, "s.instructor_id IN (?)")
		args = append(args, filter.InstructorIDs)
	}
	if len(filter.Statuses) > 0 {
		where = append(where, "b.status IN (?)")
		args = append(args, filter.Statuses)
	}

	query, args, err := sqlx.In(
		selectJoined+" WHERE "+strings.Join(where, " AND ")+" ORDER BY b.booking_date, b.created_at, b.id",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("expand booking filter: %w", err)
	}
	return s.queryBookings(ctx, query, args...)
}

// ListActiveBySchedule returns confirmed and pending bookings for a schedule.
// PRE: scheduleID is non-empty
// POST: Returns bookings ordered by creation time
func (s *SQLStore) ListActiveBySchedule(ctx context.Context, scheduleID, date string) ([]domain.Booking, error) {
	query := selectJoined + " WHERE b.schedule_id = ? AND b.status IN (?, ?)"
	args := []any{scheduleID, domain.StatusConfirmed, domain.StatusPending}
	if date != "" {
		query += " AND b.booking_date = ?"
		args = append(args, domain.DatePortion(date))
	}
	return s.queryBookings(ctx, query+" ORDER BY b.created_at, b.id", args...)
}

func (s *SQLStore) queryBookings(ctx context.Context, query string, args ...any) ([]domain.Booking, error) {
	var rows []bookingRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	results := make([]domain.Booking, 0, len(rows))
	for _, r := range rows {
		results = append(results, r.toDomain())
	}
	return results, nil
}
