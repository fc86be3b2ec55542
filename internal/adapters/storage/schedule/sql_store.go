package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gymdesk/internal/adapters/storage"
	domain "gymdesk/internal/domain/schedule"
)

const selectColumns = "SELECT id, class_type_id, instructor_id, day_of_week, start_time, end_time, capacity FROM schedule"

type scheduleRow struct {
	ID           string         `db:"id"`
	ClassTypeID  string         `db:"class_type_id"`
	InstructorID sql.NullString `db:"instructor_id"`
	DayOfWeek    string         `db:"day_of_week"`
	StartTime    string         `db:"start_time"`
	EndTime      sql.NullString `db:"end_time"`
	Capacity     int            `db:"capacity"`
}

func (r scheduleRow) toDomain() domain.Schedule {
	return domain.Schedule{
		ID:           r.ID,
		ClassTypeID:  r.ClassTypeID,
		InstructorID: r.InstructorID.String,
		Day:          r.DayOfWeek,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime.String,
		Capacity:     r.Capacity,
	}
}

// SQLStore implements Store on any SQLDB.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new schedule SQLStore.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// GetByID retrieves a Schedule by its ID.
// PRE: id is non-empty
// POST: Returns the entity or ErrNotFound
func (s *SQLStore) GetByID(ctx context.Context, id string) (domain.Schedule, error) {
	var row scheduleRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(selectColumns+" WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Schedule{}, ErrNotFound
	}
	if err != nil {
		return domain.Schedule{}, fmt.Errorf("get schedule: %w", err)
	}
	return row.toDomain(), nil
}

// Save persists a Schedule to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLStore) Save(ctx context.Context, entity domain.Schedule) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO schedule (id, class_type_id, instructor_id, day_of_week, start_time, end_time, capacity)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   class_type_id=excluded.class_type_id, instructor_id=excluded.instructor_id,
		   day_of_week=excluded.day_of_week, start_time=excluded.start_time,
		   end_time=excluded.end_time, capacity=excluded.capacity`),
		entity.ID, entity.ClassTypeID, storage.NullString(entity.InstructorID), entity.Day,
		entity.StartTime, storage.NullString(entity.EndTime), entity.Capacity,
	)
	return err
}

// List retrieves all Schedules.
func (s *SQLStore) List(ctx context.Context) ([]domain.Schedule, error) {
	return s.querySchedules(ctx, selectColumns+" ORDER BY day_of_week, start_time")
}

// ListByDay retrieves Schedules for a specific day.
// PRE: day is a valid weekday
// POST: Returns schedules for the given day ordered by start time
func (s *SQLStore) ListByDay(ctx context.Context, day string) ([]domain.Schedule, error) {
	return s.querySchedules(ctx, selectColumns+" WHERE day_of_week = ? ORDER BY start_time", day)
}

func (s *SQLStore) querySchedules(ctx context.Context, query string, args ...any) ([]domain.Schedule, error) {
	var rows []scheduleRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	results := make([]domain.Schedule, 0, len(rows))
	for _, r := range rows {
		results = append(results, r.toDomain())
	}
	return results, nil
}
