package instructor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gymdesk/internal/adapters/storage"
	domain "gymdesk/internal/domain/instructor"
)

type instructorRow struct {
	ID        string         `db:"id"`
	FirstName string         `db:"first_name"`
	LastName  string         `db:"last_name"`
	Email     sql.NullString `db:"email"`
}

func (r instructorRow) toDomain() domain.Instructor {
	return domain.Instructor{ID: r.ID, FirstName: r.FirstName, LastName: r.LastName, Email: r.Email.String}
}

// SQLStore implements Store on any SQLDB.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new instructor SQLStore.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// GetByID retrieves an Instructor by its ID.
// PRE: id is non-empty
// POST: Returns the entity or ErrNotFound
func (s *SQLStore) GetByID(ctx context.Context, id string) (domain.Instructor, error) {
	var row instructorRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind("SELECT id, first_name, last_name, email FROM instructor WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Instructor{}, ErrNotFound
	}
	if err != nil {
		return domain.Instructor{}, fmt.Errorf("get instructor: %w", err)
	}
	return row.toDomain(), nil
}

// Save persists an Instructor to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLStore) Save(ctx context.Context, entity domain.Instructor) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO instructor (id, first_name, last_name, email) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET first_name=excluded.first_name, last_name=excluded.last_name, email=excluded.email`),
		entity.ID, entity.FirstName, entity.LastName, storage.NullString(entity.Email),
	)
	return err
}

// List retrieves all Instructors ordered by name.
func (s *SQLStore) List(ctx context.Context) ([]domain.Instructor, error) {
	var rows []instructorRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT id, first_name, last_name, email FROM instructor ORDER BY first_name, last_name"); err != nil {
		return nil, fmt.Errorf("list instructors: %w", err)
	}
	results := make([]domain.Instructor, 0, len(rows))
	for _, r := range rows {
		results = append(results, r.toDomain())
	}
	return results, nil
}
