package classtype

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gymdesk/internal/adapters/storage"
	domain "gymdesk/internal/domain/classtype"
)

type classTypeRow struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
}

func (r classTypeRow) toDomain() domain.ClassType {
	return domain.ClassType{ID: r.ID, Name: r.Name, Description: r.Description.String}
}

// SQLStore implements Store on any SQLDB.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new class type SQLStore.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// GetByID retrieves a ClassType by its ID.
// PRE: id is non-empty
// POST: Returns the entity or ErrNotFound
func (s *SQLStore) GetByID(ctx context.Context, id string) (domain.ClassType, error) {
	var row classTypeRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind("SELECT id, name, description FROM class_type WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ClassType{}, ErrNotFound
	}
	if err != nil {
		return domain.ClassType{}, fmt.Errorf("get class type: %w", err)
	}
	return row.toDomain(), nil
}

// Save persists a ClassType to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLStore) Save(ctx context.Context, entity domain.ClassType) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO class_type (id, name, description) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name=excluded.name, description=excluded.description`),
		entity.ID, entity.Name, storage.NullString(entity.Description),
	)
	return err
}

// List retrieves all ClassTypes ordered by name.
func (s *SQLStore) List(ctx context.Context) ([]domain.ClassType, error) {
	var rows []classTypeRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT id, name, description FROM class_type ORDER BY name"); err != nil {
		return nil, fmt.Errorf("list class types: %w", err)
	}
	results := make([]domain.ClassType, 0, len(rows))
	for _, r := range rows {
		results = append(results, r.toDomain())
	}
	return results, nil
}
