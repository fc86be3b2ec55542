package member

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"gymdesk/internal/adapters/storage"
	domain "gymdesk/internal/domain/member"
)

const selectColumns = "SELECT id, first_name, last_name, email, phone, status FROM member"

type memberRow struct {
	ID        string         `db:"id"`
	FirstName string         `db:"first_name"`
	LastName  string         `db:"last_name"`
	Email     string         `db:"email"`
	Phone     sql.NullString `db:"phone"`
	Status    string         `db:"status"`
}

func (r memberRow) toDomain() domain.Member {
	return domain.Member{
		ID:        r.ID,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Phone:     r.Phone.String,
		Status:    r.Status,
	}
}

// SQLStore implements Store on any SQLDB.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new member SQLStore.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// GetByID retrieves a Member by its ID.
// PRE: id is non-empty
// POST: Returns the entity or ErrNotFound
func (s *SQLStore) GetByID(ctx context.Context, id string) (domain.Member, error) {
	return s.getOne(ctx, selectColumns+" WHERE id = ?", id)
}

// GetByEmail retrieves a Member by email.
// PRE: email is non-empty
// POST: Returns the entity or ErrNotFound
func (s *SQLStore) GetByEmail(ctx context.Context, email string) (domain.Member, error) {
	return s.getOne(ctx, selectColumns+" WHERE email = ?", strings.ToLower(email))
}

func (s *SQLStore) getOne(ctx context.Context, query string, args ...any) (domain.Member, error) {
	var row memberRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Member{}, ErrNotFound
	}
	if err != nil {
		return domain.Member{}, fmt.Errorf("get member: %w", err)
	}
	return row.toDomain(), nil
}

// Save persists a Member to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLStore) Save(ctx context.Context, entity domain.Member) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO member (id, first_name, last_name, email, phone, status)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   first_name=excluded.first_name, last_name=excluded.last_name,
		   email=excluded.email, phone=excluded.phone, status=excluded.status`),
		entity.ID, entity.FirstName, entity.LastName, strings.ToLower(entity.Email),
		storage.NullString(entity.Phone), entity.Status,
	)
	return err
}

// List retrieves Members ordered by name.
// PRE: filter has valid parameters
// POST: Returns matching entities
func (s *SQLStore) List(ctx context.Context, filter ListFilter) ([]domain.Member, error) {
	query := selectColumns
	var args []any
	if filter.Status != "" {
		query += " WHERE status = ?"
		args = append(args, filter.Status)
	}
	query += " ORDER BY first_name, last_name, id"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	var rows []memberRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	results := make([]domain.Member, 0, len(rows))
	for _, r := range rows {
		results = append(results, r.toDomain())
	}
	return results, nil
}
