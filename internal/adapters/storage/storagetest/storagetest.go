// Package storagetest opens migrated in-memory databases for store tests.
package storagetest

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"

	"gymdesk/internal/adapters/storage"
)

// OpenDB returns a migrated in-memory SQLite database closed on test cleanup.
func OpenDB(t testing.TB) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	db, err := storage.Open(ctx, storage.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.MigrateDB(ctx, db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}
