package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Supported driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// SQLDB is the database interface used by all stores.
// Both *sqlx.DB and *TimedDB satisfy this interface.
type SQLDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	Rebind(query string) string
	DriverName() string
}

// Compile-time check that *sqlx.DB satisfies SQLDB.
var _ SQLDB = (*sqlx.DB)(nil)

// Open connects to driver/dsn and applies per-driver connection settings.
// PRE: driver is DriverSQLite or DriverPostgres
// POST: Returns a pinged connection pool
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// modernc sqlite serialises writers; a single connection also keeps
		// an in-memory database alive for the life of the pool.
		db.SetMaxOpenConns(1)
		if !strings.Contains(dsn, ":memory:") {
			if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
			}
		}
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	} else {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// migration is one schema version. Statements run one at a time so the same
// list works on drivers without multi-statement support.
type migration struct {
	version    int
	name       string
	statements []string
}

// migrations is the ordered schema history. Column types are limited to
// TEXT and INTEGER so the DDL is valid on SQLite and Postgres alike.
// Dates are stored as YYYY-MM-DD text, timestamps as RFC 3339 text.
var migrations = []migration{
	{
		version: 1,
		name:    "baseline",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS member (
				id TEXT PRIMARY KEY,
				first_name TEXT NOT NULL,
				last_name TEXT NOT NULL DEFAULT '',
				email TEXT NOT NULL UNIQUE,
				phone TEXT,
				status TEXT NOT NULL DEFAULT 'active'
			)`,
			`CREATE TABLE IF NOT EXISTS class_type (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				description TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS instructor (
				id TEXT PRIMARY KEY,
				first_name TEXT NOT NULL,
				last_name TEXT NOT NULL DEFAULT '',
				email TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS schedule (
				id TEXT PRIMARY KEY,
				class_type_id TEXT NOT NULL REFERENCES class_type(id),
				instructor_id TEXT REFERENCES instructor(id),
				day_of_week TEXT NOT NULL,
				start_time TEXT NOT NULL,
				end_time TEXT,
				capacity INTEGER NOT NULL DEFAULT 20
			)`,
			`CREATE TABLE IF NOT EXISTS booking (
				id TEXT PRIMARY KEY,
				member_id TEXT NOT NULL REFERENCES member(id),
				schedule_id TEXT NOT NULL REFERENCES schedule(id),
				booking_date TEXT NOT NULL,
				status TEXT NOT NULL,
				booked_at TEXT NOT NULL,
				created_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS waitlist (
				id TEXT PRIMARY KEY,
				member_id TEXT NOT NULL REFERENCES member(id),
				schedule_id TEXT NOT NULL REFERENCES schedule(id),
				position INTEGER NOT NULL,
				status TEXT NOT NULL DEFAULT 'waiting',
				notified_at TEXT,
				expires_at TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS notification (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				type TEXT NOT NULL,
				title TEXT NOT NULL,
				message TEXT NOT NULL,
				related_id TEXT,
				read_at TEXT,
				created_at TEXT NOT NULL
			)`,
		},
	},
	{
		version: 2,
		name:    "calendar and queue indexes",
		statements: []string{
			`CREATE INDEX IF NOT EXISTS idx_booking_date ON booking (booking_date)`,
			`CREATE INDEX IF NOT EXISTS idx_booking_schedule_status ON booking (schedule_id, status)`,
			`CREATE INDEX IF NOT EXISTS idx_waitlist_queue ON waitlist (schedule_id, status, position)`,
			`CREATE INDEX IF NOT EXISTS idx_notification_user ON notification (user_id, created_at)`,
		},
	},
	{
		version: 3,
		name:    "email outbox",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS outbox (
				id TEXT PRIMARY KEY,
				kind TEXT NOT NULL,
				payload TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'pending',
				attempts INTEGER NOT NULL DEFAULT 0,
				max_attempts INTEGER NOT NULL DEFAULT 5,
				last_attempted_at TEXT,
				created_at TEXT NOT NULL,
				external_id TEXT,
				error_message TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox (status, created_at)`,
		},
	},
	{
		version: 4,
		name:    "outbox next attempt",
		statements: []string{
			`ALTER TABLE outbox ADD COLUMN next_attempt_at TEXT`,
			`UPDATE outbox SET next_attempt_at = created_at WHERE next_attempt_at IS NULL`,
			`CREATE INDEX IF NOT EXISTS idx_outbox_due ON outbox (status, next_attempt_at)`,
		},
	},
}

// LatestSchemaVersion returns the version MigrateDB brings a database to.
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].version
}

func ensureVersionTable(ctx context.Context, db SQLDB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER NOT NULL,
		applied_at TEXT NOT NULL
	)`)
	return err
}

// SchemaVersion returns the highest applied migration, 0 for a fresh database.
// PRE: db is a valid database connection
// POST: schema_version table exists
func SchemaVersion(ctx context.Context, db SQLDB) (int, error) {
	if err := ensureVersionTable(ctx, db); err != nil {
		return 0, fmt.Errorf("failed to create schema_version: %w", err)
	}
	var version int
	if err := db.GetContext(ctx, &version, `SELECT COALESCE(MAX(version), 0) FROM schema_version`); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// MigrateDB applies every migration newer than the current schema version.
// PRE: db is a valid database connection
// POST: SchemaVersion(db) == LatestSchemaVersion()
func MigrateDB(ctx context.Context, db SQLDB) error {
	current, err := SchemaVersion(ctx, db)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		for _, stmt := range m.statements {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
			}
		}
		if _, err := db.ExecContext(ctx,
			db.Rebind(`INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`),
			m.version, FormatTime(time.Now())); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}
		slog.Info("db_event", "event", "migration_applied", "version", m.version, "name", m.name, "driver", db.DriverName())
	}
	return nil
}
