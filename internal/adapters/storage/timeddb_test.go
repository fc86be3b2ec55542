package storage

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"gymdesk/internal/adapters/http/perf"
)

func openTimedTestDB(t testing.TB) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open(DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	db.MustExec("CREATE TABLE test (id TEXT PRIMARY KEY, val TEXT)")
	t.Cleanup(func() { db.Close() })
	return db
}

type testRow struct {
	ID  string `db:"id"`
	Val string `db:"val"`
}

// TestTimedDB_ExecContext verifies ExecContext records timing.
func TestTimedDB_ExecContext(t *testing.T) {
	collector := perf.NewCollector(100)
	tdb := NewTimedDB(openTimedTestDB(t), collector, 0)

	_, err := tdb.ExecContext(context.Background(), "INSERT INTO test (id, val) VALUES (?, ?)", "1", "hello")
	if err != nil {
		t.Fatalf("ExecContext: %v", err)
	}
	if collector.TotalRecorded() != 1 {
		t.Errorf("TotalRecorded = %d, want 1", collector.TotalRecorded())
	}
}

// TestTimedDB_SelectAndGet verifies the sqlx helpers scan into tagged structs.
func TestTimedDB_SelectAndGet(t *testing.T) {
	collector := perf.NewCollector(100)
	tdb := NewTimedDB(openTimedTestDB(t), collector, 0)
	ctx := context.Background()

	tdb.ExecContext(ctx, "INSERT INTO test (id, val) VALUES (?, ?), (?, ?)", "1", "hello", "2", "world")

	var rows []testRow
	if err := tdb.SelectContext(ctx, &rows, "SELECT id, val FROM test ORDER BY id"); err != nil {
		t.Fatalf("SelectContext: %v", err)
	}
	if len(rows) != 2 || rows[1].Val != "world" {
		t.Fatalf("unexpected rows: %+v", rows)
	}

	var one testRow
	if err := tdb.GetContext(ctx, &one, "SELECT id, val FROM test WHERE id = ?", "1"); err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if one.Val != "hello" {
		t.Errorf("val = %q, want hello", one.Val)
	}

	// 1 exec + 1 select + 1 get
	if collector.TotalRecorded() != 3 {
		t.Errorf("TotalRecorded = %d, want 3", collector.TotalRecorded())
	}
}

// TestTimedDB_QueryxContext verifies QueryxContext records timing.
func TestTimedDB_QueryxContext(t *testing.T) {
	collector := perf.NewCollector(100)
	tdb := NewTimedDB(openTimedTestDB(t), collector, 0)
	ctx := context.Background()

	tdb.ExecContext(ctx, "INSERT INTO test (id, val) VALUES (?, ?)", "1", "hello")

	rows, err := tdb.QueryxContext(ctx, "SELECT id, val FROM test")
	if err != nil {
		t.Fatalf("QueryxContext: %v", err)
	}
	defer rows.Close()
	count := 0
	for rows.Next() {
		var r testRow
		if err := rows.StructScan(&r); err != nil {
			t.Fatalf("StructScan: %v", err)
		}
		count++
	}
	if count != 1 {
		t.Errorf("rows = %d, want 1", count)
	}
	if collector.TotalRecorded() != 2 {
		t.Errorf("TotalRecorded = %d, want 2", collector.TotalRecorded())
	}
}

// TestTimedDB_NilCollector verifies TimedDB works without a collector.
func TestTimedDB_NilCollector(t *testing.T) {
	tdb := NewTimedDB(openTimedTestDB(t), nil, 0)

	_, err := tdb.ExecContext(context.Background(), "INSERT INTO test (id, val) VALUES (?, ?)", "1", "hello")
	if err != nil {
		t.Fatalf("ExecContext with nil collector: %v", err)
	}
}

// TestTimedDB_ErrorPassthrough verifies SQL errors are returned unchanged
// and timing is still recorded.
func TestTimedDB_ErrorPassthrough(t *testing.T) {
	collector := perf.NewCollector(100)
	tdb := NewTimedDB(openTimedTestDB(t), collector, 0)
	ctx := context.Background()

	if _, err := tdb.ExecContext(ctx, "INSERT INTO nonexistent_table VALUES (?)", 1); err == nil {
		t.Fatal("expected error from invalid SQL, got nil")
	}

	var r testRow
	if err := tdb.GetContext(ctx, &r, "SELECT id, val FROM test WHERE id = ?", "missing"); err != sql.ErrNoRows {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}

	if collector.TotalRecorded() != 2 {
		t.Errorf("TotalRecorded = %d, want 2 (must record even on error)", collector.TotalRecorded())
	}
}

// TestTimedDB_CancelledContext verifies that a cancelled context returns an error
// and timing is still recorded.
func TestTimedDB_CancelledContext(t *testing.T) {
	collector := perf.NewCollector(100)
	tdb := NewTimedDB(openTimedTestDB(t), collector, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tdb.ExecContext(ctx, "INSERT INTO test (id, val) VALUES (?, ?)", "1", "hello")
	if err == nil {
		t.Fatal("expected error from cancelled context, got nil")
	}
	if collector.TotalRecorded() != 1 {
		t.Errorf("TotalRecorded = %d, want 1 (must record on cancelled ctx)", collector.TotalRecorded())
	}
}

// TestTimedDB_ResultPassthrough verifies RowsAffected is returned unchanged,
// which the waitlist conditional update depends on.
func TestTimedDB_ResultPassthrough(t *testing.T) {
	tdb := NewTimedDB(openTimedTestDB(t), perf.NewCollector(100), 0)
	ctx := context.Background()

	tdb.ExecContext(ctx, "INSERT INTO test (id, val) VALUES (?, ?)", "r1", "before")

	result, err := tdb.ExecContext(ctx, "UPDATE test SET val = ? WHERE id = ? AND val = ?", "after", "r1", "before")
	if err != nil {
		t.Fatalf("ExecContext: %v", err)
	}
	if n, _ := result.RowsAffected(); n != 1 {
		t.Errorf("RowsAffected = %d, want 1", n)
	}

	result, err = tdb.ExecContext(ctx, "UPDATE test SET val = ? WHERE id = ? AND val = ?", "again", "r1", "before")
	if err != nil {
		t.Fatalf("ExecContext: %v", err)
	}
	if n, _ := result.RowsAffected(); n != 0 {
		t.Errorf("RowsAffected = %d, want 0", n)
	}
}

// TestTimedDB_RebindAndDriver verifies binder passthrough.
func TestTimedDB_RebindAndDriver(t *testing.T) {
	db := openTimedTestDB(t)
	tdb := NewTimedDB(db, nil, 0)

	if tdb.RawDB() != db {
		t.Error("RawDB() should return the original *sqlx.DB")
	}
	if tdb.DriverName() != DriverSQLite {
		t.Errorf("DriverName = %q", tdb.DriverName())
	}
	if got := tdb.Rebind("SELECT ? , ?"); got != "SELECT ? , ?" {
		t.Errorf("Rebind = %q, want placeholders unchanged for sqlite", got)
	}
}

// TestTimedDB_ConcurrentMixedOps verifies no data races or panics under concurrent
// Exec, Select and Get calls.
func TestTimedDB_ConcurrentMixedOps(t *testing.T) {
	collector := perf.NewCollector(1000)
	tdb := NewTimedDB(openTimedTestDB(t), collector, 0)
	ctx := context.Background()

	tdb.ExecContext(ctx, "INSERT INTO test (id, val) VALUES (?, ?)", "seed", "data")

	done := make(chan struct{})
	var wg sync.WaitGroup
	run := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					fn()
				}
			}
		}()
	}

	run(func() {
		tdb.ExecContext(ctx, "INSERT OR REPLACE INTO test (id, val) VALUES (?, ?)", "w", "v")
	})
	run(func() {
		var rows []testRow
		tdb.SelectContext(ctx, &rows, "SELECT id, val FROM test")
	})
	run(func() {
		var r testRow
		tdb.GetContext(ctx, &r, "SELECT id, val FROM test WHERE id = ?", "seed")
	})

	time.Sleep(100 * time.Millisecond)
	close(done)
	wg.Wait()

	if collector.TotalRecorded() < 3 {
		t.Errorf("TotalRecorded = %d, want >= 3", collector.TotalRecorded())
	}
}

// BenchmarkTimedDB_Overhead measures the instrumentation overhead against a raw *sqlx.DB.
func BenchmarkTimedDB_Overhead(b *testing.B) {
	db := openTimedTestDB(b)
	db.MustExec("INSERT INTO test VALUES ('1', 'x')")
	tdb := NewTimedDB(db, perf.NewCollector(perf.DefaultRingSize), 0)
	ctx := context.Background()

	b.Run("RawDB", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			var v string
			db.GetContext(ctx, &v, "SELECT val FROM test WHERE id = '1'")
		}
	})
	b.Run("TimedDB", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			var v string
			tdb.GetContext(ctx, &v, "SELECT val FROM test WHERE id = '1'")
		}
	})
}
