package waitlist

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymdesk/internal/adapters/storage/storagetest"
	domain "gymdesk/internal/domain/waitlist"
)

func newSeededStore(t *testing.T) *SQLStore {
	t.Helper()
	db := storagetest.OpenDB(t)
	db.MustExec(`INSERT INTO class_type (id, name) VALUES ('ct1', 'Spin')`)
	db.MustExec(`INSERT INTO schedule (id, class_type_id, day_of_week, start_time, capacity) VALUES ('s1', 'ct1', 'monday', '06:00', 12)`)
	db.MustExec(`INSERT INTO member (id, first_name, last_name, email) VALUES
		('m1', 'Aroha', 'Ngata', 'aroha@example.com'),
		('m2', 'Mere', 'Tane', 'mere@example.com')`)

	store := NewSQLStore(db)
	created := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	for _, e := range []domain.Entry{
		{ID: "w1", MemberID: "m1", ScheduleID: "s1", Position: 1, Status: domain.StatusWaiting, CreatedAt: created},
		{ID: "w2", MemberID: "m2", ScheduleID: "s1", Position: 2, Status: domain.StatusWaiting, CreatedAt: created.Add(time.Minute)},
	} {
		require.NoError(t, store.Save(context.Background(), e))
	}
	return store
}

func TestSQLStore_GetHead(t *testing.T) {
	store := newSeededStore(t)
	ctx := context.Background()

	head, err := store.GetHead(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "w1", head.ID)
	require.NotNil(t, head.Member)
	assert.Equal(t, "aroha@example.com", head.Member.Email)
	assert.True(t, head.NotifiedAt.IsZero())

	_, err = store.GetHead(ctx, "no-such-schedule")
	assert.ErrorIs(t, err, domain.ErrNoWaitingEntry)
}

func TestSQLStore_MarkNotified(t *testing.T) {
	store := newSeededStore(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 6, 30, 0, 0, time.UTC)

	ok, err := store.MarkNotified(ctx, MarkNotifiedParams{EntryID: "w1", NotifiedAt: now, ExpiresAt: domain.ClaimDeadline(now)})
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.GetByID(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNotified, got.Status)
	assert.True(t, got.NotifiedAt.Equal(now))
	assert.True(t, got.ExpiresAt.Equal(now.Add(24*time.Hour)))
	assert.True(t, got.UpdatedAt.Equal(now))

	// The head is no longer waiting, so a second promotion loses.
	ok, err = store.MarkNotified(ctx, MarkNotifiedParams{EntryID: "w1", NotifiedAt: now, ExpiresAt: domain.ClaimDeadline(now)})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.GetHead(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrNoWaitingEntry, "position 2 is not promoted implicitly")
}

func TestSQLStore_MarkNotified_OnlyHead(t *testing.T) {
	store := newSeededStore(t)
	now := time.Now()

	ok, err := store.MarkNotified(context.Background(), MarkNotifiedParams{EntryID: "w2", NotifiedAt: now, ExpiresAt: domain.ClaimDeadline(now)})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLStore_MarkNotified_ConcurrentSingleWinner(t *testing.T) {
	store := newSeededStore(t)
	ctx := context.Background()
	now := time.Now()

	const callers = 8
	var wg sync.WaitGroup
	results := make([]bool, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = store.MarkNotified(ctx, MarkNotifiedParams{EntryID: "w1", NotifiedAt: now, ExpiresAt: domain.ClaimDeadline(now)})
		}(i)
	}
	wg.Wait()

	winners := 0
	for i := range results {
		require.NoError(t, errs[i])
		if results[i] {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

func TestSQLStore_ListBySchedule(t *testing.T) {
	store := newSeededStore(t)

	entries, err := store.ListBySchedule(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Position)
	assert.Equal(t, 2, entries[1].Position)
}

func TestSQLStore_GetByID_NotFound(t *testing.T) {
	store := newSeededStore(t)
	_, err := store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
