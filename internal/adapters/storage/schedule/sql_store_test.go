package schedule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymdesk/internal/adapters/storage/storagetest"
	domain "gymdesk/internal/domain/schedule"
)

func TestSQLStore_RoundTrip(t *testing.T) {
	db := storagetest.OpenDB(t)
	db.MustExec(`INSERT INTO class_type (id, name) VALUES ('ct1', 'Spin')`)
	store := NewSQLStore(db)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.Schedule{ID: "s2", ClassTypeID: "ct1", Day: domain.Monday, StartTime: "18:00", Capacity: 20}))
	require.NoError(t, store.Save(ctx, domain.Schedule{ID: "s1", ClassTypeID: "ct1", Day: domain.Monday, StartTime: "06:00", EndTime: "06:45", Capacity: 12}))
	require.NoError(t, store.Save(ctx, domain.Schedule{ID: "s3", ClassTypeID: "ct1", Day: domain.Friday, StartTime: "12:00", Capacity: 8}))

	got, err := store.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "06:45", got.EndTime)
	assert.Empty(t, got.InstructorID)
	assert.Equal(t, 12, got.Capacity)

	monday, err := store.ListByDay(ctx, domain.Monday)
	require.NoError(t, err)
	require.Len(t, monday, 2)
	assert.Equal(t, "s1", monday[0].ID)

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
