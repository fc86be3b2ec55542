package instructor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymdesk/internal/adapters/storage/storagetest"
	domain "gymdesk/internal/domain/instructor"
)

func TestSQLStore_RoundTrip(t *testing.T) {
	store := NewSQLStore(storagetest.OpenDB(t))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.Instructor{ID: "i1", FirstName: "Sam", LastName: "Hohaia"}))

	got, err := store.GetByID(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, "Sam Hohaia", got.FullName())
	assert.Empty(t, got.Email)

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
