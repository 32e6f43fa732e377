package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/database/testutil"
)

func newTestStore(t *testing.T) *DatabaseStore {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	require.NotNil(t, store)
	return store
}

func TestDatabaseStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "fsa:get:1", []byte(`{"fhrsid":1}`), time.Minute))

	val, ok, err := store.Get(ctx, "fsa:get:1")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"fhrsid":1}`, string(val))

	_, ok, err = store.Get(ctx, "fsa:get:2")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDatabaseStoreExpiry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, ok, err := store.Get(ctx, "short")
	require.NoError(t, err)
	require.False(t, ok)

	exists, err := store.Exists(ctx, "short")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestDatabaseStoreOverwrite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("one"), time.Minute))
	require.NoError(t, store.Set(ctx, "k", []byte("two"), time.Minute))

	val, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "two", string(val))
}

func TestDatabaseStoreTTL(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Hour))

	ttl, ok, err := store.TTL(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Greater(t, ttl, 59*time.Minute)

	_, ok, err = store.TTL(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDatabaseStoreFlush(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, store.Set(ctx, "b", []byte("2"), time.Minute))
	require.NoError(t, store.Flush(ctx))

	for _, key := range []string{"a", "b"} {
		_, ok, err := store.Get(ctx, key)
		require.NoError(t, err)
		require.False(t, ok)
	}
}

func TestDatabaseStorePruneExpired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "dead", []byte("1"), time.Millisecond))
	require.NoError(t, store.Set(ctx, "alive", []byte("2"), time.Hour))
	time.Sleep(5 * time.Millisecond)

	pruned, err := store.PruneExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, pruned)

	_, ok, err := store.Get(ctx, "alive")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestDatabaseStoreIncrementWithTTL(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	count, ttl, err := store.IncrementWithTTL(ctx, "rate:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Equal(t, time.Minute, ttl)

	count, _, err = store.IncrementWithTTL(ctx, "rate:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}
