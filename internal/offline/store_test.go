package offline

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client)
}

type record struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func TestLoadJSONMissingKey(t *testing.T) {
	store := newTestStore(t)
	require.Nil(t, LoadJSON[record](context.Background(), store, KeySuppliers))
}

func TestLoadJSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	in := []record{{ID: 1, Name: "alpha"}, {ID: 2, Name: "beta"}}
	require.NoError(t, SaveJSON(ctx, store, KeySuppliers, in))
	require.Equal(t, in, LoadJSON[record](ctx, store, KeySuppliers))
}

func TestLoadJSONReplacesWholeSnapshot(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, SaveJSON(ctx, store, KeySuppliers, []record{{ID: 1}, {ID: 2}}))
	require.NoError(t, SaveJSON(ctx, store, KeySuppliers, []record{{ID: 3}}))
	require.Equal(t, []record{{ID: 3}}, LoadJSON[record](ctx, store, KeySuppliers))
}

func TestLoadJSONCorruptPayload(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Set(ctx, KeyTransactions, []byte("{not json")))
	require.Nil(t, LoadJSON[record](ctx, store, KeyTransactions))
}

func TestLoadJSONValue(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, ok := LoadJSONValue[record](ctx, store, KeySettings)
	require.False(t, ok)

	require.NoError(t, SaveJSON(ctx, store, KeySettings, record{ID: 9, Name: "single"}))
	got, ok := LoadJSONValue[record](ctx, store, KeySettings)
	require.True(t, ok)
	require.Equal(t, record{ID: 9, Name: "single"}, got)

	require.NoError(t, store.Set(ctx, KeySettings, []byte("][")))
	_, ok = LoadJSONValue[record](ctx, store, KeySettings)
	require.False(t, ok)
}
