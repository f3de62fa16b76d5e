package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opinia/opinia/pkg/redis"
)

func newTestStorage(t *testing.T) (*redis.Storage, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return redis.NewStorage(client), mr
}

func TestStorage(t *testing.T) {
	t.Parallel()

	t.Run("set and get roundtrip", func(t *testing.T) {
		t.Parallel()
		storage, _ := newTestStorage(t)
		ctx := context.Background()

		require.NoError(t, storage.Set(ctx, "greeting", []byte("hello"), 0))

		val, err := storage.Get(ctx, "greeting")
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), val)
	})

	t.Run("missing key returns nil without error", func(t *testing.T) {
		t.Parallel()
		storage, _ := newTestStorage(t)

		val, err := storage.Get(context.Background(), "absent")
		require.NoError(t, err)
		assert.Nil(t, val)
	})

	t.Run("empty key and empty value are no-ops", func(t *testing.T) {
		t.Parallel()
		storage, _ := newTestStorage(t)
		ctx := context.Background()

		require.NoError(t, storage.Set(ctx, "", []byte("x"), 0))
		require.NoError(t, storage.Set(ctx, "k", nil, 0))

		val, err := storage.Get(ctx, "")
		require.NoError(t, err)
		assert.Nil(t, val)
	})

	t.Run("expiration removes the key", func(t *testing.T) {
		t.Parallel()
		storage, mr := newTestStorage(t)
		ctx := context.Background()

		require.NoError(t, storage.Set(ctx, "ephemeral", []byte("x"), time.Minute))
		mr.FastForward(2 * time.Minute)

		val, err := storage.Get(ctx, "ephemeral")
		require.NoError(t, err)
		assert.Nil(t, val)
	})

	t.Run("delete removes the key", func(t *testing.T) {
		t.Parallel()
		storage, mr := newTestStorage(t)
		ctx := context.Background()

		require.NoError(t, storage.Set(ctx, "doomed", []byte("x"), 0))
		require.NoError(t, storage.Delete(ctx, "doomed"))
		assert.False(t, mr.Exists("doomed"))
	})

	t.Run("keys scans everything", func(t *testing.T) {
		t.Parallel()
		storage, _ := newTestStorage(t)
		ctx := context.Background()

		require.NoError(t, storage.Set(ctx, "a", []byte("1"), 0))
		require.NoError(t, storage.Set(ctx, "b", []byte("2"), 0))

		keys, err := storage.Keys(ctx)
		require.NoError(t, err)
		assert.Len(t, keys, 2)
	})

	t.Run("reset flushes the database", func(t *testing.T) {
		t.Parallel()
		storage, mr := newTestStorage(t)
		ctx := context.Background()

		require.NoError(t, storage.Set(ctx, "a", []byte("1"), 0))
		require.NoError(t, storage.Reset(ctx))
		assert.False(t, mr.Exists("a"))
	})
}
