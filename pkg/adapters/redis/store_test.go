package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/bookflow/pkg/adapters/redis"
	"github.com/aretw0/bookflow/pkg/domain"
	"github.com/aretw0/bookflow/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunSessionStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_TTLExpiration(t *testing.T) {
	mr, client := newClient(t)

	now := time.Now()
	store := redis.NewFromClient(client,
		redis.WithTTL(time.Second),
		redis.WithClock(func() time.Time { return now }),
	)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "u1", domain.NewSession("u1", now)))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, "u1")

	mr.FastForward(2 * time.Second)
	now = now.Add(2 * time.Second)

	_, err = store.Load(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids, "expired index entries are pruned lazily")
}

func TestRedisStore_SaveRefreshesTTL(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithTTL(10*time.Second))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "u1", domain.NewSession("u1", time.Now())))
	mr.FastForward(8 * time.Second)
	require.NoError(t, store.Save(ctx, "u1", domain.NewSession("u1", time.Now())))
	mr.FastForward(8 * time.Second)

	_, err := store.Load(ctx, "u1")
	assert.NoError(t, err)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "my-user", domain.NewSession("my-user", time.Now())))
	assert.True(t, mr.Exists("custom:app:my-user"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")
}

func TestNewFromURL(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := redis.NewFromURL("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	defer store.Close()
	assert.NoError(t, store.Ping(context.Background()))

	_, err = redis.NewFromURL("not-a-url")
	assert.Error(t, err)
}
