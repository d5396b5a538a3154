package cachestore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oricodes/tenantperm/pkg/cachestore"
)

func TestMemory_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := cachestore.NewMemory()

	_, ok, err := m.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "k", []byte("v"), 0))
	got, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, m.Delete(ctx, "k"))
	_, ok, err = m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting an absent key is fine.
	require.NoError(t, m.Delete(ctx, "k"))
}

func TestMemory_TTLExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := cachestore.NewMemory()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), 10*time.Millisecond))

	_, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	_, ok, err = m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_RoundTrip(t *testing.T) {
	t.Parallel()

	srv := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	r := cachestore.NewRedis(client)

	_, ok, err := r.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Set(ctx, "k", []byte("v"), time.Minute))
	got, ok, err := r.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	// TTL expiry via the server clock.
	srv.FastForward(2 * time.Minute)
	_, ok, err = r.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Set(ctx, "k", []byte("v2"), 0))
	require.NoError(t, r.Delete(ctx, "k"))
	_, ok, err = r.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
