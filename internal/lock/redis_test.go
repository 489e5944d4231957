package lock

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"DRFashion-Sync/internal/connection"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisGuard(t *testing.T, ttl time.Duration) (*RedisGuard, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	g, err := NewRedisGuard(connection.ConnectionConfig{
		Type:    "redis",
		Host:    mr.Host(),
		Port:    port,
		Timeout: 5,
	}, ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g, mr
}

func TestRedisGuard_SingleFlight(t *testing.T) {
	ctx := context.Background()
	g, mr := newTestRedisGuard(t, time.Minute)

	release, err := g.Acquire(ctx, "local|online")
	require.NoError(t, err)

	_, err = g.Acquire(ctx, "local|online")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHeld))

	token, err := mr.Get(keyPrefix + "local|online")
	require.NoError(t, err)
	assert.Len(t, token, 32)

	release()
	release()
	assert.False(t, mr.Exists(keyPrefix+"local|online"))

	again, err := g.Acquire(ctx, "local|online")
	require.NoError(t, err)
	again()
}

func TestRedisGuard_ReleaseKeepsForeignToken(t *testing.T) {
	ctx := context.Background()
	g, mr := newTestRedisGuard(t, time.Minute)

	release, err := g.Acquire(ctx, "a|b")
	require.NoError(t, err)

	// another holder took over after our key expired
	require.NoError(t, mr.Set(keyPrefix+"a|b", "someone-else"))
	release()

	got, err := mr.Get(keyPrefix + "a|b")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedisGuard_RenewsTTLWhileHeld(t *testing.T) {
	ctx := context.Background()
	ttl := 300 * time.Millisecond
	g, mr := newTestRedisGuard(t, ttl)
	key := keyPrefix + "a|b"

	release, err := g.Acquire(ctx, "a|b")
	require.NoError(t, err)

	mr.FastForward(250 * time.Millisecond)
	require.True(t, mr.Exists(key))
	assert.LessOrEqual(t, mr.TTL(key), 50*time.Millisecond)

	require.Eventually(t, func() bool {
		return mr.TTL(key) > 200*time.Millisecond
	}, 2*time.Second, 20*time.Millisecond)

	// a run far longer than the TTL keeps the key as long as renewals land
	for i := 0; i < 5; i++ {
		mr.FastForward(250 * time.Millisecond)
		require.Eventually(t, func() bool {
			return mr.TTL(key) > 200*time.Millisecond
		}, 2*time.Second, 20*time.Millisecond)
	}

	release()
	assert.False(t, mr.Exists(key))
}

func TestRedisGuard_StopsRenewingLostLock(t *testing.T) {
	ctx := context.Background()
	ttl := 300 * time.Millisecond
	g, mr := newTestRedisGuard(t, ttl)
	key := keyPrefix + "a|b"

	release, err := g.Acquire(ctx, "a|b")
	require.NoError(t, err)

	require.NoError(t, mr.Set(key, "someone-else"))
	mr.SetTTL(key, time.Minute)

	// renewal must not touch a key we no longer own
	time.Sleep(250 * time.Millisecond)
	assert.Greater(t, mr.TTL(key), 30*time.Second)

	release()
	got, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}
