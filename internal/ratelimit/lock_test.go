package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLocker(client), mr
}

func TestLockerTryLockIsExclusive(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	token, ok, err := locker.TryLock(ctx, "lock:a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, token)

	_, ok, err = locker.TryLock(ctx, "lock:a", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = locker.TryLock(ctx, "lock:b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "keys are independent")

	assert.Equal(t, time.Minute, mr.TTL("lock:a"))
}

func TestLockerReleaseNeedsOwnerToken(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	token, ok, err := locker.TryLock(ctx, "lock:a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, locker.Release(ctx, "lock:a", "someone-else"))
	assert.True(t, mr.Exists("lock:a"))

	require.NoError(t, locker.Release(ctx, "lock:a", token))
	assert.False(t, mr.Exists("lock:a"))

	_, ok, err = locker.TryLock(ctx, "lock:a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockerExpiresAfterTTL(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	_, ok, err := locker.TryLock(ctx, "lock:a", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	_, ok, err = locker.TryLock(ctx, "lock:a", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockerAcquireWaitsForRelease(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()

	held, ok, err := locker.TryLock(ctx, "lock:a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = locker.Release(context.Background(), "lock:a", held)
	}()

	token, err := locker.Acquire(ctx, "lock:a", time.Minute, 5*time.Second)
	require.NoError(t, err)
	assert.NotEqual(t, held, token)
}

func TestLockerAcquireTimesOut(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()

	_, ok, err := locker.TryLock(ctx, "lock:a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = locker.Acquire(ctx, "lock:a", time.Minute, 30*time.Millisecond)
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestLockerAcquireHonoursContext(t *testing.T) {
	locker, _ := newTestLocker(t)

	_, ok, err := locker.TryLock(context.Background(), "lock:a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(ctx, "lock:a", time.Minute, 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
