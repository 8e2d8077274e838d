package locker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/widgetbot/internal/config"
)

func newTestLocker(t *testing.T, ttl time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	l, err := New(config.RedisConfig{Addr: mr.Addr(), KeyPrefix: "test:", LockTTL: ttl}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l, mr
}

func TestTryLockIsExclusive(t *testing.T) {
	l, mr := newTestLocker(t, time.Minute)
	ctx := context.Background()

	release, ok, err := l.TryLock(ctx, "session:1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("test:session:1"))

	_, ok, err = l.TryLock(ctx, "session:1")
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be refused")

	_, ok, err = l.TryLock(ctx, "session:2")
	require.NoError(t, err)
	assert.True(t, ok, "other sessions are independent")

	release()
	assert.False(t, mr.Exists("test:session:1"))

	_, ok, err = l.TryLock(ctx, "session:1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStaleReleaseKeepsNewHolder(t *testing.T) {
	l, mr := newTestLocker(t, time.Second)
	ctx := context.Background()

	staleRelease, ok, err := l.TryLock(ctx, "session:1")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	_, ok, err = l.TryLock(ctx, "session:1")
	require.NoError(t, err)
	require.True(t, ok, "expired lock must be reacquirable")

	staleRelease()
	assert.True(t, mr.Exists("test:session:1"), "stale release must not drop the new holder's lock")
}

func TestTryLockReportsRedisFailure(t *testing.T) {
	l, mr := newTestLocker(t, time.Minute)
	mr.Close()

	_, ok, err := l.TryLock(context.Background(), "session:1")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(config.RedisConfig{Addr: " ", LockTTL: time.Second}, nil)
	assert.Error(t, err)

	_, err = New(config.RedisConfig{Addr: "localhost:6379"}, nil)
	assert.Error(t, err)
}
