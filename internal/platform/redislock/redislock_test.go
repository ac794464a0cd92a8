package redislock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Locker) {
	mr := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { c.Close() })
	return mr, New(c, time.Second, zap.NewNop())
}

func TestLock_Exclusive(t *testing.T) {
	mr, l := setupTestRedis(t)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "session:1")
	require.NoError(t, err)
	assert.True(t, mr.Exists(keyPrefix+"session:1"))

	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err = l.Lock(waitCtx, "session:1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := l.Lock(ctx, "session:2")
	require.NoError(t, err)
	other()

	unlock()
	assert.False(t, mr.Exists(keyPrefix+"session:1"))

	again, err := l.Lock(ctx, "session:1")
	require.NoError(t, err)
	again()
}

func TestLock_WaiterAcquiresAfterRelease(t *testing.T) {
	_, l := setupTestRedis(t)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "owner:u")
	require.NoError(t, err)

	got := make(chan error, 1)
	go func() {
		u, err := l.Lock(ctx, "owner:u")
		if err == nil {
			u()
		}
		got <- err
	}()

	time.Sleep(50 * time.Millisecond)
	unlock()

	select {
	case err := <-got:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never acquired the lock")
	}
}

func TestUnlock_DoesNotReleaseForeignLock(t *testing.T) {
	mr, l := setupTestRedis(t)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "session:1")
	require.NoError(t, err)

	// Expired and taken over by someone else.
	require.NoError(t, mr.Set(keyPrefix+"session:1", "someone-else"))
	unlock()

	v, err := mr.Get(keyPrefix + "session:1")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", v)
}
