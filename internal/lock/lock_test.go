package lock_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ficehub/internal/lock"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupRedis(t *testing.T) (*lock.Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return lock.NewRedis(client, time.Second, zap.NewNop()), mr
}

// exercise checks that holders of the same key never overlap.
func exercise(t *testing.T, l lock.Locker) {
	t.Helper()
	var (
		inside  atomic.Int32
		overlap atomic.Bool
		wg      sync.WaitGroup
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			unlock, err := l.Lock(ctx, "rating:1")
			if !assert.NoError(t, err) {
				return
			}
			if inside.Add(1) > 1 {
				overlap.Store(true)
			}
			time.Sleep(2 * time.Millisecond)
			inside.Add(-1)
			unlock()
		}()
	}
	wg.Wait()
	assert.False(t, overlap.Load(), "two holders inside the same lock")
}

func TestLocalSerializesSameKey(t *testing.T) {
	exercise(t, lock.NewLocal())
}

func TestLocalIndependentKeys(t *testing.T) {
	l := lock.NewLocal()
	unlockA, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	unlockB, err := l.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
}

func TestLocalHonorsContext(t *testing.T) {
	l := lock.NewLocal()
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, lock.ErrNotAcquired)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocalUnlockIsIdempotent(t *testing.T) {
	l := lock.NewLocal()
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock()
	unlock()

	unlock, err = l.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock()
}

func TestRedisSerializesSameKey(t *testing.T) {
	l, _ := setupRedis(t)
	exercise(t, l)
}

func TestRedisReleaseKeepsForeignToken(t *testing.T) {
	l, mr := setupRedis(t)

	unlock, err := l.Lock(context.Background(), "slug:posts")
	require.NoError(t, err)

	// simulate expiry and takeover by another process
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("ficehub:lock:slug:posts", "someone-else"))

	unlock()
	got, err := mr.Get("ficehub:lock:slug:posts")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedisHonorsContext(t *testing.T) {
	l, _ := setupRedis(t)
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, lock.ErrNotAcquired)
}

func TestWithWaitBoundsAcquisition(t *testing.T) {
	l := lock.WithWait(lock.NewLocal(), 20*time.Millisecond)
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer unlock()

	start := time.Now()
	_, err = l.Lock(context.Background(), "k")
	assert.ErrorIs(t, err, lock.ErrNotAcquired)
	assert.Less(t, time.Since(start), time.Second)
}
