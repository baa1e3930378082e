package events_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ficehub/internal/events"
	"ficehub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func created(author uint) events.Event {
	return events.Event{Kind: events.Created, Content: models.KindPost, ContentID: 1, AuthorID: author}
}

func closeDispatcher(t *testing.T, d *events.Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))
}

func TestDispatcherDeliversEveryAuthor(t *testing.T) {
	var (
		mu   sync.Mutex
		seen = map[uint]int{}
	)
	h := events.HandlerFunc(func(_ context.Context, ev events.Event) error {
		mu.Lock()
		seen[ev.AuthorID]++
		mu.Unlock()
		return nil
	})
	d := events.NewDispatcher(context.Background(), h, events.Options{Workers: 4, QueueSize: 100}, zap.NewNop())

	for author := uint(1); author <= 20; author++ {
		require.NoError(t, d.Publish(context.Background(), created(author)))
	}
	closeDispatcher(t, d)

	assert.Len(t, seen, 20)
	for author, n := range seen {
		assert.GreaterOrEqual(t, n, 1, "author %d", author)
	}
}

func TestDispatcherCoalescesQueuedAuthor(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	h := events.HandlerFunc(func(_ context.Context, ev events.Event) error {
		if calls.Add(1) == 1 {
			close(started)
			<-release
		}
		return nil
	})
	d := events.NewDispatcher(context.Background(), h, events.Options{Workers: 1, QueueSize: 10}, zap.NewNop())

	require.NoError(t, d.Publish(context.Background(), created(7)))
	<-started

	// the first delivery is in flight, so these queue once and merge
	for range 5 {
		require.NoError(t, d.Publish(context.Background(), created(7)))
	}
	close(release)
	closeDispatcher(t, d)

	assert.Equal(t, int32(2), calls.Load())
}

func TestDispatcherRedeliversRetryableFailures(t *testing.T) {
	var calls atomic.Int32
	h := events.HandlerFunc(func(context.Context, events.Event) error {
		if calls.Add(1) < 3 {
			return errors.New("store unavailable")
		}
		return nil
	})
	d := events.NewDispatcher(context.Background(), h, events.Options{
		Workers:        1,
		QueueSize:      10,
		MaxRedelivery:  5,
		RedeliverDelay: time.Millisecond,
	}, zap.NewNop())
	defer closeDispatcher(t, d)

	require.NoError(t, d.Publish(context.Background(), created(1)))
	assert.Eventually(t, func() bool { return calls.Load() == 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestDispatcherDropsPermanentFailures(t *testing.T) {
	permanent := errors.New("user gone")
	var calls atomic.Int32
	h := events.HandlerFunc(func(context.Context, events.Event) error {
		calls.Add(1)
		return permanent
	})
	d := events.NewDispatcher(context.Background(), h, events.Options{
		Workers:        1,
		QueueSize:      10,
		MaxRedelivery:  5,
		RedeliverDelay: time.Millisecond,
		ShouldRetry:    func(err error) bool { return !errors.Is(err, permanent) },
	}, zap.NewNop())

	require.NoError(t, d.Publish(context.Background(), created(1)))
	closeDispatcher(t, d)

	assert.Equal(t, int32(1), calls.Load())
}

func TestDispatcherGivesUpAfterMaxRedelivery(t *testing.T) {
	var calls atomic.Int32
	h := events.HandlerFunc(func(context.Context, events.Event) error {
		calls.Add(1)
		return errors.New("timeout")
	})
	d := events.NewDispatcher(context.Background(), h, events.Options{
		Workers:        1,
		QueueSize:      10,
		MaxRedelivery:  2,
		RedeliverDelay: time.Millisecond,
	}, zap.NewNop())
	defer closeDispatcher(t, d)

	require.NoError(t, d.Publish(context.Background(), created(1)))
	assert.Eventually(t, func() bool { return calls.Load() == 3 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDispatcherDeliversInlineWhenQueueFull(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	var seen []uint
	h := events.HandlerFunc(func(_ context.Context, ev events.Event) error {
		if ev.AuthorID == 1 {
			close(started)
			<-release
		}
		mu.Lock()
		seen = append(seen, ev.AuthorID)
		mu.Unlock()
		return nil
	})
	d := events.NewDispatcher(context.Background(), h, events.Options{Workers: 1, QueueSize: 1}, zap.NewNop())

	require.NoError(t, d.Publish(context.Background(), created(1)))
	<-started
	require.NoError(t, d.Publish(context.Background(), created(2)))

	// the worker is busy and the queue holds author 2, so author 3 runs on this goroutine
	require.NoError(t, d.Publish(context.Background(), created(3)))
	mu.Lock()
	assert.Equal(t, []uint{3}, seen)
	mu.Unlock()

	close(release)
	closeDispatcher(t, d)
	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []uint{1, 2, 3}, seen)
}

func TestDispatcherReportsInlineFailure(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	boom := errors.New("boom")
	h := events.HandlerFunc(func(_ context.Context, ev events.Event) error {
		if ev.AuthorID == 1 {
			close(started)
			<-release
		}
		if ev.AuthorID == 3 {
			return boom
		}
		return nil
	})
	d := events.NewDispatcher(context.Background(), h, events.Options{Workers: 1, QueueSize: 1}, zap.NewNop())

	require.NoError(t, d.Publish(context.Background(), created(1)))
	<-started
	require.NoError(t, d.Publish(context.Background(), created(2)))
	assert.ErrorIs(t, d.Publish(context.Background(), created(3)), boom)

	close(release)
	closeDispatcher(t, d)
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	d := events.NewDispatcher(context.Background(), events.HandlerFunc(func(context.Context, events.Event) error {
		return nil
	}), events.Options{}, zap.NewNop())
	closeDispatcher(t, d)

	assert.ErrorIs(t, d.Publish(context.Background(), created(1)), events.ErrClosed)
	assert.NoError(t, d.Close(context.Background()))
}

func TestInlineDeliversSynchronously(t *testing.T) {
	var got events.Event
	n := events.Inline{Handler: events.HandlerFunc(func(_ context.Context, ev events.Event) error {
		got = ev
		return nil
	})}
	ev := events.Event{Kind: events.Deleted, Content: models.KindComment, ContentID: 3, AuthorID: 9}
	require.NoError(t, n.Publish(context.Background(), ev))
	assert.Equal(t, ev, got)
}
