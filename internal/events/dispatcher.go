package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ficehub/internal/metrics"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("dispatcher closed")

type Options struct {
	Workers        int
	QueueSize      int
	MaxRedelivery  int
	RedeliverDelay time.Duration
	// ShouldRetry decides whether a failed delivery is redelivered. Nil retries everything.
	ShouldRetry func(error) bool
}

// Dispatcher queues events and hands them to a Handler on a fixed set of workers.
// Events are coalesced per author: while an author waits in the queue, further events
// for that author replace the queued one instead of growing the queue. The pending
// mark is cleared before the handler runs, so an event published mid-delivery is
// queued again rather than lost.
type Dispatcher struct {
	handler Handler
	opts    Options
	logger  *zap.Logger

	queue   chan uint
	mu      sync.Mutex
	pending map[uint]*delivery
	closed  bool

	ctx          context.Context
	cancel       context.CancelFunc
	workers      *pool.Pool
	redeliveries sync.WaitGroup
}

type delivery struct {
	ev      Event
	attempt int
}

// NewDispatcher starts the workers. Handlers run under a context detached from ctx's
// cancellation; Close cancels it once the queue has drained.
func NewDispatcher(ctx context.Context, handler Handler, opts Options, logger *zap.Logger) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1
	}
	if opts.ShouldRetry == nil {
		opts.ShouldRetry = func(error) bool { return true }
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d := &Dispatcher{
		handler: handler,
		opts:    opts,
		logger:  logger.Named("dispatcher"),
		queue:   make(chan uint, opts.QueueSize),
		pending: make(map[uint]*delivery),
		ctx:     runCtx,
		cancel:  cancel,
		workers: pool.New().WithMaxGoroutines(opts.Workers),
	}
	for range opts.Workers {
		d.workers.Go(d.work)
	}
	return d
}

// Publish does not wait for a worker. When the queue is full the event is delivered
// on the caller's goroutine instead, so a burst slows publishers down rather than
// losing rating updates.
func (d *Dispatcher) Publish(ctx context.Context, ev Event) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	if queued, ok := d.pending[ev.AuthorID]; ok {
		queued.ev = ev
		d.mu.Unlock()
		return nil
	}
	queued := d.enqueueLocked(&delivery{ev: ev})
	d.mu.Unlock()
	if queued {
		return nil
	}

	metrics.EventDeliveries.WithLabelValues("inline").Inc()
	d.logger.Warn("Event queue full, delivering inline", zap.Uint("authorID", ev.AuthorID))
	if err := d.handler.HandleEvent(context.WithoutCancel(ctx), ev); err != nil {
		return fmt.Errorf("inline delivery for author %d: %w", ev.AuthorID, err)
	}
	return nil
}

func (d *Dispatcher) enqueueLocked(del *delivery) bool {
	select {
	case d.queue <- del.ev.AuthorID:
		d.pending[del.ev.AuthorID] = del
		metrics.EventQueueDepth.Set(float64(len(d.pending)))
		return true
	default:
		return false
	}
}

func (d *Dispatcher) work() {
	for authorID := range d.queue {
		d.mu.Lock()
		del := d.pending[authorID]
		delete(d.pending, authorID)
		metrics.EventQueueDepth.Set(float64(len(d.pending)))
		d.mu.Unlock()

		if del != nil {
			d.deliver(del)
		}
	}
}

func (d *Dispatcher) deliver(del *delivery) {
	err := d.handler.HandleEvent(d.ctx, del.ev)
	if err == nil {
		metrics.EventDeliveries.WithLabelValues("ok").Inc()
		return
	}

	if !d.opts.ShouldRetry(err) || del.attempt >= d.opts.MaxRedelivery {
		metrics.EventDeliveries.WithLabelValues("dropped").Inc()
		d.logger.Error("Dropping event",
			zap.String("kind", string(del.ev.Kind)),
			zap.Uint("authorID", del.ev.AuthorID),
			zap.Int("attempt", del.attempt),
			zap.Error(err))
		return
	}

	del.attempt++
	metrics.EventDeliveries.WithLabelValues("redelivered").Inc()
	d.logger.Warn("Redelivering event",
		zap.Uint("authorID", del.ev.AuthorID),
		zap.Int("attempt", del.attempt),
		zap.Error(err))

	d.redeliveries.Add(1)
	time.AfterFunc(d.opts.RedeliverDelay, func() {
		defer d.redeliveries.Done()
		d.requeue(del)
	})
}

func (d *Dispatcher) requeue(del *delivery) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		// last chance on the way out
		if err := d.handler.HandleEvent(d.ctx, del.ev); err != nil {
			d.logger.Error("Dropping event at shutdown", zap.Uint("authorID", del.ev.AuthorID), zap.Error(err))
		}
		return
	}
	if _, ok := d.pending[del.ev.AuthorID]; ok {
		// a newer event for the author is already queued
		d.mu.Unlock()
		return
	}
	queued := d.enqueueLocked(del)
	d.mu.Unlock()

	if !queued {
		metrics.EventDeliveries.WithLabelValues("inline").Inc()
		d.logger.Warn("Event queue full, redelivering inline", zap.Uint("authorID", del.ev.AuthorID))
		d.deliver(del)
	}
}

// Close stops accepting events, drains the queue and waits for in-flight deliveries,
// including pending redeliveries. It returns ctx's error if ctx ends first.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.workers.Wait()
		d.redeliveries.Wait()
		d.cancel()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		d.cancel()
		return ctx.Err()
	}
}
