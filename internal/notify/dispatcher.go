// Package notify delivers booking notifications without holding up the
// request that caused them.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/iliyamo/booking-service/internal/logger"
	"github.com/iliyamo/booking-service/internal/metrics"
)

// Task is a unit of notification work.
type Task func(ctx context.Context) error

type job struct {
	name string
	fn   Task
}

// Dispatcher runs tasks on a fixed pool of workers fed by a bounded
// queue.  Enqueue never blocks: when the queue is full or the dispatcher
// is closed the task is dropped and counted.
type Dispatcher struct {
	jobs    chan job
	timeout time.Duration
	log     logger.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	stop   chan struct{}
}

// NewDispatcher starts workers goroutines.  Each task gets its own
// context bounded by timeout, detached from the request that queued it.
func NewDispatcher(workers, queueSize int, timeout time.Duration, log logger.Logger, m *metrics.Metrics) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	d := &Dispatcher{
		jobs:    make(chan job, queueSize),
		timeout: timeout,
		log:     log,
		metrics: m,
		stop:    make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

// Enqueue queues fn under name and reports whether it was accepted.
func (d *Dispatcher) Enqueue(name string, fn func(ctx context.Context) error) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(name, "dispatcher closed")
		return false
	}
	select {
	case d.jobs <- job{name: name, fn: fn}:
		return true
	default:
		d.drop(name, "queue full")
		return false
	}
}

func (d *Dispatcher) drop(name, reason string) {
	d.log.Warn("notification dropped", "task", name, "reason", reason)
	if d.metrics != nil {
		d.metrics.NotificationsDropped.WithLabelValues(name).Inc()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for {
		select {
		case j, ok := <-d.jobs:
			if !ok {
				return
			}
			d.run(j)
		case <-d.stop:
			return
		}
	}
}

func (d *Dispatcher) run(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	err := safeCall(ctx, j.fn)
	if err != nil {
		d.log.Error("notification failed", "task", j.name, "error", err)
		if d.metrics != nil {
			d.metrics.NotificationsFailed.WithLabelValues(j.name).Inc()
		}
		return
	}
	d.log.Debug("notification delivered", "task", j.name)
	if d.metrics != nil {
		d.metrics.NotificationsSent.WithLabelValues(j.name).Inc()
	}
}

var errTaskPanicked = errors.New("notification task panicked")

func safeCall(ctx context.Context, fn Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errTaskPanicked
		}
	}()
	return fn(ctx)
}

// Close stops accepting tasks and waits for the queued ones to finish.
// If ctx expires first the remaining tasks are abandoned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		close(d.stop)
		return ctx.Err()
	}
}
