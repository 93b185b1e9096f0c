package notify

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/iliyamo/booking-service/internal/logger"
	"github.com/iliyamo/booking-service/internal/metrics"
)

func TestDispatcherRunsTasks(t *testing.T) {
	m := metrics.New("test", prometheus.NewRegistry())
	d := NewDispatcher(2, 10, time.Second, logger.NewNop(), m)

	var ran int32
	for i := 0; i < 5; i++ {
		if !d.Enqueue("ok", func(ctx context.Context) error {
			atomic.AddInt32(&ran, 1)
			return nil
		}) {
			t.Fatalf("task %d rejected", i)
		}
	}
	d.Enqueue("bad", func(ctx context.Context) error { return errors.New("smtp down") })
	d.Enqueue("panics", func(ctx context.Context) error { panic("boom") })

	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := atomic.LoadInt32(&ran); got != 5 {
		t.Fatalf("ran %d tasks, want 5", got)
	}
	if got := testutil.ToFloat64(m.NotificationsSent.WithLabelValues("ok")); got != 5 {
		t.Fatalf("sent metric = %v, want 5", got)
	}
	if got := testutil.ToFloat64(m.NotificationsFailed.WithLabelValues("bad")); got != 1 {
		t.Fatalf("failed metric = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.NotificationsFailed.WithLabelValues("panics")); got != 1 {
		t.Fatalf("panic metric = %v, want 1", got)
	}
}

func TestDispatcherEnqueueNeverBlocks(t *testing.T) {
	m := metrics.New("test", prometheus.NewRegistry())
	d := NewDispatcher(1, 1, time.Second, logger.NewNop(), m)

	release := make(chan struct{})
	started := make(chan struct{})
	d.Enqueue("hold", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started
	if !d.Enqueue("queued", func(ctx context.Context) error { return nil }) {
		t.Fatal("second task should fit in the queue")
	}

	done := make(chan bool)
	go func() { done <- d.Enqueue("overflow", func(ctx context.Context) error { return nil }) }()
	select {
	case ok := <-done:
		if ok {
			t.Fatal("overflow task should be dropped")
		}
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}
	if got := testutil.ToFloat64(m.NotificationsDropped.WithLabelValues("overflow")); got != 1 {
		t.Fatalf("dropped metric = %v, want 1", got)
	}

	close(release)
	_ = d.Close(context.Background())
	if d.Enqueue("late", func(ctx context.Context) error { return nil }) {
		t.Fatal("closed dispatcher accepted a task")
	}
}

func TestDispatcherTaskTimeout(t *testing.T) {
	d := NewDispatcher(1, 1, 20*time.Millisecond, logger.NewNop(), nil)

	var mu sync.Mutex
	var got error
	d.Enqueue("slow", func(ctx context.Context) error {
		<-ctx.Done()
		mu.Lock()
		got = ctx.Err()
		mu.Unlock()
		return ctx.Err()
	})
	_ = d.Close(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if !errors.Is(got, context.DeadlineExceeded) {
		t.Fatalf("task context error = %v, want deadline exceeded", got)
	}
}
