package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Compile-time interface assertion.
var _ Sink = (*Async)(nil)

// Async decouples the engine from a slow or failing sink. Append enqueues
// without blocking; a background worker drains the queue. When the queue is
// full the record is dropped and counted — audit is best-effort, the
// conversation always wins.
type Async struct {
	inner Sink
	queue chan Record

	mu      sync.Mutex
	dropped int

	done chan struct{}
}

// NewAsync wraps inner with a buffered queue of the given size (default 256
// when non-positive) and starts the drain worker.
func NewAsync(inner Sink, queueSize int) *Async {
	if queueSize <= 0 {
		queueSize = 256
	}
	a := &Async{
		inner: inner,
		queue: make(chan Record, queueSize),
		done:  make(chan struct{}),
	}
	go a.drain()
	return a
}

// Append implements [Sink]. It never blocks and never returns an error.
func (a *Async) Append(_ context.Context, rec Record) error {
	select {
	case a.queue <- rec:
	default:
		a.mu.Lock()
		a.dropped++
		n := a.dropped
		a.mu.Unlock()
		slog.Warn("audit queue full, record dropped",
			"event", rec.EventName, "total_dropped", n)
	}
	return nil
}

// Dropped returns how many records were discarded due to a full queue.
func (a *Async) Dropped() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dropped
}

// Close stops accepting records and drains the queue.
func (a *Async) Close() {
	close(a.queue)
	<-a.done
}

func (a *Async) drain() {
	defer close(a.done)
	for rec := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.inner.Append(ctx, rec); err != nil {
			slog.Error("audit append failed", "event", rec.EventName, "error", err)
		}
		cancel()
	}
}
