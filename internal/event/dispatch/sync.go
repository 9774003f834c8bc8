package dispatch

import (
	"context"
	"sync/atomic"
	"time"
)

// SyncDispatcher executes handlers synchronously in the caller's goroutine.
// It is safe for concurrent and re-entrant use: the only state it keeps is
// a set of atomic counters.
type SyncDispatcher[E any] struct {
	executor *Executor[E]

	dispatched  atomic.Uint64
	succeeded   atomic.Uint64
	failed      atomic.Uint64
	panicked    atomic.Uint64
	totalTimeNs atomic.Int64
}

// SyncOption configures a SyncDispatcher.
type SyncOption[E any] func(*SyncDispatcher[E])

// NewSyncDispatcher creates a new synchronous dispatcher.
func NewSyncDispatcher[E any](opts ...SyncOption[E]) *SyncDispatcher[E] {
	d := &SyncDispatcher[E]{
		executor: NewExecutor[E](),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// WithPanicHandler sets the panic handler for the dispatcher.
func WithPanicHandler[E any](h PanicHandler[E]) SyncOption[E] {
	return func(d *SyncDispatcher[E]) {
		d.executor = NewExecutor(WithExecutorPanicHandler(h))
	}
}

// Dispatch executes a handler synchronously with the given emission.
// It blocks until the handler returns or panics.
func (d *SyncDispatcher[E]) Dispatch(ctx context.Context, e E, handler Handler[E]) Result {
	d.dispatched.Add(1)

	result := d.executor.Execute(ctx, e, handler)

	d.totalTimeNs.Add(result.Duration.Nanoseconds())
	switch {
	case result.Panicked:
		d.panicked.Add(1)
	case result.Error != nil:
		d.failed.Add(1)
	case result.Success:
		d.succeeded.Add(1)
	}

	return result
}

// DispatchAll executes handlers sequentially and returns results in order.
func (d *SyncDispatcher[E]) DispatchAll(ctx context.Context, e E, handlers []Handler[E]) []Result {
	results := make([]Result, len(handlers))
	for i, handler := range handlers {
		results[i] = d.Dispatch(ctx, e, handler)
	}
	return results
}

// Stats returns dispatch statistics.
// Counters are read individually, so a snapshot taken during dispatch may
// be slightly inconsistent.
func (d *SyncDispatcher[E]) Stats() SyncDispatcherStats {
	dispatched := d.dispatched.Load()
	totalNs := d.totalTimeNs.Load()

	var avgNs int64
	if dispatched > 0 {
		avgNs = totalNs / int64(dispatched)
	}

	return SyncDispatcherStats{
		Dispatched:    dispatched,
		Succeeded:     d.succeeded.Load(),
		Failed:        d.failed.Load(),
		Panicked:      d.panicked.Load(),
		TotalDuration: time.Duration(totalNs),
		AvgDuration:   time.Duration(avgNs),
	}
}

// ResetStats resets all statistics to zero.
func (d *SyncDispatcher[E]) ResetStats() {
	d.dispatched.Store(0)
	d.succeeded.Store(0)
	d.failed.Store(0)
	d.panicked.Store(0)
	d.totalTimeNs.Store(0)
}

// SyncDispatcherStats contains statistics for a sync dispatcher.
type SyncDispatcherStats struct {
	Dispatched    uint64
	Succeeded     uint64
	Failed        uint64
	Panicked      uint64
	TotalDuration time.Duration
	AvgDuration   time.Duration
}
