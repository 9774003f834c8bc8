package watcher

import (
	"context"
	"sort"
	"time"
)

// Batch is the set of changes seen during one debounce window.
type Batch struct {
	// Changes maps each changed path to the union of its operations.
	Changes map[string]Op

	// First and Last are the timestamps of the earliest and latest events.
	First time.Time
	Last  time.Time
}

// Paths returns the changed paths, sorted.
func (b Batch) Paths() []string {
	paths := make([]string, 0, len(b.Changes))
	for p := range b.Changes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Debounce coalesces events from in into batches. A batch is emitted once no
// event has arrived for delay. The returned channel is closed when ctx is
// done or in is closed; a pending batch is flushed when in closes.
func Debounce(ctx context.Context, in <-chan Event, delay time.Duration) <-chan Batch {
	if delay <= 0 {
		delay = DefaultConfig().Debounce
	}
	out := make(chan Batch)

	go func() {
		defer close(out)

		var (
			pending *Batch
			timer   = time.NewTimer(delay)
		)
		timer.Stop()
		defer timer.Stop()

		send := func() bool {
			b := *pending
			pending = nil
			select {
			case out <- b:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-in:
				if !ok {
					if pending != nil {
						send()
					}
					return
				}
				if pending == nil {
					pending = &Batch{Changes: make(map[string]Op), First: ev.Timestamp}
				}
				pending.Changes[ev.Path] |= ev.Op
				pending.Last = ev.Timestamp
				timer.Reset(delay)

			case <-timer.C:
				if pending != nil && !send() {
					return
				}
			}
		}
	}()

	return out
}

// Batches debounces the watcher's events with the configured delay.
func (w *Watcher) Batches(ctx context.Context) <-chan Batch {
	return Debounce(ctx, w.Events(), w.config.Debounce)
}
