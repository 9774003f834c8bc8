package scenario

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/assetbus/internal/event"
)

// Delivery is one recorded callback invocation.
type Delivery struct {
	Seq      int       `json:"seq"`
	Listener string    `json:"listener"`
	Event    string    `json:"event"`
	Scope    string    `json:"scope"`
	Target   string    `json:"target"`
	Payload  any       `json:"payload"`
	Source   string    `json:"source,omitempty"`
	Depth    int       `json:"depth"`
	Emission string    `json:"emission"`
	At       time.Time `json:"at"`
}

// Recorder keeps the ordered log of deliveries to recording listeners. It
// is safe for concurrent use.
type Recorder struct {
	mu         sync.Mutex
	deliveries []Delivery
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Handler returns a handler that records deliveries under listener.
func (r *Recorder) Handler(listener string) event.HandlerFunc {
	return func(_ context.Context, e event.Emission) error {
		r.Record(listener, e)
		return nil
	}
}

// Record appends a delivery for e.
func (r *Recorder) Record(listener string, e event.Emission) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, Delivery{
		Seq:      len(r.deliveries) + 1,
		Listener: listener,
		Event:    e.Name.String(),
		Scope:    label(e.Scope),
		Target:   label(e.Target),
		Payload:  e.Payload,
		Source:   e.Metadata.Source,
		Depth:    e.Metadata.Depth,
		Emission: e.Metadata.ID,
		At:       e.Metadata.Timestamp,
	})
}

// Deliveries returns a copy of the log.
func (r *Recorder) Deliveries() []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Delivery, len(r.deliveries))
	copy(out, r.deliveries)
	return out
}

// Len returns the number of recorded deliveries.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.deliveries)
}

// Reset clears the log.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = nil
}

// Count returns how many deliveries match listener, and event and target
// when non-empty.
func (r *Recorder) Count(listener, eventName, target string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, d := range r.deliveries {
		if d.Listener != listener {
			continue
		}
		if eventName != "" && d.Event != eventName {
			continue
		}
		if target != "" && d.Target != target {
			continue
		}
		n++
	}
	return n
}

func label(n event.Node) string {
	if s, ok := n.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", n)
}
