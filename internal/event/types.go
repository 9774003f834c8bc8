package event

import (
	"context"
	"fmt"
	"reflect"
	"time"
)

// Name identifies an event. Names are stable wire contracts between
// independently developed components.
type Name string

// String returns the name as a string.
func (n Name) String() string {
	return string(n)
}

// Node is a position in the UI hierarchy. Implementations must be
// comparable (pointer types in practice) because nodes key the registry.
type Node interface {
	// ParentNode returns the parent, or nil for a root or a detached node.
	ParentNode() Node

	// IsRoot reports whether this node is the root of a live hierarchy.
	IsRoot() bool
}

// Handler is the interface for event callbacks.
type Handler interface {
	Handle(ctx context.Context, e Emission) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ctx context.Context, e Emission) error

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, e Emission) error {
	return f(ctx, e)
}

// TypedHandlerFunc handles emissions whose payload type is known statically.
type TypedHandlerFunc[P any] func(ctx context.Context, e TypedEmission[P]) error

// Cloner is implemented by payloads with slice fields. Every callback
// receives its own Clone, so no callback observes another's changes and the
// emitter's value is never modified.
type Cloner interface {
	// Clone returns a deep copy with the same dynamic type as the receiver.
	Clone() any
}

// FilterFunc is a predicate for filtering emissions.
// Return true to deliver the emission, false to skip this subscription.
type FilterFunc func(e Emission) bool

// ErrorHandler receives callback failures. err is a *HandlerError or a
// *PanicError.
type ErrorHandler func(e Emission, err error)

// Catalog describes the closed set of event names and their payload types.
type Catalog interface {
	// PayloadType returns the payload type registered for name.
	PayloadType(name Name) (reflect.Type, bool)
}

// Codec converts between typed payloads and their map form.
type Codec interface {
	Catalog

	// Decode builds the typed payload for name from a map keyed by wire
	// field names.
	Decode(name Name, data map[string]any) (any, error)

	// Encode turns a typed payload back into its map form.
	Encode(name Name, payload any) (map[string]any, error)
}

// Outcome classifies the result of one callback execution.
type Outcome string

// Callback outcomes reported to a MetricsSink.
const (
	OutcomeOK    Outcome = "ok"
	OutcomeError Outcome = "error"
	OutcomePanic Outcome = "panic"
)

// MetricsSink receives bus measurements.
type MetricsSink interface {
	ObserveEmission(name Name, detached bool)
	ObserveDropped(name Name)
	ObserveDelivery(name Name, outcome Outcome, d time.Duration)
	SetSubscriptions(n int)
}

// Stats contains event bus statistics.
type Stats struct {
	// Emissions is the number of emissions that passed validation.
	Emissions uint64

	// DetachedEmissions is the number of emissions whose target was not
	// attached to a root.
	DetachedEmissions uint64

	// DroppedEmissions is the number of emissions refused because the
	// nesting depth limit was reached.
	DroppedEmissions uint64

	// Deliveries is the number of callback executions.
	Deliveries uint64

	// HandlerErrors is the number of callbacks that returned errors.
	HandlerErrors uint64

	// HandlerPanics is the number of callbacks that panicked.
	HandlerPanics uint64

	// AvgDeliveryTimeNs is the average callback execution time in nanoseconds.
	AvgDeliveryTimeNs int64

	// ActiveSubscriptions is the current number of active subscriptions.
	ActiveSubscriptions int
}

// nodeLabel renders a node for logs.
func nodeLabel(n Node) string {
	if n == nil {
		return "<nil>"
	}
	if s, ok := n.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T(%p)", n, n)
}
