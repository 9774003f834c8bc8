package event

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// timeNow is a variable to allow testing with fixed timestamps.
var timeNow = time.Now

// Emission is one instance of an event being raised. It exists only while
// the bus delivers it and is handed to callbacks by value.
type Emission struct {
	// Name is the event name.
	Name Name

	// Payload is the event data. Its dynamic type is fixed by Name. Payloads
	// implementing Cloner are copied for every callback.
	Payload any

	// Target is the node the event was emitted from.
	Target Node

	// Scope is the node whose subscription is currently being invoked.
	Scope Node

	// Metadata contains standard emission information.
	Metadata Metadata
}

// Metadata contains standard information attached to every emission.
type Metadata struct {
	// ID is a unique identifier for this emission.
	ID string

	// Timestamp is when the emission was created.
	Timestamp time.Time

	// Source identifies the component that emitted the event.
	Source string

	// CausationID is the ID of the emission whose callback raised this
	// one, empty for top-level emissions.
	CausationID string

	// Depth is the nesting level; top-level emissions have depth 0.
	Depth int
}

func newMetadata(ctx context.Context, source string) Metadata {
	meta := Metadata{
		ID:        uuid.NewString(),
		Timestamp: timeNow(),
		Source:    source,
	}
	if parent, ok := CurrentEmission(ctx); ok {
		meta.CausationID = parent.Metadata.ID
		meta.Depth = parent.Metadata.Depth + 1
	}
	return meta
}

// TypedEmission is an Emission whose payload type is known statically.
type TypedEmission[P any] struct {
	Name     Name
	Payload  P
	Target   Node
	Scope    Node
	Metadata Metadata
}

// Kind binds an event name to its payload type.
type Kind[P any] struct {
	name Name
}

// NewKind declares the payload type carried by name.
func NewKind[P any](name Name) Kind[P] {
	return Kind[P]{name: name}
}

// Name returns the event name.
func (k Kind[P]) Name() Name {
	return k.name
}

// String returns the event name as a string.
func (k Kind[P]) String() string {
	return string(k.name)
}

// Emit raises a typed event from target.
func Emit[P any](ctx context.Context, b *Bus, target Node, k Kind[P], payload P) error {
	return b.Emit(ctx, target, k.name, payload)
}

// On subscribes a typed callback for k at scope.
func On[P any](b *Bus, scope Node, k Kind[P], fn TypedHandlerFunc[P], opts ...SubscriptionOption) (Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	return b.On(scope, k.name, typedHandler(fn), opts...)
}

// typedHandler adapts a TypedHandlerFunc to Handler.
func typedHandler[P any](fn TypedHandlerFunc[P]) HandlerFunc {
	return func(ctx context.Context, e Emission) error {
		te, err := Typed[P](e)
		if err != nil {
			return err
		}
		return fn(ctx, te)
	}
}

// Typed converts an Emission to a TypedEmission. A nil payload becomes the
// zero value of P.
func Typed[P any](e Emission) (TypedEmission[P], error) {
	var payload P
	if e.Payload != nil {
		p, ok := e.Payload.(P)
		if !ok {
			return TypedEmission[P]{}, fmt.Errorf("%w: %s carries %T, want %T", ErrPayloadMismatch, e.Name, e.Payload, payload)
		}
		payload = p
	}
	return TypedEmission[P]{
		Name:     e.Name,
		Payload:  payload,
		Target:   e.Target,
		Scope:    e.Scope,
		Metadata: e.Metadata,
	}, nil
}
