package event

import (
	"errors"
	"fmt"
)

// Sentinel errors for the event bus.
var (
	// ErrNilTarget is returned when Emit is called without a target node.
	ErrNilTarget = errors.New("emission target cannot be nil")

	// ErrNilScope is returned when On is called without a scope node.
	ErrNilScope = errors.New("subscription scope cannot be nil")

	// ErrInvalidScope is returned when a scope cannot key the registry.
	ErrInvalidScope = errors.New("subscription scope must be comparable")

	// ErrInvalidName is returned when an event name is empty.
	ErrInvalidName = errors.New("invalid event name")

	// ErrUnknownEvent is returned when a name is not in the catalog.
	ErrUnknownEvent = errors.New("unknown event")

	// ErrPayloadMismatch is returned when a payload does not have the type
	// the catalog registers for its name.
	ErrPayloadMismatch = errors.New("payload does not match event schema")

	// ErrNilHandler is returned when a nil handler is provided.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrHandlerPanic is matched by every *PanicError.
	ErrHandlerPanic = errors.New("handler panicked")

	// ErrMaxDepthExceeded is returned when nested emissions exceed the
	// configured limit.
	ErrMaxDepthExceeded = errors.New("maximum emission depth exceeded")

	// ErrSubscriberClosed is returned when subscribing through a closed Subscriber.
	ErrSubscriberClosed = errors.New("subscriber is closed")

	// ErrNoCodec is returned by an Adapter built without a Codec.
	ErrNoCodec = errors.New("adapter has no codec")
)

// HandlerError wraps an error returned by a callback.
type HandlerError struct {
	// SubscriptionID is the ID of the subscription whose handler failed.
	SubscriptionID string

	// Event is the name of the emission being delivered.
	Event Name

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return "handler error for subscription " + e.SubscriptionID + " on event " + string(e.Event) + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// PanicError wraps a panic value recovered from a callback.
type PanicError struct {
	// SubscriptionID is the ID of the subscription whose handler panicked.
	SubscriptionID string

	// Event is the name of the emission being delivered.
	Event Name

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic for subscription %s on event %s: %v", e.SubscriptionID, e.Event, e.Value)
}

// Is allows errors.Is to match PanicError with ErrHandlerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanic
}
