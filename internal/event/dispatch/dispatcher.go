package dispatch

import (
	"context"
	"time"
)

// Handler is the callback contract the dispatcher executes.
// It is generic over the emission type so the event package's Handler
// satisfies it without an import cycle.
type Handler[E any] interface {
	Handle(ctx context.Context, e E) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc[E any] func(ctx context.Context, e E) error

// Handle implements Handler.
func (f HandlerFunc[E]) Handle(ctx context.Context, e E) error {
	return f(ctx, e)
}

// Dispatcher executes a single handler for a single emission.
type Dispatcher[E any] interface {
	Dispatch(ctx context.Context, e E, handler Handler[E]) Result
}

// Result represents the outcome of one callback execution.
type Result struct {
	// Success is true if the handler completed without error or panic.
	Success bool

	// Error is the error returned by the handler, if any.
	Error error

	// Panicked is true if the handler panicked.
	Panicked bool

	// PanicValue is the value passed to panic(), if Panicked is true.
	PanicValue any

	// PanicStack is the stack trace at the point of panic.
	PanicStack []byte

	// Duration is how long the handler took to execute.
	Duration time.Duration
}

// IsSuccess returns true if the result indicates successful execution.
func (r Result) IsSuccess() bool {
	return r.Success && !r.Panicked && r.Error == nil
}

// IsError returns true if the handler returned an error (not a panic).
func (r Result) IsError() bool {
	return r.Error != nil && !r.Panicked
}

// IsPanic returns true if the handler panicked.
func (r Result) IsPanic() bool {
	return r.Panicked
}

// PanicHandler is called when a handler panics during execution.
// It receives the emission being processed, the panic value, and the stack trace.
type PanicHandler[E any] func(e E, panicValue any, stack []byte)
