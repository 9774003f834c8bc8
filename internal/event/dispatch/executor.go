package dispatch

import (
	"context"
	"runtime/debug"
	"time"
)

// Executor runs handlers with panic recovery and timing.
type Executor[E any] struct {
	panicHandler PanicHandler[E]
}

// NewExecutor creates a new executor with the given options.
func NewExecutor[E any](opts ...ExecutorOption[E]) *Executor[E] {
	e := &Executor[E]{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecutorOption configures an Executor.
type ExecutorOption[E any] func(*Executor[E])

// WithExecutorPanicHandler sets the panic handler for the executor.
func WithExecutorPanicHandler[E any](h PanicHandler[E]) ExecutorOption[E] {
	return func(x *Executor[E]) {
		x.panicHandler = h
	}
}

// Execute runs a handler with the given emission and returns the result.
// A panic inside the handler is recovered and reported in the Result.
func (x *Executor[E]) Execute(ctx context.Context, e E, handler Handler[E]) (result Result) {
	start := time.Now()

	defer func() {
		result.Duration = time.Since(start)

		if r := recover(); r != nil {
			stack := debug.Stack()

			result.Success = false
			result.Panicked = true
			result.PanicValue = r
			result.PanicStack = stack

			if x.panicHandler != nil {
				func() {
					// A panicking panic handler must not escape either.
					defer func() { _ = recover() }()
					x.panicHandler(e, r, stack)
				}()
			}
		}
	}()

	if err := handler.Handle(ctx, e); err != nil {
		result.Error = err
		return result
	}
	result.Success = true
	return result
}

// ExecuteAll runs handlers in order and returns every result.
// A failing handler never prevents the ones after it from running.
func (x *Executor[E]) ExecuteAll(ctx context.Context, e E, handlers []Handler[E]) []Result {
	results := make([]Result, len(handlers))
	for i, handler := range handlers {
		results[i] = x.Execute(ctx, e, handler)
	}
	return results
}
