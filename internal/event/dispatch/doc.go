// Package dispatch runs event callbacks for the event bus.
//
// Every callback goes through an Executor, which recovers panics, records
// how long the callback took, and reports the outcome as a Result. The bus
// never lets a failing callback interrupt delivery to the callbacks after
// it, so the Executor is where a "throw" in subscriber code is turned into
// data.
//
// # Dispatchers
//
// SyncDispatcher executes callbacks in the caller's goroutine and keeps
// running counters. There is no asynchronous dispatcher: delivery is
// synchronous, and a nested emission finishes before the outer one
// continues.
//
// # Context
//
// The context is handed to the callback untouched. It is never consulted
// to skip or abort a callback; emissions cannot be cancelled mid-flight.
//
// # Usage
//
//	d := dispatch.NewSyncDispatcher[event.Emission](
//	    dispatch.WithPanicHandler[event.Emission](func(e event.Emission, v any, stack []byte) {
//	        log.Printf("panic in callback: %v\n%s", v, stack)
//	    }),
//	)
//	result := d.Dispatch(ctx, emission, handler)
//	if !result.IsSuccess() {
//	    // report and move on
//	}
package dispatch
