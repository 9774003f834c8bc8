package lua

import "errors"

// Errors for Lua state operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrHostClosed is returned when loading scripts into a closed host.
	ErrHostClosed = errors.New("lua host is closed")

	// ErrNilBus is returned when a host is created without a bus.
	ErrNilBus = errors.New("lua host requires a bus")

	// ErrNilRoot is returned when a host is created without a root node.
	ErrNilRoot = errors.New("lua host requires a root node")
)
