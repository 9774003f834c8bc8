package lua

import (
	"context"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultExecutionTimeout bounds a single script load or callback.
const DefaultExecutionTimeout = time.Second

// State wraps a sandboxed gopher-lua state.
//
// gopher-lua's LState is not goroutine-safe; every entry point goes through
// run, which holds mu for the duration of the call.
type State struct {
	L *lua.LState

	mu sync.Mutex

	executionTimeout time.Duration
	printer          func(string)
	modules          map[string]lua.LGFunction

	sandbox *Sandbox
	closed  bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithExecutionTimeout bounds each call into the state. Zero disables the
// bound; the caller's context still applies.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.executionTimeout = d
	}
}

// WithPrinter redirects Lua print output.
func WithPrinter(fn func(string)) StateOption {
	return func(s *State) {
		s.printer = fn
	}
}

// WithModule preloads a module reachable through require.
func WithModule(name string, loader lua.LGFunction) StateOption {
	return func(s *State) {
		s.modules[name] = loader
	}
}

// NewState creates a new sandboxed Lua state.
func NewState(opts ...StateOption) *State {
	s := &State{
		executionTimeout: DefaultExecutionTimeout,
		modules:          make(map[string]lua.LGFunction),
	}
	for _, opt := range opts {
		opt(s)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)
	for name, loader := range s.modules {
		L.PreloadModule(name, loader)
	}

	s.L = L
	s.sandbox = NewSandbox(L, s.moduleNames()...)
	s.sandbox.Install(s.printer)
	return s
}

func openSafeLibraries(L *lua.LState) {
	// package is needed for require and PreloadModule; the sandbox clears
	// its search paths.
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
}

func (s *State) moduleNames() []string {
	names := make([]string, 0, len(s.modules))
	for name := range s.modules {
		names = append(names, name)
	}
	return names
}

// stateKey marks a context as carrying a call chain that already holds the
// lock of the State stored under it.
type stateKey struct{}

// DoFile executes a Lua file.
func (s *State) DoFile(ctx context.Context, path string) error {
	return s.run(ctx, func(L *lua.LState) error {
		return L.DoFile(path)
	})
}

// DoString executes a Lua chunk.
func (s *State) DoString(ctx context.Context, code string) error {
	return s.run(ctx, func(L *lua.LState) error {
		return L.DoString(code)
	})
}

// run executes fn with exclusive access to the Lua state. A ctx derived from
// a context that run already installed is treated as re-entrant: the lock is
// already held by this call chain, so it is not taken again and the previous
// context is restored on return.
func (s *State) run(ctx context.Context, fn func(L *lua.LState) error) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	nested := ctx.Value(stateKey{}) == s
	if !nested {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	if s.closed {
		return ErrStateClosed
	}

	ctx = context.WithValue(ctx, stateKey{}, s)
	if s.executionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.executionTimeout)
		defer cancel()
	}

	prev := s.L.Context()
	s.L.SetContext(ctx)
	top := s.L.GetTop()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
		s.L.SetTop(top)
		if prev != nil {
			s.L.SetContext(prev)
		} else {
			s.L.RemoveContext()
		}
	}()

	return fn(s.L)
}

// Sandbox returns the sandbox installed on the state.
func (s *State) Sandbox() *Sandbox {
	return s.sandbox
}

// IsClosed returns true if the state has been closed.
func (s *State) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases the Lua state. Later calls return ErrStateClosed.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}
