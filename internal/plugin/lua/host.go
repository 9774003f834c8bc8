package lua

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/assetbus/internal/event"
	"github.com/dshills/assetbus/internal/tree"
)

// DefaultSource is stamped on emissions made by scripts.
const DefaultSource = "lua"

// HostConfig configures a Host.
type HostConfig struct {
	// Logger receives script print output and load failures.
	Logger zerolog.Logger

	// Timeout bounds each script load and each callback invocation.
	// Zero uses DefaultExecutionTimeout; negative disables the bound.
	Timeout time.Duration

	// Source is stamped on emissions made by scripts.
	Source string
}

// Host runs Lua scripts whose subscriptions live on a bus. All scripts
// loaded into one Host share a Lua state.
type Host struct {
	state   *State
	adapter *event.Adapter
	root    *tree.Node
	subs    *event.Subscriber
	log     zerolog.Logger

	mu      sync.Mutex
	handles map[string]event.Subscription
	closed  bool
}

// NewHost creates a host that resolves script paths from root and encodes
// payloads with codec.
func NewHost(bus *event.Bus, codec event.Codec, root *tree.Node, cfg HostConfig) (*Host, error) {
	if bus == nil {
		return nil, ErrNilBus
	}
	if codec == nil {
		return nil, event.ErrNoCodec
	}
	if root == nil {
		return nil, ErrNilRoot
	}

	source := cfg.Source
	if source == "" {
		source = DefaultSource
	}
	timeout := cfg.Timeout
	switch {
	case timeout == 0:
		timeout = DefaultExecutionTimeout
	case timeout < 0:
		timeout = 0
	}

	h := &Host{
		adapter: event.NewAdapter(bus, codec, source),
		root:    root,
		subs:    event.NewSubscriber(bus),
		log:     cfg.Logger.With().Str("component", "lua").Logger(),
		handles: make(map[string]event.Subscription),
	}

	mod := &busModule{host: h}
	h.state = NewState(
		WithExecutionTimeout(timeout),
		WithPrinter(func(line string) {
			h.log.Info().Str("source", "print").Msg(line)
		}),
		WithModule(BusModuleName, mod.loader),
	)
	return h, nil
}

// LoadFile executes the script at path.
func (h *Host) LoadFile(ctx context.Context, path string) error {
	if h.IsClosed() {
		return ErrHostClosed
	}
	if err := h.state.DoFile(ctx, path); err != nil {
		h.log.Error().Err(err).Str("script", filepath.Base(path)).Msg("script failed")
		return fmt.Errorf("loading %s: %w", path, err)
	}
	h.log.Debug().Str("script", filepath.Base(path)).Msg("script loaded")
	return nil
}

// LoadString executes code; name labels it in errors and logs.
func (h *Host) LoadString(ctx context.Context, name, code string) error {
	if h.IsClosed() {
		return ErrHostClosed
	}
	if err := h.state.DoString(ctx, code); err != nil {
		h.log.Error().Err(err).Str("script", name).Msg("script failed")
		return fmt.Errorf("loading %s: %w", name, err)
	}
	return nil
}

// Subscriptions returns the number of live subscriptions made by scripts.
func (h *Host) Subscriptions() int {
	return h.subs.Count()
}

// IsClosed reports whether Close has been called.
func (h *Host) IsClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Close removes every subscription made by scripts and releases the Lua
// state. It is safe to call more than once.
func (h *Host) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.handles = make(map[string]event.Subscription)
	h.mu.Unlock()

	if err := h.subs.Close(); err != nil {
		return err
	}
	return h.state.Close()
}

func (h *Host) subscribe(scope *tree.Node, name string, fn *lua.LFunction, opts ...event.SubscriptionOption) (string, error) {
	opts = append(opts[:len(opts):len(opts)], event.WithCancelHook(h.forget))
	sub, err := h.adapter.Subscribe(h.subs, scope, name, h.callback(fn), opts...)
	if err != nil {
		return "", err
	}
	h.mu.Lock()
	if sub.State() != event.SubscriptionStateCancelled {
		h.handles[sub.ID()] = sub
	}
	h.mu.Unlock()
	return sub.ID(), nil
}

// forget drops the handle of a subscription that ended, however it ended.
func (h *Host) forget(sub event.Subscription) {
	h.mu.Lock()
	delete(h.handles, sub.ID())
	h.mu.Unlock()
}

func (h *Host) off(id string) bool {
	h.mu.Lock()
	sub, ok := h.handles[id]
	delete(h.handles, id)
	h.mu.Unlock()
	if !ok {
		return false
	}
	active := sub.State() != event.SubscriptionStateCancelled
	h.subs.Off(sub)
	return active
}

// callback adapts a Lua function to a map handler. Errors raised by the
// function are returned to the bus as handler failures.
func (h *Host) callback(fn *lua.LFunction) event.MapHandlerFunc {
	return func(ctx context.Context, name string, data map[string]any, target event.Node) error {
		return h.state.run(ctx, func(L *lua.LState) error {
			b := NewBridge(L)
			L.Push(fn)
			L.Push(lua.LString(name))
			L.Push(b.MapToTable(data))
			L.Push(lua.LString(nodePath(target)))
			return L.PCall(3, 0, nil)
		})
	}
}

func nodePath(n event.Node) string {
	if tn, ok := n.(*tree.Node); ok {
		return tn.Path().String()
	}
	return fmt.Sprint(n)
}
