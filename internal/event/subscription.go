package event

import (
	"sync/atomic"
)

// SubscriptionState represents the state of a subscription.
type SubscriptionState int32

const (
	// SubscriptionStateActive means the subscription is receiving events.
	SubscriptionStateActive SubscriptionState = iota

	// SubscriptionStatePaused means the subscription is temporarily not receiving events.
	SubscriptionStatePaused

	// SubscriptionStateCancelled means the subscription has been removed.
	SubscriptionStateCancelled
)

// String returns a human-readable state name.
func (s SubscriptionState) String() string {
	switch s {
	case SubscriptionStateActive:
		return "active"
	case SubscriptionStatePaused:
		return "paused"
	case SubscriptionStateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Subscription is the handle returned by On. It identifies one
// (scope, name, handler) registration.
type Subscription interface {
	// ID returns the unique subscription identifier.
	ID() string

	// Scope returns the node the subscription is attached to.
	Scope() Node

	// Name returns the event name listened for.
	Name() Name

	// State returns the current subscription state.
	State() SubscriptionState

	// IsActive returns true if the subscription can receive events.
	IsActive() bool

	// Pause temporarily stops delivery to this subscription.
	Pause()

	// Resume restarts delivery after a pause.
	Resume()

	// Cancel removes the subscription from its bus. Calling it more than
	// once is a no-op.
	Cancel()
}

// SubscriptionConfig contains configuration for a subscription.
type SubscriptionConfig struct {
	// Filter is an optional predicate; emissions for which it returns
	// false are skipped.
	Filter FilterFunc

	// Once cancels the subscription when it is first invoked.
	Once bool

	cancelHooks []func(Subscription)
}

// SubscriptionOption is a function that configures a subscription.
type SubscriptionOption func(*SubscriptionConfig)

// WithFilter sets a filter predicate.
func WithFilter(f FilterFunc) SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Filter = f
	}
}

// WithOnce makes the subscription cancel itself on first delivery.
func WithOnce() SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Once = true
	}
}

// WithCancelHook registers fn to run once the subscription is cancelled, by
// Cancel, Bus.Off, Bus.OffScope or a fired Once. fn must not block.
func WithCancelHook(fn func(Subscription)) SubscriptionOption {
	return func(c *SubscriptionConfig) {
		if fn != nil {
			c.cancelHooks = append(c.cancelHooks, fn)
		}
	}
}

// subscription is the internal implementation of Subscription.
type subscription struct {
	id      string
	scope   Node
	name    Name
	handler Handler
	config  SubscriptionConfig
	state   atomic.Int32

	// onCancel removes the subscription from its registry.
	onCancel func(*subscription)
}

func newSubscription(id string, scope Node, name Name, h Handler, opts ...SubscriptionOption) *subscription {
	var config SubscriptionConfig
	for _, opt := range opts {
		opt(&config)
	}

	s := &subscription{
		id:      id,
		scope:   scope,
		name:    name,
		handler: h,
		config:  config,
	}
	s.state.Store(int32(SubscriptionStateActive))
	return s
}

func (s *subscription) ID() string {
	return s.id
}

func (s *subscription) Scope() Node {
	return s.scope
}

func (s *subscription) Name() Name {
	return s.name
}

func (s *subscription) State() SubscriptionState {
	return SubscriptionState(s.state.Load())
}

func (s *subscription) IsActive() bool {
	return s.State() == SubscriptionStateActive
}

func (s *subscription) Pause() {
	s.state.CompareAndSwap(int32(SubscriptionStateActive), int32(SubscriptionStatePaused))
}

func (s *subscription) Resume() {
	s.state.CompareAndSwap(int32(SubscriptionStatePaused), int32(SubscriptionStateActive))
}

func (s *subscription) Cancel() {
	if SubscriptionState(s.state.Swap(int32(SubscriptionStateCancelled))) == SubscriptionStateCancelled {
		return
	}
	if s.onCancel != nil {
		s.onCancel(s)
	}
	s.runCancelHooks()
}

// markCancelled flips the state without touching the registry. Used when
// the registry already dropped the subscription.
func (s *subscription) markCancelled() {
	if SubscriptionState(s.state.Swap(int32(SubscriptionStateCancelled))) == SubscriptionStateCancelled {
		return
	}
	s.runCancelHooks()
}

func (s *subscription) runCancelHooks() {
	for _, fn := range s.config.cancelHooks {
		fn(s)
	}
}

// claimOnce atomically cancels a Once subscription before its first
// invocation. It returns false if another delivery got there first.
func (s *subscription) claimOnce() bool {
	if !s.state.CompareAndSwap(int32(SubscriptionStateActive), int32(SubscriptionStateCancelled)) {
		return false
	}
	if s.onCancel != nil {
		s.onCancel(s)
	}
	s.runCancelHooks()
	return true
}

