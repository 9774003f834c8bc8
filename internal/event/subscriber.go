package event

import (
	"sync"
)

// Subscribable is the subscribe half of the bus.
type Subscribable interface {
	On(scope Node, name Name, h Handler, opts ...SubscriptionOption) (Subscription, error)
}

// Subscriber groups the subscriptions of one component so they can be
// removed together when the component is unmounted.
type Subscriber struct {
	bus           Subscribable
	subscriptions []Subscription
	mu            sync.Mutex
	closed        bool
}

// NewSubscriber creates a new Subscriber wrapping the given bus.
func NewSubscriber(bus Subscribable) *Subscriber {
	return &Subscriber{bus: bus}
}

// On creates a subscription and tracks it for Close.
func (s *Subscriber) On(scope Node, name Name, h Handler, opts ...SubscriptionOption) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSubscriberClosed
	}

	opts = append(opts[:len(opts):len(opts)], WithCancelHook(s.forget))
	sub, err := s.bus.On(scope, name, h, opts...)
	if err != nil {
		return nil, err
	}

	if sub.State() != SubscriptionStateCancelled {
		s.subscriptions = append(s.subscriptions, sub)
	}
	return sub, nil
}

// OnFunc creates a subscription with a function handler.
func (s *Subscriber) OnFunc(scope Node, name Name, fn HandlerFunc, opts ...SubscriptionOption) (Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	return s.On(scope, name, fn, opts...)
}

// OnOnce creates a subscription that cancels itself on first delivery.
func (s *Subscriber) OnOnce(scope Node, name Name, h Handler, opts ...SubscriptionOption) (Subscription, error) {
	opts = append(opts, WithOnce())
	return s.On(scope, name, h, opts...)
}

// Listen creates a typed subscription tracked by s.
func Listen[P any](s *Subscriber, scope Node, k Kind[P], fn TypedHandlerFunc[P], opts ...SubscriptionOption) (Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	return s.On(scope, k.Name(), typedHandler(fn), opts...)
}

// Off removes one tracked subscription.
func (s *Subscriber) Off(sub Subscription) {
	if sub == nil {
		return
	}
	s.forget(sub)
	sub.Cancel()
}

// forget stops tracking sub. It is the cancel hook of every subscription
// made through s, so subscriptions that end elsewhere are pruned too.
func (s *Subscriber) forget(sub Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, tracked := range s.subscriptions {
		if tracked.ID() == sub.ID() {
			s.subscriptions = append(s.subscriptions[:i], s.subscriptions[i+1:]...)
			return
		}
	}
}

// Close cancels all subscriptions and refuses new ones.
func (s *Subscriber) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	subs := s.subscriptions
	s.subscriptions = nil
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
	return nil
}

// Count returns the number of live subscriptions made through s.
func (s *Subscriber) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscriptions)
}

// IsClosed returns true if the subscriber has been closed.
func (s *Subscriber) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
