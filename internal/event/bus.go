package event

import (
	"context"
	"fmt"
	"reflect"
	"runtime/debug"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dshills/assetbus/internal/event/dispatch"
)

// maxPathLength guards against Node implementations whose parent chain loops.
const maxPathLength = 4096

// Bus delivers emissions to subscriptions along the target's ancestor chain.
// Create one with NewBus and pass it to the components that need it.
type Bus struct {
	registry   *Registry
	dispatcher *dispatch.SyncDispatcher[Emission]
	config     busConfig
	log        zerolog.Logger

	paused atomic.Bool

	emissions       atomic.Uint64
	detached        atomic.Uint64
	dropped         atomic.Uint64
	deliveries      atomic.Uint64
	handlerErrors   atomic.Uint64
	handlerPanics   atomic.Uint64
	totalDeliveryNs atomic.Int64
}

// NewBus creates a new event bus with the given options.
func NewBus(opts ...BusOption) *Bus {
	config := defaultBusConfig()
	for _, opt := range opts {
		opt(&config)
	}

	return &Bus{
		registry:   NewRegistry(),
		dispatcher: dispatch.NewSyncDispatcher[Emission](),
		config:     config,
		log:        config.logger.With().Str("component", "event-bus").Logger(),
	}
}

// Emit raises name with payload from target. Delivery is synchronous: when
// Emit returns, every matching callback has run.
//
// The returned error only reports a malformed call (nil target, empty or
// unknown name, payload of the wrong type, nesting too deep). Callback
// failures are isolated and never returned. Emitting from a detached node
// delivers nothing and returns nil.
func (b *Bus) Emit(ctx context.Context, target Node, name Name, payload any) error {
	return b.emit(ctx, target, name, payload, "")
}

func (b *Bus) emit(ctx context.Context, target Node, name Name, payload any, source string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if target == nil {
		return ErrNilTarget
	}
	if name == "" {
		return ErrInvalidName
	}
	payload, err := b.checkPayload(name, payload)
	if err != nil {
		return err
	}
	if b.paused.Load() {
		return nil
	}

	meta := newMetadata(ctx, source)
	if meta.Depth >= b.config.maxDepth {
		b.dropped.Add(1)
		if b.config.metrics != nil {
			b.config.metrics.ObserveDropped(name)
		}
		b.log.Error().
			Str("event", string(name)).
			Str("target", nodeLabel(target)).
			Int("depth", meta.Depth).
			Str("cause", meta.CausationID).
			Msg("emission dropped: nesting too deep")
		return fmt.Errorf("%w: %s at depth %d", ErrMaxDepthExceeded, name, meta.Depth)
	}

	path, attached := propagationPath(target)
	b.emissions.Add(1)
	if b.config.metrics != nil {
		b.config.metrics.ObserveEmission(name, !attached)
	}
	if !attached {
		b.detached.Add(1)
		b.log.Debug().
			Str("event", string(name)).
			Str("target", nodeLabel(target)).
			Str("emission", meta.ID).
			Msg("detached emission")
		return nil
	}

	e := Emission{
		Name:     name,
		Payload:  payload,
		Target:   target,
		Metadata: meta,
	}

	delivered := 0
	for _, scope := range path {
		e.Scope = scope
		for _, sub := range b.registry.snapshot(scope, name) {
			e.Payload = clonePayload(payload)
			if !b.accepts(e, sub) {
				continue
			}
			if sub.config.Once && !sub.claimOnce() {
				continue
			}
			b.deliver(ctx, e, sub)
			delivered++
		}
	}

	b.log.Debug().
		Str("event", string(name)).
		Str("target", nodeLabel(target)).
		Str("emission", meta.ID).
		Int("depth", meta.Depth).
		Int("deliveries", delivered).
		Msg("emitted")
	return nil
}

// accepts reports whether sub is active and its filter admits e. A filter
// panic is handled like a callback panic and the subscription is skipped.
func (b *Bus) accepts(e Emission, sub *subscription) (ok bool) {
	if !sub.IsActive() {
		return false
	}
	if sub.config.Filter == nil {
		return true
	}
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		ok = false
		stack := debug.Stack()
		b.handlerPanics.Add(1)
		b.log.Error().
			Str("event", string(e.Name)).
			Str("subscription", sub.id).
			Str("scope", nodeLabel(e.Scope)).
			Str("emission", e.Metadata.ID).
			Interface("panic", r).
			Bytes("stack", stack).
			Msg("filter panicked")
		if b.config.metrics != nil {
			b.config.metrics.ObserveDelivery(e.Name, OutcomePanic, 0)
		}
		if b.config.errorHandler != nil {
			b.reportFailure(e, &PanicError{
				SubscriptionID: sub.id,
				Event:          e.Name,
				Value:          r,
				Stack:          string(stack),
			})
		}
	}()
	return sub.config.Filter(e)
}

// clonePayload gives a delivery its own copy of payloads with reference
// fields.
func clonePayload(p any) any {
	if c, ok := p.(Cloner); ok {
		return c.Clone()
	}
	return p
}

// deliver runs one callback and records its outcome.
func (b *Bus) deliver(ctx context.Context, e Emission, sub *subscription) {
	result := b.dispatcher.Dispatch(withEmission(ctx, e), e, sub.handler)

	b.deliveries.Add(1)
	b.totalDeliveryNs.Add(result.Duration.Nanoseconds())

	var (
		outcome = OutcomeOK
		failure error
	)
	switch {
	case result.Panicked:
		outcome = OutcomePanic
		b.handlerPanics.Add(1)
		failure = &PanicError{
			SubscriptionID: sub.id,
			Event:          e.Name,
			Value:          result.PanicValue,
			Stack:          string(result.PanicStack),
		}
		b.log.Error().
			Str("event", string(e.Name)).
			Str("subscription", sub.id).
			Str("scope", nodeLabel(e.Scope)).
			Str("emission", e.Metadata.ID).
			Interface("panic", result.PanicValue).
			Bytes("stack", result.PanicStack).
			Msg("callback panicked")
	case result.Error != nil:
		outcome = OutcomeError
		b.handlerErrors.Add(1)
		failure = &HandlerError{
			SubscriptionID: sub.id,
			Event:          e.Name,
			Err:            result.Error,
		}
		b.log.Error().
			Err(result.Error).
			Str("event", string(e.Name)).
			Str("subscription", sub.id).
			Str("scope", nodeLabel(e.Scope)).
			Str("emission", e.Metadata.ID).
			Msg("callback failed")
	}

	if b.config.metrics != nil {
		b.config.metrics.ObserveDelivery(e.Name, outcome, result.Duration)
	}
	if failure != nil && b.config.errorHandler != nil {
		b.reportFailure(e, failure)
	}
}

// reportFailure calls the error handler without letting it break delivery.
func (b *Bus) reportFailure(e Emission, err error) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Msg("error handler panicked")
		}
	}()
	b.config.errorHandler(e, err)
}

// checkPayload validates payload against the catalog, if one is configured.
// A nil payload becomes the zero value of the registered type.
func (b *Bus) checkPayload(name Name, payload any) (any, error) {
	if b.config.catalog == nil {
		return payload, nil
	}
	want, ok := b.config.catalog.PayloadType(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
	if payload == nil {
		return reflect.Zero(want).Interface(), nil
	}
	if got := reflect.TypeOf(payload); got != want {
		return nil, fmt.Errorf("%w: %s carries %s, want %s", ErrPayloadMismatch, name, got, want)
	}
	return payload, nil
}

// propagationPath returns target and its ancestors up to the root, and
// whether the chain actually reaches a root.
func propagationPath(target Node) ([]Node, bool) {
	var path []Node
	for n := target; n != nil; n = n.ParentNode() {
		path = append(path, n)
		if n.IsRoot() {
			return path, true
		}
		if len(path) >= maxPathLength {
			return nil, false
		}
	}
	return nil, false
}

// On registers h for emissions of name whose target is scope or one of its
// descendants. Registering the same handler twice yields two independent
// subscriptions.
func (b *Bus) On(scope Node, name Name, h Handler, opts ...SubscriptionOption) (Subscription, error) {
	if scope == nil {
		return nil, ErrNilScope
	}
	if !reflect.TypeOf(scope).Comparable() {
		return nil, fmt.Errorf("%w: %T", ErrInvalidScope, scope)
	}
	if name == "" {
		return nil, ErrInvalidName
	}
	if h == nil {
		return nil, ErrNilHandler
	}
	if b.config.catalog != nil {
		if _, ok := b.config.catalog.PayloadType(name); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
		}
	}

	sub := newSubscription(uuid.NewString(), scope, name, h, opts...)
	sub.onCancel = b.remove
	b.registry.Add(sub)
	b.syncSubscriptionGauge()

	b.log.Debug().
		Str("event", string(name)).
		Str("scope", nodeLabel(scope)).
		Str("subscription", sub.id).
		Msg("subscribed")
	return sub, nil
}

// OnFunc is a convenience method for subscribing with a function handler.
func (b *Bus) OnFunc(scope Node, name Name, fn HandlerFunc, opts ...SubscriptionOption) (Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	return b.On(scope, name, fn, opts...)
}

// Off removes a subscription. Removing a nil, unknown or already removed
// subscription is a no-op.
func (b *Bus) Off(sub Subscription) {
	if sub == nil {
		return
	}
	sub.Cancel()
}

// OffScope removes every subscription registered at scope and returns how
// many were removed. Views call it when they are torn down.
func (b *Bus) OffScope(scope Node) int {
	if scope == nil {
		return 0
	}
	removed := b.registry.RemoveScope(scope)
	for _, sub := range removed {
		sub.markCancelled()
	}
	if len(removed) > 0 {
		b.syncSubscriptionGauge()
		b.log.Debug().
			Str("scope", nodeLabel(scope)).
			Int("removed", len(removed)).
			Msg("scope unsubscribed")
	}
	return len(removed)
}

// remove is the onCancel hook of every subscription created by this bus.
func (b *Bus) remove(sub *subscription) {
	if b.registry.Remove(sub.id) {
		b.syncSubscriptionGauge()
	}
}

func (b *Bus) syncSubscriptionGauge() {
	if b.config.metrics != nil {
		b.config.metrics.SetSubscriptions(b.registry.Count())
	}
}

// Listeners returns how many subscriptions exist for name at scope.
func (b *Bus) Listeners(scope Node, name Name) int {
	return b.registry.CountAt(scope, name)
}

// Pause drops emissions until Resume is called.
func (b *Bus) Pause() {
	b.paused.Store(true)
}

// Resume restarts delivery after a pause.
func (b *Bus) Resume() {
	b.paused.Store(false)
}

// IsPaused returns true if the bus is paused.
func (b *Bus) IsPaused() bool {
	return b.paused.Load()
}

// Stats returns current bus statistics.
func (b *Bus) Stats() Stats {
	deliveries := b.deliveries.Load()
	var avgNs int64
	if deliveries > 0 {
		avgNs = b.totalDeliveryNs.Load() / int64(deliveries)
	}

	return Stats{
		Emissions:           b.emissions.Load(),
		DetachedEmissions:   b.detached.Load(),
		DroppedEmissions:    b.dropped.Load(),
		Deliveries:          deliveries,
		HandlerErrors:       b.handlerErrors.Load(),
		HandlerPanics:       b.handlerPanics.Load(),
		AvgDeliveryTimeNs:   avgNs,
		ActiveSubscriptions: b.registry.CountActive(),
	}
}
