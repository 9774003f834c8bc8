package event

import (
	"context"
	"fmt"
)

// MapHandlerFunc receives an emission in untyped form: the payload is
// re-encoded with wire field names.
type MapHandlerFunc func(ctx context.Context, name string, data map[string]any, target Node) error

// Adapter bridges callers that speak map[string]any (scripts, scenario
// files) to the typed bus. Payloads are decoded against the Codec, so a
// wrong field or unknown name fails here instead of in a subscriber.
type Adapter struct {
	bus    *Bus
	codec  Codec
	source string
}

// NewAdapter creates an adapter; source stamps the emissions it raises.
func NewAdapter(bus *Bus, codec Codec, source string) *Adapter {
	return &Adapter{
		bus:    bus,
		codec:  codec,
		source: source,
	}
}

// Emit decodes data into the payload type registered for name and emits it.
// A nil map is treated as an empty payload.
func (a *Adapter) Emit(ctx context.Context, target Node, name string, data map[string]any) error {
	if a.codec == nil {
		return ErrNoCodec
	}
	n := Name(name)
	if _, ok := a.codec.PayloadType(n); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
	if data == nil {
		data = map[string]any{}
	}
	payload, err := a.codec.Decode(n, data)
	if err != nil {
		return fmt.Errorf("decoding %s payload: %w", name, err)
	}
	return a.bus.emit(ctx, target, n, payload, a.source)
}

// On subscribes fn for name at scope, handing it payloads as maps.
func (a *Adapter) On(scope Node, name string, fn MapHandlerFunc, opts ...SubscriptionOption) (Subscription, error) {
	return a.Subscribe(a.bus, scope, name, fn, opts...)
}

// Subscribe is On through s, so a Subscriber can track the subscription.
func (a *Adapter) Subscribe(s Subscribable, scope Node, name string, fn MapHandlerFunc, opts ...SubscriptionOption) (Subscription, error) {
	if a.codec == nil {
		return nil, ErrNoCodec
	}
	if fn == nil {
		return nil, ErrNilHandler
	}
	n := Name(name)
	if _, ok := a.codec.PayloadType(n); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
	return s.On(scope, n, a.mapHandler(fn), opts...)
}

func (a *Adapter) mapHandler(fn MapHandlerFunc) HandlerFunc {
	return func(ctx context.Context, e Emission) error {
		data, err := a.codec.Encode(e.Name, e.Payload)
		if err != nil {
			return fmt.Errorf("encoding %s payload: %w", e.Name, err)
		}
		return fn(ctx, string(e.Name), data, e.Target)
	}
}

// Bus returns the underlying bus.
func (a *Adapter) Bus() *Bus {
	return a.bus
}

// Codec returns the adapter's codec.
func (a *Adapter) Codec() Codec {
	return a.codec
}
