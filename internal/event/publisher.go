package event

import "context"

// Publisher emits on behalf of one component and stamps its emissions
// with that component's name.
type Publisher struct {
	bus    *Bus
	source string
}

// NewPublisher creates a Publisher for source (e.g. "asset-grid").
func NewPublisher(bus *Bus, source string) *Publisher {
	return &Publisher{
		bus:    bus,
		source: source,
	}
}

// Emit raises name from target with the publisher's source.
func (p *Publisher) Emit(ctx context.Context, target Node, name Name, payload any) error {
	return p.bus.emit(ctx, target, name, payload, p.source)
}

// Publish raises a typed event with the publisher's source.
func Publish[P any](ctx context.Context, p *Publisher, target Node, k Kind[P], payload P) error {
	return p.bus.emit(ctx, target, k.Name(), payload, p.source)
}

// Source returns the publisher's source identifier.
func (p *Publisher) Source() string {
	return p.source
}

// Bus returns the underlying bus.
func (p *Publisher) Bus() *Bus {
	return p.bus
}
