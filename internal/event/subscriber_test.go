package event

import (
	"context"
	"errors"
	"testing"
)

func TestSubscriber_CloseRemovesAll(t *testing.T) {
	bus := NewBus()
	root := newRoot("root")
	modal := root.child("modal")
	rec := &recorder{}

	s := NewSubscriber(bus)
	s.OnFunc(modal, "next-asset", rec.handler("next"))
	s.OnFunc(root, "asset-detail", rec.handler("detail"))
	s.OnOnce(root, "close-banner", rec.handler("banner"))

	if s.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", s.Count())
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !s.IsClosed() || s.Count() != 0 {
		t.Error("subscriber should be closed and empty")
	}

	bus.Emit(context.Background(), modal, "next-asset", nil)
	bus.Emit(context.Background(), modal, "asset-detail", nil)
	if got := rec.Calls(); len(got) != 0 {
		t.Errorf("closed subscriber still receiving: %v", got)
	}
	if bus.Stats().ActiveSubscriptions != 0 {
		t.Error("bus still holds subscriptions after Close()")
	}

	if _, err := s.OnFunc(root, "search", rec.handler("late")); !errors.Is(err, ErrSubscriberClosed) {
		t.Errorf("On() after Close() error = %v, want ErrSubscriberClosed", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestSubscriber_Off(t *testing.T) {
	bus := NewBus()
	root := newRoot("root")
	rec := &recorder{}

	s := NewSubscriber(bus)
	sub, _ := s.OnFunc(root, "search", rec.handler("L"))
	s.Off(sub)
	s.Off(nil)

	if s.Count() != 0 {
		t.Errorf("Count() = %d, want 0", s.Count())
	}
	bus.Emit(context.Background(), root, "search", nil)
	if got := rec.Calls(); len(got) != 0 {
		t.Errorf("calls = %v", got)
	}
}

func TestSubscriber_Listen(t *testing.T) {
	bus := NewBus()
	root := newRoot("root")
	s := NewSubscriber(bus)

	var got string
	_, err := Listen(s, root, kindSelected, func(ctx context.Context, e TypedEmission[selection]) error {
		got = e.Payload.AssetID
		return nil
	})
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	Emit(context.Background(), bus, root, kindSelected, selection{AssetID: "a9"})
	if got != "a9" {
		t.Errorf("got %q, want a9", got)
	}
}

func TestSubscriber_PropagatesErrors(t *testing.T) {
	s := NewSubscriber(NewBus())
	if _, err := s.OnFunc(nil, "search", func(context.Context, Emission) error { return nil }); !errors.Is(err, ErrNilScope) {
		t.Errorf("On(nil scope) error = %v", err)
	}
	if s.Count() != 0 {
		t.Error("failed subscription should not be tracked")
	}
}

func TestSubscriber_PrunesEndedSubscriptions(t *testing.T) {
	bus := NewBus()
	root := newRoot("root")
	grid := root.child("grid")
	rec := &recorder{}

	s := NewSubscriber(bus)
	for i := 0; i < 5; i++ {
		if _, err := s.OnOnce(root, "download", rec.handler("once")); err != nil {
			t.Fatalf("OnOnce() error = %v", err)
		}
		bus.Emit(context.Background(), grid, "download", nil)
	}
	if s.Count() != 0 {
		t.Errorf("Count() after fired once subscriptions = %d, want 0", s.Count())
	}

	direct, _ := s.OnFunc(root, "search", rec.handler("direct"))
	bus.Off(direct)
	s.OnFunc(grid, "facet", rec.handler("scoped"))
	s.OnFunc(grid, "search", rec.handler("scoped"))
	if n := bus.OffScope(grid); n != 2 {
		t.Fatalf("OffScope() = %d, want 2", n)
	}
	if s.Count() != 0 {
		t.Errorf("Count() after Bus.Off and OffScope = %d, want 0", s.Count())
	}
	if len(rec.Calls()) != 5 {
		t.Errorf("calls = %v", rec.Calls())
	}
}

func TestSubscription_CancelHookRunsOnce(t *testing.T) {
	tests := []struct {
		name   string
		opts   []SubscriptionOption
		cancel func(*Bus, Subscription, Node)
	}{
		{"Cancel", nil, func(b *Bus, s Subscription, _ Node) {
			s.Cancel()
			s.Cancel()
		}},
		{"Off", nil, func(b *Bus, s Subscription, _ Node) {
			b.Off(s)
			b.Off(s)
		}},
		{"OffScope", nil, func(b *Bus, s Subscription, scope Node) {
			b.OffScope(scope)
			s.Cancel()
		}},
		{"Once", []SubscriptionOption{WithOnce()}, func(b *Bus, s Subscription, scope Node) {
			b.Emit(context.Background(), scope, "search", nil)
			b.Emit(context.Background(), scope, "search", nil)
			s.Cancel()
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := NewBus()
			root := newRoot("root")
			calls := 0
			opts := append(tt.opts, WithCancelHook(func(Subscription) { calls++ }))
			sub, err := bus.OnFunc(root, "search", func(context.Context, Emission) error { return nil }, opts...)
			if err != nil {
				t.Fatalf("OnFunc() error = %v", err)
			}
			tt.cancel(bus, sub, root)
			if calls != 1 {
				t.Errorf("hook ran %d times, want 1", calls)
			}
		})
	}
}
