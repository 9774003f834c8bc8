package event

import (
	"context"
	"testing"
)

func TestPublisher_StampsSource(t *testing.T) {
	bus := NewBus()
	root := newRoot("root")
	rec := &recorder{}
	bus.OnFunc(root, "asset-selected", rec.handler("L"))

	p := NewPublisher(bus, "asset-grid")
	if p.Source() != "asset-grid" || p.Bus() != bus {
		t.Fatal("publisher accessors")
	}

	p.Emit(context.Background(), root, "asset-selected", selection{})
	Publish(context.Background(), p, root, kindSelected, selection{AssetID: "a1"})

	if len(rec.seen) != 2 {
		t.Fatalf("got %d deliveries, want 2", len(rec.seen))
	}
	for _, e := range rec.seen {
		if e.Metadata.Source != "asset-grid" {
			t.Errorf("Source = %q, want asset-grid", e.Metadata.Source)
		}
	}
}
