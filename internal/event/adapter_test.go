package event

import (
	"context"
	"errors"
	"testing"
)

func TestAdapter_EmitDecodes(t *testing.T) {
	codec := newTestCodec()
	bus := NewBus(WithCatalog(codec))
	adapter := NewAdapter(bus, codec, "script")
	root := newRoot("root")

	var got TypedEmission[selection]
	On(bus, root, kindSelected, func(ctx context.Context, e TypedEmission[selection]) error {
		got = e
		return nil
	})

	err := adapter.Emit(context.Background(), root, "asset-selected", map[string]any{
		"assetId":   "a1",
		"assetName": "Photo.png",
	})
	if err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	if got.Payload != (selection{AssetID: "a1", AssetName: "Photo.png"}) {
		t.Errorf("payload = %+v", got.Payload)
	}
	if got.Metadata.Source != "script" {
		t.Errorf("Source = %q, want script", got.Metadata.Source)
	}
}

func TestAdapter_EmitRejects(t *testing.T) {
	codec := newTestCodec()
	bus := NewBus(WithCatalog(codec))
	adapter := NewAdapter(bus, codec, "")
	root := newRoot("root")

	if err := adapter.Emit(context.Background(), root, "bogus", nil); !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("Emit(unknown) error = %v, want ErrUnknownEvent", err)
	}
	if err := adapter.Emit(context.Background(), root, "asset-selected", map[string]any{"size": "1"}); err == nil {
		t.Error("Emit(unknown field) should fail")
	}
	if err := adapter.Emit(context.Background(), root, "close-banner", nil); err != nil {
		t.Errorf("Emit(nil data) error = %v", err)
	}

	noCodec := NewAdapter(bus, nil, "")
	if err := noCodec.Emit(context.Background(), root, "close-banner", nil); !errors.Is(err, ErrNoCodec) {
		t.Errorf("Emit() without codec error = %v, want ErrNoCodec", err)
	}
}

func TestAdapter_OnEncodes(t *testing.T) {
	codec := newTestCodec()
	bus := NewBus(WithCatalog(codec))
	adapter := NewAdapter(bus, codec, "")
	root := newRoot("root")
	card := root.child("card")

	var (
		gotName   string
		gotData   map[string]any
		gotTarget Node
	)
	_, err := adapter.On(root, "asset-selected", func(ctx context.Context, name string, data map[string]any, target Node) error {
		gotName, gotData, gotTarget = name, data, target
		return nil
	})
	if err != nil {
		t.Fatalf("On() error = %v", err)
	}

	Emit(context.Background(), bus, card, kindSelected, selection{AssetID: "a1", AssetName: "Photo.png"})

	if gotName != "asset-selected" || gotTarget != Node(card) {
		t.Errorf("got name %q target %v", gotName, gotTarget)
	}
	if gotData["assetId"] != "a1" || gotData["assetName"] != "Photo.png" {
		t.Errorf("data = %v", gotData)
	}

	if _, err := adapter.On(root, "bogus", func(context.Context, string, map[string]any, Node) error { return nil }); !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("On(unknown) error = %v, want ErrUnknownEvent", err)
	}
	if _, err := adapter.On(root, "close-banner", nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("On(nil) error = %v, want ErrNilHandler", err)
	}
}
