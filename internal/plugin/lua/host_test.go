package lua

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	glua "github.com/yuin/gopher-lua"

	"github.com/dshills/assetbus/internal/event"
	"github.com/dshills/assetbus/internal/event/events"
	"github.com/dshills/assetbus/internal/tree"
)

type fixture struct {
	bus  *event.Bus
	root *tree.Node
	main *tree.Node
	grid *tree.Node
	host *Host

	mu       sync.Mutex
	failures []error
}

func newFixture(t *testing.T, cfg HostConfig) *fixture {
	t.Helper()

	f := &fixture{}
	f.bus = event.NewBus(
		event.WithCatalog(events.Catalog()),
		event.WithErrorHandler(func(_ event.Emission, err error) {
			f.mu.Lock()
			f.failures = append(f.failures, err)
			f.mu.Unlock()
		}),
	)
	f.root = tree.NewRoot("body")
	f.main = f.root.MustChild("main")
	f.grid = f.main.MustChild("grid")

	host, err := NewHost(f.bus, events.Catalog(), f.root, cfg)
	if err != nil {
		t.Fatalf("NewHost() error = %v", err)
	}
	f.host = host
	t.Cleanup(func() { host.Close() })
	return f
}

func (f *fixture) load(t *testing.T, code string) {
	t.Helper()
	if err := f.host.LoadString(context.Background(), "test", code); err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}
}

// global reads a Lua global under the state lock.
func (f *fixture) global(t *testing.T, name string) glua.LValue {
	t.Helper()
	var v glua.LValue
	err := f.host.state.run(context.Background(), func(L *glua.LState) error {
		v = L.GetGlobal(name)
		return nil
	})
	if err != nil {
		t.Fatalf("reading global %s: %v", name, err)
	}
	return v
}

func (f *fixture) failureCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.failures)
}

func TestNewHostValidation(t *testing.T) {
	bus := event.NewBus()
	root := tree.NewRoot("body")

	tests := []struct {
		name  string
		bus   *event.Bus
		codec event.Codec
		root  *tree.Node
		want  error
	}{
		{"nil bus", nil, events.Catalog(), root, ErrNilBus},
		{"nil codec", bus, nil, root, event.ErrNoCodec},
		{"nil root", bus, events.Catalog(), nil, ErrNilRoot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHost(tt.bus, tt.codec, tt.root, HostConfig{})
			if !errors.Is(err, tt.want) {
				t.Errorf("NewHost() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestHostReceivesBubbledEvent(t *testing.T) {
	f := newFixture(t, HostConfig{})
	f.load(t, `
		local bus = require("bus")
		calls = 0
		bus.on("body", "asset-selected", function(name, payload, target)
			calls = calls + 1
			seen_name = name
			seen_id = payload.assetId
			seen_asset = payload.assetName
			seen_target = target
		end)
	`)

	err := event.Emit(context.Background(), f.bus, f.grid, events.AssetSelected,
		events.AssetRef{AssetID: "a1", AssetName: "Photo.png"})
	if err != nil {
		t.Fatalf("Emit() error = %v", err)
	}

	if got := f.global(t, "calls"); got != glua.LNumber(1) {
		t.Fatalf("calls = %v, want 1", got)
	}
	checks := map[string]string{
		"seen_name":   "asset-selected",
		"seen_id":     "a1",
		"seen_asset":  "Photo.png",
		"seen_target": "body/main/grid",
	}
	for name, want := range checks {
		if got := f.global(t, name).String(); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
}

func TestHostEmitDecodesPayload(t *testing.T) {
	f := newFixture(t, HostConfig{Source: "hooks"})

	var got []event.TypedEmission[events.MultiselectItem]
	_, err := event.On(f.bus, f.root, events.AddItemMultiselect, func(_ context.Context, e event.TypedEmission[events.MultiselectItem]) error {
		got = append(got, e)
		return nil
	})
	if err != nil {
		t.Fatalf("On() error = %v", err)
	}

	f.load(t, `
		local bus = require("bus")
		bus.emit("body/main/grid", "add-item-multiselect", {
			id = "a7", name = "Logo.svg", type = "image", selections = {"a1", "a7"},
		})
	`)

	if len(got) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(got))
	}
	want := events.MultiselectItem{ID: "a7", Name: "Logo.svg", Type: "image", Selections: []string{"a1", "a7"}}
	p := got[0].Payload
	if p.ID != want.ID || p.Name != want.Name || p.Type != want.Type || strings.Join(p.Selections, ",") != "a1,a7" {
		t.Errorf("payload = %+v, want %+v", p, want)
	}
	if got[0].Target != event.Node(f.grid) {
		t.Errorf("target = %v, want grid", got[0].Target)
	}
	if got[0].Metadata.Source != "hooks" {
		t.Errorf("source = %q, want hooks", got[0].Metadata.Source)
	}
}

func TestHostEmitErrors(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"unknown event", `require("bus").emit("body", "asset-zoomed", {})`, "unknown event"},
		{"payload mismatch", `require("bus").emit("body", "search", { q = "cats" })`, "decoding search payload"},
		{"unresolved path", `require("bus").emit("body/nowhere", "search", { query = "cats" })`, "node not found"},
		{"unknown subscription event", `require("bus").on("body", "asset-zoomed", function() end)`, "unknown event"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, HostConfig{})
			err := f.host.LoadString(context.Background(), tt.name, tt.code)
			if err == nil {
				t.Fatal("LoadString() should fail")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestHostCallbackErrorIsIsolated(t *testing.T) {
	f := newFixture(t, HostConfig{})
	f.load(t, `
		require("bus").on("body/main", "search", function()
			error("boom")
		end)
	`)

	var later int
	event.On(f.bus, f.main, events.Search, func(context.Context, event.TypedEmission[events.SearchQuery]) error {
		later++
		return nil
	})
	event.On(f.bus, f.root, events.Search, func(context.Context, event.TypedEmission[events.SearchQuery]) error {
		later++
		return nil
	})

	if err := event.Emit(context.Background(), f.bus, f.grid, events.Search, events.SearchQuery{Query: "cats"}); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}

	if later != 2 {
		t.Errorf("later listeners invoked %d times, want 2", later)
	}
	if f.failureCount() != 1 {
		t.Fatalf("failures = %d, want 1", f.failureCount())
	}
	var herr *event.HandlerError
	if !errors.As(f.failures[0], &herr) {
		t.Fatalf("failure = %T, want *event.HandlerError", f.failures[0])
	}
	if !strings.Contains(herr.Error(), "boom") {
		t.Errorf("failure = %v, want the Lua error message", herr)
	}
}

func TestHostReentrantEmit(t *testing.T) {
	f := newFixture(t, HostConfig{})
	f.load(t, `
		local bus = require("bus")
		bus.on("body", "asset-selected", function(name, payload, target)
			bus.emit(target, "asset-detail", payload)
		end)
		bus.on("body", "asset-detail", function(name, payload, target)
			detail = payload.assetId .. "@" .. target
		end)
	`)

	var depth = -1
	event.On(f.bus, f.root, events.AssetDetail, func(_ context.Context, e event.TypedEmission[events.AssetRef]) error {
		depth = e.Metadata.Depth
		return nil
	})

	err := event.Emit(context.Background(), f.bus, f.grid, events.AssetSelected,
		events.AssetRef{AssetID: "a2", AssetName: "Video.mp4"})
	if err != nil {
		t.Fatalf("Emit() error = %v", err)
	}

	if got := f.global(t, "detail").String(); got != "a2@body/main/grid" {
		t.Errorf("detail = %q, want a2@body/main/grid", got)
	}
	if depth != 1 {
		t.Errorf("nested emission depth = %d, want 1", depth)
	}
	if f.failureCount() != 0 {
		t.Errorf("unexpected failures: %v", f.failures)
	}
}

func TestHostOnceAndOff(t *testing.T) {
	f := newFixture(t, HostConfig{})
	f.load(t, `
		local bus = require("bus")
		once_calls, on_calls = 0, 0
		once_id = bus.once("body", "close-banner", function() once_calls = once_calls + 1 end)
		on_id = bus.on("body", "close-banner", function() on_calls = on_calls + 1 end)
	`)

	emit := func() {
		t.Helper()
		if err := event.Emit(context.Background(), f.bus, f.grid, events.CloseBanner, events.BannerClosed{}); err != nil {
			t.Fatalf("Emit() error = %v", err)
		}
	}

	emit()
	emit()
	if got := f.global(t, "once_calls"); got != glua.LNumber(1) {
		t.Errorf("once_calls = %v, want 1", got)
	}
	if got := f.global(t, "on_calls"); got != glua.LNumber(2) {
		t.Errorf("on_calls = %v, want 2", got)
	}

	f.load(t, `
		local bus = require("bus")
		first = bus.off(on_id)
		second = bus.off(on_id)
		spent = bus.off(once_id)
	`)
	emit()

	if got := f.global(t, "on_calls"); got != glua.LNumber(2) {
		t.Errorf("on_calls after off = %v, want 2", got)
	}
	if f.global(t, "first") != glua.LTrue {
		t.Error("first off should report an active subscription")
	}
	if f.global(t, "second") != glua.LFalse {
		t.Error("second off should report false")
	}
	if f.global(t, "spent") != glua.LFalse {
		t.Error("off on a fired once subscription should report false")
	}
}

func TestHostPrunesEndedSubscriptions(t *testing.T) {
	f := newFixture(t, HostConfig{})
	f.load(t, `
		local bus = require("bus")
		fired = 0
		function rearm()
			bus.once("body", "download", function() fired = fired + 1 end)
		end
		bus.on("body/main/grid", "search", function() end)
	`)

	for i := 0; i < 3; i++ {
		f.load(t, "rearm()")
		if err := event.Emit(context.Background(), f.bus, f.grid, events.Download, events.AssetRef{AssetID: "a1"}); err != nil {
			t.Fatalf("Emit() error = %v", err)
		}
	}
	if got := f.global(t, "fired"); got != glua.LNumber(3) {
		t.Errorf("fired = %v, want 3", got)
	}
	if n := f.host.Subscriptions(); n != 1 {
		t.Errorf("Subscriptions() after fired once = %d, want 1", n)
	}

	f.bus.OffScope(f.grid)
	if n := f.host.Subscriptions(); n != 0 {
		t.Errorf("Subscriptions() after OffScope = %d, want 0", n)
	}
	f.host.mu.Lock()
	handles := len(f.host.handles)
	f.host.mu.Unlock()
	if handles != 0 {
		t.Errorf("host still holds %d handles", handles)
	}
}

func TestHostListenersAndNames(t *testing.T) {
	f := newFixture(t, HostConfig{})
	f.load(t, `
		local bus = require("bus")
		bus.on("body/main", "facet", function() end)
		bus.on("body/main", "facet", function() end)
		count = bus.listeners("body/main", "facet")
		names = bus.names()
		first_name = names[1]
		name_count = #names
	`)

	if got := f.global(t, "count"); got != glua.LNumber(2) {
		t.Errorf("listeners = %v, want 2", got)
	}
	if got := f.global(t, "first_name").String(); got != "asset-selected" {
		t.Errorf("names[1] = %q, want asset-selected", got)
	}
	if got := f.global(t, "name_count"); got != glua.LNumber(events.Catalog().Len()) {
		t.Errorf("#names = %v, want %d", got, events.Catalog().Len())
	}
	if f.host.Subscriptions() != 2 {
		t.Errorf("Subscriptions() = %d, want 2", f.host.Subscriptions())
	}
}

func TestHostCloseRemovesSubscriptions(t *testing.T) {
	f := newFixture(t, HostConfig{})
	f.load(t, `
		local bus = require("bus")
		bus.on("body", "download", function() end)
		bus.on("body/main/grid", "download", function() end)
	`)

	if err := f.host.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := f.host.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if n := f.bus.Listeners(f.root, "download") + f.bus.Listeners(f.grid, "download"); n != 0 {
		t.Errorf("listeners after Close = %d, want 0", n)
	}
	if err := f.host.LoadString(context.Background(), "late", "x = 1"); !errors.Is(err, ErrHostClosed) {
		t.Errorf("LoadString() after Close error = %v, want ErrHostClosed", err)
	}

	err := event.Emit(context.Background(), f.bus, f.grid, events.Download, events.AssetRef{AssetID: "a1"})
	if err != nil {
		t.Errorf("Emit() after Close error = %v", err)
	}
	if f.failureCount() != 0 {
		t.Errorf("closed host should not receive deliveries: %v", f.failures)
	}
}

func TestHostTimeout(t *testing.T) {
	f := newFixture(t, HostConfig{Timeout: 50 * time.Millisecond})

	start := time.Now()
	err := f.host.LoadString(context.Background(), "spin", `while true do end`)
	if err == nil {
		t.Fatal("LoadString() should fail on timeout")
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("timeout took %v", time.Since(start))
	}

	// The state stays usable after an interrupted call.
	f.load(t, `ok = true`)
	if f.global(t, "ok") != glua.LTrue {
		t.Error("state should accept scripts after a timeout")
	}
}

func TestHostLoadFile(t *testing.T) {
	f := newFixture(t, HostConfig{})

	path := writeScript(t, "hooks.lua", `
		require("bus").on("body", "session-started", function(_, p) email = p.email end)
	`)
	if err := f.host.LoadFile(context.Background(), path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	event.Emit(context.Background(), f.bus, f.main, events.SessionStarted,
		events.UserSession{Email: "ada@example.com", DisplayName: "Ada"})
	if got := f.global(t, "email").String(); got != "ada@example.com" {
		t.Errorf("email = %q", got)
	}

	if err := f.host.LoadFile(context.Background(), path+".missing"); err == nil {
		t.Error("LoadFile() on a missing file should fail")
	}
}

func TestHostPrintGoesToLogger(t *testing.T) {
	var buf bytes.Buffer
	f := newFixture(t, HostConfig{Logger: zerolog.New(&buf)})

	f.load(t, `print("hello", 42)`)

	out := buf.String()
	if !strings.Contains(out, `"message":"hello\t42"`) {
		t.Errorf("log output = %s, want the printed line", out)
	}
	if !strings.Contains(out, `"component":"lua"`) {
		t.Errorf("log output = %s, want component field", out)
	}
}
