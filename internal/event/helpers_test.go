package event

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"time"
)

// testNode is a minimal hierarchy for exercising the bus without the tree
// package.
type testNode struct {
	name   string
	root   bool
	parent *testNode
}

func newRoot(name string) *testNode {
	return &testNode{name: name, root: true}
}

func (n *testNode) child(name string) *testNode {
	return &testNode{name: name, parent: n}
}

func (n *testNode) ParentNode() Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *testNode) IsRoot() bool {
	return n.root
}

func (n *testNode) String() string {
	return n.name
}

// recorder collects callback invocations in order.
type recorder struct {
	mu    sync.Mutex
	calls []string
	seen  []Emission
}

func (r *recorder) handler(label string) HandlerFunc {
	return func(ctx context.Context, e Emission) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls = append(r.calls, label)
		r.seen = append(r.seen, e)
		return nil
	}
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

func (r *recorder) record(label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, label)
}

type selection struct {
	AssetID   string
	AssetName string
}

type banner struct{}

// cart carries a slice, so the bus copies it for every delivery.
type cart struct {
	Items []string
}

func (c cart) Clone() any {
	c.Items = slices.Clone(c.Items)
	return c
}

// testCatalog registers two events.
type testCatalog map[Name]reflect.Type

func newTestCatalog() testCatalog {
	return testCatalog{
		"asset-selected": reflect.TypeOf((*selection)(nil)).Elem(),
		"close-banner":   reflect.TypeOf((*banner)(nil)).Elem(),
	}
}

func (c testCatalog) PayloadType(name Name) (reflect.Type, bool) {
	t, ok := c[name]
	return t, ok
}

// fakeMetrics records MetricsSink calls.
type fakeMetrics struct {
	mu            sync.Mutex
	emissions     map[Name]int
	detached      int
	dropped       int
	outcomes      map[Outcome]int
	subscriptions int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		emissions: make(map[Name]int),
		outcomes:  make(map[Outcome]int),
	}
}

func (m *fakeMetrics) ObserveEmission(name Name, detached bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emissions[name]++
	if detached {
		m.detached++
	}
}

func (m *fakeMetrics) ObserveDropped(name Name) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped++
}

func (m *fakeMetrics) ObserveDelivery(name Name, outcome Outcome, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[outcome]++
}

func (m *fakeMetrics) SetSubscriptions(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = n
}

// testCodec decodes the two test events by hand.
type testCodec struct {
	testCatalog
}

func newTestCodec() testCodec {
	return testCodec{newTestCatalog()}
}

func (c testCodec) Decode(name Name, data map[string]any) (any, error) {
	switch name {
	case "asset-selected":
		var p selection
		for k, v := range data {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("field %s: not a string", k)
			}
			switch k {
			case "assetId":
				p.AssetID = s
			case "assetName":
				p.AssetName = s
			default:
				return nil, fmt.Errorf("unknown field %s", k)
			}
		}
		return p, nil
	case "close-banner":
		if len(data) > 0 {
			return nil, errors.New("close-banner takes no fields")
		}
		return banner{}, nil
	}
	return nil, ErrUnknownEvent
}

func (c testCodec) Encode(name Name, payload any) (map[string]any, error) {
	switch p := payload.(type) {
	case selection:
		return map[string]any{"assetId": p.AssetID, "assetName": p.AssetName}, nil
	case banner:
		return map[string]any{}, nil
	}
	return nil, ErrPayloadMismatch
}
