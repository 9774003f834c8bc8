package scenario

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dshills/assetbus/internal/event"
	"github.com/dshills/assetbus/internal/tree"
)

// Scenario is a scripted replay: a hierarchy, recording listeners, optional
// Lua scripts, a sequence of steps and assertions on the deliveries.
type Scenario struct {
	Name      string         `yaml:"name"`
	Tree      NodeSpec       `yaml:"tree"`
	Listeners []ListenerSpec `yaml:"listeners"`
	Scripts   []string       `yaml:"scripts"`
	Steps     []Step         `yaml:"steps"`
	Expect    []Expectation  `yaml:"expect"`

	// dir resolves relative script paths; empty for parsed scenarios.
	dir string
}

// NodeSpec declares one node and its children.
type NodeSpec struct {
	Name     string     `yaml:"name"`
	Children []NodeSpec `yaml:"children"`
}

// ListenerSpec declares a recording listener. Scope may be a path pattern
// ("body/*/grid", "body/**"), in which case the listener subscribes at every
// matching node under the same ID.
type ListenerSpec struct {
	ID    string `yaml:"id"`
	Scope string `yaml:"scope"`
	Event string `yaml:"event"`
	Once  bool   `yaml:"once"`

	// Fail makes the listener fail after recording: "error" or "panic".
	Fail string `yaml:"fail"`
}

// Listener failure modes.
const (
	FailError = "error"
	FailPanic = "panic"
)

// Step is one action. Exactly one field is set. A subscribe step declares a
// listener that joins the bus only when the step runs.
type Step struct {
	Emit      *EmitStep     `yaml:"emit,omitempty"`
	Detach    string        `yaml:"detach,omitempty"`
	Attach    *AttachStep   `yaml:"attach,omitempty"`
	Subscribe *ListenerSpec `yaml:"subscribe,omitempty"`
	Off       string        `yaml:"off,omitempty"`
}

// Kind names the action a step performs.
func (s Step) Kind() string {
	switch {
	case s.Emit != nil:
		return "emit"
	case s.Detach != "":
		return "detach"
	case s.Attach != nil:
		return "attach"
	case s.Subscribe != nil:
		return "subscribe"
	case s.Off != "":
		return "off"
	}
	return ""
}

func (s Step) actions() int {
	n := 0
	for _, set := range []bool{s.Emit != nil, s.Detach != "", s.Attach != nil, s.Subscribe != nil, s.Off != ""} {
		if set {
			n++
		}
	}
	return n
}

// EmitStep raises Event from the node at Target. Payload uses wire field
// names.
type EmitStep struct {
	Target  string         `yaml:"target"`
	Event   string         `yaml:"event"`
	Payload map[string]any `yaml:"payload"`
}

// AttachStep appends the node declared at Node under the node declared at
// Parent.
type AttachStep struct {
	Node   string `yaml:"node"`
	Parent string `yaml:"parent"`
}

// Expectation asserts how many deliveries a listener recorded. Event and
// Target narrow the count when set.
type Expectation struct {
	Listener string `yaml:"listener" json:"listener"`
	Event    string `yaml:"event" json:"event,omitempty"`
	Target   string `yaml:"target" json:"target,omitempty"`
	Count    int    `yaml:"count" json:"count"`
}

// Load reads and validates the scenario at path against catalog. Script
// paths are resolved relative to the file.
func Load(path string, catalog event.Catalog) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sc, err := Parse(data, catalog)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	sc.dir = filepath.Dir(path)
	if sc.Name == "" {
		sc.Name = filepath.Base(path)
	}
	return sc, nil
}

// Parse decodes and validates a scenario. A nil catalog skips event name
// checks.
func Parse(data []byte, catalog event.Catalog) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if err := sc.Validate(catalog); err != nil {
		return nil, err
	}
	return &sc, nil
}

// ScriptPaths returns the scenario's scripts resolved against its directory.
func (sc *Scenario) ScriptPaths() []string {
	paths := make([]string, 0, len(sc.Scripts))
	for _, p := range sc.Scripts {
		if !filepath.IsAbs(p) && sc.dir != "" {
			p = filepath.Join(sc.dir, p)
		}
		paths = append(paths, p)
	}
	return paths
}

// Validate checks references between the tree, listeners, steps and
// expectations.
func (sc *Scenario) Validate(catalog event.Catalog) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}
	known := func(name string) bool {
		if catalog == nil {
			return true
		}
		_, ok := catalog.PayloadType(event.Name(name))
		return ok
	}

	paths := map[tree.Path]bool{}
	if sc.Tree.Name == "" {
		fail("tree: root name is required")
	} else {
		collectPaths(sc.Tree, "", paths, fail)
	}

	listeners := map[string]bool{}
	checkListener := func(where string, l ListenerSpec) {
		switch {
		case l.ID == "":
			fail("%s: id is required", where)
		case listeners[l.ID]:
			fail("%s: duplicate id %q", where, l.ID)
		}
		listeners[l.ID] = true

		scope := tree.Path(l.Scope)
		if !scope.IsValid() {
			fail("%s: invalid scope %q", where, l.Scope)
		} else if !scope.IsPattern() && !paths[scope] {
			fail("%s: unknown scope %q", where, l.Scope)
		}
		if !known(l.Event) {
			fail("%s: unknown event %q", where, l.Event)
		}
		switch l.Fail {
		case "", FailError, FailPanic:
		default:
			fail("%s: fail must be %q or %q", where, FailError, FailPanic)
		}
	}
	for i, l := range sc.Listeners {
		checkListener(fmt.Sprintf("listeners[%d]", i), l)
	}
	for i, s := range sc.Steps {
		if s.Subscribe != nil && s.actions() == 1 {
			checkListener(fmt.Sprintf("steps[%d]", i), *s.Subscribe)
		}
	}

	for i, s := range sc.Steps {
		if s.actions() != 1 {
			fail("steps[%d]: exactly one of emit, detach, attach, subscribe, off is required", i)
			continue
		}
		switch {
		case s.Emit != nil:
			if !paths[tree.Path(s.Emit.Target)] {
				fail("steps[%d]: unknown target %q", i, s.Emit.Target)
			}
			if !known(s.Emit.Event) {
				fail("steps[%d]: unknown event %q", i, s.Emit.Event)
			}
		case s.Detach != "":
			p := tree.Path(s.Detach)
			if !paths[p] {
				fail("steps[%d]: unknown node %q", i, s.Detach)
			} else if p.Depth() == 1 {
				fail("steps[%d]: cannot detach the root", i)
			}
		case s.Attach != nil:
			if !paths[tree.Path(s.Attach.Node)] {
				fail("steps[%d]: unknown node %q", i, s.Attach.Node)
			}
			if !paths[tree.Path(s.Attach.Parent)] {
				fail("steps[%d]: unknown parent %q", i, s.Attach.Parent)
			}
		case s.Off != "":
			if !listeners[s.Off] {
				fail("steps[%d]: unknown listener %q", i, s.Off)
			}
		}
	}

	for i, e := range sc.Expect {
		if !listeners[e.Listener] {
			fail("expect[%d]: unknown listener %q", i, e.Listener)
		}
		if e.Event != "" && !known(e.Event) {
			fail("expect[%d]: unknown event %q", i, e.Event)
		}
		if e.Count < 0 {
			fail("expect[%d]: count must not be negative", i)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidScenario, errors.Join(errs...))
	}
	return nil
}

func collectPaths(n NodeSpec, parent tree.Path, paths map[tree.Path]bool, fail func(string, ...any)) {
	if n.Name == "" || tree.Path(n.Name).Depth() != 1 || tree.Path(n.Name).IsPattern() {
		fail("tree: invalid node name %q under %q", n.Name, parent)
		return
	}
	p := tree.Path(n.Name)
	if parent != "" {
		p = parent.Child(n.Name)
	}
	if paths[p] {
		fail("tree: duplicate node %q", p)
		return
	}
	paths[p] = true
	for _, c := range n.Children {
		collectPaths(c, p, paths, fail)
	}
}
