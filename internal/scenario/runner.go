package scenario

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/assetbus/internal/event"
	"github.com/dshills/assetbus/internal/plugin/lua"
	"github.com/dshills/assetbus/internal/tree"
)

// Source is stamped on emissions raised by emit steps.
const Source = "scenario"

// Runner replays a scenario on a fresh bus and hierarchy.
type Runner struct {
	scenario *Scenario
	codec    event.Codec
	log      zerolog.Logger

	busOpts       []event.BusOption
	metrics       event.MetricsSink
	scripts       []string
	scriptTimeout time.Duration
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger handed to the bus and the script host.
func WithLogger(l zerolog.Logger) RunnerOption {
	return func(r *Runner) {
		r.log = l
	}
}

// WithBusOptions adds options to the bus built for each run.
func WithBusOptions(opts ...event.BusOption) RunnerOption {
	return func(r *Runner) {
		r.busOpts = append(r.busOpts, opts...)
	}
}

// WithMetrics attaches a metrics sink to the bus built for each run.
func WithMetrics(m event.MetricsSink) RunnerOption {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithScripts loads additional Lua scripts after the scenario's own.
func WithScripts(paths ...string) RunnerOption {
	return func(r *Runner) {
		r.scripts = append(r.scripts, paths...)
	}
}

// WithScriptTimeout bounds each script load and callback. Negative disables
// the bound; zero keeps the host default.
func WithScriptTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.scriptTimeout = d
	}
}

// NewRunner creates a runner for sc. codec decodes emit step payloads and
// backs the script host.
func NewRunner(sc *Scenario, codec event.Codec, opts ...RunnerOption) *Runner {
	r := &Runner{
		scenario: sc,
		codec:    codec,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// run is the state of one replay.
type run struct {
	*Runner

	bus      *event.Bus
	adapter  *event.Adapter
	root     *tree.Node
	nodes    map[tree.Path]*tree.Node
	recorder *Recorder
	subs     map[string][]event.Subscription
	host     *lua.Host

	mu       sync.Mutex
	failures []Failure
}

// Run replays the scenario. The report is returned even when the run
// fails; unmet expectations yield an *ExpectationError.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if r.codec == nil {
		return nil, event.ErrNoCodec
	}
	started := time.Now()

	st := &run{
		Runner:   r,
		nodes:    make(map[tree.Path]*tree.Node),
		recorder: NewRecorder(),
		subs:     make(map[string][]event.Subscription),
	}

	opts := []event.BusOption{event.WithLogger(r.log), event.WithErrorHandler(st.recordFailure)}
	if r.metrics != nil {
		opts = append(opts, event.WithMetrics(r.metrics))
	}
	st.bus = event.NewBus(append(opts, r.busOpts...)...)
	st.adapter = event.NewAdapter(st.bus, r.codec, Source)

	report := &Report{Scenario: r.scenario.Name, Started: started}
	defer func() {
		report.Deliveries = st.recorder.Deliveries()
		report.Failures = st.failureLog()
		report.Stats = st.bus.Stats()
		report.Duration = time.Since(started)
	}()

	if err := st.build(); err != nil {
		return report, err
	}
	if err := st.subscribe(); err != nil {
		return report, err
	}
	if err := st.loadScripts(ctx); err != nil {
		return report, err
	}
	defer st.host.Close()

	for i, step := range r.scenario.Steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := st.step(ctx, step); err != nil {
			return report, &StepError{Index: i, Kind: step.Kind(), Err: err}
		}
		report.Steps++
	}

	report.Expectations = st.check()
	var failed []ExpectationResult
	for _, res := range report.Expectations {
		if !res.Passed {
			failed = append(failed, res)
		}
	}
	if len(failed) > 0 {
		return report, &ExpectationError{Failed: failed}
	}
	return report, nil
}

// build creates the hierarchy and indexes every node by its declared path.
func (st *run) build() error {
	spec := st.scenario.Tree
	st.root = tree.NewRoot(spec.Name)
	st.nodes[st.root.Path()] = st.root
	return st.buildChildren(st.root, spec.Children)
}

func (st *run) buildChildren(parent *tree.Node, specs []NodeSpec) error {
	for _, spec := range specs {
		child, err := parent.NewChild(spec.Name)
		if err != nil {
			return fmt.Errorf("building %s: %w", parent.Path().Child(spec.Name), err)
		}
		st.nodes[child.Path()] = child
		if err := st.buildChildren(child, spec.Children); err != nil {
			return err
		}
	}
	return nil
}

func (st *run) subscribe() error {
	for _, l := range st.scenario.Listeners {
		if err := st.subscribeListener(l); err != nil {
			return err
		}
	}
	return nil
}

func (st *run) subscribeListener(l ListenerSpec) error {
	scopes, err := st.scopes(l.Scope)
	if err != nil {
		return fmt.Errorf("listener %s: %w", l.ID, err)
	}
	var opts []event.SubscriptionOption
	if l.Once {
		opts = append(opts, event.WithOnce())
	}
	h := st.listenerHandler(l)
	for _, scope := range scopes {
		sub, err := st.bus.On(scope, event.Name(l.Event), h, opts...)
		if err != nil {
			return fmt.Errorf("listener %s: %w", l.ID, err)
		}
		st.subs[l.ID] = append(st.subs[l.ID], sub)
	}
	st.log.Debug().Str("listener", l.ID).Str("event", l.Event).Int("scopes", len(scopes)).Msg("listener subscribed")
	return nil
}

// scopes resolves a listener scope. Patterns match the nodes attached to
// the root when the listener subscribes.
func (st *run) scopes(scope string) ([]*tree.Node, error) {
	p := tree.Path(scope)
	if !p.IsPattern() {
		n, ok := st.nodes[p]
		if !ok {
			return nil, fmt.Errorf("%w: %s", tree.ErrNotFound, scope)
		}
		return []*tree.Node{n}, nil
	}
	matches := st.root.Match(p)
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no node matches %s", tree.ErrNotFound, scope)
	}
	return matches, nil
}

func (st *run) listenerHandler(l ListenerSpec) event.HandlerFunc {
	record := st.recorder.Handler(l.ID)
	return func(ctx context.Context, e event.Emission) error {
		if err := record(ctx, e); err != nil {
			return err
		}
		switch l.Fail {
		case FailError:
			return fmt.Errorf("listener %s failed", l.ID)
		case FailPanic:
			panic(fmt.Sprintf("listener %s panicked", l.ID))
		}
		return nil
	}
}

func (st *run) loadScripts(ctx context.Context) error {
	host, err := lua.NewHost(st.bus, st.codec, st.root, lua.HostConfig{
		Logger:  st.log,
		Timeout: st.scriptTimeout,
	})
	if err != nil {
		return err
	}
	st.host = host

	paths := append(st.scenario.ScriptPaths(), st.scripts...)
	for _, p := range paths {
		if err := host.LoadFile(ctx, p); err != nil {
			host.Close()
			return err
		}
	}
	return nil
}

func (st *run) node(path string) (*tree.Node, error) {
	n, ok := st.nodes[tree.Path(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", tree.ErrNotFound, path)
	}
	return n, nil
}

func (st *run) step(ctx context.Context, s Step) error {
	switch {
	case s.Emit != nil:
		target, err := st.node(s.Emit.Target)
		if err != nil {
			return err
		}
		return st.adapter.Emit(ctx, target, s.Emit.Event, s.Emit.Payload)

	case s.Detach != "":
		n, err := st.node(s.Detach)
		if err != nil {
			return err
		}
		n.Remove()
		st.log.Debug().Str("node", s.Detach).Msg("node detached")
		return nil

	case s.Attach != nil:
		n, err := st.node(s.Attach.Node)
		if err != nil {
			return err
		}
		parent, err := st.node(s.Attach.Parent)
		if err != nil {
			return err
		}
		// Re-attaching a node under its current parent is a no-op.
		if n.Parent() == parent {
			return nil
		}
		if n.Contains(parent) {
			return fmt.Errorf("%w: %s under %s", tree.ErrCycle, s.Attach.Node, s.Attach.Parent)
		}
		n.Remove()
		return parent.Append(n)

	case s.Subscribe != nil:
		return st.subscribeListener(*s.Subscribe)

	case s.Off != "":
		for _, sub := range st.subs[s.Off] {
			st.bus.Off(sub)
		}
		delete(st.subs, s.Off)
		return nil
	}
	return errors.New("empty step")
}

func (st *run) recordFailure(e event.Emission, err error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	f := Failure{
		Event:  e.Name.String(),
		Scope:  label(e.Scope),
		Target: label(e.Target),
		Error:  err.Error(),
	}
	if errors.Is(err, event.ErrHandlerPanic) {
		f.Panic = true
	}
	st.failures = append(st.failures, f)
}

func (st *run) failureLog() []Failure {
	st.mu.Lock()
	defer st.mu.Unlock()
	return append([]Failure(nil), st.failures...)
}

func (st *run) check() []ExpectationResult {
	results := make([]ExpectationResult, 0, len(st.scenario.Expect))
	for _, e := range st.scenario.Expect {
		got := st.recorder.Count(e.Listener, e.Event, e.Target)
		results = append(results, ExpectationResult{
			Expectation: e,
			Got:         got,
			Passed:      got == e.Count,
		})
	}
	return results
}
