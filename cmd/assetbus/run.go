package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dshills/assetbus/internal/event"
	"github.com/dshills/assetbus/internal/event/events"
	"github.com/dshills/assetbus/internal/metrics"
	"github.com/dshills/assetbus/internal/scenario"
	"github.com/dshills/assetbus/internal/watcher"
)

// runOptions are the flags of the run command.
type runOptions struct {
	scripts     []string
	watch       bool
	metricsAddr string
	asJSON      bool
}

func newRunCmd(c *cli) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Replay a scenario and print the delivery log",
		Example: "  assetbus run examples/browse.yaml\n" +
			"  assetbus run examples/browse.yaml --script extra.lua --watch\n" +
			"  assetbus run examples/browse.yaml --metrics-addr :9090 --watch",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("metrics-addr") {
				opts.metricsAddr = c.cfg.Metrics.Addr
			}
			return c.run(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVar(&opts.scripts, "script", nil, "additional Lua script to load (repeatable)")
	flags.BoolVar(&opts.watch, "watch", false, "re-run when the scenario or its scripts change")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	flags.BoolVar(&opts.asJSON, "json", false, "print reports as JSON")
	return cmd
}

// run replays the scenario once, or until ctx is done when watching.
func (c *cli) run(ctx context.Context, out io.Writer, path string, opts runOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var sink event.MetricsSink
	serverErr := make(chan error, 1)
	if opts.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		collector, err := metrics.New(reg)
		if err != nil {
			return err
		}
		sink = collector
		srv := metrics.NewServer(opts.metricsAddr, reg, c.log)
		go func() {
			serverErr <- srv.Run(ctx)
		}()
	}

	scripts := append(append([]string(nil), c.cfg.Scripts.Paths...), opts.scripts...)
	err := c.runOnce(ctx, out, path, scripts, sink, opts.asJSON)
	if opts.watch {
		if err != nil {
			c.log.Error().Err(err).Str("scenario", path).Msg("run failed")
		}
		err = c.watch(ctx, out, path, scripts, sink, opts.asJSON)
	}

	cancel()
	if opts.metricsAddr != "" {
		if serr := <-serverErr; serr != nil && err == nil {
			err = fmt.Errorf("metrics server: %w", serr)
		}
	}
	return err
}

// runOnce loads the scenario, replays it and writes the report.
func (c *cli) runOnce(ctx context.Context, out io.Writer, path string, scripts []string, sink event.MetricsSink, asJSON bool) error {
	catalog := events.Catalog()
	sc, err := scenario.Load(path, catalog)
	if err != nil {
		return err
	}

	busOpts := c.cfg.BusOptions()
	if c.cfg.Bus.Strict {
		busOpts = append(busOpts, event.WithCatalog(catalog))
	}
	timeout := c.cfg.Scripts.CallTimeout
	if timeout == 0 {
		timeout = -1
	}

	runnerOpts := []scenario.RunnerOption{
		scenario.WithLogger(c.log),
		scenario.WithBusOptions(busOpts...),
		scenario.WithScripts(scripts...),
		scenario.WithScriptTimeout(timeout),
	}
	if sink != nil {
		runnerOpts = append(runnerOpts, scenario.WithMetrics(sink))
	}

	report, err := scenario.NewRunner(sc, catalog, runnerOpts...).Run(ctx)
	if report != nil {
		var werr error
		if asJSON {
			werr = report.WriteJSON(out)
		} else {
			werr = report.WriteText(out)
		}
		if werr != nil && err == nil {
			err = werr
		}
	}
	return err
}

// watch re-runs the scenario whenever it or one of its scripts changes.
func (c *cli) watch(ctx context.Context, out io.Writer, path string, scripts []string, sink event.MetricsSink, asJSON bool) error {
	w, err := watcher.New(
		watcher.WithDebounce(c.cfg.Watch.Debounce),
		watcher.WithLogger(c.log),
	)
	if err != nil {
		return err
	}
	defer w.Close()

	track := func() {
		paths := append([]string{path}, scripts...)
		if sc, err := scenario.Load(path, nil); err == nil {
			paths = append(paths, sc.ScriptPaths()...)
		}
		for _, p := range paths {
			if err := w.Add(p); err != nil {
				c.log.Warn().Err(err).Str("path", p).Msg("cannot watch")
			}
		}
	}
	track()
	c.log.Info().Strs("files", w.Files()).Msg("watching for changes")

	batches := w.Batches(ctx)
	errs := w.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			c.log.Warn().Err(err).Msg("watch error")
		case b, ok := <-batches:
			if !ok {
				return nil
			}
			c.log.Info().Strs("changed", b.Paths()).Dur("settled", time.Since(b.First)).Msg("re-running")
			if err := c.runOnce(ctx, out, path, scripts, sink, asJSON); err != nil && !errors.Is(err, context.Canceled) {
				c.log.Error().Err(err).Str("scenario", path).Msg("run failed")
			}
			track()
		}
	}
}
