// Package config loads assetbus settings.
//
// Settings come from three layers, later layers overriding earlier ones:
//
//  1. Built-in defaults (Default)
//  2. A TOML or YAML file, chosen by extension
//  3. ASSETBUS_* environment variables
//
// Layers are merged as nested maps and decoded into Config once, so a file
// only needs to mention the settings it changes.
package config

import (
	"fmt"
	"net"
	"time"

	"github.com/dshills/assetbus/internal/event"
	"github.com/dshills/assetbus/internal/logging"
)

// Config holds runtime settings.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Bus     BusConfig     `mapstructure:"bus"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Scripts ScriptConfig  `mapstructure:"scripts"`
	Watch   WatchConfig   `mapstructure:"watch"`
}

// LogConfig configures the zerolog logger.
type LogConfig struct {
	// Level is a zerolog level name or "off".
	Level string `mapstructure:"level"`

	// Format is "console" or "json".
	Format string `mapstructure:"format"`
}

// BusConfig configures the event bus.
type BusConfig struct {
	// MaxDepth bounds emissions raised from inside callbacks.
	MaxDepth int `mapstructure:"max_depth"`

	// Strict rejects names and payloads outside the event catalog.
	Strict bool `mapstructure:"strict"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address; empty disables the endpoint.
	Addr string `mapstructure:"addr"`
}

// ScriptConfig configures the Lua host.
type ScriptConfig struct {
	// Paths are scripts loaded for every scenario run.
	Paths []string `mapstructure:"paths"`

	// CallTimeout bounds a single script callback; zero means no limit.
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

// WatchConfig configures re-runs on file changes.
type WatchConfig struct {
	// Debounce is how long to wait for writes to settle.
	Debounce time.Duration `mapstructure:"debounce"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatConsole,
		},
		Bus: BusConfig{
			MaxDepth: event.DefaultMaxDepth,
			Strict:   true,
		},
		Scripts: ScriptConfig{
			CallTimeout: time.Second,
		},
		Watch: WatchConfig{
			Debounce: 200 * time.Millisecond,
		},
	}
}

// Validate checks settings that decoding alone cannot.
func (c Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return &ValidationError{Path: "log.level", Value: c.Log.Level, Err: err}
	}
	switch c.Log.Format {
	case logging.FormatConsole, logging.FormatJSON:
	default:
		return &ValidationError{Path: "log.format", Value: c.Log.Format, Err: fmt.Errorf("must be %q or %q", logging.FormatConsole, logging.FormatJSON)}
	}
	if c.Bus.MaxDepth <= 0 {
		return &ValidationError{Path: "bus.max_depth", Value: c.Bus.MaxDepth, Err: fmt.Errorf("must be positive")}
	}
	if c.Metrics.Addr != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Addr); err != nil {
			return &ValidationError{Path: "metrics.addr", Value: c.Metrics.Addr, Err: err}
		}
	}
	if c.Scripts.CallTimeout < 0 {
		return &ValidationError{Path: "scripts.call_timeout", Value: c.Scripts.CallTimeout, Err: fmt.Errorf("must not be negative")}
	}
	if c.Watch.Debounce < 0 {
		return &ValidationError{Path: "watch.debounce", Value: c.Watch.Debounce, Err: fmt.Errorf("must not be negative")}
	}
	return nil
}

// BusOptions returns the bus options implied by the settings.
func (c Config) BusOptions() []event.BusOption {
	return []event.BusOption{event.WithMaxDepth(c.Bus.MaxDepth)}
}
