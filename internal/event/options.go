package event

import "github.com/rs/zerolog"

// DefaultMaxDepth bounds nested emissions raised from callbacks.
const DefaultMaxDepth = 64

// BusOption configures an event Bus.
type BusOption func(*busConfig)

// busConfig contains configuration for the event bus.
type busConfig struct {
	logger       zerolog.Logger
	catalog      Catalog
	metrics      MetricsSink
	errorHandler ErrorHandler
	maxDepth     int
}

// defaultBusConfig returns the default configuration.
func defaultBusConfig() busConfig {
	return busConfig{
		logger:   zerolog.Nop(),
		maxDepth: DefaultMaxDepth,
	}
}

// WithLogger sets the logger used to report failures and detached emissions.
func WithLogger(l zerolog.Logger) BusOption {
	return func(c *busConfig) {
		c.logger = l
	}
}

// WithCatalog restricts the bus to the names in cat and checks payload
// types against it.
func WithCatalog(cat Catalog) BusOption {
	return func(c *busConfig) {
		c.catalog = cat
	}
}

// WithMetrics sets the sink that receives bus measurements.
func WithMetrics(m MetricsSink) BusOption {
	return func(c *busConfig) {
		c.metrics = m
	}
}

// WithErrorHandler sets a function called for every failed callback.
func WithErrorHandler(h ErrorHandler) BusOption {
	return func(c *busConfig) {
		c.errorHandler = h
	}
}

// WithMaxDepth sets the nesting limit for emissions raised from callbacks.
func WithMaxDepth(depth int) BusOption {
	return func(c *busConfig) {
		if depth > 0 {
			c.maxDepth = depth
		}
	}
}
