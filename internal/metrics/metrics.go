// Package metrics exports event bus measurements as Prometheus collectors
// and serves them over HTTP.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/assetbus/internal/event"
)

const (
	namespace = "assetbus"
	subsystem = "bus"
)

// Collector implements event.MetricsSink on top of Prometheus vectors.
type Collector struct {
	emissions        *prometheus.CounterVec
	detached         *prometheus.CounterVec
	dropped          *prometheus.CounterVec
	deliveries       *prometheus.CounterVec
	deliveryDuration *prometheus.HistogramVec
	subscriptions    prometheus.Gauge
}

// New creates the bus collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		emissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "emissions_total",
				Help:      "Total number of emissions accepted by the bus",
			},
			[]string{"event"},
		),
		detached: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "detached_emissions_total",
				Help:      "Emissions raised from nodes not attached to a root",
			},
			[]string{"event"},
		),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "dropped_emissions_total",
				Help:      "Emissions refused because nesting was too deep",
			},
			[]string{"event"},
		),
		deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "deliveries_total",
				Help:      "Callback executions by outcome",
			},
			[]string{"event", "outcome"},
		),
		deliveryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "delivery_duration_seconds",
				Help:      "Duration of callback executions in seconds",
				Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"event"},
		),
		subscriptions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "subscriptions",
				Help:      "Live subscriptions",
			},
		),
	}

	for _, col := range []prometheus.Collector{
		c.emissions, c.detached, c.dropped, c.deliveries, c.deliveryDuration, c.subscriptions,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ObserveEmission implements event.MetricsSink.
func (c *Collector) ObserveEmission(name event.Name, detached bool) {
	c.emissions.WithLabelValues(string(name)).Inc()
	if detached {
		c.detached.WithLabelValues(string(name)).Inc()
	}
}

// ObserveDropped implements event.MetricsSink.
func (c *Collector) ObserveDropped(name event.Name) {
	c.dropped.WithLabelValues(string(name)).Inc()
}

// ObserveDelivery implements event.MetricsSink.
func (c *Collector) ObserveDelivery(name event.Name, outcome event.Outcome, d time.Duration) {
	c.deliveries.WithLabelValues(string(name), string(outcome)).Inc()
	c.deliveryDuration.WithLabelValues(string(name)).Observe(d.Seconds())
}

// SetSubscriptions implements event.MetricsSink.
func (c *Collector) SetSubscriptions(n int) {
	c.subscriptions.Set(float64(n))
}

var _ event.MetricsSink = (*Collector)(nil)
