// Package metric exposes Prometheus metrics for respd: connection and
// command throughput, command latency, protocol failures, and store size.
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "respd"

// Registry holds all application metrics, registered on a private
// Prometheus registry so tests can create as many as they like.
type Registry struct {
	reg *prometheus.Registry

	// ConnectionsActive is the number of currently open client connections.
	ConnectionsActive prometheus.Gauge
	// ConnectionsTotal counts accepted client connections.
	ConnectionsTotal prometheus.Counter
	// CommandsTotal counts executed commands by command name.
	CommandsTotal *prometheus.CounterVec
	// CommandDuration observes command execution latency by command name.
	CommandDuration *prometheus.HistogramVec
	// DecodeErrors counts malformed frames, each of which costs the peer
	// its connection.
	DecodeErrors prometheus.Counter
	// RateLimited counts commands rejected by the per-IP rate limiter.
	RateLimited prometheus.Counter
}

// NewRegistry creates and registers all application metrics.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Number of currently open client connections.",
		}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Total accepted client connections.",
		}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Total executed commands by name.",
		}, []string{"command"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Command execution latency by name.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}, []string{"command"}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Total malformed frames received.",
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Total commands rejected by the rate limiter.",
		}),
	}

	reg.MustRegister(
		r.ConnectionsActive,
		r.ConnectionsTotal,
		r.CommandsTotal,
		r.CommandDuration,
		r.DecodeErrors,
		r.RateLimited,
	)

	return r
}

// ObserveStoreSize registers gauges that report key counts on scrape.
func (r *Registry) ObserveStoreSize(stringKeys, hashKeys func() float64) {
	r.reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "string_keys",
			Help:      "Number of keys in the flat string store.",
		}, stringKeys),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hash_keys",
			Help:      "Number of keys in the nested hash store.",
		}, hashKeys),
	)
}

// Handler returns the HTTP handler serving this registry in Prometheus
// exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
