package metrics

import (
	"mercator-hq/taskgate/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ForwardMetrics tracks requests passing through the forwarding engine.
type ForwardMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        *prometheus.GaugeVec
	upstreamErrors  *prometheus.CounterVec
	heartbeats      prometheus.Counter
}

// NewForwardMetrics creates and registers forwarding metrics.
func NewForwardMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *ForwardMetrics {
	fm := &ForwardMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "proxy",
				Name:      "requests_total",
				Help:      "Total number of forwarded requests by final task state",
			},
			[]string{"stream", "state"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "proxy",
				Name:      "request_duration_seconds",
				Help:      "Duration of forwarded requests in seconds, including the full stream",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"stream"},
		),

		inFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: "proxy",
				Name:      "in_flight",
				Help:      "Number of requests currently being forwarded",
			},
			[]string{"stream"},
		),

		upstreamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "proxy",
				Name:      "upstream_errors_total",
				Help:      "Total number of forwarding failures by category",
			},
			[]string{"category"},
		),

		heartbeats: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "proxy",
				Name:      "heartbeats_total",
				Help:      "Total number of heartbeat status writes during streams",
			},
		),
	}

	registry.MustRegister(
		fm.requestsTotal,
		fm.requestDuration,
		fm.inFlight,
		fm.upstreamErrors,
		fm.heartbeats,
	)

	return fm
}
