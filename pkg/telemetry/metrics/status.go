package metrics

import (
	"mercator-hq/taskgate/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// StatusMetrics tracks writes to the status store.
type StatusMetrics struct {
	writesTotal *prometheus.CounterVec
	storeErrors *prometheus.CounterVec
}

// NewStatusMetrics creates and registers status store metrics.
func NewStatusMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *StatusMetrics {
	sm := &StatusMetrics{
		writesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "status",
				Name:      "writes_total",
				Help:      "Total number of status events written by state",
			},
			[]string{"state"},
		),

		storeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "status",
				Name:      "store_errors_total",
				Help:      "Total number of failed status store operations",
			},
			[]string{"op"},
		),
	}

	registry.MustRegister(sm.writesTotal, sm.storeErrors)

	return sm
}
