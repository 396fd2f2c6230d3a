package metrics

import (
	"strconv"
	"time"

	"mercator-hq/taskgate/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Collector owns the Prometheus registry and every taskgate metric.
type Collector struct {
	enabled  bool
	registry *prometheus.Registry

	forward *ForwardMetrics
	status  *StatusMetrics
}

// NewCollector creates a collector and registers all metrics on registry.
// A nil registry gets a fresh private one. Go runtime and process
// collectors are registered alongside the taskgate metrics.
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		cfg.RequestDurationBuckets = config.DefaultRequestDurationBuckets
	}

	c := &Collector{
		enabled:  cfg.IsEnabled(),
		registry: registry,
		forward:  NewForwardMetrics(cfg, registry),
		status:   NewStatusMetrics(cfg, registry),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Enabled reports whether recording is active.
func (c *Collector) Enabled() bool {
	return c.enabled
}

// ForwardStarted marks a forward as in flight.
func (c *Collector) ForwardStarted(stream bool) {
	if !c.enabled {
		return
	}
	c.forward.inFlight.WithLabelValues(streamLabel(stream)).Inc()
}

// ForwardFinished records a completed forward with the task's final state.
func (c *Collector) ForwardFinished(stream bool, state string, duration time.Duration) {
	if !c.enabled {
		return
	}
	label := streamLabel(stream)
	c.forward.inFlight.WithLabelValues(label).Dec()
	c.forward.requestsTotal.WithLabelValues(label, state).Inc()
	c.forward.requestDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordUpstreamError counts a forwarding failure by category.
func (c *Collector) RecordUpstreamError(category string) {
	if !c.enabled {
		return
	}
	c.forward.upstreamErrors.WithLabelValues(category).Inc()
}

// RecordHeartbeat counts one heartbeat write.
func (c *Collector) RecordHeartbeat() {
	if !c.enabled {
		return
	}
	c.forward.heartbeats.Inc()
}

// RecordStatusWrite counts a successful status write.
func (c *Collector) RecordStatusWrite(state string) {
	if !c.enabled {
		return
	}
	c.status.writesTotal.WithLabelValues(state).Inc()
}

// RecordStoreError counts a failed store operation.
func (c *Collector) RecordStoreError(op string) {
	if !c.enabled {
		return
	}
	c.status.storeErrors.WithLabelValues(op).Inc()
}

func streamLabel(stream bool) string {
	return strconv.FormatBool(stream)
}
