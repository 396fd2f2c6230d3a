package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/taskgate/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func testConfig(enabled bool) config.MetricsConfig {
	return config.MetricsConfig{
		Enabled:                &enabled,
		Namespace:              "taskgate",
		RequestDurationBuckets: []float64{0.1, 1, 10},
	}
}

func TestCollector_ForwardLifecycle(t *testing.T) {
	c := NewCollector(testConfig(true), prometheus.NewRegistry())

	c.ForwardStarted(true)
	c.ForwardStarted(false)

	if got := testutil.ToFloat64(c.forward.inFlight.WithLabelValues("true")); got != 1 {
		t.Errorf("in_flight{stream=true} = %v, want 1", got)
	}

	c.ForwardFinished(true, "SUCCESS", 2*time.Second)
	c.ForwardFinished(false, "FAILED", 50*time.Millisecond)

	if got := testutil.ToFloat64(c.forward.inFlight.WithLabelValues("true")); got != 0 {
		t.Errorf("in_flight{stream=true} = %v, want 0", got)
	}
	if got := testutil.ToFloat64(c.forward.requestsTotal.WithLabelValues("true", "SUCCESS")); got != 1 {
		t.Errorf("requests_total{true,SUCCESS} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.forward.requestsTotal.WithLabelValues("false", "FAILED")); got != 1 {
		t.Errorf("requests_total{false,FAILED} = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(c.forward.requestDuration); got != 2 {
		t.Errorf("request_duration series = %d, want 2", got)
	}
}

func TestCollector_Counters(t *testing.T) {
	c := NewCollector(testConfig(true), nil)

	c.RecordUpstreamError("connection_refused")
	c.RecordUpstreamError("connection_refused")
	c.RecordHeartbeat()
	c.RecordStatusWrite("RUNNING")
	c.RecordStoreError("put")

	if got := testutil.ToFloat64(c.forward.upstreamErrors.WithLabelValues("connection_refused")); got != 2 {
		t.Errorf("upstream_errors_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.forward.heartbeats); got != 1 {
		t.Errorf("heartbeats_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.status.writesTotal.WithLabelValues("RUNNING")); got != 1 {
		t.Errorf("writes_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.status.storeErrors.WithLabelValues("put")); got != 1 {
		t.Errorf("store_errors_total = %v, want 1", got)
	}
}

func TestCollector_Disabled(t *testing.T) {
	c := NewCollector(testConfig(false), nil)

	c.ForwardStarted(true)
	c.ForwardFinished(true, "SUCCESS", time.Second)
	c.RecordHeartbeat()
	c.RecordStatusWrite("PENDING")

	if c.Enabled() {
		t.Error("Enabled() = true, want false")
	}
	if got := testutil.ToFloat64(c.forward.heartbeats); got != 0 {
		t.Errorf("heartbeats_total = %v, want 0", got)
	}
	if got := testutil.CollectAndCount(c.status.writesTotal); got != 0 {
		t.Errorf("writes_total series = %d, want 0", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector(testConfig(true), nil)
	c.RecordStatusWrite("SUCCESS")
	c.RecordUpstreamError("timeout")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`taskgate_status_writes_total{state="SUCCESS"} 1`,
		`taskgate_proxy_upstream_errors_total{category="timeout"} 1`,
		"taskgate_proxy_heartbeats_total 0",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
