// Package metrics exposes taskgate's Prometheus metrics.
//
// All metrics live on a private registry owned by the Collector and are
// served by Collector.Handler. With the default namespace the exported
// series are:
//
//	taskgate_proxy_requests_total{stream,state}
//	taskgate_proxy_request_duration_seconds{stream}
//	taskgate_proxy_in_flight{stream}
//	taskgate_proxy_upstream_errors_total{category}
//	taskgate_proxy_heartbeats_total
//	taskgate_status_writes_total{state}
//	taskgate_status_store_errors_total{op}
//
// The Collector satisfies both the forwarding engine's recorder and the
// status tracker's observer, so one instance is shared by the whole
// process. When metrics are disabled every recording method is a no-op.
package metrics
