// Package health provides the liveness and readiness endpoints.
//
// Liveness only reports that the process is serving HTTP. Readiness runs
// every registered check concurrently, each bounded by the checker's
// timeout. Checks come in two kinds:
//
//   - critical checks (RegisterCheck): a failure makes the gateway
//     "unhealthy" and /ready answers 503. The status store is critical,
//     since without it no task status can be recorded.
//   - optional checks (RegisterOptionalCheck): a failure makes the gateway
//     "degraded" but /ready still answers 200. The upstream reachability
//     probe is optional; the gateway keeps answering with 502s while the
//     backend is down.
//
// # Usage
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("store", health.PingCheck(repo))
//	checker.RegisterOptionalCheck("upstream", health.HTTPCheck(client, baseURL))
//
//	mux.HandleFunc("GET /health", checker.LivenessHandler())
//	mux.HandleFunc("GET /ready", checker.ReadinessHandler())
package health
