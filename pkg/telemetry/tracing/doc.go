// Package tracing provides OpenTelemetry tracing for taskgate.
//
// When tracing is disabled New returns a Tracer backed by a noop provider,
// so callers always start and end spans unconditionally. When enabled,
// spans are batched to an OTLP gRPC collector and sampled according to
// telemetry.tracing.sampler:
//
//   - always: sample every trace
//   - never: sample nothing
//   - ratio: sample telemetry.tracing.sample_ratio of new traces
//
// Every sampler is wrapped in ParentBased, so an inbound traceparent header
// decides for the whole trace. HTTPMiddleware extracts that header on the
// way in. Nothing is injected into requests sent upstream; the gateway
// forwards inbound headers unmodified.
//
// # Usage
//
//	tracer, err := tracing.New(cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "proxy.forward")
//	defer span.End()
package tracing
