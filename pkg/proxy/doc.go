// Package proxy forwards inference requests to the upstream and records the
// lifecycle of every forwarded request as a task.
//
// # Forwarding
//
// Engine.Forward reads the inbound body, decides whether the caller asked
// for a stream (a JSON object body with "stream": true), writes PENDING
// and RUNNING through a status.Task, and sends the request upstream with
// the same method, path, query, headers and body bytes.
//
// Buffered responses are read in full, the terminal state is written, and
// only then is the response relayed. Streaming responses commit the
// upstream status and headers first, then relay chunks as they arrive.
// While a stream is open the engine writes a RUNNING heartbeat whenever
// the heartbeat interval has passed since the last status write, even if
// the upstream is silent.
//
// # Failures
//
// Every failure becomes a *ForwardError carrying a Category. Failures
// before anything was relayed answer the caller with 502 in the JSON error
// envelope from the types package. Failures after the upstream head was
// committed set ForwardError.Committed, and the HTTP handler aborts the
// connection so the caller sees a truncated stream.
//
// # Headers
//
// Hop-by-hop headers are stripped from relayed responses. All other
// headers, including repeated ones such as Set-Cookie, pass through, and
// X-Task-Id is always set to the task id.
package proxy
