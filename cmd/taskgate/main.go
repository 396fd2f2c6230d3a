// Taskgate is a transparent HTTP gateway in front of an Ollama server that
// records the lifecycle of every proxied request as a task status.
//
// Every request gets a task id (the caller's X-Task-Id, or a generated
// one). While the request is in flight its status moves through PENDING,
// RUNNING and finally SUCCESS or FAILED in a TTL store, with heartbeats
// while a streaming response is open.
//
// Usage:
//
//	# Start the gateway with defaults and environment overrides
//	taskgate serve
//
//	# Start with a configuration file, reloading the log level on change
//	taskgate serve --config /etc/taskgate/config.yaml --watch
//
//	# Inspect task status directly from the store
//	taskgate status get 7c1f6f0e-5d1e-4f43-9a43-0b8f6f0e1a2b
//	taskgate status list --limit 20
//
//	# Show version information
//	taskgate version
package main

import (
	"os"

	"mercator-hq/taskgate/pkg/cli"
)

func main() {
	os.Exit(cli.ExitCode(Execute()))
}
