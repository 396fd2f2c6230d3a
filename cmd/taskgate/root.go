package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "taskgate",
	Short: "Taskgate - task status gateway for Ollama",
	Long: `Taskgate is a transparent HTTP gateway in front of an Ollama server.

Requests are forwarded unchanged while the gateway records each task's
lifecycle (PENDING, RUNNING, SUCCESS, FAILED) in a TTL store, so other
services can follow long-running generations by task id.

Configuration comes from an optional YAML file and the environment
(UPSTREAM_BASE, REDIS_HOST, TTL_RUNNING, HEARTBEAT_SEC, ...).`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and reports any error on stderr.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults and environment only when empty)")
}
