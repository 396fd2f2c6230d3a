package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"mercator-hq/taskgate/pkg/cli"
	"mercator-hq/taskgate/pkg/config"
	"mercator-hq/taskgate/pkg/status"
)

var statusFlags struct {
	output  string
	limit   int
	timeout time.Duration
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Inspect task status in the configured store",
	Long: `Read task status entries directly from the configured store.

This mirrors the gateway's /tasks/status endpoints for operators without
HTTP access to the gateway.

Examples:
  # Show one task
  taskgate status get 7c1f6f0e-5d1e-4f43-9a43-0b8f6f0e1a2b

  # List live tasks as a table
  taskgate status list --limit 20 --output text`,
}

var statusGetCmd = &cobra.Command{
	Use:   "get <task-id>",
	Short: "Show the current status of one task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepository(cmd, func(ctx context.Context, repo *status.Repository) (any, error) {
			return repo.Get(ctx, args[0])
		})
	},
}

var statusListCmd = &cobra.Command{
	Use:   "list",
	Short: "List live tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepository(cmd, func(ctx context.Context, repo *status.Repository) (any, error) {
			if statusFlags.limit <= 0 {
				return nil, cli.NewConfigError("--limit", "must be positive")
			}
			events, err := repo.List(ctx, statusFlags.limit)
			if events == nil {
				events = []*status.Event{}
			}
			return events, err
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.AddCommand(statusGetCmd, statusListCmd)

	statusCmd.PersistentFlags().StringVarP(&statusFlags.output, "output", "o", string(cli.FormatJSON), "output format (json, text, csv)")
	statusCmd.PersistentFlags().DurationVar(&statusFlags.timeout, "timeout", 5*time.Second, "store read timeout")
	statusListCmd.Flags().IntVar(&statusFlags.limit, "limit", config.DefaultListDefaultLimit, "maximum number of tasks to list")
}

// withRepository opens the configured store, runs read and prints its
// result in the selected format.
func withRepository(cmd *cobra.Command, read func(context.Context, *status.Repository) (any, error)) error {
	format, err := cli.ParseOutputFormat(statusFlags.output)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("config", fmt.Sprintf("failed to load config: %v", err))
	}

	// Command output goes to stdout; keep store logging out of it.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo, closer, err := openRepository(cfg, logger)
	if err != nil {
		return cli.NewCommandError(cmd.Name(), err)
	}
	defer closer.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), statusFlags.timeout)
	defer cancel()

	result, err := read(ctx, repo)
	if err != nil {
		var cfgErr *cli.ConfigError
		if errors.As(err, &cfgErr) {
			return err
		}
		return cli.NewCommandError(cmd.Name(), err)
	}

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), result)
}
