package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"mercator-hq/taskgate/pkg/cli"
	"mercator-hq/taskgate/pkg/config"
	"mercator-hq/taskgate/pkg/proxy"
	"mercator-hq/taskgate/pkg/server"
	"mercator-hq/taskgate/pkg/status"
	"mercator-hq/taskgate/pkg/status/store"
	"mercator-hq/taskgate/pkg/telemetry/health"
	"mercator-hq/taskgate/pkg/telemetry/logging"
	"mercator-hq/taskgate/pkg/telemetry/metrics"
	"mercator-hq/taskgate/pkg/telemetry/tracing"
)

var serveFlags struct {
	listenAddress string
	logLevel      string
	watch         bool
	dryRun        bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the taskgate gateway",
	Long: `Start the gateway with the specified configuration.

The gateway listens on the configured address, forwards every request under
the route prefix to the upstream Ollama server, and records task status in
the configured store.

Examples:
  # Start with defaults and environment overrides
  taskgate serve

  # Start with a config file and reload the log level when it changes
  taskgate serve --config /etc/taskgate/config.yaml --watch

  # Override listen address
  taskgate serve --listen 0.0.0.0:8080

  # Validate config without starting the gateway
  taskgate serve --dry-run`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	serveCmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&serveFlags.watch, "watch", false, "reload the log level when the config file changes")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config without starting the gateway")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("config", fmt.Sprintf("failed to load config: %v", err))
	}

	// Apply flag overrides
	if serveFlags.listenAddress != "" {
		cfg.Proxy.ListenAddress = serveFlags.listenAddress
	}
	if serveFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = serveFlags.logLevel
	}
	if serveFlags.watch && cfgFile == "" {
		return cli.NewConfigError("--watch", "requires --config")
	}

	logs, err := logging.New(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
	})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	logger := logs.Slog()
	slog.SetDefault(logger)

	out := cmd.OutOrStdout()
	if serveFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	fmt.Fprintf(out, "Taskgate v%s\n", Version)
	if cfgFile != "" {
		fmt.Fprintf(out, "Loading configuration from: %s\n", cfgFile)
	}
	fmt.Fprintln(out, "✓ Configuration loaded")

	ctx, cancel := cli.SetupSignalHandler()
	defer cancel()

	// Status store
	repo, closer, err := openRepository(cfg, logger)
	if err != nil {
		return cli.NewCommandError("serve", fmt.Errorf("failed to open status store: %w", err))
	}
	defer closer.Close()

	if purger, ok := closer.(store.Purger); ok && cfg.Store.SweepSchedule != "" {
		sweeper := store.NewSweeper(purger, cfg.Store.SweepSchedule, logger)
		if err := sweeper.Start(ctx); err != nil {
			slog.Warn("failed to start store sweeper", "error", err)
		} else {
			defer sweeper.Stop()
			if next := sweeper.NextRun(); next != nil {
				slog.Debug("store sweeper started", "next_run", next)
			}
		}
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
	if err := repo.Ping(pingCtx); err != nil {
		// Writes are best effort; readiness reports the store until it recovers.
		slog.Warn("status store unreachable at startup", "backend", cfg.Store.Backend, "error", err)
	}
	pingCancel()
	fmt.Fprintf(out, "✓ Status store initialized (%s)\n", cfg.Store.Backend)

	// Telemetry
	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)

	tracer, err := tracing.New(cfg.Telemetry.Tracing, Version)
	if err != nil {
		return cli.NewCommandError("serve", fmt.Errorf("failed to initialize tracing: %w", err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("tracer shutdown failed", "error", err)
		}
	}()

	// Task lifecycle and forwarding
	tracker, err := status.NewTracker(status.TrackerConfig{
		Repository:       repo,
		Builder:          status.NewBuilder(cfg.Status.AlgorithmID),
		WriteTimeout:     cfg.Status.WriteTimeout,
		HeartbeatTimeout: cfg.Status.HeartbeatWriteTimeout,
		Logger:           logger,
		Observer:         collector,
	})
	if err != nil {
		return cli.NewCommandError("serve", err)
	}

	client := proxy.NewUpstreamClient(cfg.Upstream)
	engine, err := proxy.NewEngine(proxy.EngineConfig{
		UpstreamBaseURL:   cfg.Upstream.BaseURL,
		Tracker:           tracker,
		Client:            client,
		HeartbeatInterval: cfg.Status.HeartbeatInterval,
		MaxBodyBytes:      cfg.Proxy.MaxBodyBytes,
		Logger:            logger,
		Metrics:           collector,
		Tracer:            tracer,
	})
	if err != nil {
		return cli.NewConfigError("upstream.base_url", err.Error())
	}

	checker := health.New(0)
	checker.RegisterCheck("store", health.PingCheck(repo))
	checker.RegisterOptionalCheck("upstream", health.HTTPCheck(client, cfg.Upstream.BaseURL+"/api/version"))

	srv, err := server.NewServer(server.Options{
		Config:    cfg,
		Forwarder: engine,
		Status:    repo,
		Health:    checker,
		Metrics:   collector,
		Version:   Version,
		Commit:    GitCommit,
		BuildTime: BuildDate,
		Logger:    logger,
	})
	if err != nil {
		return cli.NewCommandError("serve", err)
	}

	// Live log level changes
	applyReload := func(next *config.Config) {
		level := next.Telemetry.Logging.Level
		if serveFlags.logLevel != "" {
			level = serveFlags.logLevel
		}
		if err := logs.SetLevel(level); err != nil {
			slog.Warn("ignoring invalid log level", "level", level, "error", err)
			return
		}
		slog.Info("configuration reloaded", "log_level", level)
	}

	if serveFlags.watch {
		watcher, err := config.NewWatcher(cfgFile, 0, logger)
		if err != nil {
			return cli.NewCommandError("serve", err)
		}
		defer watcher.Stop()
		go func() {
			if err := watcher.Watch(ctx, applyReload); err != nil {
				slog.Error("config watcher failed", "error", err)
			}
		}()
	}

	hup, stopHup := cli.ReloadSignal()
	defer stopHup()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				next, err := config.LoadConfigWithEnvOverrides(cfgFile)
				if err != nil {
					slog.Error("reload failed, keeping current configuration", "error", err)
					continue
				}
				applyReload(next)
			}
		}
	}()

	fmt.Fprintln(out)
	fmt.Fprintf(out, "✓ Gateway listening on %s\n", cfg.Proxy.ListenAddress)
	fmt.Fprintf(out, "✓ Proxy route: %s -> %s\n", cfg.Proxy.RoutePrefix, cfg.Upstream.BaseURL)
	fmt.Fprintf(out, "✓ Health endpoint: http://%s/health\n", cfg.Proxy.ListenAddress)
	if collector.Enabled() {
		fmt.Fprintf(out, "✓ Metrics endpoint: http://%s%s\n", cfg.Proxy.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	if err := srv.Start(ctx); err != nil {
		slog.Error("gateway stopped with error", "error", err)
		return cli.NewCommandError("serve", err)
	}

	fmt.Fprintln(out, "✓ Gateway stopped")
	return nil
}
