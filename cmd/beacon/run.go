package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/beacon/internal/clock"
	"github.com/justapithecus/beacon/internal/config"
	"github.com/justapithecus/beacon/internal/lifecycle"
	"github.com/justapithecus/beacon/internal/metrics"
	"github.com/justapithecus/beacon/internal/paths"
	"github.com/justapithecus/beacon/internal/publisher"
	"github.com/justapithecus/beacon/internal/scheduler"
	"github.com/justapithecus/beacon/internal/settings"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "run the tracker and publisher as a long-lived process",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "watch-settings", Usage: "hot-swap when the settings file is edited externally"},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	logger := newLogger(c)

	cfg, err := config.Load(configPath(c))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	spoolDir := cfg.SpoolDir
	if spoolDir == "" {
		spoolDir = paths.SpoolDirectory()
	}

	sched := scheduler.NewReal()
	defer sched.Close()

	coord := lifecycle.Default()
	collector := metrics.NewCollector()
	coord.SetMetrics(collector)

	optedIn := settings.GetInstance(logger, paths.SettingsFile(), clock.System).HasOptedIn()
	st, err := coord.UpdateSettingsAndTracker(logger, sched, paths.SettingsFile(), spoolDir, clock.System, optedIn)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if cfg.DebugDisablePublishing {
		if err := st.SetDebugDisablePublishing(true); err != nil {
			logger.Warn("failed to persist debug_disable_publishing", map[string]any{"error": err.Error()})
		}
	}

	// The real environment/OS-introspection helper lives outside this
	// core; GOOS is a placeholder stand-in for a host-supplied value.
	osInfo := publisher.OSInfo{Name: runtime.GOOS}
	coord.UpdatePublisher(logger, sched, st, spoolDir, clock.System, osInfo, cfg.ServerURL, cfg.PublishInterval.Duration)

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics server stopped", map[string]any{"error": err.Error()})
			}
		}()
		defer metricsServer.Close()
	}

	if c.Bool("watch-settings") {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if err := coord.WatchSettingsFile(ctx, logger, sched, paths.SettingsFile(), spoolDir, clock.System); err != nil {
			logger.Warn("failed to start settings watcher", map[string]any{"error": err.Error()})
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down", nil)
	if err := coord.Tracker().Close(); err != nil {
		logger.Warn("failed to close tracker", map[string]any{"error": err.Error()})
	}
	coord.Publisher().Close()
	return nil
}
