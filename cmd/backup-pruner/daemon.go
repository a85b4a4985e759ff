package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shyim/backup-pruner/internal/api"
	"github.com/shyim/backup-pruner/internal/pruner"
	"github.com/shyim/backup-pruner/internal/scheduler"
	"github.com/spf13/cobra"
)

const jobName = "prune"

var daemonCmd = &cobra.Command{
	Use:   "daemon [path]",
	Short: "Apply the retention policy on a schedule",
	Long:  "Run the prune command on a cron schedule until interrupted. Runs never overlap.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDaemon,
}

func init() {
	addPruneFlags(daemonCmd)
	daemonCmd.Flags().StringVar(&cfg.Schedule, "schedule", cfg.Schedule, "Cron schedule (5 fields) for prune runs")
	daemonCmd.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", "", "Expose Prometheus metrics on address (e.g., :9090)")
	daemonCmd.Flags().DurationVar(&cfg.RunTimeout, "run-timeout", cfg.RunTimeout, "Maximum duration of a single prune run")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		cfg.Root = args[0]
	}

	if cfg.RunTimeout < 0 {
		return fmt.Errorf("run timeout must not be negative")
	}

	setup, err := newPruneSetup()
	if err != nil {
		return err
	}

	nextRun, err := scheduler.NextRun(cfg.Schedule, time.Now())
	if err != nil {
		return err
	}

	slog.Info("starting backup-pruner daemon",
		"pool", setup.pool,
		"policy", setup.pipeline.String(),
		"schedule", cfg.Schedule,
		"dry_run", cfg.DryRun,
	)

	runner := pruner.NewRunner(setup.pruner, setup.options)

	sched := scheduler.New(scheduler.WithTimeout(cfg.RunTimeout))
	if err := sched.AddJob(jobName, cfg.Schedule, func(ctx context.Context) {
		result, err := runner.Run(ctx, false)
		if errors.Is(err, pruner.ErrRunInProgress) {
			slog.Warn("skipping scheduled prune, another run is in progress")
			return
		}
		if err != nil {
			slog.Error("scheduled prune failed", "error", err)
			return
		}
		if failed := result.Failed(); failed > 0 {
			slog.Warn("some backups could not be deleted", "failed", failed, "error", result.Err())
		}
	}); err != nil {
		return err
	}

	// Initialize API server (Unix socket)
	apiServer := api.NewServer(socketPath, runner)
	apiServer.SetRunTimeout(cfg.RunTimeout)
	apiServer.SetNextRun(func() time.Time {
		for _, job := range sched.ListJobs() {
			if job.Name == jobName {
				return job.NextRun
			}
		}
		return time.Time{}
	})

	go func() {
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("API server error", "error", err)
		}
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			slog.Info("metrics server listening", "addr", cfg.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server error", "error", err)
			}
		}()
	}

	sched.Start()
	slog.Info("next prune scheduled", "at", nextRun)

	// Wait for shutdown signal
	<-cmd.Context().Done()
	slog.Info("received shutdown signal")

	// Graceful shutdown
	<-sched.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("API server shutdown error", "error", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("metrics server shutdown error", "error", err)
		}
	}

	slog.Info("daemon stopped")
	return nil
}

