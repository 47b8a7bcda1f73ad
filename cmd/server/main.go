package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"vawter.tech/stopper"

	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/config"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/logging"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/supervisor"
)

// shutdownGrace bounds the managed server's stop on top of its own kill
// deadline.
const shutdownGrace = 5 * time.Second

func main() {
	var (
		configPath string
		autoStart  bool
	)

	cmd := &cobra.Command{
		Use:           "gsvd",
		Short:         "Game server supervisor daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath, autoStart)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the YAML configuration file")
	cmd.Flags().BoolVar(&autoStart, "start", false, "start the game server right away")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, autoStart bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := logging.New(logging.FromEnv(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}))

	metrics := supervisor.NewPrometheusMetricsCollector("")
	sup, err := supervisor.New(cfg,
		supervisor.WithLogger(logger.With("component", "supervisor")),
		supervisor.WithMetricsCollector(metrics),
	)
	if err != nil {
		return fmt.Errorf("failed to create supervisor: %w", err)
	}

	svc := NewSupervisorServiceServer(sup, cfg.Auth, logger.With("component", "api"))
	grpcSrv, err := NewGRPCServer(cfg.Listen.Address, svc)
	if err != nil {
		_ = sup.Close(context.Background())
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	sctx := stopper.WithContext(context.Background())
	failed := make(chan error, 2)

	logger.Info("server (TLS) listening", "address", grpcSrv.Addr().String())
	sctx.Go(func(*stopper.Context) error {
		if err := grpcSrv.Serve(); err != nil {
			failed <- fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	})

	var metricsSrv *metricsServer
	if cfg.Listen.MetricsAddress != "" {
		metricsSrv = newMetricsServer(cfg.Listen.MetricsAddress, metrics.Registry(), logger)
		sctx.Go(func(*stopper.Context) error {
			if err := metricsSrv.Serve(); err != nil {
				failed <- fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	if autoStart {
		sctx.Go(func(*stopper.Context) error {
			if err := sup.Start(ctx); err != nil {
				logger.Error("initial start failed", "error", err)
			}
			return nil
		})
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-failed:
		logger.Error("shutting down after failure", "error", runErr)
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.KillAfter+shutdownGrace)
	defer cancel()
	if err := sup.Close(closeCtx); err != nil {
		logger.Warn("server did not stop in time", "error", err)
	}

	grpcSrv.GracefulStop()
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(closeCtx); err != nil {
			logger.Warn("metrics shutdown", "error", err)
		}
	}

	sctx.Stop(time.Second)
	if err := sctx.Wait(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
