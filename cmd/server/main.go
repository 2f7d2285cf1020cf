package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/trogers1052/stock-sentiment-service/internal/api"
	"github.com/trogers1052/stock-sentiment-service/internal/config"
	"github.com/trogers1052/stock-sentiment-service/internal/kafka"
	"github.com/trogers1052/stock-sentiment-service/internal/logger"
	"github.com/trogers1052/stock-sentiment-service/internal/metrics"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "sentiment-service",
		Short:        "News sentiment tracking for NSE stocks",
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API, websocket push and background sweeps",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply pending PostgreSQL migrations and exit",
			RunE:  runMigrate,
		},
		&cobra.Command{
			Use:   "sweep",
			Short: "Run one analysis sweep over every tracked stock and exit",
			RunE:  runSweep,
		},
		&cobra.Command{
			Use:   "purge",
			Short: "Delete sentiment records older than the retention age and exit",
			RunE:  runPurge,
		},
	)
	return root
}

// bootstrap loads configuration and builds the process logger
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	base, err := logger.New(cfg.App.LogLevel, cfg.App.Env, cfg.App.SentryDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, base, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, base, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Flush(base)
	log := base.Sugar()

	metrics.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Errorw("Failed to start service", "error", err)
		return err
	}
	defer a.Close()

	if cfg.Sweep.Enabled {
		if err := a.sweeper.Start(ctx); err != nil {
			return err
		}
	}

	var consumer *kafka.AnalysisConsumer
	if cfg.Kafka.Enabled {
		consumer = kafka.NewAnalysisConsumer(
			cfg.Kafka.Brokers,
			cfg.Kafka.RequestsTopic,
			cfg.Kafka.ConsumerGroup,
			a.pipeline,
			a.catalog,
			log,
		)
		go func() {
			log.Infow("Starting Kafka analysis consumer",
				"topic", cfg.Kafka.RequestsTopic, "group", cfg.Kafka.ConsumerGroup)
			if err := consumer.Start(ctx); err != nil {
				log.Errorw("Kafka analysis consumer error", "error", err)
			}
		}()
	}

	var cache api.SnapshotCache
	if a.redis != nil {
		cache = a.redis
	}
	handler := api.NewHandler(a.pipeline, a.aggregator, a.catalog, cache, log)
	if a.db != nil {
		handler.AddHealthCheck("postgres", a.db)
	}
	if a.redis != nil {
		handler.AddHealthCheck("redis", a.redis)
	}
	router := api.SetupRoutes(handler, a.hub)

	addr := cfg.Server.Address()
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infow("Starting server", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Infow("Shutting down server...", "signal", sig.String())
	case err := <-serveErr:
		log.Errorw("Server failed", "error", err)
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Server forced to shutdown", "error", err)
	}

	if cfg.Sweep.Enabled {
		if err := a.sweeper.Stop(); err != nil {
			log.Warnw("Error stopping sweeper", "error", err)
		}
	}
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			log.Warnw("Error closing Kafka consumer", "error", err)
		}
	}

	log.Info("Server stopped")
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, base, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Flush(base)

	return runMigrations(cfg.Database.MigrationsPath, cfg.Database.ConnectionString(), base.Sugar())
}

func runSweep(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		return a.sweeper.RunAnalysisSweep(ctx)
	})
}

func runPurge(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		_, err := a.sweeper.RunRetentionSweep(ctx)
		return err
	})
}

// withApp wires the service graph for a one-shot command, cancelling on SIGINT/SIGTERM
func withApp(fn func(ctx context.Context, a *app) error) error {
	cfg, base, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Flush(base)
	log := base.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Errorw("Failed to start service", "error", err)
		return err
	}
	defer a.Close()

	if err := fn(ctx, a); err != nil {
		log.Errorw("Command failed", "error", err)
		return err
	}
	return nil
}
