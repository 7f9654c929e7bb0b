package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mdsearch/internal/config"
	mdhttp "github.com/fyrsmithlabs/mdsearch/internal/http"
	"github.com/fyrsmithlabs/mdsearch/internal/logging"
	"github.com/fyrsmithlabs/mdsearch/internal/mcp"
	"github.com/fyrsmithlabs/mdsearch/internal/services"
	"github.com/fyrsmithlabs/mdsearch/internal/telemetry"
)

// run starts the daemon and blocks until ctx is cancelled.
//
//  1. Loads and validates configuration
//  2. Initializes telemetry and the logger
//  3. Builds the embedding provider, vector store and retrieval pipeline
//  4. Serves HTTP or MCP until ctx is cancelled
//  5. Shuts down within the configured timeout
func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(config.Options{
		ConfigPath:  opts.configPath,
		SecretsPath: opts.secretsPath,
	})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	tel, err := telemetry.New(ctx, telemetry.FromAppConfig(cfg.Observability, version))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	logger, err := initLogger(cfg, tel, opts.mcp)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if tErr := tel.Err(); tErr != nil {
		logger.Warn(ctx, "telemetry degraded", zap.Error(tErr))
	}
	logger.Info(ctx, "starting mdsearchd",
		zap.String("version", version),
		zap.String("commit", gitCommit),
		zap.Bool("mcp", opts.mcp),
		zap.Bool("telemetry", tel.Enabled()),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout.Duration()),
	)

	reg, err := services.Build(ctx, cfg, logger.Underlying(), services.BuildOptions{EnsureIndex: true})
	if err != nil {
		return err
	}
	defer func() {
		if cErr := reg.Close(); cErr != nil {
			logger.Warn(context.Background(), "failed to close pipeline", zap.Error(cErr))
		}
	}()

	if opts.mcp {
		err = serveMCP(ctx, cfg, reg, logger)
	} else {
		err = serveHTTP(ctx, cfg, reg, logger)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if tErr := tel.Shutdown(shutdownCtx); tErr != nil {
		logger.Warn(shutdownCtx, "telemetry shutdown failed", zap.Error(tErr))
	}

	if err != nil {
		return err
	}
	logger.Info(context.Background(), "shutdown complete")
	return nil
}

// initLogger writes to stdout for HTTP mode. In MCP mode stdout carries the
// protocol, so entries go to stderr.
func initLogger(cfg *config.Config, tel *telemetry.Telemetry, mcpMode bool) (*logging.Logger, error) {
	lcfg, err := logging.FromAppConfig(cfg.Logging, cfg.Observability.ServiceName)
	if err != nil {
		return nil, err
	}
	if mcpMode {
		return logging.NewWriterLogger(lcfg, os.Stderr)
	}
	return logging.NewLogger(lcfg, tel.LoggerProvider())
}

func serveHTTP(ctx context.Context, cfg *config.Config, reg services.Registry, logger *logging.Logger) error {
	srv, err := mdhttp.NewServer(mdhttp.Services{
		Ingester:  reg.Ingester(),
		Searcher:  reg.Searcher(),
		Segmenter: reg.Segmenter(),
		Index:     reg.Store(),
	}, logger.Underlying().Named("http"), mdhttp.ConfigFrom(cfg))
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info(ctx, "server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://%s/health", srv.Addr())),
		zap.String("api_prefix", "/api/v1"),
		zap.String("metrics_endpoint", "/metrics"),
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "received shutdown signal")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return <-errCh
}

func serveMCP(ctx context.Context, cfg *config.Config, reg services.Registry, logger *logging.Logger) error {
	srv, err := mcp.NewServer(&mcp.Config{
		Name:        "mdsearch",
		Version:     version,
		DefaultTopK: cfg.Search.DefaultTopK,
		MaxTopK:     cfg.Search.MaxTopK,
		Logger:      logger.Underlying().Named("mcp"),
	}, mcp.Services{
		Ingester:  reg.Ingester(),
		Searcher:  reg.Searcher(),
		Segmenter: reg.Segmenter(),
		Index:     reg.Store(),
	})
	if err != nil {
		return fmt.Errorf("failed to create mcp server: %w", err)
	}

	start := time.Now()
	err = srv.Run(ctx)
	logger.Info(context.Background(), "mcp session ended", zap.Duration("uptime", time.Since(start)))
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
