// Package cli provides common CLI initialization utilities shared by the
// martelinho commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"martelinho/internal/backend"
	"martelinho/internal/config"
	"martelinho/internal/log"
)

// SetupLogger builds the application logger from the configuration and
// installs it as the slog default.
func SetupLogger(cfg *config.Config) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OpenBackend opens the storage backend selected in cfg.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) (*backend.BackendResult, error) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bc)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", bc.Type, err)
	}
	return res, nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// The returned context is cancelled on SIGINT or SIGTERM; cleanup then runs
// with its own deadline and done is closed once it returns.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
