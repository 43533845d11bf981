package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"martelinho/internal/amqp"
	"martelinho/internal/auth"
	"martelinho/internal/cache"
	"martelinho/internal/config"
	"martelinho/internal/finance"
	apphttp "martelinho/internal/http"
	"martelinho/internal/invoice"
	"martelinho/internal/log"
	"martelinho/internal/middleware/ratelimit"
	"martelinho/internal/services"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web application",
		RunE: func(cmd *cobra.Command, args []string) error {
			LoadEnvFile()
			cfg, err := LoadAndValidateConfig()
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	logger := SetupLogger(cfg)

	store, err := OpenBackend(context.Background(), cfg, logger)
	if err != nil {
		return err
	}

	// A nil *amqp.Client must not end up inside the interface.
	var events services.EventPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, service events disabled", log.FieldError, err)
		} else {
			events = amqpClient
		}
	}

	authSvc, err := auth.NewService(store.Users, auth.Config{
		Secret:     cfg.JWTSecret,
		Expiry:     cfg.JWTExpiry,
		BcryptCost: cfg.BcryptCost,
	}, logger)
	if err != nil {
		_ = store.Close()
		return err
	}

	invoiceCache := cache.NewLRUCache[[]byte](cfg.InvoiceCacheSize, cfg.InvoiceCacheTTL)
	srv, err := apphttp.NewServer(cfg.Addr(), apphttp.Deps{
		Records: services.NewRecordService(store.Services, events, logger),
		Auth:    authSvc,
		Dashboard: finance.NewDashboard(store.Services,
			finance.WithConcurrency(cfg.AggregateConcurrency),
			finance.WithLogger(logger)),
		Invoices: invoice.NewRenderer(invoiceCache, logger),
		Ping:     store.Ping,
		Logger:   logger,
		Caches:   []cache.Cleaner{invoiceCache},
	}, apphttp.Options{
		TrailingMonths: cfg.TrailingMonths,
		SelectorMonths: cfg.SelectorMonths,
		SecureCookies:  cfg.SecureCookies,
		AuthRateLimit: ratelimit.Config{
			Requests: cfg.AuthRateLimit,
			Window:   time.Minute,
			Logger:   logger,
		},
	})
	if err != nil {
		_ = store.Close()
		return err
	}

	ctx, done := GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("AMQP close error", log.FieldError, err)
			}
		}
		if err := store.Close(); err != nil {
			logger.Error("Storage close error", log.FieldError, err)
		}
	})

	logger.Info("Starting martelinho server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events", events != nil,
		log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		return err
	}

	WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
	return nil
}
