package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	adapterhttp "github.com/convobridge/gupshup-gateway/internal/adapter/adapters/http"
	"github.com/convobridge/gupshup-gateway/internal/adapter/app"
	"github.com/convobridge/gupshup-gateway/internal/adapter/gupshup"
	"github.com/convobridge/gupshup-gateway/internal/adapter/repository/postgres"
	"github.com/convobridge/gupshup-gateway/internal/filecdn"
	"github.com/convobridge/gupshup-gateway/internal/platform/config"
	"github.com/convobridge/gupshup-gateway/internal/platform/database"
	"github.com/convobridge/gupshup-gateway/internal/platform/logger"
	"github.com/convobridge/gupshup-gateway/internal/platform/messagebroker"
)

const (
	serviceName     = "gupshup_adapter_service"
	shutdownTimeout = 10 * time.Second

	outboundQueueGroup = "gupshup_adapter_outbound"
)

func main() {
	mainCtx, mainCancel := context.WithCancel(context.Background())
	defer mainCancel()

	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel)
	appLogger = appLogger.With("service", serviceName)
	appLogger.Info("Starting service...")

	appLogger.Info("Configuration loaded",
		"log_level", cfg.LogLevel,
		"http_port", cfg.HTTPPort,
		"metrics_port", cfg.MetricsPort,
		"nats_url", cfg.NATSUrl,
		"gupshup_api_url", cfg.GupshupAPIURL,
		"postgres_dsn_present", cfg.PostgresDSN != "",
	)

	defaultAdapterID, err := uuid.Parse(cfg.DefaultAdapterID)
	if err != nil {
		appLogger.Error("Invalid DEFAULT_ADAPTER_ID, must be a UUID", "value", cfg.DefaultAdapterID, "error", err)
		os.Exit(1)
	}

	dbPool, err := database.NewDBPool(mainCtx, cfg.PostgresDSN)
	if err != nil {
		appLogger.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	appLogger.Info("Database connection pool initialized")

	nc, err := messagebroker.NewNATSClient(cfg.NATSUrl, appLogger, serviceName)
	if err != nil {
		appLogger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer nc.Close()

	// Collaborators and translation core.
	cdnClient := filecdn.NewClient(cfg.FileCDNBaseURL, cfg.FileCDNAPIKey, nil, appLogger)
	sizeLimits := filecdn.SizeLimits{
		Image:   cfg.MediaMaxSizeImage,
		Audio:   cfg.MediaMaxSizeAudio,
		Video:   cfg.MediaMaxSizeVideo,
		Default: cfg.MediaMaxSizeDefault,
	}
	credentialStore := postgres.NewPgCredentialRepository(dbPool, appLogger)

	translator := gupshup.NewTranslator(cdnClient, sizeLimits, appLogger)
	sender := gupshup.NewSender(cfg.GupshupAPIURL, cfg.GupshupExtraTag, cdnClient, nil, appLogger)

	webhookProcessor := app.NewWebhookProcessor(translator, nc, cfg.InboundSubject, appLogger)
	outboundConsumer := app.NewOutboundConsumer(sender, credentialStore, nc, defaultAdapterID, cfg.SentSubject, appLogger)

	webhookHandler := adapterhttp.NewWebhookHandler(webhookProcessor, appLogger)

	router := chi.NewRouter()
	router.Use(chi_middleware.RequestID)
	router.Use(chi_middleware.RealIP)
	router.Use(chi_middleware.Recoverer)
	router.Post("/webhook/gupshup", webhookHandler.HandleInbound)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: router,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: metricsMux,
	}

	g, groupCtx := errgroup.WithContext(mainCtx)

	g.Go(func() error {
		appLogger.Info("Starting webhook HTTP server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		appLogger.Info("Starting metrics server", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		appLogger.Info("Starting outbound consumer", "subject", cfg.OutboundSubject, "queue_group", outboundQueueGroup)
		return outboundConsumer.StartConsuming(groupCtx, cfg.OutboundSubject, outboundQueueGroup)
	})

	appLogger.Info("Service components initialized. Service is ready.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		appLogger.Info("Received shutdown signal", "signal", sig.String())
	case <-groupCtx.Done():
		appLogger.Error("A service component failed", "error", groupCtx.Err())
	}

	mainCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Warn("Webhook HTTP server shutdown error", "error", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Warn("Metrics server shutdown error", "error", err)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error("Service exited with error", "error", err)
		os.Exit(1)
	}
	appLogger.Info("Service shut down cleanly")
}
