package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/agent"
	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/api"
	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/cache"
	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/config"
	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/feed"
	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/genai"
	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/metrics"
	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/registry"
	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/scoring"
	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/services"
	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/simulator"
	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/utils"
)

func main() {
	_ = godotenv.Load()

	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting copilot-server", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	scorer, err := scoring.LoadModel(cfg.Model.Path)
	if err != nil {
		// The service still boots without a model: telemetry and chat keep
		// working, predictions answer ErrModelUnavailable until restart.
		logger.Warn("prediction model unavailable", slog.String("path", cfg.Model.Path), slog.Any("error", err))
		scorer = nil
	}

	advisor, err := scoring.LoadAdvisor(cfg.Model.AdvisorPath)
	if err != nil {
		logger.Error("failed to load advisory rules", slog.Any("error", err))
		os.Exit(1)
	}

	pipeline := scoring.NewPipeline(logger, scorer, advisor, cfg.Model.ScoreTimeout)

	sim := simulator.New(cfg.Simulator.Seed)
	fleet := registry.New(logger, pipeline, sim.TickAll(registry.FleetIDs))

	var cacheProvider cache.Provider = cache.NoopProvider{}
	var cacheCloser cache.Provider
	if cfg.Cache.Enabled {
		if cfg.Cache.Addr != "" {
			provider, err := cache.NewValkeyProvider(cache.ValkeyConfig{
				Addr:         cfg.Cache.Addr,
				Username:     cfg.Cache.Username,
				Password:     cfg.Cache.Password,
				DB:           cfg.Cache.DB,
				DialTimeout:  cfg.Cache.DialTimeout,
				ReadTimeout:  cfg.Cache.ReadTimeout,
				WriteTimeout: cfg.Cache.WriteTimeout,
				TLS:          cfg.Cache.TLS,
			})
			if err != nil {
				logger.Warn("valkey cache unavailable, using in-memory cache", slog.Any("error", err))
				cacheProvider = cache.NewMemoryProvider()
			} else {
				cacheProvider = provider
				cacheCloser = provider
			}
		} else {
			cacheProvider = cache.NewMemoryProvider()
		}
	}
	if cacheCloser != nil {
		defer cacheCloser.Close()
	}

	var generator agent.Generator
	if cfg.Generation.BaseURL != "" {
		generator = genai.NewClient(
			cfg.Generation.BaseURL,
			cfg.Generation.APIKey,
			cfg.Generation.Model,
			cfg.Generation.Timeout,
			cacheProvider,
			cfg.Generation.CacheTTL,
		)
	} else {
		logger.Info("generation backend not configured, chat answers use structured summaries")
	}

	var publisher feed.Publisher = feed.NoopPublisher{}
	if cfg.Feed.Enabled {
		mqttPublisher, err := feed.NewMQTTPublisher(logger, feed.MQTTConfig{
			Broker:   cfg.Feed.Broker,
			ClientID: cfg.Feed.ClientID,
			Username: cfg.Feed.Username,
			Password: cfg.Feed.Password,
			Topic:    cfg.Feed.Topic,
			QoS:      byte(cfg.Feed.QoS),
		})
		if err != nil {
			logger.Warn("prediction feed unavailable", slog.Any("error", err))
		} else {
			publisher = mqttPublisher
			defer mqttPublisher.Close()
		}
	}

	chatAgent := agent.New(logger, fleet, generator)
	service := services.NewCopilotService(logger, fleet, sim, chatAgent, publisher)

	handler := api.NewHandler(logger, service)
	server, err := api.NewServer(cfg.Server, handler)
	if err != nil {
		logger.Error("failed to create HTTP server", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Simulator.RefreshInterval > 0 {
		go service.RunRefresher(ctx, cfg.Simulator.RefreshInterval)
	}

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("HTTP server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("copilot-server stopped")
}
