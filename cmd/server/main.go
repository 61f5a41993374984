package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/siege-stats/internal/cache"
	"github.com/siege-stats/internal/config"
	"github.com/siege-stats/internal/handler"
	"github.com/siege-stats/internal/kafka"
	"github.com/siege-stats/internal/postgres"
	"github.com/siege-stats/internal/redis"
	"github.com/siege-stats/internal/stats"
	"github.com/siege-stats/internal/ubisoft"
	"github.com/siege-stats/internal/websocket"
	"github.com/siege-stats/internal/worker"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Load .env if present, for UBI_EMAIL / UBI_PASSWORD
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("failed to load config file, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}

	if cfg.Ubisoft.Email == "" || cfg.Ubisoft.Password == "" {
		logger.Error("Ubisoft credentials missing, set UBI_EMAIL and UBI_PASSWORD")
		os.Exit(1)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize PostgreSQL
	logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	postgresRepo, err := postgres.NewRepository(&cfg.Postgres, cfg.Cache.TTL, logger)
	if err != nil {
		logger.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer postgresRepo.Close()
	logger.Info("connected to PostgreSQL")

	// Run database migrations
	if err := postgresRepo.RunMigrations(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Select the result cache backend
	var store cache.Store
	switch cfg.Cache.Backend {
	case "redis":
		logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
		redisCache, err := redis.NewCache(&cfg.Redis, cfg.Cache.TTL, logger)
		if err != nil {
			logger.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisCache.Close()
		logger.Info("connected to Redis")
		store = redisCache
	case "postgres":
		store = postgresRepo
	case "memory":
		store = cache.NewMemory(cfg.Cache.TTL)
	default:
		logger.Error("unknown cache backend", "backend", cfg.Cache.Backend)
		os.Exit(1)
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket hub initialized")

	// Initialize the Ubisoft client stack
	authenticator := ubisoft.NewAuthenticator(&cfg.Ubisoft, logger)
	ubiClient := ubisoft.NewClient(&cfg.Ubisoft, authenticator, logger)
	aggregator := stats.NewAggregator(ubiClient, logger)

	statsService := stats.NewService(aggregator, store, logger)
	statsService.SetHub(wsHub)

	// Initialize Kafka producer for stats events
	var kafkaProducer *kafka.Producer
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka producer",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.Topic,
		)
		kafkaProducer, err = kafka.NewProducer(&cfg.Kafka, logger)
		if err != nil {
			logger.Warn("failed to create Kafka producer, continuing without Kafka", "error", err)
		} else {
			statsService.SetPublisher(kafkaProducer)
			logger.Info("Kafka producer started")
		}
	}

	// Initialize refresh worker for tracked players
	refreshWorker := worker.NewRefreshWorker(statsService, postgresRepo, &cfg.Refresh, logger)
	if cfg.Refresh.Enabled {
		if err := refreshWorker.Start(ctx); err != nil {
			logger.Error("failed to start refresh worker", "error", err)
			os.Exit(1)
		}
	}

	// Initialize HTTP handler with WebSocket hub
	httpHandler := handler.NewHandler(statsService, postgresRepo, wsHub, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port)
		logger.Info("WebSocket endpoint available at /ws")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop WebSocket hub
	wsHub.Stop()

	// Stop refresh worker
	if cfg.Refresh.Enabled {
		if err := refreshWorker.Stop(); err != nil {
			logger.Error("failed to stop refresh worker", "error", err)
		}
	}

	// Stop Kafka producer
	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			logger.Error("failed to close Kafka producer", "error", err)
		}
	}

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	logger.Info("server stopped")
}
