package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/di"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/events"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/gateway"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/handler"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/middleware"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/repository"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/service"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/session"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/worker"
	"github.com/prohmpiriya/donation-rush/pkg/config"
	"github.com/prohmpiriya/donation-rush/pkg/database"
	"github.com/prohmpiriya/donation-rush/pkg/kafka"
	"github.com/prohmpiriya/donation-rush/pkg/logger"
	pkgmiddleware "github.com/prohmpiriya/donation-rush/pkg/middleware"
	pkgredis "github.com/prohmpiriya/donation-rush/pkg/redis"
	"github.com/prohmpiriya/donation-rush/pkg/telemetry"
)

const serviceName = "donation-service"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: serviceName,
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Donation Service...",
		zap.String("campaign", cfg.Campaign.Name),
		zap.String("provider", cfg.Gateway.Provider),
	)

	ctx := context.Background()

	// Initialize tracing
	if err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		appLog.Warn("Telemetry disabled", zap.Error(err))
	}

	// Initialize database connection; the ledger falls back to memory without it
	var db *database.PostgresDB
	var donationRepo repository.DonationRepository
	if cfg.DonationDatabase.Enabled {
		db, err = database.NewPostgres(ctx, &cfg.DonationDatabase, database.WithTracing(cfg.OTel.Enabled))
		if err != nil {
			appLog.Warn("Database connection failed, using in-memory ledger", zap.Error(err))
			db = nil
		} else {
			defer db.Close()
			pgRepo := repository.NewPostgresDonationRepository(db)
			if err := pgRepo.Migrate(ctx); err != nil {
				appLog.Fatal("Failed to migrate donation ledger", zap.Error(err))
			}
			donationRepo = pgRepo
			appLog.Info("Database connected")
		}
	}

	// Initialize Redis connection; sessions fall back to memory without it
	var redis *pkgredis.Client
	var sessionStore session.Store
	if cfg.Redis.Enabled {
		redis, err = pkgredis.NewClient(ctx, &cfg.Redis, nil)
		if err != nil {
			appLog.Warn("Redis connection failed, using in-memory sessions", zap.Error(err))
			redis = nil
		} else {
			defer redis.Close()
			sessionStore = session.NewRedisStore(redis, cfg.Campaign.SessionTTL)
			appLog.Info("Redis connected")
		}
	}

	// Initialize Kafka producer; events are dropped without it
	var publisher events.Publisher
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
			Brokers:        cfg.Kafka.Brokers,
			ClientID:       cfg.Kafka.ClientID,
			ProduceTimeout: 5 * time.Second,
		})
		if err != nil {
			appLog.Warn("Kafka connection failed, donation events disabled", zap.Error(err))
		} else {
			defer producer.Close()
			publisher = events.NewKafkaPublisher(producer, events.TopicDonationEvents, serviceName)
			appLog.Info("Kafka producer connected")
		}
	}

	// Initialize payment gateway
	demo := gateway.NewDemoGateway(&gateway.DemoGatewayConfig{
		MerchantName: "DOACAO CAMPANHA",
		MerchantCity: "SAO PAULO",
		PixExpiry:    cfg.Campaign.PixExpiry,
	})
	paymentGateway, err := gateway.NewPaymentGateway(&cfg.Gateway, demo, &http.Client{Timeout: cfg.Gateway.RequestTimeout})
	if err != nil {
		appLog.Fatal("Failed to initialize payment gateway", zap.Error(err))
	}

	serviceConfig, err := service.NewDonationServiceConfig(&cfg.Campaign, &cfg.Gateway)
	if err != nil {
		appLog.Fatal("Invalid campaign configuration", zap.Error(err))
	}

	pollerConfig := worker.DefaultStatusPollerConfig()
	if cfg.Poller.Interval > 0 {
		pollerConfig.PollInterval = cfg.Poller.Interval
	}
	if cfg.Poller.BatchSize > 0 {
		pollerConfig.BatchSize = cfg.Poller.BatchSize
	}

	// Build dependency injection container
	container, err := di.NewContainer(&di.ContainerConfig{
		DB:             db,
		Redis:          redis,
		PaymentGateway: paymentGateway,
		SessionStore:   sessionStore,
		DonationRepo:   donationRepo,
		Publisher:      publisher,
		ServiceConfig:  serviceConfig,
		PollerConfig:   pollerConfig,
	})
	if err != nil {
		appLog.Fatal("Failed to build container", zap.Error(err))
	}

	if cfg.Poller.Enabled {
		if err := container.StatusPoller.Start(ctx); err != nil {
			appLog.Fatal("Failed to start status poller", zap.Error(err))
		}
		defer container.StatusPoller.Stop()
	}

	// Setup Gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(telemetry.TracingMiddleware(telemetry.MiddlewareConfig{
		ServiceName: serviceName,
		ScopeHeader: pkgmiddleware.ScopeHeader,
		SkipPaths:   []string{"/health", "/ready"},
	}))
	router.Use(middleware.Logger(appLog, "/health", "/ready"))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	routes := &handler.Routes{
		Health:    container.HealthHandler,
		Donation:  container.DonationHandler,
		Admin:     container.AdminHandler,
		AdminAuth: middleware.AdminAuth(cfg.JWT.Secret, cfg.JWT.Issuer),
	}
	if redis != nil {
		routes.Idempotency = pkgmiddleware.Idempotency(pkgmiddleware.DefaultIdempotencyConfig(redis))
	}
	handler.RegisterRoutes(router, routes)

	router.GET("/api/v1/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"version":  cfg.App.Version,
			"service":  serviceName,
			"provider": paymentGateway.Name(),
		})
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		appLog.Info("Donation Service listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		appLog.Warn("Telemetry shutdown failed", zap.Error(err))
	}

	appLog.Info("Server exited gracefully")
}
