package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"calltriage/internal/config"
	handlers "calltriage/internal/handlers/shared"
	"calltriage/internal/middleware"
	"calltriage/internal/repositories/cached"
	redisrepo "calltriage/internal/repositories/redis"
	"calltriage/internal/services"
	"calltriage/internal/triage"
	"calltriage/pkg/cache"
	"calltriage/pkg/llm"
	"calltriage/pkg/logger"
	"calltriage/pkg/metrics"
	"calltriage/pkg/scheduler"
	"calltriage/pkg/sms"
	"calltriage/pkg/websocket"
	"calltriage/routes"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Fatalf("Invalid server config: %v", err)
	}

	appLogger, err := logger.NewLogger(cfg.LoggerConfig())
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	redisCache, err := cache.NewRedisCache(cfg.Redis.CacheConfig())
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisCache.Close()

	appMetrics := metrics.NewMetrics()

	// Repositories
	emergencyRepo, err := cached.NewEmergencyRepository(
		redisrepo.NewEmergencyRepository(redisCache, appLogger),
		cfg.App.RecordCacheSize,
		appMetrics,
	)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to build record cache")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub(appLogger)
	go hub.Run(ctx)
	wsHandler := websocket.NewHandler(hub, cfg.WebSocket.HandlerConfig())

	// Services
	var alerter services.Alerter
	if cfg.AlertsEnabled() {
		creds := cfg.Telephony.Credentials()
		critical := services.NewCriticalAlerter(
			sms.NewTwilioSender(creds.AccountSID, creds.AuthToken, creds.FromNumber),
			cfg.Alerts.Recipients,
			cfg.Alerts.Threshold,
			appLogger,
		)
		defer critical.Wait()
		alerter = critical
	}

	provider := llm.NewOpenAIProvider(cfg.LLM.ProviderConfig(triage.SystemPrompt), appLogger.Logrus())
	emergencyService := services.NewEmergencyService(services.EmergencyServiceDeps{
		Repository:   emergencyRepo,
		Provider:     provider,
		Normalizer:   triage.NewNormalizer(appLogger),
		Publisher:    redisCache,
		Broadcaster:  wsHandler,
		Alerter:      alerter,
		Metrics:      appMetrics,
		Logger:       appLogger,
		DefaultLimit: cfg.App.DefaultQueryLimit,
		MaxLimit:     cfg.App.MaxQueryLimit,
	})

	// Background jobs
	jobs := scheduler.NewCron(appLogger, cfg.App.RequestTimeout)
	if _, err := jobs.Add(cfg.App.StatsSchedule, services.NewStatsRefresher(emergencyService, appMetrics)); err != nil {
		appLogger.WithError(err).Fatal("Failed to schedule stats refresh")
	}
	jobs.Start()
	defer jobs.Stop()

	// Handlers
	emergencyHandler := handlers.NewEmergencyHandler(emergencyService, appLogger)
	healthHandler := handlers.NewHealthHandler(redisCache)

	analyzeLimit, err := middleware.RateLimitMiddleware(cfg.App.RateLimit, appLogger, appMetrics)
	if err != nil {
		appLogger.WithError(err).Fatal("Invalid rate limit")
	}

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Global middleware
	router.Use(middleware.RecoveryMiddleware(appLogger))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(appLogger, appMetrics))
	router.Use(middleware.CORSMiddleware(cfg.App.CORSAllowedOrigins))

	routes.SetupOperationalRoutes(router, healthHandler, gin.WrapH(appMetrics.Handler()))

	// API routes
	v1 := router.Group("/api/v1")
	v1.Use(middleware.TimeoutMiddleware(cfg.App.RequestTimeout))
	routes.SetupEmergencyRoutes(v1, emergencyHandler, wsHandler, analyzeLimit)

	server := &http.Server{
		Addr:    cfg.App.Addr(),
		Handler: router,
	}

	go func() {
		appLogger.WithField("addr", server.Addr).Info("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Error("Server stopped unexpectedly")
			stop()
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Graceful shutdown failed")
	}
}
