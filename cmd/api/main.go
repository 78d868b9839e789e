package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/agendei/agendei-server/internal/api/router"
	"github.com/agendei/agendei-server/internal/appointments"
	"github.com/agendei/agendei-server/internal/catalog"
	appconfig "github.com/agendei/agendei-server/internal/config"
	"github.com/agendei/agendei-server/internal/dialogue"
	obsmetrics "github.com/agendei/agendei-server/internal/observability/metrics"
	"github.com/agendei/agendei-server/internal/webchat"
	"github.com/agendei/agendei-server/pkg/logging"
)

const providerCacheTTL = 5 * time.Minute

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting agendei API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	dialogueMetrics := obsmetrics.NewDialogueMetrics(registry)

	// Storage: Postgres when configured, in-memory demo data otherwise.
	var (
		providerRepo catalog.Repository
		apptRepo     appointments.Repository
		statsHandler *appointments.StatsHandler
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create pgx pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			logger.Error("failed to reach database", "error", err)
			os.Exit(1)
		}
		providerRepo = catalog.NewPostgresRepository(pool)
		apptRepo = appointments.NewPostgresRepository(pool)
		statsHandler = appointments.NewStatsHandler(appointments.NewStatsRepository(pool), logger)
		logger.Info("using postgres storage")
	} else {
		providerRepo = catalog.NewSeededRepository()
		apptRepo = appointments.NewInMemoryRepository()
		logger.Warn("DATABASE_URL not set, using in-memory storage with demo data")
	}

	// Redis: provider cache and durable sessions when configured.
	var sessionStore dialogue.SessionStore = dialogue.NewInMemorySessionStore(cfg.SessionTTL)
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient := redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("failed to reach redis", "error", err)
			os.Exit(1)
		}
		defer func() { _ = redisClient.Close() }()
		providerRepo = catalog.NewCachedRepository(providerRepo, redisClient, providerCacheTTL, logger)
		sessionStore = dialogue.NewRedisSessionStore(redisClient, cfg.SessionTTL)
		logger.Info("using redis for provider cache and sessions")
	}

	// LLM gateway
	if cfg.GeminiAPIKey == "" {
		logger.Error("GEMINI_API_KEY is required")
		os.Exit(1)
	}
	llmClient, err := dialogue.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
	if err != nil {
		logger.Error("failed to create gemini client", "error", err)
		os.Exit(1)
	}
	defer func() { _ = llmClient.Close() }()

	apptService := appointments.NewService(apptRepo, logger)
	engine := dialogue.NewEngine(llmClient, sessionStore, providerRepo, apptService, logger,
		dialogue.WithTemperature(float32(cfg.LLMTemperature)),
		dialogue.WithMaxTokens(int32(cfg.LLMMaxTokens)),
		dialogue.WithMetrics(dialogueMetrics),
	)

	routerCfg := &router.Config{
		Logger:              logger,
		CatalogHandler:      catalog.NewHandler(providerRepo, logger),
		DialogueHandler:     dialogue.NewHandler(engine, providerRepo, logger),
		AppointmentsHandler: appointments.NewHandler(apptService, logger),
		StatsHandler:        statsHandler,
		WebchatHandler:      webchat.NewHandler(engine, providerRepo, webchat.WidgetJS, logger),
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ProviderAuthSecret:  cfg.ProviderJWTSecret,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimitPerSecond:  cfg.RateLimitPerSecond,
		RateLimitBurst:      cfg.RateLimitBurst,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server exited")
}
