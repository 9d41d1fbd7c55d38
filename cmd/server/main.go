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

	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/completion"
	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/config"
	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/database"
	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/eventbus"
	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/generator"
	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/handlers"
	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/middleware"
	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/telemetry"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const version = "0.1.0"

func main() {
	ctx := context.Background()

	cfg := config.Load()

	zapConfig := zap.NewProductionConfig()
	if !cfg.IsProduction() {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}
	zapConfig.ErrorOutputPaths = []string{"stderr"}
	logger, err := zapConfig.Build()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("recipe API starting...",
		zap.String("version", version),
		zap.String("environment", cfg.Environment),
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.String("fast_model", cfg.FastModel),
	)

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	if cfg.OTLPEndpoint != "" {
		shutdownTelemetry, err := telemetry.InitTracer(ctx, "recipe-api", cfg.OTLPEndpoint)
		if err != nil {
			// Log but don't fail, as collector might be down
			logger.Error("failed to initialize telemetry", zap.Error(err))
		} else {
			defer func() {
				if err := shutdownTelemetry(context.Background()); err != nil {
					logger.Error("failed to shutdown telemetry", zap.Error(err))
				}
			}()
		}
	}

	metrics := telemetry.NewMetrics()

	preset := cfg.Preset()
	openAIConfig := completion.OpenAIConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
	}
	if preset.StripNullToolCalls {
		openAIConfig.StripNullFields = []string{"tool_calls"}
	}
	provider := completion.Instrument(completion.NewOpenAI(openAIConfig), metrics)

	deps := map[string]handlers.Pinger{"redis": nil, "nats": nil}

	var limiter middleware.Limiter = middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitPerMinute, time.Minute)
	if cfg.RedisURL != "" {
		rdb, err := database.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis, using in-memory rate limiting", zap.Error(err))
		} else {
			defer rdb.Close()
			deps["redis"] = rdb
			limiter = middleware.NewRedisRateLimiter(rdb, cfg.RateLimitPerMinute, time.Minute)
			logger.Info("connected to redis")
		}
	}
	if rl, ok := limiter.(*middleware.RateLimiter); ok {
		sweepCtx, stopSweep := context.WithCancel(ctx)
		defer stopSweep()
		go rl.RunSweeper(sweepCtx, 5*time.Minute)
	}

	var publisher eventbus.Publisher = eventbus.Noop{}
	if cfg.NATSURL != "" {
		nc, err := eventbus.ConnectNATS(cfg.NATSURL, logger)
		if err != nil {
			logger.Error("failed to connect to NATS", zap.Error(err))
		} else {
			defer nc.Close()
			deps["nats"] = nc
			publisher = nc
			logger.Info("connected to NATS")
		}
	}

	gen := generator.New(provider, generator.Config{
		Model:     cfg.Model,
		FastModel: cfg.FastModel,
	}, logger,
		generator.WithMetrics(metrics),
		generator.WithPublisher(publisher),
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	breaker := middleware.NewCircuitBreaker()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	healthHandler := handlers.NewHealthHandler(cfg.Provider, version, deps)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/deep", healthHandler.DeepHealth)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	generateHandler := handlers.NewGenerateHandler(gen, breaker, cfg.GenerationTimeout, logger)
	router.POST("/generate",
		middleware.RateLimitMiddleware(limiter, logger),
		middleware.CircuitBreakerMiddleware(breaker),
		generateHandler.Generate,
	)

	// WriteTimeout stays unset: a generation streams for as long as the
	// models keep producing, bounded by GENERATION_TIMEOUT instead.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
		return
	}

	logger.Info("server exited gracefully")
}
