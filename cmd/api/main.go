// Package main provides the entrypoint for the mobility API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/sfmobility/sfmobility/internal/api"
	"github.com/sfmobility/sfmobility/internal/api/handler"
	"github.com/sfmobility/sfmobility/internal/api/middleware"
	"github.com/sfmobility/sfmobility/internal/auth"
	"github.com/sfmobility/sfmobility/internal/database"
	"github.com/sfmobility/sfmobility/internal/directions"
	"github.com/sfmobility/sfmobility/internal/directions/heuristic"
	"github.com/sfmobility/sfmobility/internal/prediction"
	"github.com/sfmobility/sfmobility/internal/prediction/fivetenone"
	"github.com/sfmobility/sfmobility/internal/prediction/historical"
	"github.com/sfmobility/sfmobility/internal/provider/resilience"
	"github.com/sfmobility/sfmobility/internal/recommend"
	"github.com/sfmobility/sfmobility/internal/session"
	"github.com/sfmobility/sfmobility/internal/telemetry"
	"github.com/sfmobility/sfmobility/internal/watch"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "sfmobility-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting mobility API")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	sampleRatio, _ := strconv.ParseFloat(os.Getenv("OTEL_SAMPLE_RATIO"), 64)

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
		SampleRatio:    sampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	// Initialize auth repositories and service
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SigningKey: jwtSigningKey,
		Issuer:     "https://api.sfmobility.io",
		Audience:   "sfmobility-api",
	})

	authService := auth.NewService(auth.ServiceConfig{
		JWTService:  jwtService,
		UserRepo:    auth.NewPostgresUserRepository(pool),
		KeyRepo:     auth.NewPostgresAPIKeyRepository(pool),
		RefreshRepo: auth.NewPostgresRefreshTokenRepository(pool),
	})
	log.Info().Msg("auth service initialized")

	// Initialize directions service with the heuristic estimator
	directionsService := directions.NewService(directions.ServiceConfig{
		Provider: heuristic.NewProvider(log),
		Logger:   log,
	})
	log.Info().Msg("directions service initialized")

	// Initialize prediction providers. The live 511 feed is preferred
	// when an API key is configured; the historical predictor answers
	// for routes the feed has nothing on.
	registry := resilience.NewRegistry()

	historicalPredictor := historical.NewPredictor(historical.PredictorConfig{
		Repository: historical.NewPostgresRepository(pool),
		Logger:     log,
	})

	var provider prediction.Provider = historicalPredictor
	providers := []string{historical.ProviderName}

	if apiKey := os.Getenv("FIVETENONE_API_KEY"); apiKey != "" {
		realtime := fivetenone.NewClient(fivetenone.ClientConfig{
			APIKey:   apiKey,
			Agency:   os.Getenv("FIVETENONE_AGENCY"),
			Registry: registry,
			Logger:   log,
		})
		provider = prediction.NewFallbackProvider(log, realtime, historicalPredictor)
		providers = []string{fivetenone.ProviderName, historical.ProviderName}
		log.Info().Msg("511 realtime predictor enabled")
	} else {
		log.Warn().Msg("FIVETENONE_API_KEY not set - delay forecasts use historical data only")
	}

	predictionService := prediction.NewService(prediction.ServiceConfig{
		Provider: provider,
		Logger:   log,
	})
	log.Info().Str("provider", predictionService.ProviderName()).Msg("prediction service initialized")

	// Initialize recommendation service
	recommendService := recommend.NewService(recommend.ServiceConfig{
		Directions: directionsService,
		Prediction: predictionService,
		Logger:     log,
	})
	log.Info().Msg("recommendation service initialized")

	// Initialize watch service
	watchService := watch.NewService(watch.NewPostgresRepository(pool))
	log.Info().Msg("watch service initialized")

	// Initialize session store. Redis in production, memory otherwise.
	readinessChecks := map[string]handler.CheckFunc{
		"database": pool.Ping,
	}

	var sessionStore session.Store
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		defer redisClient.Close()

		sessionStore = session.NewRedisStore(redisClient, 0)
		readinessChecks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
		log.Info().Str("addr", redisAddr).Msg("session store using redis")
	} else {
		sessionStore = session.NewMemoryStore(0)
		log.Warn().Msg("REDIS_ADDR not set - sessions held in memory")
	}

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:           Version,
		BuildTime:         BuildTime,
		Logger:            log,
		ServiceName:       serviceName,
		Metrics:           metrics,
		AuthService:       authService,
		RecommendService:  recommendService,
		PredictionService: predictionService,
		WatchService:      watchService,
		SessionStore:      sessionStore,
		ReadinessChecks:   readinessChecks,
		Providers:         providers,
		Registry:          registry,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
