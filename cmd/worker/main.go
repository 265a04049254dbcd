// Package main provides the entrypoint for the delay collection worker.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/sfmobility/sfmobility/internal/database"
	"github.com/sfmobility/sfmobility/internal/prediction/fivetenone"
	"github.com/sfmobility/sfmobility/internal/prediction/historical"
	"github.com/sfmobility/sfmobility/internal/provider/resilience"
	"github.com/sfmobility/sfmobility/internal/watch"
	"github.com/sfmobility/sfmobility/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "sfmobility-worker"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting delay collection worker")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	if projectID == "" {
		log.Fatal().Msg("PUBSUB_PROJECT_ID is required")
	}

	subscription := os.Getenv("PUBSUB_SUBSCRIPTION")
	if subscription == "" {
		subscription = "delay-jobs"
	}

	notifyTopic := os.Getenv("PUBSUB_NOTIFY_TOPIC")
	if notifyTopic == "" {
		notifyTopic = "delay-notifications"
	}

	apiKey := os.Getenv("FIVETENONE_API_KEY")
	if apiKey == "" {
		log.Fatal().Msg("FIVETENONE_API_KEY is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Str("database", dbConfig.Database).
		Msg("database connected")

	// Initialize the 511 vehicle feed client
	source := fivetenone.NewClient(fivetenone.ClientConfig{
		APIKey:   apiKey,
		Agency:   os.Getenv("FIVETENONE_AGENCY"),
		Registry: resilience.NewRegistry(),
		Logger:   log,
	})

	// Initialize the notification publisher
	pubsubClient, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create pubsub client")
	}
	defer pubsubClient.Close()

	notifier := worker.NewPubSubNotifier(pubsubClient, notifyTopic, log)
	defer notifier.Stop()

	// Initialize the collection job
	collectJob := worker.NewCollectJob(worker.CollectJobConfig{
		Config:       worker.DefaultCollectConfig(),
		Logger:       log,
		Source:       source,
		Observations: historical.NewPostgresRepository(pool),
		Watches:      watch.NewPostgresRepository(pool),
		Notifier:     notifier,
	})

	// Initialize the Pub/Sub job handler
	handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
		ProjectID:        projectID,
		SubscriptionName: subscription,
		CollectJob:       collectJob,
		Logger:           log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create pubsub handler")
	}
	defer handler.Close()

	// Health and metrics endpoints for Cloud Run
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "healthy",
			"version": Version,
		})
	})
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(collectJob.MetricsSnapshot())
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	// Start health server
	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("health server error")
		}
	}()

	// Start receiving jobs. Receive blocks until the context is
	// cancelled, so errors surface through the channel.
	receiveErr := make(chan error, 1)
	go func() {
		receiveErr <- handler.Start(ctx)
	}()

	log.Info().
		Str("subscription", subscription).
		Str("notify_topic", notifyTopic).
		Msg("worker ready, waiting for jobs")

	// Wait for interrupt signal or receiver failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("shutting down worker")
	case err := <-receiveErr:
		if err != nil {
			log.Error().Err(err).Msg("pubsub receive failed")
		}
	}

	// Stop the receiver, then drain the health server
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
