package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nuansasolution/portal/internal/config"
	"github.com/nuansasolution/portal/internal/infrastructure/backendapi"
	"github.com/nuansasolution/portal/internal/infrastructure/snap"
	"github.com/nuansasolution/portal/internal/server"
	"github.com/nuansasolution/portal/internal/telemetry"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Println("Starting Nuansa Solution Portal Service...")

	ctx := context.Background()

	// Initialize OpenTelemetry
	otelProvider, err := telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:    "nuansa-portal",
		ServiceVersion: "1.0.0",
		Environment:    getEnv("ENVIRONMENT", "development"),
		OTLPEndpoint:   cfg.Otel.Endpoint,
		Insecure:       cfg.Otel.Insecure,
		Enabled:        cfg.Otel.Endpoint != "",
	})
	if err != nil {
		log.Printf("Warning: Failed to initialize OpenTelemetry: %v", err)
	}
	if otelProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			otelProvider.Shutdown(shutdownCtx)
		}()
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	defer redisClient.Close()

	// Ping Redis to verify connection
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	log.Println("✓ Redis connected")

	// Subscription backend client
	backend := backendapi.NewClient(backendapi.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout,
	})
	log.Printf("✓ Backend client targeting %s", cfg.Backend.BaseURL)

	// Payment gateway adapter
	var gateway snap.Gateway
	if cfg.Snap.Mock {
		gateway = snap.NewMockGateway(mockOutcomeKind(cfg.Snap.MockOutcome), cfg.Snap.MockDelay)
		log.Printf("✓ Mock payment gateway (outcome: %s)", cfg.Snap.MockOutcome)
	} else {
		gateway = snap.NewCallbackGateway()
		log.Println("✓ Callback payment gateway")
	}

	// Initialize App using Server package
	app := server.NewApp(server.AppDependencies{
		Config:      cfg,
		RedisClient: redisClient,
		Backend:     backend,
		Gateway:     gateway,
	})

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down gracefully...")
		app.Shutdown()
	}()

	// Start server
	log.Printf("🚀 Server starting on port %s", cfg.Server.Port)
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func mockOutcomeKind(name string) snap.OutcomeKind {
	switch name {
	case "pending":
		return snap.OutcomePending
	case "error":
		return snap.OutcomeError
	case "closed":
		return snap.OutcomeClosed
	default:
		return snap.OutcomeSuccess
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
