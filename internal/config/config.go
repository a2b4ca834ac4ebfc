package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	Auth    AuthConfig
	Redis   RedisConfig
	Snap    SnapConfig
	Payment PaymentConfig
	Otel    OtelConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
}

// BackendConfig holds the subscription backend connection configuration
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// AuthConfig holds session token validation configuration
type AuthConfig struct {
	JWTSecret string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
}

// SnapConfig holds payment gateway adapter configuration
type SnapConfig struct {
	Mock        bool          // use the scripted mock gateway instead of browser callbacks
	MockOutcome string        // success, pending, error, closed
	MockDelay   time.Duration // how long the mock widget "thinks"
}

// PaymentConfig holds orchestrator timing configuration
type PaymentConfig struct {
	VerifyDelay    time.Duration
	PollInterval   time.Duration
	QuoteTTL       time.Duration
	IdempotencyTTL time.Duration
}

// OtelConfig holds telemetry export configuration
type OtelConfig struct {
	Endpoint string // OTLP HTTP endpoint, empty disables export
	Insecure bool
}

// Load reads configuration from environment variables
// It attempts to load from .env file first, then falls back to system env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Backend: BackendConfig{
			BaseURL: getEnv("BACKEND_BASE_URL", "http://localhost:9000"),
			Timeout: getEnvAsDuration("BACKEND_TIMEOUT", 10*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		Snap: SnapConfig{
			Mock:        getEnvAsBool("SNAP_MOCK", false),
			MockOutcome: getEnv("SNAP_MOCK_OUTCOME", "success"),
			MockDelay:   getEnvAsDuration("SNAP_MOCK_DELAY", 500*time.Millisecond),
		},
		Payment: PaymentConfig{
			VerifyDelay:    getEnvAsDuration("PAYMENT_VERIFY_DELAY", 2*time.Second),
			PollInterval:   getEnvAsDuration("PAYMENT_POLL_INTERVAL", 10*time.Second),
			QuoteTTL:       getEnvAsDuration("QUOTE_TTL", 15*time.Minute),
			IdempotencyTTL: getEnvAsDuration("IDEMPOTENCY_TTL", 10*time.Minute),
		},
		Otel: OtelConfig{
			Endpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure: getEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("BACKEND_BASE_URL is required")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as bool or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration retrieves an environment variable as a duration or returns a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
