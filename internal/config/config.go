// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the engine.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Runtime
	Env string // "development", "production", "testing"

	// Valkey (Redis-compatible credit ledger backend)
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string

	// S3-compatible object storage for layer assets and renders
	S3Endpoint      string
	S3Region        string
	S3AccessKey     string
	S3SecretKey     string
	S3BucketLayers  string
	S3BucketRenders string

	// Engine tuning
	ChunkSize              int     // tokens composited at once per chunk
	RejectionCapMultiplier int     // uniqueness retry cap, ×batch size
	FullResolution         int     // export edge in pixels, capped by the compositor
	CreditPricePreview     float64 // per-token price in preview mode
	CreditPriceFull        float64 // per-token price in full mode
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Returns an error if critical values
// are malformed.
func Load() (*Config, error) {
	cfg := &Config{
		Env: envOrDefault("APP_ENV", "development"),

		ValkeyHost:     envOrDefault("VALKEY_HOST", "localhost"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		S3Endpoint:      os.Getenv("S3_ENDPOINT"),
		S3Region:        envOrDefault("S3_REGION", "eu-central"),
		S3AccessKey:     os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:     os.Getenv("S3_SECRET_KEY"),
		S3BucketLayers:  envOrDefault("S3_BUCKET_LAYERS", "layerforge-layers"),
		S3BucketRenders: envOrDefault("S3_BUCKET_RENDERS", "layerforge-renders"),
	}

	var err error
	if cfg.ChunkSize, err = envInt("ENGINE_CHUNK_SIZE", 8); err != nil {
		return nil, err
	}
	if cfg.RejectionCapMultiplier, err = envInt("ENGINE_REJECTION_CAP", 50); err != nil {
		return nil, err
	}
	if cfg.FullResolution, err = envInt("ENGINE_FULL_RESOLUTION", 2048); err != nil {
		return nil, err
	}
	if cfg.CreditPricePreview, err = envFloat("CREDIT_PRICE_PREVIEW", 0.002); err != nil {
		return nil, err
	}
	if cfg.CreditPriceFull, err = envFloat("CREDIT_PRICE_FULL", 0.01); err != nil {
		return nil, err
	}

	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("ENGINE_CHUNK_SIZE must be positive, got %d", cfg.ChunkSize)
	}
	if cfg.CreditPricePreview < 0 || cfg.CreditPriceFull < 0 {
		return nil, fmt.Errorf("credit prices must be non-negative")
	}

	return cfg, nil
}

// ValkeyAddr returns the Valkey host:port address.
func (c *Config) ValkeyAddr() string {
	return fmt.Sprintf("%s:%s", c.ValkeyHost, c.ValkeyPort)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt reads an integer environment variable with a fallback.
func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}

// envFloat reads a float environment variable with a fallback.
func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q", key, v)
	}
	return f, nil
}
