// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package config

import (
	"testing"
)

// clearEnv blanks every variable Load reads so tests see pure defaults.
// envOrDefault and the numeric readers treat "" the same as unset, and
// t.Setenv restores the previous values automatically.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV",
		"VALKEY_HOST", "VALKEY_PORT", "VALKEY_PASSWORD",
		"S3_ENDPOINT", "S3_REGION", "S3_ACCESS_KEY", "S3_SECRET_KEY",
		"S3_BUCKET_LAYERS", "S3_BUCKET_RENDERS",
		"ENGINE_CHUNK_SIZE", "ENGINE_REJECTION_CAP", "ENGINE_FULL_RESOLUTION",
		"CREDIT_PRICE_PREVIEW", "CREDIT_PRICE_FULL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.Env != "development" || !cfg.IsDev() {
		t.Errorf("Env = %q, want development", cfg.Env)
	}
	if cfg.ValkeyAddr() != "localhost:6379" {
		t.Errorf("ValkeyAddr() = %q, want localhost:6379", cfg.ValkeyAddr())
	}
	if cfg.ChunkSize != 8 {
		t.Errorf("ChunkSize = %d, want 8", cfg.ChunkSize)
	}
	if cfg.RejectionCapMultiplier != 50 {
		t.Errorf("RejectionCapMultiplier = %d, want 50", cfg.RejectionCapMultiplier)
	}
	if cfg.FullResolution != 2048 {
		t.Errorf("FullResolution = %d, want 2048", cfg.FullResolution)
	}
	if cfg.CreditPricePreview != 0.002 || cfg.CreditPriceFull != 0.01 {
		t.Errorf("prices = %v/%v, want 0.002/0.01", cfg.CreditPricePreview, cfg.CreditPriceFull)
	}
	if cfg.S3Endpoint != "" {
		t.Errorf("S3Endpoint = %q, want empty (storage disabled)", cfg.S3Endpoint)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("ENGINE_CHUNK_SIZE", "16")
	t.Setenv("CREDIT_PRICE_FULL", "0.05")
	t.Setenv("VALKEY_HOST", "cache.internal")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.IsDev() {
		t.Error("IsDev() = true with APP_ENV=production")
	}
	if cfg.ChunkSize != 16 {
		t.Errorf("ChunkSize = %d, want 16", cfg.ChunkSize)
	}
	if cfg.CreditPriceFull != 0.05 {
		t.Errorf("CreditPriceFull = %v, want 0.05", cfg.CreditPriceFull)
	}
	if cfg.ValkeyAddr() != "cache.internal:6379" {
		t.Errorf("ValkeyAddr() = %q, want cache.internal:6379", cfg.ValkeyAddr())
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric chunk size", "ENGINE_CHUNK_SIZE", "lots"},
		{"zero chunk size", "ENGINE_CHUNK_SIZE", "0"},
		{"non-numeric price", "CREDIT_PRICE_PREVIEW", "free"},
		{"negative price", "CREDIT_PRICE_FULL", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() accepted %s=%q, want error", tt.key, tt.value)
			}
		})
	}
}
