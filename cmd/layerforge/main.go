// Package main is the entry point for the LayerForge generation engine.
// It loads configuration, connects to the credit ledger and asset storage,
// and keeps the engine available until a shutdown signal arrives. With
// LAYERS_DIR set it instead performs one local generation run against the
// layer PNGs in that directory, the development loop for trying out a
// collection before wiring the platform around it.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"layerforge/internal/assets"
	"layerforge/internal/assetstore"
	"layerforge/internal/catalog"
	"layerforge/internal/compositor"
	"layerforge/internal/config"
	"layerforge/internal/credits"
	"layerforge/internal/generator"
	"layerforge/internal/models"
	"layerforge/internal/sheet"
)

func main() {
	// Structured logger, debug level in development.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"chunk_size", cfg.ChunkSize,
		"full_resolution", cfg.FullResolution,
	)

	if dir := os.Getenv("LAYERS_DIR"); dir != "" {
		if err := devRun(cfg, dir); err != nil {
			slog.Error("local generation run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	// Connect to Valkey for the durable credit ledger. Without it the
	// engine falls back to a process-local ledger (development only).
	var ledger credits.Ledger
	valkeyClient := redis.NewClient(&redis.Options{
		Addr:     cfg.ValkeyAddr(),
		Password: cfg.ValkeyPassword,
		DB:       0,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = valkeyClient.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		if !cfg.IsDev() {
			slog.Error("failed to connect to valkey", "addr", cfg.ValkeyAddr(), "error", err)
			os.Exit(1)
		}
		slog.Warn("valkey not reachable, using in-memory credit ledger", "error", err)
		valkeyClient.Close()
		ledger = credits.NewMemoryLedger()
	} else {
		slog.Info("valkey connected", "addr", cfg.ValkeyAddr())
		ledger = credits.NewValkeyLedger(valkeyClient)
		defer valkeyClient.Close()
	}

	// Connect to S3-compatible object storage (optional; the engine can
	// run against the in-memory store for local work).
	var store compositor.Fetcher
	s3Store, err := assetstore.NewS3Store(
		cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey,
		cfg.S3BucketLayers, cfg.S3BucketRenders,
	)
	if err != nil {
		slog.Error("failed to initialize S3 storage", "error", err)
		os.Exit(1)
	}
	if s3Store != nil {
		store = s3Store
		slog.Info("s3 storage connected",
			"endpoint", cfg.S3Endpoint,
			"layers_bucket", cfg.S3BucketLayers,
			"renders_bucket", cfg.S3BucketRenders,
		)
	} else {
		store = assetstore.NewMemoryStore()
		slog.Warn("s3 storage not configured, using in-memory asset store")
	}

	comp := compositor.New(store, cfg.FullResolution)
	gen := newGenerator(cfg, ledger, comp)

	slog.Info("engine ready",
		"preview_unit_price", gen.EstimateCost(1, models.ModePreview),
		"full_unit_price", gen.EstimateCost(1, models.ModeFull),
	)

	// Graceful shutdown: wait for SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)
	slog.Info("engine stopped")
}

func newGenerator(cfg *config.Config, ledger credits.Ledger, comp *compositor.Compositor) *generator.Generator {
	return generator.New(ledger, comp, generator.Config{
		ChunkSize:              cfg.ChunkSize,
		RejectionCapMultiplier: cfg.RejectionCapMultiplier,
		Pricing: credits.Pricing{
			Preview: cfg.CreditPricePreview,
			Full:    cfg.CreditPriceFull,
		},
	})
}

// devRun builds a catalog from the layer PNGs in dir and generates one
// batch against an in-memory ledger and store, writing tokens plus a
// contact sheet next to the sources. Controlled by GEN_COUNT and GEN_SEED.
func devRun(cfg *config.Config, dir string) error {
	ctx := context.Background()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read layers dir: %w", err)
	}

	store := assetstore.NewMemoryStore()
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("read layer %s: %w", e.Name(), err)
		}
		store.Put(e.Name(), data)
		names = append(names, e.Name())
	}

	valid, invalid := assets.Partition(names)
	for _, inv := range invalid {
		slog.Warn("skipping file", "name", inv.Filename, "reason", inv.Reason)
	}
	if len(valid) == 0 {
		return fmt.Errorf("no parseable layer files in %s (expected %s)", dir, assets.ExpectedFormat)
	}

	cat, err := catalog.Build(uuid.New(), assets.GroupByCategory(valid))
	if err != nil {
		return err
	}
	snap := cat.Snapshot()

	count := envIntOr("GEN_COUNT", 8)
	seed := uint64(envIntOr("GEN_SEED", 1))

	ledger := credits.NewMemoryLedger()
	gen := newGenerator(cfg, ledger, compositor.New(store, cfg.FullResolution))
	if err := ledger.Credit(ctx, "dev", gen.EstimateCost(count, models.ModePreview)); err != nil {
		return err
	}

	result, err := gen.Generate(ctx, snap, models.Request{
		Principal: "dev",
		BatchSize: count,
		Mode:      models.ModePreview,
		Seed:      seed,
	})
	if err != nil {
		return err
	}

	outDir := filepath.Join(dir, "generated")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, tok := range result.Tokens {
		name := filepath.Join(outDir, fmt.Sprintf("token_%03d.png", tok.Index))
		if err := os.WriteFile(name, tok.Image, 0o644); err != nil {
			return err
		}
	}
	if montage, err := sheet.Montage(result.Tokens, 0); err == nil {
		if err := os.WriteFile(filepath.Join(outDir, "contact_sheet.png"), montage, 0o644); err != nil {
			return err
		}
	} else {
		slog.Warn("contact sheet skipped", "error", err)
	}

	slog.Info("local run complete",
		"tokens", len(result.Tokens),
		"exhausted", result.Exhausted,
		"rejected_draws", result.RejectedDraws,
		"out_dir", outDir,
	)
	return nil
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
