// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package generator runs generation batches end to end: feasibility check,
// credit authorization, rarity-weighted sampling with global uniqueness,
// chunked parallel rendering, and per-token credit settlement. The stages
// are strictly sequential; only rendering inside a chunk fans out.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"layerforge/internal/compositor"
	"layerforge/internal/credits"
	"layerforge/internal/models"
	"layerforge/internal/sampler"
)

const (
	// DefaultChunkSize bounds how many tokens are decoded and composited
	// at once, keeping peak memory independent of batch size.
	DefaultChunkSize = 8

	// DefaultRejectionCapMultiplier bounds total uniqueness resamples at
	// this multiple of the batch size before giving up as Exhausted.
	DefaultRejectionCapMultiplier = 50
)

// InsufficientCombinationsError rejects a batch larger than the catalog's
// combination space. Max is the feasible maximum so the caller can reduce
// the batch size.
type InsufficientCombinationsError struct {
	Requested int
	Max       int64
}

func (e *InsufficientCombinationsError) Error() string {
	return fmt.Sprintf("batch of %d exceeds the %d feasible combinations", e.Requested, e.Max)
}

// Config tunes a Generator. Zero values fall back to defaults.
type Config struct {
	ChunkSize              int
	RejectionCapMultiplier int
	Pricing                credits.Pricing
}

// Generator executes generation requests against a ledger and a
// compositor. One Generator serves many runs; it holds no per-run state.
type Generator struct {
	ledger credits.Ledger
	comp   *compositor.Compositor
	cfg    Config
}

// New creates a Generator. ledger and comp are required.
func New(ledger credits.Ledger, comp *compositor.Compositor, cfg Config) *Generator {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.RejectionCapMultiplier <= 0 {
		cfg.RejectionCapMultiplier = DefaultRejectionCapMultiplier
	}
	if cfg.Pricing == (credits.Pricing{}) {
		cfg.Pricing = credits.DefaultPricing
	}
	return &Generator{ledger: ledger, comp: comp, cfg: cfg}
}

// EstimateCost is the pre-flight cost of a batch, for caller display.
func (g *Generator) EstimateCost(batchSize int, mode models.ResolutionMode) float64 {
	return g.cfg.Pricing.EstimateCost(batchSize, mode)
}

// Generate runs one batch. Configuration-class failures (no eligible
// trait, infeasible batch size, insufficient credits) return an error
// before any credit is consumed or any pixel rendered. Execution-class
// failures (per-token render errors, uniqueness exhaustion) degrade to a
// partial Result. Cancellation is honored between chunks; chunks already
// settled stay debited.
func (g *Generator) Generate(ctx context.Context, snap *models.Snapshot, req models.Request) (*models.Result, error) {
	if req.BatchSize <= 0 {
		return nil, fmt.Errorf("generate: batch size %d must be positive", req.BatchSize)
	}
	if !req.Mode.Valid() {
		return nil, fmt.Errorf("generate: unknown resolution mode %q", req.Mode)
	}

	smp, err := sampler.New(snap, sampler.NewSeededSource(req.Seed))
	if err != nil {
		return nil, err
	}

	feasible := smp.FeasibleCombinations()
	if int64(req.BatchSize) > feasible {
		return nil, &InsufficientCombinationsError{Requested: req.BatchSize, Max: feasible}
	}

	unitPrice := g.cfg.Pricing.UnitPrice(req.Mode)
	required := g.cfg.Pricing.EstimateCost(req.BatchSize, req.Mode)
	reservation, err := g.ledger.Authorize(ctx, req.Principal, required)
	if err != nil {
		return nil, err
	}

	slog.Info("generation authorized",
		"project", snap.ProjectID,
		"principal", req.Principal,
		"batch", req.BatchSize,
		"mode", req.Mode,
		"feasible", feasible,
		"reserved", required,
	)

	result := &models.Result{}
	combos := g.drawUnique(smp, req.BatchSize, result)

	if err := g.renderChunks(ctx, combos, req.Mode, unitPrice, reservation, result); err != nil {
		// Rendering only fails here on settlement errors; put the
		// unconsumed hold back before surfacing it.
		g.releaseRemainder(ctx, reservation, result)
		return nil, err
	}
	g.releaseRemainder(ctx, reservation, result)

	slog.Info("generation finished",
		"project", snap.ProjectID,
		"tokens", len(result.Tokens),
		"exhausted", result.Exhausted,
		"rejected_draws", result.RejectedDraws,
		"render_failures", len(result.RenderFailures),
		"debited", result.CreditsDebited,
		"released", result.CreditsReleased,
	)
	return result, nil
}

// drawUnique samples combinations until n unique ones are accepted or the
// rejection cap is hit. The accepted-key set is only touched here, on a
// single goroutine, before any rendering starts.
func (g *Generator) drawUnique(smp *sampler.Sampler, n int, result *models.Result) []models.Combination {
	limit := n * g.cfg.RejectionCapMultiplier
	accepted := make(map[string]struct{}, n)
	combos := make([]models.Combination, 0, n)

	for len(combos) < n {
		if result.RejectedDraws >= limit {
			result.Exhausted = true
			slog.Warn("uniqueness retries exhausted",
				"accepted", len(combos),
				"requested", n,
				"rejected", result.RejectedDraws,
			)
			break
		}
		combo := smp.Draw()
		result.DrawIterations++
		key := combo.Key()
		if _, dup := accepted[key]; dup {
			result.RejectedDraws++
			continue
		}
		accepted[key] = struct{}{}
		combos = append(combos, combo)
	}
	return combos
}

// renderChunks renders accepted combinations in chunks of ChunkSize,
// settling the unit price per finished token. Within a chunk, tokens
// render concurrently on private buffers; the result and the ledger are
// the only shared state and both are mutation-serialized.
func (g *Generator) renderChunks(ctx context.Context, combos []models.Combination, mode models.ResolutionMode, unitPrice float64, res *credits.Reservation, result *models.Result) error {
	var mu sync.Mutex

	for start := 0; start < len(combos); start += g.cfg.ChunkSize {
		// Cooperative cancellation checkpoint at the chunk boundary.
		if err := ctx.Err(); err != nil {
			slog.Info("generation cancelled between chunks",
				"rendered", len(result.Tokens),
				"remaining", len(combos)-start,
			)
			return nil
		}

		end := start + g.cfg.ChunkSize
		if end > len(combos) {
			end = len(combos)
		}

		eg, chunkCtx := errgroup.WithContext(ctx)
		eg.SetLimit(g.cfg.ChunkSize)

		for i := start; i < end; i++ {
			eg.Go(func() error {
				img, err := g.comp.Render(chunkCtx, combos[i], mode)
				if err != nil {
					slog.Warn("token render failed", "index", i, "error", err)
					mu.Lock()
					result.RenderFailures = append(result.RenderFailures, models.RenderFailure{
						Index: i,
						Key:   combos[i].Key(),
						Err:   err,
					})
					mu.Unlock()
					return nil // localized failure, batch continues
				}

				// Settlement and result mutation share one lock: the
				// ledger and the result are the only state shared
				// between concurrently rendering tokens.
				mu.Lock()
				defer mu.Unlock()
				if err := g.ledger.Settle(ctx, res, unitPrice); err != nil {
					return fmt.Errorf("settle token %d: %w", i, err)
				}
				result.Tokens = append(result.Tokens, models.Token{
					Index:       i,
					Combination: combos[i],
					Image:       img,
					Cost:        unitPrice,
				})
				result.CreditsDebited += unitPrice
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}
	}

	sortTokens(result.Tokens)
	return nil
}

// releaseRemainder returns whatever is still held on the reservation:
// failed tokens, tokens never reached after exhaustion or cancellation.
func (g *Generator) releaseRemainder(ctx context.Context, res *credits.Reservation, result *models.Result) {
	remainder := res.Held
	if remainder <= 0 {
		return
	}
	if err := g.ledger.Release(ctx, res, remainder); err != nil {
		slog.Error("release of unconsumed reservation failed",
			"reservation", res.ID,
			"amount", remainder,
			"error", err,
		)
		return
	}
	result.CreditsReleased += remainder
}

// sortTokens restores batch order after concurrent appends.
func sortTokens(tokens []models.Token) {
	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].Index < tokens[j].Index
	})
}
