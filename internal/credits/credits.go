// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package credits accounts for the resource cost of generation work.
// A run is authorized up front (balance check plus reservation, one atomic
// step per principal), then settled per successfully rendered token; any
// unconsumed reservation is released back to the balance. Balances never
// go negative and no credit is ever debited for work not performed.
package credits

import (
	"context"
	"fmt"

	"layerforge/internal/models"
)

// Pricing holds the flat per-token unit prices. Full resolution is
// materially costlier than preview. Prices are configuration, not code.
type Pricing struct {
	Preview float64
	Full    float64
}

// DefaultPricing matches the product's launch price sheet.
var DefaultPricing = Pricing{Preview: 0.002, Full: 0.01}

// UnitPrice returns the per-token cost for a resolution mode.
func (p Pricing) UnitPrice(mode models.ResolutionMode) float64 {
	if mode == models.ModeFull {
		return p.Full
	}
	return p.Preview
}

// EstimateCost computes the credits required for a batch. Pure; used by
// callers for pre-flight display before committing to a run.
func (p Pricing) EstimateCost(batchSize int, mode models.ResolutionMode) float64 {
	if batchSize <= 0 {
		return 0
	}
	return float64(batchSize) * p.UnitPrice(mode)
}

// InsufficientCreditsError is the pre-flight authorization failure: the
// principal's balance cannot cover the requested batch. No work has been
// performed when this is returned.
type InsufficientCreditsError struct {
	Principal string
	Required  float64
	Available float64
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits for %s: need %.4f, have %.4f", e.Principal, e.Required, e.Available)
}

// Reservation is a soft hold taken out of a principal's balance by
// Authorize. Settled amounts are consumed for good; released amounts
// return to the balance.
type Reservation struct {
	ID        string
	Principal string
	Held      float64
}

// Ledger is the credit-balance capability the engine consumes. Authorize
// must be atomic per principal: two concurrent requests can never reserve
// the same credits twice.
type Ledger interface {
	// Balance returns the principal's current spendable balance.
	Balance(ctx context.Context, principal string) (float64, error)
	// Credit adds to a principal's balance (top-ups, refund adjustments).
	Credit(ctx context.Context, principal string, amount float64) error
	// Authorize atomically checks balance >= amount and reserves it,
	// or fails with *InsufficientCreditsError.
	Authorize(ctx context.Context, principal string, amount float64) (*Reservation, error)
	// Settle consumes amount from the reservation for completed work.
	Settle(ctx context.Context, res *Reservation, amount float64) error
	// Release returns amount from the reservation to the balance.
	Release(ctx context.Context, res *Reservation, amount float64) error
}
