// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package credits

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryLedger is a process-local Ledger. It is the default when no Valkey
// is configured and is what the engine's own tests run against.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]float64
	holds    map[string]float64 // reservation ID → outstanding hold
}

// NewMemoryLedger returns an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[string]float64),
		holds:    make(map[string]float64),
	}
}

// Balance returns the spendable balance (reserved amounts excluded).
func (l *MemoryLedger) Balance(_ context.Context, principal string) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[principal], nil
}

// Credit adds to the principal's balance.
func (l *MemoryLedger) Credit(_ context.Context, principal string, amount float64) error {
	if amount < 0 {
		return fmt.Errorf("credit: negative amount %.4f", amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[principal] += amount
	return nil
}

// Authorize checks and reserves in one locked step, so two concurrent
// batches cannot double-spend the same balance.
func (l *MemoryLedger) Authorize(_ context.Context, principal string, amount float64) (*Reservation, error) {
	if amount < 0 {
		return nil, fmt.Errorf("authorize: negative amount %.4f", amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	bal := l.balances[principal]
	if bal < amount {
		return nil, &InsufficientCreditsError{Principal: principal, Required: amount, Available: bal}
	}
	l.balances[principal] = bal - amount

	res := &Reservation{ID: uuid.NewString(), Principal: principal, Held: amount}
	l.holds[res.ID] = amount
	return res, nil
}

// Settle consumes part of a reservation for work actually performed.
func (l *MemoryLedger) Settle(_ context.Context, res *Reservation, amount float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.drainLocked(res, amount)
}

// Release returns part of a reservation to the principal's balance.
func (l *MemoryLedger) Release(_ context.Context, res *Reservation, amount float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.drainLocked(res, amount); err != nil {
		return err
	}
	l.balances[res.Principal] += amount
	return nil
}

// drainLocked removes amount from a reservation's outstanding hold,
// refusing to overdraw it. Callers must hold the lock.
func (l *MemoryLedger) drainLocked(res *Reservation, amount float64) error {
	if res == nil {
		return fmt.Errorf("nil reservation")
	}
	if amount < 0 {
		return fmt.Errorf("negative amount %.4f", amount)
	}
	held, ok := l.holds[res.ID]
	if !ok {
		return fmt.Errorf("unknown reservation %s", res.ID)
	}
	// Tolerate float accumulation drift up to a nano-credit.
	if amount > held+1e-9 {
		return fmt.Errorf("reservation %s holds %.4f, cannot drain %.4f", res.ID, held, amount)
	}
	remaining := held - amount
	if remaining <= 1e-9 {
		delete(l.holds, res.ID)
		res.Held = 0
		return nil
	}
	l.holds[res.ID] = remaining
	res.Held = remaining
	return nil
}
