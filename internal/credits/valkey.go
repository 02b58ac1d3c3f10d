// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// valkey.go provides the durable Ledger backed by Valkey. The
// authorize-reserve step runs inside a WATCH transaction on the balance
// key, giving the cross-process exclusivity the accountant requires:
// two concurrently issued batches race on the optimistic lock and one of
// them retries against the decremented balance.
package credits

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// balanceKeyPrefix namespaces principal balances in Valkey.
	balanceKeyPrefix = "credits:balance:"
	// holdKeyPrefix namespaces outstanding reservation holds.
	holdKeyPrefix = "credits:hold:"

	// authorizeRetries bounds optimistic-lock retries under contention.
	authorizeRetries = 16
)

// ValkeyLedger stores balances and reservation holds in Valkey.
type ValkeyLedger struct {
	client *redis.Client
}

// NewValkeyLedger returns a Ledger backed by the given Valkey client.
func NewValkeyLedger(client *redis.Client) *ValkeyLedger {
	return &ValkeyLedger{client: client}
}

// Balance returns the principal's spendable balance; a missing key is a
// zero balance.
func (l *ValkeyLedger) Balance(ctx context.Context, principal string) (float64, error) {
	val, err := l.client.Get(ctx, balanceKeyPrefix+principal).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("valkey balance %s: %w", principal, err)
	}
	bal, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("valkey balance %s: parse %q: %w", principal, val, err)
	}
	return bal, nil
}

// Credit adds to the principal's balance.
func (l *ValkeyLedger) Credit(ctx context.Context, principal string, amount float64) error {
	if amount < 0 {
		return fmt.Errorf("credit: negative amount %.4f", amount)
	}
	if err := l.client.IncrByFloat(ctx, balanceKeyPrefix+principal, amount).Err(); err != nil {
		return fmt.Errorf("valkey credit %s: %w", principal, err)
	}
	return nil
}

// Authorize atomically checks and reserves amount from the balance. The
// check and the decrement happen inside one WATCH transaction; a concurrent
// writer aborts the transaction and we retry against the fresh balance.
func (l *ValkeyLedger) Authorize(ctx context.Context, principal string, amount float64) (*Reservation, error) {
	if amount < 0 {
		return nil, fmt.Errorf("authorize: negative amount %.4f", amount)
	}

	balanceKey := balanceKeyPrefix + principal
	res := &Reservation{ID: uuid.NewString(), Principal: principal, Held: amount}
	holdKey := holdKeyPrefix + res.ID

	txn := func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, balanceKey).Result()
		bal := 0.0
		if err == nil {
			if bal, err = strconv.ParseFloat(val, 64); err != nil {
				return fmt.Errorf("parse balance %q: %w", val, err)
			}
		} else if err != redis.Nil {
			return err
		}
		if bal < amount {
			return &InsufficientCreditsError{Principal: principal, Required: amount, Available: bal}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.IncrByFloat(ctx, balanceKey, -amount)
			pipe.Set(ctx, holdKey, amount, 0)
			return nil
		})
		return err
	}

	for i := 0; i < authorizeRetries; i++ {
		err := l.client.Watch(ctx, txn, balanceKey)
		if err == redis.TxFailedErr {
			slog.Debug("authorize retry after concurrent balance write",
				"principal", principal, "attempt", i+1)
			continue
		}
		if err != nil {
			return nil, err
		}
		return res, nil
	}
	return nil, fmt.Errorf("valkey authorize %s: contention retries exhausted", principal)
}

// Settle consumes amount from the reservation hold.
func (l *ValkeyLedger) Settle(ctx context.Context, res *Reservation, amount float64) error {
	return l.drain(ctx, res, amount, false)
}

// Release returns amount from the reservation hold to the balance.
func (l *ValkeyLedger) Release(ctx context.Context, res *Reservation, amount float64) error {
	return l.drain(ctx, res, amount, true)
}

// drain moves amount out of a reservation hold, optionally refunding it to
// the principal's balance, inside a WATCH transaction on the hold key.
func (l *ValkeyLedger) drain(ctx context.Context, res *Reservation, amount float64, refund bool) error {
	if res == nil {
		return fmt.Errorf("nil reservation")
	}
	if amount < 0 {
		return fmt.Errorf("negative amount %.4f", amount)
	}
	holdKey := holdKeyPrefix + res.ID

	txn := func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, holdKey).Result()
		if err == redis.Nil {
			return fmt.Errorf("unknown reservation %s", res.ID)
		}
		if err != nil {
			return err
		}
		held, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("parse hold %q: %w", val, err)
		}
		if amount > held+1e-9 {
			return fmt.Errorf("reservation %s holds %.4f, cannot drain %.4f", res.ID, held, amount)
		}
		remaining := held - amount
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if remaining <= 1e-9 {
				pipe.Del(ctx, holdKey)
				remaining = 0
			} else {
				pipe.Set(ctx, holdKey, remaining, 0)
			}
			if refund {
				pipe.IncrByFloat(ctx, balanceKeyPrefix+res.Principal, amount)
			}
			return nil
		})
		if err == nil {
			res.Held = remaining
		}
		return err
	}

	for i := 0; i < authorizeRetries; i++ {
		err := l.client.Watch(ctx, txn, holdKey)
		if err == redis.TxFailedErr {
			continue
		}
		return err
	}
	return fmt.Errorf("valkey drain %s: contention retries exhausted", res.ID)
}
