// Package idempotency implements the Idempotency Coordinator: it reserves
// a caller's idempotency key in the Fast Idempotency Cache, returns cached
// terminal outcomes verbatim, and prevents two concurrent attempts with
// the same key from both doing the work. It is an optimistic cache, never
// a lock - the Persistent Store's UNIQUE(idempotency_key) constraint is
// the authoritative deduplication guard; a coordinator outage degrades
// latency, not correctness.
package idempotency

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kmassidik/walletengine/internal/common/fic"
)

type Status string

const (
	StatusProcessing Status = "PROCESSING"
	StatusSuccess    Status = "SUCCESS"
	StatusFailed     Status = "FAILED"
)

// Outcome is the JSON shape stored under idempotency:<key> in FIC.
type Outcome struct {
	Status  Status `json:"status"`
	TxID    string `json:"txId,omitempty"`
	Balance string `json:"balance,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func (o Outcome) Terminal() bool {
	return o.Status == StatusSuccess || o.Status == StatusFailed
}

type State int

const (
	StateReserved State = iota
	StateInFlight
	StateTerminal
)

type ReserveResult struct {
	State   State
	Outcome Outcome // populated for StateInFlight and StateTerminal
}

type Coordinator struct {
	cache          *fic.Client
	processingTTL  time.Duration
	terminalTTL    time.Duration
}

func New(cache *fic.Client, processingTTL, terminalTTL time.Duration) *Coordinator {
	return &Coordinator{cache: cache, processingTTL: processingTTL, terminalTTL: terminalTTL}
}

func cacheKey(idempotencyKey string) string {
	return fmt.Sprintf("idempotency:%s", idempotencyKey)
}

// ReserveOrFetch attempts to reserve key for processing. If it wins the
// race it returns StateReserved and the caller must eventually call
// Finalize. If it loses the race it returns either StateInFlight (someone
// else is still processing) or StateTerminal (a prior attempt already
// completed) together with that attempt's Outcome.
func (c *Coordinator) ReserveOrFetch(ctx context.Context, key string) (ReserveResult, error) {
	reservation := Outcome{Status: StatusProcessing}
	payload, err := json.Marshal(reservation)
	if err != nil {
		return ReserveResult{}, fmt.Errorf("idempotency: marshal reservation: %w", err)
	}

	won, err := c.cache.TryReserve(ctx, cacheKey(key), string(payload), c.processingTTL)
	if err != nil {
		return ReserveResult{}, err
	}
	if won {
		return ReserveResult{State: StateReserved}, nil
	}

	raw, found, err := c.cache.Get(ctx, cacheKey(key))
	if err != nil {
		return ReserveResult{}, err
	}
	if !found {
		// Lost the race but the winner's key already expired (wide window,
		// effectively impossible with sane TTLs) - treat as a fresh
		// reservation attempt rather than erroring.
		return c.ReserveOrFetch(ctx, key)
	}

	var existing Outcome
	if err := json.Unmarshal([]byte(raw), &existing); err != nil {
		return ReserveResult{}, fmt.Errorf("idempotency: unmarshal cached outcome: %w", err)
	}

	if existing.Terminal() {
		return ReserveResult{State: StateTerminal, Outcome: existing}, nil
	}
	return ReserveResult{State: StateInFlight, Outcome: existing}, nil
}

// Finalize overwrites key's cached value with its terminal outcome and
// extends the TTL to the long-lived terminal window.
func (c *Coordinator) Finalize(ctx context.Context, key string, outcome Outcome) error {
	payload, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("idempotency: marshal outcome: %w", err)
	}
	return c.cache.Set(ctx, cacheKey(key), string(payload), c.terminalTTL)
}

// Release removes an in-progress reservation that never reached a
// terminal outcome - used when the caller can prove (via the PS
// idempotency probe) that no work actually happened, so a retry should
// not see a stale PROCESSING entry wait out its TTL unnecessarily.
func (c *Coordinator) Release(ctx context.Context, key string) error {
	return c.cache.Delete(ctx, cacheKey(key))
}
