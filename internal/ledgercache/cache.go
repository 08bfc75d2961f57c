// Package ledgercache maintains a denormalized, non-authoritative
// per-wallet running-total cache in the Fast Idempotency Cache, fed by
// committed transfer events. It exists purely to serve fast dashboards -
// Read Projections never reads from it, and GetBalance always reads the
// Persistent Store directly.
package ledgercache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kmassidik/walletengine/internal/common/fic"
	"github.com/kmassidik/walletengine/internal/common/logger"
)

type transferCommittedEvent struct {
	TransactionID string `json:"transactionId"`
	FromWallet    string `json:"fromWallet"`
	ToWallet      string `json:"toWallet"`
	Amount        string `json:"amount"`
	Type          string `json:"type"`
}

type Cache struct {
	fic *fic.Client
	log *logger.Logger
}

func New(cache *fic.Client, log *logger.Logger) *Cache {
	return &Cache{fic: cache, log: log}
}

func walletTotalKey(walletID string) string {
	return fmt.Sprintf("ledgercache:wallet-total:%s", walletID)
}

// Apply folds one transfer.committed event into the running-total cache:
// the debited wallet's total decreases, the credited wallet's increases.
func (c *Cache) Apply(ctx context.Context, key, value []byte) error {
	var event transferCommittedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("ledgercache: unmarshal event: %w", err)
	}

	var amount float64
	if _, err := fmt.Sscanf(event.Amount, "%f", &amount); err != nil {
		return fmt.Errorf("ledgercache: parse amount %q: %w", event.Amount, err)
	}

	if _, err := c.fic.IncrementFloat(ctx, walletTotalKey(event.FromWallet), -amount); err != nil {
		return fmt.Errorf("ledgercache: debit wallet %s: %w", event.FromWallet, err)
	}
	if _, err := c.fic.IncrementFloat(ctx, walletTotalKey(event.ToWallet), amount); err != nil {
		return fmt.Errorf("ledgercache: credit wallet %s: %w", event.ToWallet, err)
	}

	c.log.Debugf("ledger cache updated for transaction %s (%s -> %s, %s)", event.TransactionID, event.FromWallet, event.ToWallet, event.Amount)
	return nil
}
