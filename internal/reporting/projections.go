// Package reporting implements the Read Projections: four read-only
// operations served directly from the Persistent Store with no locking
// beyond the store's default snapshot read. None of these ever touch the
// Fast Idempotency Cache - that cache exists purely for transfer
// deduplication, not for reads.
package reporting

import (
	"context"
	"time"

	"github.com/kmassidik/walletengine/internal/common/logger"
	"github.com/kmassidik/walletengine/internal/domain"
	"github.com/kmassidik/walletengine/internal/store"
)

const (
	minLimit     = 1
	maxLimit     = 500
	defaultLimit = 50
)

type Projections struct {
	repo *store.Repository
	log  *logger.Logger
}

func New(repo *store.Repository, log *logger.Logger) *Projections {
	return &Projections{repo: repo, log: log}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit < minLimit {
		return minLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

// GetBalance looks up the user's wallet for the given asset. A negative
// balance is logged as corruption, not treated as a failure here - the
// read itself always succeeds if the wallet exists.
func (p *Projections) GetBalance(ctx context.Context, userID, assetSymbol string) (domain.Wallet, error) {
	asset, err := p.repo.FindAssetBySymbol(ctx, assetSymbol)
	if err != nil {
		return domain.Wallet{}, err
	}
	wallet, err := p.repo.GetWallet(ctx, userID, asset.ID)
	if err != nil {
		return domain.Wallet{}, err
	}
	if wallet.Balance.IsNegative() {
		p.log.Warnf("CORRUPTION: wallet %s has negative balance %s", wallet.ID, wallet.Balance)
	}
	return wallet, nil
}

type LedgerPage struct {
	Entries    []domain.LedgerEntry
	Pagination domain.Pagination
}

func (p *Projections) GetLedger(ctx context.Context, userID, assetSymbol string, limit, offset int) (LedgerPage, error) {
	limit = clampLimit(limit)
	offset = clampOffset(offset)

	filter := store.LedgerFilter{Limit: limit, Offset: offset}
	if assetSymbol != "" {
		asset, err := p.repo.FindAssetBySymbol(ctx, assetSymbol)
		if err != nil {
			return LedgerPage{}, err
		}
		filter.AssetID = asset.ID
	}

	entries, total, err := p.repo.ListLedgerEntriesForUser(ctx, userID, filter)
	if err != nil {
		return LedgerPage{}, err
	}

	return LedgerPage{
		Entries:    entries,
		Pagination: domain.NewPagination(limit, offset, total, len(entries)),
	}, nil
}

type TransactionHistoryFilter struct {
	Type        domain.TransactionType
	AssetSymbol string
	StartDate   *time.Time
	EndDate     *time.Time
	Limit       int
	Offset      int
}

type TransactionPage struct {
	Transactions []domain.Transaction
	Pagination   domain.Pagination
}

func (p *Projections) GetTransactionHistory(ctx context.Context, userID string, f TransactionHistoryFilter) (TransactionPage, error) {
	limit := clampLimit(f.Limit)
	offset := clampOffset(f.Offset)

	filter := store.TransactionFilter{Type: f.Type, Limit: limit, Offset: offset}
	if f.AssetSymbol != "" {
		asset, err := p.repo.FindAssetBySymbol(ctx, f.AssetSymbol)
		if err != nil {
			return TransactionPage{}, err
		}
		filter.AssetID = asset.ID
	}
	filter.StartDate = f.StartDate
	filter.EndDate = f.EndDate

	txns, total, err := p.repo.ListTransactionsForUser(ctx, userID, filter)
	if err != nil {
		return TransactionPage{}, err
	}

	return TransactionPage{
		Transactions: txns,
		Pagination:   domain.NewPagination(limit, offset, total, len(txns)),
	}, nil
}

type TransactionDetail struct {
	Transaction domain.Transaction
	Ledger      []domain.LedgerEntry
}

func (p *Projections) GetTransactionByID(ctx context.Context, txID string) (TransactionDetail, error) {
	txn, err := p.repo.GetTransactionByID(ctx, txID)
	if err != nil {
		return TransactionDetail{}, err
	}
	entries, err := p.repo.GetLedgerEntriesByTransactionID(ctx, txn.ID)
	if err != nil {
		return TransactionDetail{}, err
	}
	return TransactionDetail{Transaction: txn, Ledger: entries}, nil
}
