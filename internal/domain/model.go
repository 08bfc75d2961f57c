// Package domain holds the data model entities, invariants, and the
// closed error taxonomy shared by every component above the Persistent
// Store.
package domain

import (
	"time"

	"github.com/kmassidik/walletengine/internal/domain/money"
)

type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
}

type Asset struct {
	ID        string
	Symbol    string
	Name      string
	CreatedAt time.Time
}

type Wallet struct {
	ID        string
	UserID    string
	AssetID   string
	Balance   money.Amount
	CreatedAt time.Time
	UpdatedAt time.Time
}

type TransactionType string

const (
	TransactionTopUp TransactionType = "TOP_UP"
	TransactionBonus TransactionType = "BONUS"
	TransactionSpend TransactionType = "SPEND"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTopUp, TransactionBonus, TransactionSpend:
		return true
	default:
		return false
	}
}

type TransactionStatus string

const (
	TransactionSuccess TransactionStatus = "SUCCESS"
	TransactionFailed  TransactionStatus = "FAILED"
)

type Transaction struct {
	ID             string
	IdempotencyKey string
	FromWallet     string
	ToWallet       string
	Amount         money.Amount
	Type           TransactionType
	Status         TransactionStatus
	CreatedAt      time.Time
}

type EntryType string

const (
	EntryDebit  EntryType = "DEBIT"
	EntryCredit EntryType = "CREDIT"
)

type LedgerEntry struct {
	ID            string
	TransactionID string
	WalletID      string
	EntryType     EntryType
	Amount        money.Amount
	BalanceAfter  money.Amount
	CreatedAt     time.Time
}

// TransferResult is what ExecuteTransfer and a cached IC replay both
// produce - the caller-facing outcome of a transfer attempt.
type TransferResult struct {
	TxID    string
	Balance money.Amount
	Cached  bool
}

// Pagination mirrors the offset/limit contract RP exposes: hasMore is true
// when there are more matching rows past this page.
type Pagination struct {
	Limit   int
	Offset  int
	Total   int
	HasMore bool
}

func NewPagination(limit, offset, total, returned int) Pagination {
	return Pagination{
		Limit:   limit,
		Offset:  offset,
		Total:   total,
		HasMore: offset+returned < total,
	}
}
