// Package transfer implements the Transfer Engine: the single PS
// transaction, wrapped in a bounded retry loop, that validates a transfer
// request, acquires wallet locks in canonical order, verifies and mutates
// balances, and writes the transaction and its two ledger entries.
package transfer

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/kmassidik/walletengine/internal/common/db"
	"github.com/kmassidik/walletengine/internal/common/logger"
	"github.com/kmassidik/walletengine/internal/domain"
	"github.com/kmassidik/walletengine/internal/domain/money"
	"github.com/kmassidik/walletengine/internal/outbox"
	"github.com/kmassidik/walletengine/internal/router"
	"github.com/kmassidik/walletengine/internal/store"
)

const maxAttempts = 3

const transferCommittedTopic = "wallet.transfer.committed"

type Engine struct {
	repo       *store.Repository
	db         *db.DB
	outboxRepo *outbox.Repository
	router     *router.Router
	log        *logger.Logger
	maxAmount  money.Amount
	lockTimeoutMS int
}

func New(repo *store.Repository, database *db.DB, outboxRepo *outbox.Repository, rtr *router.Router, log *logger.Logger, maxAmount money.Amount, lockTimeoutMS int) *Engine {
	return &Engine{
		repo:          repo,
		db:            database,
		outboxRepo:    outboxRepo,
		router:        rtr,
		log:           log,
		maxAmount:     maxAmount,
		lockTimeoutMS: lockTimeoutMS,
	}
}

// ExecuteTransfer is the TE's single public operation. It validates req,
// resolves the (fromUserId, toUserId) pair via the router, and runs the
// locking/mutate/record algorithm inside a bounded retry loop, retrying
// only on contention errors (deadlock / lock timeout).
func (e *Engine) ExecuteTransfer(ctx context.Context, req Request) (domain.TransferResult, error) {
	amount, assetSymbol, err := validateRequest(req, e.maxAmount)
	if err != nil {
		return domain.TransferResult{}, err
	}

	fromUserID, toUserID, err := e.router.Endpoints(req.Type, req.UserID)
	if err != nil {
		return domain.TransferResult{}, domain.Wrap(domain.KindValidation, "cannot resolve transfer endpoints", err)
	}
	if fromUserID == toUserID {
		return domain.TransferResult{}, domain.New(domain.KindValidation, "fromUserId and toUserId must differ")
	}

	asset, err := e.repo.FindAssetBySymbol(ctx, assetSymbol)
	if err != nil {
		return domain.TransferResult{}, err
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := e.attempt(ctx, req, fromUserID, toUserID, asset.ID, amount)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !domain.IsKind(err, domain.KindContention) {
			return domain.TransferResult{}, err
		}
		if attempt == maxAttempts {
			break
		}

		backoff := time.Duration(math.Pow(2, float64(attempt))) * 100 * time.Millisecond
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return domain.TransferResult{}, domain.Wrap(domain.KindInfrastructure, "context canceled during retry backoff", ctx.Err())
		}
	}

	return domain.TransferResult{}, domain.Wrap(domain.KindContention, "exhausted retry attempts under contention", lastErr)
}

// attempt runs one full pass of the algorithm (steps 1-9) inside a single
// PS transaction. Retries re-enter here; the idempotency probe inside the
// transaction (step 2) is what makes a retry after a racing commit safe.
func (e *Engine) attempt(ctx context.Context, req Request, fromUserID, toUserID, assetID string, amount money.Amount) (domain.TransferResult, error) {
	var result domain.TransferResult

	err := e.db.WithTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		// Step 1: session configuration - fail fast on lock acquisition.
		if _, err := tx.ExecContext(ctx, lockTimeoutStatement(e.lockTimeoutMS)); err != nil {
			return domain.Wrap(domain.KindInfrastructure, "set statement lock timeout", err)
		}

		// Step 2: DB-level idempotency probe.
		existing, found, err := e.repo.FindTransactionByIdempotencyKeyTx(ctx, tx, req.IdempotencyKey)
		if err != nil {
			return err
		}
		if found {
			replay, err := e.resultFromExisting(ctx, tx, existing)
			if err != nil {
				return err
			}
			result = replay
			return nil
		}

		// Step 3: canonical lock acquisition, sorted by user id.
		wallets, err := e.repo.LockWalletsForUpdate(ctx, tx, fromUserID, toUserID, assetID)
		if err != nil {
			return err
		}

		// Step 4: load wallets (already locked above).
		fromWallet := wallets[fromUserID]
		toWallet := wallets[toUserID]

		// Step 5: balance check.
		if fromWallet.Balance.IsNegative() {
			e.log.Errorf("CORRUPTION: wallet %s has negative balance %s", fromWallet.ID, fromWallet.Balance)
			return domain.New(domain.KindCorruption, "source wallet balance is negative")
		}
		if fromWallet.Balance.LessThan(amount) {
			return domain.New(domain.KindInsufficientFunds, "Insufficient funds.")
		}

		// Step 6: compute new balances.
		newFromBalance := fromWallet.Balance.Sub(amount)
		newToBalance := toWallet.Balance.Add(amount)

		// Step 7: mutate.
		if err := e.repo.UpdateWalletBalanceTx(ctx, tx, fromWallet.ID, newFromBalance); err != nil {
			return err
		}
		if err := e.repo.UpdateWalletBalanceTx(ctx, tx, toWallet.ID, newToBalance); err != nil {
			return err
		}

		// Step 8: record the transaction. A unique_violation here means a
		// concurrent attempt for the same idempotency key won the race; this
		// attempt aborts (the transaction is already unusable after a
		// constraint error) and the outer retry loop re-enters at step 2.
		now := time.Now()
		txn := domain.Transaction{
			ID:             uuid.NewString(),
			IdempotencyKey: req.IdempotencyKey,
			FromWallet:     fromWallet.ID,
			ToWallet:       toWallet.ID,
			Amount:         amount,
			Type:           req.Type,
			Status:         domain.TransactionSuccess,
			CreatedAt:      now,
		}
		if err := e.repo.CreateTransactionTx(ctx, tx, txn); err != nil {
			if db.IsUniqueViolation(err) {
				return domain.Wrap(domain.KindContention, "idempotency key committed by a concurrent attempt", err)
			}
			if db.IsContention(err) {
				return domain.Wrap(domain.KindContention, "contention creating transaction", err)
			}
			return domain.Wrap(domain.KindInfrastructure, "create transaction", err)
		}

		// Step 9: ledger - one DEBIT, one CREDIT, same amount.
		entries := []domain.LedgerEntry{
			{ID: uuid.NewString(), TransactionID: txn.ID, WalletID: fromWallet.ID, EntryType: domain.EntryDebit, Amount: amount, BalanceAfter: newFromBalance, CreatedAt: now},
			{ID: uuid.NewString(), TransactionID: txn.ID, WalletID: toWallet.ID, EntryType: domain.EntryCredit, Amount: amount, BalanceAfter: newToBalance, CreatedAt: now},
		}
		if err := e.repo.CreateLedgerEntriesTx(ctx, tx, entries); err != nil {
			return err
		}

		if err := e.recordOutboxEvent(ctx, tx, txn, fromWallet.ID, toWallet.ID); err != nil {
			return err
		}

		result = domain.TransferResult{TxID: txn.ID, Balance: callerFacingBalance(req.Type, newFromBalance, newToBalance)}
		return nil
	})

	if err != nil {
		return domain.TransferResult{}, err
	}
	return result, nil
}

// resultFromExisting answers the probe hit in step 2: it resolves the
// caller-facing balance from the committed transaction's own ledger
// entries rather than returning a placeholder, per the Open Question on
// replay balances.
func (e *Engine) resultFromExisting(ctx context.Context, tx *sql.Tx, existing domain.Transaction) (domain.TransferResult, error) {
	entries, err := e.repo.GetLedgerEntriesByTransactionIDTx(ctx, tx, existing.ID)
	if err != nil {
		return domain.TransferResult{}, err
	}

	wantType, wantWallet := replaySide(existing.Type, existing.FromWallet, existing.ToWallet)
	for _, entry := range entries {
		if entry.EntryType == wantType && entry.WalletID == wantWallet {
			return domain.TransferResult{TxID: existing.ID, Balance: entry.BalanceAfter, Cached: true}, nil
		}
	}
	return domain.TransferResult{TxID: existing.ID, Cached: true}, nil
}

func replaySide(txType domain.TransactionType, fromWallet, toWallet string) (domain.EntryType, string) {
	switch txType {
	case domain.TransactionSpend:
		return domain.EntryDebit, fromWallet
	default: // TOP_UP, BONUS
		return domain.EntryCredit, toWallet
	}
}

func callerFacingBalance(txType domain.TransactionType, newFromBalance, newToBalance money.Amount) money.Amount {
	if txType == domain.TransactionSpend {
		return newFromBalance
	}
	return newToBalance
}

func (e *Engine) recordOutboxEvent(ctx context.Context, tx *sql.Tx, txn domain.Transaction, fromWalletID, toWalletID string) error {
	event := &outbox.OutboxEvent{
		AggregateID: txn.ID,
		EventType:   "transfer.committed",
		Topic:       transferCommittedTopic,
		Payload: map[string]interface{}{
			"transactionId": txn.ID,
			"fromWallet":    fromWalletID,
			"toWallet":      toWalletID,
			"amount":        txn.Amount.String(),
			"type":          string(txn.Type),
		},
	}
	if err := e.outboxRepo.SaveEvent(ctx, tx, event); err != nil {
		return domain.Wrap(domain.KindInfrastructure, "record outbox event", err)
	}
	return nil
}

func lockTimeoutStatement(ms int) string {
	if ms <= 0 {
		ms = 5000
	}
	return fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", ms)
}
