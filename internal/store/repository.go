// Package store is the Persistent Store repository: the only package that
// issues SQL against wallets, transactions, and ledger_entries. It never
// reasons about idempotency coordination or routing - callers (mainly the
// transfer engine and read projections) decide when to call which method.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kmassidik/walletengine/internal/common/db"
	"github.com/kmassidik/walletengine/internal/common/logger"
	"github.com/kmassidik/walletengine/internal/domain"
	"github.com/kmassidik/walletengine/internal/domain/money"
)

type Repository struct {
	db  *db.DB
	log *logger.Logger
}

func NewRepository(database *db.DB, log *logger.Logger) *Repository {
	return &Repository{db: database, log: log}
}

func (r *Repository) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var u domain.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, created_at FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.New(domain.KindNotFound, fmt.Sprintf("user %q not found", email))
	}
	if err != nil {
		return domain.User{}, domain.Wrap(domain.KindInfrastructure, "find user by email", err)
	}
	return u, nil
}

func (r *Repository) FindAssetBySymbol(ctx context.Context, symbol string) (domain.Asset, error) {
	var a domain.Asset
	err := r.db.QueryRowContext(ctx,
		`SELECT id, symbol, name, created_at FROM assets WHERE symbol = $1`, symbol,
	).Scan(&a.ID, &a.Symbol, &a.Name, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Asset{}, domain.New(domain.KindNotFound, fmt.Sprintf("asset %q not found", symbol))
	}
	if err != nil {
		return domain.Asset{}, domain.Wrap(domain.KindInfrastructure, "find asset by symbol", err)
	}
	return a, nil
}

// LockWalletsForUpdate is the canonical-lock-order acquisition step: it
// locks the two wallets belonging to userA and userB for the given asset
// in a single statement ordered by user_id ascending, so any two
// concurrent transfers touching the same pair of wallets request their
// locks in the same order regardless of which side initiated which leg.
// Returns NotFound if either wallet is absent.
func (r *Repository) LockWalletsForUpdate(ctx context.Context, tx *sql.Tx, userA, userB, assetID string) (map[string]domain.Wallet, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, user_id, asset_id, balance, created_at, updated_at
		 FROM wallets
		 WHERE user_id IN ($1, $2) AND asset_id = $3
		 ORDER BY user_id ASC
		 FOR UPDATE`,
		userA, userB, assetID,
	)
	if err != nil {
		if db.IsContention(err) {
			return nil, domain.Wrap(domain.KindContention, "lock wallets", err)
		}
		return nil, domain.Wrap(domain.KindInfrastructure, "lock wallets", err)
	}
	defer rows.Close()

	result := make(map[string]domain.Wallet)
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, domain.Wrap(domain.KindInfrastructure, "scan locked wallet", err)
		}
		result[w.UserID] = w
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Wrap(domain.KindInfrastructure, "iterate locked wallets", err)
	}

	if _, ok := result[userA]; !ok {
		return nil, domain.New(domain.KindNotFound, fmt.Sprintf("wallet for user %q not found", userA))
	}
	if _, ok := result[userB]; !ok {
		return nil, domain.New(domain.KindNotFound, fmt.Sprintf("wallet for user %q not found", userB))
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWallet(row rowScanner) (domain.Wallet, error) {
	var w domain.Wallet
	var balanceStr string
	if err := row.Scan(&w.ID, &w.UserID, &w.AssetID, &balanceStr, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return domain.Wallet{}, err
	}
	balance, err := money.Parse(balanceStr)
	if err != nil {
		return domain.Wallet{}, err
	}
	w.Balance = balance
	return w, nil
}

func (r *Repository) UpdateWalletBalanceTx(ctx context.Context, tx *sql.Tx, walletID string, newBalance money.Amount) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE wallets SET balance = $1, updated_at = now() WHERE id = $2`,
		newBalance.String(), walletID,
	)
	if err != nil {
		return domain.Wrap(domain.KindInfrastructure, "update wallet balance", err)
	}
	return nil
}

// FindTransactionByIdempotencyKey looks up a transaction by idempotency key
// with a plain read outside any transaction. The transfer engine's step-2
// probe uses FindTransactionByIdempotencyKeyTx instead.
func (r *Repository) FindTransactionByIdempotencyKey(ctx context.Context, key string) (domain.Transaction, bool, error) {
	txn, err := r.scanTransactionRow(r.db.QueryRowContext(ctx,
		`SELECT id, idempotency_key, from_wallet, to_wallet, amount, type, status, created_at
		 FROM transactions WHERE idempotency_key = $1`, key,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Transaction{}, false, nil
	}
	if err != nil {
		return domain.Transaction{}, false, domain.Wrap(domain.KindInfrastructure, "find transaction by idempotency key", err)
	}
	return txn, true, nil
}

// FindTransactionByIdempotencyKeyTx is the same probe as
// FindTransactionByIdempotencyKey, run inside the transfer engine's
// transaction so a retry that lands after a concurrent winner already
// committed observes it within the same attempt.
func (r *Repository) FindTransactionByIdempotencyKeyTx(ctx context.Context, tx *sql.Tx, key string) (domain.Transaction, bool, error) {
	txn, err := r.scanTransactionRow(tx.QueryRowContext(ctx,
		`SELECT id, idempotency_key, from_wallet, to_wallet, amount, type, status, created_at
		 FROM transactions WHERE idempotency_key = $1`, key,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Transaction{}, false, nil
	}
	if err != nil {
		return domain.Transaction{}, false, domain.Wrap(domain.KindInfrastructure, "find transaction by idempotency key (tx)", err)
	}
	return txn, true, nil
}

func (r *Repository) scanTransactionRow(row rowScanner) (domain.Transaction, error) {
	var t domain.Transaction
	var amountStr string
	if err := row.Scan(&t.ID, &t.IdempotencyKey, &t.FromWallet, &t.ToWallet, &amountStr, &t.Type, &t.Status, &t.CreatedAt); err != nil {
		return domain.Transaction{}, err
	}
	amount, err := money.Parse(amountStr)
	if err != nil {
		return domain.Transaction{}, err
	}
	t.Amount = amount
	return t, nil
}

// CreateTransactionTx inserts the transaction row. A caller racing another
// attempt for the same idempotency key gets a Postgres unique_violation -
// db.IsUniqueViolation classifies it so the engine can fall back to
// re-reading the winner's row instead of treating it as a hard failure.
func (r *Repository) CreateTransactionTx(ctx context.Context, tx *sql.Tx, t domain.Transaction) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (id, idempotency_key, from_wallet, to_wallet, amount, type, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.IdempotencyKey, t.FromWallet, t.ToWallet, t.Amount.String(), t.Type, t.Status, t.CreatedAt,
	)
	if err != nil {
		return err // classified by the caller via db.IsUniqueViolation/IsContention
	}
	return nil
}

func (r *Repository) CreateLedgerEntriesTx(ctx context.Context, tx *sql.Tx, entries []domain.LedgerEntry) error {
	for _, e := range entries {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO ledger_entries (id, transaction_id, wallet_id, entry_type, amount, balance_after, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			e.ID, e.TransactionID, e.WalletID, e.EntryType, e.Amount.String(), e.BalanceAfter.String(), e.CreatedAt,
		)
		if err != nil {
			return domain.Wrap(domain.KindInfrastructure, "insert ledger entry", err)
		}
	}
	return nil
}

func (r *Repository) GetTransactionByID(ctx context.Context, id string) (domain.Transaction, error) {
	txn, err := r.scanTransactionRow(r.db.QueryRowContext(ctx,
		`SELECT id, idempotency_key, from_wallet, to_wallet, amount, type, status, created_at
		 FROM transactions WHERE id = $1`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Transaction{}, domain.New(domain.KindNotFound, "transaction not found")
	}
	if err != nil {
		return domain.Transaction{}, domain.Wrap(domain.KindInfrastructure, "get transaction by id", err)
	}
	return txn, nil
}

func (r *Repository) GetLedgerEntriesByTransactionID(ctx context.Context, txID string) ([]domain.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, transaction_id, wallet_id, entry_type, amount, balance_after, created_at
		 FROM ledger_entries WHERE transaction_id = $1 ORDER BY created_at ASC`, txID,
	)
	if err != nil {
		return nil, domain.Wrap(domain.KindInfrastructure, "get ledger entries by transaction", err)
	}
	defer rows.Close()
	return scanLedgerEntries(rows)
}

func scanLedgerEntries(rows *sql.Rows) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var amountStr, balanceStr string
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.WalletID, &e.EntryType, &amountStr, &balanceStr, &e.CreatedAt); err != nil {
			return nil, domain.Wrap(domain.KindInfrastructure, "scan ledger entry", err)
		}
		amount, err := money.Parse(amountStr)
		if err != nil {
			return nil, err
		}
		balance, err := money.Parse(balanceStr)
		if err != nil {
			return nil, err
		}
		e.Amount = amount
		e.BalanceAfter = balance
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Wrap(domain.KindInfrastructure, "iterate ledger entries", err)
	}
	return entries, nil
}

// GetLedgerEntriesByTransactionIDTx mirrors GetLedgerEntriesByTransactionID
// but runs inside the caller's transaction - used when replaying an
// existing committed transaction's outcome within the same attempt that
// found it via FindTransactionByIdempotencyKeyTx.
func (r *Repository) GetLedgerEntriesByTransactionIDTx(ctx context.Context, tx *sql.Tx, txID string) ([]domain.LedgerEntry, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, transaction_id, wallet_id, entry_type, amount, balance_after, created_at
		 FROM ledger_entries WHERE transaction_id = $1 ORDER BY created_at ASC`, txID,
	)
	if err != nil {
		return nil, domain.Wrap(domain.KindInfrastructure, "get ledger entries by transaction (tx)", err)
	}
	defer rows.Close()
	return scanLedgerEntries(rows)
}

// GetWallet is a plain, unlocked read used by read projections - never by
// the transfer engine, which always goes through LockWalletsForUpdate.
func (r *Repository) GetWallet(ctx context.Context, userID, assetID string) (domain.Wallet, error) {
	w, err := scanWallet(r.db.QueryRowContext(ctx,
		`SELECT id, user_id, asset_id, balance, created_at, updated_at
		 FROM wallets WHERE user_id = $1 AND asset_id = $2`, userID, assetID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Wallet{}, domain.New(domain.KindNotFound, "wallet not found")
	}
	if err != nil {
		return domain.Wallet{}, domain.Wrap(domain.KindInfrastructure, "get wallet", err)
	}
	return w, nil
}

func (r *Repository) ListWalletIDsForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM wallets WHERE user_id = $1`, userID)
	if err != nil {
		return nil, domain.Wrap(domain.KindInfrastructure, "list wallet ids for user", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, domain.Wrap(domain.KindInfrastructure, "scan wallet id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
