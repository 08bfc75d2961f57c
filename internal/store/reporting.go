package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kmassidik/walletengine/internal/domain"
)

// LedgerFilter narrows GetLedger to an optional asset and a page window.
type LedgerFilter struct {
	AssetID string // empty means no filter
	Limit   int
	Offset  int
}

// ListLedgerEntriesForUser returns the user's ledger entries across all of
// their wallets (optionally narrowed to one asset), newest first, with the
// total matching row count for pagination. The asset filter is pushed into
// the SQL predicate rather than applied after slicing the page - resolving
// spec Open Question 2 by construction instead of reproducing the
// source's post-slice filtering bug.
func (r *Repository) ListLedgerEntriesForUser(ctx context.Context, userID string, filter LedgerFilter) ([]domain.LedgerEntry, int, error) {
	where := `wallet_id IN (SELECT id FROM wallets WHERE user_id = $1)`
	args := []interface{}{userID}

	if filter.AssetID != "" {
		where += fmt.Sprintf(" AND wallet_id IN (SELECT id FROM wallets WHERE asset_id = $%d)", len(args)+1)
		args = append(args, filter.AssetID)
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM ledger_entries WHERE %s`, where)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, domain.Wrap(domain.KindInfrastructure, "count ledger entries", err)
	}

	query := fmt.Sprintf(`SELECT id, transaction_id, wallet_id, entry_type, amount, balance_after, created_at
		FROM ledger_entries WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, domain.Wrap(domain.KindInfrastructure, "list ledger entries", err)
	}
	defer rows.Close()

	entries, err := scanLedgerEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// TransactionFilter narrows GetTransactionHistory.
type TransactionFilter struct {
	Type      domain.TransactionType // empty means no filter
	AssetID   string                 // empty means no filter
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// ListTransactionsForUser returns transactions where the user is on either
// side, filtered and paginated entirely in SQL.
func (r *Repository) ListTransactionsForUser(ctx context.Context, userID string, filter TransactionFilter) ([]domain.Transaction, int, error) {
	var conditions []string
	args := []interface{}{userID}

	conditions = append(conditions, `(from_wallet IN (SELECT id FROM wallets WHERE user_id = $1) OR to_wallet IN (SELECT id FROM wallets WHERE user_id = $1))`)

	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.AssetID != "" {
		args = append(args, filter.AssetID)
		conditions = append(conditions, fmt.Sprintf(
			"(from_wallet IN (SELECT id FROM wallets WHERE asset_id = $%d) OR to_wallet IN (SELECT id FROM wallets WHERE asset_id = $%d))",
			len(args), len(args)))
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM transactions WHERE %s`, where)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, domain.Wrap(domain.KindInfrastructure, "count transactions", err)
	}

	query := fmt.Sprintf(`SELECT id, idempotency_key, from_wallet, to_wallet, amount, type, status, created_at
		FROM transactions WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, domain.Wrap(domain.KindInfrastructure, "list transactions", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t, err := r.scanTransactionRow(rows)
		if err != nil {
			return nil, 0, domain.Wrap(domain.KindInfrastructure, "scan transaction", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, domain.Wrap(domain.KindInfrastructure, "iterate transactions", err)
	}
	return txns, total, nil
}
