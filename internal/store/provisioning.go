package store

import (
	"context"

	"github.com/kmassidik/walletengine/internal/domain"
)

// The methods in this file back bootstrap/seeding only - creating users,
// assets, and wallets is explicitly out of the transfer engine's scope and
// is never called from the HTTP-facing transfer path.

func (r *Repository) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, created_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (email) DO NOTHING`,
		u.ID, u.Email, u.Name, u.CreatedAt,
	)
	if err != nil {
		return domain.Wrap(domain.KindInfrastructure, "create user", err)
	}
	return nil
}

func (r *Repository) CreateAsset(ctx context.Context, a domain.Asset) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO assets (id, symbol, name, created_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (symbol) DO NOTHING`,
		a.ID, a.Symbol, a.Name, a.CreatedAt,
	)
	if err != nil {
		return domain.Wrap(domain.KindInfrastructure, "create asset", err)
	}
	return nil
}

func (r *Repository) CreateWallet(ctx context.Context, w domain.Wallet) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO wallets (id, user_id, asset_id, balance, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, asset_id) DO NOTHING`,
		w.ID, w.UserID, w.AssetID, w.Balance.String(), w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return domain.Wrap(domain.KindInfrastructure, "create wallet", err)
	}
	return nil
}
