// Package treasury provides the one-time bootstrap/seed helper that
// creates the well-known treasury user, the configured assets, and the
// treasury's wallets with a large starting supply. This is explicitly out
// of the transfer engine's scope and is invoked manually (via cmd/migrate
// --seed), never automatically on every boot.
package treasury

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kmassidik/walletengine/internal/domain"
	"github.com/kmassidik/walletengine/internal/domain/money"
	"github.com/kmassidik/walletengine/internal/store"
)

const defaultTreasurySupply = "1000000000.0000"

type Seeder struct {
	repo *store.Repository
}

func NewSeeder(repo *store.Repository) *Seeder {
	return &Seeder{repo: repo}
}

// Seed ensures the treasury user and each named asset (with the
// treasury's corresponding wallet) exist. It is idempotent: re-running it
// against an already-seeded database is a no-op thanks to ON CONFLICT DO
// NOTHING in the underlying inserts.
func (s *Seeder) Seed(ctx context.Context, treasuryEmail string, assetSymbols []string) error {
	treasury := domain.User{
		ID:        uuid.NewString(),
		Email:     treasuryEmail,
		Name:      "Treasury",
		CreatedAt: time.Now(),
	}
	if err := s.repo.CreateUser(ctx, treasury); err != nil {
		return err
	}

	resolved, err := s.repo.FindUserByEmail(ctx, treasuryEmail)
	if err != nil {
		return err
	}

	supply := money.MustParse(defaultTreasurySupply)

	for _, symbol := range assetSymbols {
		asset := domain.Asset{ID: uuid.NewString(), Symbol: symbol, Name: symbol, CreatedAt: time.Now()}
		if err := s.repo.CreateAsset(ctx, asset); err != nil {
			return err
		}

		resolvedAsset, err := s.repo.FindAssetBySymbol(ctx, symbol)
		if err != nil {
			return err
		}

		wallet := domain.Wallet{
			ID:        uuid.NewString(),
			UserID:    resolved.ID,
			AssetID:   resolvedAsset.ID,
			Balance:   supply,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := s.repo.CreateWallet(ctx, wallet); err != nil {
			return err
		}
	}

	return nil
}
