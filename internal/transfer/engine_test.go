package transfer

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kmassidik/walletengine/internal/common/config"
	"github.com/kmassidik/walletengine/internal/common/db"
	"github.com/kmassidik/walletengine/internal/common/logger"
	"github.com/kmassidik/walletengine/internal/domain"
	"github.com/kmassidik/walletengine/internal/domain/money"
	"github.com/kmassidik/walletengine/internal/outbox"
	"github.com/kmassidik/walletengine/internal/router"
	"github.com/kmassidik/walletengine/internal/store"
)

type testFixture struct {
	engine   *Engine
	database *db.DB
	treasury domain.User
	alice    domain.User
	bob      domain.User
	gold     domain.Asset
}

func setupEngine(t *testing.T) *testFixture {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	cfg := config.DatabaseConfig{
		Host: "localhost", Port: "5432", User: "postgres", Password: "postgres",
		DBName: "walletengine_transfer_test", MaxOpenConns: 10, MaxIdleConns: 5, ConnMaxLifetime: 300,
	}
	log := logger.New("test")
	database, err := db.Connect(cfg, log)
	if err != nil {
		t.Skipf("cannot connect to database: %v", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS users (id UUID PRIMARY KEY DEFAULT gen_random_uuid(), email VARCHAR(255) NOT NULL UNIQUE, name VARCHAR(255) NOT NULL, created_at TIMESTAMPTZ NOT NULL DEFAULT now());
	CREATE TABLE IF NOT EXISTS assets (id UUID PRIMARY KEY DEFAULT gen_random_uuid(), symbol VARCHAR(32) NOT NULL UNIQUE, name VARCHAR(255) NOT NULL, created_at TIMESTAMPTZ NOT NULL DEFAULT now());
	CREATE TABLE IF NOT EXISTS wallets (id UUID PRIMARY KEY DEFAULT gen_random_uuid(), user_id UUID NOT NULL REFERENCES users(id), asset_id UUID NOT NULL REFERENCES assets(id), balance NUMERIC(20,4) NOT NULL DEFAULT 0 CHECK (balance >= 0), created_at TIMESTAMPTZ NOT NULL DEFAULT now(), updated_at TIMESTAMPTZ NOT NULL DEFAULT now(), UNIQUE(user_id, asset_id));
	CREATE TABLE IF NOT EXISTS transactions (id UUID PRIMARY KEY DEFAULT gen_random_uuid(), idempotency_key VARCHAR(255) NOT NULL UNIQUE, from_wallet UUID NOT NULL REFERENCES wallets(id), to_wallet UUID NOT NULL REFERENCES wallets(id), amount NUMERIC(20,4) NOT NULL CHECK (amount > 0), type VARCHAR(16) NOT NULL, status VARCHAR(16) NOT NULL DEFAULT 'SUCCESS', created_at TIMESTAMPTZ NOT NULL DEFAULT now());
	CREATE TABLE IF NOT EXISTS ledger_entries (id UUID PRIMARY KEY DEFAULT gen_random_uuid(), transaction_id UUID NOT NULL REFERENCES transactions(id), wallet_id UUID NOT NULL REFERENCES wallets(id), entry_type VARCHAR(8) NOT NULL, amount NUMERIC(20,4) NOT NULL, balance_after NUMERIC(20,4) NOT NULL, created_at TIMESTAMPTZ NOT NULL DEFAULT now());
	CREATE TABLE IF NOT EXISTS outbox_events (id UUID PRIMARY KEY DEFAULT gen_random_uuid(), aggregate_id VARCHAR(255) NOT NULL, event_type VARCHAR(100) NOT NULL, topic VARCHAR(100) NOT NULL, payload JSONB NOT NULL, status VARCHAR(20) NOT NULL DEFAULT 'pending', attempts INT NOT NULL DEFAULT 0, last_error TEXT, created_at TIMESTAMPTZ NOT NULL DEFAULT now(), published_at TIMESTAMPTZ);
	TRUNCATE ledger_entries, transactions, outbox_events, wallets, assets, users CASCADE;
	`
	if _, err := database.Exec(schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	repo := store.NewRepository(database, log)
	outboxRepo := outbox.NewRepository(database.DB, log)
	ctx := context.Background()

	treasury := domain.User{ID: uuid.NewString(), Email: "treasury@walletengine.internal", Name: "Treasury", CreatedAt: time.Now()}
	alice := domain.User{ID: uuid.NewString(), Email: "alice@example.com", Name: "Alice", CreatedAt: time.Now()}
	bob := domain.User{ID: uuid.NewString(), Email: "bob@example.com", Name: "Bob", CreatedAt: time.Now()}
	for _, u := range []domain.User{treasury, alice, bob} {
		if err := repo.CreateUser(ctx, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}

	gold := domain.Asset{ID: uuid.NewString(), Symbol: "GOLD", Name: "Gold", CreatedAt: time.Now()}
	if err := repo.CreateAsset(ctx, gold); err != nil {
		t.Fatalf("create asset: %v", err)
	}

	wallets := []struct {
		user    domain.User
		balance string
	}{
		{treasury, "1000000000.0000"},
		{alice, "500.0000"},
		{bob, "1000.0000"},
	}
	for _, w := range wallets {
		wallet := domain.Wallet{ID: uuid.NewString(), UserID: w.user.ID, AssetID: gold.ID, Balance: money.MustParse(w.balance), CreatedAt: time.Now(), UpdatedAt: time.Now()}
		if err := repo.CreateWallet(ctx, wallet); err != nil {
			t.Fatalf("create wallet: %v", err)
		}
	}

	rtr, err := router.Resolve(ctx, repo, treasury.Email)
	if err != nil {
		t.Fatalf("resolve router: %v", err)
	}

	engine := New(repo, database, outboxRepo, rtr, log, money.MustParse("1000000000.0000"), 5000)

	return &testFixture{engine: engine, database: database, treasury: treasury, alice: alice, bob: bob, gold: gold}
}

func (f *testFixture) cleanup() {
	f.database.Exec("TRUNCATE ledger_entries, transactions, outbox_events, wallets, assets, users CASCADE")
	f.database.Close()
}

func TestExecuteTransfer_TopUpCreditsUser(t *testing.T) {
	f := setupEngine(t)
	defer f.cleanup()
	ctx := context.Background()

	result, err := f.engine.ExecuteTransfer(ctx, Request{
		IdempotencyKey: "k1", UserID: f.alice.ID, Type: domain.TransactionTopUp, AssetSymbol: "GOLD", Amount: "100",
	})
	if err != nil {
		t.Fatalf("ExecuteTransfer: %v", err)
	}
	if result.Balance.String() != "600.0000" {
		t.Errorf("expected balance 600.0000, got %s", result.Balance)
	}
}

func TestExecuteTransfer_ReplayReturnsStoredOutcome(t *testing.T) {
	f := setupEngine(t)
	defer f.cleanup()
	ctx := context.Background()

	req := Request{IdempotencyKey: "k1", UserID: f.alice.ID, Type: domain.TransactionTopUp, AssetSymbol: "GOLD", Amount: "100"}

	first, err := f.engine.ExecuteTransfer(ctx, req)
	if err != nil {
		t.Fatalf("first attempt: %v", err)
	}

	second, err := f.engine.ExecuteTransfer(ctx, req)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !second.Cached {
		t.Error("expected replay to be marked cached")
	}
	if second.TxID != first.TxID {
		t.Errorf("expected same txId, got %s vs %s", second.TxID, first.TxID)
	}
	if second.Balance.String() != "600.0000" {
		t.Errorf("expected replayed balance 600.0000, got %s", second.Balance)
	}
}

func TestExecuteTransfer_SpendDebitsUser(t *testing.T) {
	f := setupEngine(t)
	defer f.cleanup()
	ctx := context.Background()

	result, err := f.engine.ExecuteTransfer(ctx, Request{
		IdempotencyKey: "k2", UserID: f.alice.ID, Type: domain.TransactionSpend, AssetSymbol: "GOLD", Amount: "50",
	})
	if err != nil {
		t.Fatalf("ExecuteTransfer: %v", err)
	}
	if result.Balance.String() != "450.0000" {
		t.Errorf("expected balance 450.0000, got %s", result.Balance)
	}
}

func TestExecuteTransfer_InsufficientFundsRejected(t *testing.T) {
	f := setupEngine(t)
	defer f.cleanup()
	ctx := context.Background()

	_, err := f.engine.ExecuteTransfer(ctx, Request{
		IdempotencyKey: "k3", UserID: f.bob.ID, Type: domain.TransactionSpend, AssetSymbol: "GOLD", Amount: "10000",
	})
	if !domain.IsKind(err, domain.KindInsufficientFunds) {
		t.Fatalf("expected InsufficientFunds, got %v", err)
	}
}

func TestExecuteTransfer_ConcurrentTopUpsBothCommit(t *testing.T) {
	f := setupEngine(t)
	defer f.cleanup()
	ctx := context.Background()

	errs := make(chan error, 2)
	go func() {
		_, err := f.engine.ExecuteTransfer(ctx, Request{IdempotencyKey: "k4", UserID: f.alice.ID, Type: domain.TransactionTopUp, AssetSymbol: "GOLD", Amount: "100"})
		errs <- err
	}()
	go func() {
		_, err := f.engine.ExecuteTransfer(ctx, Request{IdempotencyKey: "k5", UserID: f.alice.ID, Type: domain.TransactionTopUp, AssetSymbol: "GOLD", Amount: "100"})
		errs <- err
	}()

	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("concurrent transfer failed: %v", err)
		}
	}

	wallet, err := f.engine.repo.GetWallet(ctx, f.alice.ID, f.gold.ID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if wallet.Balance.String() != "700.0000" {
		t.Errorf("expected balance 700.0000 after two concurrent top-ups, got %s", wallet.Balance)
	}
}
