package outbox

import (
	"context"
	"testing"

	"github.com/kmassidik/walletengine/internal/common/config"
	"github.com/kmassidik/walletengine/internal/common/db"
	"github.com/kmassidik/walletengine/internal/common/logger"
)

func setupTestDB(t *testing.T) (*Repository, *db.DB) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	cfg := config.DatabaseConfig{
		Host:            "localhost",
		Port:            "5432",
		User:            "postgres",
		Password:        "postgres",
		DBName:          "walletengine_outbox_test",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 300,
	}

	log := logger.New("test")
	database, err := db.Connect(cfg, log)
	if err != nil {
		t.Skipf("Cannot connect to database: %v", err)
		return nil, nil
	}

	schema := `
	CREATE TABLE IF NOT EXISTS outbox_events (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		aggregate_id VARCHAR(255) NOT NULL,
		event_type VARCHAR(100) NOT NULL,
		topic VARCHAR(100) NOT NULL,
		payload JSONB NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		attempts INT NOT NULL DEFAULT 0,
		last_error TEXT,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		published_at TIMESTAMP WITH TIME ZONE
	);
	TRUNCATE outbox_events CASCADE;
	`
	if _, err := database.Exec(schema); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	return NewRepository(database.DB, log), database
}

func cleanupTestDB(_ *testing.T, database *db.DB) {
	if database == nil {
		return
	}
	database.Exec("TRUNCATE outbox_events CASCADE")
	database.Close()
}

func TestSaveEvent(t *testing.T) {
	repo, database := setupTestDB(t)
	if repo == nil {
		return
	}
	defer cleanupTestDB(t, database)

	ctx := context.Background()
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin transaction: %v", err)
	}
	defer tx.Rollback()

	event := &OutboxEvent{
		AggregateID: "wallet-123",
		EventType:   "transfer.committed",
		Topic:       "wallet.transfer.committed",
		Payload: map[string]interface{}{
			"walletId": "wallet-123",
			"amount":   "100.0000",
		},
	}

	if err := repo.SaveEvent(ctx, tx, event); err != nil {
		t.Fatalf("save event: %v", err)
	}
	if event.ID == "" {
		t.Error("expected event id to be set")
	}
	if event.Status != StatusPending {
		t.Errorf("expected status pending, got %s", event.Status)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestGetPendingEvents_OrderedByCreatedAt(t *testing.T) {
	repo, database := setupTestDB(t)
	if repo == nil {
		return
	}
	defer cleanupTestDB(t, database)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		tx, _ := database.BeginTx(ctx, nil)
		event := &OutboxEvent{
			AggregateID: "wallet-123",
			EventType:   "transfer.committed",
			Topic:       "wallet.transfer.committed",
			Payload:     map[string]interface{}{"amount": "50.0000"},
		}
		repo.SaveEvent(ctx, tx, event)
		tx.Commit()
	}

	events, err := repo.GetPendingEvents(ctx, 10)
	if err != nil {
		t.Fatalf("get pending events: %v", err)
	}
	if len(events) != 3 {
		t.Errorf("expected 3 events, got %d", len(events))
	}
	if len(events) >= 2 && events[0].CreatedAt.After(events[1].CreatedAt) {
		t.Error("events should be ordered by created_at ASC")
	}
}

func TestMarkAsPublished_RemovesFromPending(t *testing.T) {
	repo, database := setupTestDB(t)
	if repo == nil {
		return
	}
	defer cleanupTestDB(t, database)

	ctx := context.Background()
	tx, _ := database.BeginTx(ctx, nil)
	event := &OutboxEvent{AggregateID: "wallet-456", EventType: "transfer.committed", Topic: "wallet.transfer.committed", Payload: map[string]interface{}{"walletId": "wallet-456"}}
	repo.SaveEvent(ctx, tx, event)
	tx.Commit()

	if err := repo.MarkAsPublished(ctx, event.ID); err != nil {
		t.Fatalf("mark published: %v", err)
	}

	events, _ := repo.GetPendingEvents(ctx, 10)
	for _, e := range events {
		if e.ID == event.ID {
			t.Error("published event should not remain pending")
		}
	}
}

func TestIncrementAttempt_TracksCount(t *testing.T) {
	repo, database := setupTestDB(t)
	if repo == nil {
		return
	}
	defer cleanupTestDB(t, database)

	ctx := context.Background()
	tx, _ := database.BeginTx(ctx, nil)
	event := &OutboxEvent{AggregateID: "wallet-999", EventType: "transfer.committed", Topic: "wallet.transfer.committed", Payload: map[string]interface{}{"amount": "50.0000"}}
	repo.SaveEvent(ctx, tx, event)
	tx.Commit()

	for i := 0; i < 3; i++ {
		if err := repo.IncrementAttempt(ctx, event.ID, "temporary failure"); err != nil {
			t.Fatalf("increment attempt: %v", err)
		}
	}

	events, _ := repo.GetPendingEvents(ctx, 10)
	found := false
	for _, e := range events {
		if e.ID == event.ID {
			found = true
			if e.Attempts != 3 {
				t.Errorf("expected 3 attempts, got %d", e.Attempts)
			}
		}
	}
	if !found {
		t.Error("event should still be pending under max attempts")
	}
}

func TestMaxAttemptsExclusion(t *testing.T) {
	repo, database := setupTestDB(t)
	if repo == nil {
		return
	}
	defer cleanupTestDB(t, database)

	ctx := context.Background()
	tx, _ := database.BeginTx(ctx, nil)
	event := &OutboxEvent{AggregateID: "wallet-max", EventType: "transfer.committed", Topic: "wallet.transfer.committed", Payload: map[string]interface{}{"amount": "10.0000"}}
	repo.SaveEvent(ctx, tx, event)
	tx.Commit()

	for i := 0; i < 5; i++ {
		repo.IncrementAttempt(ctx, event.ID, "retry failed")
	}

	events, _ := repo.GetPendingEvents(ctx, 10)
	for _, e := range events {
		if e.ID == event.ID {
			t.Error("event at max attempts should be excluded from pending")
		}
	}
}
