// Package outbox implements the transactional outbox pattern: committed
// transfers append an event row in the same Persistent Store transaction
// as the transfer itself, and a background Publisher later ships pending
// rows to Kafka. A publish failure never rolls back a committed transfer -
// this is ambient event plumbing, not part of the transfer's atomicity
// guarantee.
package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kmassidik/walletengine/internal/common/logger"
)

const maxAttempts = 5

type Status string

const (
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
	StatusFailed    Status = "failed"
)

type OutboxEvent struct {
	ID          string
	AggregateID string
	EventType   string
	Topic       string
	Payload     map[string]interface{}
	Status      Status
	Attempts    int
	LastError   string
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// Repository persists outbox rows. It takes a raw *sql.DB rather than the
// db.DB wrapper because SaveEvent must run inside a transaction callers
// already hold open - it has no transaction boundary of its own.
type Repository struct {
	db  *sql.DB
	log *logger.Logger
}

func NewRepository(database *sql.DB, log *logger.Logger) *Repository {
	return &Repository{db: database, log: log}
}

// SaveEvent inserts event within tx, the same transaction as the domain
// write it describes. It assigns an id and pending status if unset.
func (r *Repository) SaveEvent(ctx context.Context, tx *sql.Tx, event *OutboxEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Status == "" {
		event.Status = StatusPending
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("outbox: marshal payload: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO outbox_events (id, aggregate_id, event_type, topic, payload, status, attempts)
		 VALUES ($1, $2, $3, $4, $5, $6, 0)`,
		event.ID, event.AggregateID, event.EventType, event.Topic, payload, event.Status,
	)
	if err != nil {
		return fmt.Errorf("outbox: save event: %w", err)
	}
	return nil
}

// GetPendingEvents returns up to limit pending events below the max
// attempt count, oldest first.
func (r *Repository) GetPendingEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, aggregate_id, event_type, topic, payload, status, attempts, last_error, created_at, published_at
		 FROM outbox_events
		 WHERE status = $1 AND attempts < $2
		 ORDER BY created_at ASC
		 LIMIT $3`,
		StatusPending, maxAttempts, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("outbox: get pending events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		e := &OutboxEvent{}
		var payload []byte
		var lastError sql.NullString
		var publishedAt sql.NullTime
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Topic, &payload, &e.Status, &e.Attempts, &lastError, &e.CreatedAt, &publishedAt); err != nil {
			return nil, fmt.Errorf("outbox: scan event: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Payload); err != nil {
				return nil, fmt.Errorf("outbox: unmarshal payload: %w", err)
			}
		}
		if lastError.Valid {
			e.LastError = lastError.String
		}
		if publishedAt.Valid {
			t := publishedAt.Time
			e.PublishedAt = &t
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *Repository) MarkAsPublished(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox_events SET status = $1, published_at = now() WHERE id = $2`,
		StatusPublished, id,
	)
	if err != nil {
		return fmt.Errorf("outbox: mark published: %w", err)
	}
	return nil
}

func (r *Repository) MarkAsFailed(ctx context.Context, id, errMsg string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox_events SET status = $1, last_error = $2 WHERE id = $3`,
		StatusFailed, errMsg, id,
	)
	if err != nil {
		return fmt.Errorf("outbox: mark failed: %w", err)
	}
	return nil
}

func (r *Repository) IncrementAttempt(ctx context.Context, id, errMsg string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox_events SET attempts = attempts + 1, last_error = $1 WHERE id = $2`,
		errMsg, id,
	)
	if err != nil {
		return fmt.Errorf("outbox: increment attempt: %w", err)
	}
	return nil
}
