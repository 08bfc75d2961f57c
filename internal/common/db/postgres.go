// Package db wraps the Persistent Store's Postgres connection pool,
// providing the transactional boundary every write path in this module
// runs through and a small amount of driver-error classification used by
// the transfer engine's retry policy.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/kmassidik/walletengine/internal/common/config"
	"github.com/kmassidik/walletengine/internal/common/logger"
)

// DB wraps *sql.DB. Embedding it keeps callers that only need the raw pool
// (e.g. the outbox repository) from having to unwrap anything.
type DB struct {
	*sql.DB
	log *logger.Logger
}

func Connect(cfg config.DatabaseConfig, log *logger.Logger) (*DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslModeOr(cfg.SSLMode))

	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db: ping: %w", err)
	}

	log.Infof("connected to postgres at %s:%s/%s", cfg.Host, cfg.Port, cfg.DBName)
	return &DB{DB: conn, log: log}, nil
}

func sslModeOr(mode string) string {
	if mode == "" {
		return "disable"
	}
	return mode
}

func (d *DB) Health(ctx context.Context) error {
	return d.PingContext(ctx)
}

// WithTransaction runs fn inside a single Postgres transaction, committing
// on a nil return and rolling back otherwise. The transfer engine runs each
// attempt - wallet updates, transaction and ledger rows, and the outbox
// append - through this rather than through ad hoc sql.Tx handling.
func (d *DB) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db: begin: %w", err)
	}

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("db: rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("db: commit: %w", err)
	}
	return nil
}

// IsUniqueViolation reports whether err is a Postgres unique_violation
// (23505), the signal the transfer engine uses to detect a concurrent
// first-writer for the same idempotency key when the fast cache missed.
func IsUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == "23505"
}

// IsContention reports whether err is a transient contention error the
// transfer engine's retry policy should back off and retry: a deadlock
// (40P01) or a lock-acquisition timeout (55P03).
func IsContention(err error) bool {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return false
	}
	switch pqErr.Code {
	case "40P01", "55P03":
		return true
	default:
		return false
	}
}
