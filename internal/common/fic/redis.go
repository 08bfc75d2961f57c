// Package fic is the Fast Idempotency Cache: a thin go-redis/v8 wrapper
// exposing the primitives the idempotency coordinator needs - atomic
// reserve-if-absent, a plain get/set with TTL, and delete - plus
// IncrementFloat for the ledger-audit running totals. It is a cache,
// never a source of truth; every value it holds has an authoritative
// counterpart in the Persistent Store.
package fic

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/kmassidik/walletengine/internal/common/config"
	"github.com/kmassidik/walletengine/internal/common/logger"
)

type Client struct {
	rdb *redis.Client
	log *logger.Logger
}

func Connect(cfg config.RedisConfig, log *logger.Logger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("fic: ping: %w", err)
	}

	log.Infof("connected to fast idempotency cache at %s", cfg.Addr)
	return &Client{rdb: rdb, log: log}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// TryReserve atomically sets key to value only if it is currently absent
// (SETNX semantics), with the given TTL. It reports whether the caller won
// the race to reserve the key - the first writer for a given idempotency
// key under contention.
func (c *Client) TryReserve(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("fic: setnx: %w", err)
	}
	return ok, nil
}

// Get returns the cached value for key, and false if it is absent or
// expired.
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("fic: get: %w", err)
	}
	return val, true, nil
}

// Set overwrites key unconditionally with the given TTL - used to promote
// a reservation to its terminal outcome once the underlying transfer
// commits or fails permanently.
func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("fic: set: %w", err)
	}
	return nil
}

// Delete removes key, used to release a reservation that never reached a
// terminal outcome (e.g. the process crashed mid-transfer and PS shows no
// matching row on recovery).
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("fic: del: %w", err)
	}
	return nil
}

// IncrementFloat adds delta to key's numeric value atomically, creating it
// at 0 first if absent. Used by the ledger-audit running-total cache,
// never by idempotency reservation.
func (c *Client) IncrementFloat(ctx context.Context, key string, delta float64) (float64, error) {
	val, err := c.rdb.IncrByFloat(ctx, key, delta).Result()
	if err != nil {
		return 0, fmt.Errorf("fic: incrbyfloat: %w", err)
	}
	return val, nil
}
