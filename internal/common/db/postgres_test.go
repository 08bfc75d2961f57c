package db

import (
	"context"
	"database/sql"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/kmassidik/walletengine/internal/common/config"
	"github.com/kmassidik/walletengine/internal/common/logger"
)

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func testConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnv("DB_PORT", "5432"),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", "postgres"),
		DBName:          getEnv("DB_NAME", "walletengine_test"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsInt("DB_CONN_MAX_LIFETIME_SECONDS", 300),
	}
}

func connectTestDB(t *testing.T) *DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	log := logger.New("test")
	database, err := Connect(testConfig(), log)
	if err != nil {
		t.Skipf("cannot connect to database (expected without a local postgres): %v", err)
	}
	return database
}

func TestConnect_HealthCheck(t *testing.T) {
	database := connectTestDB(t)
	defer database.Close()

	if err := database.Health(context.Background()); err != nil {
		t.Errorf("Health() failed: %v", err)
	}
}

func TestWithTransaction_CommitsOnNilReturn(t *testing.T) {
	database := connectTestDB(t)
	defer database.Close()

	err := database.WithTransaction(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		return nil
	})
	if err != nil {
		t.Errorf("WithTransaction: %v", err)
	}
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	database := connectTestDB(t)
	defer database.Close()

	sentinel := sql.ErrNoRows
	err := database.WithTransaction(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		return sentinel
	})
	if err != sentinel {
		t.Errorf("WithTransaction: expected the underlying error to propagate, got %v", err)
	}
}

func TestIsUniqueViolation_NonPqError(t *testing.T) {
	if IsUniqueViolation(sql.ErrNoRows) {
		t.Error("expected a non-pq error to not be classified as a unique violation")
	}
}

func TestIsContention_NonPqError(t *testing.T) {
	if IsContention(sql.ErrNoRows) {
		t.Error("expected a non-pq error to not be classified as contention")
	}
}

func TestTime_ConnMaxLifetimeAppliedAsSeconds(t *testing.T) {
	// Checks that the test configuration's ConnMaxLifetime, read as whole
	// seconds the way Connect reads it, is at least one second. Connect
	// itself is not called here.
	cfg := testConfig()
	if time.Duration(cfg.ConnMaxLifetime)*time.Second < time.Second {
		t.Errorf("expected ConnMaxLifetime to be expressed in whole seconds, got %d", cfg.ConnMaxLifetime)
	}
}
