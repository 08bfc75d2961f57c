// Package config loads process configuration from the environment. Every
// cmd/* entrypoint calls Load(serviceName) once at boot, after an optional
// .env file has already been read by godotenv.
package config

import (
	"fmt"
	"os"
	"strconv"
)

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // seconds
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers []string
	GroupID string
}

type JWTConfig struct {
	Secret string
}

type ServiceConfig struct {
	Name string
	Port string
}

type EngineConfig struct {
	MaxAmount                    string
	LockTimeoutMS                int
	IdempotencyProcessingTTLSecs int
	IdempotencyTerminalTTLSecs   int
	TreasuryEmail                string
	SeedAssets                   []string
}

type Config struct {
	Service  ServiceConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	JWT      JWTConfig
	Engine   EngineConfig
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// Load assembles a Config for the named service, failing only when a
// hard requirement (database connectivity parameters) is entirely absent.
func Load(service string) (*Config, error) {
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		return nil, fmt.Errorf("config: DB_HOST is required")
	}

	redisAddr := envOr("REDIS_ADDR", fmt.Sprintf("%s:%s", envOr("REDIS_HOST", "localhost"), envOr("REDIS_PORT", "6379")))

	cfg := &Config{
		Service: ServiceConfig{
			Name: service,
			Port: envOr("PORT", "3000"),
		},
		Database: DatabaseConfig{
			Host:            dbHost,
			Port:            envOr("DB_PORT", "5432"),
			User:            envOr("DB_USER", "postgres"),
			Password:        os.Getenv("DB_PASSWORD"),
			DBName:          envOr("DB_NAME", "walletengine"),
			SSLMode:         envOr("DB_SSLMODE", "disable"),
			MaxOpenConns:    envIntOr("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envIntOr("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: envIntOr("DB_CONN_MAX_LIFETIME_SECONDS", 300),
		},
		Redis: RedisConfig{
			Addr:     redisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       envIntOr("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(envOr("KAFKA_BROKERS", "localhost:9092")),
			GroupID: envOr("KAFKA_GROUP_ID", service),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
		},
		Engine: EngineConfig{
			MaxAmount:                    envOr("MAX_AMOUNT", "1000000000"),
			LockTimeoutMS:                envIntOr("LOCK_TIMEOUT_MS", 5000),
			IdempotencyProcessingTTLSecs: envIntOr("IDEMPOTENCY_PROCESSING_TTL_SECONDS", 10),
			IdempotencyTerminalTTLSecs:   envIntOr("IDEMPOTENCY_TERMINAL_TTL_SECONDS", 86400),
			TreasuryEmail:                envOr("TREASURY_EMAIL", "treasury@walletengine.internal"),
			SeedAssets:                   splitNonEmpty(envOr("SEED_ASSETS", "GOLD")),
		},
	}

	return cfg, nil
}

func splitNonEmpty(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	if len(out) == 0 {
		return []string{s}
	}
	return out
}
