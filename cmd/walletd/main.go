package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kmassidik/walletengine/internal/common/config"
	"github.com/kmassidik/walletengine/internal/common/db"
	"github.com/kmassidik/walletengine/internal/common/fic"
	"github.com/kmassidik/walletengine/internal/common/kafka"
	"github.com/kmassidik/walletengine/internal/common/logger"
	"github.com/kmassidik/walletengine/internal/domain/money"
	"github.com/kmassidik/walletengine/internal/gateway"
	"github.com/kmassidik/walletengine/internal/httpapi"
	"github.com/kmassidik/walletengine/internal/idempotency"
	"github.com/kmassidik/walletengine/internal/outbox"
	"github.com/kmassidik/walletengine/internal/reporting"
	"github.com/kmassidik/walletengine/internal/router"
	"github.com/kmassidik/walletengine/internal/store"
	"github.com/kmassidik/walletengine/internal/transfer"
)

// walletd is the primary service: it serves the wallet engine's HTTP
// surface and runs the outbox publisher as a background worker. It does
// not split into separate public/mTLS listeners - transfers are
// user-facing only, there is no service-to-service transfer API.
func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("no .env file found, using system environment variables")
	}

	cfg, err := config.Load("walletd")
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("walletd")

	database, err := db.Connect(cfg.Database, log)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer database.Close()

	cache, err := fic.Connect(cfg.Redis, log)
	if err != nil {
		log.Fatalf("failed to connect to fast idempotency cache: %v", err)
	}
	defer cache.Close()

	producer := kafka.NewProducer(cfg.Kafka, log)
	defer producer.Close()

	kafkaCtx, kafkaCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := producer.Ping(kafkaCtx); err != nil {
		log.Fatalf("failed to reach kafka: %v", err)
	}
	kafkaCancel()
	log.Info("kafka is healthy")

	repo := store.NewRepository(database, log)
	outboxRepo := outbox.NewRepository(database.DB, log)

	rtr, err := router.Resolve(context.Background(), repo, cfg.Engine.TreasuryEmail)
	if err != nil {
		log.Fatalf("failed to resolve treasury user, run cmd/migrate --seed first: %v", err)
	}

	maxAmount := money.MustParse(cfg.Engine.MaxAmount)
	engine := transfer.New(repo, database, outboxRepo, rtr, log, maxAmount, cfg.Engine.LockTimeoutMS)

	coordinator := idempotency.New(
		cache,
		time.Duration(cfg.Engine.IdempotencyProcessingTTLSecs)*time.Second,
		time.Duration(cfg.Engine.IdempotencyTerminalTTLSecs)*time.Second,
	)
	gw := gateway.New(coordinator, engine, log)
	projections := reporting.New(repo, log)

	outboxPublisher := outbox.NewPublisher(outboxRepo, producer, log, 5*time.Second)
	publisherCtx, cancelPublisher := context.WithCancel(context.Background())
	defer cancelPublisher()
	go outboxPublisher.Start(publisherCtx)
	log.Info("outbox publisher started")

	handler := httpapi.NewServer(gw, projections, log, cfg.JWT.Secret)
	server := &http.Server{
		Addr:         ":" + cfg.Service.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("walletd listening on port %s", cfg.Service.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	cancelPublisher()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Info("walletd exited gracefully")
}
