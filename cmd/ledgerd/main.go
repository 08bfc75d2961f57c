package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kmassidik/walletengine/internal/common/config"
	"github.com/kmassidik/walletengine/internal/common/fic"
	"github.com/kmassidik/walletengine/internal/common/kafka"
	"github.com/kmassidik/walletengine/internal/common/logger"
	"github.com/kmassidik/walletengine/internal/ledgercache"
)

const transferCommittedTopic = "wallet.transfer.committed"

// ledgerd is the secondary service: it tails the transfer-committed
// outbox topic and folds each event into the read-only ledger cache. It
// never writes to the Persistent Store and never gates a transfer.
func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("no .env file found, using system environment variables")
	}

	cfg, err := config.Load("ledgerd")
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("ledgerd")

	cache, err := fic.Connect(cfg.Redis, log)
	if err != nil {
		log.Fatalf("failed to connect to fast idempotency cache: %v", err)
	}
	defer cache.Close()

	consumer := kafka.NewConsumer(cfg.Kafka, transferCommittedTopic, log)
	defer consumer.Close()

	ledgerCache := ledgercache.New(cache, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("shutting down")
		cancel()
	}()

	log.Infof("ledgerd consuming %s", transferCommittedTopic)
	if err := consumer.Consume(ctx, ledgerCache.Apply); err != nil {
		log.Fatalf("consumer stopped: %v", err)
	}
	log.Info("ledgerd exited gracefully")
}
