package main

import (
	"context"
	"embed"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/kmassidik/walletengine/internal/common/config"
	"github.com/kmassidik/walletengine/internal/common/db"
	"github.com/kmassidik/walletengine/internal/common/logger"
	"github.com/kmassidik/walletengine/internal/store"
	"github.com/kmassidik/walletengine/internal/treasury"
)

//go:embed migrations/0001_init.sql
var migrationFS embed.FS

// migrate applies the schema and, with --seed, bootstraps the treasury
// user, its wallets, and the configured assets. Neither runs
// automatically on service boot - an operator invokes this explicitly.
func main() {
	seed := flag.Bool("seed", false, "also seed the treasury user and configured assets")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Println("no .env file found, using system environment variables")
	}

	cfg, err := config.Load("migrate")
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("migrate")

	database, err := db.Connect(cfg.Database, log)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer database.Close()

	schema, err := migrationFS.ReadFile("migrations/0001_init.sql")
	if err != nil {
		log.Fatalf("failed to read migration file: %v", err)
	}

	if _, err := database.Exec(string(schema)); err != nil {
		log.Fatalf("failed to apply schema: %v", err)
	}
	log.Info("schema applied")

	if !*seed {
		return
	}

	repo := store.NewRepository(database, log)
	seeder := treasury.NewSeeder(repo)
	if err := seeder.Seed(context.Background(), cfg.Engine.TreasuryEmail, cfg.Engine.SeedAssets); err != nil {
		log.Fatalf("failed to seed treasury: %v", err)
	}
	log.Infof("treasury seeded for assets %v", cfg.Engine.SeedAssets)
}
