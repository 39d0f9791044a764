package main

import (
	"context"
	"log"
	"os"

	"github.com/ynachiket/acp-checkout-poc/internal/config"
	"github.com/ynachiket/acp-checkout-poc/internal/db"
	productrepo "github.com/ynachiket/acp-checkout-poc/internal/repository/product"
	"github.com/ynachiket/acp-checkout-poc/internal/seed"
)

func main() {
	logger := log.New(os.Stdout, "[seed] ", log.LstdFlags|log.LUTC|log.Lshortfile)
	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	n, err := seed.Apply(ctx, productrepo.NewPostgres(pool, logger), logger)
	if err != nil {
		logger.Fatalf("seed apply: %v", err)
	}

	logger.Printf("seed applied products=%d", n)
}
