package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ynachiket/acp-checkout-poc/internal/app"
	"github.com/ynachiket/acp-checkout-poc/internal/config"
	"github.com/ynachiket/acp-checkout-poc/internal/mcp"
)

var version = "dev"

func main() {
	// stdout carries the protocol stream.
	logger := log.New(os.Stderr, "[mcp] ", log.LstdFlags|log.LUTC|log.Lshortfile)
	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("init app: %v", err)
	}
	defer a.Close()

	server := mcp.NewServer(a.Dispatcher, "acp-checkout", version)
	logger.Printf("serving %d tools over stdio", len(a.Dispatcher.Tools()))
	if err := mcp.ServeStdio(ctx, server); err != nil && ctx.Err() == nil {
		logger.Printf("stdio server stopped: %v", err)
	}
}
