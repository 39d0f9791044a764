// Package app assembles the checkout engine and its collaborators from
// configuration. The API server and the stdio MCP server share it so both
// protocol surfaces drive the same services.
package app

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ynachiket/acp-checkout-poc/internal/config"
	"github.com/ynachiket/acp-checkout-poc/internal/db"
	"github.com/ynachiket/acp-checkout-poc/internal/events"
	"github.com/ynachiket/acp-checkout-poc/internal/mcp"
	"github.com/ynachiket/acp-checkout-poc/internal/payment"
	"github.com/ynachiket/acp-checkout-poc/internal/repository"
	checkoutrepo "github.com/ynachiket/acp-checkout-poc/internal/repository/checkout"
	"github.com/ynachiket/acp-checkout-poc/internal/repository/memory"
	orderrepo "github.com/ynachiket/acp-checkout-poc/internal/repository/order"
	productrepo "github.com/ynachiket/acp-checkout-poc/internal/repository/product"
	"github.com/ynachiket/acp-checkout-poc/internal/seed"
	checkoutsvc "github.com/ynachiket/acp-checkout-poc/internal/service/checkout"
	ordersvc "github.com/ynachiket/acp-checkout-poc/internal/service/order"
	productsvc "github.com/ynachiket/acp-checkout-poc/internal/service/product"
)

type txManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// App holds the wired services. Pool is nil when running on the in-memory store.
type App struct {
	Pool       *pgxpool.Pool
	Products   *productsvc.Service
	Checkout   *checkoutsvc.Service
	Orders     *ordersvc.Service
	Dispatcher *mcp.Dispatcher

	closers []func() error
}

// Build connects storage, cache and event publishing as configured and
// returns the engine wired over them.
func Build(ctx context.Context, cfg config.Config, logger *log.Logger) (*App, error) {
	policy, err := cfg.PricingPolicy()
	if err != nil {
		return nil, err
	}

	a := &App{}
	var (
		products productrepo.Repository
		sessions checkoutrepo.Repository
		orders   orderrepo.Repository
		tx       txManager
	)

	switch cfg.Storage {
	case config.StorageMemory:
		store := memory.NewStore()
		products, sessions, orders = store.Products(), store.Sessions(), store.Orders()
		tx = memory.NewTx(store)
		logger.Printf("app: using in-memory store")
	default:
		pool, err := db.Connect(ctx, cfg.DBConnString)
		if err != nil {
			return nil, fmt.Errorf("connect db: %w", err)
		}
		a.Pool = pool
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		products = productrepo.NewPostgres(pool, logger)
		sessions = checkoutrepo.NewPostgres(pool, logger)
		orders = orderrepo.NewPostgres(pool, logger)
		tx = repository.NewTxManager(pool, logger)
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		a.closers = append(a.closers, client.Close)
		products = productrepo.NewCached(products, client, cfg.CatalogCacheTTL, logger)
		logger.Printf("app: catalog cache enabled addr=%s ttl=%s", cfg.RedisAddr, cfg.CatalogCacheTTL)
	}

	if cfg.Storage == config.StorageMemory || cfg.SeedOnStart {
		n, err := seed.Apply(ctx, products, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("seed catalog: %w", err)
		}
		logger.Printf("app: seeded %d products", n)
	}

	var pub events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		pub = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.OrderEventsTopic)
		logger.Printf("app: publishing order events to kafka topic=%s", cfg.OrderEventsTopic)
	} else {
		pub = events.NewLogPublisher(logger)
	}
	a.closers = append(a.closers, pub.Close)

	a.Products = productsvc.New(products)
	a.Orders = ordersvc.New(orders, tx, pub, cfg.PermalinkBase, logger)
	a.Checkout = checkoutsvc.New(checkoutsvc.Deps{
		Sessions:   sessions,
		Products:   a.Products,
		Payments:   payment.NewMock(),
		Orders:     a.Orders,
		Tx:         tx,
		Policy:     policy,
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	})
	a.Dispatcher = mcp.NewDispatcher(mcp.Deps{
		Products:       a.Products,
		Checkout:       a.Checkout,
		Orders:         a.Orders,
		ResourceScheme: cfg.MCPResourceScheme,
		Logger:         logger,
	})
	return a, nil
}

// Close releases resources in reverse acquisition order.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
