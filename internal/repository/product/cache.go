package product

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ynachiket/acp-checkout-poc/internal/domain"
)

// RedisClient is the part of *redis.Client the cache needs.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type cachedRepo struct {
	Repository
	client RedisClient
	ttl    time.Duration
	logger *log.Logger
}

// NewCached wraps next with a read-through Redis cache for GTIN lookups.
// Cache failures are logged and fall through to next.
func NewCached(next Repository, client RedisClient, ttl time.Duration, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &cachedRepo{Repository: next, client: client, ttl: ttl, logger: logger}
}

func gtinKey(gtin string) string {
	return "catalog:gtin:" + gtin
}

func (c *cachedRepo) GetByGTIN(ctx context.Context, gtin string) (*domain.Product, error) {
	raw, err := c.client.Get(ctx, gtinKey(gtin)).Bytes()
	switch {
	case err == nil:
		var p domain.Product
		if err := json.Unmarshal(raw, &p); err == nil {
			return &p, nil
		}
		c.logger.Printf("product cache: decode gtin=%s error=%v", gtin, err)
	case !errors.Is(err, redis.Nil):
		c.logger.Printf("product cache: get gtin=%s error=%v", gtin, err)
	}

	p, err := c.Repository.GetByGTIN(ctx, gtin)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(p); err == nil {
		if err := c.client.Set(ctx, gtinKey(gtin), payload, c.ttl).Err(); err != nil {
			c.logger.Printf("product cache: set gtin=%s error=%v", gtin, err)
		}
	}
	return p, nil
}

func (c *cachedRepo) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	saved, err := c.Repository.Upsert(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := c.client.Del(ctx, gtinKey(p.GTIN)).Err(); err != nil {
		c.logger.Printf("product cache: invalidate gtin=%s error=%v", p.GTIN, err)
	}
	return saved, nil
}
