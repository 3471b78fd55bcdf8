package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

const analyticsKeyPrefix = "stockcast:analytics"

// AnalyticsCache stores computed dashboard and product detail payloads per user.
// Entries go stale when the user's sales, stock or forecasts change, so writers
// call InvalidateUser after committing.
type AnalyticsCache interface {
	GetDashboard(ctx context.Context, userID int64) (*domain.Dashboard, bool, error)
	SetDashboard(ctx context.Context, userID int64, dashboard *domain.Dashboard) error
	GetProductDetail(ctx context.Context, userID, productID int64) (*domain.ProductDetail, bool, error)
	SetProductDetail(ctx context.Context, userID, productID int64, detail *domain.ProductDetail) error
	InvalidateUser(ctx context.Context, userID int64) error
	Close() error
}

// redisAnalyticsCache versions each user's entries with a generation counter.
// Invalidation bumps the counter instead of scanning for keys.
type redisAnalyticsCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopAnalyticsCache struct{}

// NewAnalyticsCache connects to Redis when caching is enabled and falls back to
// a no-op cache otherwise.
func NewAnalyticsCache(cfg config.CacheConfig) (AnalyticsCache, error) {
	if !cfg.Enabled {
		return &noopAnalyticsCache{}, nil
	}

	client, err := dial(cfg)
	if err != nil {
		return nil, err
	}
	return &redisAnalyticsCache{client: client, ttl: entryTTL(cfg)}, nil
}

func NewNoopAnalyticsCache() AnalyticsCache {
	return &noopAnalyticsCache{}
}

func (c *redisAnalyticsCache) GetDashboard(ctx context.Context, userID int64) (*domain.Dashboard, bool, error) {
	key, err := c.key(ctx, userID, "dashboard")
	if err != nil {
		return nil, false, err
	}
	var dashboard domain.Dashboard
	if ok, err := loadJSON(ctx, c.client, key, &dashboard); err != nil || !ok {
		return nil, false, err
	}
	return &dashboard, true, nil
}

func (c *redisAnalyticsCache) SetDashboard(ctx context.Context, userID int64, dashboard *domain.Dashboard) error {
	key, err := c.key(ctx, userID, "dashboard")
	if err != nil {
		return err
	}
	return storeJSON(ctx, c.client, key, dashboard, c.ttl)
}

func (c *redisAnalyticsCache) GetProductDetail(ctx context.Context, userID, productID int64) (*domain.ProductDetail, bool, error) {
	key, err := c.key(ctx, userID, productEntry(productID))
	if err != nil {
		return nil, false, err
	}
	var detail domain.ProductDetail
	if ok, err := loadJSON(ctx, c.client, key, &detail); err != nil || !ok {
		return nil, false, err
	}
	return &detail, true, nil
}

func (c *redisAnalyticsCache) SetProductDetail(ctx context.Context, userID, productID int64, detail *domain.ProductDetail) error {
	key, err := c.key(ctx, userID, productEntry(productID))
	if err != nil {
		return err
	}
	return storeJSON(ctx, c.client, key, detail, c.ttl)
}

func (c *redisAnalyticsCache) InvalidateUser(ctx context.Context, userID int64) error {
	return bumpGeneration(ctx, c.client, generationKey(userID))
}

func (c *redisAnalyticsCache) Close() error {
	return c.client.Close()
}

func (c *redisAnalyticsCache) key(ctx context.Context, userID int64, entry string) (string, error) {
	gen, err := generation(ctx, c.client, generationKey(userID))
	if err != nil {
		return "", err
	}
	return entryKey(userID, gen, entry), nil
}

func (n *noopAnalyticsCache) GetDashboard(context.Context, int64) (*domain.Dashboard, bool, error) {
	return nil, false, nil
}

func (n *noopAnalyticsCache) SetDashboard(context.Context, int64, *domain.Dashboard) error {
	return nil
}

func (n *noopAnalyticsCache) GetProductDetail(context.Context, int64, int64) (*domain.ProductDetail, bool, error) {
	return nil, false, nil
}

func (n *noopAnalyticsCache) SetProductDetail(context.Context, int64, int64, *domain.ProductDetail) error {
	return nil
}

func (n *noopAnalyticsCache) InvalidateUser(context.Context, int64) error {
	return nil
}

func (n *noopAnalyticsCache) Close() error {
	return nil
}

func generationKey(userID int64) string {
	return fmt.Sprintf("%s:user:%d:gen", analyticsKeyPrefix, userID)
}

func entryKey(userID, gen int64, entry string) string {
	return fmt.Sprintf("%s:user:%d:g%d:%s", analyticsKeyPrefix, userID, gen, entry)
}

func productEntry(productID int64) string {
	return fmt.Sprintf("product:%d", productID)
}
