package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/stockcast/backend-go/internal/config"
)

const (
	defaultEntryTTL = time.Minute
	pingTimeout     = 5 * time.Second
	// generation counters outlive any entry they version
	generationTTL = 7 * 24 * time.Hour
)

// dial connects and verifies the server answers before returning.
func dial(cfg config.CacheConfig) (*redis.Client, error) {
	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts.DialTimeout = pingTimeout
	opts.ReadTimeout = time.Second
	opts.WriteTimeout = time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s unreachable: %w", opts.Addr, err)
	}
	return client, nil
}

// redisOptions prefers REDIS_URL and otherwise builds an address from host and port.
func redisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opts, nil
	}

	host, port := cfg.RedisHost, cfg.RedisPort
	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "6379"
	}
	return &redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

func entryTTL(cfg config.CacheConfig) time.Duration {
	if cfg.DashboardTTLSeconds <= 0 {
		return defaultEntryTTL
	}
	return time.Duration(cfg.DashboardTTLSeconds) * time.Second
}

// generation reads a namespace counter; a missing counter is generation 0.
func generation(ctx context.Context, client *redis.Client, counterKey string) (int64, error) {
	gen, err := client.Get(ctx, counterKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read generation %s: %w", counterKey, err)
	}
	return gen, nil
}

// bumpGeneration moves a namespace to a fresh generation so older entries are
// never read again and expire on their own.
func bumpGeneration(ctx context.Context, client *redis.Client, counterKey string) error {
	pipe := client.TxPipeline()
	pipe.Incr(ctx, counterKey)
	pipe.Expire(ctx, counterKey, generationTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("bump generation %s: %w", counterKey, err)
	}
	return nil
}

// loadJSON decodes the entry at key into dst and reports a hit.
func loadJSON(ctx context.Context, client *redis.Client, key string, dst any) (bool, error) {
	payload, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func storeJSON(ctx context.Context, client *redis.Client, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}
