package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dcastano/orders-ms/internal/domain"
)

const snapshotKeyPrefix = "catalog:product:"

// Cache stores serialized product snapshots for a short TTL. A miss is
// reported as an empty value, not an error.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type redisCache struct {
	client *redis.Client
}

func NewRedisCache(addr string) Cache {
	return &redisCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

func (r *redisCache) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (r *redisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// CachedClient fronts another Client with a per-product snapshot cache.
// Only ids missing from the cache go to the remote catalog; fetched
// snapshots are written back best effort. Cached prices are at most TTL
// stale, which bounds how far an order's captured price can lag a catalog
// update.
type CachedClient struct {
	next   Client
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedClient(next Client, cache Cache, ttl time.Duration, logger *slog.Logger) *CachedClient {
	return &CachedClient{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *CachedClient) ValidateProducts(ctx context.Context, productIDs []string) ([]domain.ProductSnapshot, error) {
	snapshots := make([]domain.ProductSnapshot, 0, len(productIDs))
	var missing []string

	for _, id := range productIDs {
		value, err := c.cache.Get(ctx, snapshotKeyPrefix+id)
		if err != nil {
			c.logger.Warn("snapshot cache read failed", "error", err, "product_id", id)
			missing = append(missing, id)
			continue
		}
		if value == "" {
			missing = append(missing, id)
			continue
		}

		var snapshot domain.ProductSnapshot
		if err := json.Unmarshal([]byte(value), &snapshot); err != nil {
			c.logger.Warn("discarding corrupt cached snapshot", "error", err, "product_id", id)
			missing = append(missing, id)
			continue
		}
		snapshots = append(snapshots, snapshot)
	}

	if len(missing) == 0 {
		return snapshots, nil
	}

	fetched, err := c.next.ValidateProducts(ctx, missing)
	if err != nil {
		return nil, err
	}

	for _, snapshot := range fetched {
		data, err := json.Marshal(snapshot)
		if err != nil {
			continue
		}
		if err := c.cache.Set(ctx, snapshotKeyPrefix+snapshot.ID, string(data), c.ttl); err != nil {
			c.logger.Warn("snapshot cache write failed", "error", err, "product_id", snapshot.ID)
		}
	}

	return append(snapshots, fetched...), nil
}
