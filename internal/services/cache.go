package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// CacheKeyPrefix is the Redis key prefix for cached identities
	CacheKeyPrefix = "cache:identity:"
	// DefaultCacheTTL keeps an identity for ten minutes
	DefaultCacheTTL = 10 * time.Minute
	// MinCacheTTL and MaxCacheTTL bound the TTL passed to NewIdentityCache
	MinCacheTTL = time.Minute
	MaxCacheTTL = time.Hour
)

// IdentityCache keeps resolved identities in Redis so that authenticated
// requests skip the account database.
type IdentityCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewIdentityCache clamps ttl to MinCacheTTL..MaxCacheTTL.
func NewIdentityCache(rdb *redis.Client, ttl time.Duration) *IdentityCache {
	if ttl < MinCacheTTL {
		ttl = MinCacheTTL
	}
	if ttl > MaxCacheTTL {
		ttl = MaxCacheTTL
	}
	return &IdentityCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached identity of userID. A miss is not an error.
func (c *IdentityCache) Get(ctx context.Context, userID string) (Identity, bool, error) {
	val, err := c.rdb.Get(ctx, CacheKeyPrefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Identity{}, false, nil
	}
	if err != nil {
		return Identity{}, false, fmt.Errorf("identity cache get: %w", err)
	}
	var id Identity
	if err := json.Unmarshal(val, &id); err != nil {
		return Identity{}, false, fmt.Errorf("identity cache decode: %w", err)
	}
	return id, true, nil
}

func (c *IdentityCache) Set(ctx context.Context, id Identity) error {
	data, err := json.Marshal(id)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, CacheKeyPrefix+id.UserID, data, c.ttl).Err()
}

func (c *IdentityCache) Delete(ctx context.Context, userID string) error {
	return c.rdb.Del(ctx, CacheKeyPrefix+userID).Err()
}
