package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/equisy/equisy-api/internal/domain"
)

// DomainCache keeps hostname to tenant lookups for the resolver.
type DomainCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDomainCache(client *redis.Client, ttl time.Duration) *DomainCache {
	return &DomainCache{client: client, ttl: ttl}
}

// DomainKey returns the cache key for a normalized hostname.
func DomainKey(host string) string {
	return "domain:" + host
}

// Get returns the cached tenant for host. A miss returns (nil, nil).
func (c *DomainCache) Get(ctx context.Context, host string) (*domain.Tenant, error) {
	raw, err := c.client.Get(ctx, DomainKey(host)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil //nolint:nilnil // cache miss
	}
	if err != nil {
		return nil, fmt.Errorf("redis.DomainCache.Get: %w", err)
	}

	var t domain.Tenant
	if err = json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("redis.DomainCache.Get: decode: %w", err)
	}
	return &t, nil
}

func (c *DomainCache) Set(ctx context.Context, host string, t *domain.Tenant) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("redis.DomainCache.Set: encode: %w", err)
	}
	if err = c.client.Set(ctx, DomainKey(host), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis.DomainCache.Set: %w", err)
	}
	return nil
}

// Invalidate drops the given hostnames.
func (c *DomainCache) Invalidate(ctx context.Context, hosts ...string) error {
	if len(hosts) == 0 {
		return nil
	}
	keys := make([]string, len(hosts))
	for i, h := range hosts {
		keys[i] = DomainKey(h)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis.DomainCache.Invalidate: %w", err)
	}
	return nil
}
