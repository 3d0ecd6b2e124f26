package analyses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"budget-analyzer/internal/budget"
	"budget-analyzer/internal/shared/util"
)

const cacheKeyPrefix = "budget:analysis:"

// Cache keeps recently computed canonical analyses, scoped per owner.
type Cache interface {
	Get(ctx context.Context, ownerID, analysisID string) (budget.Analysis, bool, error)
	Set(ctx context.Context, ownerID string, an budget.Analysis) error
}

func cacheKey(ownerID, analysisID string) string {
	return cacheKeyPrefix + util.OwnerKey(ownerID) + ":" + analysisID
}

// RedisCache stores canonical analyses as JSON strings with a TTL.
type RedisCache struct {
	Client *redis.Client
	TTL    time.Duration
}

// NewRedisCache connects to the Redis instance at url (redis://...).
func NewRedisCache(ctx context.Context, url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisCache{Client: client, TTL: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, ownerID, analysisID string) (budget.Analysis, bool, error) {
	raw, err := c.Client.Get(ctx, cacheKey(ownerID, analysisID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return budget.Analysis{}, false, nil
	}
	if err != nil {
		return budget.Analysis{}, false, err
	}
	var an budget.Analysis
	if err := json.Unmarshal(raw, &an); err != nil {
		return budget.Analysis{}, false, nil
	}
	return an, true, nil
}

func (c *RedisCache) Set(ctx context.Context, ownerID string, an budget.Analysis) error {
	raw, err := json.Marshal(an)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, cacheKey(ownerID, an.AnalysisID), raw, c.TTL).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}

type cacheEntry struct {
	an      budget.Analysis
	expires time.Time
}

// MemoryCache is the in-process Cache used when no Redis is configured.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

// NewMemoryCache constructs a MemoryCache. ttl <= 0 keeps entries forever.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, now: time.Now, entries: make(map[string]cacheEntry)}
}

func (c *MemoryCache) Get(ctx context.Context, ownerID, analysisID string) (budget.Analysis, bool, error) {
	if err := ctx.Err(); err != nil {
		return budget.Analysis{}, false, err
	}
	key := cacheKey(ownerID, analysisID)
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return budget.Analysis{}, false, nil
	}
	if !entry.expires.IsZero() && !c.now().Before(entry.expires) {
		delete(c.entries, key)
		return budget.Analysis{}, false, nil
	}
	return entry.an, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, ownerID string, an budget.Analysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entry := cacheEntry{an: an}
	if c.ttl > 0 {
		entry.expires = c.now().Add(c.ttl)
	}
	c.mu.Lock()
	c.entries[cacheKey(ownerID, an.AnalysisID)] = entry
	c.mu.Unlock()
	return nil
}

var (
	_ Cache = (*RedisCache)(nil)
	_ Cache = (*MemoryCache)(nil)
)
