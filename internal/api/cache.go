package api

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/meridian-labs/catalog-search/internal/engine"
	"github.com/meridian-labs/catalog-search/pkg/config"
	pkgredis "github.com/meridian-labs/catalog-search/pkg/redis"
)

const cacheKeyPrefix = "search:"

// QueryCache caches ranked search responses in Redis. Keys include the
// generation id, so entries written against an old generation become
// unreachable the moment a rebuild publishes, with no explicit flush
// needed for correctness. Concurrent identical misses are collapsed with
// singleflight so a hot query hits the engine once.
type QueryCache struct {
	client *pkgredis.Client
	cfg    config.RedisConfig
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

func NewQueryCache(client *pkgredis.Client, cfg config.RedisConfig) *QueryCache {
	return &QueryCache{
		client: client,
		cfg:    cfg,
		logger: slog.Default().With("component", "query-cache"),
	}
}

// GetOrCompute returns the cached response for the key, or runs computeFn
// once and caches its result. The second return reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	generationID uint64,
	query string,
	limit, offset int,
	computeFn func() (*engine.SearchResponse, error),
) (*engine.SearchResponse, bool, error) {
	key := c.buildKey(generationID, query, limit, offset)
	if resp, ok := c.get(ctx, key); ok {
		return resp, true, nil
	}
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if resp, ok := c.get(ctx, key); ok {
			return resp, nil
		}
		resp, err := computeFn()
		if err != nil {
			return nil, err
		}
		if !resp.Degraded {
			// Degraded responses are transient; caching them would keep
			// serving keyword-only results after the provider recovers.
			c.set(ctx, key, resp)
		}
		return resp, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*engine.SearchResponse), false, nil
}

func (c *QueryCache) get(ctx context.Context, key string) (*engine.SearchResponse, bool) {
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var resp engine.SearchResponse
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return &resp, true
}

func (c *QueryCache) set(ctx context.Context, key string, resp *engine.SearchResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// Invalidate deletes every cached search response. Rebuilds call this for
// hygiene; correctness already comes from generation-scoped keys.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, cacheKeyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating query cache: %w", err)
	}
	c.logger.Info("query cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns hit and miss counts since startup.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) buildKey(generationID uint64, query string, limit, offset int) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	raw := fmt.Sprintf("gen=%d:q=%s:limit=%d:offset=%d", generationID, normalized, limit, offset)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", cacheKeyPrefix, hash[:16])
}
