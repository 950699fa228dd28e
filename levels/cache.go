// SPDX-License-Identifier: EPL-2.0

package levels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores LevelData per asset. version distinguishes the physical file
// and policy a result was computed for; Invalidate drops every version of id.
type Cache interface {
	Get(ctx context.Context, id, version string) (LevelData, bool, error)
	Set(ctx context.Context, id, version string, data LevelData) error
	Invalidate(ctx context.Context, id string) error
}

// MemoryCache keeps results in process memory.
type MemoryCache struct {
	mtx     sync.RWMutex
	entries map[string]map[string]LevelData
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]map[string]LevelData)}
}

func (c *MemoryCache) Get(_ context.Context, id, version string) (LevelData, bool, error) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()

	d, ok := c.entries[id][version]
	return d, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, id, version string, data LevelData) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	versions, ok := c.entries[id]
	if !ok {
		versions = make(map[string]LevelData)
		c.entries[id] = versions
	}
	versions[version] = data
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, id string) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	delete(c.entries, id)
	return nil
}

// DefaultRedisTTL bounds how long an asset's levels stay in redis.
const DefaultRedisTTL = 24 * time.Hour

// RedisCache stores each asset as a hash of version -> JSON LevelData.
type RedisCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisCache uses client with keys "<prefix>:<id>". A zero ttl means
// DefaultRedisTTL.
func NewRedisCache(client redis.Cmdable, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "audclip:levels"
	}
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) key(id string) string {
	return fmt.Sprintf("%s:%s", c.prefix, id)
}

func (c *RedisCache) Get(ctx context.Context, id, version string) (LevelData, bool, error) {
	raw, err := c.client.HGet(ctx, c.key(id), version).Bytes()
	if errors.Is(err, redis.Nil) {
		return LevelData{}, false, nil
	}
	if err != nil {
		return LevelData{}, false, fmt.Errorf("redis get levels %s: %w", id, err)
	}

	var d LevelData
	if err := json.Unmarshal(raw, &d); err != nil {
		return LevelData{}, false, fmt.Errorf("unmarshal levels %s: %w", id, err)
	}
	return d, true, nil
}

func (c *RedisCache) Set(ctx context.Context, id, version string, data LevelData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal levels %s: %w", id, err)
	}

	key := c.key(id)
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, version, raw)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set levels %s: %w", id, err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		return fmt.Errorf("redis invalidate levels %s: %w", id, err)
	}
	return nil
}
