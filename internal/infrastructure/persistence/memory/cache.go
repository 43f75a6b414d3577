package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// Cache 进程内 Read-Through 缓存，与 Redis 缓存同语义
type Cache struct {
	mu    sync.RWMutex
	items map[string]cacheEntry
	group singleflight.Group
	now   func() time.Time
}

// NewCache 创建进程内缓存
func NewCache() *Cache {
	return &Cache{
		items: make(map[string]cacheEntry),
		now:   time.Now,
	}
}

func (c *Cache) get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

// GetOrLoadSafe 未命中时用 singleflight 合并并发加载
func (c *Cache) GetOrLoadSafe(_ context.Context, key string, ttl time.Duration, loader func() (interface{}, error)) ([]byte, error) {
	if v, ok := c.get(key); ok {
		return v, nil
	}

	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		if v, ok := c.get(key); ok {
			return v, nil
		}
		data, err := loader()
		if err != nil {
			return nil, err
		}
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal data: %w", err)
		}

		e := cacheEntry{value: bytes}
		if ttl > 0 {
			e.expiresAt = c.now().Add(ttl)
		}
		c.mu.Lock()
		c.items[key] = e
		c.mu.Unlock()
		return bytes, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}
