// Package memcache is the in-process default for the per-location result
// cache. Same port as the redis adapter; pick one via config.
package memcache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/chrisjannenga/review-insights/internal/adapters/observability"
)

type entry struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
}

type Cache struct {
	mu sync.RWMutex
	m  map[string]entry
}

func New() *Cache {
	return &Cache{m: make(map[string]entry)}
}

func (c *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok || (!e.expiresAt.IsZero() && time.Now().After(e.expiresAt)) {
		observability.ObserveCache("memory", "miss")
		return false, nil
	}
	observability.ObserveCache("memory", "hit")
	return true, json.Unmarshal(e.data, dst)
}

func (c *Cache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	e := entry{data: b}
	if ttlSec > 0 {
		e.expiresAt = time.Now().Add(time.Duration(ttlSec) * time.Second)
	}
	c.mu.Lock()
	c.m[key] = e
	c.mu.Unlock()
	observability.ObserveCache("memory", "set")
	return nil
}

func (c *Cache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
	observability.ObserveCache("memory", "del")
	return nil
}
