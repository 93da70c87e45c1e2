package client

import (
	"sync"
)

// QueryCache memoises read responses for the current token epoch. The
// session middleware empties it after every successful refresh.
type QueryCache struct {
	mu      sync.RWMutex
	entries map[string]interface{}
	epoch   uint64
}

// NewQueryCache 创建空缓存
func NewQueryCache() *QueryCache {
	return &QueryCache{entries: make(map[string]interface{})}
}

// Get 读取缓存
func (c *QueryCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Set 写入缓存
func (c *QueryCache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

// Len 当前缓存条目数
func (c *QueryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Epoch counts invalidations.
func (c *QueryCache) Epoch() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.epoch
}

// InvalidateAll drops every entry.
func (c *QueryCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]interface{})
	c.epoch++
}
