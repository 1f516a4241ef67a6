// Package cache stores serialized provider responses in memory and on disk.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/factrank/internal/model"
)

const keyPrefix = "factrank:v1:"

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey builds a namespaced key from the hash of its parts.
// Parts are joined with a separator that cannot appear in user text.
func CacheKey(namespace string, parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return keyPrefix + namespace + ":" + hex.EncodeToString(hash[:])
}

// FromConfig builds the cache described by cfg, or nil when caching is off.
// An empty directory keeps the cache in memory only.
func FromConfig(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return nil
	}
	memTTL := time.Duration(cfg.MemoryTTL) * time.Second
	mem := NewMemoryCache(memTTL, 10*time.Minute)
	if cfg.Dir == "" {
		return mem
	}
	return NewLayeredCache(mem, NewDiskCache(expandHome(cfg.Dir), time.Duration(cfg.DiskTTL)*time.Second))
}

// GetJSON decodes a cached value into v. A corrupt entry counts as a miss.
func GetJSON(c Cache, key string, v any) bool {
	data, ok := c.Get(key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// SetJSON encodes v and stores it under key
func SetJSON(c Cache, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	return c.Set(key, data, ttl)
}
