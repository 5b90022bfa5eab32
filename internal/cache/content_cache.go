package cache

import (
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"bousai/internal/models"
	"bousai/internal/providers"
	"bousai/internal/storage"
	"bousai/internal/structures"
)

const (
	metaKey        = "cache:meta"
	valueKeyPrefix = "cache:v:"
)

// SetOptions control how a payload is stored. Pinned entries outlive
// their TTL; Search marks the key for the bounded search history.
type SetOptions struct {
	Pinned  bool
	Search  bool
	TTLDays int
}

// ContentCacheInterface is the TTL+LRU store of previously fetched query
// results. It is an optimization, never a source of truth: every storage
// failure degrades to a miss or a no-op.
type ContentCacheInterface interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, opts SetOptions)
	Pin(key string, pinned bool)
	ClearAll()
	SearchHistory() []string
	TotalSize() int
	Rehydrate()
}

type ContentCache struct {
	conf    *structures.Config
	kv      storage.KVStoreInterface
	hot     providers.HotCacheInterface
	metrics providers.MetricsProviderInterface
	logger  providers.Logger

	mu   sync.Mutex
	meta *models.CacheMeta
}

func NewContentCache(conf *structures.Config, kv storage.KVStoreInterface, hot providers.HotCacheInterface, metrics providers.MetricsProviderInterface, logger providers.Logger) ContentCacheInterface {
	return &ContentCache{
		conf:    conf,
		kv:      kv,
		hot:     hot,
		metrics: metrics,
		logger:  logger,
		meta:    models.NewCacheMeta(),
	}
}

// Rehydrate reloads the metadata index from durable storage. A missing
// or malformed index yields a fresh empty one.
func (c *ContentCache) Rehydrate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if raw, ok := c.kv.Get(metaKey); ok {
		c.meta = models.DecodeCacheMeta([]byte(raw))
	} else {
		c.meta = models.NewCacheMeta()
	}
	c.metrics.SetCacheBytes(c.meta.TotalSize)
}

func (c *ContentCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.meta.Entries[key]
	if !ok {
		c.metrics.IncCacheMisses()
		return nil, false
	}

	now := time.Now()
	if entry.Expired(now) {
		c.removeEntry(key, "ttl")
		c.persistMeta()
		c.metrics.IncCacheMisses()
		return nil, false
	}

	value, ok := c.hot.Get(valueKeyPrefix + key)
	if !ok {
		raw, found := c.kv.Get(valueKeyPrefix + key)
		if !found {
			// Index says present but the value is gone; repair the index.
			c.removeEntry(key, "missing")
			c.persistMeta()
			c.metrics.IncCacheMisses()
			return nil, false
		}
		value = []byte(raw)
		c.hot.Set(valueKeyPrefix+key, value)
	}

	entry.LastAccessedAt = now
	c.persistMeta()
	c.metrics.IncCacheHits()
	return value, true
}

func (c *ContentCache) Set(key string, value []byte, opts SetOptions) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	ttlDays := opts.TTLDays
	if ttlDays <= 0 {
		ttlDays = c.conf.Cache.TTLDays
	}

	if prev, ok := c.meta.Entries[key]; ok {
		c.meta.TotalSize -= prev.Size
	}
	c.meta.Entries[key] = &models.CacheEntry{
		Key:            key,
		Size:           len(value),
		CreatedAt:      now,
		LastAccessedAt: now,
		Pinned:         opts.Pinned,
		TTLDays:        ttlDays,
	}
	c.meta.TotalSize += len(value)

	if opts.Search {
		c.recordSearch(key)
	}

	c.kv.Set(valueKeyPrefix+key, string(value))
	c.hot.Set(valueKeyPrefix+key, value)

	c.evict(now)
	c.persistMeta()
}

func (c *ContentCache) Pin(key string, pinned bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.meta.Entries[key]; ok {
		entry.Pinned = pinned
		c.persistMeta()
	}
}

// ClearAll empties the entire content store. The search history is user
// history, not content, and survives the purge.
func (c *ContentCache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.meta.Entries {
		c.kv.Remove(valueKeyPrefix + key)
	}
	c.hot.Clear()
	history := c.meta.SearchHistory
	c.meta = models.NewCacheMeta()
	c.meta.SearchHistory = history
	c.persistMeta()
	c.logger.Infof(providers.TypeCache, "Content cache cleared")
}

func (c *ContentCache) SearchHistory() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.meta.SearchHistory...)
}

func (c *ContentCache) TotalSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.meta.TotalSize
}

// evict enforces TTL and the size cap after every insert. Phase one
// drops expired unpinned entries; phase two evicts by least recent
// access among unpinned entries; phase three ignores pins, so the cap
// holds even when everything left is pinned.
func (c *ContentCache) evict(now time.Time) {
	for key, entry := range c.meta.Entries {
		if entry.Expired(now) {
			c.removeEntry(key, "ttl")
		}
	}

	cap := c.conf.Cache.MaxSizeKB * 1024
	if cap <= 0 {
		return
	}

	for c.meta.TotalSize > cap {
		victim := c.lruKey(false)
		if victim == "" {
			break
		}
		c.removeEntry(victim, "lru")
	}

	for c.meta.TotalSize > cap {
		victim := c.lruKey(true)
		if victim == "" {
			break
		}
		c.removeEntry(victim, "pressure")
	}
}

// lruKey returns the least recently accessed key, considering pinned
// entries only when includePinned is set.
func (c *ContentCache) lruKey(includePinned bool) string {
	var oldest string
	var oldestAt time.Time
	for key, entry := range c.meta.Entries {
		if entry.Pinned && !includePinned {
			continue
		}
		if oldest == "" || entry.LastAccessedAt.Before(oldestAt) {
			oldest = key
			oldestAt = entry.LastAccessedAt
		}
	}
	return oldest
}

func (c *ContentCache) removeEntry(key, reason string) {
	entry, ok := c.meta.Entries[key]
	if !ok {
		return
	}
	c.meta.TotalSize -= entry.Size
	delete(c.meta.Entries, key)
	c.kv.Remove(valueKeyPrefix + key)
	c.hot.Del(valueKeyPrefix + key)
	c.metrics.IncCacheEvictions(reason)
}

func (c *ContentCache) recordSearch(key string) {
	history := make([]string, 0, len(c.meta.SearchHistory)+1)
	history = append(history, key)
	for _, prev := range c.meta.SearchHistory {
		if prev != key {
			history = append(history, prev)
		}
	}
	if limit := c.conf.Cache.SearchHistoryMax; limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	c.meta.SearchHistory = history
}

func (c *ContentCache) persistMeta() {
	data, err := json.Marshal(c.meta)
	if err != nil {
		c.logger.Warnf(providers.TypeCache, "Failed to encode cache index: %s", err)
		return
	}
	c.kv.Set(metaKey, string(data))
	c.metrics.SetCacheBytes(c.meta.TotalSize)
}
