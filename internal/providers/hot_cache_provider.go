package providers

import (
	"unsafe"

	"github.com/coocood/freecache"

	"bousai/internal/structures"
)

// HotCacheInterface is the in-memory layer in front of the durable
// content store. Losing an entry here is harmless; reads fall through
// to durable storage.
type HotCacheInterface interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Del(key string)
	Clear()
}

type HotCacheProvider struct {
	cache *freecache.Cache
	ttl   int
}

func NewHotCacheProvider(conf *structures.Config, logger Logger) HotCacheInterface {
	if !conf.Cache.Enabled || conf.Cache.HotSizeMB <= 0 {
		logger.Infof(TypeCache, "Hot cache disabled")
		return &noopHotCache{}
	}

	sizeBytes := conf.Cache.HotSizeMB * 1024 * 1024
	ttl := max(conf.Cache.TTLDays, 1) * 24 * 3600

	logger.Infof(TypeCache, "Hot cache initialized: %dMB, TTL=%ds", conf.Cache.HotSizeMB, ttl)

	return &HotCacheProvider{
		cache: freecache.NewCache(sizeBytes),
		ttl:   ttl,
	}
}

// unsafeStringToBytes converts string to []byte without allocation.
// Safe when the result is only read, not modified; freecache copies
// keys internally.
func unsafeStringToBytes(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

func (c *HotCacheProvider) Get(key string) ([]byte, bool) {
	val, err := c.cache.Get(unsafeStringToBytes(key))
	if err != nil {
		return nil, false
	}
	return val, true
}

func (c *HotCacheProvider) Set(key string, value []byte) {
	_ = c.cache.Set(unsafeStringToBytes(key), value, c.ttl)
}

func (c *HotCacheProvider) Del(key string) {
	c.cache.Del(unsafeStringToBytes(key))
}

func (c *HotCacheProvider) Clear() {
	c.cache.Clear()
}

type noopHotCache struct{}

func (n *noopHotCache) Get(_ string) ([]byte, bool) { return nil, false }
func (n *noopHotCache) Set(_ string, _ []byte)      {}
func (n *noopHotCache) Del(_ string)                {}
func (n *noopHotCache) Clear()                      {}
