package providers

import "bousai/internal/structures"

// MetricsHotCache wraps a HotCacheInterface and counts hot-layer hits
// and misses on every Get call. Durable-layer hits and misses are
// counted separately by the content cache itself.
type MetricsHotCache struct {
	inner   HotCacheInterface
	metrics MetricsProviderInterface
}

func (c *MetricsHotCache) Get(key string) ([]byte, bool) {
	val, ok := c.inner.Get(key)
	if ok {
		c.metrics.IncHotCacheHits()
	} else {
		c.metrics.IncHotCacheMisses()
	}
	return val, ok
}

func (c *MetricsHotCache) Set(key string, value []byte) {
	c.inner.Set(key, value)
}

func (c *MetricsHotCache) Del(key string) {
	c.inner.Del(key)
}

func (c *MetricsHotCache) Clear() {
	c.inner.Clear()
}

// NewInstrumentedHotCache creates a hot cache wrapped with metrics
// instrumentation. When caching is disabled the plain noop cache is
// returned unwrapped to avoid counting phantom misses.
func NewInstrumentedHotCache(conf *structures.Config, logger Logger, metrics MetricsProviderInterface) HotCacheInterface {
	inner := NewHotCacheProvider(conf, logger)
	if !conf.Cache.Enabled {
		return inner
	}
	return &MetricsHotCache{
		inner:   inner,
		metrics: metrics,
	}
}
