package cache

import (
	"context"
	"net/http"
	"sync"
	"time"

	"bousai/internal/providers"
	"bousai/internal/storage"
	"bousai/internal/structures"
)

const (
	versionKey   = "cache:dataVersion"
	checkedAtKey = "cache:versionCheckedAt"
)

// VersionGateInterface watches the server-reported data version and
// purges the content cache when it changes. The version token is the
// only authoritative invalidation signal; TTL and LRU are client-side
// heuristics.
type VersionGateInterface interface {
	Check(ctx context.Context) bool
	ForceCheck(ctx context.Context) bool
}

type VersionGate struct {
	conf    *structures.Config
	kv      storage.KVStoreInterface
	api     providers.ApiClientInterface
	cache   ContentCacheInterface
	metrics providers.MetricsProviderInterface
	logger  providers.Logger

	mu sync.Mutex
}

func NewVersionGate(conf *structures.Config, kv storage.KVStoreInterface, api providers.ApiClientInterface, contentCache ContentCacheInterface, metrics providers.MetricsProviderInterface, logger providers.Logger) VersionGateInterface {
	return &VersionGate{
		conf:    conf,
		kv:      kv,
		api:     api,
		cache:   contentCache,
		metrics: metrics,
		logger:  logger,
	}
}

// Check runs a rate-limited version probe and reports whether the cache
// was invalidated. Calls inside the rate-limit window are no-ops.
func (g *VersionGate) Check(ctx context.Context) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if time.Since(g.lastCheckedAt()) < g.conf.Version.CheckInterval {
		return false
	}
	return g.check(ctx)
}

// ForceCheck bypasses the rate limit (manual pull-to-refresh).
func (g *VersionGate) ForceCheck(ctx context.Context) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.check(ctx)
}

func (g *VersionGate) check(ctx context.Context) bool {
	g.metrics.IncVersionChecks()

	version, status, err := g.api.FetchDataVersion(ctx)
	if err != nil || status != http.StatusOK || version == "" {
		// Keep serving the existing cache when the version is unknowable.
		g.logger.Debugf(providers.TypeCache, "Version check failed (status=%d): %v", status, err)
		return false
	}

	invalidated := false
	if stored, ok := g.kv.Get(versionKey); ok && stored != version {
		g.cache.ClearAll()
		g.metrics.IncVersionInvalidations()
		g.logger.Infof(providers.TypeCache, "Data version changed %s -> %s, cache purged", stored, version)
		invalidated = true
	}

	g.kv.Set(versionKey, version)
	g.kv.Set(checkedAtKey, time.Now().Format(time.RFC3339Nano))
	return invalidated
}

func (g *VersionGate) lastCheckedAt() time.Time {
	raw, ok := g.kv.Get(checkedAtKey)
	if !ok {
		return time.Time{}
	}
	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return at
}
