package providers

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"bousai/internal/structures"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	IncCacheEvictions(reason string)
	SetCacheBytes(n int)
	IncHotCacheHits()
	IncHotCacheMisses()
	IncVersionChecks()
	IncVersionInvalidations()
	IncCheckinSubmissions(outcome string)
	SetPendingQueueDepth(n int)
	IncSyncPushes(outcome string)
	ObservePersistenceDuration(duration time.Duration)
}

type MetricsProvider struct {
	requestsTotal        *prometheus.CounterVec
	requestDuration      *prometheus.HistogramVec
	cacheHits            prometheus.Counter
	cacheMisses          prometheus.Counter
	cacheEvictions       *prometheus.CounterVec
	cacheBytes           prometheus.Gauge
	hotCacheHits         prometheus.Counter
	hotCacheMisses       prometheus.Counter
	versionChecks        prometheus.Counter
	versionInvalidations prometheus.Counter
	checkinSubmissions   *prometheus.CounterVec
	pendingQueueDepth    prometheus.Gauge
	syncPushes           *prometheus.CounterVec
	persistenceDuration  prometheus.Histogram
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) IncCacheEvictions(reason string) {
	m.cacheEvictions.WithLabelValues(reason).Inc()
}

func (m *MetricsProvider) SetCacheBytes(n int) {
	m.cacheBytes.Set(float64(n))
}

func (m *MetricsProvider) IncHotCacheHits() {
	m.hotCacheHits.Inc()
}

func (m *MetricsProvider) IncHotCacheMisses() {
	m.hotCacheMisses.Inc()
}

func (m *MetricsProvider) IncVersionChecks() {
	m.versionChecks.Inc()
}

func (m *MetricsProvider) IncVersionInvalidations() {
	m.versionInvalidations.Inc()
}

func (m *MetricsProvider) IncCheckinSubmissions(outcome string) {
	m.checkinSubmissions.WithLabelValues(outcome).Inc()
}

func (m *MetricsProvider) SetPendingQueueDepth(n int) {
	m.pendingQueueDepth.Set(float64(n))
}

func (m *MetricsProvider) IncSyncPushes(outcome string) {
	m.syncPushes.WithLabelValues(outcome).Inc()
}

func (m *MetricsProvider) ObservePersistenceDuration(duration time.Duration) {
	m.persistenceDuration.Observe(duration.Seconds())
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bousai_requests_total",
			Help: "Total number of local API requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bousai_request_duration_seconds",
			Help:    "Local API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bousai_content_cache_hits_total",
			Help: "Total number of content cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bousai_content_cache_misses_total",
			Help: "Total number of content cache misses",
		}),

		cacheEvictions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bousai_content_cache_evictions_total",
			Help: "Total number of content cache evictions by reason",
		}, []string{"reason"}),

		cacheBytes: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "bousai_content_cache_bytes",
			Help: "Aggregate size of the content cache in bytes",
		}),

		hotCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bousai_hot_cache_hits_total",
			Help: "Total number of in-memory hot layer hits",
		}),

		hotCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bousai_hot_cache_misses_total",
			Help: "Total number of in-memory hot layer misses",
		}),

		versionChecks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bousai_version_checks_total",
			Help: "Total number of data version fetches",
		}),

		versionInvalidations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bousai_version_invalidations_total",
			Help: "Total number of version-triggered cache purges",
		}),

		checkinSubmissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bousai_checkin_submissions_total",
			Help: "Total number of check-in submissions by outcome",
		}, []string{"outcome"}),

		pendingQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "bousai_pending_checkins",
			Help: "Current number of check-ins queued for redelivery",
		}),

		syncPushes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bousai_device_sync_pushes_total",
			Help: "Total number of device record pushes by outcome",
		}, []string{"outcome"}),

		persistenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "bousai_persistence_duration_seconds",
			Help:    "Duration of storage snapshot flushes in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) IncCacheEvictions(_ string)                       {}
func (n *noopMetrics) SetCacheBytes(_ int)                              {}
func (n *noopMetrics) IncHotCacheHits()                                 {}
func (n *noopMetrics) IncHotCacheMisses()                               {}
func (n *noopMetrics) IncVersionChecks()                                {}
func (n *noopMetrics) IncVersionInvalidations()                         {}
func (n *noopMetrics) IncCheckinSubmissions(_ string)                   {}
func (n *noopMetrics) SetPendingQueueDepth(_ int)                       {}
func (n *noopMetrics) IncSyncPushes(_ string)                           {}
func (n *noopMetrics) ObservePersistenceDuration(_ time.Duration)       {}
