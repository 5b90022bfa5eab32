package models

import (
	"time"

	json "github.com/goccy/go-json"
)

// CacheEntry is the metadata index record for one cached payload.
type CacheEntry struct {
	Key            string    `json:"key"`
	Size           int       `json:"size"`
	CreatedAt      time.Time `json:"createdAt"`
	LastAccessedAt time.Time `json:"lastAccessedAt"`
	Pinned         bool      `json:"pinned"`
	TTLDays        int       `json:"ttlDays"`
}

// Expired reports whether the entry's TTL has elapsed. Pinned entries
// never expire by TTL.
func (e *CacheEntry) Expired(now time.Time) bool {
	if e.Pinned {
		return false
	}
	return now.After(e.CreatedAt.Add(time.Duration(e.TTLDays) * 24 * time.Hour))
}

// CacheMeta is the aggregate index over all cache entries. TotalSize is
// kept equal to the sum of live entries' sizes on every mutation.
type CacheMeta struct {
	Entries       map[string]*CacheEntry `json:"entries"`
	TotalSize     int                    `json:"totalSize"`
	SearchHistory []string               `json:"searchHistory,omitempty"`
}

func NewCacheMeta() *CacheMeta {
	return &CacheMeta{Entries: make(map[string]*CacheEntry)}
}

// RecomputeTotalSize repairs TotalSize from the live entries. Used after
// rehydration so index drift in a stale snapshot cannot survive a restart.
func (m *CacheMeta) RecomputeTotalSize() {
	total := 0
	for _, e := range m.Entries {
		total += e.Size
	}
	m.TotalSize = total
}

// DecodeCacheMeta parses a persisted cache index. Malformed input yields
// a fresh empty index.
func DecodeCacheMeta(data []byte) *CacheMeta {
	var m CacheMeta
	if err := json.Unmarshal(data, &m); err != nil || m.Entries == nil {
		return NewCacheMeta()
	}
	m.RecomputeTotalSize()
	return &m
}
