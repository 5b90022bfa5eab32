package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheEntry_Expired(t *testing.T) {
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	e := &CacheEntry{CreatedAt: created, TTLDays: 7}

	assert.False(t, e.Expired(created.Add(6*24*time.Hour)))
	assert.True(t, e.Expired(created.Add(8*24*time.Hour)))
}

func TestCacheEntry_PinnedNeverExpires(t *testing.T) {
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	e := &CacheEntry{CreatedAt: created, TTLDays: 7, Pinned: true}

	assert.False(t, e.Expired(created.Add(365*24*time.Hour)))
}

func TestCacheMeta_RecomputeTotalSize(t *testing.T) {
	m := NewCacheMeta()
	m.Entries["a"] = &CacheEntry{Key: "a", Size: 40}
	m.Entries["b"] = &CacheEntry{Key: "b", Size: 60}
	m.TotalSize = 9999

	m.RecomputeTotalSize()
	assert.Equal(t, 100, m.TotalSize)
}

func TestDecodeCacheMeta_RoundTrip(t *testing.T) {
	data := []byte(`{"entries":{"k1":{"key":"k1","size":10,"ttlDays":7}},"totalSize":0,"searchHistory":["tokyo"]}`)

	m := DecodeCacheMeta(data)
	require.Contains(t, m.Entries, "k1")
	// drifted totalSize is repaired on decode
	assert.Equal(t, 10, m.TotalSize)
	assert.Equal(t, []string{"tokyo"}, m.SearchHistory)
}

func TestDecodeCacheMeta_MalformedIsFresh(t *testing.T) {
	m := DecodeCacheMeta([]byte(`garbage`))
	require.NotNil(t, m)
	assert.Empty(t, m.Entries)
	assert.Equal(t, 0, m.TotalSize)

	m = DecodeCacheMeta([]byte(`{"totalSize":5}`))
	assert.Empty(t, m.Entries)
}
