package cache

import (
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bousai/internal/models"
	"bousai/internal/providers"
	"bousai/internal/structures"
	"bousai/internal/testutil"
)

func cacheTestConfig() *structures.Config {
	conf := &structures.Config{}
	conf.Cache.MaxSizeKB = 5120
	conf.Cache.TTLDays = 7
	conf.Cache.SearchHistoryMax = 20
	return conf
}

func newTestCache(conf *structures.Config) (ContentCacheInterface, *testutil.MockKVStore) {
	kv := testutil.NewMockKVStore()
	return NewContentCache(conf, kv, testutil.NewMockHotCache(), providers.NewMetricsProvider(&structures.Config{}), &testutil.MockLogger{}), kv
}

func TestContentCache_SetGet(t *testing.T) {
	c, _ := newTestCache(cacheTestConfig())
	c.Set("shelters:abc", []byte(`[{"id":"s1"}]`), SetOptions{})

	val, ok := c.Get("shelters:abc")
	require.True(t, ok)
	assert.Equal(t, `[{"id":"s1"}]`, string(val))
	assert.Equal(t, len(`[{"id":"s1"}]`), c.TotalSize())
}

func TestContentCache_GetMissing(t *testing.T) {
	c, _ := newTestCache(cacheTestConfig())
	_, ok := c.Get("nope")
	assert.False(t, ok)
}

func TestContentCache_GetFallsBackToDurableStore(t *testing.T) {
	conf := cacheTestConfig()
	kv := testutil.NewMockKVStore()
	hot := testutil.NewMockHotCache()
	c := NewContentCache(conf, kv, hot, providers.NewMetricsProvider(&structures.Config{}), &testutil.MockLogger{})

	c.Set("k", []byte("payload"), SetOptions{})
	// simulate process restart losing the hot layer
	hot.Clear()

	val, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "payload", string(val))
}

func TestContentCache_MissingValueRepairsIndex(t *testing.T) {
	conf := cacheTestConfig()
	kv := testutil.NewMockKVStore()
	hot := testutil.NewMockHotCache()
	c := NewContentCache(conf, kv, hot, providers.NewMetricsProvider(&structures.Config{}), &testutil.MockLogger{})

	c.Set("k", []byte("payload"), SetOptions{})
	hot.Clear()
	kv.Remove("cache:v:k")

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.TotalSize())
}

func TestContentCache_TTLExpiry(t *testing.T) {
	c, kv := newTestCache(cacheTestConfig())
	c.Set("k", []byte("payload"), SetOptions{})

	// Rewrite the persisted index with a CreatedAt in the distant past,
	// then rehydrate, so the entry is expired without sleeping.
	backdate(t, kv, "k", time.Now().Add(-8*24*time.Hour))
	c.Rehydrate()

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestContentCache_PinnedSurvivesTTL(t *testing.T) {
	c, kv := newTestCache(cacheTestConfig())
	c.Set("k", []byte("payload"), SetOptions{Pinned: true})

	backdate(t, kv, "k", time.Now().Add(-365*24*time.Hour))
	c.Rehydrate()

	_, ok := c.Get("k")
	assert.True(t, ok)
}

func TestContentCache_LRUEviction(t *testing.T) {
	conf := cacheTestConfig()
	conf.Cache.MaxSizeKB = 1
	c, _ := newTestCache(conf)

	// cap is 1024 bytes, three 400-byte entries exceed it
	payload := make([]byte, 400)
	c.Set("a", payload, SetOptions{})
	time.Sleep(2 * time.Millisecond)
	c.Set("b", payload, SetOptions{})
	time.Sleep(2 * time.Millisecond)
	c.Set("c", payload, SetOptions{})

	_, okA := c.Get("a")
	_, okB := c.Get("b")
	_, okC := c.Get("c")
	assert.False(t, okA)
	assert.True(t, okB)
	assert.True(t, okC)
	assert.Equal(t, 800, c.TotalSize())
}

func TestContentCache_LRURespectsAccess(t *testing.T) {
	conf := cacheTestConfig()
	conf.Cache.MaxSizeKB = 1
	c, _ := newTestCache(conf)

	payload := make([]byte, 400)
	c.Set("a", payload, SetOptions{})
	time.Sleep(2 * time.Millisecond)
	c.Set("b", payload, SetOptions{})
	time.Sleep(2 * time.Millisecond)
	c.Get("a")
	time.Sleep(2 * time.Millisecond)
	c.Set("c", payload, SetOptions{})

	_, okA := c.Get("a")
	_, okB := c.Get("b")
	assert.True(t, okA)
	assert.False(t, okB)
}

func TestContentCache_PinnedEvictedOnlyUnderPressure(t *testing.T) {
	conf := cacheTestConfig()
	conf.Cache.MaxSizeKB = 1
	c, _ := newTestCache(conf)

	pinned := make([]byte, 400)
	c.Set("pinned", pinned, SetOptions{Pinned: true})
	time.Sleep(2 * time.Millisecond)
	c.Set("plain", make([]byte, 400), SetOptions{})
	time.Sleep(2 * time.Millisecond)
	c.Set("newer", make([]byte, 400), SetOptions{})

	// the unpinned older entry goes first even though pinned is older
	_, okPinned := c.Get("pinned")
	_, okPlain := c.Get("plain")
	assert.True(t, okPinned)
	assert.False(t, okPlain)

	// pinned entries are still evicted when they alone exceed the cap
	c.Set("big", make([]byte, 900), SetOptions{Pinned: true})
	assert.LessOrEqual(t, c.TotalSize(), 1024)
}

func TestContentCache_ClearAllKeepsSearchHistory(t *testing.T) {
	c, _ := newTestCache(cacheTestConfig())
	c.Set("shelters:q1", []byte("x"), SetOptions{Search: true})
	c.Set("shelters:q2", []byte("y"), SetOptions{Search: true})

	c.ClearAll()

	assert.Equal(t, 0, c.TotalSize())
	_, ok := c.Get("shelters:q1")
	assert.False(t, ok)
	assert.Equal(t, []string{"shelters:q2", "shelters:q1"}, c.SearchHistory())
}

func TestContentCache_SearchHistoryDedupesAndBounds(t *testing.T) {
	conf := cacheTestConfig()
	conf.Cache.SearchHistoryMax = 3
	c, _ := newTestCache(conf)

	c.Set("q1", []byte("x"), SetOptions{Search: true})
	c.Set("q2", []byte("x"), SetOptions{Search: true})
	c.Set("q1", []byte("x"), SetOptions{Search: true})
	c.Set("q3", []byte("x"), SetOptions{Search: true})
	c.Set("q4", []byte("x"), SetOptions{Search: true})

	assert.Equal(t, []string{"q4", "q3", "q1"}, c.SearchHistory())
}

func TestContentCache_RehydrateFromDurableStore(t *testing.T) {
	conf := cacheTestConfig()
	kv := testutil.NewMockKVStore()
	c := NewContentCache(conf, kv, testutil.NewMockHotCache(), providers.NewMetricsProvider(&structures.Config{}), &testutil.MockLogger{})
	c.Set("k", []byte("payload"), SetOptions{})

	// a second cache over the same store sees the persisted state
	c2 := NewContentCache(conf, kv, testutil.NewMockHotCache(), providers.NewMetricsProvider(&structures.Config{}), &testutil.MockLogger{})
	c2.Rehydrate()

	val, ok := c2.Get("k")
	require.True(t, ok)
	assert.Equal(t, "payload", string(val))
	assert.Equal(t, len("payload"), c2.TotalSize())
}

func TestContentCache_ReplaceAdjustsSize(t *testing.T) {
	c, _ := newTestCache(cacheTestConfig())
	c.Set("k", make([]byte, 100), SetOptions{})
	c.Set("k", make([]byte, 30), SetOptions{})
	assert.Equal(t, 30, c.TotalSize())
}

// backdate rewrites the persisted index entry for key with an old
// CreatedAt timestamp.
func backdate(t *testing.T, kv *testutil.MockKVStore, key string, createdAt time.Time) {
	t.Helper()
	raw, ok := kv.Get("cache:meta")
	require.True(t, ok)
	meta := models.DecodeCacheMeta([]byte(raw))
	require.Contains(t, meta.Entries, key)
	meta.Entries[key].CreatedAt = createdAt
	data, err := json.Marshal(meta)
	require.NoError(t, err)
	kv.Set("cache:meta", string(data))
}
