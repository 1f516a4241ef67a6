package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/factrank/internal/model"
)

func TestCacheKey(t *testing.T) {
	a := CacheKey("search", "duckduckgo", "golang", "10")
	b := CacheKey("search", "duckduckgo", "golang", "10")
	c := CacheKey("search", "duckduckgo", "golang", "5")
	d := CacheKey("embed", "duckduckgo", "golang", "10")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.True(t, strings.HasPrefix(a, "factrank:v1:search:"))

	// joined parts must not collide across boundaries
	assert.NotEqual(t, CacheKey("x", "ab", "c"), CacheKey("x", "a", "bc"))
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	require.NoError(t, c.Set("k", []byte("v"), 0))
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", string(got))
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Delete("k"))
	_, ok = c.Get("k")
	assert.False(t, ok)

	require.NoError(t, c.Set("a", []byte("1"), 0))
	require.NoError(t, c.Clear())
	assert.Zero(t, c.Len())
}

func TestDiskCache_RoundTripAndExpiry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	key := CacheKey("search", "q")
	require.NoError(t, c.Set(key, []byte("payload"), 0))

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "payload", string(got))

	now = now.Add(2 * time.Hour)
	_, ok = c.Get(key)
	assert.False(t, ok, "entry should have expired")

	matches, err := filepath.Glob(filepath.Join(dir, "*"+diskExt))
	require.NoError(t, err)
	assert.Empty(t, matches, "expired entry is removed")
}

func TestDiskCache_CorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	require.NoError(t, os.WriteFile(c.path("bad"), []byte("{not json"), 0o644))

	_, ok := c.Get("bad")
	assert.False(t, ok)
}

func TestDiskCache_DeleteAndClear(t *testing.T) {
	dir := t.TempDir()
	keep := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(keep, []byte("x"), 0o644))

	c := NewDiskCache(dir, 0)
	require.NoError(t, c.Delete("never-set"))
	require.NoError(t, c.Set("a", []byte("1"), 0))
	require.NoError(t, c.Set("b", []byte("2"), 0))
	require.NoError(t, c.Clear())

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.FileExists(t, keep)
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	mem := NewMemoryCache(time.Minute, time.Minute)
	disk := NewDiskCache(t.TempDir(), time.Hour)
	require.NoError(t, disk.Set("k", []byte("from-disk"), 0))

	c := NewLayeredCache(mem, disk)
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "from-disk", string(got))

	got, ok = mem.Get("k")
	require.True(t, ok, "disk hit should be promoted")
	assert.Equal(t, "from-disk", string(got))

	require.NoError(t, c.Delete("k"))
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestJSONHelpers(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	in := []model.SearchResult{{Title: "Go", URL: "https://go.dev"}}
	require.NoError(t, SetJSON(c, "k", in, 0))

	var out []model.SearchResult
	require.True(t, GetJSON(c, "k", &out))
	assert.Equal(t, in, out)

	require.NoError(t, c.Set("bad", []byte("nope"), 0))
	assert.False(t, GetJSON(c, "bad", &out))
	assert.False(t, GetJSON(c, "missing", &out))
}

func TestFromConfig(t *testing.T) {
	assert.Nil(t, FromConfig(model.CacheConfig{Enabled: false}))
	assert.IsType(t, &MemoryCache{}, FromConfig(model.CacheConfig{Enabled: true, MemoryTTL: 60}))
	assert.IsType(t, &LayeredCache{}, FromConfig(model.CacheConfig{Enabled: true, Dir: t.TempDir(), MemoryTTL: 60, DiskTTL: 60}))
}
