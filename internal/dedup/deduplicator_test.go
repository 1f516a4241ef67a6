package dedup

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/factrank/internal/model"
)

func testConfig() model.DedupConfig {
	return model.DefaultConfig().Dedup
}

func words(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return out
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello, World!", "hello world"},
		{"  multiple\t\tspaces\n here ", "multiple spaces here"},
		{"Café naïve", "caf nave"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "input %q", tt.in)
	}
}

func TestShingles(t *testing.T) {
	assert.Equal(t, []string{"a b c", "b c d"}, Shingles("a b c d", 3))
	assert.Equal(t, []string{"short text"}, Shingles("short text", 3))
	assert.Nil(t, Shingles("", 3))
	assert.Equal(t, []string{"x x x"}, Shingles("x x x x x", 3))
}

func TestMinHasher_Deterministic(t *testing.T) {
	sh := Shingles("the quick brown fox jumps over the lazy dog", 3)
	a := NewMinHasher(64, 7).Signature(sh)
	b := NewMinHasher(64, 7).Signature(sh)
	require.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.Equal(t, 1.0, EstimateJaccard(a, b))
	assert.Nil(t, NewMinHasher(64, 7).Signature(nil))
	assert.Equal(t, 0.0, EstimateJaccard(a, a[:10]))
}

func TestOptimalParams(t *testing.T) {
	b, r := optimalParams(0.8, 128, falsePositiveWeight, falseNegativeWeight)
	assert.Positive(t, b)
	assert.Positive(t, r)
	assert.LessOrEqual(t, b*r, 128)
}

func TestDeduplicator_ExactDuplicate(t *testing.T) {
	d := New(testConfig())
	fp := d.Add("The Eiffel Tower is in Paris.", "https://example.com/a", "Eiffel")

	assert.Len(t, fp.ContentHash, 64)
	assert.Len(t, fp.Signature, 128)
	assert.Equal(t, 29, fp.Length)

	dup, match := d.IsDuplicate("the eiffel tower   is in PARIS")
	require.True(t, dup)
	require.NotNil(t, match)
	assert.Equal(t, "https://example.com/a", match.SourceURL)
	assert.Equal(t, fp.ContentHash, match.ContentHash)
}

func TestDeduplicator_UnrelatedContent(t *testing.T) {
	d := New(testConfig())
	d.Add(strings.Join(words("alpha", 30), " "), "https://a.example.com", "")

	dup, match := d.IsDuplicate(strings.Join(words("omega", 30), " "))
	assert.False(t, dup)
	assert.Nil(t, match)
}

func TestDeduplicator_NearDuplicateLastWord(t *testing.T) {
	d := New(testConfig())
	base := words("token", 40)
	d.Add(strings.Join(base, " "), "https://a.example.com", "original")

	changed := append([]string(nil), base...)
	changed[len(changed)-1] = "different"

	dup, match := d.IsDuplicate(strings.Join(changed, " "))
	require.True(t, dup)
	require.NotNil(t, match)
	assert.Equal(t, "original", match.Title)
}

func TestDeduplicator_NearDuplicateMiddleWord(t *testing.T) {
	d := New(testConfig())
	base := words("term", 80)
	d.Add(strings.Join(base, " "), "https://a.example.com", "long")

	changed := append([]string(nil), base...)
	changed[40] = "replaced"
	text := strings.Join(changed, " ")

	dup, _ := d.IsDuplicate(text)
	assert.True(t, dup)

	matches := d.FindSimilar(text, 0)
	require.Len(t, matches, 1)
	assert.GreaterOrEqual(t, matches[0].Similarity, 0.8)
	assert.Equal(t, "long", matches[0].Fingerprint.Title)
}

func TestDeduplicator_FindSimilarOrdering(t *testing.T) {
	d := New(testConfig())
	base := words("w", 60)
	d.Add(strings.Join(base, " "), "", "exact")

	far := append([]string(nil), base...)
	far[10], far[30], far[50] = "x1", "x2", "x3"
	d.Add(strings.Join(far, " "), "", "far")

	matches := d.FindSimilar(strings.Join(base, " "), 10)
	require.NotEmpty(t, matches)
	assert.Equal(t, "exact", matches[0].Fingerprint.Title)
	assert.Equal(t, 1.0, matches[0].Similarity)
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Similarity, matches[i].Similarity)
	}

	assert.Len(t, d.FindSimilar(strings.Join(base, " "), 1), 1)
	assert.Nil(t, d.FindSimilar("", 5))
}

func TestDeduplicator_ExactOnlyMode(t *testing.T) {
	cfg := testConfig()
	cfg.Approximate = false
	d := New(cfg)

	fp := d.Add("some content here", "", "")
	assert.Nil(t, fp.Signature)

	dup, _ := d.IsDuplicate("Some content, here!")
	assert.True(t, dup)

	dup, _ = d.IsDuplicate("some content there")
	assert.False(t, dup)
	assert.Nil(t, d.FindSimilar("some content here", 5))

	stats := d.Stats()
	assert.False(t, stats.ApproximateMatchingEnabled)
	assert.Equal(t, 1, stats.Count)
	assert.Zero(t, stats.Bands)
}

func TestDeduplicator_EmptyText(t *testing.T) {
	d := New(testConfig())
	fp := d.Add("", "", "")
	assert.Nil(t, fp.Signature)

	dup, _ := d.IsDuplicate("   ")
	assert.True(t, dup)
}

func TestDeduplicator_AddSameContentTwice(t *testing.T) {
	d := New(testConfig())
	d.Add("repeated content body", "https://first.example.com", "first")
	d.Add("Repeated content body.", "https://second.example.com", "second")

	assert.Equal(t, 1, d.Stats().Count)
	_, match := d.IsDuplicate("repeated content body")
	require.NotNil(t, match)
	assert.Equal(t, "second", match.Title)
}

func TestDeduplicator_Clear(t *testing.T) {
	d := New(testConfig())
	text := strings.Join(words("c", 20), " ")
	d.Add(text, "", "")
	before := d.Stats()

	d.Clear()
	after := d.Stats()
	assert.Zero(t, after.Count)
	assert.Equal(t, before.Bands, after.Bands)
	assert.Equal(t, before.Rows, after.Rows)

	dup, _ := d.IsDuplicate(text)
	assert.False(t, dup)
	assert.Empty(t, d.FindSimilar(text, 5))
}

func TestDeduplicator_Eviction(t *testing.T) {
	cfg := testConfig()
	cfg.MaxEntries = 2
	d := New(cfg)

	first := strings.Join(words("first", 20), " ")
	d.Add(first, "", "first")
	d.Add(strings.Join(words("second", 20), " "), "", "second")
	d.Add(strings.Join(words("third", 20), " "), "", "third")

	stats := d.Stats()
	assert.Equal(t, 2, stats.Count)
	assert.Equal(t, 1, stats.Evicted)

	dup, _ := d.IsDuplicate(first)
	assert.False(t, dup)
	assert.Empty(t, d.FindSimilar(first, 5))

	dup, _ = d.IsDuplicate(strings.Join(words("third", 20), " "))
	assert.True(t, dup)
}

func TestDeduplicator_Stats(t *testing.T) {
	d := New(testConfig())
	stats := d.Stats()
	assert.True(t, stats.ApproximateMatchingEnabled)
	assert.Equal(t, 0.8, stats.Threshold)
	assert.Equal(t, 128, stats.NumPermutations)
	assert.LessOrEqual(t, stats.Bands*stats.Rows, 128)
}

func TestDeduplicator_ZeroConfigDefaults(t *testing.T) {
	d := New(model.DedupConfig{Approximate: true})
	stats := d.Stats()
	assert.Equal(t, 0.8, stats.Threshold)
	assert.Equal(t, 128, stats.NumPermutations)
}

func edited(base []string, pos int, word string) string {
	out := append([]string(nil), base...)
	out[pos] = word
	return strings.Join(out, " ")
}

func TestDeduplicator_OneWordEditAtMinimumLength(t *testing.T) {
	base := words("tok", minEditWords)
	text := strings.Join(base, " ")

	tests := []struct {
		name    string
		variant string
	}{
		{"replace middle", edited(base, len(base)/2, "swapped")},
		{"replace first", edited(base, 0, "swapped")},
		{"replace last", edited(base, len(base)-1, "swapped")},
		{"insert middle", strings.Join(slices.Insert(slices.Clone(base), len(base)/2, "extra"), " ")},
		{"replace inside prefix anchor", edited(base, anchorWords-1, "swapped")},
		{"replace inside suffix anchor", edited(base, len(base)-anchorWords, "swapped")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(testConfig())
			d.Add(text, "https://a.example.com", "base")

			dup, match := d.IsDuplicate(tt.variant)
			require.True(t, dup)
			require.NotNil(t, match)
			assert.Equal(t, "base", match.Title)
		})
	}
}

func TestDeduplicator_OneWordEditPerPosition(t *testing.T) {
	for _, n := range []int{minEditWords, minEditWords + 1, 25, 30} {
		base := words("w", n)
		d := New(testConfig())
		d.Add(strings.Join(base, " "), "", "base")

		for pos := range base {
			dup, _ := d.IsDuplicate(edited(base, pos, "changed"))
			assert.True(t, dup, "n=%d pos=%d", n, pos)
		}
	}
}

func TestDeduplicator_EditToleranceLimits(t *testing.T) {
	d := New(testConfig())
	base := words("tok", minEditWords)
	d.Add(strings.Join(base, " "), "", "")

	twoEdits := append([]string(nil), base...)
	twoEdits[5], twoEdits[14] = "x1", "x2"
	dup, _ := d.IsDuplicate(strings.Join(twoEdits, " "))
	assert.False(t, dup, "two separate edits")

	short := words("short", 12)
	d.Add(strings.Join(short, " "), "", "")
	dup, _ = d.IsDuplicate(edited(short, 6, "changed"))
	assert.False(t, dup, "one edit below the minimum length")
}

func TestDeduplicator_EditToleranceNeedsApproximateMode(t *testing.T) {
	cfg := testConfig()
	cfg.Approximate = false
	d := New(cfg)
	base := words("tok", minEditWords)
	d.Add(strings.Join(base, " "), "", "")

	dup, _ := d.IsDuplicate(edited(base, 10, "changed"))
	assert.False(t, dup)
}

func TestDeduplicator_AddIfNew(t *testing.T) {
	d := New(testConfig())
	base := words("para", minEditWords)

	fp, added := d.AddIfNew(strings.Join(base, " "), "https://a.example.com", "first")
	require.True(t, added)
	assert.Equal(t, "first", fp.Title)

	fp, added = d.AddIfNew(edited(base, 10, "changed"), "https://b.example.com", "second")
	assert.False(t, added)
	assert.Equal(t, "first", fp.Title)

	_, added = d.AddIfNew(strings.Join(base, " "), "", "again")
	assert.False(t, added)
	assert.Equal(t, 1, d.Stats().Count)
}

func TestDeduplicator_AddIfNewConcurrent(t *testing.T) {
	d := New(testConfig())
	text := strings.Join(words("same", minEditWords), " ")

	var wg sync.WaitGroup
	var mu sync.Mutex
	added := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := d.AddIfNew(text, "", ""); ok {
				mu.Lock()
				added++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, added)
	assert.Equal(t, 1, d.Stats().Count)
}

func TestDeduplicator_EvictionDropsAnchors(t *testing.T) {
	cfg := testConfig()
	cfg.MaxEntries = 1
	d := New(cfg)

	first := words("first", minEditWords)
	d.Add(strings.Join(first, " "), "", "first")
	d.Add(strings.Join(words("second", minEditWords), " "), "", "second")

	dup, _ := d.IsDuplicate(edited(first, 10, "changed"))
	assert.False(t, dup)
	assert.Empty(t, d.anchors[xxhash.Sum64String("^"+strings.Join(first[:anchorWords], " "))])
}

func TestLSHQuerySorted(t *testing.T) {
	l := newLSHIndexWithParams(2, 2)
	sig := []uint64{1, 2, 3, 4}
	for _, id := range []uint64{9, 3, 7, 1} {
		l.insert(id, sig)
	}
	assert.Equal(t, []uint64{1, 3, 7, 9}, l.query(sig))
}
