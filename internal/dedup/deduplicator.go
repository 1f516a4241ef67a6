package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/ppiankov/factrank/internal/model"
)

const defaultFindLimit = 5

// Match is a near-duplicate candidate with its estimated similarity
type Match struct {
	Similarity  float64                  `json:"similarity"`
	Fingerprint model.ContentFingerprint `json:"fingerprint"`
}

// Stats describes the current state of a Deduplicator
type Stats struct {
	Count                      int     `json:"count"`
	ApproximateMatchingEnabled bool    `json:"approximate_matching_enabled"`
	Threshold                  float64 `json:"threshold"`
	NumPermutations            int     `json:"num_permutations"`
	Bands                      int     `json:"bands,omitempty"`
	Rows                       int     `json:"rows,omitempty"`
	MaxEntries                 int     `json:"max_entries"`
	Evicted                    int     `json:"evicted"`
}

// Texts of at least minEditWords words that differ by one inserted,
// deleted or replaced word are duplicates regardless of the threshold.
// anchorWords-long prefixes and suffixes find such pairs: one edit can
// change at most one of them.
const (
	minEditWords = 20
	anchorWords  = 8
)

type entry struct {
	id       uint64
	fp       model.ContentFingerprint
	words    int
	shingles map[uint64]struct{}
	anchors  []uint64
}

// sample is the indexable form of one text
type sample struct {
	hash     string
	sig      []uint64
	words    int
	shingles map[uint64]struct{}
	anchors  []uint64
}

// Deduplicator detects exact and near-duplicate content. Exact matches
// use a hash of the normalized text; near duplicates use MinHash
// signatures over word shingles with a banded LSH index.
type Deduplicator struct {
	mu      sync.RWMutex
	cfg     model.DedupConfig
	hasher  *MinHasher
	lsh     *lshIndex
	bands   int
	rows    int
	byHash  map[string]uint64
	anchors map[uint64][]uint64
	entries map[uint64]*entry
	order   []uint64 // insertion order, oldest first
	nextID  uint64
	evicted int
}

// New creates a Deduplicator. Zero config values fall back to defaults.
func New(cfg model.DedupConfig) *Deduplicator {
	defaults := model.DefaultConfig().Dedup
	if cfg.Threshold <= 0 || cfg.Threshold > 1 {
		cfg.Threshold = defaults.Threshold
	}
	if cfg.NumPerm <= 0 {
		cfg.NumPerm = defaults.NumPerm
	}
	if cfg.ShingleSize <= 0 {
		cfg.ShingleSize = defaults.ShingleSize
	}
	if cfg.MaxEntries < 0 {
		cfg.MaxEntries = 0
	}

	d := &Deduplicator{
		cfg:     cfg,
		byHash:  make(map[string]uint64),
		anchors: make(map[uint64][]uint64),
		entries: make(map[uint64]*entry),
	}
	if cfg.Approximate {
		d.hasher = NewMinHasher(cfg.NumPerm, cfg.Seed)
		d.bands, d.rows = optimalParams(cfg.Threshold, cfg.NumPerm, falsePositiveWeight, falseNegativeWeight)
		d.lsh = newLSHIndexWithParams(d.bands, d.rows)
	}
	return d
}

// Normalize lowercases text, drops everything except ASCII letters,
// digits and whitespace, and collapses runs of whitespace
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// ContentHash returns the sha256 hex digest of the normalized text
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(Normalize(text)))
	return hex.EncodeToString(sum[:])
}

func (d *Deduplicator) sample(text string) sample {
	normalized := Normalize(text)
	sum := sha256.Sum256([]byte(normalized))
	s := sample{hash: hex.EncodeToString(sum[:])}
	if d.hasher == nil {
		return s
	}

	shingles := Shingles(normalized, d.cfg.ShingleSize)
	s.sig = d.hasher.Signature(shingles)
	s.shingles = make(map[uint64]struct{}, len(shingles))
	for _, sh := range shingles {
		s.shingles[xxhash.Sum64String(sh)] = struct{}{}
	}

	words := strings.Fields(normalized)
	s.words = len(words)
	if len(words) >= minEditWords {
		s.anchors = []uint64{
			xxhash.Sum64String("^" + strings.Join(words[:anchorWords], " ")),
			xxhash.Sum64String("$" + strings.Join(words[len(words)-anchorWords:], " ")),
		}
	}
	return s
}

// Fingerprint computes the fingerprint of text without indexing it
func (d *Deduplicator) Fingerprint(text, sourceURL, title string) model.ContentFingerprint {
	return fingerprint(d.sample(text), text, sourceURL, title)
}

func fingerprint(s sample, text, sourceURL, title string) model.ContentFingerprint {
	return model.ContentFingerprint{
		ContentHash: s.hash,
		Signature:   s.sig,
		SourceURL:   sourceURL,
		Title:       title,
		Length:      len(text),
	}
}

// Add indexes text and returns its fingerprint. Adding text whose
// normalized form is already indexed refreshes the stored metadata.
func (d *Deduplicator) Add(text, sourceURL, title string) model.ContentFingerprint {
	s := d.sample(text)
	fp := fingerprint(s, text, sourceURL, title)

	d.mu.Lock()
	defer d.mu.Unlock()

	d.addLocked(s, fp)
	return fp
}

// AddIfNew indexes text unless it duplicates indexed content, checking
// and adding under one lock. It returns the new fingerprint and true, or
// the matched fingerprint and false.
func (d *Deduplicator) AddIfNew(text, sourceURL, title string) (model.ContentFingerprint, bool) {
	s := d.sample(text)

	d.mu.Lock()
	defer d.mu.Unlock()

	if match := d.matchLocked(s); match != nil {
		return match.fp, false
	}
	fp := fingerprint(s, text, sourceURL, title)
	d.addLocked(s, fp)
	return fp, true
}

func (d *Deduplicator) addLocked(s sample, fp model.ContentFingerprint) {
	if id, ok := d.byHash[fp.ContentHash]; ok {
		d.entries[id].fp = fp
		return
	}

	d.nextID++
	id := d.nextID
	d.entries[id] = &entry{id: id, fp: fp, words: s.words, shingles: s.shingles, anchors: s.anchors}
	d.byHash[fp.ContentHash] = id
	d.order = append(d.order, id)
	if d.lsh != nil && fp.Signature != nil {
		d.lsh.insert(id, fp.Signature)
	}
	for _, a := range s.anchors {
		d.anchors[a] = append(d.anchors[a], id)
	}

	if d.cfg.MaxEntries > 0 {
		for len(d.order) > d.cfg.MaxEntries {
			d.evictOldest()
		}
	}
}

func (d *Deduplicator) evictOldest() {
	id := d.order[0]
	d.order = d.order[1:]
	e, ok := d.entries[id]
	if !ok {
		return
	}
	delete(d.entries, id)
	delete(d.byHash, e.fp.ContentHash)
	if d.lsh != nil {
		d.lsh.remove(id)
	}
	for _, a := range e.anchors {
		ids := slices.DeleteFunc(d.anchors[a], func(v uint64) bool { return v == id })
		if len(ids) == 0 {
			delete(d.anchors, a)
		} else {
			d.anchors[a] = ids
		}
	}
	d.evicted++
}

// IsDuplicate reports whether text matches indexed content exactly, has
// an estimated Jaccard similarity at or above the threshold, or is within
// one word edit of indexed content of at least 20 words. The returned
// fingerprint is the exact match or the most similar accepted candidate.
func (d *Deduplicator) IsDuplicate(text string) (bool, *model.ContentFingerprint) {
	s := d.sample(text)

	d.mu.RLock()
	defer d.mu.RUnlock()

	match := d.matchLocked(s)
	if match == nil {
		return false, nil
	}
	fp := match.fp
	return true, &fp
}

func (d *Deduplicator) matchLocked(s sample) *entry {
	if id, ok := d.byHash[s.hash]; ok {
		return d.entries[id]
	}
	if d.lsh == nil || s.sig == nil {
		return nil
	}

	candidates := d.lsh.query(s.sig)
	for _, a := range s.anchors {
		candidates = append(candidates, d.anchors[a]...)
	}
	slices.Sort(candidates)
	candidates = slices.Compact(candidates)

	var best *entry
	bestSim := -1.0
	for _, id := range candidates {
		e, ok := d.entries[id]
		if !ok {
			continue
		}
		sim := EstimateJaccard(s.sig, e.fp.Signature)
		if sim < d.cfg.Threshold && !d.withinOneEdit(s, e) {
			continue
		}
		if sim > bestSim {
			best, bestSim = e, sim
		}
	}
	return best
}

// withinOneEdit reports whether one inserted, deleted or replaced word
// turns one text into the other. Such an edit leaves at most ShingleSize
// shingles of either side unmatched.
func (d *Deduplicator) withinOneEdit(s sample, e *entry) bool {
	if s.words < minEditWords || e.words < minEditWords {
		return false
	}
	if s.words-e.words > 1 || e.words-s.words > 1 {
		return false
	}
	k := d.cfg.ShingleSize
	return unmatched(s.shingles, e.shingles) <= k && unmatched(e.shingles, s.shingles) <= k
}

func unmatched(a, b map[uint64]struct{}) int {
	n := 0
	for h := range a {
		if _, ok := b[h]; !ok {
			n++
		}
	}
	return n
}

// FindSimilar returns LSH candidates for text with their estimated
// Jaccard similarity, most similar first. limit <= 0 uses the default.
func (d *Deduplicator) FindSimilar(text string, limit int) []Match {
	if limit <= 0 {
		limit = defaultFindLimit
	}
	sig := d.sample(text).sig
	if sig == nil {
		return nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.lsh == nil {
		return nil
	}

	type scored struct {
		id  uint64
		sim float64
	}
	var candidates []scored
	for _, id := range d.lsh.query(sig) {
		candidates = append(candidates, scored{id: id, sim: EstimateJaccard(sig, d.entries[id].fp.Signature)})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].sim > candidates[j].sim
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]Match, len(candidates))
	for i, c := range candidates {
		out[i] = Match{Similarity: c.sim, Fingerprint: d.entries[c.id].fp}
	}
	return out
}

// Stats returns a snapshot of the index state
func (d *Deduplicator) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return Stats{
		Count:                      len(d.entries),
		ApproximateMatchingEnabled: d.lsh != nil,
		Threshold:                  d.cfg.Threshold,
		NumPermutations:            d.cfg.NumPerm,
		Bands:                      d.bands,
		Rows:                       d.rows,
		MaxEntries:                 d.cfg.MaxEntries,
		Evicted:                    d.evicted,
	}
}

// Clear drops all indexed content and rebuilds the LSH index with the
// same parameters
func (d *Deduplicator) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.byHash = make(map[string]uint64)
	d.anchors = make(map[uint64][]uint64)
	d.entries = make(map[uint64]*entry)
	d.order = nil
	d.evicted = 0
	if d.lsh != nil {
		d.lsh = newLSHIndexWithParams(d.bands, d.rows)
	}
}
