package dedup

import (
	"encoding/binary"
	"math"
	"slices"

	"github.com/cespare/xxhash/v2"
	"gonum.org/v1/gonum/integrate/quad"
)

const (
	// Candidates are always verified against the threshold, so a false
	// positive costs one comparison while a false negative loses a match.
	falsePositiveWeight = 0.1
	falseNegativeWeight = 0.9

	quadraturePoints = 128
)

// lshIndex is a banded locality-sensitive index over MinHash signatures
type lshIndex struct {
	bands   int
	rows    int
	buckets []map[uint64][]uint64 // per band: bucket key -> entry ids
	keys    map[uint64][]uint64   // entry id -> bucket key per band
}

func newLSHIndexWithParams(bands, rows int) *lshIndex {
	idx := &lshIndex{
		bands:   bands,
		rows:    rows,
		buckets: make([]map[uint64][]uint64, bands),
		keys:    make(map[uint64][]uint64),
	}
	for i := range idx.buckets {
		idx.buckets[i] = make(map[uint64][]uint64)
	}
	return idx
}

func (l *lshIndex) bandKeys(sig []uint64) []uint64 {
	keys := make([]uint64, l.bands)
	buf := make([]byte, 8*l.rows)
	for band := 0; band < l.bands; band++ {
		start := band * l.rows
		for j := 0; j < l.rows; j++ {
			binary.LittleEndian.PutUint64(buf[j*8:], sig[start+j])
		}
		keys[band] = xxhash.Sum64(buf)
	}
	return keys
}

func (l *lshIndex) insert(id uint64, sig []uint64) {
	keys := l.bandKeys(sig)
	for band, key := range keys {
		l.buckets[band][key] = append(l.buckets[band][key], id)
	}
	l.keys[id] = keys
}

func (l *lshIndex) remove(id uint64) {
	keys, ok := l.keys[id]
	if !ok {
		return
	}
	for band, key := range keys {
		ids := l.buckets[band][key]
		for i, candidate := range ids {
			if candidate == id {
				ids = append(ids[:i], ids[i+1:]...)
				break
			}
		}
		if len(ids) == 0 {
			delete(l.buckets[band], key)
		} else {
			l.buckets[band][key] = ids
		}
	}
	delete(l.keys, id)
}

// query returns the ids sharing at least one band with sig, in
// ascending id order
func (l *lshIndex) query(sig []uint64) []uint64 {
	seen := make(map[uint64]struct{})
	var out []uint64
	for band, key := range l.bandKeys(sig) {
		for _, id := range l.buckets[band][key] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// optimalParams picks the (bands, rows) split of numPerm that minimizes
// the weighted area of false positives below the threshold and false
// negatives above it
func optimalParams(threshold float64, numPerm int, fpWeight, fnWeight float64) (int, int) {
	minErr := math.Inf(1)
	best := [2]int{1, numPerm}

	for b := 1; b <= numPerm; b++ {
		maxR := numPerm / b
		for r := 1; r <= maxR; r++ {
			fp := falsePositiveArea(threshold, b, r)
			fn := falseNegativeArea(threshold, b, r)
			if e := fp*fpWeight + fn*fnWeight; e < minErr {
				minErr = e
				best = [2]int{b, r}
			}
		}
	}
	return best[0], best[1]
}

func candidateProbability(s float64, b, r int) float64 {
	return 1 - math.Pow(1-math.Pow(s, float64(r)), float64(b))
}

func falsePositiveArea(threshold float64, b, r int) float64 {
	return quad.Fixed(func(s float64) float64 {
		return candidateProbability(s, b, r)
	}, 0, threshold, quadraturePoints, nil, 0)
}

func falseNegativeArea(threshold float64, b, r int) float64 {
	return quad.Fixed(func(s float64) float64 {
		return 1 - candidateProbability(s, b, r)
	}, threshold, 1, quadraturePoints, nil, 0)
}
