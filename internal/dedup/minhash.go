package dedup

import (
	"math"
	"math/bits"
	"math/rand/v2"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// mersennePrime is the modulus of the universal hash family
const mersennePrime = (1 << 61) - 1

// MinHasher computes fixed-size MinHash signatures over shingle sets.
// Permutations are derived from a seed so signatures are comparable
// across hasher instances built with the same seed and size.
type MinHasher struct {
	a []uint64
	b []uint64
}

// NewMinHasher creates a hasher with numPerm permutations
func NewMinHasher(numPerm int, seed int64) *MinHasher {
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))

	m := &MinHasher{
		a: make([]uint64, numPerm),
		b: make([]uint64, numPerm),
	}
	for i := 0; i < numPerm; i++ {
		m.a[i] = 1 + rng.Uint64N(mersennePrime-1)
		m.b[i] = rng.Uint64N(mersennePrime)
	}
	return m
}

// NumPerm returns the signature length
func (m *MinHasher) NumPerm() int {
	return len(m.a)
}

// Signature returns the MinHash signature of the shingle set, or nil if
// the set is empty
func (m *MinHasher) Signature(shingles []string) []uint64 {
	if len(shingles) == 0 {
		return nil
	}

	sig := make([]uint64, len(m.a))
	for i := range sig {
		sig[i] = math.MaxUint64
	}

	for _, sh := range shingles {
		hv := xxhash.Sum64String(sh)
		for i := range sig {
			if phv := permute(hv, m.a[i], m.b[i]); phv < sig[i] {
				sig[i] = phv
			}
		}
	}
	return sig
}

// permute computes (a*x + b) mod p without overflowing 64 bits
func permute(x, a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, x)
	lo, carry := bits.Add64(lo, b, 0)
	hi += carry
	return bits.Rem64(hi, lo, mersennePrime)
}

// EstimateJaccard is the fraction of matching signature slots
func EstimateJaccard(a, b []uint64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	same := 0
	for i := range a {
		if a[i] == b[i] {
			same++
		}
	}
	return float64(same) / float64(len(a))
}

// Shingles splits normalized text into overlapping k-word shingles.
// Text with fewer than k words becomes a single shingle.
func Shingles(normalized string, k int) []string {
	words := strings.Fields(normalized)
	if len(words) == 0 {
		return nil
	}
	if k <= 0 {
		k = 1
	}
	if len(words) < k {
		return []string{strings.Join(words, " ")}
	}

	seen := make(map[string]struct{}, len(words)-k+1)
	out := make([]string, 0, len(words)-k+1)
	for i := 0; i+k <= len(words); i++ {
		sh := strings.Join(words[i:i+k], " ")
		if _, dup := seen[sh]; dup {
			continue
		}
		seen[sh] = struct{}{}
		out = append(out, sh)
	}
	return out
}
