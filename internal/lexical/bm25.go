// Package lexical implements Okapi BM25 scoring over a small in-memory
// corpus, built per request from the candidate set.
package lexical

import (
	"math"
	"strings"
)

const (
	DefaultK1      = 1.5
	DefaultB       = 0.75
	DefaultEpsilon = 0.25
)

// BM25 is an Okapi BM25 index. Terms whose idf would be negative (present
// in more than half the corpus) get epsilon times the average idf.
type BM25 struct {
	k1      float64
	b       float64
	docs    []map[string]int
	docLen  []int
	avgDL   float64
	idf     map[string]float64
	corpusN int
}

// Tokenize lowercases and splits on whitespace
func Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// New indexes the tokenized corpus with default parameters
func New(corpus [][]string) *BM25 {
	return NewWithParams(corpus, DefaultK1, DefaultB, DefaultEpsilon)
}

// NewWithParams indexes the tokenized corpus
func NewWithParams(corpus [][]string, k1, b, epsilon float64) *BM25 {
	idx := &BM25{
		k1:      k1,
		b:       b,
		docs:    make([]map[string]int, len(corpus)),
		docLen:  make([]int, len(corpus)),
		idf:     make(map[string]float64),
		corpusN: len(corpus),
	}

	df := make(map[string]int)
	total := 0
	for i, doc := range corpus {
		freqs := make(map[string]int, len(doc))
		for _, tok := range doc {
			freqs[tok]++
		}
		for tok := range freqs {
			df[tok]++
		}
		idx.docs[i] = freqs
		idx.docLen[i] = len(doc)
		total += len(doc)
	}
	if len(corpus) > 0 {
		idx.avgDL = float64(total) / float64(len(corpus))
	}

	// 1. Raw idf, collecting negatives
	idfSum := 0.0
	var negative []string
	n := float64(len(corpus))
	for tok, freq := range df {
		v := math.Log((n - float64(freq) + 0.5) / (float64(freq) + 0.5))
		idx.idf[tok] = v
		idfSum += v
		if v < 0 {
			negative = append(negative, tok)
		}
	}

	// 2. Floor negatives at epsilon * average idf
	if len(df) > 0 {
		floor := epsilon * idfSum / float64(len(df))
		for _, tok := range negative {
			idx.idf[tok] = floor
		}
	}
	return idx
}

// Scores returns the BM25 score of every document for the query tokens,
// in corpus order. Repeated query tokens count once per occurrence.
func (m *BM25) Scores(query []string) []float64 {
	scores := make([]float64, m.corpusN)
	if m.avgDL == 0 {
		return scores
	}
	for _, q := range query {
		idf, ok := m.idf[q]
		if !ok {
			continue
		}
		for i, freqs := range m.docs {
			tf := float64(freqs[q])
			if tf == 0 {
				continue
			}
			norm := m.k1 * (1 - m.b + m.b*float64(m.docLen[i])/m.avgDL)
			scores[i] += idf * (tf * (m.k1 + 1)) / (tf + norm)
		}
	}
	return scores
}
