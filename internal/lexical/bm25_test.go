package lexical

import (
	"math"
	"testing"
)

func TestTokenize(t *testing.T) {
	got := Tokenize("  The Quick\tBROWN fox ")
	want := []string{"the", "quick", "brown", "fox"}
	if len(got) != len(want) {
		t.Fatalf("Tokenize() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBM25_Scores(t *testing.T) {
	corpus := [][]string{
		Tokenize("go is a programming language"),
		Tokenize("rust is a systems language"),
		Tokenize("python snakes live in jungles"),
	}
	idx := New(corpus)

	scores := idx.Scores(Tokenize("programming language"))
	if len(scores) != 3 {
		t.Fatalf("len(scores) = %d, want 3", len(scores))
	}

	// "programming": df=1, idf=ln(2.5/1.5); doc0 length 5, avgdl 5
	wantProgramming := math.Log(2.5/1.5) * (1 * 2.5) / (1 + 1.5)
	// "language": df=2, idf=ln(1.5/2.5) < 0, floored to epsilon * average idf
	if scores[0] <= scores[1] {
		t.Errorf("doc with both terms (%v) should outrank doc with one (%v)", scores[0], scores[1])
	}
	if scores[2] != 0 {
		t.Errorf("unrelated doc score = %v, want 0", scores[2])
	}
	if scores[0]-scores[1] < wantProgramming-1e-9 {
		t.Errorf("score gap = %v, want at least %v", scores[0]-scores[1], wantProgramming)
	}
}

func TestBM25_NegativeIdfFloored(t *testing.T) {
	corpus := [][]string{
		{"common", "alpha"},
		{"common", "beta"},
		{"common", "gamma"},
		{"delta"},
	}
	idx := New(corpus)

	for i, s := range idx.Scores([]string{"common"}) {
		if s < 0 {
			t.Errorf("doc %d score = %v, want non-negative", i, s)
		}
	}
}

func TestBM25_Empty(t *testing.T) {
	tests := []struct {
		name   string
		corpus [][]string
		query  []string
		want   int
	}{
		{"no docs", nil, []string{"x"}, 0},
		{"empty docs", [][]string{{}, {}}, []string{"x"}, 2},
		{"empty query", [][]string{{"a"}}, nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scores := New(tt.corpus).Scores(tt.query)
			if len(scores) != tt.want {
				t.Fatalf("len(scores) = %d, want %d", len(scores), tt.want)
			}
			for _, s := range scores {
				if s != 0 {
					t.Errorf("score = %v, want 0", s)
				}
			}
		})
	}
}

func TestBM25_UnknownTerm(t *testing.T) {
	idx := New([][]string{{"a", "b"}, {"c"}})
	for _, s := range idx.Scores([]string{"zzz"}) {
		if s != 0 {
			t.Errorf("score = %v, want 0", s)
		}
	}
}
