package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnhanceTemporal(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"no cue", "What is Go?", "What is Go?"},
		{"plain year", "latest Go release", "latest Go release 2026"},
		{"academy awards", "Who won the latest Oscar?", "Who won the latest Oscar? 2026 98th Academy Awards"},
		{"nobel", "most recent nobel physics laureate", "most recent nobel physics laureate 2026 Nobel Prize"},
		{"election", "recent election in France", "recent election in France 2026 election results"},
		{"head of government", "current prime minister of Japan", "current prime minister of Japan 2026 current"},
		{"has current year", "latest news 2026", "latest news 2026"},
		{"has previous year", "latest iPhone 2025", "latest iPhone 2025"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EnhanceTemporal(tt.query, now))
		})
	}
}

func TestHasTemporalCue(t *testing.T) {
	assert.True(t, HasTemporalCue("What happened THIS YEAR in AI"))
	assert.True(t, HasTemporalCue("newest GPU"))
	assert.False(t, HasTemporalCue("define entropy"))
}

func TestOrdinal(t *testing.T) {
	tests := map[int]string{
		1: "1st", 2: "2nd", 3: "3rd", 4: "4th",
		11: "11th", 12: "12th", 13: "13th",
		21: "21st", 22: "22nd", 98: "98th",
		101: "101st", 111: "111th",
	}
	for n, want := range tests {
		assert.Equal(t, want, ordinal(n))
	}
}
