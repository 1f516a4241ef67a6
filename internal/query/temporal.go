package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var temporalKeywords = []string{
	"latest", "recent", "current", "newest", "last", "most recent", "this year",
}

// HasTemporalCue reports whether the query asks for recent information
func HasTemporalCue(q string) bool {
	return countSubstr(temporalKeywords, strings.ToLower(q)) > 0
}

// EnhanceTemporal appends the current year, or a dated event hint, to a
// recency-seeking query. Queries that already name the current or
// previous year are returned unchanged.
func EnhanceTemporal(q string, now time.Time) string {
	lower := strings.ToLower(q)
	if !HasTemporalCue(q) {
		return q
	}

	year := now.Year()
	if strings.Contains(q, strconv.Itoa(year)) || strings.Contains(q, strconv.Itoa(year-1)) {
		return q
	}

	switch {
	case strings.Contains(lower, "oscar") || strings.Contains(lower, "academy award"):
		// The ceremony held in a given year is numbered from 1929
		return fmt.Sprintf("%s %d %s Academy Awards", q, year, ordinal(year-1928))
	case strings.Contains(lower, "nobel"):
		return fmt.Sprintf("%s %d Nobel Prize", q, year)
	case strings.Contains(lower, "election"):
		return fmt.Sprintf("%s %d election results", q, year)
	case strings.Contains(lower, "president") || strings.Contains(lower, "prime minister"):
		return fmt.Sprintf("%s %d current", q, year)
	default:
		return fmt.Sprintf("%s %d", q, year)
	}
}

func ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}
