package search

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	monthDayYear = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{1,2}),?\s+(\d{4})\b`)
	dayMonthYear = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{4})\b`)
	isoDate      = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	bareYear     = regexp.MustCompile(`\b(202[3-9]|203[0-9])\b`)
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// ExtractDate finds the first recognizable publication date in text and
// returns it as YYYY-MM-DD. Formats are tried in order: "Mar 3, 2025",
// "3 March 2025", ISO "2025-03-03", then a bare year 2023-2039 which maps
// to January 1st. Returns "" when nothing matches.
func ExtractDate(text string) string {
	if text == "" {
		return ""
	}

	if m := monthDayYear.FindStringSubmatch(text); m != nil {
		if d, ok := buildDate(m[3], months[strings.ToLower(m[1])], m[2]); ok {
			return d
		}
	}
	if m := dayMonthYear.FindStringSubmatch(text); m != nil {
		if d, ok := buildDate(m[3], months[strings.ToLower(m[2])], m[1]); ok {
			return d
		}
	}
	if m := isoDate.FindString(text); m != "" {
		return m
	}
	if m := bareYear.FindString(text); m != "" {
		return m + "-01-01"
	}
	return ""
}

// buildDate rejects days that do not exist in the month
func buildDate(yearStr string, month time.Month, dayStr string) (string, bool) {
	year, err1 := strconv.Atoi(yearStr)
	day, err2 := strconv.Atoi(dayStr)
	if err1 != nil || err2 != nil || month == 0 || day < 1 {
		return "", false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, int(month), day), true
}
