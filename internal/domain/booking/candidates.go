package booking

import (
	"fmt"
	"regexp"
	"sort"
	"time"
)

// maxCandidates caps the dates one booking attempt may cycle through.
const maxCandidates = 20

// Patterns for recognizing date text on appointment cards.
var (
	WeekdayPattern  = regexp.MustCompile(`(?i)\b(Monday|Tuesday|Wednesday|Thursday|Friday|Saturday|Sunday)\b`)
	DatePattern     = regexp.MustCompile(`\b(\d{1,2}/\d{1,2}(?:/\d{4})?)\b`)
	FullDatePattern = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`)
)

// CandidateDates builds the ordered list of dates a booking attempt should
// try: the target date first, then the remaining available dates in their
// given order, deduplicated and capped.
func CandidateDates(target string, available []string) []string {
	var out []string
	seen := map[string]bool{}
	if target != "" {
		out = append(out, target)
		seen[target] = true
	}
	for _, d := range available {
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	if len(out) > maxCandidates {
		out = out[:maxCandidates]
	}
	return out
}

// DateVariants generates the text forms a date card may carry in the wizard:
// the literal string plus padded/unpadded month-day-year and month-day forms.
func DateVariants(dateText string) []string {
	var variants []string
	if dateText != "" {
		variants = append(variants, dateText)
	}
	if dt, err := time.Parse("1/2/2006", dateText); err == nil {
		variants = append(variants,
			fmt.Sprintf("%d/%d/%d", dt.Month(), dt.Day(), dt.Year()),
			fmt.Sprintf("%02d/%02d/%d", dt.Month(), dt.Day(), dt.Year()),
			fmt.Sprintf("%d/%d", dt.Month(), dt.Day()),
			fmt.Sprintf("%02d/%02d", dt.Month(), dt.Day()),
		)
	}

	seen := map[string]bool{}
	unique := variants[:0]
	for _, v := range variants {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		unique = append(unique, v)
	}
	return unique
}

// Weekday returns the weekday name for an MM/DD/YYYY date, or "" when the
// date does not parse.
func Weekday(dateText string) string {
	dt, err := time.Parse("1/2/2006", dateText)
	if err != nil {
		return ""
	}
	return dt.Weekday().String()
}

// SortDatesAscending orders MM/DD/YYYY strings by calendar date. Unparseable
// entries sort to the end, keeping their relative order.
func SortDatesAscending(dates []string) []string {
	out := make([]string, len(dates))
	copy(out, dates)
	sort.SliceStable(out, func(i, j int) bool {
		ti, erri := time.Parse("1/2/2006", out[i])
		tj, errj := time.Parse("1/2/2006", out[j])
		if erri != nil || errj != nil {
			return errj != nil && erri == nil
		}
		return ti.Before(tj)
	})
	return out
}
