package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/dps-agent/internal/domain/booking"
)

const maxReportedDates = 15

var cityKeywords = []string{
	"denton", "arlington", "dallas", "houston", "austin", "fort worth",
	"san antonio", "plano", "mckinney", "lewisville", "carrollton",
}

// discoverSlots reads the location results page and reports what is
// available. A nil result with nil error means the search worked but
// nothing is bookable right now.
func (e *Engine) discoverSlots(ctx context.Context) (*booking.RunResult, error) {
	pause(ctx, 2*time.Second)
	e.dismissDialogs(ctx)

	body, err := e.page.BodyText(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading results page: %w", err)
	}
	lower := strings.ToLower(body)

	location := ""
	for _, city := range cityKeywords {
		if strings.Contains(lower, city) {
			location = titleCase(city)
			break
		}
	}

	dates := e.extractDateCards(ctx)
	if len(dates) == 0 {
		dates = e.extractDatesFromContent(ctx)
	}
	dates = booking.SortDatesAscending(dates)
	if len(dates) > maxReportedDates {
		dates = dates[:maxReportedDates]
	}

	// A page that names the city but offers no date tiles is still a
	// no-availability outcome, not a find.
	if len(dates) == 0 {
		e.emit(ctx, LevelInfo, "No appointment dates found on page", "")
		return nil, nil
	}

	if location == "" {
		location = e.cfg.Profile.LocationPreference
	}
	if location == "" {
		location = "Unknown"
	}

	res := &booking.RunResult{
		Location:       location,
		ZIPCode:        e.cfg.Profile.ZIPCode,
		NextAvailable:  dates[0],
		AvailableDates: dates,
		TotalSlots:     len(dates),
		CheckedAt:      time.Now(),
	}
	e.emit(ctx, LevelSuccess, fmt.Sprintf("Found %d available dates at %s, next %s", len(dates), location, res.NextAvailable), "")
	return res, nil
}

// extractDateCards pulls dates from the clickable date tiles. Tiles carry a
// weekday and a short date; the "Next Available Date" banner duplicates the
// first tile and is skipped.
func (e *Engine) extractDateCards(ctx context.Context) []string {
	buttons, err := e.page.Find(ctx, Query{Selector: "button, [role='button']"}, probeCap)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var dates []string
	for _, btn := range buttons {
		text := strings.TrimSpace(btn.Text())
		if text == "" || !btn.Visible() {
			continue
		}
		if !booking.WeekdayPattern.MatchString(text) {
			continue
		}
		if strings.Contains(text, "Next Available Date") {
			continue
		}
		m := booking.DatePattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		date := m[1]
		// A month/day pair with no year is ambiguous; skip it.
		if strings.Count(date, "/") < 2 {
			continue
		}
		if !seen[date] {
			seen[date] = true
			dates = append(dates, date)
		}
	}
	return dates
}

// extractDatesFromContent is the fallback when no tiles match: scrape full
// dates out of the raw page source.
func (e *Engine) extractDatesFromContent(ctx context.Context) []string {
	content, err := e.page.Content(ctx)
	if err != nil {
		return nil
	}
	seen := make(map[string]bool)
	var dates []string
	for _, m := range booking.FullDatePattern.FindAllString(content, -1) {
		if !seen[m] {
			seen[m] = true
			dates = append(dates, m)
		}
	}
	return dates
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
