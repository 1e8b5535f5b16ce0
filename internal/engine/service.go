package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var newAppointmentText = regexp.MustCompile(`(?i)^New Appointment$`)

// selectServiceType walks from the appointment options screen onto the
// customer details page, choosing the configured service. The site is
// fond of interstitial popups here, so every advance is wrapped in a
// dismissal pass and the whole thing retries a few times.
func (e *Engine) selectServiceType(ctx context.Context) error {
	e.emit(ctx, LevelInfo, "Selecting appointment service type", "")
	e.dismissDialogs(ctx)

	if !e.IsOnStep(ctx, StepServiceSelection) {
		for attempt := 1; attempt <= 3; attempt++ {
			if btn := e.findFirst(ctx, Query{Role: "button", Text: newAppointmentText}); btn != nil {
				if err := btn.Click(ctx, ClickOptions{Timeout: 5 * time.Second}); err == nil {
					e.emit(ctx, LevelInfo, "Clicked New Appointment", "")
				}
			}
			pause(ctx, 2*time.Second)
			e.dismissDialogs(ctx)
			if e.IsOnStep(ctx, StepServiceSelection) || e.IsOnStep(ctx, StepCustomerDetails) {
				break
			}
			e.emit(ctx, LevelWarning, fmt.Sprintf("Service list not visible yet (attempt %d)", attempt), "")
		}
	}

	if e.IsOnStep(ctx, StepCustomerDetails) {
		e.emit(ctx, LevelSuccess, "Already on customer details", "")
		return nil
	}

	if e.clickPreferredService(ctx) {
		pause(ctx, 2*time.Second)
		e.dismissDialogs(ctx)
		if e.IsOnStep(ctx, StepCustomerDetails) {
			e.emit(ctx, LevelSuccess, "Service selected", "")
			return nil
		}
		// Some service tiles need an explicit Next to advance.
		if e.clickNext(ctx) {
			pause(ctx, 2*time.Second)
			if e.IsOnStep(ctx, StepCustomerDetails) {
				e.emit(ctx, LevelSuccess, "Service selected", "")
				return nil
			}
		}
	}

	ss := e.failShot(ctx, "service_selection_error")
	e.emit(ctx, LevelError, "Could not select a service type", ss)
	return ErrServiceSelection
}

// clickPreferredService tries the configured service by exact name, then by
// keyword, then falls back to any plausible service tile.
func (e *Engine) clickPreferredService(ctx context.Context) bool {
	if name := e.cfg.PreferredService.Name; name != "" {
		pattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(name))
		if btn := e.findFirst(ctx, Query{Role: "button", Text: pattern}); btn != nil {
			if err := btn.Click(ctx, ClickOptions{Timeout: 5 * time.Second}); err == nil {
				e.emit(ctx, LevelInfo, fmt.Sprintf("Chose service %q", name), "")
				return true
			}
		}
	}

	keywords := e.cfg.ButtonKeywords
	if len(keywords) == 0 {
		keywords = defaultServiceKeywords
	}
	if e.clickButtonByText(ctx, keywords) {
		return true
	}

	// Last resort: any substantial button mentioning a license service,
	// skipping navigation controls.
	buttons, err := e.page.Find(ctx, Query{Role: "button"}, probeCap)
	if err != nil {
		return false
	}
	for _, btn := range buttons {
		text := strings.TrimSpace(btn.Text())
		lower := strings.ToLower(text)
		if len(text) <= 10 || strings.Contains(lower, "previous") {
			continue
		}
		if !containsAny(lower, []string{"dl", "license", "permit"}) {
			continue
		}
		if !btn.Visible() || !btn.Enabled() {
			continue
		}
		if err := btn.Click(ctx, ClickOptions{Timeout: 5 * time.Second}); err == nil {
			e.emit(ctx, LevelWarning, fmt.Sprintf("Fell back to service tile %q", truncate(text, 60)), "")
			return true
		}
	}
	return false
}
