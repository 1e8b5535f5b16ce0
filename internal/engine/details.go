package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	nextButtonText = regexp.MustCompile(`(?i)\bNext\b`)
	nonDigits      = regexp.MustCompile(`\D`)
)

// detailField is one input on the customer details page.
type detailField struct {
	name    string
	value   func(e *Engine) string
	queries func() []Query
}

var detailFields = []detailField{
	{
		name:  "Cell Phone",
		value: func(e *Engine) string { return e.cfg.Profile.Phone },
		queries: func() []Query {
			return []Query{
				{Selector: "input[aria-label*='cell phone' i]"},
				{Selector: "input[id*='phone' i], input[name*='phone' i]"},
			}
		},
	},
	{
		name:  "Email",
		value: func(e *Engine) string { return e.cfg.Profile.Email },
		queries: func() []Query {
			return []Query{
				{Selector: "input[aria-label='Email' i]"},
				{Selector: "input[type='email']:not([aria-label*='verify' i])"},
			}
		},
	},
	{
		name:  "Verify Email",
		value: func(e *Engine) string { return e.cfg.Profile.Email },
		queries: func() []Query {
			return []Query{
				{Selector: "input[aria-label*='verify email' i]"},
				{Selector: "input[id*='verify' i], input[name*='verify' i]"},
			}
		},
	},
}

// fillCustomerDetails completes the contact block. Fields the site carried
// over from login arrive pre-filled and are left alone; placeholder masks
// like "###-###-####" do not count as filled.
func (e *Engine) fillCustomerDetails(ctx context.Context) {
	e.emit(ctx, LevelInfo, "Filling customer details", "")
	pause(ctx, 2*time.Second)

	for _, f := range detailFields {
		value := f.value(e)
		if value == "" {
			continue
		}
		input := e.findFirst(ctx, f.queries()...)
		if input == nil {
			e.emit(ctx, LevelWarning, fmt.Sprintf("%s field not found", f.name), "")
			continue
		}
		current := strings.TrimSpace(input.InputValue())
		if current != "" && !strings.Contains(current, "#") {
			continue
		}
		if err := e.fillAndCommit(ctx, input, value, 35*time.Millisecond); err != nil {
			e.emit(ctx, LevelWarning, fmt.Sprintf("Error filling %s: %v", f.name, err), "")
			continue
		}
		e.emit(ctx, LevelInfo, fmt.Sprintf("Filled %s", f.name), "")
	}
}

// searchLocation enters the ZIP code and advances to the location results.
// The Next button stays disabled until the form validates, so we poll it
// rather than click blind.
func (e *Engine) searchLocation(ctx context.Context) error {
	e.fillCustomerDetails(ctx)

	zip := nonDigits.ReplaceAllString(e.cfg.Profile.ZIPCode, "")
	if len(zip) > 5 {
		zip = zip[:5]
	}
	if zip == "" {
		zip = "76201"
	}

	e.emit(ctx, LevelInfo, fmt.Sprintf("Searching locations near %s", zip), "")

	input := e.findFirst(ctx, Query{Selector: zipSelector})
	if input == nil {
		ss := e.failShot(ctx, "zip_error")
		e.emit(ctx, LevelError, "ZIP code field not found", ss)
		return fmt.Errorf("%w: zip input", ErrElementNotFound)
	}
	if err := e.fillAndCommit(ctx, input, zip, 40*time.Millisecond); err != nil {
		return fmt.Errorf("filling zip code: %w", err)
	}
	pause(ctx, 1*time.Second)

	next := e.findFirst(ctx, Query{Role: "button", Text: nextButtonText})
	if next == nil {
		ss := e.failShot(ctx, "zip_error")
		e.emit(ctx, LevelError, "Next button not found after ZIP entry", ss)
		return fmt.Errorf("%w: next button", ErrElementNotFound)
	}

	enabled := false
	for i := 0; i < 10; i++ {
		if next.Enabled() && !strings.EqualFold(next.Attr("aria-disabled"), "true") {
			enabled = true
			break
		}
		pause(ctx, 300*time.Millisecond)
	}
	if !enabled {
		e.emit(ctx, LevelWarning, "Next button never enabled, clicking anyway", "")
	}

	if err := next.Click(ctx, ClickOptions{Timeout: 5 * time.Second}); err != nil {
		if _, jsErr := next.Eval(ctx, "el => el.click()"); jsErr != nil {
			ss := e.failShot(ctx, "zip_error")
			e.emit(ctx, LevelError, "Could not advance past ZIP search", ss)
			return fmt.Errorf("%w: location search", ErrNavigationTimeout)
		}
	}

	if err := e.page.WaitSettled(ctx, 20*time.Second); err != nil {
		return fmt.Errorf("%w: location results", ErrNavigationTimeout)
	}
	pause(ctx, 2*time.Second)
	e.emit(ctx, LevelSuccess, "Location search submitted", "")
	return nil
}

// fillAndCommit types a value then fires the events the page's framework
// listens for, ending with Tab so validation runs.
func (e *Engine) fillAndCommit(ctx context.Context, el Element, value string, delay time.Duration) error {
	if err := el.Click(ctx, ClickOptions{Timeout: 3 * time.Second}); err != nil {
		return err
	}
	if err := el.Fill(ctx, ""); err != nil {
		return err
	}
	if err := el.TypeSlowly(ctx, value, delay); err != nil {
		return err
	}
	_, _ = el.Eval(ctx, `el => {
		el.dispatchEvent(new Event('input', {bubbles: true}));
		el.dispatchEvent(new Event('change', {bubbles: true}));
		el.blur();
	}`)
	_ = e.page.Press(ctx, "Tab")
	return nil
}
