package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/example/dps-agent/internal/domain/booking"
)

const maxTimeSlotProbes = 15

var (
	timePattern        = regexp.MustCompile(`\d{1,2}\s*:\s*\d{2}\s*(AM|PM|am|pm)`)
	partialTimePattern = regexp.MustCompile(`:\d{2}\s*[AP]M`)
	confirmButtonText  = regexp.MustCompile(`(?i)^Confirm$`)
)

var confirmationPhrases = []string{
	"confirmation number",
	"your appointment has been confirmed",
	"appointment has been confirmed",
	"has been confirmed",
}

// autoBookSlot attempts to book the target date, backtracking to the next
// candidate when a date turns out to have no usable time slots. It returns
// true only when the site shows a confirmation; a confirm click whose
// outcome cannot be verified is a hard failure, because retrying after an
// ambiguous confirm risks a double booking.
func (e *Engine) autoBookSlot(ctx context.Context, target string, available []string) (bool, error) {
	candidates := booking.CandidateDates(target, available)
	if len(candidates) == 0 {
		return false, nil
	}
	e.emit(ctx, LevelInfo, fmt.Sprintf("Attempting to book, %d candidate dates", len(candidates)), "")

	for i, date := range candidates {
		if i > 0 {
			// Back out of a dead-end date before trying the next one.
			if e.onTimeOrConfirmStep(ctx) {
				e.clickPrevious(ctx)
				pause(ctx, 2*time.Second)
			}
			e.emit(ctx, LevelInfo, fmt.Sprintf("Trying alternate date %s", date), "")
		}

		if !e.clickDateOnPage(ctx, date) {
			e.emit(ctx, LevelWarning, fmt.Sprintf("Could not select date %s", date), "")
			continue
		}
		pause(ctx, 1*time.Second)

		if !e.clickNext(ctx) {
			continue
		}
		pause(ctx, 2*time.Second)
		if !e.IsOnStep(ctx, StepTimeSelect) {
			e.emit(ctx, LevelWarning, fmt.Sprintf("Date %s did not open a time list", date), "")
			continue
		}

		if !e.findAndClickTimeSlot(ctx) {
			e.emit(ctx, LevelWarning, fmt.Sprintf("No time slots on %s", date), "")
			continue
		}
		pause(ctx, 1*time.Second)

		if !e.clickNext(ctx) {
			continue
		}
		pause(ctx, 2*time.Second)
		if !e.IsOnStep(ctx, StepConfirm) {
			e.emit(ctx, LevelWarning, "Time selection did not reach the confirm screen", "")
			continue
		}

		return e.confirmBooking(ctx, date)
	}

	ss := e.failShot(ctx, "slots_exhausted")
	e.emit(ctx, LevelWarning, ErrSlotExhausted.Error(), ss)
	return false, nil
}

// confirmBooking clicks the final Confirm control and verifies the outcome
// from the page content.
func (e *Engine) confirmBooking(ctx context.Context, date string) (bool, error) {
	e.emit(ctx, LevelInfo, fmt.Sprintf("Confirming appointment on %s", date), "")

	clicked := false
	if btn := e.findFirst(ctx, Query{Role: "button", Text: confirmButtonText}); btn != nil {
		if err := btn.Click(ctx, ClickOptions{Timeout: 5 * time.Second}); err == nil {
			clicked = true
		}
	}
	if !clicked {
		clicked = e.clickButtonByText(ctx, []string{"confirm", "book", "schedule", "submit"})
	}
	if !clicked {
		ss := e.failShot(ctx, "confirm_error")
		e.emit(ctx, LevelError, "Confirm button not found", ss)
		return false, fmt.Errorf("%w: confirm button", ErrElementNotFound)
	}

	pause(ctx, 3*time.Second)
	_ = e.page.WaitSettled(ctx, 10*time.Second)

	ss, _ := e.page.Screenshot(ctx, "booking_confirmation")

	content, err := e.page.Content(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrConfirmationNotDetected, err)
	}
	lower := strings.ToLower(content)
	for _, phrase := range confirmationPhrases {
		if strings.Contains(lower, phrase) {
			e.emit(ctx, LevelSuccess, fmt.Sprintf("Appointment confirmed for %s", date), ss)
			return true, nil
		}
	}

	e.emit(ctx, LevelError, "Clicked confirm but no confirmation text detected", ss)
	return false, ErrConfirmationNotDetected
}

// clickDateOnPage finds and clicks the card for a specific date, trying
// progressively looser locator strategies.
func (e *Engine) clickDateOnPage(ctx context.Context, date string) bool {
	variants := booking.DateVariants(date)

	// Tiles that carry the date, excluding the Next Available Date banner
	// which duplicates the first real tile.
	for _, v := range variants {
		pattern, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(v) + `\b`)
		if err != nil {
			continue
		}
		buttons, err := e.page.Find(ctx, Query{Role: "button", Text: pattern}, 10)
		if err != nil {
			continue
		}
		for _, btn := range buttons {
			if !btn.Visible() || !btn.Enabled() {
				continue
			}
			banner, _ := btn.Eval(ctx, `el => el.closest("div") && el.closest("div").textContent.includes("Next Available Date") ? "banner" : ""`)
			if banner == "banner" {
				continue
			}
			if err := btn.Click(ctx, ClickOptions{Timeout: 5 * time.Second}); err == nil {
				return true
			}
		}
	}

	// Date list scoped under its section heading.
	if section := e.findFirst(ctx, Query{Selector: "section, div", Text: regexp.MustCompile(`Select from the available dates`)}); section != nil {
		for _, v := range variants {
			if _, err := section.Eval(ctx, fmt.Sprintf(`el => {
				const want = %q;
				for (const b of el.querySelectorAll("button, [role='button']")) {
					if (b.textContent.includes(want)) { b.click(); return "ok"; }
				}
				throw new Error("not found");
			}`, v)); err == nil {
				return true
			}
		}
	}

	// Exact text match anywhere on the page.
	for _, v := range variants {
		if btn := e.findFirst(ctx, Query{Text: regexp.MustCompile(`^` + regexp.QuoteMeta(v) + `$`), Exact: true}); btn != nil {
			if err := btn.Click(ctx, ClickOptions{Timeout: 5 * time.Second}); err == nil {
				return true
			}
		}
	}

	// Weekday plus date, the full card label.
	if wd := booking.Weekday(date); wd != "" {
		buttons, err := e.page.Find(ctx, Query{Selector: "button, [role='button']"}, probeCap)
		if err == nil {
			for _, btn := range buttons {
				text := btn.Text()
				if !strings.Contains(text, wd) {
					continue
				}
				if !containsAny(text, variants) {
					continue
				}
				if err := btn.Click(ctx, ClickOptions{Timeout: 5 * time.Second, Force: true}); err == nil {
					return true
				}
			}
		}
	}
	return false
}

// findAndClickTimeSlot clicks the first selectable time on the current
// date. Buttons whose text embeds a full date are date cards leaking into
// the probe, not times.
func (e *Engine) findAndClickTimeSlot(ctx context.Context) bool {
	buttons, err := e.page.Find(ctx, Query{Selector: "button, [role='button']"}, probeCap)
	if err != nil {
		return false
	}

	probed := 0
	for _, btn := range buttons {
		if probed >= maxTimeSlotProbes {
			break
		}
		text := strings.TrimSpace(btn.Text())
		if text == "" || len(text) > 30 {
			continue
		}
		if booking.FullDatePattern.MatchString(text) {
			continue
		}
		if !timePattern.MatchString(text) && !partialTimePattern.MatchString(text) {
			continue
		}
		probed++
		if !btn.Visible() || !btn.Enabled() {
			continue
		}
		if err := btn.Click(ctx, ClickOptions{Timeout: 5 * time.Second}); err != nil {
			if _, jsErr := btn.Eval(ctx, "el => el.click()"); jsErr != nil {
				continue
			}
		}
		e.emit(ctx, LevelInfo, fmt.Sprintf("Selected time slot %s", text), "")
		return true
	}
	return false
}
