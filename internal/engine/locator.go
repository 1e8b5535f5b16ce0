package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// probeCap bounds how many candidates a single strategy inspects, keeping
// lookup cost flat on pages with hundreds of elements.
const probeCap = 30

// findFirst runs the ordered lookup strategies and returns the first
// visible, enabled match. A nil return means not found; the caller decides
// whether that is fatal.
func (e *Engine) findFirst(ctx context.Context, queries ...Query) Element {
	for _, q := range queries {
		els, err := e.page.Find(ctx, q, probeCap)
		if err != nil {
			continue
		}
		for _, el := range els {
			if el.Visible() && el.Enabled() {
				return el
			}
		}
	}
	return nil
}

// dismissPatterns is the vocabulary of buttons that close transient
// overlays. Such overlays intercept clicks, so executors dismiss before and
// after interacting.
var dismissPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^ok$`),
	regexp.MustCompile(`(?i)^okay$`),
	regexp.MustCompile(`(?i)^close$`),
	regexp.MustCompile(`(?i)^got it$`),
	regexp.MustCompile(`(?i)^continue$`),
	regexp.MustCompile(`(?i)^accept$`),
	regexp.MustCompile(`(?i)^i understand$`),
	regexp.MustCompile(`(?i)^proceed$`),
}

var dialogDismiss = regexp.MustCompile(`(?i)ok|close|continue|accept`)

// dismissDialogs clears any blocking popup and reports whether something
// was dismissed.
func (e *Engine) dismissDialogs(ctx context.Context) bool {
	dismissed := false

	for _, pattern := range dismissPatterns {
		els, err := e.page.Find(ctx, Query{Role: "button", Text: pattern}, 4)
		if err != nil {
			continue
		}
		for _, btn := range els {
			if !btn.Visible() {
				continue
			}
			if err := btn.Click(ctx, ClickOptions{Timeout: 2 * time.Second}); err != nil {
				continue
			}
			pause(ctx, 300*time.Millisecond)
			dismissed = true
		}
	}

	// Dialog containers whose dismiss button carries nonstandard casing.
	els, err := e.page.Find(ctx, Query{
		Selector: "[role='dialog'] button, .modal button, .MuiDialog-root button, .cdk-overlay-container button",
		Text:     dialogDismiss,
	}, 5)
	if err == nil {
		for _, btn := range els {
			if !btn.Visible() {
				continue
			}
			if err := btn.Click(ctx, ClickOptions{Timeout: 2 * time.Second}); err == nil {
				pause(ctx, 300*time.Millisecond)
				dismissed = true
			}
		}
	}

	if dismissed {
		e.emit(ctx, LevelInfo, "Dismissed blocking popup/dialog", "")
	}
	return dismissed
}

// clickButtonByText clicks the first button whose text contains any of the
// keywords (case-insensitive), using a script-dispatched click first and a
// forced click as fallback. Returns whether a click landed.
func (e *Engine) clickButtonByText(ctx context.Context, keywords []string) bool {
	els, err := e.page.Find(ctx, Query{Selector: "button"}, probeCap)
	if err != nil {
		return false
	}
	for _, btn := range els {
		text := strings.ToLower(strings.TrimSpace(btn.Text()))
		if text == "" || !containsAny(text, keywords) {
			continue
		}
		e.emit(ctx, LevelInfo, fmt.Sprintf("Clicking button: %s", truncate(text, 80)), "")
		if _, err := btn.Eval(ctx, "el => el.click()"); err != nil {
			if err := btn.Click(ctx, ClickOptions{Timeout: 5 * time.Second, Force: true}); err != nil {
				continue
			}
		}
		return true
	}
	return false
}

var (
	nextExact    = regexp.MustCompile(`(?i)^Next$`)
	nextLoose    = regexp.MustCompile(`(?i)\bNext\b`)
	previousText = regexp.MustCompile(`(?i)\bprevious\b`)
)

// clickNext advances the wizard. The control is tolerated in "NEXT ->"
// style variants.
func (e *Engine) clickNext(ctx context.Context) bool {
	strategies := []Query{
		{Role: "button", Text: nextExact},
		{Selector: "button", Text: nextExact},
	}
	for _, q := range strategies {
		els, err := e.page.Find(ctx, q, 5)
		if err != nil {
			continue
		}
		for _, btn := range els {
			if !btn.Visible() || !btn.Enabled() {
				continue
			}
			if err := btn.Click(ctx, ClickOptions{Timeout: 5 * time.Second}); err == nil {
				return true
			}
		}
	}
	return e.clickButtonByText(ctx, []string{"next"})
}

// clickPrevious steps the wizard back one page.
func (e *Engine) clickPrevious(ctx context.Context) bool {
	strategies := []Query{
		{Role: "button", Text: previousText},
		{Selector: "button, [role='button'], a", Text: previousText},
	}
	for _, q := range strategies {
		els, err := e.page.Find(ctx, q, 5)
		if err != nil {
			continue
		}
		for _, btn := range els {
			if !btn.Visible() {
				continue
			}
			if err := btn.Click(ctx, ClickOptions{Timeout: 5 * time.Second}); err == nil {
				return true
			}
		}
	}
	return e.clickButtonByText(ctx, []string{"previous", "<- previous"})
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
