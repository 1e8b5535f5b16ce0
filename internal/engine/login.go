package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var englishButton = regexp.MustCompile(`(?i)^ENGLISH$`)

// navigate opens the scheduler and picks the English flow. A navigation
// timeout aborts the run; nothing downstream can recover from it.
func (e *Engine) navigate(ctx context.Context) error {
	e.emit(ctx, LevelInfo, fmt.Sprintf("Navigating to %s", e.cfg.BaseURL), "")

	if err := e.page.Navigate(ctx, e.cfg.BaseURL); err != nil {
		ss := e.failShot(ctx, "navigation_timeout")
		e.emit(ctx, LevelError, "Timeout navigating to scheduler", ss)
		return fmt.Errorf("%w: %v", ErrNavigationTimeout, err)
	}

	deadline := time.Now().Add(10 * time.Second)
	for {
		if btn := e.findFirst(ctx, Query{Role: "button", Text: englishButton}); btn != nil {
			if err := btn.Click(ctx, ClickOptions{Timeout: 5 * time.Second}); err == nil {
				e.emit(ctx, LevelSuccess, "Selected English language", "")
				break
			}
		}
		if time.Now().After(deadline) {
			ss := e.failShot(ctx, "navigation_timeout")
			e.emit(ctx, LevelError, "Language selection never appeared", ss)
			return fmt.Errorf("%w: language selection", ErrNavigationTimeout)
		}
		pause(ctx, 500*time.Millisecond)
	}

	_ = e.page.WaitSettled(ctx, 15*time.Second)
	return nil
}

// loginField binds one semantic profile value to the label/name/placeholder
// keywords that identify its input.
type loginField struct {
	name  string
	value func(e *Engine) string
	match func(label, name, placeholder string) bool
}

// Order matters: ID/SSN keywords are checked before the generic "last" so
// "Last 4 of SSN" never binds to Last Name.
var loginFields = []loginField{
	{
		name:  "SSN Last 4",
		value: func(e *Engine) string { return e.cfg.Profile.SSNLast4 },
		match: func(label, name, _ string) bool {
			return strings.Contains(label, "last four") || strings.Contains(label, "last 4") || strings.Contains(label, "ssn")
		},
	},
	{
		name:  "First Name",
		value: func(e *Engine) string { return e.cfg.Profile.FirstName },
		match: func(label, name, _ string) bool {
			return strings.Contains(label, "first") || strings.Contains(name, "first")
		},
	},
	{
		name:  "Last Name",
		value: func(e *Engine) string { return e.cfg.Profile.LastName },
		match: func(label, name, _ string) bool {
			return strings.Contains(label, "last") || strings.Contains(name, "last")
		},
	},
	{
		name:  "Date of Birth",
		value: func(e *Engine) string { return e.cfg.Profile.DOB },
		match: func(label, _, placeholder string) bool {
			return strings.Contains(label, "date") || strings.Contains(label, "birth") ||
				strings.Contains(label, "dob") || strings.Contains(placeholder, "mm/dd/yyyy")
		},
	},
}

// fillLoginForm types the applicant identity into whatever inputs the login
// page happens to render, selects email as the contact method, then fills
// the email fields that selection reveals and submits. A field the scan
// cannot bind is logged, not fatal; only a missing form aborts.
func (e *Engine) fillLoginForm(ctx context.Context) error {
	e.emit(ctx, LevelInfo, "Filling login form", "")
	pause(ctx, 3*time.Second)

	inputs, err := e.waitForInputs(ctx, 30*time.Second)
	if err != nil {
		ss := e.failShot(ctx, "login_timeout")
		e.emit(ctx, LevelError, "Timeout waiting for login form", ss)
		return fmt.Errorf("%w: login form", ErrElementNotFound)
	}
	pause(ctx, 2*time.Second)

	filled := 0
	for _, input := range inputs {
		typ := strings.ToLower(input.Attr("type"))
		if typ == "radio" || typ == "checkbox" || typ == "hidden" {
			continue
		}
		if strings.TrimSpace(input.InputValue()) != "" {
			continue
		}

		label := strings.ToLower(input.Attr("aria-label") + " " + input.Attr("data-label"))
		name := strings.ToLower(input.Attr("name") + " " + input.Attr("id"))
		placeholder := strings.ToLower(input.Attr("placeholder"))

		for _, f := range loginFields {
			if !f.match(label, name, placeholder) {
				continue
			}
			value := f.value(e)
			if value == "" {
				break
			}
			if err := e.typeInto(ctx, input, value); err != nil {
				e.emit(ctx, LevelWarning, fmt.Sprintf("Error filling %s: %v", f.name, err), "")
				break
			}
			filled++
			e.emit(ctx, LevelInfo, fmt.Sprintf("Filled %s", f.name), "")
			break
		}
	}

	e.selectEmailContact(ctx)
	filled += e.fillEmailFields(ctx)

	e.emit(ctx, LevelSuccess, fmt.Sprintf("Login form filled (%d fields)", filled), "")

	if !e.clickButtonByText(ctx, []string{"log on", "submit", "continue", "next"}) {
		ss := e.failShot(ctx, "login_error")
		e.emit(ctx, LevelError, "Could not find a submit control on the login page", ss)
		return fmt.Errorf("%w: login submit", ErrElementNotFound)
	}
	e.emit(ctx, LevelInfo, "Submitted login form", "")

	pause(ctx, 3*time.Second)
	_ = e.page.WaitSettled(ctx, 5*time.Second)
	return nil
}

// selectEmailContact picks the email radio so the passcode goes to the
// mailbox the retriever watches.
func (e *Engine) selectEmailContact(ctx context.Context) {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		els, err := e.page.Find(ctx, Query{Selector: "input[type='radio'][value='email']"}, 1)
		if err == nil && len(els) > 0 {
			radio := els[0]
			if strings.EqualFold(radio.Attr("aria-checked"), "false") {
				if _, err := radio.Eval(ctx, "el => el.click()"); err == nil {
					e.emit(ctx, LevelInfo, "Selected Email contact method", "")
					pause(ctx, 2*time.Second)
				}
			}
			return
		}
		pause(ctx, 500*time.Millisecond)
	}
	e.emit(ctx, LevelWarning, "Email contact radio not found", "")
}

// fillEmailFields rescans for the Email / Verify Email inputs that only
// render after the contact method is chosen.
func (e *Engine) fillEmailFields(ctx context.Context) int {
	email := e.cfg.Profile.Email
	if email == "" {
		return 0
	}

	inputs, err := e.page.Find(ctx, Query{Selector: "input"}, probeCap)
	if err != nil {
		return 0
	}

	filled := 0
	for _, input := range inputs {
		typ := strings.ToLower(input.Attr("type"))
		switch typ {
		case "radio", "checkbox", "hidden", "number", "tel":
			continue
		}
		if strings.TrimSpace(input.InputValue()) != "" {
			continue
		}
		label := strings.ToLower(input.Attr("aria-label") + " " + input.Attr("data-label") + " " + input.Attr("name") + " " + input.Attr("id"))

		var fieldName string
		switch {
		case strings.Contains(label, "verify") && strings.Contains(label, "email"):
			fieldName = "Verify Email"
		case strings.Contains(label, "email"):
			fieldName = "Email"
		default:
			continue
		}

		if err := e.typeInto(ctx, input, email); err != nil {
			e.emit(ctx, LevelWarning, fmt.Sprintf("Error filling %s: %v", fieldName, err), "")
			continue
		}
		filled++
		e.emit(ctx, LevelInfo, fmt.Sprintf("Filled %s", fieldName), "")
	}
	return filled
}

// typeInto clears the field and types the value with a small per-key delay
// so client-side listeners see human-paced input.
func (e *Engine) typeInto(ctx context.Context, el Element, value string) error {
	if err := el.Click(ctx, ClickOptions{Timeout: 3 * time.Second}); err != nil {
		return err
	}
	pause(ctx, 300*time.Millisecond)
	if err := el.Fill(ctx, ""); err != nil {
		return err
	}
	pause(ctx, 200*time.Millisecond)
	return el.TypeSlowly(ctx, value, 30*time.Millisecond)
}

// waitForInputs polls until the page renders at least one input.
func (e *Engine) waitForInputs(ctx context.Context, timeout time.Duration) ([]Element, error) {
	deadline := time.Now().Add(timeout)
	for {
		els, err := e.page.Find(ctx, Query{Selector: "input"}, probeCap)
		if err == nil && len(els) > 0 {
			return els, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrElementNotFound
		}
		pause(ctx, 500*time.Millisecond)
	}
}
