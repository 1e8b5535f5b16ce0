package engine

import (
	"context"
	"fmt"
	"time"
)

const (
	passcodeWait     = 120 * time.Second
	passcodeInterval = 5 * time.Second
)

// handlePasscode drives the one-time passcode step. The code arrives out of
// band, so the retriever polls the mailbox while we hold the page; if no
// code ever shows up we give the site one last chance to advance on its own
// before failing.
func (e *Engine) handlePasscode(ctx context.Context) error {
	pause(ctx, 3*time.Second)

	if e.IsOnStep(ctx, StepAppointmentOptions) {
		e.emit(ctx, LevelInfo, "No passcode step, already past verification", "")
		return nil
	}
	if !e.IsOnStep(ctx, StepPasscode) {
		e.emit(ctx, LevelInfo, "Passcode step not detected, continuing", "")
		return nil
	}

	e.emit(ctx, LevelInfo, "One-time passcode required, checking email", "")

	if e.codes == nil {
		return e.awaitManualAdvance(ctx)
	}

	code, err := e.codes.Retrieve(ctx, passcodeWait, passcodeInterval)
	if err != nil {
		e.emit(ctx, LevelWarning, fmt.Sprintf("Passcode retrieval failed: %v", err), "")
		return e.awaitManualAdvance(ctx)
	}
	if code == "" {
		return e.awaitManualAdvance(ctx)
	}

	input := e.findFirst(ctx,
		Query{Selector: "input[aria-label*='passcode' i]"},
		Query{Selector: "input[id*='passcode' i], input[name*='passcode' i]"},
		Query{Selector: "input[type='text'], input[type='number'], input[type='tel']"},
	)
	if input == nil {
		ss := e.failShot(ctx, "passcode_error")
		e.emit(ctx, LevelError, "Passcode input not found", ss)
		return fmt.Errorf("%w: passcode input", ErrElementNotFound)
	}

	if err := input.Click(ctx, ClickOptions{Timeout: 3 * time.Second}); err == nil {
		_ = input.Fill(ctx, "")
		if err := input.TypeSlowly(ctx, code, 50*time.Millisecond); err != nil {
			return fmt.Errorf("typing passcode: %w", err)
		}
	}
	e.emit(ctx, LevelSuccess, "Entered passcode from email", "")

	if !e.clickButtonByText(ctx, []string{"verify"}) {
		e.emit(ctx, LevelWarning, "Verify button not found after entering passcode", "")
	}

	pause(ctx, 3*time.Second)
	_ = e.page.WaitSettled(ctx, 5*time.Second)
	return nil
}

// awaitManualAdvance waits out the case where the passcode was typed by a
// human watching the session, or the site dropped the requirement.
func (e *Engine) awaitManualAdvance(ctx context.Context) error {
	e.emit(ctx, LevelWarning, "No passcode available, waiting for page to advance", "")
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		if !e.IsOnStep(ctx, StepPasscode) {
			e.emit(ctx, LevelSuccess, "Passcode step cleared", "")
			return nil
		}
		pause(ctx, 2*time.Second)
	}
	ss := e.failShot(ctx, "passcode_timeout")
	e.emit(ctx, LevelError, "Timed out waiting for passcode verification", ss)
	return ErrPasscodeTimeout
}
