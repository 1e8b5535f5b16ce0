package engine

import "errors"

var (
	// ErrNavigationTimeout means the scheduler site never loaded.
	ErrNavigationTimeout = errors.New("navigation timeout")
	// ErrElementNotFound means every lookup strategy for a required element
	// came up empty.
	ErrElementNotFound = errors.New("element not found")
	// ErrPasscodeTimeout means no passcode arrived and the page never
	// advanced on its own.
	ErrPasscodeTimeout = errors.New("passcode timeout")
	// ErrServiceSelection means no path reached the customer-details step.
	ErrServiceSelection = errors.New("service selection failed")
	// ErrSlotExhausted means no candidate date yielded a bookable time.
	// This is a normal negative outcome, not a hard failure.
	ErrSlotExhausted = errors.New("no time slots for any date")
	// ErrConfirmationNotDetected means Confirm was clicked but the
	// confirmation page never showed its marker. Terminal: retrying a
	// possibly-submitted confirm action is unsafe.
	ErrConfirmationNotDetected = errors.New("confirmation not detected")
)
