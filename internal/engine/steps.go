package engine

import (
	"context"
	"regexp"
)

// Step names one page of the scheduler wizard.
type Step string

const (
	StepLogin              Step = "login"
	StepPasscode           Step = "passcode"
	StepAppointmentOptions Step = "appointment_options"
	StepServiceSelection   Step = "service_selection"
	StepCustomerDetails    Step = "customer_details"
	StepDateSelect         Step = "date_select"
	StepTimeSelect         Step = "time_select"
	StepConfirm            Step = "confirm"
)

// stepMarker recognizes a wizard page either by visible text or by a
// structural element lookup. Markers are OR-combined; first hit wins.
type stepMarker struct {
	text  *regexp.Regexp
	query *Query
}

// zipSelector matches the ZIP control in all shapes the wizard has shipped.
const zipSelector = "input[placeholder='#####'], input[id*='zip' i], #zipCode, input[name*='zip' i]"

// stepMarkers is the versioned wizard-shape table. The target UI guarantees
// no stable identifiers across sessions, so recognition rests on heading
// text and characteristic controls; when the site drifts, this table is the
// single place to amend.
var stepMarkers = map[Step][]stepMarker{
	StepLogin: {
		{text: regexp.MustCompile(`(?i)Log On`)},
		{text: regexp.MustCompile(`(?i)Date of Birth`)},
	},
	StepPasscode: {
		{text: regexp.MustCompile(`(?i)One Time Passcode Verification`)},
	},
	StepAppointmentOptions: {
		{query: &Query{Role: "button", Text: regexp.MustCompile(`(?i)^New Appointment$`)}},
	},
	StepServiceSelection: {
		{text: regexp.MustCompile(`(?i)Please select the option that best describes the service you need`)},
		{text: regexp.MustCompile(`(?i)Service Selection`)},
		{text: regexp.MustCompile(`(?i)Driver License Services|Identification Card Services|Commercial Driver License Services`)},
	},
	StepCustomerDetails: {
		{query: &Query{Selector: zipSelector}},
		{text: regexp.MustCompile(`(?i)Please enter your contact information`)},
		{text: regexp.MustCompile(`(?i)Customer Details`)},
		{text: regexp.MustCompile(`(?i)ZIP Code|City/Town`)},
	},
	StepDateSelect: {
		{text: regexp.MustCompile(`(?i)Select Location|Select from the available dates`)},
	},
	StepTimeSelect: {
		{text: regexp.MustCompile(`(?i)Select Time|available times|choose a time`)},
	},
	StepConfirm: {
		{text: regexp.MustCompile(`(?i)Confirm Appointment|Time Remaining to Confirm|\bConfirm\b`)},
	},
}

// IsOnStep reports whether the current page matches any marker for the
// step. No marker match means the step is not reached.
func (e *Engine) IsOnStep(ctx context.Context, step Step) bool {
	for _, m := range stepMarkers[step] {
		q := Query{}
		if m.query != nil {
			q = *m.query
		} else {
			q.Text = m.text
		}
		els, err := e.page.Find(ctx, q, 1)
		if err != nil {
			continue
		}
		for _, el := range els {
			if el.Visible() {
				return true
			}
		}
	}
	return false
}

// onTimeOrConfirmStep reports whether a "Previous" control should exist
// here, i.e. we are past date selection.
func (e *Engine) onTimeOrConfirmStep(ctx context.Context) bool {
	return e.IsOnStep(ctx, StepTimeSelect) || e.IsOnStep(ctx, StepConfirm)
}
