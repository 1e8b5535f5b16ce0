package engine

import (
	"context"
	"testing"
)

func TestIsOnStep(t *testing.T) {
	tests := []struct {
		name     string
		elements []*fakeElement
		step     Step
		want     bool
	}{
		{
			name:     "login by heading",
			elements: []*fakeElement{textNode("Log On")},
			step:     StepLogin,
			want:     true,
		},
		{
			name:     "login by dob label",
			elements: []*fakeElement{textNode("Date of Birth")},
			step:     StepLogin,
			want:     true,
		},
		{
			name:     "passcode page",
			elements: []*fakeElement{textNode("One Time Passcode Verification")},
			step:     StepPasscode,
			want:     true,
		},
		{
			name:     "appointment options by button",
			elements: []*fakeElement{button("New Appointment", nil)},
			step:     StepAppointmentOptions,
			want:     true,
		},
		{
			name: "customer details by zip control",
			elements: []*fakeElement{{
				tag:       "input",
				selectors: []string{"input[placeholder='#####']"},
			}},
			step: StepCustomerDetails,
			want: true,
		},
		{
			name:     "date selection",
			elements: []*fakeElement{textNode("Select from the available dates below")},
			step:     StepDateSelect,
			want:     true,
		},
		{
			name:     "time selection",
			elements: []*fakeElement{textNode("Please choose a time")},
			step:     StepTimeSelect,
			want:     true,
		},
		{
			name:     "confirm page",
			elements: []*fakeElement{textNode("Time Remaining to Confirm: 9:58")},
			step:     StepConfirm,
			want:     true,
		},
		{
			name:     "hidden marker does not count",
			elements: []*fakeElement{{tag: "div", text: "Log On", hidden: true}},
			step:     StepLogin,
			want:     false,
		},
		{
			name:     "wrong page",
			elements: []*fakeElement{textNode("Select Time")},
			step:     StepConfirm,
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newFakeEngine(&fakePage{elements: tt.elements}, Config{})
			if got := e.IsOnStep(context.Background(), tt.step); got != tt.want {
				t.Errorf("IsOnStep(%s) = %v, want %v", tt.step, got, tt.want)
			}
		})
	}
}
