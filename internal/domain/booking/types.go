package booking

import "time"

// DateLayout is the wizard's date format.
const DateLayout = "01/02/2006"

// SlotCandidate is one candidate date with its desirability score in [0,1].
type SlotCandidate struct {
	Date  string
	Score float64
}

// RunResult is the outcome of one orchestrated engine run. The scheduler
// turns it into job/booking-result updates and a notification; the engine
// itself never persists it.
type RunResult struct {
	Location         string
	ZIPCode          string
	NextAvailable    string
	AvailableDates   []string
	TotalSlots       int
	TargetDate       string
	BookingAttempted bool
	BookingConfirmed bool
	CheckedAt        time.Time
}
