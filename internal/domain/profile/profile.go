package profile

// SlotPriority controls how the decision engine weighs candidate dates.
type SlotPriority string

const (
	PrioritySameDay  SlotPriority = "same_day"
	PriorityNextDay  SlotPriority = "next_day"
	PriorityThisWeek SlotPriority = "this_week"
	PriorityAny      SlotPriority = "any"
)

// Profile is the immutable snapshot of one applicant handed to a booking run.
// Identity fields feed the login form, contact fields the customer-details
// page, and the license flags are consumed only by the decision engine.
type Profile struct {
	FirstName string
	LastName  string
	DOB       string // MM/DD/YYYY
	SSNLast4  string
	Phone     string
	Email     string

	ZIPCode            string
	LocationPreference string
	MaxDistanceMiles   int
	SlotPriority       SlotPriority

	// License situation, decision-engine input only.
	HasTexasLicense      bool
	HasOutOfStateLicense bool
	LicenseExpired       bool
	LicenseLostStolen    bool
	IsCommercial         bool
	IDOnly               bool
	NeedsPermit          bool
	Age                  int // 0 = unknown

	// NotifyEmail overrides where booking alerts are sent.
	NotifyEmail string
}

// MailAddress returns the address notifications should go to, falling back
// to the profile email.
func (p Profile) MailAddress() string {
	if p.NotifyEmail != "" {
		return p.NotifyEmail
	}
	return p.Email
}
