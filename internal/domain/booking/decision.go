package booking

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/example/dps-agent/internal/domain/profile"
)

// Recommendation is the decision engine's output for one profile: which
// service to book, how sure we are, and why.
type Recommendation struct {
	Service    Service
	Confidence float64
	Reasoning  string
	Tips       []string
}

// Classify maps a profile's license situation to a service type using
// priority-ordered rules. First matching rule wins; each rule carries a
// fixed confidence. Pure: same profile in, same recommendation out.
func Classify(p profile.Profile) Recommendation {
	key, confidence, reasoning := determineService(p)
	svc := services[key]
	return Recommendation{
		Service:    svc,
		Confidence: confidence,
		Reasoning:  reasoning,
		Tips:       bookingTips(p, key),
	}
}

func determineService(p profile.Profile) (ServiceKey, float64, string) {
	switch {
	case p.IsCommercial:
		return ServiceCDL, 0.95, "User needs commercial driving services (CDL)."
	case p.IDOnly:
		return ServiceTexasID, 0.95, "User needs a Texas identification card, not a driver license."
	case p.NeedsPermit || (p.Age > 0 && p.Age < 18):
		reason := "User needs a learner permit."
		if p.Age > 0 && p.Age < 18 {
			reason = fmt.Sprintf("User needs a learner permit (age %d, under 18).", p.Age)
		}
		return ServicePermit, 0.95, reason
	case p.HasTexasLicense && p.LicenseLostStolen:
		return ServiceReplaceDL, 0.95, "User has a Texas DL that was lost or stolen and needs a replacement."
	case p.HasTexasLicense && p.LicenseExpired:
		return ServiceRenewDL, 0.95, "User has an expired Texas DL and needs to renew."
	case p.HasOutOfStateLicense && !p.HasTexasLicense:
		return ServiceTransferOOS, 0.90, "User has an out-of-state license and needs to transfer it to Texas."
	case p.HasTexasLicense:
		return ServiceChangeUpdate, 0.70,
			"User has a valid Texas DL. Assuming they need to update information. " +
				"If they need a different service, please update your profile."
	case !p.HasTexasLicense && !p.HasOutOfStateLicense:
		reason := "User has no existing Texas or out-of-state license. Recommending first-time Texas DL application."
		if p.Age >= 18 {
			reason += fmt.Sprintf(" User is %d years old, eligible for full DL.", p.Age)
		}
		return ServiceFirstTimeDL, 0.90, reason
	}
	return ServiceFirstTimeDL, 0.50,
		"Could not confidently determine service type from the provided information. " +
			"Defaulting to first-time DL application. Please review and update if needed."
}

// Score rates one candidate date in [0,1] relative to today.
func Score(dateStr string, priority profile.SlotPriority) float64 {
	return ScoreOn(dateStr, priority, time.Now())
}

// ScoreOn is Score with an explicit reference day. Malformed input scores
// 0.1, past dates 0.0; otherwise a day-delta step function with priority
// overrides, rounded to two decimals.
func ScoreOn(dateStr string, priority profile.SlotPriority, now time.Time) float64 {
	slot, err := time.Parse(DateLayout, dateStr)
	if err != nil {
		return 0.1
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	slot = time.Date(slot.Year(), slot.Month(), slot.Day(), 0, 0, 0, 0, time.UTC)
	delta := int(slot.Sub(today).Hours() / 24)

	if delta < 0 {
		return 0.0
	}

	var score float64
	switch {
	case delta == 0:
		score = 1.0
	case delta == 1:
		score = 0.90
	case delta <= 3:
		score = 0.75
	case delta <= 7:
		score = 0.60
	case delta <= 14:
		score = 0.40
	case delta <= 30:
		score = 0.25
	default:
		score = 0.10
	}

	switch {
	case priority == profile.PrioritySameDay && delta == 0:
		score = 1.0
	case priority == profile.PrioritySameDay && delta > 0:
		score *= 0.5
	case priority == profile.PriorityNextDay && delta <= 1:
		score = math.Max(score, 0.95)
	case priority == profile.PriorityThisWeek && delta <= 7:
		score = math.Max(score, 0.80)
	}

	return math.Round(score*100) / 100
}

// Rank scores every date and orders best-first. The sort is stable so equal
// scores keep their input order.
func Rank(dates []string, priority profile.SlotPriority) []SlotCandidate {
	return RankOn(dates, priority, time.Now())
}

// RankOn is Rank with an explicit reference day.
func RankOn(dates []string, priority profile.SlotPriority, now time.Time) []SlotCandidate {
	ranked := make([]SlotCandidate, 0, len(dates))
	for _, d := range dates {
		ranked = append(ranked, SlotCandidate{Date: d, Score: ScoreOn(d, priority, now)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return ranked
}

// ShouldAutoBook reports whether the best slot clears the booking threshold.
func ShouldAutoBook(best SlotCandidate, threshold float64) bool {
	return best.Score >= threshold
}

func bookingTips(p profile.Profile, key ServiceKey) []string {
	tips := []string{
		"Have all required documents ready before your appointment.",
		"Arrive 15 minutes early to your appointment.",
	}

	switch key {
	case ServiceFirstTimeDL:
		tips = append(tips,
			"Bring proof of identity (passport or birth certificate).",
			"Bring proof of Social Security number.",
			"Bring two proofs of Texas residency (utility bills, lease, etc.).",
			"You will need to pass a written knowledge test and driving test.")
	case ServiceRenewDL:
		tips = append(tips,
			"Bring your expiring/expired Texas DL.",
			"If expired more than 2 years, you may need to retake tests.")
	case ServiceReplaceDL:
		tips = append(tips,
			"Bring another form of photo ID if possible.",
			"You may need to file a police report if your license was stolen.")
	case ServiceTransferOOS:
		tips = append(tips,
			"Bring your valid out-of-state license.",
			"Bring proof of Texas residency.",
			"Your out-of-state license will be collected by DPS.")
	case ServiceCDL:
		tips = append(tips,
			"Bring your current DL and any existing CDL.",
			"You will need a valid DOT medical card.",
			"Study the CDL manual for the appropriate vehicle class.")
	case ServiceTexasID:
		tips = append(tips,
			"Bring proof of identity (passport or birth certificate).",
			"Bring proof of Social Security number.",
			"Bring two proofs of Texas residency.")
	case ServicePermit:
		tips = append(tips,
			"A parent or legal guardian must accompany you.",
			"Bring proof of enrollment in a driver education course.",
			"Bring parent/guardian consent form (if under 18).")
	}

	location := p.LocationPreference
	if location == "" {
		location = "Denton"
	}
	tips = append(tips, fmt.Sprintf("Monitoring %s area locations for the earliest appointments.", location))
	return tips
}
