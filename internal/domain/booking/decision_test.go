package booking

import (
	"testing"
	"time"

	"github.com/example/dps-agent/internal/domain/profile"
)

func TestClassify_ServiceSelection(t *testing.T) {
	tests := []struct {
		name          string
		prof          profile.Profile
		wantKey       ServiceKey
		minConfidence float64
	}{
		{
			name:          "commercial wins over everything",
			prof:          profile.Profile{IsCommercial: true, HasTexasLicense: true, LicenseExpired: true},
			wantKey:       ServiceCDL,
			minConfidence: 0.95,
		},
		{
			name:          "id card only",
			prof:          profile.Profile{IDOnly: true},
			wantKey:       ServiceTexasID,
			minConfidence: 0.95,
		},
		{
			name:          "sixteen year old gets a permit",
			prof:          profile.Profile{Age: 16},
			wantKey:       ServicePermit,
			minConfidence: 0.95,
		},
		{
			name:          "explicit permit request",
			prof:          profile.Profile{NeedsPermit: true, Age: 25},
			wantKey:       ServicePermit,
			minConfidence: 0.95,
		},
		{
			name:          "texas license lost",
			prof:          profile.Profile{HasTexasLicense: true, LicenseLostStolen: true},
			wantKey:       ServiceReplaceDL,
			minConfidence: 0.95,
		},
		{
			name:          "texas license expired",
			prof:          profile.Profile{HasTexasLicense: true, LicenseExpired: true},
			wantKey:       ServiceRenewDL,
			minConfidence: 0.95,
		},
		{
			name:          "out of state transfer",
			prof:          profile.Profile{HasOutOfStateLicense: true},
			wantKey:       ServiceTransferOOS,
			minConfidence: 0.90,
		},
		{
			name:          "valid texas license defaults to update",
			prof:          profile.Profile{HasTexasLicense: true},
			wantKey:       ServiceChangeUpdate,
			minConfidence: 0.70,
		},
		{
			name:          "no license at all",
			prof:          profile.Profile{Age: 25},
			wantKey:       ServiceFirstTimeDL,
			minConfidence: 0.90,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.prof)
			if got.Service.Key != tt.wantKey {
				t.Errorf("Classify() service = %s, want %s", got.Service.Key, tt.wantKey)
			}
			if got.Confidence < tt.minConfidence {
				t.Errorf("Classify() confidence = %.2f, want >= %.2f", got.Confidence, tt.minConfidence)
			}
			if got.Reasoning == "" {
				t.Error("Classify() returned empty reasoning")
			}
			if len(got.Tips) == 0 {
				t.Error("Classify() returned no tips")
			}
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	p := profile.Profile{HasOutOfStateLicense: true, Age: 30}
	first := Classify(p)
	second := Classify(p)
	if first.Service.Key != second.Service.Key || first.Confidence != second.Confidence {
		t.Errorf("Classify() not deterministic: %+v vs %+v", first, second)
	}
}

func TestScoreOn_StepFunction(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	date := func(days int) string {
		return now.AddDate(0, 0, days).Format(DateLayout)
	}

	tests := []struct {
		name string
		date string
		want float64
	}{
		{"today", date(0), 1.0},
		{"tomorrow", date(1), 0.90},
		{"three days out", date(3), 0.75},
		{"five days out", date(5), 0.60},
		{"two weeks out", date(14), 0.40},
		{"thirty days out", date(30), 0.25},
		{"thirty one days out", date(31), 0.10},
		{"yesterday", date(-1), 0.0},
		{"malformed", "not a date", 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreOn(tt.date, profile.PriorityAny, now)
			if got != tt.want {
				t.Errorf("ScoreOn(%q) = %.2f, want %.2f", tt.date, got, tt.want)
			}
		})
	}
}

func TestScoreOn_PriorityOverrides(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	today := now.Format(DateLayout)
	tomorrow := now.AddDate(0, 0, 1).Format(DateLayout)
	inFive := now.AddDate(0, 0, 5).Format(DateLayout)

	if got := ScoreOn(today, profile.PrioritySameDay, now); got != 1.0 {
		t.Errorf("same_day today = %.2f, want 1.0", got)
	}
	// same_day halves anything that is not today
	if got := ScoreOn(tomorrow, profile.PrioritySameDay, now); got != 0.45 {
		t.Errorf("same_day tomorrow = %.2f, want 0.45", got)
	}
	if got := ScoreOn(tomorrow, profile.PriorityNextDay, now); got != 0.95 {
		t.Errorf("next_day tomorrow = %.2f, want 0.95", got)
	}
	if got := ScoreOn(inFive, profile.PriorityThisWeek, now); got != 0.80 {
		t.Errorf("this_week in five days = %.2f, want 0.80", got)
	}
}

func TestRankOn_BestFirst(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	dates := []string{
		now.AddDate(0, 0, 20).Format(DateLayout),
		now.Format(DateLayout),
		now.AddDate(0, 0, 2).Format(DateLayout),
		"garbage",
	}

	ranked := RankOn(dates, profile.PriorityAny, now)
	if len(ranked) != len(dates) {
		t.Fatalf("RankOn() returned %d candidates, want %d", len(ranked), len(dates))
	}
	if ranked[0].Date != now.Format(DateLayout) {
		t.Errorf("best candidate = %s, want today", ranked[0].Date)
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score > ranked[i-1].Score {
			t.Errorf("scores not non-increasing at %d: %.2f > %.2f", i, ranked[i].Score, ranked[i-1].Score)
		}
	}
}

func TestShouldAutoBook(t *testing.T) {
	if !ShouldAutoBook(SlotCandidate{Score: 0.5}, 0.5) {
		t.Error("score at threshold should book")
	}
	if ShouldAutoBook(SlotCandidate{Score: 0.49}, 0.5) {
		t.Error("score under threshold should not book")
	}
}

func TestLookupService(t *testing.T) {
	svc, ok := LookupService(ServiceFirstTimeDL)
	if !ok {
		t.Fatal("first_time_dl should exist")
	}
	if svc.Name == "" || len(svc.ButtonText) == 0 {
		t.Errorf("service catalog entry incomplete: %+v", svc)
	}
	if _, ok := LookupService("made_up"); ok {
		t.Error("unknown key should not resolve")
	}
}
