package engine

import (
	"context"
	"reflect"
	"testing"
)

func dateCard(weekday, date string) *fakeElement {
	return &fakeElement{role: "button", tag: "button", text: weekday + ", " + date}
}

func TestDiscoverSlots(t *testing.T) {
	page := &fakePage{
		body: "Denton Appointment Scheduling\nSelect from the available dates below",
		elements: []*fakeElement{
			button("Next Available Date: Monday, 03/16/2026", nil),
			dateCard("Wednesday", "03/18/2026"),
			dateCard("Monday", "03/16/2026"),
			dateCard("Monday", "03/16/2026"), // duplicate card
			dateCard("Friday", "03/20"),      // no year, ambiguous
			button("Next", nil),
		},
	}
	e := newFakeEngine(page, Config{Profile: testProfile()})

	res, err := e.discoverSlots(context.Background())
	if err != nil {
		t.Fatalf("discoverSlots() error: %v", err)
	}
	if res == nil {
		t.Fatal("discoverSlots() = nil, want a result")
	}
	if res.Location != "Denton" {
		t.Errorf("Location = %q, want Denton", res.Location)
	}
	wantDates := []string{"03/16/2026", "03/18/2026"}
	if !reflect.DeepEqual(res.AvailableDates, wantDates) {
		t.Errorf("AvailableDates = %v, want %v", res.AvailableDates, wantDates)
	}
	if res.NextAvailable != "03/16/2026" {
		t.Errorf("NextAvailable = %q, want the earliest date", res.NextAvailable)
	}
	if res.TotalSlots != 2 {
		t.Errorf("TotalSlots = %d, want 2", res.TotalSlots)
	}
}

func TestDiscoverSlots_NoAppointments(t *testing.T) {
	page := &fakePage{body: "No appointments are currently available."}
	e := newFakeEngine(page, Config{Profile: testProfile()})

	res, err := e.discoverSlots(context.Background())
	if err != nil {
		t.Fatalf("discoverSlots() error: %v", err)
	}
	if res != nil {
		t.Errorf("discoverSlots() = %+v, want nil for an empty results page", res)
	}
}

func TestDiscoverSlots_LocationWithoutDates(t *testing.T) {
	page := &fakePage{
		body: "Denton DPS Office\nPlease check back later for openings.",
		elements: []*fakeElement{
			button("Next Available Date: none", nil),
		},
	}
	e := newFakeEngine(page, Config{Profile: testProfile()})

	res, err := e.discoverSlots(context.Background())
	if err != nil {
		t.Fatalf("discoverSlots() error: %v", err)
	}
	if res != nil {
		t.Errorf("discoverSlots() = %+v, want nil when the page has no dates", res)
	}
}

func TestDiscoverSlots_LocationFallback(t *testing.T) {
	prof := testProfile()
	prof.LocationPreference = "Waco"
	page := &fakePage{
		body: "Select an appointment date",
		elements: []*fakeElement{
			dateCard("Tuesday", "05/12/2026"),
		},
	}
	e := newFakeEngine(page, Config{Profile: prof})

	res, err := e.discoverSlots(context.Background())
	if err != nil {
		t.Fatalf("discoverSlots() error: %v", err)
	}
	if res == nil {
		t.Fatal("discoverSlots() = nil, want a result")
	}
	if res.Location != "Waco" {
		t.Errorf("Location = %q, want the profile preference", res.Location)
	}

	e = newFakeEngine(page, Config{Profile: testProfile()})
	res, err = e.discoverSlots(context.Background())
	if err != nil {
		t.Fatalf("discoverSlots() error: %v", err)
	}
	if res == nil || res.Location != "Unknown" {
		t.Errorf("Location = %v, want Unknown without a preference", res)
	}
}

func TestDiscoverSlots_ContentFallback(t *testing.T) {
	page := &fakePage{
		body:    "Appointments near Arlington",
		content: `<div>Earliest opening 04/02/2026 and also 04/01/2026</div>`,
	}
	e := newFakeEngine(page, Config{Profile: testProfile()})

	res, err := e.discoverSlots(context.Background())
	if err != nil {
		t.Fatalf("discoverSlots() error: %v", err)
	}
	if res == nil {
		t.Fatal("discoverSlots() = nil, want a result")
	}
	wantDates := []string{"04/01/2026", "04/02/2026"}
	if !reflect.DeepEqual(res.AvailableDates, wantDates) {
		t.Errorf("AvailableDates = %v, want %v", res.AvailableDates, wantDates)
	}
}
