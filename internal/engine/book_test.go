package engine

import (
	"context"
	"errors"
	"testing"
)

func TestFindAndClickTimeSlot(t *testing.T) {
	slot := button("10:15 AM", nil)
	page := &fakePage{elements: []*fakeElement{
		button("Wednesday, 03/18/2026", nil), // date card leaking into the probe
		button("This is a very long navigation label that is not a time", nil),
		slot,
	}}
	e := newFakeEngine(page, Config{})

	if !e.findAndClickTimeSlot(context.Background()) {
		t.Fatal("findAndClickTimeSlot() = false, want true")
	}
	if slot.clicks != 1 {
		t.Errorf("time slot clicked %d times, want 1", slot.clicks)
	}
}

func TestFindAndClickTimeSlot_NoSlots(t *testing.T) {
	page := &fakePage{elements: []*fakeElement{
		button("Next", nil),
		button("Previous", nil),
	}}
	e := newFakeEngine(page, Config{})

	if e.findAndClickTimeSlot(context.Background()) {
		t.Error("findAndClickTimeSlot() = true with no time buttons")
	}
}

func TestClickDateOnPage_SkipsBanner(t *testing.T) {
	banner := &fakeElement{
		role: "button", tag: "button",
		text:   "Next Available Date: Wednesday, 03/18/2026",
		evalFn: func(js string) (string, error) { return "banner", nil },
	}
	card := button("Wednesday, 03/18/2026", nil)
	page := &fakePage{elements: []*fakeElement{banner, card}}
	e := newFakeEngine(page, Config{})

	if !e.clickDateOnPage(context.Background(), "03/18/2026") {
		t.Fatal("clickDateOnPage() = false, want true")
	}
	if banner.clicks != 0 {
		t.Error("banner tile was clicked")
	}
	if card.clicks != 1 {
		t.Errorf("date card clicked %d times, want 1", card.clicks)
	}
}

func TestClickDateOnPage_NotPresent(t *testing.T) {
	page := &fakePage{elements: []*fakeElement{button("Wednesday, 03/18/2026", nil)}}
	e := newFakeEngine(page, Config{})

	if e.clickDateOnPage(context.Background(), "04/01/2026") {
		t.Error("clickDateOnPage() = true for a date not on the page")
	}
}

// wizard models the date -> time -> confirm tail of the scheduler. The
// first date has no time slots; the second does.
type wizard struct {
	page      *fakePage
	confirmed bool
}

func newWizard() *wizard {
	w := &wizard{page: &fakePage{}}
	w.showDates()
	return w
}

func (w *wizard) showDates() {
	var deadDate, goodDate *fakeElement
	deadDate = button("Monday, 03/16/2026", func() {})
	goodDate = button("Wednesday, 03/18/2026", func() {})
	next := button("Next", func() {
		switch {
		case deadDate.clicks > 0 && deadDate.clicks >= goodDate.clicks:
			w.showTimes(false)
		case goodDate.clicks > 0:
			w.showTimes(true)
		}
	})
	w.page.elements = []*fakeElement{
		textNode("Select from the available dates below"),
		deadDate, goodDate, next,
	}
}

func (w *wizard) showTimes(hasSlots bool) {
	els := []*fakeElement{
		textNode("Please choose a time"),
		button("Previous", func() { w.showDates() }),
	}
	if hasSlots {
		slot := button("2:30 PM", nil)
		els = append(els, slot, button("Next", func() {
			if slot.clicks > 0 {
				w.showConfirm()
			}
		}))
	} else {
		els = append(els, button("Next", nil))
	}
	w.page.elements = els
}

func (w *wizard) showConfirm() {
	w.page.elements = []*fakeElement{
		textNode("Time Remaining to Confirm: 9:59"),
		button("Confirm", func() {
			w.confirmed = true
			w.page.content = "<h1>Your appointment has been confirmed</h1>Confirmation Number: QX1179"
		}),
	}
}

func TestAutoBookSlot_BacktracksToWorkingDate(t *testing.T) {
	if testing.Short() {
		t.Skip("exercises interaction pacing delays")
	}

	w := newWizard()
	e := newFakeEngine(w.page, Config{Profile: testProfile()})

	booked, err := e.autoBookSlot(context.Background(), "03/16/2026", []string{"03/16/2026", "03/18/2026"})
	if err != nil {
		t.Fatalf("autoBookSlot() error: %v", err)
	}
	if !booked {
		t.Fatal("autoBookSlot() = false, want booking confirmed on the second date")
	}
	if !w.confirmed {
		t.Error("confirm button was never clicked")
	}
}

func TestAutoBookSlot_AllDatesDead(t *testing.T) {
	if testing.Short() {
		t.Skip("exercises interaction pacing delays")
	}

	w := newWizard()
	// Make both dates dead by refusing time slots everywhere.
	w.showTimesAlwaysEmpty()

	e := newFakeEngine(w.page, Config{Profile: testProfile()})
	booked, err := e.autoBookSlot(context.Background(), "03/16/2026", []string{"03/16/2026"})
	if err != nil {
		t.Fatalf("autoBookSlot() error: %v", err)
	}
	if booked {
		t.Error("autoBookSlot() = true with no time slots anywhere")
	}
}

func (w *wizard) showTimesAlwaysEmpty() {
	date := button("Monday, 03/16/2026", nil)
	w.page.elements = []*fakeElement{
		textNode("Select from the available dates below"),
		date,
		button("Next", func() {
			if date.clicks > 0 {
				w.showTimes(false)
			}
		}),
	}
}

func TestConfirmBooking_UnverifiableConfirmIsTerminal(t *testing.T) {
	page := &fakePage{
		elements: []*fakeElement{
			textNode("Time Remaining to Confirm: 9:59"),
			button("Confirm", nil),
		},
		content: "<h1>Processing</h1>",
	}
	e := newFakeEngine(page, Config{})

	booked, err := e.confirmBooking(context.Background(), "03/18/2026")
	if booked {
		t.Error("confirmBooking() = true without confirmation text")
	}
	if !errors.Is(err, ErrConfirmationNotDetected) {
		t.Errorf("confirmBooking() error = %v, want ErrConfirmationNotDetected", err)
	}
}
