package engine

import (
	"context"
	"testing"
)

func TestDismissDialogs(t *testing.T) {
	okBtn := button("OK", nil)
	page := &fakePage{elements: []*fakeElement{okBtn, button("Book now", nil)}}
	e := newFakeEngine(page, Config{})

	if !e.dismissDialogs(context.Background()) {
		t.Fatal("dismissDialogs() = false, want true")
	}
	if okBtn.clicks != 1 {
		t.Errorf("OK button clicked %d times, want 1", okBtn.clicks)
	}
}

func TestDismissDialogs_NothingToDo(t *testing.T) {
	page := &fakePage{elements: []*fakeElement{button("New Appointment", nil)}}
	e := newFakeEngine(page, Config{})

	if e.dismissDialogs(context.Background()) {
		t.Error("dismissDialogs() = true with no dismissable controls")
	}
}

func TestDismissDialogs_SkipsHiddenOverlays(t *testing.T) {
	hidden := &fakeElement{role: "button", tag: "button", text: "Close", hidden: true}
	page := &fakePage{elements: []*fakeElement{hidden}}
	e := newFakeEngine(page, Config{})

	if e.dismissDialogs(context.Background()) {
		t.Error("dismissDialogs() clicked a hidden button")
	}
}

func TestDismissDialogs_ScansPastFirstContainerButton(t *testing.T) {
	covered := &fakeElement{tag: "button", text: "Close", hidden: true,
		selectors: []string{"[role='dialog'] button"}}
	visible := &fakeElement{tag: "button", text: "Close",
		selectors: []string{"[role='dialog'] button"}}
	page := &fakePage{elements: []*fakeElement{covered, visible}}
	e := newFakeEngine(page, Config{})

	if !e.dismissDialogs(context.Background()) {
		t.Fatal("dismissDialogs() = false, want the second dialog button clicked")
	}
	if visible.clicks != 1 {
		t.Errorf("visible dialog button clicked %d times, want 1", visible.clicks)
	}
}

func TestClickButtonByText(t *testing.T) {
	target := button("Apply for first time Texas DL/Permit", nil)
	page := &fakePage{elements: []*fakeElement{
		button("Previous", nil),
		target,
	}}
	e := newFakeEngine(page, Config{})

	if !e.clickButtonByText(context.Background(), []string{"first time texas dl"}) {
		t.Fatal("clickButtonByText() = false, want true")
	}
	if target.clicks != 1 {
		t.Errorf("target clicked %d times, want 1", target.clicks)
	}
}

func TestClickButtonByText_NoMatch(t *testing.T) {
	page := &fakePage{elements: []*fakeElement{button("Cancel", nil)}}
	e := newFakeEngine(page, Config{})

	if e.clickButtonByText(context.Background(), []string{"log on"}) {
		t.Error("clickButtonByText() = true with no matching button")
	}
}

func TestClickNext_PrefersExactMatch(t *testing.T) {
	exact := button("Next", nil)
	loose := button("Next Available Date", nil)
	page := &fakePage{elements: []*fakeElement{loose, exact}}
	e := newFakeEngine(page, Config{})

	if !e.clickNext(context.Background()) {
		t.Fatal("clickNext() = false, want true")
	}
	if exact.clicks != 1 || loose.clicks != 0 {
		t.Errorf("exact=%d loose=%d, want the exact Next clicked", exact.clicks, loose.clicks)
	}
}

func TestClickNext_SkipsDisabled(t *testing.T) {
	disabled := &fakeElement{role: "button", tag: "button", text: "Next", disabled: true}
	page := &fakePage{elements: []*fakeElement{disabled}}
	e := newFakeEngine(page, Config{})

	// Falls through to the keyword pass, which clicks regardless of the
	// enabled flag via script dispatch.
	if !e.clickNext(context.Background()) {
		t.Fatal("clickNext() = false, want keyword fallback to land")
	}
	if disabled.clicks != 1 {
		t.Errorf("disabled Next clicked %d times via fallback, want 1", disabled.clicks)
	}
}

func TestFindFirst_OrderAndVisibility(t *testing.T) {
	hidden := &fakeElement{role: "button", tag: "button", text: "Submit", hidden: true}
	visible := button("Submit", nil)
	page := &fakePage{elements: []*fakeElement{hidden, visible}}
	e := newFakeEngine(page, Config{})

	got := e.findFirst(context.Background(), Query{Role: "button"})
	if got != Element(visible) {
		t.Error("findFirst() should skip the hidden candidate")
	}
}
