package engine

import (
	"context"
	"strings"
	"time"

	"github.com/example/dps-agent/internal/domain/profile"
)

// fakeElement is a scripted page element for engine tests. selectors lists
// the exact CSS fragments the element should answer to, on top of its tag.
type fakeElement struct {
	role      string
	tag       string
	text      string
	attrs     map[string]string
	value     string
	hidden    bool
	disabled  bool
	selectors []string

	clicks  int
	onClick func()
	evalFn  func(js string) (string, error)
}

func (f *fakeElement) Visible() bool      { return !f.hidden }
func (f *fakeElement) Enabled() bool      { return !f.disabled }
func (f *fakeElement) Text() string       { return f.text }
func (f *fakeElement) InputValue() string { return f.value }

func (f *fakeElement) Attr(name string) string {
	return f.attrs[name]
}

func (f *fakeElement) Click(ctx context.Context, opts ClickOptions) error {
	f.clicks++
	if f.onClick != nil {
		f.onClick()
	}
	return nil
}

func (f *fakeElement) Fill(ctx context.Context, value string) error {
	f.value = value
	return nil
}

func (f *fakeElement) TypeSlowly(ctx context.Context, value string, delay time.Duration) error {
	f.value += value
	return nil
}

func (f *fakeElement) Eval(ctx context.Context, js string) (string, error) {
	if f.evalFn != nil {
		return f.evalFn(js)
	}
	if strings.Contains(js, "el.click()") {
		f.clicks++
		if f.onClick != nil {
			f.onClick()
		}
	}
	return "", nil
}

// fakePage serves scripted elements. Clicks may mutate the element set to
// model wizard transitions.
type fakePage struct {
	elements []*fakeElement
	body     string
	content  string
	pressed  []string
}

func (p *fakePage) Navigate(ctx context.Context, url string) error         { return nil }
func (p *fakePage) WaitSettled(ctx context.Context, d time.Duration) error { return nil }
func (p *fakePage) BodyText(ctx context.Context) (string, error)           { return p.body, nil }
func (p *fakePage) Content(ctx context.Context) (string, error)            { return p.content, nil }
func (p *fakePage) Close()                                                 {}

func (p *fakePage) Screenshot(ctx context.Context, name string) (string, error) {
	return name + ".png", nil
}

func (p *fakePage) Press(ctx context.Context, key string) error {
	p.pressed = append(p.pressed, key)
	return nil
}

func (p *fakePage) Find(ctx context.Context, q Query, limit int) ([]Element, error) {
	var out []Element
	for _, el := range p.elements {
		if !matches(el, q) {
			continue
		}
		out = append(out, el)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func matches(el *fakeElement, q Query) bool {
	switch {
	case q.Role != "":
		if el.role != q.Role {
			return false
		}
	case q.Selector != "":
		if !selectorMatches(el, q.Selector) {
			return false
		}
	case q.Text != nil:
		return q.Text.MatchString(el.text)
	default:
		return false
	}
	if q.Text != nil && !q.Text.MatchString(el.text) {
		return false
	}
	return true
}

func selectorMatches(el *fakeElement, selector string) bool {
	for _, part := range strings.Split(selector, ",") {
		part = strings.TrimSpace(part)
		if part == el.tag {
			return true
		}
		for _, s := range el.selectors {
			if part == s {
				return true
			}
		}
	}
	return false
}

// newFakeEngine wires an engine directly onto a fake page.
func newFakeEngine(page *fakePage, cfg Config) *Engine {
	e := New(cfg, nil, nil, nil, nil)
	e.page = page
	return e
}

func testProfile() profile.Profile {
	return profile.Profile{
		FirstName: "Alex",
		LastName:  "Rivera",
		DOB:       "04/12/1998",
		SSNLast4:  "1234",
		Phone:     "9405551234",
		Email:     "alex@example.com",
		ZIPCode:   "76201",
	}
}

func button(text string, onClick func()) *fakeElement {
	return &fakeElement{role: "button", tag: "button", text: text, onClick: onClick}
}

func textNode(text string) *fakeElement {
	return &fakeElement{tag: "div", text: text}
}
