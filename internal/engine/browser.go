package engine

import (
	"context"
	"regexp"
	"time"
)

// Query is one element-lookup strategy. Exactly one locating input is the
// primary key (Role, Selector, or text); Text additionally filters
// Role/Selector lookups by visible text.
type Query struct {
	// Role restricts the lookup to ARIA role, e.g. "button".
	Role string
	// Selector is a CSS selector lookup.
	Selector string
	// Text filters candidates by visible text.
	Text *regexp.Regexp
	// Exact requires an exact text match instead of a regex filter.
	Exact bool
}

// ClickOptions tunes a single click attempt.
type ClickOptions struct {
	Timeout time.Duration
	// Force bypasses actionability checks, used as the fallback when a
	// native click is intercepted by an overlay.
	Force bool
}

// Element is one located page element. Lookups return detached handles;
// state accessors reflect the element at lookup time and interactions go
// back to the live page.
type Element interface {
	Visible() bool
	Enabled() bool
	Text() string
	Attr(name string) string
	InputValue() string
	Click(ctx context.Context, opts ClickOptions) error
	Fill(ctx context.Context, value string) error
	// TypeSlowly presses the value key by key with a delay, emulating a
	// human filling the field.
	TypeSlowly(ctx context.Context, value string, delay time.Duration) error
	// Eval runs a JS snippet with the element bound as `el` and returns the
	// result rendered as a string.
	Eval(ctx context.Context, js string) (string, error)
}

// Page is the browser automation capability the engine consumes. Every
// operation is fallible and callers wrap each site with their own timeout
// and fallback strategy.
type Page interface {
	Navigate(ctx context.Context, url string) error
	// WaitSettled blocks until network quiescence or the timeout; a timeout
	// is returned as an error the caller may choose to ignore.
	WaitSettled(ctx context.Context, timeout time.Duration) error
	// Find returns up to limit elements matching the query, in DOM order.
	// No match is an empty slice, not an error.
	Find(ctx context.Context, q Query, limit int) ([]Element, error)
	BodyText(ctx context.Context) (string, error)
	Content(ctx context.Context) (string, error)
	// Screenshot captures the page and returns the stored file path.
	Screenshot(ctx context.Context, name string) (string, error)
	Press(ctx context.Context, key string) error
}

// Session is one isolated browser context plus its page. The orchestrator
// owns exactly one per run and closes it unconditionally at run end.
type Session interface {
	Page
	Close()
}

// Launcher opens fresh browser sessions.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}
