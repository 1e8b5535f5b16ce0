package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/playwright-community/playwright-go"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// PlaywrightLauncher starts headless Chromium sessions. One launcher may
// serve many sequential sessions; each Launch gets its own browser context.
type PlaywrightLauncher struct {
	Headless      bool
	ScreenshotDir string
	UserAgent     string
}

func NewPlaywrightLauncher(headless bool, screenshotDir string) *PlaywrightLauncher {
	return &PlaywrightLauncher{Headless: headless, ScreenshotDir: screenshotDir}
}

func (l *PlaywrightLauncher) Launch(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("starting playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(l.Headless),
		Args: []string{
			"--no-sandbox",
			"--disable-dev-shm-usage",
			"--disable-gpu",
		},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launching chromium: %w", err)
	}

	ua := l.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport:  &playwright.Size{Width: 1920, Height: 1080},
		UserAgent: playwright.String(ua),
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("creating browser context: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("opening page: %w", err)
	}
	page.SetDefaultTimeout(10_000)

	dir := l.ScreenshotDir
	if dir == "" {
		dir = "screenshots"
	}
	return &pwSession{pw: pw, browser: browser, bctx: bctx, page: page, shotDir: dir}, nil
}

type pwSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	bctx    playwright.BrowserContext
	page    playwright.Page
	shotDir string
	shotSeq atomic.Int64
}

func (s *pwSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(30_000),
	})
	return err
}

func (s *pwSession) WaitSettled(ctx context.Context, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
}

// Find resolves a Query into concrete locators. Role plus text uses the
// accessibility tree; a bare selector takes the CSS path; bare text falls
// back to a text lookup.
func (s *pwSession) Find(ctx context.Context, q Query, limit int) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	loc, err := s.resolve(q)
	if err != nil {
		return nil, err
	}

	count, err := loc.Count()
	if err != nil {
		return nil, err
	}
	if limit > 0 && count > limit {
		count = limit
	}
	els := make([]Element, 0, count)
	for i := 0; i < count; i++ {
		els = append(els, &pwElement{loc: loc.Nth(i)})
	}
	return els, nil
}

func (s *pwSession) resolve(q Query) (playwright.Locator, error) {
	switch {
	case q.Role != "":
		opts := playwright.PageGetByRoleOptions{}
		if q.Text != nil {
			opts.Name = q.Text
			opts.Exact = playwright.Bool(q.Exact)
		}
		return s.page.GetByRole(playwright.AriaRole(q.Role), opts), nil
	case q.Selector != "":
		loc := s.page.Locator(q.Selector)
		if q.Text != nil {
			loc = loc.Filter(playwright.LocatorFilterOptions{HasText: q.Text})
		}
		return loc, nil
	case q.Text != nil:
		return s.page.GetByText(q.Text, playwright.PageGetByTextOptions{Exact: playwright.Bool(q.Exact)}), nil
	default:
		return nil, fmt.Errorf("empty query")
	}
}

func (s *pwSession) BodyText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.page.Locator("body").InnerText(playwright.LocatorInnerTextOptions{
		Timeout: playwright.Float(5_000),
	})
}

func (s *pwSession) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.page.Content()
}

func (s *pwSession) Screenshot(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.shotDir, 0o755); err != nil {
		return "", err
	}
	seq := s.shotSeq.Add(1)
	path := filepath.Join(s.shotDir, fmt.Sprintf("%03d_%s_%s.png", seq, sanitizeName(name, 60), time.Now().Format("150405")))
	_, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Path: playwright.String(path),
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

func (s *pwSession) Press(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.page.Keyboard().Press(key)
}

func (s *pwSession) Close() {
	_ = s.bctx.Close()
	_ = s.browser.Close()
	_ = s.pw.Stop()
}

type pwElement struct {
	loc playwright.Locator
}

func (e *pwElement) Visible() bool {
	v, err := e.loc.IsVisible()
	return err == nil && v
}

func (e *pwElement) Enabled() bool {
	v, err := e.loc.IsEnabled()
	return err == nil && v
}

func (e *pwElement) Text() string {
	t, err := e.loc.InnerText(playwright.LocatorInnerTextOptions{Timeout: playwright.Float(2_000)})
	if err != nil {
		return ""
	}
	return t
}

func (e *pwElement) Attr(name string) string {
	v, err := e.loc.GetAttribute(name, playwright.LocatorGetAttributeOptions{Timeout: playwright.Float(2_000)})
	if err != nil {
		return ""
	}
	return v
}

func (e *pwElement) InputValue() string {
	v, err := e.loc.InputValue(playwright.LocatorInputValueOptions{Timeout: playwright.Float(2_000)})
	if err != nil {
		return ""
	}
	return v
}

func (e *pwElement) Click(ctx context.Context, opts ClickOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o := playwright.LocatorClickOptions{}
	if opts.Timeout > 0 {
		o.Timeout = playwright.Float(float64(opts.Timeout.Milliseconds()))
	}
	if opts.Force {
		o.Force = playwright.Bool(true)
	}
	return e.loc.Click(o)
}

func (e *pwElement) Fill(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.loc.Fill(value)
}

func (e *pwElement) TypeSlowly(ctx context.Context, value string, delay time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.loc.PressSequentially(value, playwright.LocatorPressSequentiallyOptions{
		Delay: playwright.Float(float64(delay.Milliseconds())),
	})
}

func (e *pwElement) Eval(ctx context.Context, js string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	out, err := e.loc.Evaluate(js, nil)
	if err != nil {
		return "", err
	}
	if out == nil {
		return "", nil
	}
	return fmt.Sprint(out), nil
}
