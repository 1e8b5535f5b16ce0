package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/dps-agent/internal/domain/booking"
	"github.com/example/dps-agent/internal/domain/profile"
)

// CodeSource retrieves a one-time passcode within a bounded wait. An empty
// code with a nil error means the wait ran out without a code arriving.
type CodeSource interface {
	Retrieve(ctx context.Context, timeout, interval time.Duration) (string, error)
}

// Config is the per-run snapshot the orchestrator works from.
type Config struct {
	BaseURL string
	Profile profile.Profile

	// PreferredService drives the service-catalog click; ButtonKeywords is
	// the containment fallback when the exact label is absent.
	PreferredService booking.Service
	ButtonKeywords   []string

	AutoBook      bool
	AutoBookLimit float64 // minimum best-slot score, default 0.5

	// ScreenshotTrace attaches a screenshot to every emitted status event.
	ScreenshotTrace bool
}

// Engine drives one browser session through the scheduler wizard: detect
// the rendered step, fill it, and move on, tolerating a UI that changes
// shape between runs.
type Engine struct {
	cfg      Config
	launcher Launcher
	codes    CodeSource
	sink     Sink
	log      *zap.Logger

	page Session
}

func New(cfg Config, launcher Launcher, codes CodeSource, sink Sink, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.AutoBookLimit == 0 {
		cfg.AutoBookLimit = 0.5
	}
	if len(cfg.ButtonKeywords) == 0 {
		cfg.ButtonKeywords = cfg.PreferredService.ButtonText
	}
	if len(cfg.ButtonKeywords) == 0 {
		cfg.ButtonKeywords = defaultServiceKeywords
	}
	return &Engine{cfg: cfg, launcher: launcher, codes: codes, sink: sink, log: log}
}

var defaultServiceKeywords = []string{
	"apply for first time texas dl/permit",
	"first time texas dl",
	"dl/permit",
	"dl permit",
}

// Run executes one full check-and-book cycle. A nil result with a nil error
// means no appointments were available; a non-nil error is a hard failure.
// The browser session is torn down unconditionally on every path.
func (e *Engine) Run(ctx context.Context) (*booking.RunResult, error) {
	e.emit(ctx, LevelInfo, fmt.Sprintf("Starting appointment check at %s", time.Now().Format("3:04:05 PM")), "")

	session, err := e.launcher.Launch(ctx)
	if err != nil {
		e.emit(ctx, LevelError, fmt.Sprintf("Browser launch failed: %v", err), "")
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	e.page = session
	defer func() {
		session.Close()
		e.page = nil
		e.emit(ctx, LevelInfo, "Browser session closed", "")
	}()
	e.emit(ctx, LevelSuccess, "Browser launched", "")

	if err := e.navigate(ctx); err != nil {
		return nil, err
	}
	if err := e.fillLoginForm(ctx); err != nil {
		return nil, err
	}
	if err := e.handlePasscode(ctx); err != nil {
		return nil, err
	}
	if err := e.selectServiceType(ctx); err != nil {
		return nil, err
	}
	if err := e.searchLocation(ctx); err != nil {
		return nil, err
	}

	result, err := e.discoverSlots(ctx)
	if err != nil {
		return nil, err
	}
	if result == nil {
		e.emit(ctx, LevelInfo, "No appointments available at this time", "")
		return nil, nil
	}

	if e.cfg.AutoBook && len(result.AvailableDates) > 0 {
		ranked := booking.Rank(result.AvailableDates, e.cfg.Profile.SlotPriority)
		best := ranked[0]
		e.emit(ctx, LevelInfo, fmt.Sprintf("Ranked best slot: %s (score %.2f)", best.Date, best.Score), "")

		if booking.ShouldAutoBook(best, e.cfg.AutoBookLimit) {
			result.TargetDate = best.Date
			result.BookingAttempted = true
			booked, err := e.autoBookSlot(ctx, best.Date, result.AvailableDates)
			if err != nil {
				result.BookingConfirmed = false
				return result, err
			}
			result.BookingConfirmed = booked
			if booked {
				e.emit(ctx, LevelSuccess, fmt.Sprintf("Appointment BOOKED for %s", result.TargetDate), "")
			} else {
				e.emit(ctx, LevelWarning, "Auto-booking could not confirm. Please book manually ASAP.", "")
			}
		} else {
			e.emit(ctx, LevelInfo, fmt.Sprintf("Best slot score %.2f below booking threshold, not booking", best.Score), "")
		}
	}

	return result, nil
}

// emit reports a status transition through the sink and the logger. Sink
// errors never propagate into the run.
func (e *Engine) emit(ctx context.Context, level Level, message, screenshot string) {
	if e.cfg.ScreenshotTrace && screenshot == "" && e.page != nil {
		screenshot, _ = e.page.Screenshot(ctx, sanitizeName(string(level)+"_"+message, 80))
	}
	switch level {
	case LevelError:
		e.log.Error(message, zap.String("screenshot", screenshot))
	case LevelWarning:
		e.log.Warn(message, zap.String("screenshot", screenshot))
	default:
		e.log.Info(message, zap.String("screenshot", screenshot))
	}
	if e.sink == nil {
		return
	}
	e.sink(ctx, StatusEvent{Level: level, Message: message, Screenshot: screenshot, At: time.Now()})
}

// failShot captures a screenshot for a failure site, best effort.
func (e *Engine) failShot(ctx context.Context, name string) string {
	if e.page == nil {
		return ""
	}
	path, _ := e.page.Screenshot(ctx, name)
	return path
}

// pause sleeps cooperatively, returning early when the context ends.
func pause(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

var nameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

func sanitizeName(value string, maxLen int) string {
	cleaned := nameSanitizer.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "_")
	cleaned = strings.Trim(cleaned, "_")
	if cleaned == "" {
		cleaned = "step"
	}
	if len(cleaned) > maxLen {
		cleaned = cleaned[:maxLen]
	}
	return cleaned
}
