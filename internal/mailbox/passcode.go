// Package mailbox retrieves one-time passcodes from the applicant's email.
package mailbox

import (
	"context"
	"regexp"
	"time"

	"go.uber.org/zap"
)

// Fetcher returns the bodies of recent messages that may carry a passcode,
// newest first. An empty slice with a nil error means nothing relevant has
// arrived yet.
type Fetcher interface {
	FetchRecent(ctx context.Context) ([]string, error)
}

// codePatterns is ordered most to least specific. The bare six-digit
// fallback only runs when nothing labeled matched, since timestamps and
// ticket numbers also look like six digits.
var codePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)passcode[:\s]+([0-9]{4,6})`),
	regexp.MustCompile(`(?i)code[:\s]+([0-9]{4,6})`),
	regexp.MustCompile(`(?i)otp[:\s]+([0-9]{4,6})`),
	regexp.MustCompile(`(?i)verification[:\s]+([0-9]{4,6})`),
	regexp.MustCompile(`(?i)\b([0-9]{4,6})\b.*(?:passcode|code|otp|verify)`),
	regexp.MustCompile(`<[^>]*>([0-9]{4,6})<[^>]*>`),
	regexp.MustCompile(`([0-9]{6})`),
}

// ExtractCode pulls a 4-6 digit passcode out of a message body. Returns ""
// when no pattern matches.
func ExtractCode(body string) string {
	for _, p := range codePatterns {
		m := p.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		code := m[1]
		if len(code) >= 4 {
			return code
		}
	}
	return ""
}

// Retriever polls a Fetcher until a passcode shows up or the wait runs out.
type Retriever struct {
	fetcher Fetcher
	log     *zap.Logger
}

func NewRetriever(fetcher Fetcher, log *zap.Logger) *Retriever {
	if log == nil {
		log = zap.NewNop()
	}
	return &Retriever{fetcher: fetcher, log: log}
}

// Retrieve polls every interval up to timeout. An exhausted wait returns
// ("", nil): the caller decides whether a missing code is fatal.
func (r *Retriever) Retrieve(ctx context.Context, timeout, interval time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		bodies, err := r.fetcher.FetchRecent(ctx)
		if err != nil {
			r.log.Warn("mailbox poll failed", zap.Error(err))
		}
		for _, body := range bodies {
			if code := ExtractCode(body); code != "" {
				r.log.Info("passcode found in email", zap.Int("length", len(code)))
				return code, nil
			}
		}
		if time.Now().After(deadline) {
			r.log.Warn("no passcode arrived within wait window", zap.Duration("timeout", timeout))
			return "", nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}
