package mailbox

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// recentWindow bounds how far back the inbox scan looks. Passcodes expire
// in minutes, so anything older is noise.
const recentWindow = 10 * time.Minute

// IMAPFetcher reads recent inbox messages over IMAP with TLS. Each fetch
// opens a fresh connection; passcode polls are far apart enough that a held
// connection would only rot.
type IMAPFetcher struct {
	Addr     string // host:port, e.g. imap.gmail.com:993
	Username string
	Password string

	// FromFilter narrows the scan to senders containing this substring.
	// Empty scans everything in the window.
	FromFilter string
}

func (f *IMAPFetcher) FetchRecent(ctx context.Context) ([]string, error) {
	c, err := client.DialTLS(f.Addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing imap %s: %w", f.Addr, err)
	}
	defer c.Logout()

	if err := c.Login(f.Username, f.Password); err != nil {
		return nil, fmt.Errorf("imap login: %w", err)
	}

	mbox, err := c.Select("INBOX", true)
	if err != nil {
		return nil, fmt.Errorf("selecting inbox: %w", err)
	}
	if mbox.Messages == 0 {
		return nil, nil
	}

	// Last few messages are enough; the passcode mail is always the newest.
	from := uint32(1)
	if mbox.Messages > 10 {
		from = mbox.Messages - 9
	}
	seq := new(imap.SeqSet)
	seq.AddRange(from, mbox.Messages)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchInternalDate, section.FetchItem()}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seq, items, messages)
	}()

	cutoff := time.Now().Add(-recentWindow)
	var bodies []string
	for msg := range messages {
		if msg.InternalDate.Before(cutoff) {
			continue
		}
		if f.FromFilter != "" && !envelopeMatches(msg.Envelope, f.FromFilter) {
			continue
		}
		r := msg.GetBody(section)
		if r == nil {
			continue
		}
		raw, err := io.ReadAll(r)
		if err != nil {
			continue
		}
		bodies = append(bodies, string(raw))
	}
	if err := <-done; err != nil {
		return bodies, fmt.Errorf("fetching messages: %w", err)
	}

	// Newest first so the freshest passcode wins.
	for i, j := 0, len(bodies)-1; i < j; i, j = i+1, j-1 {
		bodies[i], bodies[j] = bodies[j], bodies[i]
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return bodies, nil
}

func envelopeMatches(env *imap.Envelope, filter string) bool {
	if env == nil {
		return false
	}
	filter = strings.ToLower(filter)
	for _, addr := range env.From {
		if strings.Contains(strings.ToLower(addr.Address()), filter) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(env.Subject), filter)
}
