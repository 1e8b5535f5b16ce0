package mailbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCode(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "labeled passcode",
			body: "Hello,\n\nYour one time passcode: 482913\n\nThis code expires in 10 minutes.",
			want: "482913",
		},
		{
			name: "labeled code four digits",
			body: "Use code: 7741 to continue.",
			want: "7741",
		},
		{
			name: "labeled otp",
			body: "OTP: 135790",
			want: "135790",
		},
		{
			name: "digits before keyword",
			body: "295137 is your verification passcode for today.",
			want: "295137",
		},
		{
			name: "digits on earlier line do not outrank labeled code",
			body: "Your order #4521 shipped yesterday.\n295137 is your verification code.",
			want: "295137",
		},
		{
			name: "code wrapped in html tags",
			body: `<html><body><p>Enter this to verify:</p><b>567890</b></body></html>`,
			want: "567890",
		},
		{
			name: "bare six digit fallback",
			body: "Your passcode is 482913",
			want: "482913",
		},
		{
			name: "no digits at all",
			body: "Thanks for signing up. See you soon.",
			want: "",
		},
		{
			name: "short number ignored by fallback",
			body: "Your order #123 shipped.",
			want: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractCode(tc.body))
		})
	}
}

// stubFetcher returns a scripted sequence of poll results.
type stubFetcher struct {
	batches [][]string
	errs    []error
	calls   int
}

func (s *stubFetcher) FetchRecent(ctx context.Context) ([]string, error) {
	i := s.calls
	s.calls++
	var bodies []string
	if i < len(s.batches) {
		bodies = s.batches[i]
	}
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return bodies, err
}

func TestRetrieve_CodeArrivesOnLaterPoll(t *testing.T) {
	fetcher := &stubFetcher{
		batches: [][]string{
			nil,
			{"Welcome! Your account is ready."},
			{"Your one time passcode: 662418"},
		},
	}
	r := NewRetriever(fetcher, nil)

	code, err := r.Retrieve(context.Background(), time.Second, 5*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "662418", code)
	assert.Equal(t, 3, fetcher.calls)
}

func TestRetrieve_KeepsPollingThroughFetchErrors(t *testing.T) {
	fetcher := &stubFetcher{
		batches: [][]string{nil, {"code: 9021"}},
		errs:    []error{errors.New("imap: connection reset")},
	}
	r := NewRetriever(fetcher, nil)

	code, err := r.Retrieve(context.Background(), time.Second, 5*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "9021", code)
}

func TestRetrieve_TimeoutReturnsEmptyWithoutError(t *testing.T) {
	fetcher := &stubFetcher{}
	r := NewRetriever(fetcher, nil)

	code, err := r.Retrieve(context.Background(), 20*time.Millisecond, 5*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, code)
	assert.GreaterOrEqual(t, fetcher.calls, 2)
}

func TestRetrieve_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &stubFetcher{}
	r := NewRetriever(fetcher, nil)

	_, err := r.Retrieve(ctx, time.Minute, 10*time.Millisecond)
	assert.ErrorIs(t, err, context.Canceled)
}
