package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/placescout/engine"
	"github.com/use-agent/placescout/models"
)

// stubSession replays a scripted error per navigation; a nil entry succeeds.
type stubSession struct {
	results  []error
	calls    int
	urls     []string
	timeouts []time.Duration
}

func (s *stubSession) Intercept(engine.RequestPredicate) error { return nil }

func (s *stubSession) Navigate(ctx context.Context, u string, timeout time.Duration) (engine.Page, error) {
	s.calls++
	s.urls = append(s.urls, u)
	s.timeouts = append(s.timeouts, timeout)
	if s.calls > len(s.results) {
		return nil, errors.New("stub: no more scripted results")
	}
	if err := s.results[s.calls-1]; err != nil {
		return nil, err
	}
	page, err := engine.NewStaticPage(strings.NewReader("<html><body></body></html>"))
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (s *stubSession) Close() error { return nil }

var testQuery = models.SearchQuery{Term: "Workshop", Country: "Canada", Limit: 50}

func newTestFetcher(policy RetryPolicy) (*Fetcher, *[]time.Duration) {
	var slept []time.Duration
	f := NewFetcher("https://nominatim.openstreetmap.org/ui/search.html", policy)
	f.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return f, &slept
}

func transient() error {
	return &engine.ReadyTimeoutError{Selector: "#searchresults", Err: engine.ErrWaitTimeout}
}

func TestFetchExhaustsAttempts(t *testing.T) {
	for _, n := range []int{1, 3, 5} {
		t.Run(fmt.Sprintf("max=%d", n), func(t *testing.T) {
			results := make([]error, n)
			for i := range results {
				results[i] = transient()
			}
			sess := &stubSession{results: results}
			f, slept := newTestFetcher(RetryPolicy{MaxAttempts: n, Timeout: 70 * time.Second, Backoff: 2 * time.Second})

			page, err := f.Fetch(context.Background(), sess, testQuery)
			require.Nil(t, page)
			require.Error(t, err)
			require.Equal(t, models.ErrCodeExhausted, models.CodeOf(err))
			require.Equal(t, n, sess.calls)
			require.Len(t, *slept, n-1)

			var ready *engine.ReadyTimeoutError
			require.ErrorAs(t, err, &ready, "last failure reason should be kept")
		})
	}
}

func TestFetchSucceedsOnKthAttempt(t *testing.T) {
	sess := &stubSession{results: []error{
		&engine.NavigationError{URL: "x", Reason: "net::ERR_CONNECTION_RESET"},
		context.DeadlineExceeded,
		nil,
	}}
	f, slept := newTestFetcher(RetryPolicy{MaxAttempts: 5, Timeout: 10 * time.Second, Backoff: time.Second})

	page, err := f.Fetch(context.Background(), sess, testQuery)
	require.NoError(t, err)
	require.NotNil(t, page)
	require.Equal(t, 3, sess.calls)
	require.Equal(t, []time.Duration{time.Second, time.Second}, *slept)

	for _, d := range sess.timeouts {
		require.Equal(t, 10*time.Second, d, "timeout applies per attempt")
	}
}

func TestFetchStopsOnFatal(t *testing.T) {
	sess := &stubSession{results: []error{
		&engine.NavigationError{URL: "x", Reason: "net::ERR_NAME_NOT_RESOLVED"},
		nil,
	}}
	f, slept := newTestFetcher(RetryPolicy{MaxAttempts: 3, Timeout: time.Second})

	_, err := f.Fetch(context.Background(), sess, testQuery)
	require.Error(t, err)
	require.Equal(t, models.ErrCodeFatalFetch, models.CodeOf(err))
	require.Equal(t, 1, sess.calls)
	require.Empty(t, *slept)
}

func TestFetchRejectsBadPolicy(t *testing.T) {
	tests := []struct {
		name   string
		policy RetryPolicy
	}{
		{"zero attempts", RetryPolicy{MaxAttempts: 0, Timeout: time.Second}},
		{"negative attempts", RetryPolicy{MaxAttempts: -1, Timeout: time.Second}},
		{"zero timeout", RetryPolicy{MaxAttempts: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := &stubSession{}
			f, _ := newTestFetcher(tt.policy)
			_, err := f.Fetch(context.Background(), sess, testQuery)
			require.Equal(t, models.ErrCodeInvalidInput, models.CodeOf(err))
			require.Zero(t, sess.calls, "no navigation may happen")
		})
	}
}

func TestFetchCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sess := &stubSession{results: []error{context.Canceled}}
	f, _ := newTestFetcher(RetryPolicy{MaxAttempts: 3, Timeout: time.Second})

	_, err := f.Fetch(ctx, sess, testQuery)
	require.Equal(t, models.ErrCodeTimeout, models.CodeOf(err))
	require.Equal(t, 1, sess.calls)
}

func TestFetchURL(t *testing.T) {
	sess := &stubSession{results: []error{nil}}
	f, _ := newTestFetcher(RetryPolicy{MaxAttempts: 1, Timeout: time.Second})

	_, err := f.Fetch(context.Background(), sess, testQuery)
	require.NoError(t, err)
	require.Len(t, sess.urls, 1)

	u, err := url.Parse(sess.urls[0])
	require.NoError(t, err)
	require.Equal(t, "/ui/search.html", u.Path)
	require.Equal(t, "Workshop", u.Query().Get("q"))
	require.Equal(t, "ca", u.Query().Get("countrycodes"))
}

func TestRetryPolicyDelay(t *testing.T) {
	constant := RetryPolicy{Backoff: 2 * time.Second, Strategy: BackoffConstant}
	exp := RetryPolicy{Backoff: time.Second, MaxBackoff: 5 * time.Second, Strategy: BackoffExponential}
	uncapped := RetryPolicy{Backoff: time.Second, Strategy: BackoffExponential}

	var got []time.Duration
	for n := 0; n <= 5; n++ {
		got = append(got, constant.Delay(n))
	}
	want := []time.Duration{0, 2 * time.Second, 2 * time.Second, 2 * time.Second, 2 * time.Second, 2 * time.Second}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("constant delays (-want +got):\n%s", diff)
	}

	got = got[:0]
	for n := 1; n <= 5; n++ {
		got = append(got, exp.Delay(n))
	}
	want = []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("exponential delays (-want +got):\n%s", diff)
	}

	require.Equal(t, 16*time.Second, uncapped.Delay(5))
	require.Zero(t, RetryPolicy{}.Delay(3))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Outcome
	}{
		{"nil", nil, OutcomeSuccess},
		{"deadline", context.DeadlineExceeded, OutcomeTransient},
		{"wrapped deadline", fmt.Errorf("navigate: %w", context.DeadlineExceeded), OutcomeTransient},
		{"ready timeout", transient(), OutcomeTransient},
		{"connection reset", &engine.NavigationError{Reason: "net::ERR_CONNECTION_RESET"}, OutcomeTransient},
		{"timed out", &engine.NavigationError{Reason: "net::ERR_TIMED_OUT"}, OutcomeTransient},
		{"name not resolved", &engine.NavigationError{Reason: "net::ERR_NAME_NOT_RESOLVED"}, OutcomeFatal},
		{"blocked by client", &engine.NavigationError{Reason: "net::ERR_BLOCKED_BY_CLIENT"}, OutcomeFatal},
		{"scrape timeout code", models.NewScrapeError(models.ErrCodeTimeout, "budget", nil), OutcomeTransient},
		{"browser crash", models.NewScrapeError(models.ErrCodeBrowserCrash, "gone", nil), OutcomeFatal},
		{"canceled", context.Canceled, OutcomeFatal},
		{"unknown", errors.New("something odd"), OutcomeFatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}
