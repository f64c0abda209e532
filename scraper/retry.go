package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/use-agent/placescout/config"
	"github.com/use-agent/placescout/engine"
	"github.com/use-agent/placescout/models"
)

// BackoffStrategy selects how the delay between attempts grows.
type BackoffStrategy string

const (
	BackoffConstant    BackoffStrategy = "constant"
	BackoffExponential BackoffStrategy = "exponential"
)

// RetryPolicy configures the navigation retry loop.
type RetryPolicy struct {
	MaxAttempts int           // total attempts, first included; must be >= 1
	Timeout     time.Duration // per attempt, not cumulative
	Backoff     time.Duration // delay before the first retry
	MaxBackoff  time.Duration // cap for exponential growth; 0 = uncapped
	Strategy    BackoffStrategy
}

// PolicyFromConfig builds a RetryPolicy from the scraper settings.
func PolicyFromConfig(cfg config.ScraperConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		Timeout:     cfg.AttemptTimeout,
		Backoff:     cfg.Backoff,
		MaxBackoff:  cfg.MaxBackoff,
		Strategy:    BackoffStrategy(cfg.BackoffStrategy),
	}
}

// Delay returns the wait before retry number n (n=1 precedes the second attempt).
func (p RetryPolicy) Delay(n int) time.Duration {
	if n < 1 || p.Backoff <= 0 {
		return 0
	}
	if p.Strategy != BackoffExponential {
		return p.Backoff
	}
	d := p.Backoff
	for i := 1; i < n; i++ {
		d *= 2
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

// Outcome is the classification of a single navigation attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeTransient
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTransient:
		return "transient"
	default:
		return "fatal"
	}
}

// Chromium net errors worth another attempt.
var transientReasons = []string{
	"ERR_CONNECTION_RESET",
	"ERR_CONNECTION_CLOSED",
	"ERR_CONNECTION_REFUSED",
	"ERR_CONNECTION_ABORTED",
	"ERR_CONNECTION_TIMED_OUT",
	"ERR_TIMED_OUT",
	"ERR_NETWORK_CHANGED",
	"ERR_INTERNET_DISCONNECTED",
	"ERR_EMPTY_RESPONSE",
	"ERR_HTTP2_PROTOCOL_ERROR",
	"ERR_SSL_PROTOCOL_ERROR",
	"ERR_ABORTED",
}

// Classify maps an attempt's error to an Outcome. Timeouts, connection-level
// net errors and a missing readiness signal are transient; everything else,
// unknown errors included, is fatal.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}
	if errors.Is(err, context.Canceled) {
		return OutcomeFatal
	}

	var ready *engine.ReadyTimeoutError
	if errors.As(err, &ready) || errors.Is(err, context.DeadlineExceeded) {
		return OutcomeTransient
	}

	var nav *engine.NavigationError
	if errors.As(err, &nav) {
		for _, reason := range transientReasons {
			if strings.Contains(nav.Reason, reason) {
				return OutcomeTransient
			}
		}
		return OutcomeFatal
	}

	switch models.CodeOf(err) {
	case models.ErrCodeTimeout, models.ErrCodeNavigation:
		return OutcomeTransient
	}
	return OutcomeFatal
}

// Fetcher drives a session through bounded navigation attempts.
type Fetcher struct {
	baseURL string
	policy  RetryPolicy

	// sleep waits between attempts; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewFetcher creates a Fetcher for the search UI at baseURL.
func NewFetcher(baseURL string, policy RetryPolicy) *Fetcher {
	return &Fetcher{baseURL: baseURL, policy: policy, sleep: sleepCtx}
}

// Policy returns the retry policy in use.
func (f *Fetcher) Policy() RetryPolicy { return f.policy }

// Fetch navigates session to the search URL for q. It returns on the first
// success, on the first fatal failure, or after MaxAttempts transient
// failures with an ErrCodeExhausted error carrying the last reason.
func (f *Fetcher) Fetch(ctx context.Context, session engine.Session, q models.SearchQuery) (engine.Page, error) {
	if f.policy.MaxAttempts <= 0 {
		return nil, models.ConfigError("max attempts must be at least 1, got %d", f.policy.MaxAttempts)
	}
	if f.policy.Timeout <= 0 {
		return nil, models.ConfigError("attempt timeout must be positive, got %s", f.policy.Timeout)
	}

	target, err := BuildSearchURL(f.baseURL, q)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= f.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := f.policy.Delay(attempt - 1)
			slog.Debug("waiting before retry", "attempt", attempt, "delay", delay)
			if err := f.sleep(ctx, delay); err != nil {
				return nil, models.NewScrapeError(models.ErrCodeTimeout, "canceled while waiting to retry", err)
			}
		}

		slog.Info("navigating", "url", target, "attempt", attempt, "max", f.policy.MaxAttempts)
		page, err := session.Navigate(ctx, target, f.policy.Timeout)
		if err == nil {
			return page, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, models.NewScrapeError(models.ErrCodeTimeout, "run canceled during navigation", err)
		}

		outcome := Classify(err)
		slog.Warn("navigation attempt failed",
			"url", target,
			"attempt", attempt,
			"max", f.policy.MaxAttempts,
			"outcome", outcome.String(),
			"error", err,
		)
		if outcome == OutcomeFatal {
			return nil, models.NewScrapeError(
				models.ErrCodeFatalFetch,
				fmt.Sprintf("unretryable failure on attempt %d", attempt),
				err,
			)
		}
	}

	return nil, models.NewScrapeError(
		models.ErrCodeExhausted,
		fmt.Sprintf("gave up after %d attempts", f.policy.MaxAttempts),
		lastErr,
	)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
