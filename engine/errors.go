package engine

import (
	"errors"
	"fmt"
)

// ErrWaitTimeout is returned by Page.WaitFor when the selector never matched.
var ErrWaitTimeout = errors.New("engine: wait for selector timed out")

// NavigationError reports a navigation the browser refused or could not
// complete. Reason carries the Chromium net error (e.g. "net::ERR_NAME_NOT_RESOLVED").
type NavigationError struct {
	URL    string
	Reason string
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigate %s: %s", e.URL, e.Reason)
}

// ReadyTimeoutError reports a navigation that completed but whose readiness
// selector never appeared within the attempt timeout.
type ReadyTimeoutError struct {
	Selector string
	Err      error
}

func (e *ReadyTimeoutError) Error() string {
	return fmt.Sprintf("ready selector %q did not appear: %v", e.Selector, e.Err)
}

func (e *ReadyTimeoutError) Unwrap() error { return e.Err }
