package driver

import (
	"errors"
	"fmt"
)

// NavigationTimeoutError indicates a page failed to load or render in
// time. Retryable.
type NavigationTimeoutError struct {
	URL string
	Err error
}

func (e *NavigationTimeoutError) Error() string {
	return fmt.Sprintf("navigation timeout: %s: %v", e.URL, e.Err)
}

func (e *NavigationTimeoutError) Unwrap() error { return e.Err }

// SelectorNotFoundError indicates an expected container never
// appeared. After retries this may mean "no results" or "site markup
// changed"; the caller decides.
type SelectorNotFoundError struct {
	Selector string
	Err      error
}

func (e *SelectorNotFoundError) Error() string {
	return fmt.Sprintf("selector not found: %s: %v", e.Selector, e.Err)
}

func (e *SelectorNotFoundError) Unwrap() error { return e.Err }

// SessionFatalError indicates the automation session itself could not
// be created or has died. It aborts only the adapter that owns it.
type SessionFatalError struct {
	Err error
}

func (e *SessionFatalError) Error() string {
	return fmt.Sprintf("session fatal: %v", e.Err)
}

func (e *SessionFatalError) Unwrap() error { return e.Err }

// Retryable reports whether another navigation attempt is worthwhile.
// Timeouts and missing selectors are transient on flaky or rate-limited
// sites; a dead session is not.
func Retryable(err error) bool {
	var fatal *SessionFatalError
	return !errors.As(err, &fatal)
}
