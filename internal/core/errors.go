// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Backend errors
	ErrFetchFailed   = &Error{Code: "FETCH_FAILED", Message: "failed to fetch breakouts"}
	ErrStatusFailed  = &Error{Code: "STATUS_FAILED", Message: "failed to fetch system status"}
	ErrDismissFailed = &Error{Code: "DISMISS_FAILED", Message: "failed to dismiss breakout"}
	ErrRestoreFailed = &Error{Code: "RESTORE_FAILED", Message: "failed to restore breakout"}

	// Input errors
	ErrInvalidKey     = &Error{Code: "INVALID_KEY", Message: "invalid dismiss key"}
	ErrInvalidRequest = &Error{Code: "INVALID_REQUEST", Message: "invalid request"}
	ErrUnknownGroup   = &Error{Code: "UNKNOWN_GROUP", Message: "unknown breakout group"}

	// Feed errors
	ErrFeedStopped = &Error{Code: "FEED_STOPPED", Message: "feed synchronizer stopped"}

	// Notifier errors
	ErrNotifierFailed = &Error{Code: "NOTIFIER_FAILED", Message: "notifier failed"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}
)
