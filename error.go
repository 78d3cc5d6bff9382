package doccrawl

import (
	"context"
	"errors"
	"fmt"
)

// Application error codes.
const (
	EINVALID  = "invalid"
	ENOTFOUND = "not_found"
	EINTERNAL = "internal"
)

// Error represents an application-specific error.
type Error struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("doccrawl error: code=%s message=%s", e.Code, e.Message)
}

// Errorf is a helper function to return an Error with a given code and formatted message.
func Errorf(code string, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// ErrorCode unwraps an application error and returns its code.
// Configuration and extraction errors report EINVALID, fetch errors report
// EINTERNAL. Non-application errors always return EINTERNAL.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return EINVALID
	}
	var extErr *ExtractionError
	if errors.As(err, &extErr) {
		return EINVALID
	}
	return EINTERNAL
}

// ErrorMessage unwraps an application error and returns its message.
// Non-application errors always return "Internal error".
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return cfgErr.Message
	}
	var extErr *ExtractionError
	if errors.As(err, &extErr) {
		return extErr.Error()
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Error()
	}
	return "Internal error"
}

// FetchErrorKind categorizes a failed fetch.
type FetchErrorKind string

// Fetch error kinds.
const (
	FetchTimeout           FetchErrorKind = "timeout"
	FetchConnectionRefused FetchErrorKind = "connection-refused"
	FetchDNSFailure        FetchErrorKind = "dns-failure"
	FetchBadStatus         FetchErrorKind = "bad-status"
	FetchTooLarge          FetchErrorKind = "too-large"
	// FetchNetwork covers transport failures that fit no other kind
	// (TLS errors, connection resets, malformed responses).
	FetchNetwork FetchErrorKind = "network"
)

// FetchError is returned by Fetcher implementations when a page cannot be retrieved.
type FetchError struct {
	Kind       FetchErrorKind
	URL        string
	StatusCode int // set for FetchBadStatus
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchBadStatus:
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	default:
		if e.Err != nil {
			return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
		}
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
	}
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Transient reports whether the failure may succeed when retried.
// Timeouts and refused connections are transient, as are 429 and 5xx
// statuses. Every other 4xx status and all remaining kinds are permanent.
func (e *FetchError) Transient() bool {
	switch e.Kind {
	case FetchTimeout, FetchConnectionRefused:
		return true
	case FetchBadStatus:
		return e.StatusCode == 429 || e.StatusCode >= 500
	default:
		return false
	}
}

// IsTransient reports whether err is a FetchError worth retrying.
// Context cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Transient()
	}
	return false
}

// FetchErrorKindOf returns the kind of the FetchError wrapped by err,
// or an empty kind if err is not a FetchError.
func FetchErrorKindOf(err error) FetchErrorKind {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Kind
	}
	return ""
}

// ExtractionError is returned when a fetched payload cannot be turned into text.
type ExtractionError struct {
	URL    string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s: unparseable: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("extract %s: unparseable: %s", e.URL, e.Reason)
}

// Unwrap returns the underlying error.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// ConfigErrorKind categorizes an invalid crawl configuration.
type ConfigErrorKind string

// Configuration error kinds.
const (
	ConfigInvalidURL         ConfigErrorKind = "invalid-url"
	ConfigInvalidDepth       ConfigErrorKind = "invalid-depth"
	ConfigInvalidConcurrency ConfigErrorKind = "invalid-concurrency"
	ConfigInvalidChunking    ConfigErrorKind = "invalid-chunking"
	ConfigInvalidOption      ConfigErrorKind = "invalid-option"
)

// ConfigError is the only error that aborts a crawl run.
// It is always returned before any fetch begins.
type ConfigError struct {
	Kind    ConfigErrorKind
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration (%s): %s", e.Kind, e.Message)
}

func configErrorf(kind ConfigErrorKind, format string, args ...any) *ConfigError {
	return &ConfigError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// FailureKind names the failure class of a page error for statistics:
// the FetchErrorKind for fetch failures, "unparseable" for extraction
// failures and "other" for anything else.
func FailureKind(err error) string {
	if kind := FetchErrorKindOf(err); kind != "" {
		return string(kind)
	}
	var extErr *ExtractionError
	if errors.As(err, &extErr) {
		return "unparseable"
	}
	return "other"
}
