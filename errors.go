package oauth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind classifies every failure the engine returns.
type ErrorKind int

const (
	// KindInvalidConfiguration is malformed caller input, detected before any network call
	KindInvalidConfiguration ErrorKind = iota + 1
	// KindCSRFMismatch means the returned state did not match the issued nonce
	KindCSRFMismatch
	// KindInvalidToken means the provider declared the access token invalid or expired
	KindInvalidToken
	// KindNoRefreshToken means a refresh was attempted on a token that never received one
	KindNoRefreshToken
	// KindRefreshFailed means the provider rejected the refresh token
	KindRefreshFailed
	// KindProviderError is any other non-2xx provider response with a parseable body
	KindProviderError
	// KindRequestFailed is a transport failure or an unparseable response
	KindRequestFailed
	// KindFlowAlreadyCompleted means a one-shot flow was used again
	KindFlowAlreadyCompleted
	// KindPollTooSoon means a device code was polled faster than the interval
	KindPollTooSoon
	// KindExpired means the device code lifetime elapsed
	KindExpired
	// KindAccessDenied means the user declined the authorization
	KindAccessDenied
	// KindInvalidFlowState means an operation was called before the flow reached the required step
	KindInvalidFlowState
	// KindTokenUnusable means the token was revoked or needs re-authentication
	KindTokenUnusable
)

var kindNames = map[ErrorKind]string{
	KindInvalidConfiguration: "invalid_configuration",
	KindCSRFMismatch:         "csrf_mismatch",
	KindInvalidToken:         "invalid_token",
	KindNoRefreshToken:       "no_refresh_token",
	KindRefreshFailed:        "refresh_failed",
	KindProviderError:        "provider_error",
	KindRequestFailed:        "request_failed",
	KindFlowAlreadyCompleted: "flow_already_completed",
	KindPollTooSoon:          "poll_too_soon",
	KindExpired:              "expired",
	KindAccessDenied:         "access_denied",
	KindInvalidFlowState:     "invalid_flow_state",
	KindTokenUnusable:        "token_unusable",
}

// String returns the snake_case name used in logs and metrics
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Error is the error type returned by every engine operation.
//
// Status and Message carry the provider's diagnostic detail when the failure came
// from a provider response. Err holds the underlying cause (e.g. the transport
// error) and is reachable through errors.Unwrap. No field ever contains a secret.
type Error struct {
	Kind    ErrorKind
	Op      string // operation, e.g. "validate", "refresh", "exchange"
	Status  int    // provider HTTP status, 0 if no response
	Message string // provider message, truncated and sanitized
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("oauth: ")
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind, so that
// errors.Is(err, ErrInvalidToken) matches any invalid token failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Retryable reports whether repeating the same operation may succeed:
// transport failures, provider throttling and provider server errors.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindRequestFailed:
		return true
	case KindProviderError:
		return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
	default:
		return false
	}
}

// Sentinel errors for use with errors.Is. They compare by kind only.
var (
	ErrInvalidConfiguration = &Error{Kind: KindInvalidConfiguration}
	ErrCSRFMismatch         = &Error{Kind: KindCSRFMismatch}
	ErrInvalidToken         = &Error{Kind: KindInvalidToken}
	ErrNoRefreshToken       = &Error{Kind: KindNoRefreshToken}
	ErrRefreshFailed        = &Error{Kind: KindRefreshFailed}
	ErrProviderError        = &Error{Kind: KindProviderError}
	ErrRequestFailed        = &Error{Kind: KindRequestFailed}
	ErrFlowAlreadyCompleted = &Error{Kind: KindFlowAlreadyCompleted}
	ErrPollTooSoon          = &Error{Kind: KindPollTooSoon}
	ErrExpired              = &Error{Kind: KindExpired}
	ErrAccessDenied         = &Error{Kind: KindAccessDenied}
	ErrInvalidFlowState     = &Error{Kind: KindInvalidFlowState}
	ErrTokenUnusable        = &Error{Kind: KindTokenUnusable}
)

// KindOf returns the kind of err, or 0 if err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsRetryable reports whether err is an *Error whose operation may be retried.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable()
}

func newError(kind ErrorKind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func configError(op, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidConfiguration, Op: op, Message: fmt.Sprintf(format, args...)}
}
