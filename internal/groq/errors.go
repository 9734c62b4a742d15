package groq

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	KindAuthentication ErrorKind = "authentication"
	KindRateLimit      ErrorKind = "rate_limit"
	KindTransport      ErrorKind = "transport"
)

var (
	ErrAuthentication = errors.New("groq authentication failed")
	ErrRateLimit      = errors.New("groq rate limit exceeded")
	ErrTransport      = errors.New("groq transport failure")
)

// Error is returned by HTTPClient for every failed completion.
type Error struct {
	Kind   ErrorKind
	Status int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := "groq " + string(e.Kind)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrAuthentication:
		return e.Kind == KindAuthentication
	case ErrRateLimit:
		return e.Kind == KindRateLimit
	case ErrTransport:
		return e.Kind == KindTransport
	}
	return false
}

// KindOf returns the failure kind, or "" for errors not raised by a client.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Retryable reports whether asking again later may succeed.
func Retryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case KindRateLimit:
		return true
	case KindTransport:
		return e.Status == 0 || isRetryableHTTPStatus(e.Status)
	default:
		return false
	}
}

func classifyStatus(code int) ErrorKind {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuthentication
	case http.StatusTooManyRequests:
		return KindRateLimit
	default:
		return KindTransport
	}
}

func isRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
