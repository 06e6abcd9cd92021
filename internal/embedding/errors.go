package embedding

import (
	"errors"
	"fmt"
	"net/http"
)

// Input validation errors. Fatal: never retried.
var (
	ErrEmptyInput   = errors.New("embedding input is empty")
	ErrInputTooLong = errors.New("embedding input exceeds maximum length")
)

// ErrorKind classifies a provider failure for retry decisions.
type ErrorKind string

const (
	KindRateLimit  ErrorKind = "rate_limit"
	KindAuth       ErrorKind = "auth"
	KindValidation ErrorKind = "validation"
	KindTransient  ErrorKind = "transient"
)

// ProviderError is a failure reported by the remote embedding provider.
type ProviderError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("embedding provider: %s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("embedding provider: %s: %s", e.Kind, e.Message)
}

// Retryable reports whether the failure is transient. Rate limits and
// 5xx/network failures are retried; auth and validation failures are not.
func (e *ProviderError) Retryable() bool {
	return e.Kind == KindRateLimit || e.Kind == KindTransient
}

// classifyStatus maps an HTTP status to an error kind.
func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status >= 400 && status < 500:
		return KindValidation
	default:
		return KindTransient
	}
}

// IsRetryable reports whether err should be retried under the shared retry
// policy. Network-level failures without a ProviderError are transient.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrEmptyInput) || errors.Is(err, ErrInputTooLong) {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	return true
}
