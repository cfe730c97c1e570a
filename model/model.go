package model

import (
	"errors"
	"fmt"
	"strings"
)

// Defaults shared by the live providers.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2048
)

// Info contains metadata about a provider implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// Describer is implemented by providers that can report their model.
type Describer interface {
	Info() Info
}

// ErrEmptyCompletion is reported when a provider returns blank text.
var ErrEmptyCompletion = errors.New("empty completion")

// ProviderError describes a failed call to a reasoning provider.
type ProviderError struct {
	Provider   string `json:"provider"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code,omitempty"`
	Retryable  bool   `json:"retryable"`
	Cause      error  `json:"-"`
}

func (e *ProviderError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s provider error", e.Provider)
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " (status %d)", e.StatusCode)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error { return e.Cause }

// NewProviderError wraps cause. Server side failures (5xx), rate limits and
// transport errors without a status are considered retryable.
func NewProviderError(provider string, status int, cause error) *ProviderError {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return &ProviderError{
		Provider:   provider,
		Message:    msg,
		StatusCode: status,
		Retryable:  status == 0 || status == 429 || status >= 500,
		Cause:      cause,
	}
}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return true
}
