package providers

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy shared by all adapters.
type ErrorCategory string

const (
	ErrorTimeout        ErrorCategory = "timeout"
	ErrorBadData        ErrorCategory = "bad_data"
	ErrorAuthentication ErrorCategory = "authentication"
	ErrorRateLimited    ErrorCategory = "rate_limited"
	ErrorProviderOutage ErrorCategory = "provider_outage"
	ErrorInvalidRequest ErrorCategory = "invalid_request"
	ErrorRefused        ErrorCategory = "refused"
	ErrorNotConfigured  ErrorCategory = "not_configured"
	ErrorInternal       ErrorCategory = "internal"
)

// ProviderError is a backend failure with a normalized category. Retryable is
// advisory only; retry policy belongs to the caller.
type ProviderError struct {
	Category   ErrorCategory
	Provider   Provider
	Message    string
	Underlying error
	Retryable  bool
}

func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("provider %s [%s]: %s: %v", e.Provider, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("provider %s [%s]: %s", e.Provider, e.Category, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// NewProviderError marks timeouts, outages and rate limits as retryable.
func NewProviderError(category ErrorCategory, p Provider, message string, underlying error) *ProviderError {
	return &ProviderError{
		Category:   category,
		Provider:   p,
		Message:    message,
		Underlying: underlying,
		Retryable:  category == ErrorTimeout || category == ErrorProviderOutage || category == ErrorRateLimited,
	}
}

func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

func GetCategory(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ErrorInternal
}
