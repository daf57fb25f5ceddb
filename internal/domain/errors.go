package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Failure taxonomy of a synthesis run. Only ErrAllProvidersExhausted reaches the
// caller, and only through SynthesisResult.Err.
var (
	ErrProviderUnavailable   = errors.New("provider unavailable")
	ErrProviderTimeout       = errors.New("provider timeout")
	ErrProviderError         = errors.New("provider error")
	ErrStreamInterrupted     = errors.New("stream interrupted")
	ErrAllProvidersExhausted = errors.New("all providers exhausted")
)

// ProviderError wraps a backend failure with status metadata.
type ProviderError struct {
	Provider  string
	Status    int
	Temporary bool
	Err       error
}

// NewProviderError wraps err for the named provider.
func NewProviderError(provider string, status int, err error) *ProviderError {
	return &ProviderError{
		Provider:  provider,
		Status:    status,
		Temporary: status == http.StatusTooManyRequests || status >= http.StatusInternalServerError,
		Err:       err,
	}
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: provider error (status=%d)", e.Provider, e.Status)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is lets errors.Is(err, ErrProviderError) match any *ProviderError.
func (e *ProviderError) Is(target error) bool {
	return target == ErrProviderError
}

// IsTimeout reports whether err came from an exceeded deadline.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrProviderTimeout) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
