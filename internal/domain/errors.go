package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrDecode      = errors.New("image decode failed")
	ErrValidation  = errors.New("provider rejected request")
	ErrAuth        = errors.New("provider authentication failed")
	ErrRateLimited = errors.New("provider rate limited")
	ErrConnection  = errors.New("provider connection failed")
	ErrDownload    = errors.New("result download failed")
	ErrParse       = errors.New("model reply parse failed")
)

// ProviderError attaches provider diagnostics to one of the sentinel kinds
// above. RetryAfter is non-zero only when the provider declared a reset hint
// alongside a rate limit.
type ProviderError struct {
	Kind       error
	Provider   string
	Message    string
	StatusCode int
	RetryAfter time.Duration
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (http %d)", e.Provider, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Kind
}
