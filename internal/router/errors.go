package router

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/binarjoin/agent-engine/pkg/models"
)

// ErrNoProviders is returned when the router has no configured providers.
var ErrNoProviders = errors.New("no AI providers configured: set at least one provider API key")

// ProviderError is a failed call to one provider.
type ProviderError struct {
	Provider   models.ProviderKind
	StatusCode int // 0 when the failure happened before an HTTP response
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ExhaustedError is returned when every candidate provider was skipped or failed.
type ExhaustedError struct {
	Attempted int
	Last      error
}

func (e *ExhaustedError) Error() string {
	if e.Last == nil {
		return "all AI providers are unavailable"
	}
	return fmt.Sprintf("all AI providers failed (%d attempted), last error: %v", e.Attempted, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

var quotaMarkers = []string{"rate limit", "quota", "resource_exhausted", "too many requests"}

// IsQuotaError reports whether err signals a rate limit or exhausted quota.
// Those failures take the provider out of rotation until the cooldown ends.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) && pe.StatusCode == http.StatusTooManyRequests {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range quotaMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
