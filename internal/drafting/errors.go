package drafting

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/kalambet/parentreply/internal/anthropic"
)

var (
	// ErrMissingFields means at least one required request field is empty.
	ErrMissingFields = errors.New("missing required fields")
	// ErrUnknownParentType means the parent type is outside the personality set.
	ErrUnknownParentType = errors.New("unknown parent type")
	// ErrEmptyCompletion means the provider answered without any text.
	ErrEmptyCompletion = errors.New("provider returned no text")
)

// ProviderError reports a failed provider call. StatusCode is the provider's
// HTTP status, or 0 when the call never produced a response.
type ProviderError struct {
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider call failed with status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider call failed: %v", e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ResponseStatus is the status to surface to callers: the provider's own
// status when it is a valid error status, else 502.
func (e *ProviderError) ResponseStatus() int {
	if e.StatusCode >= 400 && e.StatusCode <= 599 {
		return e.StatusCode
	}
	return http.StatusBadGateway
}

// classify turns a provider client error into a *ProviderError when it
// belongs to the provider class. Other errors are returned unchanged.
func classify(err error) error {
	var se *anthropic.StatusError
	if errors.As(err, &se) {
		return &ProviderError{StatusCode: se.StatusCode, Err: err}
	}
	if errors.Is(err, anthropic.ErrTransport) {
		return &ProviderError{Err: err}
	}
	return err
}
