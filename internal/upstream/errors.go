package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors mapped from upstream HTTP status codes. Handlers branch on
// these with errors.Is; ErrUnauthorized additionally triggers session
// teardown wherever it surfaces.
var (
	ErrUnauthorized = errors.New("upstream rejected authentication")
	ErrForbidden    = errors.New("upstream denied permission")
	ErrNotFound     = errors.New("upstream resource not found")
	ErrConflict     = errors.New("upstream reported a conflict")
)

// APIError is a non-2xx upstream response carrying the message the upstream
// chose to report, so call sites can surface it verbatim.
type APIError struct {
	Status               int
	Message              string
	RequiresVerification bool
	Email                string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("upstream error %d", e.Status)
}

// Unwrap maps well-known statuses onto the package sentinels.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	}
	return nil
}

// Message extracts the upstream-supplied message from err, falling back to
// the given default. Call sites use this to pick user-facing text.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
