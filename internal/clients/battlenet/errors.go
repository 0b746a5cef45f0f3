package battlenet

import (
	"errors"
	"fmt"
	"net/http"
)

// AuthError is returned when an application token cannot be obtained.
type AuthError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("battle.net auth error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("battle.net auth error: %s (status: %d)", e.Message, e.StatusCode)
}

func (e *AuthError) Unwrap() error { return e.Err }

// UpstreamError is returned for any non-2xx API response.
type UpstreamError struct {
	StatusCode int
	Status     string
	URL        string
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("battle.net API error: %s (status: %d, url: %s)", e.Status, e.StatusCode, e.URL)
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.StatusCode == http.StatusNotFound
}

// StatusCode extracts the upstream status from err, or 0.
func StatusCode(err error) int {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.StatusCode
	}
	return 0
}
