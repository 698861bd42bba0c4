package upbank

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidTokenFormat is returned before any network call when a token
// does not look like an Up personal access token.
var ErrInvalidTokenFormat = errors.New(`invalid token format: expected "up:yeah:<token>" with an alphanumeric token part`)

// APIError is a non-2xx response from the Up API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("up api: %s (status %d)", e.Message, e.StatusCode)
}

// IsAuthError reports whether err means the credential is invalid or
// expired. Callers must re-prompt for a token on auth errors; retrying with
// the same token cannot succeed.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
	}
	return false
}

// IsTransient reports whether err is worth retrying with the same
// credential: rate limiting, server errors, or a failure before any HTTP
// status was received (network errors, timeouts).
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return err != nil && !errors.Is(err, ErrInvalidTokenFormat)
}
