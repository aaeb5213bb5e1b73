package doimeta

import (
	"errors"
	"fmt"
)

// Common errors returned by the metadata clients.
var (
	// ErrNotFound indicates the DOI is unknown to the service.
	ErrNotFound = errors.New("DOI not found")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error reaching metadata service")

	// ErrInvalidResponse indicates an unexpected service response.
	ErrInvalidResponse = errors.New("invalid response from metadata service")

	// ErrRateLimited indicates the service rejected the request for rate.
	ErrRateLimited = errors.New("metadata service rate limit exceeded")
)

// APIError carries the HTTP status of a failed metadata request.
type APIError struct {
	Service    string
	StatusCode int
	DOI        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s error (status %d) for DOI %s", e.Service, e.StatusCode, e.DOI)
}

// IsNotFound returns true if the error indicates an unresolvable DOI.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404
	}
	return false
}
