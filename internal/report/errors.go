package report

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoAPIKey is returned when the generator has no API key configured.
	ErrNoAPIKey = errors.New("report: API key required")

	// ErrEmptyResponse is returned when the API answers without any text.
	ErrEmptyResponse = errors.New("report: no response content")

	// ErrClosed is returned by Dispatch after Close.
	ErrClosed = errors.New("report: dispatcher closed")
)

// APIError represents an error response from the text generation API.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("report: API error %d: %s", e.StatusCode, e.Message)
}

// IsRateLimited returns true for HTTP 429.
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == 429
}

// IsUnauthorized returns true for HTTP 401 and 403.
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// failureReason classifies a generation error for logging.
func failureReason(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.IsUnauthorized():
			return "unauthorized"
		case apiErr.IsRateLimited():
			return "rate_limited"
		}
		return "api_error"
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrEmptyResponse):
		return "empty_response"
	}
	return "error"
}
