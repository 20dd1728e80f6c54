package harvest

import (
	"errors"
	"fmt"

	"github.com/webharvest/harvest-client/pkg/transport"
)

// Sentinel errors for the harvest layer.
var (
	// ErrInvalidToken is returned on HTTP 401: the API token is bad.
	ErrInvalidToken = errors.New("invalid API token")

	// ErrRateLimitExceeded is returned on HTTP 429: the server-side quota was
	// breached despite client-side pacing.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInvalidJSON is returned when a response body does not decode as the
	// expected JSON envelope.
	ErrInvalidJSON = errors.New("invalid JSON envelope")

	// ErrExhaustedPagination signals that the current partition's natural end
	// was reached: the page held no items. It is a control signal, not a
	// failure; the Iterator catches it internally and it never escapes to the
	// harvest caller.
	ErrExhaustedPagination = errors.New("pagination exhausted")

	// ErrMissingStartDate is returned when a partition strategy requiring a
	// start date is requested without one.
	ErrMissingStartDate = errors.New("partition strategy requires a start date")

	// ErrUnsupportedFormat is returned for an unknown output format.
	ErrUnsupportedFormat = errors.New("unsupported output format")
)

// InvalidRequestError carries the upstream error envelope of a rejected
// query (any status >= 400 other than 401/429).
type InvalidRequestError struct {
	Message string
	Code    int
	Status  int
}

// Error implements the error interface.
func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request (status %d, code %d): %s", e.Status, e.Code, e.Message)
}

// Code maps any error raised during a harvest to a stable string code for
// report columns and metric labels. The mapping is exhaustive over the
// harvest and transport taxonomies; everything else reports as "generic".
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidToken):
		return "invalid-token"
	case errors.Is(err, ErrRateLimitExceeded):
		return "rate-limit-exceeded"
	case errors.Is(err, ErrInvalidJSON):
		return "invalid-json"
	case errors.Is(err, ErrExhaustedPagination):
		return "exhausted-pagination"
	case errors.Is(err, ErrMissingStartDate):
		return "missing-start-date"
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported-format"
	}

	var reqErr *InvalidRequestError
	if errors.As(err, &reqErr) {
		return "invalid-request"
	}

	return transport.ErrorCode(err)
}
