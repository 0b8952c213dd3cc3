package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredentials is returned when a vendor's API key or secret
	// is not configured. Servers report it as 500 "API credentials not configured".
	ErrMissingCredentials = errors.New("API credentials not configured")

	// ErrInvalidResponse is returned when a vendor answers with a body that
	// cannot be parsed.
	ErrInvalidResponse = errors.New("invalid response from vendor")

	// ErrVendorFailure is returned when a vendor reports failure in a
	// successful HTTP response.
	ErrVendorFailure = errors.New("vendor reported failure")

	// ErrUnknownProvider is returned by Set.Get for unregistered names.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrInvalidProxy is returned when the egress proxy URL cannot be used.
	ErrInvalidProxy = errors.New("invalid egress proxy")
)

// APIError is a non-2xx vendor response.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

// Error formats the error as "HTTP <code>: <body>".
func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}
