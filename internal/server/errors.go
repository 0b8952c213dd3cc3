package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/nao1215/deepscan/internal/database"
	"github.com/nao1215/deepscan/internal/describe"
	"github.com/nao1215/deepscan/internal/media"
	"github.com/nao1215/deepscan/internal/provider"
)

// Messages returned to clients for well-known failures.
const (
	msgNoImage        = "No image provided"
	msgInvalidJSON    = "Invalid JSON body"
	msgInvalidBase64  = "Image is not valid base64"
	msgTooLarge       = "Image too large"
	msgNotImage       = "Payload is not an image"
	msgNoCredentials  = "API credentials not configured"
	msgNotFound       = "Analysis not found"
	msgHistoryOff     = "History is disabled"
	msgInvalidLimit   = "limit must be a positive integer"
	msgUnknownService = "Provider not available"
)

// errorResponse is the JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps an error to a status code and client message.
func statusFor(err error) (int, string) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, media.ErrNoMedia), errors.Is(err, media.ErrEmptyImage):
		return http.StatusBadRequest, msgNoImage
	case errors.Is(err, media.ErrInvalidBase64):
		return http.StatusBadRequest, msgInvalidBase64
	case errors.Is(err, media.ErrNotImage):
		return http.StatusBadRequest, msgNotImage
	case errors.Is(err, media.ErrTooLarge), errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge, msgTooLarge
	case errors.Is(err, provider.ErrMissingCredentials), errors.Is(err, describe.ErrDisabled):
		return http.StatusInternalServerError, msgNoCredentials
	case errors.Is(err, provider.ErrUnknownProvider):
		return http.StatusBadRequest, msgUnknownService
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound, msgNotFound
	default:
		return http.StatusInternalServerError, vendorMessage(err)
	}
}

// vendorMessage returns the innermost provider message, without the step
// prefixes added while the error travelled through the pipeline.
func vendorMessage(err error) string {
	var apiErr *provider.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	msg := err.Error()
	for _, sentinel := range []error{provider.ErrVendorFailure, provider.ErrInvalidResponse} {
		if !errors.Is(err, sentinel) {
			continue
		}
		prefix := sentinel.Error() + ": "
		if i := strings.Index(msg, prefix); i >= 0 {
			return msg[i+len(prefix):]
		}
	}
	return msg
}

func respondJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data) //nolint:errcheck // client went away
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, errorResponse{Error: message}, status)
}
