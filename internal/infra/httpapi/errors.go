package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"govee-bar/internal/application"
	"govee-bar/internal/domain"
	"govee-bar/internal/infra/govee"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // connection may already be gone
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// statusFor maps an operation error to the HTTP status the API reports.
func statusFor(err error) int {
	var rejected *govee.APIRejectedError
	var remote *govee.RemoteError

	switch {
	case errors.Is(err, application.ErrEmptyAPIKey),
		errors.Is(err, govee.ErrInvalidAPIKeyFormat),
		errors.Is(err, govee.ErrInvalidSceneKind),
		errors.Is(err, domain.ErrInvalidCommand):
		return http.StatusBadRequest
	case errors.Is(err, govee.ErrMissingAPIKey):
		return http.StatusUnauthorized
	case errors.Is(err, govee.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, govee.ErrCancelled),
		errors.Is(err, application.ErrPanelUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &rejected),
		errors.As(err, &remote),
		errors.Is(err, govee.ErrNetwork),
		errors.Is(err, govee.ErrDecode),
		errors.Is(err, govee.ErrRequestIDMismatch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
