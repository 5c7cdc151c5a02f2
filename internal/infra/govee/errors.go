package govee

import (
	"errors"
	"fmt"
)

// Errors returned by Client. Check with errors.Is, or errors.As for
// *APIRejectedError and *RemoteError.
var (
	ErrMissingAPIKey       = errors.New("govee: API key not set, set your Govee API key first")
	ErrInvalidAPIKeyFormat = errors.New("govee: invalid API key format")
	ErrNetwork             = errors.New("govee: network failure")
	ErrDecode              = errors.New("govee: unexpected response")
	ErrNotFound            = errors.New("govee: not found")
	ErrCancelled           = errors.New("govee: request cancelled")
	ErrRequestIDMismatch   = errors.New("govee: response request id does not match")
	ErrInvalidSceneKind    = errors.New("govee: invalid scene kind")
)

// APIRejectedError is a non-2xx HTTP response.
type APIRejectedError struct {
	StatusCode int
	Body       string
}

func (e *APIRejectedError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("govee: API error (%d)", e.StatusCode)
	}
	return fmt.Sprintf("govee: API error (%d): %s", e.StatusCode, e.Body)
}

// RemoteError is a 2xx response whose embedded code is not 200.
type RemoteError struct {
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("govee: API error: %s (code %d)", e.Message, e.Code)
}
