package govee

import "github.com/google/uuid"

// NewRequestID returns a fresh random (v4) UUID for a request envelope.
func NewRequestID() string {
	return uuid.NewString()
}
