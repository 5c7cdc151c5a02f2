// Package settings persists the small set of user settings the app keeps,
// most importantly the Govee API key.
package settings

import (
	"errors"
	"fmt"
	"strings"

	"govee-bar/internal/application"
)

// APIKeyName is the settings key holding the Govee API key.
const APIKeyName = application.APIKeySetting

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

var ErrUnknownBackend = errors.New("settings: unknown backend")

// Store is a persisted key/value store. Set only changes the in-memory view;
// Save makes it durable.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Save() error
	Close() error
}

// Open opens the store for the given backend at path.
func Open(backend, path string) (Store, error) {
	switch strings.ToLower(backend) {
	case BackendFile, "":
		return OpenFile(path)
	case BackendSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// KeyReader serves the API key from a Store, re-reading it on every call.
type KeyReader struct {
	Store Store
}

func (k KeyReader) APIKey() (string, bool) {
	if k.Store == nil {
		return "", false
	}
	key, ok := k.Store.Get(APIKeyName)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}
