package application

import (
	"context"

	"govee-bar/internal/domain"
)

// DeviceAPI is the vendor-facing client.
type DeviceAPI interface {
	ListDevices(ctx context.Context) ([]domain.Device, error)
	GetDeviceState(ctx context.Context, deviceID, sku string) (*domain.DeviceState, error)
	SendControl(ctx context.Context, cmd domain.ControlCommand) error
	ListScenes(ctx context.Context, kind domain.SceneKind, deviceID, sku string) ([]domain.SceneOption, error)
	VerifyAPIKey(ctx context.Context, key string) error
}

// SettingsStore persists user settings such as the API key.
type SettingsStore interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Save() error
}

// StateSink receives device state snapshots from the mirror.
type StateSink interface {
	PublishState(ctx context.Context, state domain.DeviceState) error
}
