package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"govee-bar/internal/domain"
)

// APIKeySetting is the settings key holding the Govee API key.
const APIKeySetting = "api_key"

var (
	ErrEmptyAPIKey      = errors.New("application: API key cannot be empty")
	ErrPanelUnavailable = errors.New("application: panel unavailable")
)

// Service exposes the operations the UI and the local HTTP API call.
type Service struct {
	api      DeviceAPI
	settings SettingsStore
	panel    Panel
	logger   *slog.Logger

	initMu      sync.Mutex
	initialized bool
}

func NewService(api DeviceAPI, settings SettingsStore, panel Panel, logger *slog.Logger) *Service {
	return &Service{
		api:      api,
		settings: settings,
		panel:    panel,
		logger:   logger,
	}
}

// Init performs one-time panel setup. Later calls are no-ops once a call has
// succeeded.
func (s *Service) Init(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	if s.initialized {
		return nil
	}

	if s.panel != nil {
		if err := s.panel.Setup(ctx); err != nil {
			return fmt.Errorf("setting up panel: %w", err)
		}
	}

	s.initialized = true
	s.logger.Info("initialized")
	return nil
}

func (s *Service) Initialized() bool {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	return s.initialized
}

func (s *Service) ShowPanel() error {
	if s.panel == nil {
		return ErrPanelUnavailable
	}
	if err := s.panel.Show(); err != nil {
		return fmt.Errorf("showing panel: %w", err)
	}
	return nil
}

func (s *Service) ListDevices(ctx context.Context) ([]domain.Device, error) {
	return s.api.ListDevices(ctx)
}

func (s *Service) GetDeviceState(ctx context.Context, deviceID, sku string) (*domain.DeviceState, error) {
	return s.api.GetDeviceState(ctx, deviceID, sku)
}

func (s *Service) SendControl(ctx context.Context, cmd domain.ControlCommand) error {
	if err := s.api.SendControl(ctx, cmd); err != nil {
		return err
	}
	s.logger.Info("control sent",
		"device", cmd.DeviceID,
		"sku", cmd.SKU,
		"instance", cmd.Instance,
	)
	return nil
}

func (s *Service) ListScenes(ctx context.Context, kind domain.SceneKind, deviceID, sku string) ([]domain.SceneOption, error) {
	return s.api.ListScenes(ctx, kind, deviceID, sku)
}

func (s *Service) GetAPIKey() (string, bool) {
	key, ok := s.settings.Get(APIKeySetting)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// SetAPIKey verifies key against the vendor and persists it only when the
// vendor accepts it.
func (s *Service) SetAPIKey(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyAPIKey
	}

	if err := s.api.VerifyAPIKey(ctx, key); err != nil {
		return err
	}

	s.settings.Set(APIKeySetting, key)
	if err := s.settings.Save(); err != nil {
		return fmt.Errorf("saving API key: %w", err)
	}

	s.logger.Info("API key updated")
	return nil
}
