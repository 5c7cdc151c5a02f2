package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Mirror periodically copies live device state to the configured sinks.
// Nothing is cached between cycles.
type Mirror struct {
	api    DeviceAPI
	sinks  []StateSink
	logger *slog.Logger
}

type CycleResult struct {
	Devices   int
	Published int
	Failed    int
}

func NewMirror(api DeviceAPI, sinks []StateSink, logger *slog.Logger) *Mirror {
	return &Mirror{
		api:    api,
		sinks:  sinks,
		logger: logger,
	}
}

// RunOnce performs a single cycle. Only a device listing failure is returned;
// per-device failures are logged and counted.
func (m *Mirror) RunOnce(ctx context.Context) (CycleResult, error) {
	var result CycleResult

	devices, err := m.api.ListDevices(ctx)
	if err != nil {
		return result, fmt.Errorf("listing devices: %w", err)
	}
	result.Devices = len(devices)

	for _, d := range devices {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		state, err := m.api.GetDeviceState(ctx, d.ID, d.SKU)
		if err != nil {
			m.logger.Warn("fetching device state", "device", d.ID, "sku", d.SKU, "error", err)
			result.Failed++
			continue
		}

		var errs []error
		for _, sink := range m.sinks {
			if err := sink.PublishState(ctx, *state); err != nil {
				errs = append(errs, err)
			}
		}
		if err := errors.Join(errs...); err != nil {
			m.logger.Warn("publishing device state", "device", d.ID, "sku", d.SKU, "error", err)
			result.Failed++
			continue
		}

		result.Published++
	}

	m.logger.Info("mirror cycle complete",
		"devices", result.Devices,
		"published", result.Published,
		"failed", result.Failed,
	)

	return result, nil
}

// Run runs a cycle immediately and then every interval until ctx is done.
func (m *Mirror) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid mirror interval %s", interval)
	}

	if _, err := m.RunOnce(ctx); err != nil && ctx.Err() == nil {
		m.logger.Error("mirror cycle failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := m.RunOnce(ctx); err != nil && ctx.Err() == nil {
				m.logger.Error("mirror cycle failed", "error", err)
			}
		}
	}
}

// Start runs the mirror in the background.
func (m *Mirror) Start(ctx context.Context, interval time.Duration) {
	go func() {
		if err := m.Run(ctx, interval); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Error("mirror stopped", "error", err)
		}
	}()
}
