package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"govee-bar/config"
	"govee-bar/internal/application"
	"govee-bar/internal/infra/govee"
	"govee-bar/internal/infra/influx"
	"govee-bar/internal/infra/mqtt"
	"govee-bar/internal/infra/settings"
)

// app is the wired object graph shared by every command.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   settings.Store
	client  *govee.Client
	service *application.Service
	closers []io.Closer
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	store, err := settings.Open(cfg.Settings.Backend, cfg.Settings.Path)
	if err != nil {
		return nil, fmt.Errorf("opening settings: %w", err)
	}

	client := govee.NewClientWithURL(
		cfg.Govee.BaseURL,
		settings.KeyReader{Store: store},
		govee.WithTimeout(config.Duration(cfg.Govee.Timeout)),
		govee.WithLogger(logger),
	)

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		client:  client,
		service: application.NewService(client, store, &application.NoopPanel{}, logger),
		closers: []io.Closer{store},
	}, nil
}

// sinks connects every enabled state sink.
func (a *app) sinks(ctx context.Context) ([]application.StateSink, error) {
	var sinks []application.StateSink

	if a.cfg.MQTT.Enabled {
		client, err := mqtt.Connect(mqtt.Config{
			Broker:   a.cfg.MQTT.Broker,
			ClientID: a.cfg.MQTT.ClientID,
			Username: a.cfg.MQTT.Username,
			Password: a.cfg.MQTT.Password,
			QoS:      byte(a.cfg.MQTT.QoS),
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to MQTT: %w", err)
		}
		a.closers = append(a.closers, client)
		sinks = append(sinks, mqtt.NewStateSink(client, a.cfg.MQTT.TopicPrefix, client.QoS()))
		a.logger.Info("mirroring to MQTT", "broker", a.cfg.MQTT.Broker, "prefix", a.cfg.MQTT.TopicPrefix)
	}

	if a.cfg.InfluxDB.Enabled {
		sink, err := influx.Connect(ctx, influx.Config{
			URL:    a.cfg.InfluxDB.URL,
			Token:  a.cfg.InfluxDB.Token,
			Org:    a.cfg.InfluxDB.Org,
			Bucket: a.cfg.InfluxDB.Bucket,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		a.closers = append(a.closers, sink)
		sinks = append(sinks, sink)
		a.logger.Info("mirroring to InfluxDB", "url", a.cfg.InfluxDB.URL, "bucket", a.cfg.InfluxDB.Bucket)
	}

	return sinks, nil
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
