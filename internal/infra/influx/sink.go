// Package influx records numeric device capability values in InfluxDB.
package influx

import (
	"context"
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"govee-bar/internal/domain"
)

const (
	Measurement        = "govee_capability"
	defaultPingTimeout = 5 * time.Second
)

var (
	ErrConnectionFailed = errors.New("influxdb: connection failed")
	ErrWriteFailed      = errors.New("influxdb: write failed")
)

type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// StateSink writes one point per numeric or boolean capability value.
type StateSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	now      func() time.Time
}

func Connect(ctx context.Context, cfg Config) (*StateSink, error) {
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, influxdb2.DefaultOptions())

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	return &StateSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		now:      time.Now,
	}, nil
}

func (s *StateSink) PublishState(ctx context.Context, state domain.DeviceState) error {
	points := Points(state, s.now())
	if len(points) == 0 {
		return nil
	}
	if err := s.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

func (s *StateSink) Close() error {
	if s.client != nil {
		s.client.Close()
	}
	return nil
}

// Points converts a state snapshot to points. Strings, nulls and structured
// values are skipped; booleans are written as 1 or 0 so the field keeps a
// single type.
func Points(state domain.DeviceState, ts time.Time) []*write.Point {
	var points []*write.Point
	for _, c := range state.Capabilities {
		v, ok := fieldValue(c.Value)
		if !ok {
			continue
		}
		points = append(points, write.NewPoint(
			Measurement,
			map[string]string{
				"sku":      state.SKU,
				"device":   state.DeviceID,
				"instance": c.Instance,
				"kind":     c.Kind,
			},
			map[string]interface{}{
				"value": v,
			},
			ts,
		))
	}
	return points
}

func fieldValue(v domain.Value) (float64, bool) {
	if n, ok := v.AsNumber(); ok {
		return n, true
	}
	if b, ok := v.AsBool(); ok {
		if b {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
