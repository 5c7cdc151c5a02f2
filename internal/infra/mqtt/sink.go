package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"govee-bar/internal/domain"
)

const DefaultTopicPrefix = "govee"

// Publisher sends one message. *Client implements it.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// StateSink publishes each device state as a retained JSON message on
// <prefix>/<sku>/<device>/state.
type StateSink struct {
	pub    Publisher
	prefix string
	qos    byte
	now    func() time.Time
}

func NewStateSink(pub Publisher, prefix string, qos byte) *StateSink {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return &StateSink{
		pub:    pub,
		prefix: strings.TrimSuffix(prefix, "/"),
		qos:    qos,
		now:    time.Now,
	}
}

type statePayload struct {
	domain.DeviceState
	Timestamp time.Time `json:"timestamp"`
}

func (s *StateSink) PublishState(ctx context.Context, state domain.DeviceState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(statePayload{DeviceState: state, Timestamp: s.now().UTC()})
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	topic := StateTopic(s.prefix, state.SKU, state.DeviceID)
	if err := s.pub.Publish(topic, payload, s.qos, true); err != nil {
		return fmt.Errorf("publishing %s: %w", topic, err)
	}
	return nil
}

var topicEscaper = strings.NewReplacer("/", "_", "+", "_", "#", "_")

// StateTopic builds the state topic for a device. Characters MQTT reserves
// for levels and wildcards are replaced in the sku and device segments.
func StateTopic(prefix, sku, deviceID string) string {
	return prefix + "/" + topicEscaper.Replace(sku) + "/" + topicEscaper.Replace(deviceID) + "/state"
}
