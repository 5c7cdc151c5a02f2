package govee

import (
	"encoding/json"

	"govee-bar/internal/domain"
)

// Wire types for the Govee OpenAPI v1. Field names are fixed by the vendor.
// Unknown fields are ignored on decode.

type RequestEnvelope[T any] struct {
	RequestID string `json:"requestId"`
	Payload   T      `json:"payload"`
}

// ResponseEnvelope wraps every POST response. Code is nil when the field is
// missing from the body.
type ResponseEnvelope[T any] struct {
	RequestID string `json:"requestId"`
	Code      *int   `json:"code"`
	Msg       string `json:"msg"`
	Payload   T      `json:"payload"`
}

type DevicesResponse struct {
	Code    *int         `json:"code"`
	Message string       `json:"message"`
	Data    []WireDevice `json:"data"`
}

type WireDevice struct {
	SKU          string           `json:"sku"`
	Device       string           `json:"device"`
	Type         string           `json:"type"`
	DeviceName   *string          `json:"deviceName,omitempty"`
	Capabilities []WireCapability `json:"capabilities"`
}

type WireCapability struct {
	Type       string        `json:"type"`
	Instance   string        `json:"instance"`
	Parameters *domain.Value `json:"parameters,omitempty"`
}

type DeviceRef struct {
	Device string `json:"device"`
	SKU    string `json:"sku"`
}

type StatePayload struct {
	SKU          string                `json:"sku"`
	Device       string                `json:"device"`
	Capabilities []WireCapabilityState `json:"capabilities"`
}

type WireCapabilityState struct {
	Type     string    `json:"type"`
	Instance string    `json:"instance"`
	State    WireState `json:"state"`
}

type WireState struct {
	Value domain.Value `json:"value"`
}

type ControlPayload struct {
	Device     string      `json:"device"`
	SKU        string      `json:"sku"`
	Capability WireControl `json:"capability"`
}

type WireControl struct {
	Type     string       `json:"type"`
	Instance string       `json:"instance"`
	Value    domain.Value `json:"value"`
}

type ScenesPayload struct {
	SKU          string                `json:"sku"`
	Device       string                `json:"device"`
	Capabilities []WireSceneCapability `json:"capabilities"`
}

type WireSceneCapability struct {
	Type       string              `json:"type"`
	Instance   string              `json:"instance"`
	Parameters WireSceneParameters `json:"parameters"`
}

func (c WireSceneCapability) InstanceName() string { return c.Instance }

// WireSceneParameters holds the scene options of a capability. Options whose
// value is neither an integer nor a {paramId, id} object are dropped and
// counted in Skipped.
type WireSceneParameters struct {
	DataType string               `json:"dataType"`
	Options  []domain.SceneOption `json:"options"`
	Skipped  int                  `json:"-"`
}

func (p *WireSceneParameters) UnmarshalJSON(data []byte) error {
	var raw struct {
		DataType string            `json:"dataType"`
		Options  []json.RawMessage `json:"options"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = WireSceneParameters{DataType: raw.DataType}
	if raw.Options == nil {
		return nil
	}

	p.Options = make([]domain.SceneOption, 0, len(raw.Options))
	for _, o := range raw.Options {
		var opt domain.SceneOption
		if err := json.Unmarshal(o, &opt); err != nil {
			p.Skipped++
			continue
		}
		p.Options = append(p.Options, opt)
	}
	return nil
}

func (d WireDevice) toDomain() domain.Device {
	caps := make([]domain.CapabilityDescriptor, 0, len(d.Capabilities))
	for _, c := range d.Capabilities {
		caps = append(caps, domain.CapabilityDescriptor{
			Kind:       c.Type,
			Instance:   c.Instance,
			Parameters: c.Parameters,
		})
	}
	return domain.Device{
		SKU:          d.SKU,
		ID:           d.Device,
		Type:         d.Type,
		DisplayName:  d.DeviceName,
		Capabilities: caps,
	}
}

func (p StatePayload) toDomain() domain.DeviceState {
	caps := make([]domain.CapabilityState, 0, len(p.Capabilities))
	for _, c := range p.Capabilities {
		caps = append(caps, domain.CapabilityState{
			Kind:     c.Type,
			Instance: c.Instance,
			Value:    c.State.Value,
		})
	}
	return domain.DeviceState{
		DeviceID:     p.Device,
		SKU:          p.SKU,
		Capabilities: caps,
	}
}

func newControlPayload(cmd domain.ControlCommand) ControlPayload {
	return ControlPayload{
		Device: cmd.DeviceID,
		SKU:    cmd.SKU,
		Capability: WireControl{
			Type:     cmd.Kind,
			Instance: cmd.Instance,
			Value:    cmd.Value,
		},
	}
}
