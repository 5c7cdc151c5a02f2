package domain

// Device is a device as listed by the cloud API. Identity is the (SKU, ID) pair.
type Device struct {
	SKU          string                 `json:"sku"`
	ID           string                 `json:"device"`
	Type         string                 `json:"type"`
	DisplayName  *string                `json:"deviceName,omitempty"`
	Capabilities []CapabilityDescriptor `json:"capabilities"`
}

func (d Device) Name() string {
	if d.DisplayName != nil && *d.DisplayName != "" {
		return *d.DisplayName
	}
	return d.ID
}

// CapabilityDescriptor is a capability a device declares. Parameters is nil
// when the API omits it.
type CapabilityDescriptor struct {
	Kind       string `json:"type"`
	Instance   string `json:"instance"`
	Parameters *Value `json:"parameters,omitempty"`
}

func (c CapabilityDescriptor) InstanceName() string { return c.Instance }

type CapabilityState struct {
	Kind     string `json:"type"`
	Instance string `json:"instance"`
	Value    Value  `json:"value"`
}

func (c CapabilityState) InstanceName() string { return c.Instance }

type DeviceState struct {
	DeviceID     string            `json:"device"`
	SKU          string            `json:"sku"`
	Capabilities []CapabilityState `json:"capabilities"`
}
