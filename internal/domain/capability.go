package domain

import (
	"errors"
	"fmt"
)

// Capability types used by the cloud API.
const (
	CapabilityOnOff        = "devices.capabilities.on_off"
	CapabilityToggle       = "devices.capabilities.toggle"
	CapabilityRange        = "devices.capabilities.range"
	CapabilityColorSetting = "devices.capabilities.color_setting"
	CapabilityDynamicScene = "devices.capabilities.dynamic_scene"
	CapabilityOnline       = "devices.capabilities.online"
	CapabilityProperty     = "devices.capabilities.property"
)

// Well-known capability instances.
const (
	InstancePowerSwitch       = "powerSwitch"
	InstanceBrightness        = "brightness"
	InstanceColorRGB          = "colorRgb"
	InstanceOnline            = "online"
	InstanceSensorTemperature = "sensorTemperature"
	InstanceSensorHumidity    = "sensorHumidity"
	InstanceLightScene        = "lightScene"
	InstanceDIYScene          = "diyScene"
)

var ErrInvalidCommand = errors.New("domain: invalid control command")

// Instanced is anything addressable by capability instance name.
type Instanced interface {
	InstanceName() string
}

// FindByInstance returns a pointer to the first element whose instance
// matches, so callers may rewrite it in place.
func FindByInstance[T Instanced](items []T, instance string) (*T, bool) {
	for i := range items {
		if items[i].InstanceName() == instance {
			return &items[i], true
		}
	}
	return nil, false
}

type ControlCommand struct {
	DeviceID string
	SKU      string
	Kind     string
	Instance string
	Value    Value
}

func (c ControlCommand) Validate() error {
	switch {
	case c.DeviceID == "":
		return fmt.Errorf("%w: missing device id", ErrInvalidCommand)
	case c.SKU == "":
		return fmt.Errorf("%w: missing sku", ErrInvalidCommand)
	case c.Kind == "":
		return fmt.Errorf("%w: missing capability type", ErrInvalidCommand)
	case c.Instance == "":
		return fmt.Errorf("%w: missing capability instance", ErrInvalidCommand)
	}
	return nil
}

func PowerCommand(deviceID, sku string, on bool) ControlCommand {
	var v int64
	if on {
		v = 1
	}
	return ControlCommand{
		DeviceID: deviceID,
		SKU:      sku,
		Kind:     CapabilityOnOff,
		Instance: InstancePowerSwitch,
		Value:    IntValue(v),
	}
}

func BrightnessCommand(deviceID, sku string, percent int) ControlCommand {
	percent = max(1, min(percent, 100))
	return ControlCommand{
		DeviceID: deviceID,
		SKU:      sku,
		Kind:     CapabilityRange,
		Instance: InstanceBrightness,
		Value:    IntValue(int64(percent)),
	}
}

// ColorCommand packs r, g, b into the single integer the API expects.
func ColorCommand(deviceID, sku string, r, g, b uint8) ControlCommand {
	rgb := int64(r)<<16 | int64(g)<<8 | int64(b)
	return ControlCommand{
		DeviceID: deviceID,
		SKU:      sku,
		Kind:     CapabilityColorSetting,
		Instance: InstanceColorRGB,
		Value:    IntValue(rgb),
	}
}

// SceneCommand activates a scene option. The option's value is sent back
// exactly as the API produced it.
func SceneCommand(deviceID, sku string, kind SceneKind, opt SceneOption) ControlCommand {
	return ControlCommand{
		DeviceID: deviceID,
		SKU:      sku,
		Kind:     CapabilityDynamicScene,
		Instance: kind.Instance(),
		Value:    opt.Value.Value(),
	}
}
