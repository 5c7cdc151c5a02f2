package govee

import (
	"fmt"
	"math"
	"strings"

	"govee-bar/internal/domain"
)

const deviceTypePrefix = "devices.types."

// NormalizeDeviceType strips the "devices.types." prefix, leaving other
// labels untouched.
func NormalizeDeviceType(t string) string {
	return strings.TrimPrefix(t, deviceTypePrefix)
}

// FahrenheitToCelsius rounds half away from zero. ok is false when the
// rounded result does not fit in an int64.
func FahrenheitToCelsius(f float64) (c int64, ok bool) {
	r := roundedCelsius(f)
	if r < math.MinInt64 || r >= math.MaxInt64 {
		return 0, false
	}
	return int64(r), true
}

func roundedCelsius(f float64) float64 {
	return math.Round((f - 32) * 5 / 9)
}

// NormalizeTemperature rewrites the sensorTemperature capability from
// Fahrenheit to whole Celsius degrees. It reports whether a value changed.
// Non-numeric or missing readings are left alone. A reading too large for an
// integer keeps its rounded value as a float.
func NormalizeTemperature(caps []domain.CapabilityState) bool {
	c, ok := domain.FindByInstance(caps, domain.InstanceSensorTemperature)
	if !ok {
		return false
	}
	f, ok := c.Value.AsNumber()
	if !ok {
		return false
	}
	if celsius, ok := FahrenheitToCelsius(f); ok {
		c.Value = domain.IntValue(celsius)
	} else {
		c.Value = domain.FloatValue(roundedCelsius(f))
	}
	return true
}

// ExtractSceneOptions returns the options of the capability with the given
// instance, as received.
func ExtractSceneOptions(caps []WireSceneCapability, instance string) ([]domain.SceneOption, error) {
	c, ok := domain.FindByInstance(caps, instance)
	if !ok {
		return nil, fmt.Errorf("%w: no %s capability in response", ErrNotFound, instance)
	}
	if c.Parameters.Options == nil {
		return []domain.SceneOption{}, nil
	}
	return c.Parameters.Options, nil
}
