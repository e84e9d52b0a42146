package ctrl

import (
	"fmt"
	"math"
)

type Curve string

const (
	LinearCurve      Curve = "linear"
	LogarithmicCurve Curve = "logarithmic"
	ExponentialCurve Curve = "exponential"
)

// TransformerConfig describes how the normalized value of one control is
// mapped into its output range. The zero value of Curve is treated as linear.
type TransformerConfig struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Curve  Curve   `json:"curve,omitempty"`
	Step   float64 `json:"step,omitempty"`
	Invert bool    `json:"invert,omitempty"`
}

// Validate rejects invalid configurations before any message is processed.
// A non-positive step or min >= max must never surface as a runtime fault.
func (c TransformerConfig) Validate() error {
	if c.Min >= c.Max {
		return fmt.Errorf("invalid transformer range [%v, %v]: min must be less than max", c.Min, c.Max)
	}
	if c.Step < 0 {
		return fmt.Errorf("invalid transformer step %v: step must be positive", c.Step)
	}
	switch c.Curve {
	case "", LinearCurve, LogarithmicCurve, ExponentialCurve:
	default:
		return fmt.Errorf("unknown transformer curve %q, use linear, logarithmic, or exponential", c.Curve)
	}
	return nil
}

// Transform maps a normalized value in [0, 1] into the configured range:
// invert, then curve, then the affine map into [min, max], then step
// quantization. The config must have passed Validate.
func (c TransformerConfig) Transform(value float64) float64 {
	if c.Invert {
		value = 1 - value
	}
	switch c.Curve {
	case LogarithmicCurve:
		value = math.Log(1+9*value) / math.Log(10)
	case ExponentialCurve:
		value = (math.Exp(value) - 1) / (math.E - 1)
	}
	value = c.Min + (c.Max-c.Min)*value
	if c.Step > 0 {
		value = math.Round(value/c.Step) * c.Step
	}
	return value
}

// Transformers holds the per-control transformer configurations. Controls
// without an entry keep their normalized value unchanged.
type Transformers map[ControlID]TransformerConfig

// Validate validates all entries and reports the first offending control.
func (t Transformers) Validate() error {
	for id, config := range t {
		if err := config.Validate(); err != nil {
			return fmt.Errorf("transformer for %s: %w", id, err)
		}
	}
	return nil
}

// Transform applies the configuration for the given control, or the identity
// if none is configured.
func (t Transformers) Transform(id ControlID, value float64) float64 {
	config, ok := t[id]
	if !ok {
		return value
	}
	return config.Transform(value)
}
