// Package input normalizes heterogeneous operator devices (keyboard,
// gamepad) into device-agnostic samples for the control loop.
package input

import "math"

// Axis indices within Sample.Axes.
const (
	AxisSurge = iota // +X translation intent
	AxisSway         // +Y
	AxisHeave        // +Z
	AxisRoll         // rotation rate about X
	AxisPitch        // rotation rate about Y
	AxisYaw          // rotation rate about Z
	NumAxes
)

// DefaultDeadzone is the axis magnitude below which input reads as zero.
// Prevents analog stick drift from producing spurious motion.
const DefaultDeadzone = 0.1

// Sample is one poll of the operator's device: six signed-normalized
// velocity intents plus the discrete control events. Samples are
// immutable snapshots; a held key or button reads as sustained true
// on every poll.
type Sample struct {
	Axes [NumAxes]float64 // each in [-1, 1]

	Enable     bool // deadman held
	EStop      bool // emergency stop pressed
	ModeToggle bool // mode switch pressed this poll
	Home       bool // home / clear-errors pressed this poll
	SpeedUp    bool
	SpeedDown  bool
	Turbo      bool // turbo held
}

// Neutral returns an all-zero sample. Sources return it when their
// device is unavailable; device loss is never fatal to the loop.
func Neutral() Sample {
	return Sample{}
}

// IsNeutral reports whether the sample carries no motion intent.
func (s Sample) IsNeutral() bool {
	for _, a := range s.Axes {
		if a != 0 {
			return false
		}
	}
	return true
}

// ApplyDeadzone zeroes every axis whose magnitude is below threshold
// and clamps the rest to [-1, 1].
func ApplyDeadzone(s Sample, threshold float64) Sample {
	for i, a := range s.Axes {
		if math.Abs(a) < threshold {
			s.Axes[i] = 0
			continue
		}
		if a > 1 {
			s.Axes[i] = 1
		} else if a < -1 {
			s.Axes[i] = -1
		}
	}
	return s
}

// Source produces samples for the control loop. Poll must be
// non-blocking and return the best-known snapshot even if the device
// produced no new events since the last poll.
type Source interface {
	Poll() Sample
	Close() error
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func() Sample

// Poll calls the function.
func (f SourceFunc) Poll() Sample { return f() }

// Close is a no-op.
func (f SourceFunc) Close() error { return nil }
