// Package safety validates and gates candidate motion commands.
// It is the single gatekeeper between the control modes and the driver.
package safety

import (
	"errors"
	"fmt"

	"github.com/armkit/go-armteleop/pkg/arm"
)

// ErrConfigInvalid marks limit configurations that must prevent the
// session from starting.
var ErrConfigInvalid = errors.New("safety: invalid limits")

// Workspace is an axis-aligned box the end-effector target must stay in.
type Workspace struct {
	XMin float64 `json:"x_min" yaml:"x_min"`
	XMax float64 `json:"x_max" yaml:"x_max"`
	YMin float64 `json:"y_min" yaml:"y_min"`
	YMax float64 `json:"y_max" yaml:"y_max"`
	ZMin float64 `json:"z_min" yaml:"z_min"`
	ZMax float64 `json:"z_max" yaml:"z_max"`
}

// Contains reports whether the position lies inside the box.
func (w Workspace) Contains(x, y, z float64) bool {
	return x >= w.XMin && x <= w.XMax &&
		y >= w.YMin && y <= w.YMax &&
		z >= w.ZMin && z <= w.ZMax
}

// ClampPose clamps the pose's position onto the box boundary, leaving
// permitted axes untouched. Returns the clamped pose and whether any
// coordinate moved.
func (w Workspace) ClampPose(p arm.Pose) (arm.Pose, bool) {
	clamped := false
	p.X, clamped = clampCoord(p.X, w.XMin, w.XMax, clamped)
	p.Y, clamped = clampCoord(p.Y, w.YMin, w.YMax, clamped)
	p.Z, clamped = clampCoord(p.Z, w.ZMin, w.ZMax, clamped)
	return p, clamped
}

func clampCoord(v, min, max float64, already bool) (float64, bool) {
	if v < min {
		return min, true
	}
	if v > max {
		return max, true
	}
	return v, already
}

func (w Workspace) validate() error {
	if w.XMin >= w.XMax || w.YMin >= w.YMax || w.ZMin >= w.ZMax {
		return fmt.Errorf("%w: inverted workspace bounds", ErrConfigInvalid)
	}
	return nil
}

// Limits is the per-session ceiling on motion. Loaded once at session
// start and never mutated during operation.
type Limits struct {
	MaxLinear  float64 `json:"max_linear_velocity" yaml:"max_linear_velocity"`   // m/s
	MaxAngular float64 `json:"max_angular_velocity" yaml:"max_angular_velocity"` // rad/s
	MaxJoint   float64 `json:"max_joint_velocity" yaml:"max_joint_velocity"`    // deg/s

	// Workspace is optional; nil disables the box check.
	Workspace *Workspace `json:"workspace,omitempty" yaml:"workspace,omitempty"`
}

// DefaultLimits returns conservative limits with the stock RM65 box.
func DefaultLimits() Limits {
	return Limits{
		MaxLinear:  0.5,
		MaxAngular: 1.0,
		MaxJoint:   30.0,
		Workspace: &Workspace{
			XMin: -0.7, XMax: 0.7,
			YMin: -0.7, YMax: 0.7,
			ZMin: 0.0, ZMax: 1.0,
		},
	}
}

// Validate enforces the startup rules: all velocity ceilings positive,
// workspace bounds not inverted.
func (l Limits) Validate() error {
	if l.MaxLinear <= 0 {
		return fmt.Errorf("%w: max linear velocity must be positive, got %v", ErrConfigInvalid, l.MaxLinear)
	}
	if l.MaxAngular <= 0 {
		return fmt.Errorf("%w: max angular velocity must be positive, got %v", ErrConfigInvalid, l.MaxAngular)
	}
	if l.MaxJoint <= 0 {
		return fmt.Errorf("%w: max joint velocity must be positive, got %v", ErrConfigInvalid, l.MaxJoint)
	}
	if l.Workspace != nil {
		return l.Workspace.validate()
	}
	return nil
}

// Clamp restricts v to [-limit, limit]. Clamping an in-range value
// returns it unchanged, so clamping is idempotent.
func Clamp(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
