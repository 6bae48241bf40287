package teleop

import (
	"math"
	"time"

	"github.com/armkit/go-armteleop/pkg/arm"
	"github.com/armkit/go-armteleop/pkg/input"
)

// Mode selects how operator intent maps onto motion commands.
type Mode string

const (
	// ModeCartesian integrates velocity intent onto the end-effector pose.
	ModeCartesian Mode = "cartesian"
	// ModeJoint integrates per-axis intent onto joint angles.
	ModeJoint Mode = "joint"
	// ModeVelocity streams smoothed twist commands directly.
	ModeVelocity Mode = "velocity"
)

// Valid reports whether m names a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeCartesian, ModeJoint, ModeVelocity:
		return true
	}
	return false
}

// Toggled returns the next mode in the operator toggle cycle:
// Cartesian and Joint alternate. Velocity mode is entered and left only
// by explicit selection, so toggling it is a no-op.
func (m Mode) Toggled() Mode {
	switch m {
	case ModeCartesian:
		return ModeJoint
	case ModeJoint:
		return ModeCartesian
	}
	return m
}

// PlanningVelocity is the daemon-side planning speed (percent) attached
// to target-style commands.
const PlanningVelocity = 50

// DefaultSmoothingAlpha weights new input in the velocity smoother.
const DefaultSmoothingAlpha = 0.5

// Smoother is the first-order filter that removes step discontinuities
// from discrete key input in velocity mode. Its previous output is the
// only cross-cycle state a mode carries; the loop owns it per session.
type Smoother struct {
	alpha float64
	prev  [6]float64
}

// NewSmoother creates a smoother with weight alpha on new input,
// 0 < alpha <= 1. Out-of-range values fall back to the default.
func NewSmoother(alpha float64) *Smoother {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultSmoothingAlpha
	}
	return &Smoother{alpha: alpha}
}

// Smooth returns alpha*raw + (1-alpha)*previous per component and
// remembers the output.
func (s *Smoother) Smooth(raw [6]float64) [6]float64 {
	var out [6]float64
	for i := range raw {
		out[i] = s.alpha*raw[i] + (1-s.alpha)*s.prev[i]
	}
	s.prev = out
	return out
}

// Reset clears the filter memory. Called when the deadman releases so a
// stale tail cannot leak into the next burst.
func (s *Smoother) Reset() {
	s.prev = [6]float64{}
}

// Compute turns one input sample into a candidate command for the
// active mode. Pure over (sample, state, profile, dt) except for the
// smoother in velocity mode.
func Compute(mode Mode, sample input.Sample, state arm.State, profile Profile, dt time.Duration, jointAxes []int, smoother *Smoother) arm.MotionCommand {
	switch mode {
	case ModeVelocity:
		return computeVelocity(sample, profile, smoother)
	case ModeJoint:
		return computeJoint(sample, state, profile, dt, jointAxes)
	default:
		return computeCartesian(sample, state, profile, dt)
	}
}

// computeVelocity scales intent by the profile, smooths it, then caps
// the linear and angular vector magnitudes at the profile speeds.
func computeVelocity(sample input.Sample, profile Profile, smoother *Smoother) arm.VelocityCommand {
	raw := [6]float64{
		sample.Axes[input.AxisSurge] * profile.Linear,
		sample.Axes[input.AxisSway] * profile.Linear,
		sample.Axes[input.AxisHeave] * profile.Linear,
		sample.Axes[input.AxisRoll] * profile.Angular,
		sample.Axes[input.AxisPitch] * profile.Angular,
		sample.Axes[input.AxisYaw] * profile.Angular,
	}
	out := smoother.Smooth(raw)

	linear := [3]float64{out[0], out[1], out[2]}
	angular := [3]float64{out[3], out[4], out[5]}
	capMagnitude(&linear, profile.Linear)
	capMagnitude(&angular, profile.Angular)

	return arm.VelocityCommand{Linear: linear, Angular: angular}
}

// computeCartesian integrates one cycle of velocity intent onto the
// last known pose.
func computeCartesian(sample input.Sample, state arm.State, profile Profile, dt time.Duration) arm.PoseCommand {
	sec := dt.Seconds()
	p := state.Pose
	p.X += sample.Axes[input.AxisSurge] * profile.Linear * sec
	p.Y += sample.Axes[input.AxisSway] * profile.Linear * sec
	p.Z += sample.Axes[input.AxisHeave] * profile.Linear * sec
	p.RX += sample.Axes[input.AxisRoll] * profile.Angular * sec
	p.RY += sample.Axes[input.AxisPitch] * profile.Angular * sec
	p.RZ += sample.Axes[input.AxisYaw] * profile.Angular * sec
	return arm.PoseCommand{Target: p, Velocity: PlanningVelocity}
}

// computeJoint integrates per-axis intent onto the current joint
// angles. jointAxes gives the input axis driving each joint, -1 for
// none; a nil mapping is the identity. Axes beyond the arm's DOF are
// ignored.
func computeJoint(sample input.Sample, state arm.State, profile Profile, dt time.Duration, jointAxes []int) arm.JointCommand {
	sec := dt.Seconds()
	angles := make([]float64, len(state.Joints))
	copy(angles, state.Joints)

	for j := range angles {
		axis := j
		if jointAxes != nil {
			if j >= len(jointAxes) {
				continue
			}
			axis = jointAxes[j]
		}
		if axis < 0 || axis >= input.NumAxes {
			continue
		}
		angles[j] += sample.Axes[axis] * profile.Joint * sec
	}
	return arm.JointCommand{Angles: angles, Velocity: PlanningVelocity}
}

func capMagnitude(v *[3]float64, limit float64) {
	if limit <= 0 {
		return
	}
	mag := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if mag <= limit {
		return
	}
	scale := limit / mag
	v[0] *= scale
	v[1] *= scale
	v[2] *= scale
}
