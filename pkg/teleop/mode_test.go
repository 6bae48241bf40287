package teleop

import (
	"math"
	"testing"
	"time"

	"github.com/armkit/go-armteleop/pkg/arm"
	"github.com/armkit/go-armteleop/pkg/input"
)

func TestModeToggled(t *testing.T) {
	if ModeCartesian.Toggled() != ModeJoint {
		t.Error("Cartesian should toggle to Joint")
	}
	if ModeJoint.Toggled() != ModeCartesian {
		t.Error("Joint should toggle to Cartesian")
	}
	if ModeVelocity.Toggled() != ModeVelocity {
		t.Error("Velocity must not be part of the toggle cycle")
	}
}

func TestSmoother_Converges(t *testing.T) {
	// Repeated identical input must drive the output to the raw value.
	s := NewSmoother(0.5)
	raw := [6]float64{1, -1, 0.5, 0, 0, 0.25}

	var out [6]float64
	for i := 0; i < 50; i++ {
		out = s.Smooth(raw)
	}
	for i := range raw {
		if math.Abs(out[i]-raw[i]) > 1e-9 {
			t.Errorf("Axis %d did not converge: %v vs %v", i, out[i], raw[i])
		}
	}
}

func TestSmoother_FirstOutputIsScaled(t *testing.T) {
	s := NewSmoother(0.5)
	out := s.Smooth([6]float64{1, 0, 0, 0, 0, 0})
	if out[0] != 0.5 {
		t.Errorf("Expected first output 0.5 from rest, got %v", out[0])
	}
}

func TestSmoother_ResetClearsMemory(t *testing.T) {
	s := NewSmoother(0.5)
	s.Smooth([6]float64{1, 1, 1, 1, 1, 1})
	s.Reset()
	out := s.Smooth([6]float64{0, 0, 0, 0, 0, 0})
	for i, v := range out {
		if v != 0 {
			t.Errorf("Axis %d kept stale memory after reset: %v", i, v)
		}
	}
}

func TestNewSmoother_BadAlphaFallsBack(t *testing.T) {
	for _, alpha := range []float64{-0.5, 0, 1.5} {
		s := NewSmoother(alpha)
		if s.alpha != DefaultSmoothingAlpha {
			t.Errorf("Alpha %v: expected fallback to default, got %v", alpha, s.alpha)
		}
	}
}

func TestComputeCartesian_IntegratesOverDt(t *testing.T) {
	var sample input.Sample
	sample.Axes[input.AxisSurge] = 1.0
	sample.Axes[input.AxisYaw] = -0.5

	state := arm.State{Pose: arm.Pose{X: 0.2, RZ: 0.1}}
	profile := Profile{Linear: 0.1, Angular: 0.4, Joint: 10}

	cmd := Compute(ModeCartesian, sample, state, profile, 100*time.Millisecond, nil, nil)
	pose, ok := cmd.(arm.PoseCommand)
	if !ok {
		t.Fatalf("Expected PoseCommand, got %T", cmd)
	}
	if math.Abs(pose.Target.X-0.21) > 1e-9 {
		t.Errorf("X: expected 0.21, got %v", pose.Target.X)
	}
	if math.Abs(pose.Target.RZ-0.08) > 1e-9 {
		t.Errorf("RZ: expected 0.08, got %v", pose.Target.RZ)
	}
	if pose.Velocity != PlanningVelocity {
		t.Errorf("Expected planning velocity %d, got %d", PlanningVelocity, pose.Velocity)
	}
}

func TestComputeJoint_IdentityMapping(t *testing.T) {
	var sample input.Sample
	sample.Axes[input.AxisSurge] = 1.0
	sample.Axes[input.AxisSway] = -1.0

	state := arm.State{Joints: []float64{10, 20, 30, 40, 50, 60}}
	profile := Profile{Linear: 0.1, Angular: 0.3, Joint: 10}

	cmd := Compute(ModeJoint, sample, state, profile, time.Second, nil, nil)
	joint := cmd.(arm.JointCommand)
	if math.Abs(joint.Angles[0]-20) > 1e-9 {
		t.Errorf("Joint 0: expected 20, got %v", joint.Angles[0])
	}
	if math.Abs(joint.Angles[1]-10) > 1e-9 {
		t.Errorf("Joint 1: expected 10, got %v", joint.Angles[1])
	}
	if joint.Angles[2] != 30 {
		t.Errorf("Unmoved joint changed: %v", joint.Angles[2])
	}
}

func TestComputeJoint_ExplicitMappingForSevenDOF(t *testing.T) {
	var sample input.Sample
	sample.Axes[input.AxisYaw] = 1.0

	state := arm.State{Joints: make([]float64, 7)}
	profile := Profile{Joint: 10}
	// Only joint 6 is driven, by the yaw axis.
	mapping := []int{-1, -1, -1, -1, -1, -1, input.AxisYaw}

	cmd := Compute(ModeJoint, sample, state, profile, time.Second, mapping, nil)
	joint := cmd.(arm.JointCommand)
	for i := 0; i < 6; i++ {
		if joint.Angles[i] != 0 {
			t.Errorf("Unmapped joint %d moved: %v", i, joint.Angles[i])
		}
	}
	if math.Abs(joint.Angles[6]-10) > 1e-9 {
		t.Errorf("Joint 6: expected 10, got %v", joint.Angles[6])
	}
}

func TestComputeJoint_ExcessAxesIgnored(t *testing.T) {
	var sample input.Sample
	for i := 0; i < input.NumAxes; i++ {
		sample.Axes[i] = 1.0
	}
	// Three joints, six axes: the excess axes must be ignored.
	state := arm.State{Joints: []float64{0, 0, 0}}

	cmd := Compute(ModeJoint, sample, state, Profile{Joint: 10}, time.Second, nil, nil)
	joint := cmd.(arm.JointCommand)
	if len(joint.Angles) != 3 {
		t.Fatalf("Expected 3 target angles, got %d", len(joint.Angles))
	}
}

func TestComputeVelocity_ScalesAndSmooths(t *testing.T) {
	var sample input.Sample
	sample.Axes[input.AxisSurge] = 1.0

	profile := Profile{Linear: 0.2, Angular: 0.5}
	s := NewSmoother(1.0) // no smoothing, pure scaling

	cmd := Compute(ModeVelocity, sample, arm.State{}, profile, 10*time.Millisecond, nil, s)
	vel := cmd.(arm.VelocityCommand)
	if math.Abs(vel.Linear[0]-0.2) > 1e-9 {
		t.Errorf("Expected linear x 0.2, got %v", vel.Linear[0])
	}
}

func TestComputeVelocity_MagnitudeCapped(t *testing.T) {
	var sample input.Sample
	sample.Axes[input.AxisSurge] = 1.0
	sample.Axes[input.AxisSway] = 1.0
	sample.Axes[input.AxisHeave] = 1.0

	profile := Profile{Linear: 0.3, Angular: 0.5}
	s := NewSmoother(1.0)

	vel := Compute(ModeVelocity, sample, arm.State{}, profile, 10*time.Millisecond, nil, s).(arm.VelocityCommand)
	mag := math.Sqrt(vel.Linear[0]*vel.Linear[0] + vel.Linear[1]*vel.Linear[1] + vel.Linear[2]*vel.Linear[2])
	if mag > profile.Linear+1e-9 {
		t.Errorf("Linear magnitude %v exceeds profile speed %v", mag, profile.Linear)
	}
}
