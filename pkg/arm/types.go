package arm

import "fmt"

// Pose is an end-effector pose: position in meters, orientation as
// intrinsic euler angles in radians.
type Pose struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
	RX float64 `json:"rx"`
	RY float64 `json:"ry"`
	RZ float64 `json:"rz"`
}

// Array returns the pose as [x, y, z, rx, ry, rz].
func (p Pose) Array() [6]float64 {
	return [6]float64{p.X, p.Y, p.Z, p.RX, p.RY, p.RZ}
}

// PoseFromArray builds a Pose from [x, y, z, rx, ry, rz].
func PoseFromArray(a [6]float64) Pose {
	return Pose{X: a[0], Y: a[1], Z: a[2], RX: a[3], RY: a[4], RZ: a[5]}
}

// State is a snapshot of the arm as reported by the controller daemon.
// The core only ever reads it; the daemon owns the truth.
type State struct {
	Joints []float64 `json:"joints"` // degrees, one per DOF
	Pose   Pose      `json:"pose"`
}

// MotionCommand is a single motion request for one control cycle.
// It is a closed set of variants: JointCommand, PoseCommand,
// VelocityCommand. Commands are created fresh each cycle and never reused.
type MotionCommand interface {
	commandKind() string
}

// JointCommand moves the arm to absolute joint angles (degrees).
// Velocity is the daemon's planning speed in percent (1-100).
type JointCommand struct {
	Angles   []float64
	Velocity int
}

// PoseCommand moves the end effector to an absolute pose with
// linear interpolation. Velocity is planning speed in percent.
type PoseCommand struct {
	Target   Pose
	Velocity int
}

// VelocityCommand streams an instantaneous twist: linear in m/s,
// angular in rad/s.
type VelocityCommand struct {
	Linear  [3]float64
	Angular [3]float64
}

func (JointCommand) commandKind() string    { return "joint" }
func (PoseCommand) commandKind() string     { return "pose" }
func (VelocityCommand) commandKind() string { return "velocity" }

// Kind returns a short name for the command variant, for logs and telemetry.
func Kind(cmd MotionCommand) string {
	if cmd == nil {
		return "none"
	}
	return cmd.commandKind()
}

func (c JointCommand) String() string {
	return fmt.Sprintf("joint(%v @%d%%)", c.Angles, c.Velocity)
}

func (c PoseCommand) String() string {
	return fmt.Sprintf("pose(%.3f,%.3f,%.3f @%d%%)", c.Target.X, c.Target.Y, c.Target.Z, c.Velocity)
}

func (c VelocityCommand) String() string {
	return fmt.Sprintf("velocity(lin=%v ang=%v)", c.Linear, c.Angular)
}
