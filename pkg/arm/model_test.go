package arm

import "testing"

func TestModelByName(t *testing.T) {
	m, err := ModelByName("rm65")
	if err != nil {
		t.Fatalf("ModelByName(rm65): %v", err)
	}
	if m.DOF != 6 {
		t.Errorf("Expected 6 DOF, got %d", m.DOF)
	}
	if len(m.HomeJoints) != m.DOF {
		t.Errorf("Home joints length %d does not match DOF %d", len(m.HomeJoints), m.DOF)
	}
}

func TestModelByName_SevenDOF(t *testing.T) {
	m, err := ModelByName("RM75")
	if err != nil {
		t.Fatalf("ModelByName(RM75): %v", err)
	}
	if m.DOF != 7 {
		t.Errorf("Expected 7 DOF, got %d", m.DOF)
	}
}

func TestModelByName_Unknown(t *testing.T) {
	if _, err := ModelByName("UR5"); err == nil {
		t.Error("Expected error for unknown model")
	}
}

func TestModelByName_HomeJointsAreCopied(t *testing.T) {
	a, _ := ModelByName("RM65")
	a.HomeJoints[0] = 999

	b, _ := ModelByName("RM65")
	if b.HomeJoints[0] == 999 {
		t.Error("Mutating a returned model leaked into the model table")
	}
}

func TestPoseArrayRoundTrip(t *testing.T) {
	p := Pose{X: 0.1, Y: -0.2, Z: 0.3, RX: 1, RY: 2, RZ: 3}
	got := PoseFromArray(p.Array())
	if got != p {
		t.Errorf("Round trip changed pose: %+v != %+v", got, p)
	}
}

func TestKind(t *testing.T) {
	if Kind(JointCommand{}) != "joint" {
		t.Error("Wrong kind for JointCommand")
	}
	if Kind(PoseCommand{}) != "pose" {
		t.Error("Wrong kind for PoseCommand")
	}
	if Kind(VelocityCommand{}) != "velocity" {
		t.Error("Wrong kind for VelocityCommand")
	}
	if Kind(nil) != "none" {
		t.Error("Wrong kind for nil command")
	}
}
