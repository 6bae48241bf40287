package teleop

import (
	"testing"
	"time"
)

func newTestSession() *Session {
	return NewSession(ModeCartesian, DefaultProfile(), DefaultEnvelope())
}

func TestSession_PhaseTransitions(t *testing.T) {
	s := newTestSession()
	if s.Phase() != PhaseIdle {
		t.Errorf("New session should be idle, got %v", s.Phase())
	}

	s.SetEnabled(true)
	if s.Phase() != PhaseArmed {
		t.Errorf("Expected armed, got %v", s.Phase())
	}

	s.LatchEStop()
	if s.Phase() != PhaseStopped {
		t.Errorf("EStop must win over armed, got %v", s.Phase())
	}

	s.MarkDisconnected()
	if s.Phase() != PhaseDisconnected {
		t.Errorf("Disconnected is terminal, got %v", s.Phase())
	}
}

func TestSession_EStopLatchIsSticky(t *testing.T) {
	s := newTestSession()
	if !s.LatchEStop() {
		t.Fatal("First latch should report newly set")
	}
	if s.LatchEStop() {
		t.Error("Second latch should report already set")
	}
	if !s.EStopLatched() {
		t.Error("Latch did not stick")
	}
}

func TestSession_ResetRefusedWhileDeadmanHeld(t *testing.T) {
	s := newTestSession()
	s.LatchEStop()
	s.SetEnabled(true)

	if s.ResetEStop() {
		t.Error("Reset must be refused while the deadman is held")
	}

	s.SetEnabled(false)
	if !s.ResetEStop() {
		t.Error("Reset should succeed with the deadman released")
	}
	if s.EStopLatched() {
		t.Error("Latch survived a successful reset")
	}
}

func TestSession_ToggleIgnoredWhileEnabled(t *testing.T) {
	s := newTestSession()
	s.SetEnabled(true)

	if s.ToggleMode() {
		t.Error("Toggle must be ignored while enabled")
	}
	if s.Mode() != ModeCartesian {
		t.Errorf("Mode changed while enabled: %v", s.Mode())
	}

	s.SetEnabled(false)
	if !s.ToggleMode() {
		t.Error("Toggle should work with the deadman released")
	}
	if s.Mode() != ModeJoint {
		t.Errorf("Expected joint mode, got %v", s.Mode())
	}
}

func TestSession_SelectModeEntersVelocity(t *testing.T) {
	s := newTestSession()
	if !s.SelectMode(ModeVelocity) {
		t.Fatal("Explicit selection should enter velocity mode")
	}
	// The toggle never leaves velocity mode.
	if s.ToggleMode() {
		t.Error("Toggle must not leave velocity mode")
	}
	if !s.SelectMode(ModeJoint) {
		t.Error("Explicit selection should leave velocity mode")
	}
}

func TestSession_SelectModeRejectsInvalid(t *testing.T) {
	s := newTestSession()
	if s.SelectMode(Mode("warp")) {
		t.Error("Invalid mode accepted")
	}
}

func TestSession_SpeedAdjustStaysInEnvelope(t *testing.T) {
	env := DefaultEnvelope()
	s := NewSession(ModeCartesian, DefaultProfile(), env)

	for i := 0; i < 50; i++ {
		s.AdjustSpeed(true)
	}
	p := s.Profile()
	if p.Linear > env.Max.Linear || p.Angular > env.Max.Angular || p.Joint > env.Max.Joint {
		t.Errorf("Profile escaped the envelope upward: %+v", p)
	}

	for i := 0; i < 50; i++ {
		s.AdjustSpeed(false)
	}
	p = s.Profile()
	if p.Linear < env.Min.Linear || p.Angular < env.Min.Angular || p.Joint < env.Min.Joint {
		t.Errorf("Profile escaped the envelope downward: %+v", p)
	}
}

func TestSession_TurboBoundedByEnvelope(t *testing.T) {
	env := DefaultEnvelope()
	s := NewSession(ModeCartesian, DefaultProfile(), env)

	p := s.EffectiveProfile(true)
	if p.Linear > env.Max.Linear {
		t.Errorf("Turbo escaped the envelope: %+v", p)
	}
	if p.Linear <= s.Profile().Linear {
		t.Errorf("Turbo did not raise the speed: %v vs %v", p.Linear, s.Profile().Linear)
	}

	if s.EffectiveProfile(false) != s.Profile() {
		t.Error("Non-turbo effective profile must equal the base profile")
	}
}

func TestSession_SnapshotReflectsState(t *testing.T) {
	s := newTestSession()
	s.SetEnabled(true)
	s.MarkDispatch(time.Now())

	snap := s.Snapshot()
	if snap.ID == "" {
		t.Error("Snapshot missing session id")
	}
	if snap.Phase != PhaseArmed || !snap.Enabled {
		t.Errorf("Snapshot out of sync: %+v", snap)
	}
	if snap.LastDispatch.IsZero() {
		t.Error("Snapshot missing dispatch time")
	}
}

func TestNewSession_InvalidModeFallsBack(t *testing.T) {
	s := NewSession(Mode("bogus"), DefaultProfile(), DefaultEnvelope())
	if s.Mode() != ModeCartesian {
		t.Errorf("Expected cartesian fallback, got %v", s.Mode())
	}
}
