package teleop

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Phase is the session-level state of the loop.
type Phase string

const (
	// PhaseIdle: connected, deadman released, no estop.
	PhaseIdle Phase = "idle"
	// PhaseArmed: deadman held, commands flowing.
	PhaseArmed Phase = "armed"
	// PhaseStopped: emergency stop latched.
	PhaseStopped Phase = "stopped"
	// PhaseDisconnected: the driver link failed; terminal for the session.
	PhaseDisconnected Phase = "disconnected"
)

// Session is the only mutable state shared across cycles. The loop is
// the sole writer; the lock exists for the telemetry reader and the
// concurrent estop path.
type Session struct {
	mu sync.RWMutex

	id           string
	mode         Mode
	enabled      bool
	estopLatched bool
	disconnected bool
	profile      Profile
	envelope     ProfileEnvelope
	lastDispatch time.Time
}

// Snapshot is an immutable copy of the session for telemetry.
type Snapshot struct {
	ID           string    `json:"id"`
	Phase        Phase     `json:"phase"`
	Mode         Mode      `json:"mode"`
	Enabled      bool      `json:"enabled"`
	EStopLatched bool      `json:"estop_latched"`
	Profile      Profile   `json:"profile"`
	LastDispatch time.Time `json:"last_dispatch,omitempty"`
}

// NewSession creates a session in the given mode with the given speed
// profile, clamped to its envelope.
func NewSession(mode Mode, profile Profile, envelope ProfileEnvelope) *Session {
	if !mode.Valid() {
		mode = ModeCartesian
	}
	return &Session{
		id:       uuid.NewString(),
		mode:     mode,
		profile:  envelope.Clamp(profile),
		envelope: envelope,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Phase derives the session phase from its flags.
func (s *Session) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phaseLocked()
}

func (s *Session) phaseLocked() Phase {
	switch {
	case s.disconnected:
		return PhaseDisconnected
	case s.estopLatched:
		return PhaseStopped
	case s.enabled:
		return PhaseArmed
	default:
		return PhaseIdle
	}
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		ID:           s.id,
		Phase:        s.phaseLocked(),
		Mode:         s.mode,
		Enabled:      s.enabled,
		EStopLatched: s.estopLatched,
		Profile:      s.profile,
		LastDispatch: s.lastDispatch,
	}
}

// Mode returns the active control mode.
func (s *Session) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// Enabled reports whether the deadman is held.
func (s *Session) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// EStopLatched reports whether the emergency stop is latched.
func (s *Session) EStopLatched() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.estopLatched
}

// Profile returns the current speed profile.
func (s *Session) Profile() Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// LastDispatch returns the time of the last accepted dispatch.
func (s *Session) LastDispatch() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastDispatch
}

// SetEnabled updates the deadman state and reports whether it changed.
func (s *Session) SetEnabled(enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enabled == enabled {
		return false
	}
	s.enabled = enabled
	return true
}

// LatchEStop sets the emergency stop latch. Returns true if the latch
// was newly set.
func (s *Session) LatchEStop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.estopLatched {
		return false
	}
	s.estopLatched = true
	return true
}

// ResetEStop clears the latch. Refused while the deadman is held, so
// the press that clears the stop cannot also arm motion.
func (s *Session) ResetEStop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.estopLatched || s.enabled {
		return false
	}
	s.estopLatched = false
	return true
}

// ToggleMode advances the mode toggle cycle. Ignored while the deadman
// is held: switching semantics mid-burst would change the motion
// envelope under the operator's fingers.
func (s *Session) ToggleMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enabled {
		return false
	}
	next := s.mode.Toggled()
	if next == s.mode {
		return false
	}
	s.mode = next
	return true
}

// SelectMode sets the mode explicitly (the only way in or out of
// velocity mode). Refused while enabled, same as the toggle.
func (s *Session) SelectMode(mode Mode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enabled || !mode.Valid() || mode == s.mode {
		return false
	}
	s.mode = mode
	return true
}

// AdjustSpeed scales the profile one step up or down within the
// envelope.
func (s *Session) AdjustSpeed(up bool) Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := SpeedStep
	if !up {
		f = 1 / SpeedStep
	}
	s.profile = s.envelope.Clamp(s.profile.Scaled(f))
	return s.profile
}

// EffectiveProfile returns the profile for this cycle, applying the
// turbo factor when held. Turbo never escapes the envelope.
func (s *Session) EffectiveProfile(turbo bool) Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !turbo {
		return s.profile
	}
	return s.envelope.Clamp(s.profile.Scaled(TurboFactor))
}

// MarkDispatch records an accepted dispatch at t.
func (s *Session) MarkDispatch(t time.Time) {
	s.mu.Lock()
	s.lastDispatch = t
	s.mu.Unlock()
}

// MarkDisconnected moves the session to its terminal phase.
func (s *Session) MarkDisconnected() {
	s.mu.Lock()
	s.disconnected = true
	s.mu.Unlock()
}
