package input

import (
	"sync"
	"time"
)

// Action is what a bound key does when held or pressed.
type Action string

const (
	ActionSurgePos Action = "surge+"
	ActionSurgeNeg Action = "surge-"
	ActionSwayPos  Action = "sway+"
	ActionSwayNeg  Action = "sway-"
	ActionHeavePos Action = "heave+"
	ActionHeaveNeg Action = "heave-"
	ActionRollPos  Action = "roll+"
	ActionRollNeg  Action = "roll-"
	ActionPitchPos Action = "pitch+"
	ActionPitchNeg Action = "pitch-"
	ActionYawPos   Action = "yaw+"
	ActionYawNeg   Action = "yaw-"

	ActionEnable     Action = "enable"
	ActionEStop      Action = "estop"
	ActionModeToggle Action = "mode"
	ActionHome       Action = "home"
	ActionSpeedUp    Action = "speed+"
	ActionSpeedDown  Action = "speed-"
	ActionTurbo      Action = "turbo"
)

// axisFor maps held-style actions onto (axis index, direction).
var axisFor = map[Action]struct {
	axis int
	dir  float64
}{
	ActionSurgePos: {AxisSurge, 1}, ActionSurgeNeg: {AxisSurge, -1},
	ActionSwayPos: {AxisSway, 1}, ActionSwayNeg: {AxisSway, -1},
	ActionHeavePos: {AxisHeave, 1}, ActionHeaveNeg: {AxisHeave, -1},
	ActionRollPos: {AxisRoll, 1}, ActionRollNeg: {AxisRoll, -1},
	ActionPitchPos: {AxisPitch, 1}, ActionPitchNeg: {AxisPitch, -1},
	ActionYawPos: {AxisYaw, 1}, ActionYawNeg: {AxisYaw, -1},
}

// DefaultKeymap mirrors the classic layout: WASD+QE translate,
// IJKL+UO rotate, enter is the deadman, space the emergency stop.
func DefaultKeymap() map[string]Action {
	return map[string]Action{
		"w": ActionSurgePos, "s": ActionSurgeNeg,
		"a": ActionSwayPos, "d": ActionSwayNeg,
		"q": ActionHeavePos, "e": ActionHeaveNeg,
		"i": ActionRollPos, "k": ActionRollNeg,
		"j": ActionPitchPos, "l": ActionPitchNeg,
		"u": ActionYawPos, "o": ActionYawNeg,
		"enter": ActionEnable,
		" ":     ActionEStop,
		"tab":   ActionModeToggle,
		"h":     ActionHome,
		"=":     ActionSpeedUp,
		"+":     ActionSpeedUp,
		"-":     ActionSpeedDown,
		"t":     ActionTurbo,
	}
}

// DefaultHoldWindow is how long a key counts as held after its last
// event. Terminals only deliver press events (sustained by auto-repeat),
// so the window must outlast the auto-repeat initial delay. This makes
// keyboard release latency soft; the gamepad deadman is the hard path.
const DefaultHoldWindow = 400 * time.Millisecond

// KeyboardSource turns terminal key events into level-triggered samples.
// The TUI feeds every key event into Press; Poll reads the held set.
type KeyboardSource struct {
	mu         sync.Mutex
	keymap     map[string]Action
	holdWindow time.Duration
	now        func() time.Time

	heldUntil map[Action]time.Time

	// one-shot events, consumed by the next Poll
	estop      bool
	modeToggle bool
	home       bool
	speedUp    bool
	speedDown  bool
}

// NewKeyboardSource creates a keyboard source with the given keymap.
// A nil keymap selects DefaultKeymap.
func NewKeyboardSource(keymap map[string]Action) *KeyboardSource {
	if keymap == nil {
		keymap = DefaultKeymap()
	}
	return &KeyboardSource{
		keymap:     keymap,
		holdWindow: DefaultHoldWindow,
		now:        time.Now,
		heldUntil:  make(map[Action]time.Time),
	}
}

// SetHoldWindow overrides how long a key stays held after its last event.
func (k *KeyboardSource) SetHoldWindow(d time.Duration) {
	k.mu.Lock()
	k.holdWindow = d
	k.mu.Unlock()
}

// Press records a key event. Held-style bindings refresh their hold
// window; discrete bindings latch until the next Poll.
func (k *KeyboardSource) Press(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	action, ok := k.keymap[key]
	if !ok {
		return
	}

	switch action {
	case ActionEStop:
		k.estop = true
	case ActionModeToggle:
		k.modeToggle = true
	case ActionHome:
		k.home = true
	case ActionSpeedUp:
		k.speedUp = true
	case ActionSpeedDown:
		k.speedDown = true
	default:
		// Held-style: movement axes, deadman, turbo.
		k.heldUntil[action] = k.now().Add(k.holdWindow)
	}
}

// Release drops a held binding immediately, for environments that do
// deliver key-up events.
func (k *KeyboardSource) Release(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if action, ok := k.keymap[key]; ok {
		delete(k.heldUntil, action)
	}
}

// Poll returns the current snapshot and consumes pending one-shot events.
func (k *KeyboardSource) Poll() Sample {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	s := Sample{
		EStop:      k.estop,
		ModeToggle: k.modeToggle,
		Home:       k.home,
		SpeedUp:    k.speedUp,
		SpeedDown:  k.speedDown,
	}
	k.estop, k.modeToggle, k.home, k.speedUp, k.speedDown = false, false, false, false, false

	for action, until := range k.heldUntil {
		if now.After(until) {
			delete(k.heldUntil, action)
			continue
		}
		switch action {
		case ActionEnable:
			s.Enable = true
		case ActionTurbo:
			s.Turbo = true
		default:
			// Opposing keys held together sum to zero.
			if m, ok := axisFor[action]; ok {
				s.Axes[m.axis] += m.dir
			}
		}
	}
	return s
}

// Close releases nothing; the terminal owns the device.
func (k *KeyboardSource) Close() error {
	return nil
}
