package safety

import (
	"log/slog"
	"sync"
	"time"

	"github.com/armkit/go-armteleop/internal/log"
	"github.com/armkit/go-armteleop/pkg/arm"
)

// Reason explains why a candidate command was suppressed.
type Reason string

const (
	// ReasonNone marks an accepted command.
	ReasonNone Reason = ""

	// ReasonEStopActive: the emergency stop is latched. Terminal
	// until an explicit reset.
	ReasonEStopActive Reason = "estop_active"

	// ReasonDeadmanReleased: the deadman is not held. Expected and
	// recoverable every cycle; never logged as an error.
	ReasonDeadmanReleased Reason = "deadman_released"

	// ReasonRateExceeded: the previous accepted dispatch is younger
	// than one cycle period.
	ReasonRateExceeded Reason = "rate_exceeded"
)

// Decision is the outcome of filtering one candidate command.
type Decision struct {
	Accepted bool
	Command  arm.MotionCommand // valid when Accepted; may be clamped
	Reason   Reason
	Clamped  bool // a velocity or workspace clamp was applied
}

// Context is the slice of session state the filter needs. The loop owns
// the session; the monitor never mutates it.
type Context struct {
	EStopLatched      bool
	Enabled           bool
	SinceLastDispatch time.Duration
	CyclePeriod       time.Duration
}

// rateSlack tolerates scheduler jitter: a dispatch is refused only when
// it arrives meaningfully inside the previous one's cycle period.
const rateSlack = 0.9

// Counters is a snapshot of suppression and clamp totals for telemetry.
type Counters struct {
	EStopSuppressed   uint64 `json:"estop_suppressed"`
	DeadmanSuppressed uint64 `json:"deadman_suppressed"`
	RateSuppressed    uint64 `json:"rate_suppressed"`
	VelocityClamps    uint64 `json:"velocity_clamps"`
	WorkspaceClamps   uint64 `json:"workspace_clamps"`
	Accepted          uint64 `json:"accepted"`
}

// Monitor validates and clamps candidate commands against the session
// limits. It is stateless apart from telemetry counters; the emergency
// stop latch lives in the session.
type Monitor struct {
	limits Limits
	logger *slog.Logger

	mu       sync.Mutex
	counters Counters
}

// NewMonitor creates a monitor, validating the limits. Invalid limits
// are a startup-fatal ErrConfigInvalid.
func NewMonitor(limits Limits) (*Monitor, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	return &Monitor{
		limits: limits,
		logger: log.Component("safety"),
	}, nil
}

// Limits returns the session limits.
func (m *Monitor) Limits() Limits {
	return m.limits
}

// Counters returns a snapshot of the telemetry counters.
func (m *Monitor) Counters() Counters {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters
}

// Filter runs the ordered safety checks on a candidate. The first
// failing check wins and short-circuits the rest:
//
//  1. latched emergency stop
//  2. deadman released
//  3. velocity magnitude clamp (proceeds clamped, logged)
//  4. workspace clamp for pose targets (proceeds clamped, logged)
//  5. dispatch rate limit
func (m *Monitor) Filter(cmd arm.MotionCommand, state arm.State, sctx Context) Decision {
	if sctx.EStopLatched {
		m.count(func(c *Counters) { c.EStopSuppressed++ })
		return Decision{Reason: ReasonEStopActive}
	}

	if !sctx.Enabled {
		m.count(func(c *Counters) { c.DeadmanSuppressed++ })
		return Decision{Reason: ReasonDeadmanReleased}
	}

	cmd, velClamped := m.clampVelocity(cmd, state, sctx.CyclePeriod)
	if velClamped {
		m.count(func(c *Counters) { c.VelocityClamps++ })
		m.logger.Warn("velocity clamped", "command", arm.Kind(cmd))
	}

	cmd, boxClamped := m.clampWorkspace(cmd)
	if boxClamped {
		m.count(func(c *Counters) { c.WorkspaceClamps++ })
		m.logger.Warn("workspace clamped", "command", arm.Kind(cmd))
	}

	if sctx.SinceLastDispatch < time.Duration(rateSlack*float64(sctx.CyclePeriod)) {
		m.count(func(c *Counters) { c.RateSuppressed++ })
		m.logger.Debug("dispatch rate exceeded",
			"since_last", sctx.SinceLastDispatch, "period", sctx.CyclePeriod)
		return Decision{Reason: ReasonRateExceeded}
	}

	m.count(func(c *Counters) { c.Accepted++ })
	return Decision{
		Accepted: true,
		Command:  cmd,
		Clamped:  velClamped || boxClamped,
	}
}

// clampVelocity bounds each velocity or implied-rate component. Target
// commands (joint, pose) are converted to per-cycle rates against the
// current state, clamped, and re-integrated.
func (m *Monitor) clampVelocity(cmd arm.MotionCommand, state arm.State, period time.Duration) (arm.MotionCommand, bool) {
	dt := period.Seconds()
	if dt <= 0 {
		dt = 0.01
	}

	switch c := cmd.(type) {
	case arm.VelocityCommand:
		clamped := false
		for i := 0; i < 3; i++ {
			if v := Clamp(c.Linear[i], m.limits.MaxLinear); v != c.Linear[i] {
				c.Linear[i] = v
				clamped = true
			}
			if v := Clamp(c.Angular[i], m.limits.MaxAngular); v != c.Angular[i] {
				c.Angular[i] = v
				clamped = true
			}
		}
		return c, clamped

	case arm.JointCommand:
		if len(state.Joints) < len(c.Angles) {
			return c, false
		}
		angles := make([]float64, len(c.Angles))
		copy(angles, c.Angles)
		clamped := false
		for i := range angles {
			rate := (angles[i] - state.Joints[i]) / dt
			if r := Clamp(rate, m.limits.MaxJoint); r != rate {
				angles[i] = state.Joints[i] + r*dt
				clamped = true
			}
		}
		if !clamped {
			return c, false
		}
		c.Angles = angles
		return c, true

	case arm.PoseCommand:
		cur := state.Pose.Array()
		tgt := c.Target.Array()
		clamped := false
		for i := 0; i < 6; i++ {
			limit := m.limits.MaxLinear
			if i >= 3 {
				limit = m.limits.MaxAngular
			}
			rate := (tgt[i] - cur[i]) / dt
			if r := Clamp(rate, limit); r != rate {
				tgt[i] = cur[i] + r*dt
				clamped = true
			}
		}
		if !clamped {
			return c, false
		}
		c.Target = arm.PoseFromArray(tgt)
		return c, true
	}
	return cmd, false
}

// clampWorkspace applies the box to pose targets only. Offending
// coordinates clamp to the nearest boundary so motion along permitted
// axes is preserved.
func (m *Monitor) clampWorkspace(cmd arm.MotionCommand) (arm.MotionCommand, bool) {
	if m.limits.Workspace == nil {
		return cmd, false
	}
	c, ok := cmd.(arm.PoseCommand)
	if !ok {
		return cmd, false
	}
	pose, clamped := m.limits.Workspace.ClampPose(c.Target)
	if !clamped {
		return cmd, false
	}
	c.Target = pose
	return c, true
}

func (m *Monitor) count(f func(*Counters)) {
	m.mu.Lock()
	f(&m.counters)
	m.mu.Unlock()
}
