// Package teleop implements the fixed-rate teleoperation loop: sample
// input, compute a candidate command for the active mode, gate it
// through the safety monitor, dispatch, sleep.
package teleop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/armkit/go-armteleop/internal/log"
	"github.com/armkit/go-armteleop/pkg/arm"
	"github.com/armkit/go-armteleop/pkg/input"
	"github.com/armkit/go-armteleop/pkg/safety"
)

// ErrDisconnected ends the session after too many consecutive driver
// failures. Reconnection is an operator decision, not the loop's.
var ErrDisconnected = errors.New("teleop: driver link lost")

// Defaults for loop options.
const (
	DefaultRate            = 100.0 // Hz
	DefaultDispatchTimeout = 100 * time.Millisecond
	DefaultMaxFailures     = 10

	// HomeVelocity is the planning speed for homing moves.
	HomeVelocity = 20
)

// Options configures a Loop. Zero values select the defaults.
type Options struct {
	Rate            float64       // control frequency in Hz
	DispatchTimeout time.Duration // bound on one driver Send
	MaxFailures     int           // consecutive failures before Disconnected

	Mode           Mode
	Profile        Profile
	Envelope       ProfileEnvelope
	SmoothingAlpha float64

	// JointAxes maps each joint index to the input axis driving it
	// (-1 for none). Nil is the identity mapping.
	JointAxes []int

	// Model supplies the home position for the home action.
	Model arm.Model
}

// Loop owns the session and drives the control cycle. The loop
// goroutine is the only writer of cross-cycle state; the emergency
// stop path and telemetry readers go through the session's lock.
type Loop struct {
	driver  arm.Driver
	source  input.Source
	monitor *safety.Monitor
	session *Session

	period          time.Duration
	dispatchTimeout time.Duration
	maxFailures     int
	jointAxes       []int
	model           arm.Model

	smoother *Smoother
	failures int // consecutive driver failures, loop goroutine only

	notify func(Snapshot)

	logger    *slog.Logger
	closeOnce sync.Once
}

// NewLoop wires a loop from its collaborators.
func NewLoop(driver arm.Driver, source input.Source, monitor *safety.Monitor, opts Options) (*Loop, error) {
	if driver == nil || source == nil || monitor == nil {
		return nil, errors.New("teleop: driver, source and monitor are required")
	}
	if opts.Rate == 0 {
		opts.Rate = DefaultRate
	}
	if opts.Rate <= 0 || opts.Rate > 1000 {
		return nil, errors.New("teleop: rate must be in (0, 1000] Hz")
	}
	if opts.DispatchTimeout <= 0 {
		opts.DispatchTimeout = DefaultDispatchTimeout
	}
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = DefaultMaxFailures
	}
	if opts.Envelope == (ProfileEnvelope{}) {
		opts.Envelope = DefaultEnvelope()
	}
	if opts.Profile == (Profile{}) {
		opts.Profile = DefaultProfile()
	}

	return &Loop{
		driver:          driver,
		source:          source,
		monitor:         monitor,
		session:         NewSession(opts.Mode, opts.Profile, opts.Envelope),
		period:          time.Duration(float64(time.Second) / opts.Rate),
		dispatchTimeout: opts.DispatchTimeout,
		maxFailures:     opts.MaxFailures,
		jointAxes:       opts.JointAxes,
		model:           opts.Model,
		smoother:        NewSmoother(opts.SmoothingAlpha),
		logger:          log.Component("loop"),
	}, nil
}

// Session exposes the loop's session for telemetry.
func (l *Loop) Session() *Session {
	return l.session
}

// Monitor exposes the safety monitor for telemetry.
func (l *Loop) Monitor() *safety.Monitor {
	return l.monitor
}

// Period returns the configured cycle period.
func (l *Loop) Period() time.Duration {
	return l.period
}

// SetNotify registers a per-cycle snapshot callback. Must be set
// before Run. The callback must not block.
func (l *Loop) SetNotify(f func(Snapshot)) {
	l.notify = f
}

// TriggerEStop latches the emergency stop and fires a hard stop at the
// driver, bypassing the candidate pipeline. Safe to call from any
// goroutine at any time: a stuck dispatch cannot delay it because the
// stop request runs independently of the cycle.
func (l *Loop) TriggerEStop() {
	if !l.session.LatchEStop() {
		return
	}
	l.logger.Error("EMERGENCY STOP latched", "session", l.session.ID())
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), l.dispatchTimeout)
		defer cancel()
		if err := l.driver.Stop(ctx); err != nil {
			l.logger.Error("hard stop failed", "err", err)
		}
	}()
}

// Run drives the loop until the context is cancelled or the driver
// link is declared lost. The ticker keeps a fixed rate, absorbing the
// time each cycle spends working.
func (l *Loop) Run(ctx context.Context) error {
	defer l.shutdown()

	l.logger.Info("teleoperation started",
		"session", l.session.ID(),
		"rate_hz", float64(time.Second)/float64(l.period),
		"mode", l.session.Mode())

	ticker := time.NewTicker(l.period)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			if dt <= 0 || dt > 2*l.period {
				// Scheduler hiccup; integrate one nominal period
				// rather than a wild delta.
				if dt > 2*l.period {
					l.logger.Warn("cycle overrun", "dt", dt, "period", l.period)
				}
				dt = l.period
			}
			if err := l.step(ctx, dt); err != nil {
				return err
			}
		}
	}
}

// Close stops the session: one final stop command, device handles
// released. Idempotent.
func (l *Loop) Close() error {
	l.shutdown()
	return nil
}

func (l *Loop) shutdown() {
	l.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), l.dispatchTimeout)
		defer cancel()
		if err := l.driver.Stop(ctx); err != nil {
			l.logger.Warn("final stop failed", "err", err)
		}
		if err := l.source.Close(); err != nil {
			l.logger.Warn("input source close failed", "err", err)
		}
		l.logger.Info("teleoperation stopped", "session", l.session.ID())
	})
}

// step runs one control cycle. Only ErrDisconnected propagates;
// everything else is a suppressed or degraded cycle and the cadence
// continues.
func (l *Loop) step(ctx context.Context, dt time.Duration) error {
	sample := l.source.Poll()

	// The estop field is consulted before anything else in the sample.
	if sample.EStop {
		l.TriggerEStop()
	}

	homing := l.applyEvents(ctx, sample)

	state, err := l.readState(ctx)
	if err != nil {
		failed := l.driverFailure("read state", err)
		l.publish()
		if failed {
			return ErrDisconnected
		}
		return nil
	}

	candidate, ok := l.candidate(sample, state, dt, homing)
	if !ok {
		l.publish()
		return nil
	}

	decision := l.monitor.Filter(candidate, state, safety.Context{
		EStopLatched:      l.session.EStopLatched(),
		Enabled:           l.session.Enabled(),
		SinceLastDispatch: time.Since(l.session.LastDispatch()),
		CyclePeriod:       l.period,
	})

	if decision.Accepted {
		if err := l.dispatch(ctx, decision.Command); err != nil {
			if l.driverFailure("dispatch", err) {
				l.publish()
				return ErrDisconnected
			}
		}
	}

	l.publish()
	return nil
}

// applyEvents updates the session from the sample's discrete events and
// reports whether a homing move was requested.
func (l *Loop) applyEvents(ctx context.Context, sample input.Sample) bool {
	if l.session.SetEnabled(sample.Enable) {
		if sample.Enable {
			l.logger.Info("control enabled")
		} else {
			l.logger.Info("control disabled")
			// Stop the arm and clear the smoother tail so the next
			// burst starts from rest.
			l.smoother.Reset()
			l.stopArm(ctx)
		}
	}

	if sample.ModeToggle {
		if l.session.ToggleMode() {
			l.logger.Info("mode switched", "mode", l.session.Mode())
		} else {
			l.logger.Debug("mode toggle ignored", "enabled", l.session.Enabled())
		}
	}

	if sample.SpeedUp {
		l.logger.Info("speed up", "profile", l.session.AdjustSpeed(true))
	}
	if sample.SpeedDown {
		l.logger.Info("speed down", "profile", l.session.AdjustSpeed(false))
	}

	if sample.Home {
		if l.session.EStopLatched() {
			if l.session.ResetEStop() {
				l.logger.Info("emergency stop reset")
				cctx, cancel := context.WithTimeout(ctx, l.dispatchTimeout)
				defer cancel()
				if err := l.driver.ClearErrors(cctx); err != nil {
					l.logger.Warn("clear errors failed", "err", err)
				}
			} else {
				l.logger.Warn("estop reset refused: release the deadman first")
			}
			return false
		}
		return true
	}
	return false
}

// candidate builds this cycle's command. Returns ok=false when there is
// nothing worth proposing: target modes with neutral input would only
// flood the daemon with no-op moves.
func (l *Loop) candidate(sample input.Sample, state arm.State, dt time.Duration, homing bool) (arm.MotionCommand, bool) {
	if homing {
		return l.homeCommand(state)
	}

	mode := l.session.Mode()
	if mode != ModeVelocity && sample.IsNeutral() {
		return nil, false
	}

	profile := l.session.EffectiveProfile(sample.Turbo)
	return Compute(mode, sample, state, profile, dt, l.jointAxes, l.smoother), true
}

func (l *Loop) homeCommand(state arm.State) (arm.MotionCommand, bool) {
	home := l.model.HomeJoints
	if len(home) == 0 {
		l.logger.Warn("home requested but no model configured")
		return nil, false
	}
	if len(state.Joints) != len(home) {
		l.logger.Warn("home refused: joint count mismatch",
			"reported", len(state.Joints), "model", len(home))
		return nil, false
	}
	angles := make([]float64, len(home))
	copy(angles, home)
	return arm.JointCommand{Angles: angles, Velocity: HomeVelocity}, true
}

func (l *Loop) readState(ctx context.Context) (arm.State, error) {
	rctx, cancel := context.WithTimeout(ctx, l.dispatchTimeout)
	defer cancel()
	return l.driver.ReadState(rctx)
}

func (l *Loop) dispatch(ctx context.Context, cmd arm.MotionCommand) error {
	dctx, cancel := context.WithTimeout(ctx, l.dispatchTimeout)
	defer cancel()
	if err := l.driver.Send(dctx, cmd); err != nil {
		return err
	}
	l.failures = 0
	l.session.MarkDispatch(time.Now())
	return nil
}

// stopArm issues a bounded stop outside the candidate pipeline, used on
// deadman release and shutdown paths.
func (l *Loop) stopArm(ctx context.Context) {
	sctx, cancel := context.WithTimeout(ctx, l.dispatchTimeout)
	defer cancel()
	if err := l.driver.Stop(sctx); err != nil {
		l.logger.Warn("stop on disable failed", "err", err)
	}
}

// driverFailure records one driver error and reports whether the
// session should be declared disconnected.
func (l *Loop) driverFailure(op string, err error) bool {
	l.failures++
	if arm.IsTimeout(err) {
		l.logger.Warn("driver timeout", "op", op, "consecutive", l.failures)
	} else {
		l.logger.Error("driver error", "op", op, "err", err, "consecutive", l.failures)
	}
	if l.failures >= l.maxFailures {
		l.session.MarkDisconnected()
		l.logger.Error("driver link lost", "failures", l.failures)
		return true
	}
	return false
}

func (l *Loop) publish() {
	if l.notify != nil {
		l.notify(l.session.Snapshot())
	}
}
