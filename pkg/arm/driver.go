// Package arm provides types, interfaces and drivers for vendor
// arm-controller daemons.
//
// This package follows the Interface Segregation Principle (ISP) by
// defining small, focused interfaces that can be composed as needed.
// Consumers should depend only on the interfaces they actually use.
package arm

import "context"

// Commander dispatches motion commands. Send may block on network I/O;
// callers on the control path must bound it with a context deadline.
type Commander interface {
	Send(ctx context.Context, cmd MotionCommand) error
}

// StateReader provides best-effort state snapshots. The snapshot may be
// stale under load; callers must not treat it as ground truth.
type StateReader interface {
	ReadState(ctx context.Context) (State, error)
}

// Stopper halts all motion. Stop must be callable while a Send is in
// flight; it is the emergency-stop path.
type Stopper interface {
	Stop(ctx context.Context) error
}

// ErrorClearer clears latched fault state on the daemon.
type ErrorClearer interface {
	ClearErrors(ctx context.Context) error
}

// Driver is the composite interface for full arm control.
// Use this when you need the complete driver; use the smaller
// interfaces when you need less (e.g. the safety monitor only
// needs a Stopper).
type Driver interface {
	Commander
	StateReader
	Stopper
	ErrorClearer
	Close() error
}

// Ensure the concrete drivers implement Driver.
var (
	_ Driver = (*HTTPDriver)(nil)
	_ Driver = (*MockDriver)(nil)
)
