package arm

import (
	"context"
	"sync"
	"time"
)

// MockDriver is an in-memory Driver for testing. It records every
// command and can be scripted to fail or stall.
type MockDriver struct {
	mu sync.Mutex

	// CurrentState is returned by ReadState.
	CurrentState State

	// SendErr, if set, is returned by Send.
	SendErr error

	// SendDelay stalls Send to simulate a slow daemon. Send still
	// honors context cancellation during the stall.
	SendDelay time.Duration

	// ReadErr, if set, is returned by ReadState.
	ReadErr error

	commands   []MotionCommand
	stopCalls  int
	clearCalls int
	closed     bool
}

// NewMockDriver creates a mock driver with the given initial state.
func NewMockDriver(state State) *MockDriver {
	return &MockDriver{CurrentState: state}
}

// Send records the command, honoring SendDelay and SendErr.
func (m *MockDriver) Send(ctx context.Context, cmd MotionCommand) error {
	m.mu.Lock()
	delay := m.SendDelay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrNotConnected
	}
	if m.SendErr != nil {
		return m.SendErr
	}
	m.commands = append(m.commands, cmd)
	return nil
}

// ReadState returns CurrentState or ReadErr.
func (m *MockDriver) ReadState(ctx context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return State{}, m.ReadErr
	}
	return m.CurrentState, nil
}

// Stop counts stop calls. It never fails: the mock models a daemon
// whose stop path stays reachable.
func (m *MockDriver) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCalls++
	return nil
}

// ClearErrors counts clear calls.
func (m *MockDriver) ClearErrors(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearCalls++
	return nil
}

// Close marks the driver closed. Further Sends fail with ErrNotConnected.
func (m *MockDriver) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// SetState replaces the state returned by ReadState.
func (m *MockDriver) SetState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CurrentState = s
}

// Commands returns a copy of all recorded commands.
func (m *MockDriver) Commands() []MotionCommand {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MotionCommand, len(m.commands))
	copy(out, m.commands)
	return out
}

// LastCommand returns the most recent command, or nil.
func (m *MockDriver) LastCommand() MotionCommand {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.commands) == 0 {
		return nil
	}
	return m.commands[len(m.commands)-1]
}

// StopCalls returns how many times Stop was invoked.
func (m *MockDriver) StopCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopCalls
}

// ClearCalls returns how many times ClearErrors was invoked.
func (m *MockDriver) ClearCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clearCalls
}
