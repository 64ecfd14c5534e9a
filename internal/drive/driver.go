// Package drive delivers wheel commands to the motor hardware.
package drive

import (
	"sync"

	"github.com/evzhukov/lanekeeper/internal/control"
)

// Driver defines the interface for wheel actuator implementations.
type Driver interface {
	// Drive applies a wheel command. Implementations must not block the
	// control loop indefinitely.
	Drive(cmd control.WheelCommand) error

	// Stop brings both wheels to zero velocity.
	Stop() error

	// Close releases the underlying transport.
	Close() error
}

// MockDriver records commands for tests.
type MockDriver struct {
	mu       sync.Mutex
	commands []control.WheelCommand
	stops    int
	err      error
}

// NewMockDriver creates a new MockDriver instance.
func NewMockDriver() *MockDriver {
	return &MockDriver{}
}

// SetError sets the error returned by Drive and Stop.
func (m *MockDriver) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Drive records the command.
func (m *MockDriver) Drive(cmd control.WheelCommand) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.commands = append(m.commands, cmd)
	return nil
}

// Stop records a zero command.
func (m *MockDriver) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.stops++
	m.commands = append(m.commands, control.WheelCommand{})
	return nil
}

// Close is a no-op for the mock driver.
func (m *MockDriver) Close() error {
	return nil
}

// Commands returns a copy of every command received so far.
func (m *MockDriver) Commands() []control.WheelCommand {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]control.WheelCommand, len(m.commands))
	copy(out, m.commands)
	return out
}

// LastCommand returns the most recent command, or a zero command if none.
func (m *MockDriver) LastCommand() control.WheelCommand {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.commands) == 0 {
		return control.WheelCommand{}
	}
	return m.commands[len(m.commands)-1]
}

// Stops returns how many explicit Stop calls were made.
func (m *MockDriver) Stops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}
