// Package fake provides an in-memory motor driver for testing.
package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/mfitzp/kropbot/internal/drive"
	"github.com/mfitzp/kropbot/internal/motor"
)

// Applied records one Apply call.
type Applied struct {
	Left  drive.MotorCommand
	Right drive.MotorCommand
}

// FakeDriver implements IMotorDriver for testing purposes.
type FakeDriver struct {
	motor.DriverBase

	mu       sync.Mutex
	applied  []Applied
	released bool

	// Error simulation
	simulateErrors bool
	errorText      string
}

var _ motor.IMotorDriver = (*FakeDriver)(nil)

// NewFakeDriver creates a new fake driver for testing.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{
		DriverBase: motor.DriverBase{
			Model:  "Fake-Motor-Test",
			Status: "online",
		},
	}
}

// Apply records the commanded motor state.
func (f *FakeDriver) Apply(ctx context.Context, left, right drive.MotorCommand) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.simulateErrors {
		return motor.NormalizeDriverError(fmt.Errorf("%s", f.errorText))
	}

	f.applied = append(f.applied, Applied{Left: left, Right: right})
	f.released = false
	return nil
}

// Release records that the motors were commanded to neutral.
func (f *FakeDriver) Release() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = true
	return nil
}

// SetSimulateErrors makes subsequent Apply calls fail with the given
// backend error text.
func (f *FakeDriver) SetSimulateErrors(enabled bool, errorText string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.simulateErrors = enabled
	f.errorText = errorText
}

// AppliedCommands returns a copy of all recorded Apply calls.
func (f *FakeDriver) AppliedCommands() []Applied {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Applied, len(f.applied))
	copy(out, f.applied)
	return out
}

// LastApplied returns the most recent Apply call, if any.
func (f *FakeDriver) LastApplied() (Applied, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.applied) == 0 {
		return Applied{}, false
	}
	return f.applied[len(f.applied)-1], true
}

// Released reports whether Release was called after the last Apply.
func (f *FakeDriver) Released() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released
}
