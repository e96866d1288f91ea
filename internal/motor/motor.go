// Package motor defines the stable southbound contract for the drive motors.
package motor

import (
	"context"

	"github.com/mfitzp/kropbot/internal/drive"
)

// IMotorDriver is the southbound contract every motor backend implements.
type IMotorDriver interface {
	// Apply drives both motors with the given commands.
	Apply(ctx context.Context, left, right drive.MotorCommand) error

	// Release commands both motors to neutral (coast, zero duty). Called on
	// every shutdown path; must be safe to call repeatedly.
	Release() error
}

// DriverBase provides common identity fields for driver implementations.
type DriverBase struct {
	// Model identifies the motor controller hardware.
	Model string

	// Status indicates the current driver status.
	Status string
}

// GetModel returns the controller model.
func (d *DriverBase) GetModel() string {
	return d.Model
}

// GetStatus returns the driver status.
func (d *DriverBase) GetStatus() string {
	return d.Status
}

// SetStatus updates the driver status.
func (d *DriverBase) SetStatus(status string) {
	d.Status = status
}
