//go:build !linux

package motorhat

import "fmt"

// DevBus is only backed by a real adapter on Linux. This stub keeps the
// rover binary buildable on development machines.
type DevBus struct{}

var _ Bus = (*DevBus)(nil)

// OpenDevBus always fails off Linux.
func OpenDevBus(adapter int, addr byte) (*DevBus, error) {
	return nil, fmt.Errorf("device_not_found: /dev/i2c-%d requires linux", adapter)
}

func (b *DevBus) WriteReg(reg, value byte) error {
	return fmt.Errorf("bus_error: no device")
}

func (b *DevBus) ReadReg(reg byte) (byte, error) {
	return 0, fmt.Errorf("bus_error: no device")
}

// Close releases nothing.
func (b *DevBus) Close() error { return nil }
