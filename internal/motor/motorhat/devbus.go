//go:build linux

package motorhat

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// i2cSlave is the Linux i2c-dev ioctl selecting the target chip address.
const i2cSlave = 0x0703

// DevBus is a Bus over a Linux /dev/i2c-N character device.
type DevBus struct {
	f *os.File
}

var _ Bus = (*DevBus)(nil)

// OpenDevBus opens the numbered I2C adapter and selects the chip address.
func OpenDevBus(adapter int, addr byte) (*DevBus, error) {
	path := fmt.Sprintf("/dev/i2c-%d", adapter)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("device_not_found: open %s: %w", path, err)
	}
	if err := unix.IoctlSetInt(int(f.Fd()), i2cSlave, int(addr)); err != nil {
		f.Close()
		return nil, fmt.Errorf("bus_error: select address 0x%02x: %w", addr, err)
	}
	return &DevBus{f: f}, nil
}

// WriteReg writes one register byte.
func (b *DevBus) WriteReg(reg, value byte) error {
	if _, err := b.f.Write([]byte{reg, value}); err != nil {
		return fmt.Errorf("i2c_nack: write reg 0x%02x: %w", reg, err)
	}
	return nil
}

// ReadReg reads one register byte.
func (b *DevBus) ReadReg(reg byte) (byte, error) {
	if _, err := b.f.Write([]byte{reg}); err != nil {
		return 0, fmt.Errorf("i2c_nack: select reg 0x%02x: %w", reg, err)
	}
	buf := make([]byte, 1)
	if _, err := b.f.Read(buf); err != nil {
		return 0, fmt.Errorf("i2c_nack: read reg 0x%02x: %w", reg, err)
	}
	return buf[0], nil
}

// Close releases the adapter.
func (b *DevBus) Close() error {
	return b.f.Close()
}
