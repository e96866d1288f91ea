// Package motorhat drives two DC motors through an Adafruit Motor HAT
// (PCA9685 PWM controller plus TB6612 H-bridges) on an I2C bus.
//
// All hardware access goes through the Bus interface so the register
// protocol can be exercised without a physical HAT.
package motorhat

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/mfitzp/kropbot/internal/drive"
	"github.com/mfitzp/kropbot/internal/motor"
)

// Bus is a byte-register I2C device connection.
type Bus interface {
	WriteReg(reg, value byte) error
	ReadReg(reg byte) (byte, error)
}

// DefaultAddr is the Motor HAT's I2C address.
const DefaultAddr = 0x6F

// PCA9685 registers.
const (
	regMode1    = 0x00
	regMode2    = 0x01
	regPrescale = 0xFE
	regLed0OnL  = 0x06 // each channel spans 4 registers from here
	regAllOnL   = 0xFA
)

// PCA9685 mode bits.
const (
	mode1AllCall = 0x01
	mode1Sleep   = 0x10
	mode1Restart = 0x80
	mode2Outdrv  = 0x04
)

// pwmFrequencyHz is the HAT's motor PWM frequency.
const pwmFrequencyHz = 1600

// channels assigns PCA9685 channels to each motor's PWM and H-bridge inputs.
type channels struct {
	pwm, in1, in2 byte
}

var (
	leftChannels  = channels{pwm: 8, in1: 10, in2: 9}   // HAT motor 1
	rightChannels = channels{pwm: 13, in1: 11, in2: 12} // HAT motor 2
)

// Driver implements IMotorDriver over a Motor HAT.
type Driver struct {
	motor.DriverBase
	bus Bus
}

var _ motor.IMotorDriver = (*Driver)(nil)

// New initializes the HAT and returns a driver. Any bus failure here is
// surfaced so startup can abort before the control loop runs.
func New(bus Bus) (*Driver, error) {
	d := &Driver{
		DriverBase: motor.DriverBase{
			Model:  "Adafruit-Motor-HAT",
			Status: "online",
		},
		bus: bus,
	}
	if err := d.init(); err != nil {
		return nil, motor.NormalizeDriverError(fmt.Errorf("motor hat init: %w", err))
	}
	return d, nil
}

func (d *Driver) init() error {
	// All channels off, push-pull outputs, respond to all-call.
	if err := d.setAllPWM(0, 0); err != nil {
		return err
	}
	if err := d.bus.WriteReg(regMode2, mode2Outdrv); err != nil {
		return err
	}
	if err := d.bus.WriteReg(regMode1, mode1AllCall); err != nil {
		return err
	}
	time.Sleep(5 * time.Millisecond) // oscillator settle

	// Wake from sleep.
	mode1, err := d.bus.ReadReg(regMode1)
	if err != nil {
		return err
	}
	if err := d.bus.WriteReg(regMode1, mode1&^mode1Sleep); err != nil {
		return err
	}
	time.Sleep(5 * time.Millisecond)

	return d.setPWMFrequency(pwmFrequencyHz)
}

// setPWMFrequency programs the prescaler. The chip must be asleep while the
// prescale register is written.
func (d *Driver) setPWMFrequency(hz int) error {
	// 25 MHz internal oscillator, 12-bit counter.
	prescale := byte(math.Floor(25000000.0/4096.0/float64(hz) - 1.0 + 0.5))

	oldMode, err := d.bus.ReadReg(regMode1)
	if err != nil {
		return err
	}
	if err := d.bus.WriteReg(regMode1, (oldMode&^mode1Restart)|mode1Sleep); err != nil {
		return err
	}
	if err := d.bus.WriteReg(regPrescale, prescale); err != nil {
		return err
	}
	if err := d.bus.WriteReg(regMode1, oldMode); err != nil {
		return err
	}
	time.Sleep(5 * time.Millisecond)
	return d.bus.WriteReg(regMode1, oldMode|mode1Restart)
}

// Apply drives both motors. Duty 0..255 is expanded to the chip's 12-bit
// range; the H-bridge pins select the rotation sense.
func (d *Driver) Apply(ctx context.Context, left, right drive.MotorCommand) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := d.applyMotor(leftChannels, left); err != nil {
		return motor.NormalizeDriverError(err)
	}
	if err := d.applyMotor(rightChannels, right); err != nil {
		return motor.NormalizeDriverError(err)
	}
	return nil
}

func (d *Driver) applyMotor(ch channels, cmd drive.MotorCommand) error {
	if cmd.Duty < 0 || cmd.Duty > drive.DutyMax {
		return fmt.Errorf("pwm_out_of_range: duty %d", cmd.Duty)
	}

	var in1, in2 bool
	if cmd.Duty > 0 {
		switch cmd.Rotation {
		case drive.Forward:
			in1, in2 = true, false
		case drive.Backward:
			in1, in2 = false, true
		}
	}
	if err := d.setPin(ch.in1, in1); err != nil {
		return err
	}
	if err := d.setPin(ch.in2, in2); err != nil {
		return err
	}
	// 8-bit duty to 12-bit compare value.
	return d.setPWM(ch.pwm, 0, uint16(cmd.Duty)*16)
}

// Release commands both H-bridges to coast and zeroes the PWM channels.
func (d *Driver) Release() error {
	for _, ch := range []channels{leftChannels, rightChannels} {
		if err := d.setPin(ch.in1, false); err != nil {
			return motor.NormalizeDriverError(err)
		}
		if err := d.setPin(ch.in2, false); err != nil {
			return motor.NormalizeDriverError(err)
		}
		if err := d.setPWM(ch.pwm, 0, 0); err != nil {
			return motor.NormalizeDriverError(err)
		}
	}
	return nil
}

// setPWM writes one channel's on/off compare values.
func (d *Driver) setPWM(channel byte, on, off uint16) error {
	base := regLed0OnL + 4*channel
	for i, v := range []byte{byte(on), byte(on >> 8), byte(off), byte(off >> 8)} {
		if err := d.bus.WriteReg(base+byte(i), v); err != nil {
			return err
		}
	}
	return nil
}

// setPin drives a channel fully high or fully low using the chip's
// full-on/full-off bits.
func (d *Driver) setPin(channel byte, high bool) error {
	if high {
		return d.setPWM(channel, 4096, 0)
	}
	return d.setPWM(channel, 0, 4096)
}

// setAllPWM writes the all-channel registers.
func (d *Driver) setAllPWM(on, off uint16) error {
	for i, v := range []byte{byte(on), byte(on >> 8), byte(off), byte(off >> 8)} {
		if err := d.bus.WriteReg(regAllOnL+byte(i), v); err != nil {
			return err
		}
	}
	return nil
}
