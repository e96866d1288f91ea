package motorhat

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mfitzp/kropbot/internal/drive"
	"github.com/mfitzp/kropbot/internal/motor"
)

// memBus records register writes and serves reads from a register map.
type memBus struct {
	regs      map[byte]byte
	writes    []Write
	failAfter int // fail the Nth write onward; -1 disables
}

type Write struct {
	Reg   byte
	Value byte
}

func newMemBus() *memBus {
	return &memBus{regs: make(map[byte]byte), failAfter: -1}
}

func (b *memBus) WriteReg(reg, value byte) error {
	if b.failAfter >= 0 && len(b.writes) >= b.failAfter {
		return fmt.Errorf("i2c_nack: write reg 0x%02x", reg)
	}
	b.regs[reg] = value
	b.writes = append(b.writes, Write{reg, value})
	return nil
}

func (b *memBus) ReadReg(reg byte) (byte, error) {
	return b.regs[reg], nil
}

// channelWrites extracts the last 4-byte on/off block written for a channel.
func (b *memBus) channelValues(channel byte) (on, off uint16) {
	base := regLed0OnL + 4*channel
	on = uint16(b.regs[base]) | uint16(b.regs[base+1])<<8
	off = uint16(b.regs[base+2]) | uint16(b.regs[base+3])<<8
	return on, off
}

func TestNewInitializesChip(t *testing.T) {
	bus := newMemBus()
	if _, err := New(bus); err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if bus.regs[regMode2] != mode2Outdrv {
		t.Errorf("MODE2 = 0x%02x, want OUTDRV", bus.regs[regMode2])
	}
	// 1600 Hz: round(25e6/4096/1600 - 1) = 3.
	if bus.regs[regPrescale] != 3 {
		t.Errorf("PRESCALE = %d, want 3", bus.regs[regPrescale])
	}
	if bus.regs[regMode1]&mode1Restart == 0 {
		t.Error("MODE1 restart bit not set after init")
	}
}

func TestNewBusFailureIsFatal(t *testing.T) {
	bus := newMemBus()
	bus.failAfter = 0

	_, err := New(bus)
	if err == nil {
		t.Fatal("New() succeeded on a dead bus")
	}
	if !errors.Is(err, motor.ErrUnavailable) {
		t.Errorf("New() error = %v, want UNAVAILABLE", err)
	}
}

func TestApplyForward(t *testing.T) {
	bus := newMemBus()
	d, err := New(bus)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	cmd := drive.MotorCommand{Rotation: drive.Forward, Duty: 200}
	if err := d.Apply(context.Background(), cmd, cmd); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}

	for _, ch := range []channels{leftChannels, rightChannels} {
		if on, off := bus.channelValues(ch.in1); on != 4096 || off != 0 {
			t.Errorf("in1 channel %d = %d/%d, want full on", ch.in1, on, off)
		}
		if on, off := bus.channelValues(ch.in2); on != 0 || off != 4096 {
			t.Errorf("in2 channel %d = %d/%d, want full off", ch.in2, on, off)
		}
		if on, off := bus.channelValues(ch.pwm); on != 0 || off != 200*16 {
			t.Errorf("pwm channel %d = %d/%d, want 0/%d", ch.pwm, on, off, 200*16)
		}
	}
}

func TestApplyBackwardSwapsBridge(t *testing.T) {
	bus := newMemBus()
	d, err := New(bus)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	cmd := drive.MotorCommand{Rotation: drive.Backward, Duty: 100}
	if err := d.Apply(context.Background(), cmd, drive.Neutral); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}

	if on, _ := bus.channelValues(leftChannels.in2); on != 4096 {
		t.Error("backward did not drive in2 high")
	}
	if on, off := bus.channelValues(leftChannels.in1); on != 0 || off != 4096 {
		t.Error("backward did not drive in1 low")
	}
}

func TestApplyZeroDutyCoasts(t *testing.T) {
	bus := newMemBus()
	d, err := New(bus)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if err := d.Apply(context.Background(), drive.Neutral, drive.Neutral); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	for _, ch := range []channels{leftChannels, rightChannels} {
		if on, _ := bus.channelValues(ch.in1); on != 0 {
			t.Error("zero duty left in1 driven")
		}
		if on, _ := bus.channelValues(ch.in2); on != 0 {
			t.Error("zero duty left in2 driven")
		}
	}
}

func TestApplyRejectsOutOfRangeDuty(t *testing.T) {
	bus := newMemBus()
	d, err := New(bus)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	bad := drive.MotorCommand{Rotation: drive.Forward, Duty: 300}
	err = d.Apply(context.Background(), bad, drive.Neutral)
	if !errors.Is(err, motor.ErrInvalidDuty) {
		t.Errorf("Apply() error = %v, want INVALID_DUTY", err)
	}
}

func TestReleaseZeroesEverything(t *testing.T) {
	bus := newMemBus()
	d, err := New(bus)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	cmd := drive.MotorCommand{Rotation: drive.Forward, Duty: 255}
	if err := d.Apply(context.Background(), cmd, cmd); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	if err := d.Release(); err != nil {
		t.Fatalf("Release() failed: %v", err)
	}

	for _, ch := range []channels{leftChannels, rightChannels} {
		if _, off := bus.channelValues(ch.pwm); off != 0 {
			t.Errorf("pwm channel %d still driven after Release", ch.pwm)
		}
		if on, _ := bus.channelValues(ch.in1); on != 0 {
			t.Errorf("in1 channel %d still high after Release", ch.in1)
		}
	}
}
