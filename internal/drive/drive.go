// Package drive maps a merged heading and magnitude onto the two motors of a
// differential-drive layout.
//
// The per-direction rotation signs and weights are a design constant, not a
// derived quantity: straight runs drive both motors the same way, lateral
// codes pivot by counter-rotating, and diagonals curve by running one side
// faster. Weights above 1 let unanimous crowds saturate the PWM range.
package drive

import (
	"math"

	"github.com/mfitzp/kropbot/internal/aggregate"
	"github.com/mfitzp/kropbot/internal/direction"
)

// Rotation is the commanded spin sense of one motor.
type Rotation int

const (
	Forward Rotation = iota
	Backward
)

const (
	// SpeedMultiplier scales magnitude*weight into the PWM duty range.
	// Chosen so a single full-weight vote stays inside the clamp while
	// compounded unanimous votes can reach it.
	SpeedMultiplier = 200
	// DutyMax is the hardware PWM ceiling.
	DutyMax = 255
)

// MotorCommand is one motor's commanded rotation and duty cycle. Derived
// fresh every tick and applied directly to hardware, never stored.
type MotorCommand struct {
	Rotation Rotation
	Duty     int // 0..DutyMax
}

// Neutral is the zero-duty command used for stops.
var Neutral = MotorCommand{Rotation: Forward, Duty: 0}

type gain struct {
	rotation Rotation
	weight   float64
}

// directions is the canonical 8-entry table: left motor gain, right motor
// gain. The turning geometry of the chassis lives entirely in these pairs.
var directions = map[direction.Code][2]gain{
	direction.ForwardRight: {{Forward, 0.75}, {Forward, 0.5}},
	direction.Right:        {{Forward, 0.5}, {Backward, 0.5}},
	direction.BackRight:    {{Backward, 0.75}, {Backward, 0.5}},
	direction.Backward:     {{Backward, 1}, {Backward, 1}},
	direction.BackLeft:     {{Backward, 0.5}, {Backward, 0.75}},
	direction.Left:         {{Backward, 0.5}, {Forward, 0.5}},
	direction.ForwardLeft:  {{Forward, 0.5}, {Forward, 0.75}},
	direction.Forward:      {{Forward, 1.5}, {Forward, 1.5}},
}

// Map converts a merged result into left and right motor commands.
// A stop result commands both motors to zero duty.
func Map(res aggregate.Result) (left, right MotorCommand) {
	g, ok := directions[res.Direction]
	if !ok {
		return Neutral, Neutral
	}
	return command(g[0], res.Magnitude), command(g[1], res.Magnitude)
}

func command(g gain, magnitude float64) MotorCommand {
	return MotorCommand{
		Rotation: g.rotation,
		Duty:     clampDuty(g.weight * magnitude * SpeedMultiplier),
	}
}

// clampDuty rounds and bounds a raw duty into the PWM range. Overflow from
// compounded votes clamps, never errors.
func clampDuty(raw float64) int {
	duty := int(math.Round(raw))
	if duty < 0 {
		return 0
	}
	if duty > DutyMax {
		return DutyMax
	}
	return duty
}
