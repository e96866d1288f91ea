// Package direction converts between the wire encoding of steering intents
// (eight compass octants plus stop) and the angular representation used by
// the aggregator.
//
// Codes 1-8 wrap circularly (the successor of 8 is 1) and map uniformly onto
// a full turn at 45 degree steps. 0 never appears on the wire; it is an
// internal alias for 8 produced when rounding angles back to codes.
package direction

import "math"

// Code identifies one of the eight compass octants, or Stop.
type Code int

// Stop is the no-direction sentinel. It maps to a zero-length vector,
// never to an angle.
const Stop Code = 0

// The eight octants as steered from the operator's point of view.
// 8 is straight ahead, 4 is straight back, 2 and 6 are stationary pivots.
const (
	ForwardRight Code = 1
	Right        Code = 2
	BackRight    Code = 3
	Backward     Code = 4
	BackLeft     Code = 5
	Left         Code = 6
	ForwardLeft  Code = 7
	Forward      Code = 8
)

// step is the angular width of one octant.
const step = math.Pi / 4

// Valid reports whether c is Stop or a wire code in 1-8.
func (c Code) Valid() bool {
	return c == Stop || (c >= 1 && c <= 8)
}

// Angle returns the heading for c in radians. Stop has no angle; the second
// return value is false for it.
func (c Code) Angle() (float64, bool) {
	if c == Stop {
		return 0, false
	}
	return float64(c) * step, true
}

// FromAngle rounds an angle in radians to the nearest octant center and
// returns its code. atan2 output lands in (-pi, pi], so the raw rounded
// value ranges over -4..4; Normalize rewrites the non-positive half back
// into 1-8.
func FromAngle(rad float64) Code {
	return Normalize(int(math.Round(rad / step)))
}

// Normalize maps a signed octant count into the 1-8 wire range. 0 becomes 8:
// straight ahead must never be a zero value, because downstream weighting
// keys on 1-8 and treats 8 as the full-speed entry.
func Normalize(v int) Code {
	for v <= 0 {
		v += 8
	}
	for v > 8 {
		v -= 8
	}
	return Code(v)
}

// Coerce validates an untrusted wire value. Anything outside 1-8 is treated
// as Stop rather than rejected: a client sending garbage must never produce
// undefined motion.
func Coerce(v int) Code {
	if v >= 1 && v <= 8 {
		return Code(v)
	}
	return Stop
}

// FromWire coerces the JSON representation, where null means stop.
func FromWire(v *int) Code {
	if v == nil {
		return Stop
	}
	return Coerce(*v)
}
