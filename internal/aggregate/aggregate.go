// Package aggregate merges the directional votes collected in one control
// tick into a single heading and magnitude using circular statistics.
//
// Each non-stop vote contributes a unit vector at its octant angle; stop
// votes contribute the zero vector. The merged heading is the angle of the
// vector sum and the magnitude is the raw length of that sum, deliberately
// not normalized by voter count: unanimous operators compound into a faster
// command while opposing operators cancel toward a stop.
package aggregate

import (
	"math"

	"github.com/mfitzp/kropbot/internal/direction"
)

// DefaultStopThreshold is the magnitude below which near-cancelling votes
// are forced to a full stop instead of jittering the motors.
const DefaultStopThreshold = 0.05

// Result is the merged outcome of one tick's votes. It is recomputed every
// tick and never stored.
type Result struct {
	// Counts tallies votes per octant. Stop votes are not tallied.
	Counts map[direction.Code]int `json:"total_counts"`
	// Direction is the merged heading, or Stop.
	Direction direction.Code `json:"direction"`
	// Magnitude is the vector-sum length. Zero when Direction is Stop.
	Magnitude float64 `json:"magnitude"`
}

// Merge combines votes into a Result using the default stop threshold.
func Merge(votes []direction.Code) Result {
	return MergeWithThreshold(votes, DefaultStopThreshold)
}

// MergeWithThreshold combines votes into a Result, forcing a stop when the
// summed magnitude falls below threshold.
func MergeWithThreshold(votes []direction.Code, threshold float64) Result {
	counts := make(map[direction.Code]int)
	var x, y float64
	for _, v := range votes {
		rad, ok := v.Angle()
		if !ok {
			continue // stop vote: zero vector, no tally
		}
		counts[v]++
		x += math.Cos(rad)
		y += math.Sin(rad)
	}

	magnitude := math.Hypot(x, y)
	if magnitude < threshold {
		return Result{Counts: counts, Direction: direction.Stop, Magnitude: 0}
	}

	return Result{
		Counts:    counts,
		Direction: direction.FromAngle(math.Atan2(y, x)),
		Magnitude: magnitude,
	}
}
