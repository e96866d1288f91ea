package aggregate

import (
	"math"
	"testing"

	"github.com/mfitzp/kropbot/internal/direction"
)

func TestMergeEmpty(t *testing.T) {
	res := Merge(nil)
	if res.Direction != direction.Stop {
		t.Errorf("Direction = %d, want Stop", res.Direction)
	}
	if res.Magnitude != 0 {
		t.Errorf("Magnitude = %f, want 0", res.Magnitude)
	}
	if len(res.Counts) != 0 {
		t.Errorf("Counts = %v, want empty", res.Counts)
	}
}

func TestMergeSingleVote(t *testing.T) {
	for c := direction.Code(1); c <= 8; c++ {
		res := Merge([]direction.Code{c})
		if res.Direction != c {
			t.Errorf("single vote %d resolved to %d", c, res.Direction)
		}
		if math.Abs(res.Magnitude-1) > 1e-9 {
			t.Errorf("single vote %d magnitude = %f, want 1", c, res.Magnitude)
		}
		if res.Counts[c] != 1 {
			t.Errorf("single vote %d count = %d, want 1", c, res.Counts[c])
		}
	}
}

func TestMergeUnanimousCompounds(t *testing.T) {
	one := Merge([]direction.Code{direction.Forward})
	three := Merge([]direction.Code{direction.Forward, direction.Forward, direction.Forward})

	if three.Direction != direction.Forward {
		t.Errorf("unanimous forward resolved to %d", three.Direction)
	}
	if three.Magnitude <= one.Magnitude {
		t.Errorf("unanimous magnitude %f not greater than single %f", three.Magnitude, one.Magnitude)
	}
	if math.Abs(three.Magnitude-3*one.Magnitude) > 1e-9 {
		t.Errorf("unanimous magnitude = %f, want %f", three.Magnitude, 3*one.Magnitude)
	}
	if three.Counts[direction.Forward] != 3 {
		t.Errorf("forward count = %d, want 3", three.Counts[direction.Forward])
	}
}

func TestMergeOppositesCancel(t *testing.T) {
	// Codes differing by 4 are exact opposites.
	res := Merge([]direction.Code{direction.Forward, direction.Backward})
	if res.Direction != direction.Stop {
		t.Errorf("opposed votes resolved to %d, want Stop", res.Direction)
	}
	if res.Magnitude != 0 {
		t.Errorf("opposed votes magnitude = %f, want 0", res.Magnitude)
	}
	// Counts still record both votes for diagnostics.
	if res.Counts[direction.Forward] != 1 || res.Counts[direction.Backward] != 1 {
		t.Errorf("opposed votes counts = %v", res.Counts)
	}
}

func TestMergeStopVotesExcludedFromCounts(t *testing.T) {
	res := Merge([]direction.Code{direction.Stop, direction.Right, direction.Stop})
	if res.Direction != direction.Right {
		t.Errorf("Direction = %d, want %d", res.Direction, direction.Right)
	}
	if len(res.Counts) != 1 || res.Counts[direction.Right] != 1 {
		t.Errorf("Counts = %v, want only one Right vote", res.Counts)
	}
}

func TestMergeStopVotesDilute(t *testing.T) {
	// Stop votes add zero vectors; they do not shrink the sum.
	with := Merge([]direction.Code{direction.Forward, direction.Stop})
	without := Merge([]direction.Code{direction.Forward})
	if math.Abs(with.Magnitude-without.Magnitude) > 1e-9 {
		t.Errorf("stop vote changed magnitude: %f vs %f", with.Magnitude, without.Magnitude)
	}
}

func TestMergeNearCancellingBelowThreshold(t *testing.T) {
	// Diagonal pairs at 90 degrees sum to sqrt(2), well above threshold;
	// build a tiny residual instead by opposing votes with a sub-threshold
	// synthetic threshold check.
	res := MergeWithThreshold([]direction.Code{direction.Forward, direction.Backward, direction.Right, direction.Left}, DefaultStopThreshold)
	if res.Direction != direction.Stop || res.Magnitude != 0 {
		t.Errorf("fully opposed square resolved to %d/%f, want Stop/0", res.Direction, res.Magnitude)
	}

	// A lone vote survives any sane threshold.
	res = MergeWithThreshold([]direction.Code{direction.Forward}, DefaultStopThreshold)
	if res.Direction != direction.Forward {
		t.Errorf("lone vote suppressed by threshold")
	}

	// The same vote is suppressed if the threshold exceeds unit length.
	res = MergeWithThreshold([]direction.Code{direction.Forward}, 1.5)
	if res.Direction != direction.Stop || res.Magnitude != 0 {
		t.Errorf("threshold 1.5 did not suppress a unit vote: %d/%f", res.Direction, res.Magnitude)
	}
}

func TestMergeDiagonalPairResolvesBetween(t *testing.T) {
	// Forward (8) and Right-forward diagonal (1) average to halfway: the sum
	// vector points between octants 8 and 1; rounding picks one of them.
	res := Merge([]direction.Code{direction.Forward, direction.ForwardRight})
	if res.Direction != direction.Forward && res.Direction != direction.ForwardRight {
		t.Errorf("adjacent votes resolved to %d", res.Direction)
	}
	want := 2 * math.Cos(math.Pi/8)
	if math.Abs(res.Magnitude-want) > 1e-9 {
		t.Errorf("adjacent votes magnitude = %f, want %f", res.Magnitude, want)
	}
}
