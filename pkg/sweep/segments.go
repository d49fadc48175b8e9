package sweep

import (
	"fmt"
	"sort"
	"strings"

	"github.com/reach-rig/reach/pkg/robot"
)

// Segment is one longitudinal line of the workspace: an outward pattern
// followed by the pattern that brings the arm back.
type Segment struct {
	Name    string
	Outward []robot.Step
	Return  []robot.Step
}

// Moves expands the segment into the move sequence for the given number of
// repetitions of each pattern.
func (s Segment) Moves(steps int) []robot.Step {
	moves := make([]robot.Step, 0, steps*(len(s.Outward)+len(s.Return)))
	for i := 0; i < steps; i++ {
		moves = append(moves, s.Outward...)
	}
	for i := 0; i < steps; i++ {
		moves = append(moves, s.Return...)
	}
	return moves
}

var segments = []Segment{
	{"M1", robot.MustParseSteps("1+ 3- 2+ 2- 4+ 4-"), robot.MustParseSteps("2+ 2- 4+ 4- 1- 3+")},
	{"M1 M2", robot.MustParseSteps("1+ 2+ 3+ 3- 4+ 4- 3- 4-"), robot.MustParseSteps("3+ 3- 4+ 4- 1- 2- 3+ 4+")},
	{"M2", robot.MustParseSteps("2+ 3+ 3- 1+ 1- 4-"), robot.MustParseSteps("3+ 3- 1+ 1- 2- 4+")},
	{"M2 M3", robot.MustParseSteps("2+ 3+ 4+ 4- 1+ 1- 4- 1-"), robot.MustParseSteps("4+ 4- 1+ 1- 3- 2- 1+ 4+")},
	{"M3", robot.MustParseSteps("3+ 4+ 4- 2+ 2- 1-"), robot.MustParseSteps("4+ 4- 2+ 2- 3- 1+")},
	{"M3 M4", robot.MustParseSteps("3+ 4+ 1+ 1- 2+ 2- 1- 2-"), robot.MustParseSteps("1+ 1- 2+ 2- 3- 4- 1+ 2+")},
	{"M4", robot.MustParseSteps("4+ 1+ 1- 3+ 3- 2-"), robot.MustParseSteps("1+ 1- 3+ 3- 4- 2+")},
	{"M4 M1", robot.MustParseSteps("4+ 1+ 2+ 2- 3+ 3- 2- 3-"), robot.MustParseSteps("2+ 2- 3+ 3- 1- 4- 3+ 2+")},
}

// Segments returns the full workspace sweep in execution order.
func Segments() []Segment {
	out := make([]Segment, len(segments))
	copy(out, segments)
	return out
}

// Select returns the named segments in sweep order. Names match
// case-insensitively; an empty list selects everything.
func Select(names ...string) ([]Segment, error) {
	if len(names) == 0 {
		return Segments(), nil
	}

	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.ToUpper(strings.Join(strings.Fields(n), " "))] = true
	}

	var out []Segment
	for _, s := range segments {
		if want[s.Name] {
			out = append(out, s)
			delete(want, s.Name)
		}
	}
	if len(want) > 0 {
		unknown := make([]string, 0, len(want))
		for n := range want {
			unknown = append(unknown, n)
		}
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown segments %q", unknown)
	}
	return out, nil
}
