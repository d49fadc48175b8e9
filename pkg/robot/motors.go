// Package robot ties the REACH manipulator's boards, move verification and
// load cells together.
package robot

import (
	"fmt"
	"strings"

	"github.com/reach-rig/reach/pkg/motion"
)

// Step is one verified move of one motor.
type Step struct {
	Motor     motion.MotorID
	Direction motion.Direction
}

func (s Step) String() string {
	return fmt.Sprintf("%d%s", int(s.Motor), s.Direction.Symbol())
}

// ParseStep parses steps written as "3+" or "1-".
func ParseStep(s string) (Step, error) {
	s = strings.TrimSpace(s)
	if len(s) != 2 {
		return Step{}, fmt.Errorf("invalid step %q: want motor digit followed by + or -", s)
	}

	id := motion.MotorID(s[0] - '0')
	if !id.Valid() {
		return Step{}, fmt.Errorf("invalid step %q: %w", s, motion.ErrUnknownMotor)
	}

	var dir motion.Direction
	switch s[1] {
	case '+':
		dir = motion.Plus
	case '-':
		dir = motion.Minus
	default:
		return Step{}, fmt.Errorf("invalid step %q: %w", s, motion.ErrUnknownDirection)
	}
	return Step{Motor: id, Direction: dir}, nil
}

// ParseSteps parses a whitespace separated list of steps.
func ParseSteps(s string) ([]Step, error) {
	fields := strings.Fields(s)
	steps := make([]Step, 0, len(fields))
	for _, f := range fields {
		st, err := ParseStep(f)
		if err != nil {
			return nil, err
		}
		steps = append(steps, st)
	}
	return steps, nil
}

// MustParseSteps is ParseSteps for fixed tables; it panics on error.
func MustParseSteps(s string) []Step {
	steps, err := ParseSteps(s)
	if err != nil {
		panic(err)
	}
	return steps
}
