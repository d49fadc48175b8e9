package teleop

import (
	"fmt"

	"github.com/reach-rig/reach/pkg/robot"
)

// Layout names a key binding table.
type Layout string

const (
	LayoutKeyboard Layout = "keyboard"
	LayoutGamepad  Layout = "gamepad"
)

// Binding maps a key to a move.
type Binding struct {
	Key  string
	Step robot.Step
}

// Keys are bubbletea key names.
var layouts = map[Layout][]Binding{
	LayoutKeyboard: {
		{"up", step("1+")},
		{"down", step("1-")},
		{"left", step("2+")},
		{"right", step("2-")},
		{"w", step("3+")},
		{"s", step("3-")},
		{"a", step("4+")},
		{"d", step("4-")},
	},
	// Face buttons move plus, the hat moves minus. On a keyboard y/x/a/b
	// stand in for the buttons and k/h/j/l for hat up/left/down/right.
	LayoutGamepad: {
		{"y", step("1+")},
		{"x", step("2+")},
		{"a", step("3+")},
		{"b", step("4+")},
		{"k", step("1-")},
		{"h", step("2-")},
		{"j", step("3-")},
		{"l", step("4-")},
	},
}

func step(s string) robot.Step {
	st, err := robot.ParseStep(s)
	if err != nil {
		panic(err)
	}
	return st
}

// Bindings returns the bindings of a layout in display order.
func Bindings(l Layout) ([]Binding, error) {
	b, ok := layouts[l]
	if !ok {
		return nil, fmt.Errorf("unknown layout %q (want %s or %s)", l, LayoutKeyboard, LayoutGamepad)
	}
	out := make([]Binding, len(b))
	copy(out, b)
	return out, nil
}
