package teleop

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/reach-rig/reach/pkg/motion"
	"github.com/reach-rig/reach/pkg/robot"
)

type gatedMover struct {
	mu      sync.Mutex
	steps   []robot.Step
	started chan robot.Step
	release chan struct{}
	fail    bool
	err     error
}

func newGatedMover() *gatedMover {
	return &gatedMover{
		started: make(chan robot.Step, 10),
		release: make(chan struct{}),
	}
}

func (m *gatedMover) Step(ctx context.Context, s robot.Step) (motion.Outcome, error) {
	m.mu.Lock()
	m.steps = append(m.steps, s)
	m.mu.Unlock()

	m.started <- s
	<-m.release
	if m.err != nil {
		return motion.Outcome{}, m.err
	}
	a := motion.Attempt{N: 1, Delta: 46080, Success: !m.fail}
	return motion.Outcome{Motor: s.Motor, Success: !m.fail, Attempts: []motion.Attempt{a}}, nil
}

func startController(t *testing.T, m Mover, layout Layout) *Controller {
	t.Helper()
	c, err := NewController(m, Config{Layout: layout})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Start flips running before it logs, so the first log line means ready.
	select {
	case <-c.Logs():
	case <-time.After(time.Second):
		t.Fatal("controller did not start")
	}
	return c
}

func waitIdle(t *testing.T, c *Controller) State {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case s := <-c.States():
			if !s.Busy {
				return s
			}
		case <-deadline:
			t.Fatal("controller stayed busy")
		}
	}
}

func TestBindings(t *testing.T) {
	tests := []struct {
		layout Layout
		key    string
		want   string
	}{
		{LayoutKeyboard, "up", "1+"},
		{LayoutKeyboard, "down", "1-"},
		{LayoutKeyboard, "left", "2+"},
		{LayoutKeyboard, "right", "2-"},
		{LayoutKeyboard, "w", "3+"},
		{LayoutKeyboard, "s", "3-"},
		{LayoutKeyboard, "a", "4+"},
		{LayoutKeyboard, "d", "4-"},
		{LayoutGamepad, "y", "1+"},
		{LayoutGamepad, "x", "2+"},
		{LayoutGamepad, "a", "3+"},
		{LayoutGamepad, "b", "4+"},
		{LayoutGamepad, "k", "1-"},
		{LayoutGamepad, "h", "2-"},
		{LayoutGamepad, "j", "3-"},
		{LayoutGamepad, "l", "4-"},
	}

	for _, tt := range tests {
		bs, err := Bindings(tt.layout)
		if err != nil {
			t.Fatal(err)
		}
		found := false
		for _, b := range bs {
			if b.Key == tt.key {
				found = true
				if b.Step.String() != tt.want {
					t.Errorf("%s %q = %s, want %s", tt.layout, tt.key, b.Step, tt.want)
				}
			}
		}
		if !found {
			t.Errorf("%s: key %q not bound", tt.layout, tt.key)
		}
	}

	if _, err := Bindings("joystick"); err == nil {
		t.Error("unknown layout accepted")
	}
}

func TestController_KeyMovesArm(t *testing.T) {
	m := newGatedMover()
	c := startController(t, m, LayoutKeyboard)

	if !c.Key("w") {
		t.Fatal("w not bound")
	}
	if got := <-m.started; got.String() != "3+" {
		t.Errorf("moved %s, want 3+", got)
	}
	close(m.release)

	s := waitIdle(t, c)
	if s.Moves != 1 || s.Confirmed != 1 || !s.Outcome.Success || s.Error != nil {
		t.Errorf("state = %+v", s)
	}

	if c.Key("q") {
		t.Error("q reported as bound")
	}
}

func TestController_DropsWhileBusy(t *testing.T) {
	m := newGatedMover()
	c := startController(t, m, LayoutGamepad)

	if !c.Request(robot.MustParseSteps("1+")[0]) {
		t.Fatal("first request dropped")
	}
	<-m.started

	if c.Request(robot.MustParseSteps("2+")[0]) {
		t.Error("second request accepted while busy")
	}
	if got := c.State().Dropped; got != 1 {
		t.Errorf("dropped = %d, want 1", got)
	}

	close(m.release)
	waitIdle(t, c)

	if !c.Key("b") {
		t.Fatal("b not bound")
	}
	if got := <-m.started; got.String() != "4+" {
		t.Errorf("moved %s, want 4+", got)
	}
	waitIdle(t, c)

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.steps) != 2 {
		t.Errorf("mover saw %d moves, want 2", len(m.steps))
	}
}

func TestController_TransportErrorKeepsRunning(t *testing.T) {
	m := newGatedMover()
	m.err = &motion.TransportError{Op: "submit", Err: errors.New("unplugged")}
	close(m.release)
	c := startController(t, m, LayoutKeyboard)

	c.Key("a")
	<-m.started
	s := waitIdle(t, c)
	var terr *motion.TransportError
	if !errors.As(s.Error, &terr) {
		t.Errorf("state error = %v", s.Error)
	}
	if s.Moves != 0 {
		t.Errorf("moves = %d, want 0", s.Moves)
	}

	m.err = nil
	c.Key("d")
	<-m.started
	if s := waitIdle(t, c); s.Error != nil || s.Moves != 1 {
		t.Errorf("state after recovery = %+v", s)
	}
}

func TestController_RequestBeforeStart(t *testing.T) {
	c, err := NewController(newGatedMover(), Config{})
	if err != nil {
		t.Fatal(err)
	}
	if !c.Key("up") {
		t.Fatal("up not bound")
	}
	if got := c.State().Dropped; got != 1 {
		t.Errorf("dropped = %d, want 1", got)
	}
}

func TestController_StartTwice(t *testing.T) {
	c := startController(t, newGatedMover(), LayoutKeyboard)
	if err := c.Start(context.Background()); err == nil {
		t.Error("second Start succeeded")
	}
}
