// Package teleop provides manual key-driven control of the arm.
package teleop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/reach-rig/reach/pkg/motion"
	"github.com/reach-rig/reach/pkg/robot"
)

// Mover performs one verified move.
type Mover interface {
	Step(ctx context.Context, s robot.Step) (motion.Outcome, error)
}

// State represents the current state of teleoperation.
type State struct {
	Busy      bool
	Step      robot.Step // last requested move
	Outcome   motion.Outcome
	Moves     int
	Confirmed int
	Dropped   int
	Timestamp time.Time
	Error     error
}

// Controller serializes move requests onto the arm.
type Controller struct {
	mover    Mover
	bindings map[string]robot.Step
	clock    clock.Clock
	logger   *zap.Logger

	mu      sync.RWMutex
	state   State
	running bool
	reqCh   chan robot.Step
	stateCh chan State
	logCh   chan string
}

// Config holds configuration for the controller.
type Config struct {
	Layout Layout
	Clock  clock.Clock
	Logger *zap.Logger
}

// NewController creates a new teleoperation controller.
func NewController(m Mover, cfg Config) (*Controller, error) {
	if cfg.Layout == "" {
		cfg.Layout = LayoutKeyboard
	}
	bs, err := Bindings(cfg.Layout)
	if err != nil {
		return nil, err
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	keys := make(map[string]robot.Step, len(bs))
	for _, b := range bs {
		keys[b.Key] = b.Step
	}

	return &Controller{
		mover:    m,
		bindings: keys,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
		reqCh:    make(chan robot.Step, 1),
		stateCh:  make(chan State, 1),
		logCh:    make(chan string, 10),
	}, nil
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Key requests the move bound to key. It reports whether the key is bound.
func (c *Controller) Key(key string) bool {
	s, ok := c.bindings[key]
	if !ok {
		return false
	}
	c.Request(s)
	return true
}

// Request queues a move. It returns false and drops the request when the
// controller is stopped or a move is already in flight.
func (c *Controller) Request(s robot.Step) bool {
	c.mu.Lock()
	if !c.running || c.state.Busy {
		c.state.Dropped++
		c.mu.Unlock()
		c.logger.Debug("move request dropped", zap.Stringer("step", s))
		return false
	}
	c.state.Busy = true
	c.state.Step = s
	c.state.Timestamp = c.clock.Now()
	st := c.state
	c.mu.Unlock()

	c.reqCh <- s
	c.sendState(st)
	return true
}

func (c *Controller) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", c.clock.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Start runs the move worker until ctx is done.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("already running")
	}
	c.running = true
	c.mu.Unlock()

	c.log("Teleoperation started")

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case s := <-c.reqCh:
			c.step(ctx, s)
		}
	}
}

func (c *Controller) step(ctx context.Context, s robot.Step) {
	out, err := c.mover.Step(ctx, s)

	c.mu.Lock()
	c.state.Busy = false
	c.state.Outcome = out
	c.state.Error = err
	c.state.Timestamp = c.clock.Now()
	if err == nil {
		c.state.Moves++
		if out.Success {
			c.state.Confirmed++
		}
	}
	st := c.state
	c.mu.Unlock()

	var terr *motion.TransportError
	switch {
	case errors.As(err, &terr):
		c.log("%s: link error during %s: %v", s, terr.Op, terr.Err)
	case err != nil:
		c.log("%s: %v", s, err)
	case out.Success:
		a, _ := out.Last()
		c.log("%s confirmed (attempt %d, delta %d)", s, a.N, a.Delta)
	default:
		c.log("%s not confirmed after %d attempts", s, len(out.Attempts))
	}

	c.sendState(st)
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		select {
		case c.stateCh <- s:
		default:
		}
	}
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
	c.log("Teleoperation stopped")
}
