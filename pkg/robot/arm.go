package robot

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/reach-rig/reach/pkg/motion"
	"github.com/reach-rig/reach/pkg/motion/fake"
	"github.com/reach-rig/reach/pkg/roboclaw"
)

// Arm drives the four tendon motors across both boards.
type Arm struct {
	mu         sync.Mutex
	dispatcher *motion.Dispatcher
	verifier   *motion.Verifier
	links      []motion.Link
	clock      clock.Clock
	logger     *zap.Logger
}

// NewArm opens both boards and creates an arm.
func NewArm(cfg *Config, clk clock.Clock, logger *zap.Logger) (*Arm, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	b1, err := roboclaw.Open(cfg.Board1.roboclaw(), logger.Named("board1"))
	if err != nil {
		return nil, fmt.Errorf("open board1: %w", err)
	}
	b2, err := roboclaw.Open(cfg.Board2.roboclaw(), logger.Named("board2"))
	if err != nil {
		b1.Close()
		return nil, fmt.Errorf("open board2: %w", err)
	}

	arm, err := NewArmWithLinks(cfg, map[motion.Board]motion.Link{
		motion.Board1: b1,
		motion.Board2: b2,
	}, clk, logger)
	if err != nil {
		return nil, multierr.Combine(err, b1.Close(), b2.Close())
	}
	return arm, nil
}

// NewSimulatedArm creates an arm over in-memory boards.
func NewSimulatedArm(cfg *Config, clk clock.Clock, logger *zap.Logger) (*Arm, error) {
	return NewArmWithLinks(cfg, map[motion.Board]motion.Link{
		motion.Board1: fake.NewBoard(),
		motion.Board2: fake.NewBoard(),
	}, clk, logger)
}

// NewArmWithLinks creates an arm over already open links. The arm takes
// ownership of links that implement io.Closer.
func NewArmWithLinks(cfg *Config, links map[motion.Board]motion.Link, clk clock.Clock, logger *zap.Logger) (*Arm, error) {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	profile, err := cfg.Profile()
	if err != nil {
		return nil, err
	}

	d, err := motion.NewDispatcher(map[motion.Board]motion.Endpoint{
		motion.Board1: {Link: links[motion.Board1], Address: cfg.Board1.Address},
		motion.Board2: {Link: links[motion.Board2], Address: cfg.Board2.Address},
	}, profile)
	if err != nil {
		return nil, fmt.Errorf("create dispatcher: %w", err)
	}

	return &Arm{
		dispatcher: d,
		verifier:   motion.NewVerifier(cfg.VerifierConfig(clk, logger)),
		links:      []motion.Link{links[motion.Board1], links[motion.Board2]},
		clock:      clk,
		logger:     logger,
	}, nil
}

// Move dispatches and verifies one move. Moves are serialized.
func (a *Arm) Move(ctx context.Context, id motion.MotorID, dir motion.Direction) (motion.Outcome, error) {
	mv, err := a.dispatcher.Dispatch(id, dir)
	if err != nil {
		return motion.Outcome{}, err
	}
	a.logger.Debug("dispatching move",
		zap.String("motor", mv.Label),
		zap.Stringer("handle", mv.Command.Handle),
		zap.Int32("speed", mv.Command.Speed),
		zap.Int32("accel", mv.Command.Accel))

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.verifier.Verify(ctx, mv)
}

// Step runs Move for a parsed step.
func (a *Arm) Step(ctx context.Context, s Step) (motion.Outcome, error) {
	return a.Move(ctx, s.Motor, s.Direction)
}

// Telemetry reads one motor's encoder, buffer and speed.
func (a *Arm) Telemetry(ctx context.Context, id motion.MotorID) (motion.Sample, error) {
	h, link, err := a.dispatcher.Handle(id)
	if err != nil {
		return motion.Sample{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	enc, _, err := link.ReadEncoder(ctx, h.Address, h.Motor)
	if err != nil {
		return motion.Sample{}, &motion.TransportError{Op: "read encoder", Handle: h, Err: err}
	}
	buf1, buf2, err := link.ReadBuffers(ctx, h.Address)
	if err != nil {
		return motion.Sample{}, &motion.TransportError{Op: "read buffers", Handle: h, Err: err}
	}
	speed, _, err := link.ReadSpeed(ctx, h.Address, h.Motor)
	if err != nil {
		return motion.Sample{}, &motion.TransportError{Op: "read speed", Handle: h, Err: err}
	}

	s := motion.Sample{Encoder: enc, Buffer: buf1, Speed: speed, At: a.clock.Now()}
	if h.Motor == 2 {
		s.Buffer = buf2
	}
	return s, nil
}

// Handle returns where a motor is wired.
func (a *Arm) Handle(id motion.MotorID) (motion.MotorHandle, error) {
	h, _, err := a.dispatcher.Handle(id)
	return h, err
}

// Retries returns the attempt bound per move.
func (a *Arm) Retries() int {
	return a.verifier.Retries()
}

// Close closes both board links.
func (a *Arm) Close() error {
	var err error
	for _, l := range a.links {
		if c, ok := l.(io.Closer); ok {
			err = multierr.Append(err, c.Close())
		}
	}
	return err
}
