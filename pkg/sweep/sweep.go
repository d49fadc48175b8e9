// Package sweep drives the arm through its workspace along the eight
// longitudinal lines while the load cells record.
package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/reach-rig/reach/pkg/motion"
	"github.com/reach-rig/reach/pkg/robot"
)

// Defaults for Config.
const (
	DefaultSteps = 5
	DefaultDwell = 3 * time.Second
	DefaultPause = 3 * time.Second
)

// Mover performs one verified move.
type Mover interface {
	Step(ctx context.Context, s robot.Step) (motion.Outcome, error)
}

// Progress describes one finished move.
type Progress struct {
	Segment string
	Index   int // position within the segment, from 0
	Total   int // moves in the segment
	Step    robot.Step
	Outcome motion.Outcome
}

// Config controls sweep pacing. A zero Steps takes DefaultSteps; zero
// durations skip the wait.
type Config struct {
	Steps int
	Dwell time.Duration // after every move
	Pause time.Duration // after every segment

	// OnMove, if set, is called after every move.
	OnMove func(Progress)

	Clock  clock.Clock
	Logger *zap.Logger
}

// SegmentReport summarizes one segment.
type SegmentReport struct {
	Name      string
	Moves     int
	Confirmed int
	Failed    []motion.Outcome
	Elapsed   time.Duration
}

// Report summarizes a sweep.
type Report struct {
	Segments []SegmentReport
	Started  time.Time
	Finished time.Time
}

// Totals returns move and confirmation counts across all segments.
func (r Report) Totals() (moves, confirmed int) {
	for _, s := range r.Segments {
		moves += s.Moves
		confirmed += s.Confirmed
	}
	return moves, confirmed
}

// Runner executes sweeps.
type Runner struct {
	mover Mover
	cfg   Config
}

// NewRunner creates a runner.
func NewRunner(m Mover, cfg Config) *Runner {
	if cfg.Steps <= 0 {
		cfg.Steps = DefaultSteps
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Runner{mover: m, cfg: cfg}
}

// Run executes the segments in order. Unconfirmed moves are logged and the
// sweep continues; a transport error or cancellation stops it and returns
// the partial report alongside the error.
func (r *Runner) Run(ctx context.Context, segs []Segment) (Report, error) {
	log := r.cfg.Logger
	rep := Report{Started: r.cfg.Clock.Now()}

	for _, seg := range segs {
		sr, err := r.runSegment(ctx, seg)
		rep.Segments = append(rep.Segments, sr)
		if err != nil {
			rep.Finished = r.cfg.Clock.Now()
			return rep, fmt.Errorf("segment %s: %w", seg.Name, err)
		}
		log.Info("segment finished",
			zap.String("segment", seg.Name),
			zap.Int("moves", sr.Moves),
			zap.Int("confirmed", sr.Confirmed),
			zap.Duration("elapsed", sr.Elapsed))

		if err := r.wait(ctx, r.cfg.Pause); err != nil {
			rep.Finished = r.cfg.Clock.Now()
			return rep, err
		}
	}
	rep.Finished = r.cfg.Clock.Now()
	return rep, nil
}

func (r *Runner) runSegment(ctx context.Context, seg Segment) (SegmentReport, error) {
	log := r.cfg.Logger.With(zap.String("segment", seg.Name))
	start := r.cfg.Clock.Now()
	sr := SegmentReport{Name: seg.Name}
	moves := seg.Moves(r.cfg.Steps)

	log.Info("segment started", zap.Int("moves", len(moves)))
	for i, st := range moves {
		if err := ctx.Err(); err != nil {
			sr.Elapsed = r.cfg.Clock.Since(start)
			return sr, err
		}

		out, err := r.mover.Step(ctx, st)
		if err != nil {
			sr.Elapsed = r.cfg.Clock.Since(start)
			return sr, err
		}
		sr.Moves++
		if out.Success {
			sr.Confirmed++
		} else {
			sr.Failed = append(sr.Failed, out)
			log.Warn("continuing after unconfirmed move",
				zap.Int("index", i),
				zap.Stringer("step", st),
				zap.Int("attempts", len(out.Attempts)))
		}

		if r.cfg.OnMove != nil {
			r.cfg.OnMove(Progress{Segment: seg.Name, Index: i, Total: len(moves), Step: st, Outcome: out})
		}

		if err := r.wait(ctx, r.cfg.Dwell); err != nil {
			sr.Elapsed = r.cfg.Clock.Since(start)
			return sr, err
		}
	}
	sr.Elapsed = r.cfg.Clock.Since(start)
	return sr, nil
}

func (r *Runner) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.cfg.Clock.After(d):
		return nil
	}
}
