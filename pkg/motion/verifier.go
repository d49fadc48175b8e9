package motion

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// Defaults for VerifierConfig.
const (
	DefaultSettle    = 50 * time.Millisecond
	DefaultMoveWait  = 200 * time.Millisecond
	DefaultBackoff   = 100 * time.Millisecond
	DefaultThreshold = 50
	DefaultRetries   = 3
)

// VerifierConfig holds timing and acceptance settings. Zero fields take the defaults.
type VerifierConfig struct {
	Settle    time.Duration // wait after submit before reading buffer and speed
	MoveWait  time.Duration // wait after that before the final encoder read
	Backoff   time.Duration // wait between failed attempts
	Threshold int64         // minimum encoder delta that counts as motion
	Retries   int           // total attempts per move

	Clock  clock.Clock
	Logger *zap.Logger
}

// Verifier submits moves and confirms them from telemetry.
type Verifier struct {
	settle    time.Duration
	moveWait  time.Duration
	backoff   time.Duration
	threshold int64
	retries   int

	clock  clock.Clock
	logger *zap.Logger
}

// NewVerifier creates a verifier.
func NewVerifier(cfg VerifierConfig) *Verifier {
	if cfg.Settle <= 0 {
		cfg.Settle = DefaultSettle
	}
	if cfg.MoveWait <= 0 {
		cfg.MoveWait = DefaultMoveWait
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Retries <= 0 {
		cfg.Retries = DefaultRetries
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Verifier{
		settle:    cfg.Settle,
		moveWait:  cfg.MoveWait,
		backoff:   cfg.Backoff,
		threshold: cfg.Threshold,
		retries:   cfg.Retries,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
	}
}

// Retries returns the attempt bound.
func (v *Verifier) Retries() int {
	return v.retries
}

// Delta is the absolute encoder difference between two reads.
func Delta(before, after int32) int64 {
	d := int64(after) - int64(before)
	if d < 0 {
		return -d
	}
	return d
}

// Evaluate decides whether a move happened: either the encoder travelled at
// least threshold counts, or the motor reported a nonzero speed mid-move.
//
// A stalled motor that still reports speed passes; this matches the rig's
// acceptance rule.
func Evaluate(before, after, speed int32, threshold int64) bool {
	return Delta(before, after) >= threshold || speed != 0
}

// Verify submits mv and checks it, retrying unconfirmed moves up to the
// configured bound. An exhausted move is reported through Outcome.Success,
// not as an error. A link failure stops immediately with a *TransportError.
//
// Verify does not observe ctx cancellation: a submitted move cannot be
// recalled, so the attempt in progress always completes.
func (v *Verifier) Verify(ctx context.Context, mv Move) (Outcome, error) {
	ctx = context.WithoutCancel(ctx)
	out := Outcome{Motor: mv.Motor, Label: mv.Label}

	for n := 1; n <= v.retries; n++ {
		a, err := v.attempt(ctx, n, mv)
		if err != nil {
			v.logger.Error("move aborted",
				zap.String("motor", mv.Label),
				zap.Int("attempt", n),
				zap.Stringer("handle", mv.Command.Handle),
				zap.Error(err))
			return out, err
		}
		out.Attempts = append(out.Attempts, a)

		if a.Success {
			out.Success = true
			v.logger.Info("move confirmed", attemptFields(mv.Label, a)...)
			return out, nil
		}

		v.logger.Warn("move unconfirmed", attemptFields(mv.Label, a)...)
		if n < v.retries {
			v.clock.Sleep(v.backoff)
		}
	}

	v.logger.Error("move failed",
		zap.String("motor", mv.Label),
		zap.Int("attempts", len(out.Attempts)))
	return out, nil
}

func (v *Verifier) attempt(ctx context.Context, n int, mv Move) (Attempt, error) {
	h := mv.Command.Handle

	enc, _, err := mv.Link.ReadEncoder(ctx, h.Address, h.Motor)
	if err != nil {
		return Attempt{}, &TransportError{Op: "read encoder", Handle: h, Err: err}
	}
	before := Sample{Encoder: enc, At: v.clock.Now()}

	if err := mv.Submit(ctx); err != nil {
		return Attempt{}, &TransportError{Op: "submit", Handle: h, Err: err}
	}
	v.clock.Sleep(v.settle)

	buf1, buf2, err := mv.Link.ReadBuffers(ctx, h.Address)
	if err != nil {
		return Attempt{}, &TransportError{Op: "read buffers", Handle: h, Err: err}
	}
	buf := buf1
	if h.Motor == 2 {
		buf = buf2
	}

	speed, _, err := mv.Link.ReadSpeed(ctx, h.Address, h.Motor)
	if err != nil {
		return Attempt{}, &TransportError{Op: "read speed", Handle: h, Err: err}
	}
	v.clock.Sleep(v.moveWait)

	enc, _, err = mv.Link.ReadEncoder(ctx, h.Address, h.Motor)
	if err != nil {
		return Attempt{}, &TransportError{Op: "read encoder", Handle: h, Err: err}
	}
	after := Sample{Encoder: enc, Buffer: buf, Speed: speed, At: v.clock.Now()}

	return Attempt{
		N:       n,
		Before:  before,
		After:   after,
		Delta:   Delta(before.Encoder, after.Encoder),
		Buffer:  buf,
		Speed:   speed,
		Success: Evaluate(before.Encoder, after.Encoder, speed, v.threshold),
	}, nil
}

func attemptFields(label string, a Attempt) []zap.Field {
	return []zap.Field{
		zap.String("motor", label),
		zap.Int("attempt", a.N),
		zap.Int32("enc_before", a.Before.Encoder),
		zap.Int32("enc_after", a.After.Encoder),
		zap.Int64("encoder_delta", a.Delta),
		zap.Uint8("buffer", a.Buffer),
		zap.Int32("speed", a.Speed),
		zap.Bool("ok", a.Success),
	}
}
