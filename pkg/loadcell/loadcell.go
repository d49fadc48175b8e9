// Package loadcell reads the manipulator's inline load cells and records forces.
package loadcell

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DefaultAttachTimeout is how long Open waits for each channel to attach.
const DefaultAttachTimeout = 5 * time.Second

// Channel is one bridge input that reports a normalized voltage ratio.
type Channel interface {
	// Index is the zero-based channel number on the bridge interface.
	Index() int

	// OnRatioChange registers the callback for new ratios. Register before
	// Open so no change is missed.
	OnRatioChange(func(ratio float64))

	// Open attaches to the hardware and fails if it does not attach within timeout.
	Open(ctx context.Context, timeout time.Duration) error

	Close() error
}

// Converter turns a channel's voltage ratio into a force.
type Converter interface {
	Force(channel int, ratio float64) float64
}

// Reading is one force sample.
type Reading struct {
	Channel int
	Ratio   float64
	Force   float64
	At      time.Time
}

// Bank fans the readings of several channels into subscribers.
type Bank struct {
	channels []Channel
	conv     Converter
	clock    clock.Clock
	logger   *zap.Logger

	mu       sync.Mutex
	handlers []func(Reading)
	latest   map[int]Reading
	opened   []Channel
}

// NewBank creates a bank over channels. A nil clock uses the wall clock.
func NewBank(channels []Channel, conv Converter, clk clock.Clock, logger *zap.Logger) *Bank {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bank{
		channels: channels,
		conv:     conv,
		clock:    clk,
		logger:   logger,
		latest:   make(map[int]Reading, len(channels)),
	}
}

// Subscribe adds a handler for every reading. Handlers run on the channel's
// callback goroutine and must not block.
func (b *Bank) Subscribe(fn func(Reading)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, fn)
}

// Open attaches every channel. If one fails, the ones already attached are closed.
func (b *Bank) Open(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultAttachTimeout
	}

	for _, ch := range b.channels {
		ch := ch
		ch.OnRatioChange(func(ratio float64) {
			b.publish(ch.Index(), ratio)
		})
	}

	for _, ch := range b.channels {
		if err := ch.Open(ctx, timeout); err != nil {
			closeErr := b.Close()
			return multierr.Append(fmt.Errorf("attach load cell %d: %w", ch.Index(), err), closeErr)
		}
		b.mu.Lock()
		b.opened = append(b.opened, ch)
		b.mu.Unlock()
		b.logger.Debug("load cell attached", zap.Int("channel", ch.Index()))
	}
	return nil
}

func (b *Bank) publish(channel int, ratio float64) {
	r := Reading{
		Channel: channel,
		Ratio:   ratio,
		Force:   b.conv.Force(channel, ratio),
		At:      b.clock.Now(),
	}

	b.mu.Lock()
	b.latest[channel] = r
	handlers := make([]func(Reading), len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.Unlock()

	for _, fn := range handlers {
		fn(r)
	}
}

// Latest returns the most recent reading of each channel that has reported,
// ordered by channel.
func (b *Bank) Latest() []Reading {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Reading, 0, len(b.latest))
	for _, ch := range b.channels {
		if r, ok := b.latest[ch.Index()]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Close detaches all attached channels.
func (b *Bank) Close() error {
	b.mu.Lock()
	opened := b.opened
	b.opened = nil
	b.mu.Unlock()

	var err error
	for _, ch := range opened {
		err = multierr.Append(err, ch.Close())
	}
	return err
}
