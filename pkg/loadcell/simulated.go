package loadcell

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// ErrNotAttached is returned when a channel is used before Open.
var ErrNotAttached = errors.New("load cell not attached")

// Simulated is a channel that produces a slow deterministic wobble around a
// base ratio. It stands in for the bridge interface on dry runs.
type Simulated struct {
	index    int
	base     float64
	interval time.Duration
	clock    clock.Clock

	// AttachErr, when set, is returned by Open.
	AttachErr error

	mu     sync.Mutex
	cb     func(float64)
	ticker *clock.Ticker
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewSimulated creates a simulated channel. interval <= 0 disables the
// generator; values then only arrive through Emit.
func NewSimulated(index int, base float64, interval time.Duration, clk clock.Clock) *Simulated {
	if clk == nil {
		clk = clock.New()
	}
	return &Simulated{index: index, base: base, interval: interval, clock: clk}
}

func (s *Simulated) Index() int {
	return s.index
}

func (s *Simulated) OnRatioChange(fn func(float64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cb = fn
}

func (s *Simulated) Open(ctx context.Context, timeout time.Duration) error {
	if s.AttachErr != nil {
		return s.AttachErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return nil
	}
	s.done = make(chan struct{})
	if s.interval <= 0 {
		return nil
	}

	s.ticker = s.clock.Ticker(s.interval)
	s.wg.Add(1)
	go s.run(s.ticker, s.done)
	return nil
}

func (s *Simulated) run(t *clock.Ticker, done chan struct{}) {
	defer s.wg.Done()
	for n := 0; ; n++ {
		select {
		case <-done:
			return
		case <-t.C:
			s.Emit(s.base + 1e-6*math.Sin(float64(n)/10))
		}
	}
}

// Emit delivers a ratio to the registered callback as if the hardware reported it.
func (s *Simulated) Emit(ratio float64) error {
	s.mu.Lock()
	cb, attached := s.cb, s.done != nil
	s.mu.Unlock()
	if !attached {
		return ErrNotAttached
	}
	if cb != nil {
		cb(ratio)
	}
	return nil
}

func (s *Simulated) Close() error {
	s.mu.Lock()
	done, t := s.done, s.ticker
	s.done, s.ticker = nil, nil
	s.mu.Unlock()

	if done == nil {
		return nil
	}
	if t != nil {
		t.Stop()
	}
	close(done)
	s.wg.Wait()
	return nil
}
