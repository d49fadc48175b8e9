// Package fake implements an in-memory motor-controller board.
package fake

import (
	"context"
	"errors"
	"sync"

	"github.com/reach-rig/reach/pkg/motion"
)

// ErrClosed is returned by every call after Close.
var ErrClosed = errors.New("fake board closed")

// Board simulates one two-channel controller. A submitted move jumps the
// encoder by the full distance and leaves the commanded speed visible until
// the next move on that channel.
type Board struct {
	mu sync.Mutex

	encoder [2]int32
	speed   [2]int32
	stall   [2]int
	submits [2]int
	closed  bool

	// Err, when set, fails every call as a transport error would.
	Err error
}

// NewBoard returns an idle board with both encoders at zero.
func NewBoard() *Board {
	return &Board{}
}

var _ motion.Link = (*Board)(nil)

// Stall makes the next n moves on a channel produce no motion.
func (b *Board) Stall(motor uint8, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stall[motor-1] = n
}

// Encoder returns the current encoder count of a channel.
func (b *Board) Encoder(motor uint8) int32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.encoder[motor-1]
}

// Submits returns how many moves a channel has received.
func (b *Board) Submits(motor uint8) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.submits[motor-1]
}

// Close marks the board as disconnected.
func (b *Board) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *Board) check(motor uint8) error {
	if b.closed {
		return ErrClosed
	}
	if b.Err != nil {
		return b.Err
	}
	if motor != 1 && motor != 2 {
		return errors.New("motor must be 1 or 2")
	}
	return nil
}

func (b *Board) SpeedAccelDistance(ctx context.Context, address, motor uint8, speed, accel int32, distance uint32, buffer motion.Buffer) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.check(motor); err != nil {
		return err
	}

	i := motor - 1
	b.submits[i]++
	if b.stall[i] > 0 {
		b.stall[i]--
		b.speed[i] = 0
		return nil
	}

	// Direction is the combined sign of speed and accel, as on the wire.
	dir := int32(1)
	if (speed < 0) != (accel < 0) {
		dir = -1
	}
	abs := speed
	if abs < 0 {
		abs = -abs
	}
	b.speed[i] = dir * abs
	b.encoder[i] += dir * int32(distance)
	return nil
}

func (b *Board) ReadEncoder(ctx context.Context, address, motor uint8) (int32, uint8, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.check(motor); err != nil {
		return 0, 0, err
	}
	return b.encoder[motor-1], 0, nil
}

func (b *Board) ReadBuffers(ctx context.Context, address uint8) (uint8, uint8, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.check(1); err != nil {
		return 0, 0, err
	}
	return 0x80, 0x80, nil
}

func (b *Board) ReadSpeed(ctx context.Context, address, motor uint8) (int32, uint8, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.check(motor); err != nil {
		return 0, 0, err
	}
	return b.speed[motor-1], 0, nil
}
