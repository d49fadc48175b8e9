package motion

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

type submitCall struct {
	address  uint8
	motor    uint8
	speed    int32
	accel    int32
	distance uint32
	buffer   Buffer
}

// scriptedLink replays encoder and speed readings in order.
type scriptedLink struct {
	encoders []int32
	speeds   []int32
	bufs     [2]uint8
	submits  []submitCall

	encErr    error
	bufErr    error
	speedErr  error
	submitErr error
}

func (l *scriptedLink) SpeedAccelDistance(ctx context.Context, address, motor uint8, speed, accel int32, distance uint32, buffer Buffer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l.submitErr != nil {
		return l.submitErr
	}
	l.submits = append(l.submits, submitCall{address, motor, speed, accel, distance, buffer})
	return nil
}

func (l *scriptedLink) ReadEncoder(ctx context.Context, address, motor uint8) (int32, uint8, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	if l.encErr != nil {
		return 0, 0, l.encErr
	}
	if len(l.encoders) == 0 {
		return 0, 0, nil
	}
	v := l.encoders[0]
	l.encoders = l.encoders[1:]
	return v, 0, nil
}

func (l *scriptedLink) ReadBuffers(ctx context.Context, address uint8) (uint8, uint8, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	if l.bufErr != nil {
		return 0, 0, l.bufErr
	}
	return l.bufs[0], l.bufs[1], nil
}

func (l *scriptedLink) ReadSpeed(ctx context.Context, address, motor uint8) (int32, uint8, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	if l.speedErr != nil {
		return 0, 0, l.speedErr
	}
	if len(l.speeds) == 0 {
		return 0, 0, nil
	}
	v := l.speeds[0]
	l.speeds = l.speeds[1:]
	return v, 0, nil
}

// stepClock advances a mock clock on Sleep instead of blocking.
type stepClock struct {
	*clock.Mock
	slept []time.Duration
}

func newStepClock() *stepClock {
	return &stepClock{Mock: clock.NewMock()}
}

func (c *stepClock) Sleep(d time.Duration) {
	c.slept = append(c.slept, d)
	c.Mock.Add(d)
}
