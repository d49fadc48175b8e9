package motion

import (
	"context"
	"fmt"
)

// Link is the transport to one motor-controller board.
//
// Every method may fail with a transport error; callers in this package never
// retry those.
type Link interface {
	// SpeedAccelDistance submits a move. It returns once the board accepted the
	// command; the motion itself runs asynchronously in firmware.
	SpeedAccelDistance(ctx context.Context, address, motor uint8, speed, accel int32, distance uint32, buffer Buffer) error

	// ReadEncoder returns the encoder count and status byte for a motor.
	ReadEncoder(ctx context.Context, address, motor uint8) (int32, uint8, error)

	// ReadBuffers returns the command buffer depth of both motors on the board.
	ReadBuffers(ctx context.Context, address uint8) (uint8, uint8, error)

	// ReadSpeed returns the instantaneous speed (counts/s) and status byte for a motor.
	ReadSpeed(ctx context.Context, address, motor uint8) (int32, uint8, error)
}

// TransportError reports a failed link call. It is fatal to the move that
// triggered it and is never retried by the verifier.
type TransportError struct {
	Op     string
	Handle MotorHandle
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Handle, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
