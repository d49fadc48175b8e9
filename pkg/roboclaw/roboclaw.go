// Package roboclaw is a packet serial driver for RoboClaw motor controllers.
//
// One Link talks to one board (one serial port). Both motor channels on the
// board share it. The driver implements motion.Link.
package roboclaw

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/reach-rig/reach/pkg/motion"
)

// Defaults for Config.
const (
	DefaultBaud    = 230400
	DefaultTimeout = 100 * time.Millisecond
	DefaultRetries = 2
)

// Config describes a serial connection to one board.
type Config struct {
	Port    string
	Baud    int
	Timeout time.Duration // per-read timeout
	Retries int           // resends of a failed transaction; 0 means DefaultRetries, negative none
}

// Link is a connection to one RoboClaw board.
type Link struct {
	mu      sync.Mutex
	port    io.ReadWriteCloser
	name    string
	retries int
	logger  *zap.Logger
}

var _ motion.Link = (*Link)(nil)

// Open opens the serial port described by cfg.
func Open(cfg Config, logger *zap.Logger) (*Link, error) {
	if cfg.Port == "" {
		return nil, fmt.Errorf("roboclaw: no serial port configured")
	}
	if cfg.Baud <= 0 {
		cfg.Baud = DefaultBaud
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	mode := &serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	// USB CDC ports sometimes refuse an open right after enumeration
	var port serial.Port
	op := func() error {
		p, err := serial.Open(cfg.Port, mode)
		if err != nil {
			return err
		}
		port = p
		return nil
	}
	err := backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     25 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      3 * time.Second,
		Clock:               backoff.SystemClock})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Port, err)
	}

	if err := port.SetReadTimeout(cfg.Timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", cfg.Port, err)
	}

	return New(port, cfg.Port, cfg.Retries, logger), nil
}

// New wraps an already open transport.
func New(port io.ReadWriteCloser, name string, retries int, logger *zap.Logger) *Link {
	if retries < 0 {
		retries = 0
	} else if retries == 0 {
		retries = DefaultRetries
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Link{
		port:    port,
		name:    name,
		retries: retries,
		logger:  logger.With(zap.String("port", name)),
	}
}

// Name returns the port name the link was opened on.
func (l *Link) Name() string {
	return l.name
}

// Close closes the serial port.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port.Close()
}

// SpeedAccelDistance queues or starts a move on motor 1 or 2.
//
// The firmware takes an unsigned acceleration and a signed speed. The move
// direction is the combined sign of speed and accel; the magnitudes go out
// unchanged.
func (l *Link) SpeedAccelDistance(ctx context.Context, address, motor uint8, speed, accel int32, distance uint32, buffer motion.Buffer) error {
	cmd, err := pick(motor, cmdM1SpeedAccelDist, cmdM2SpeedAccelDist)
	if err != nil {
		return err
	}

	wireSpeed := abs32(speed)
	if (speed < 0) != (accel < 0) {
		wireSpeed = -wireSpeed
	}

	payload := make([]byte, 0, 13)
	payload = putU32(payload, uint32(abs32(accel)))
	payload = putU32(payload, uint32(wireSpeed))
	payload = putU32(payload, distance)
	payload = append(payload, byte(buffer))

	return l.write(ctx, address, cmd, payload)
}

// ReadEncoder returns the signed encoder count and the encoder status byte.
func (l *Link) ReadEncoder(ctx context.Context, address, motor uint8) (int32, uint8, error) {
	cmd, err := pick(motor, cmdGetM1Enc, cmdGetM2Enc)
	if err != nil {
		return 0, 0, err
	}
	resp, err := l.read(ctx, address, cmd, 5)
	if err != nil {
		return 0, 0, err
	}
	return int32(binary.BigEndian.Uint32(resp)), resp[4], nil
}

// ReadSpeed returns the signed speed in counts/s and the direction byte.
func (l *Link) ReadSpeed(ctx context.Context, address, motor uint8) (int32, uint8, error) {
	cmd, err := pick(motor, cmdGetM1Speed, cmdGetM2Speed)
	if err != nil {
		return 0, 0, err
	}
	resp, err := l.read(ctx, address, cmd, 5)
	if err != nil {
		return 0, 0, err
	}
	return int32(binary.BigEndian.Uint32(resp)), resp[4], nil
}

// ReadBuffers returns the command buffer depth of both channels. 0x80 means
// the buffer is empty and idle, 0 means the last command is executing.
func (l *Link) ReadBuffers(ctx context.Context, address uint8) (uint8, uint8, error) {
	resp, err := l.read(ctx, address, cmdGetBuffers, 2)
	if err != nil {
		return 0, 0, err
	}
	return resp[0], resp[1], nil
}

// ReadVersion returns the firmware identification string.
func (l *Link) ReadVersion(ctx context.Context, address uint8) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	var lastErr error
	for try := 0; try <= l.retries; try++ {
		v, err := l.readVersion(address)
		if err == nil {
			return v, nil
		}
		lastErr = err
		l.retry("read version", try, err)
	}
	return "", lastErr
}

func (l *Link) readVersion(address uint8) (string, error) {
	if _, err := l.port.Write([]byte{address, cmdGetVersion}); err != nil {
		return "", err
	}

	var text []byte
	one := make([]byte, 1)
	for {
		if err := readFull(l.port, one); err != nil {
			return "", err
		}
		text = append(text, one[0])
		if one[0] == 0 {
			break
		}
		if len(text) > maxVersionLen {
			return "", fmt.Errorf("roboclaw: version string longer than %d bytes", maxVersionLen)
		}
	}

	sum := make([]byte, 2)
	if err := readFull(l.port, sum); err != nil {
		return "", err
	}
	if err := verify(address, cmdGetVersion, append(text, sum...)); err != nil {
		return "", err
	}
	return string(bytes.TrimSpace(bytes.TrimRight(text, "\x00"))), nil
}

func (l *Link) write(ctx context.Context, address, cmd byte, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	pkt := frame(address, cmd, payload...)
	reply := make([]byte, 1)

	var lastErr error
	for try := 0; try <= l.retries; try++ {
		if _, err := l.port.Write(pkt); err != nil {
			lastErr = err
		} else if err := readFull(l.port, reply); err != nil {
			lastErr = err
		} else if reply[0] != ack {
			lastErr = ErrNoAck
		} else {
			return nil
		}
		l.retry(fmt.Sprintf("command %d", cmd), try, lastErr)
	}
	return lastErr
}

// read sends a read request and returns n data bytes with the checksum verified.
func (l *Link) read(ctx context.Context, address, cmd byte, n int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	resp := make([]byte, n+2)

	var lastErr error
	for try := 0; try <= l.retries; try++ {
		if _, err := l.port.Write([]byte{address, cmd}); err != nil {
			lastErr = err
		} else if err := readFull(l.port, resp); err != nil {
			lastErr = err
		} else if err := verify(address, cmd, resp); err != nil {
			lastErr = err
		} else {
			return resp[:n], nil
		}
		l.retry(fmt.Sprintf("command %d", cmd), try, lastErr)
	}
	return nil, lastErr
}

// retry logs a failed transaction and drops any stale bytes before the next try.
func (l *Link) retry(op string, try int, err error) {
	l.logger.Debug("roboclaw transaction failed",
		zap.String("op", op),
		zap.Int("try", try+1),
		zap.Error(err))
	if r, ok := l.port.(interface{ ResetInputBuffer() error }); ok {
		if rerr := r.ResetInputBuffer(); rerr != nil {
			l.logger.Debug("roboclaw input buffer reset failed",
				zap.String("op", op),
				zap.Error(rerr))
		}
	}
}

func pick(motor uint8, m1, m2 byte) (byte, error) {
	switch motor {
	case 1:
		return m1, nil
	case 2:
		return m2, nil
	default:
		return 0, fmt.Errorf("roboclaw: motor must be 1 or 2, got %d", motor)
	}
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// Ports lists serial ports that could host a board.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}
