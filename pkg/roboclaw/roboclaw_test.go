package roboclaw

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/reach-rig/reach/pkg/motion"
)

// fakePort records writes and serves queued response chunks, one per Read.
type fakePort struct {
	written   bytes.Buffer
	responses [][]byte
	resets    int
	resetErr  error
	closed    bool
}

func (p *fakePort) Write(b []byte) (int, error) {
	return p.written.Write(b)
}

func (p *fakePort) Read(b []byte) (int, error) {
	if len(p.responses) == 0 {
		return 0, nil // timeout
	}
	n := copy(b, p.responses[0])
	if n < len(p.responses[0]) {
		p.responses[0] = p.responses[0][n:]
	} else {
		p.responses = p.responses[1:]
	}
	return n, nil
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func (p *fakePort) ResetInputBuffer() error {
	p.resets++
	return p.resetErr
}

// reply builds a board response with the checksum covering the request header.
func reply(address, cmd byte, data ...byte) []byte {
	sum := checksum(append([]byte{address, cmd}, data...))
	return binary.BigEndian.AppendUint16(append([]byte{}, data...), sum)
}

func TestChecksum_XModemVector(t *testing.T) {
	if got := checksum([]byte("123456789")); got != 0x31C3 {
		t.Errorf("checksum = %#04x, want 0x31c3", got)
	}
}

func TestSpeedAccelDistance_Frame(t *testing.T) {
	tests := []struct {
		name      string
		motor     uint8
		speed     int32
		accel     int32
		cmd       byte
		wireAccel uint32
		wireSpeed int32
	}{
		{"m2 forward", 2, 144000, 144000, cmdM2SpeedAccelDist, 144000, 144000},
		{"m1 accel negative", 1, 144000, -144000, cmdM1SpeedAccelDist, 144000, -144000},
		{"m1 speed negative", 1, -1000, 500, cmdM1SpeedAccelDist, 500, -1000},
		{"both negative", 2, -1000, -500, cmdM2SpeedAccelDist, 500, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := &fakePort{responses: [][]byte{{ack}}}
			l := New(port, "test", 0, nil)

			err := l.SpeedAccelDistance(context.Background(), 0x80, tt.motor, tt.speed, tt.accel, 46080, motion.Immediate)
			if err != nil {
				t.Fatal(err)
			}

			got := port.written.Bytes()
			if len(got) != 17 {
				t.Fatalf("frame length %d, want 17: % x", len(got), got)
			}
			if got[0] != 0x80 || got[1] != tt.cmd {
				t.Errorf("header % x", got[:2])
			}
			if a := binary.BigEndian.Uint32(got[2:6]); a != tt.wireAccel {
				t.Errorf("accel field %d, want %d", a, tt.wireAccel)
			}
			if s := int32(binary.BigEndian.Uint32(got[6:10])); s != tt.wireSpeed {
				t.Errorf("speed field %d, want %d", s, tt.wireSpeed)
			}
			if d := binary.BigEndian.Uint32(got[10:14]); d != 46080 {
				t.Errorf("distance field %d", d)
			}
			if got[14] != byte(motion.Immediate) {
				t.Errorf("buffer flag %d", got[14])
			}
			if sum := binary.BigEndian.Uint16(got[15:]); sum != checksum(got[:15]) {
				t.Errorf("frame checksum %#04x, want %#04x", sum, checksum(got[:15]))
			}
		})
	}
}

func TestWrite_RetriesWithoutAck(t *testing.T) {
	port := &fakePort{responses: [][]byte{{0x00}, {ack}}}
	l := New(port, "test", 2, nil)

	err := l.SpeedAccelDistance(context.Background(), 0x80, 1, 10, 10, 10, motion.Buffered)
	if err != nil {
		t.Fatalf("expected success on second try, got %v", err)
	}
	if port.written.Len() != 34 {
		t.Errorf("wrote %d bytes, want two frames", port.written.Len())
	}
	if port.resets != 1 {
		t.Errorf("input buffer reset %d times, want 1", port.resets)
	}
}

func TestWrite_GivesUp(t *testing.T) {
	port := &fakePort{}
	l := New(port, "test", 1, nil)

	err := l.SpeedAccelDistance(context.Background(), 0x80, 1, 10, 10, 10, motion.Buffered)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}
	if port.written.Len() != 34 {
		t.Errorf("wrote %d bytes, want 2 frames", port.written.Len())
	}
}

func TestRetry_LogsResetFailure(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	port := &fakePort{resetErr: errors.New("device gone")}
	l := New(port, "test", 1, zap.New(core))

	if err := l.SpeedAccelDistance(context.Background(), 0x80, 1, 10, 10, 10, motion.Buffered); err == nil {
		t.Fatal("expected error without ack")
	}
	if port.resets != 2 {
		t.Errorf("resets = %d, want 2", port.resets)
	}

	entries := logs.FilterMessage("roboclaw input buffer reset failed").All()
	if len(entries) != 2 {
		t.Fatalf("reset failures logged %d times, want 2", len(entries))
	}
	if got := entries[0].ContextMap()["error"]; got != "device gone" {
		t.Errorf("logged error = %v", got)
	}
}

func TestReadEncoder(t *testing.T) {
	data := []byte{0xFF, 0xFF, 0xFC, 0x18, 0x02} // -1000, status 2
	port := &fakePort{responses: [][]byte{reply(0x81, cmdGetM2Enc, data...)}}
	l := New(port, "test", 0, nil)

	v, status, err := l.ReadEncoder(context.Background(), 0x81, 2)
	if err != nil {
		t.Fatal(err)
	}
	if v != -1000 || status != 2 {
		t.Errorf("ReadEncoder = %d, %d; want -1000, 2", v, status)
	}
	if !bytes.Equal(port.written.Bytes(), []byte{0x81, cmdGetM2Enc}) {
		t.Errorf("request % x", port.written.Bytes())
	}
}

func TestReadEncoder_SplitResponse(t *testing.T) {
	full := reply(0x80, cmdGetM1Enc, 0x00, 0x00, 0x03, 0xE8, 0x00)
	port := &fakePort{responses: [][]byte{full[:3], full[3:]}}
	l := New(port, "test", 0, nil)

	v, _, err := l.ReadEncoder(context.Background(), 0x80, 1)
	if err != nil {
		t.Fatal(err)
	}
	if v != 1000 {
		t.Errorf("ReadEncoder = %d, want 1000", v)
	}
}

func TestRead_BadChecksumRetried(t *testing.T) {
	bad := reply(0x80, cmdGetM1Speed, 0, 0, 0, 5, 0)
	bad[len(bad)-1] ^= 0xFF
	good := reply(0x80, cmdGetM1Speed, 0, 0, 0x05, 0xDC, 0)
	port := &fakePort{responses: [][]byte{bad, good}}
	l := New(port, "test", 2, nil)

	v, _, err := l.ReadSpeed(context.Background(), 0x80, 1)
	if err != nil {
		t.Fatal(err)
	}
	if v != 1500 {
		t.Errorf("ReadSpeed = %d, want 1500", v)
	}
}

func TestRead_BadChecksumExhausted(t *testing.T) {
	bad := reply(0x80, cmdGetBuffers, 0x80, 0x80)
	bad[len(bad)-1] ^= 0xFF
	port := &fakePort{responses: [][]byte{bad}}
	l := New(port, "test", -1, nil)

	if _, _, err := l.ReadBuffers(context.Background(), 0x80); !errors.Is(err, ErrCRC) {
		t.Fatalf("error = %v, want ErrCRC", err)
	}
}

func TestReadBuffers(t *testing.T) {
	port := &fakePort{responses: [][]byte{reply(0x80, cmdGetBuffers, 0x80, 0x01)}}
	l := New(port, "test", 0, nil)

	b1, b2, err := l.ReadBuffers(context.Background(), 0x80)
	if err != nil {
		t.Fatal(err)
	}
	if b1 != 0x80 || b2 != 0x01 {
		t.Errorf("ReadBuffers = %#x, %#x", b1, b2)
	}
}

func TestReadVersion(t *testing.T) {
	text := append([]byte("USB Roboclaw 2x15a v4.1.34\n"), 0)
	port := &fakePort{responses: [][]byte{reply(0x80, cmdGetVersion, text...)}}
	l := New(port, "test", 0, nil)

	v, err := l.ReadVersion(context.Background(), 0x80)
	if err != nil {
		t.Fatal(err)
	}
	if v != "USB Roboclaw 2x15a v4.1.34" {
		t.Errorf("ReadVersion = %q", v)
	}
}

func TestInvalidMotor(t *testing.T) {
	l := New(&fakePort{}, "test", 0, nil)
	if _, _, err := l.ReadEncoder(context.Background(), 0x80, 3); err == nil {
		t.Error("ReadEncoder accepted motor 3")
	}
	if err := l.SpeedAccelDistance(context.Background(), 0x80, 0, 1, 1, 1, motion.Immediate); err == nil {
		t.Error("SpeedAccelDistance accepted motor 0")
	}
}

func TestCancelledContextSendsNothing(t *testing.T) {
	port := &fakePort{}
	l := New(port, "test", 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := l.ReadEncoder(ctx, 0x80, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if port.written.Len() != 0 {
		t.Errorf("wrote % x after cancel", port.written.Bytes())
	}
}

func TestClose(t *testing.T) {
	port := &fakePort{}
	l := New(port, "test", 0, nil)
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if !port.closed {
		t.Error("port not closed")
	}
}
