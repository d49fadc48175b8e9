package roboclaw

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/snksoft/crc"
)

// Packet serial command numbers.
const (
	cmdGetM1Enc         byte = 16
	cmdGetM2Enc         byte = 17
	cmdGetM1Speed       byte = 18
	cmdGetM2Speed       byte = 19
	cmdGetVersion       byte = 21
	cmdM1SpeedAccelDist byte = 44
	cmdM2SpeedAccelDist byte = 45
	cmdGetBuffers       byte = 47
)

const (
	ack           byte = 0xFF
	maxVersionLen      = 48
)

var (
	// ErrCRC is returned when a response checksum does not match.
	ErrCRC = errors.New("roboclaw: crc mismatch")
	// ErrNoAck is returned when a write is not acknowledged.
	ErrNoAck = errors.New("roboclaw: command not acknowledged")
	// ErrTimeout is returned when the board stops responding mid-frame.
	ErrTimeout = errors.New("roboclaw: read timeout")
)

// checksum is CRC16-CCITT with zero init (XMODEM), as used by the firmware.
func checksum(b []byte) uint16 {
	return uint16(crc.CalculateCRC(crc.XMODEM, b))
}

// frame appends the checksum to address, command and payload.
func frame(address, cmd byte, payload ...byte) []byte {
	b := make([]byte, 0, len(payload)+4)
	b = append(b, address, cmd)
	b = append(b, payload...)
	return binary.BigEndian.AppendUint16(b, checksum(b))
}

func putU32(b []byte, v uint32) []byte {
	return binary.BigEndian.AppendUint32(b, v)
}

// readFull reads len(buf) bytes. A zero-length read is a timeout: serial
// ports return (0, nil) when their read deadline passes.
func readFull(r io.Reader, buf []byte) error {
	for off := 0; off < len(buf); {
		n, err := r.Read(buf[off:])
		if n == 0 && err == nil {
			return ErrTimeout
		}
		off += n
		if err != nil {
			if errors.Is(err, io.EOF) && off == len(buf) {
				return nil
			}
			return err
		}
	}
	return nil
}

// verify checks the trailing checksum of a response to a read request.
func verify(address, cmd byte, resp []byte) error {
	if len(resp) < 2 {
		return ErrTimeout
	}
	body := resp[:len(resp)-2]
	want := binary.BigEndian.Uint16(resp[len(resp)-2:])
	sum := make([]byte, 0, len(body)+2)
	sum = append(sum, address, cmd)
	sum = append(sum, body...)
	if checksum(sum) != want {
		return ErrCRC
	}
	return nil
}
