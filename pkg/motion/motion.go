// Package motion issues discrete motor moves and confirms them from controller telemetry.
package motion

import (
	"fmt"
	"time"
)

// MotorID is the logical motor number used by operators (1-4).
type MotorID int

// Logical motors of the manipulator.
const (
	Motor1 MotorID = iota + 1
	Motor2
	Motor3
	Motor4
)

// AllMotors returns all logical motors in order.
func AllMotors() []MotorID {
	return []MotorID{Motor1, Motor2, Motor3, Motor4}
}

func (m MotorID) String() string {
	return fmt.Sprintf("Motor %d", int(m))
}

// Valid reports whether m names one of the four motors.
func (m MotorID) Valid() bool {
	return m >= Motor1 && m <= Motor4
}

// Direction is the requested direction of a move.
type Direction int

// Move directions.
const (
	Plus  Direction = 1
	Minus Direction = -1
)

func (d Direction) String() string {
	switch d {
	case Plus:
		return "plus"
	case Minus:
		return "minus"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Symbol returns "+" or "-".
func (d Direction) Symbol() string {
	if d == Minus {
		return "-"
	}
	return "+"
}

// Board identifies one of the two motor-controller boards.
type Board int

// Controller boards. Board1 drives motors 1-2, Board2 drives motors 3-4.
const (
	Board1 Board = iota + 1
	Board2
)

func (b Board) String() string {
	return fmt.Sprintf("board%d", int(b))
}

// Buffer selects how a command interacts with commands already queued on the motor.
type Buffer uint8

const (
	// Buffered queues the command behind the one currently executing.
	Buffered Buffer = 0
	// Immediate replaces whatever the motor is doing.
	Immediate Buffer = 1
)

// MotorHandle addresses one physical motor channel.
type MotorHandle struct {
	Board   Board
	Address uint8 // packet-serial address of the board, 0x80-0x87
	Motor   uint8 // channel on the board, 1 or 2
}

func (h MotorHandle) String() string {
	return fmt.Sprintf("%s@0x%02x/M%d", h.Board, h.Address, h.Motor)
}

// Command is a single speed/accel/distance move for one motor.
// Distance is always a magnitude; direction lives in the signs of Speed and Accel.
type Command struct {
	Handle   MotorHandle
	Speed    int32  // counts/s
	Accel    int32  // counts/s^2
	Distance uint32 // counts
	Buffer   Buffer
}

// Sample is a point-in-time read of one motor's telemetry.
type Sample struct {
	Encoder int32
	Buffer  uint8
	Speed   int32
	At      time.Time
}

// Attempt records one submit-and-check cycle.
//
// Before holds the encoder read taken before submission. After holds the
// encoder read taken after the move interval together with the buffer depth
// and speed sampled once the command settled.
type Attempt struct {
	N       int
	Before  Sample
	After   Sample
	Delta   int64
	Buffer  uint8
	Speed   int32
	Success bool
}

// Outcome is the result of a verified move, including every attempt made.
type Outcome struct {
	Motor    MotorID
	Label    string
	Success  bool
	Attempts []Attempt
}

// Last returns the final attempt, if any.
func (o Outcome) Last() (Attempt, bool) {
	if len(o.Attempts) == 0 {
		return Attempt{}, false
	}
	return o.Attempts[len(o.Attempts)-1], true
}
