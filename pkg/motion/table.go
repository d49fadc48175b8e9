package motion

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownMotor is returned for motor ids outside 1-4.
	ErrUnknownMotor = errors.New("unknown motor")
	// ErrUnknownDirection is returned for directions other than Plus and Minus.
	ErrUnknownDirection = errors.New("unknown direction")
)

// Route is the physical target and sign pattern for one (motor, direction) pair.
type Route struct {
	Board     Board
	Motor     uint8
	SpeedSign int32
	AccelSign int32
}

type routeKey struct {
	id  MotorID
	dir Direction
}

// routes is the rig's sign table. The signs follow how each motor is mounted
// and were recorded on the rig, not derived; re-check them after any
// mechanical change. Every motor keeps a positive speed and flips only the
// acceleration sign between directions.
var routes = map[routeKey]Route{
	{Motor1, Plus}:  {Board: Board1, Motor: 2, SpeedSign: 1, AccelSign: 1},
	{Motor1, Minus}: {Board: Board1, Motor: 2, SpeedSign: 1, AccelSign: -1},
	{Motor2, Plus}:  {Board: Board1, Motor: 1, SpeedSign: 1, AccelSign: -1},
	{Motor2, Minus}: {Board: Board1, Motor: 1, SpeedSign: 1, AccelSign: 1},
	{Motor3, Plus}:  {Board: Board2, Motor: 1, SpeedSign: 1, AccelSign: -1},
	{Motor3, Minus}: {Board: Board2, Motor: 1, SpeedSign: 1, AccelSign: 1},
	{Motor4, Plus}:  {Board: Board2, Motor: 2, SpeedSign: 1, AccelSign: 1},
	{Motor4, Minus}: {Board: Board2, Motor: 2, SpeedSign: 1, AccelSign: -1},
}

// Lookup returns the route for a motor and direction.
func Lookup(id MotorID, dir Direction) (Route, error) {
	if !id.Valid() {
		return Route{}, fmt.Errorf("%w: %d", ErrUnknownMotor, int(id))
	}
	if dir != Plus && dir != Minus {
		return Route{}, fmt.Errorf("%w: %d", ErrUnknownDirection, int(dir))
	}
	return routes[routeKey{id, dir}], nil
}

// MotorAt returns the logical motor wired to a board channel.
func MotorAt(board Board, motor uint8) (MotorID, bool) {
	for k, r := range routes {
		if r.Board == board && r.Motor == motor {
			return k.id, true
		}
	}
	return 0, false
}
