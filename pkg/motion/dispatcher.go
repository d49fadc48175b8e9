package motion

import (
	"context"
	"fmt"
)

// Profile holds the speed/accel/distance magnitudes applied to every move.
type Profile struct {
	Speed    int32
	Accel    int32
	Distance uint32
	Buffer   Buffer
}

// DefaultProfile is the move used on the rig: 144000 counts/s, 144000
// counts/s^2, 46080 counts, executed immediately.
func DefaultProfile() Profile {
	return Profile{
		Speed:    144000,
		Accel:    144000,
		Distance: 46080,
		Buffer:   Immediate,
	}
}

// Endpoint is a board link together with the board's packet-serial address.
type Endpoint struct {
	Link    Link
	Address uint8
}

// Move is a dispatched but not yet submitted command.
type Move struct {
	Motor     MotorID
	Direction Direction
	Label     string
	Command   Command
	Link      Link

	// Submit sends Command over Link. Nothing is sent until it is called.
	Submit func(ctx context.Context) error
}

// Dispatcher turns (motor, direction) requests into board commands.
type Dispatcher struct {
	boards  map[Board]Endpoint
	profile Profile
}

// NewDispatcher creates a dispatcher over the given boards. Every board the
// route table refers to must be present.
func NewDispatcher(boards map[Board]Endpoint, profile Profile) (*Dispatcher, error) {
	for _, b := range []Board{Board1, Board2} {
		ep, ok := boards[b]
		if !ok || ep.Link == nil {
			return nil, fmt.Errorf("no link for %s", b)
		}
	}
	if profile.Speed < 0 || profile.Accel < 0 {
		return nil, fmt.Errorf("profile speed and accel must be magnitudes, got %d/%d", profile.Speed, profile.Accel)
	}

	copied := make(map[Board]Endpoint, len(boards))
	for b, ep := range boards {
		copied[b] = ep
	}
	return &Dispatcher{boards: copied, profile: profile}, nil
}

// Profile returns the move profile in use.
func (d *Dispatcher) Profile() Profile {
	return d.profile
}

// Handle returns the physical handle of a motor.
func (d *Dispatcher) Handle(id MotorID) (MotorHandle, Link, error) {
	r, err := Lookup(id, Plus)
	if err != nil {
		return MotorHandle{}, nil, err
	}
	ep := d.boards[r.Board]
	return MotorHandle{Board: r.Board, Address: ep.Address, Motor: r.Motor}, ep.Link, nil
}

// Dispatch builds the command for a motor and direction.
func (d *Dispatcher) Dispatch(id MotorID, dir Direction) (Move, error) {
	r, err := Lookup(id, dir)
	if err != nil {
		return Move{}, err
	}
	ep := d.boards[r.Board]

	cmd := Command{
		Handle: MotorHandle{
			Board:   r.Board,
			Address: ep.Address,
			Motor:   r.Motor,
		},
		Speed:    r.SpeedSign * d.profile.Speed,
		Accel:    r.AccelSign * d.profile.Accel,
		Distance: d.profile.Distance,
		Buffer:   d.profile.Buffer,
	}

	link := ep.Link
	return Move{
		Motor:     id,
		Direction: dir,
		Label:     id.String(),
		Command:   cmd,
		Link:      link,
		Submit: func(ctx context.Context) error {
			return link.SpeedAccelDistance(ctx, cmd.Handle.Address, cmd.Handle.Motor,
				cmd.Speed, cmd.Accel, cmd.Distance, cmd.Buffer)
		},
	}, nil
}
