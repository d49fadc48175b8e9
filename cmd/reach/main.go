package main

import (
	"errors"
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Config  string `short:"c" long:"config" default:"reach.yaml" description:"Configuration file"`
	Verbose bool   `short:"v" long:"verbose" description:"Log every board transaction"`
	Sim     bool   `long:"sim" description:"Use in-memory boards instead of the serial ports"`

	Setup       SetupCommand       `command:"setup" description:"Find the motor controllers and write the configuration"`
	Sweep       SweepCommand       `command:"sweep" description:"Sweep the workspace while recording load cell forces"`
	Teleoperate TeleoperateCommand `command:"teleoperate" alias:"teleop" description:"Drive the motors from the keyboard"`
	Move        MoveCommand        `command:"move" description:"Run verified moves, e.g. 'reach move 1+ 3-'"`
	Forces      ForcesCommand      `command:"forces" description:"Print load cell forces until interrupted"`
	Probe       ProbeCommand       `command:"probe" description:"Read encoder, buffer and speed of every motor"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "reach - REACH manipulator control CLI"

	_, err := parser.Parse()
	os.Exit(exitCode(err))
}

// exitCode maps a Parse error to the process status: 0 for success or help,
// the command's own code for an exitError, 1 otherwise.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
		return 0
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	return 1
}
