package main

import (
	"context"
	"fmt"

	"github.com/reach-rig/reach/pkg/robot"
)

type MoveCommand struct {
	Args struct {
		Steps []string `positional-arg-name:"step" required:"1" description:"Motor and direction, e.g. 1+ or 3-"`
	} `positional-args:"yes"`
}

func (c *MoveCommand) Execute(args []string) error {
	steps := make([]robot.Step, 0, len(c.Args.Steps))
	for _, s := range c.Args.Steps {
		st, err := robot.ParseStep(s)
		if err != nil {
			return err
		}
		steps = append(steps, st)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(opts.Verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	arm, err := openArm(cfg, logger)
	if err != nil {
		return err
	}
	defer arm.Close()

	failed := 0
	for _, st := range steps {
		out, err := arm.Step(context.Background(), st)
		if err != nil {
			return fmt.Errorf("%s: %w", st, err)
		}

		last, _ := out.Last()
		if out.Success {
			fmt.Printf("%s %s confirmed on attempt %d (delta %d, speed %d)\n",
				successStyle.Render("✓"), st, last.N, last.Delta, last.Speed)
		} else {
			failed++
			fmt.Printf("%s %s not confirmed after %d attempts (delta %d, speed %d)\n",
				failStyle.Render("✗"), st, len(out.Attempts), last.Delta, last.Speed)
		}
	}

	if failed > 0 {
		return &exitError{code: 2, err: fmt.Errorf("%d of %d moves not confirmed", failed, len(steps))}
	}
	return nil
}
