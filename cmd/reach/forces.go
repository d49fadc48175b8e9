package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/reach-rig/reach/pkg/loadcell"
	"github.com/reach-rig/reach/pkg/robot"
)

type ForcesCommand struct {
	Interval time.Duration `long:"interval" default:"500ms" description:"Print interval"`
	CSV      string        `long:"csv" description:"Also record forces to this file"`
	Count    int           `short:"n" long:"count" description:"Stop after this many lines (0 runs until ctrl+c)"`
}

func (c *ForcesCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(opts.Verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := interruptContext()
	defer cancel()

	bank, source, err := openLoadCells(ctx, cfg, clock.New(), logger)
	if err != nil {
		return err
	}
	if bank == nil {
		return fmt.Errorf("load cells are disabled in %s", opts.Config)
	}
	defer bank.Close()

	if source == robot.SourceSimulated {
		fmt.Println(failStyle.Render("SIMULATED load cells: forces below are synthetic"))
	}
	if c.CSV != "" {
		rec, err := loadcell.Create(c.CSV, len(cfg.LoadCells.Channels))
		if err != nil {
			return err
		}
		defer rec.Close()
		bank.Subscribe(func(r loadcell.Reading) {
			if err := rec.Record(r); err != nil {
				logger.Warn("record force", zap.Error(err))
			}
		})
		fmt.Println(recordingNote(source, c.CSV))
	}

	fmt.Println(headerStyle.Render("Load cell forces") + dimStyle.Render("  (ctrl+c to stop)"))
	printForces(ctx, os.Stdout, bank.Latest, clock.New(), c.Interval, c.Count)
	return nil
}

// printForces writes the latest readings every interval until ctx is done or
// count lines have been written. A zero count prints until cancelled.
func printForces(ctx context.Context, w io.Writer, latest func() []loadcell.Reading, clk clock.Clock, interval time.Duration, count int) {
	ticker := clk.Ticker(interval)
	defer ticker.Stop()
	for n := 0; count == 0 || n < count; n++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		readings := latest()
		parts := make([]string, 0, len(readings))
		for _, r := range readings {
			parts = append(parts, fmt.Sprintf("LC%d %8.4f", r.Channel+1, r.Force))
		}
		fmt.Fprintln(w, strings.Join(parts, "   "))
	}
}
