package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"go.uber.org/zap"

	"github.com/reach-rig/reach/pkg/loadcell"
	"github.com/reach-rig/reach/pkg/sweep"
)

type SweepCommand struct {
	Segments []string `short:"s" long:"segment" description:"Run only this segment, e.g. \"M1 M2\" (repeatable)"`
	Steps    int      `long:"steps" description:"Repetitions of each pattern (default from config)"`
	CSV      string   `long:"csv" description:"Force log file (default from config)"`
	Yes      bool     `short:"y" long:"yes" description:"Start without asking"`
}

func (c *SweepCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if c.Steps > 0 {
		cfg.Sweep.Steps = c.Steps
	}
	if c.CSV != "" {
		cfg.LoadCells.CSV = c.CSV
	}

	segs, err := sweep.Select(c.Segments...)
	if err != nil {
		return err
	}

	logger, err := newLogger(opts.Verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	fmt.Println(headerStyle.Render("REACH Workspace Sweep"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println()
	for _, s := range segs {
		fmt.Printf("  %-6s %d moves\n", s.Name, len(s.Moves(cfg.Sweep.Steps)))
	}
	fmt.Println()

	if !c.Yes {
		start := true
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Start the sweep?").
					Description("Make sure the workspace is clear").
					Affirmative("Start").
					Negative("Cancel").
					Value(&start),
			),
		)
		if err := form.Run(); err != nil || !start {
			fmt.Println()
			return nil
		}
	}

	ctx, cancel := interruptContext()
	defer cancel()

	arm, err := openArm(cfg, logger)
	if err != nil {
		return err
	}
	defer arm.Close()

	bank, source, err := openLoadCells(ctx, cfg, clock.New(), logger)
	if err != nil {
		return err
	}
	if bank != nil {
		defer bank.Close()

		rec, err := loadcell.Create(cfg.LoadCells.CSV, len(cfg.LoadCells.Channels))
		if err != nil {
			return err
		}
		defer rec.Close()
		bank.Subscribe(func(r loadcell.Reading) {
			if err := rec.Record(r); err != nil {
				logger.Warn("record force", zap.Error(err))
			}
		})
		fmt.Printf("%s\n\n", recordingNote(source, cfg.LoadCells.CSV))
	}

	runner := sweep.NewRunner(arm, sweep.Config{
		Steps:  cfg.Sweep.Steps,
		Dwell:  cfg.Dwell(),
		Pause:  cfg.Pause(),
		Logger: logger,
		OnMove: func(p sweep.Progress) {
			mark := successStyle.Render("✓")
			if !p.Outcome.Success {
				mark = failStyle.Render("✗")
			}
			fmt.Printf("%s [%s %3d/%d] %s\n", mark, p.Segment, p.Index+1, p.Total, p.Step)
		},
	})

	rep, err := runner.Run(ctx, segs)
	fmt.Println()
	fmt.Println(renderReport(rep))
	if err != nil && ctx.Err() != nil {
		fmt.Println(dimStyle.Render("Sweep interrupted."))
		return nil
	}
	if err != nil {
		return fmt.Errorf("sweep aborted: %w", err)
	}
	return nil
}

func renderReport(rep sweep.Report) string {
	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableGoodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	tableBadStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	rows := make([][]string, 0, len(rep.Segments))
	for _, s := range rep.Segments {
		var failed []string
		for _, o := range s.Failed {
			failed = append(failed, o.Label)
		}
		rows = append(rows, []string{
			s.Name,
			fmt.Sprintf("%d", s.Moves),
			fmt.Sprintf("%d", s.Confirmed),
			fmt.Sprintf("%d", len(s.Failed)),
			strings.Join(failed, ", "),
			s.Elapsed.Round(time.Second).String(),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Segment", "Moves", "Confirmed", "Failed", "Unconfirmed motors", "Time").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == 3 && row >= 0 && row < len(rep.Segments) {
				if len(rep.Segments[row].Failed) == 0 {
					return tableGoodStyle
				}
				return tableBadStyle
			}
			return tableCellStyle
		})

	moves, confirmed := rep.Totals()
	summary := fmt.Sprintf("%d of %d moves confirmed in %s",
		confirmed, moves, rep.Finished.Sub(rep.Started).Round(time.Second))
	return t.Render() + "\n" + summary
}
