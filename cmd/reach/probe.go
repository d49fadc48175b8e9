package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/reach-rig/reach/pkg/motion"
)

type ProbeCommand struct{}

func (c *ProbeCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(opts.Verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	fmt.Println(headerStyle.Render("REACH Probe"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━"))
	fmt.Printf("  Board 1: %s @ %#x\n", cfg.Board1.Port, cfg.Board1.Address)
	fmt.Printf("  Board 2: %s @ %#x\n", cfg.Board2.Port, cfg.Board2.Address)
	fmt.Println()

	arm, err := openArm(cfg, logger)
	if err != nil {
		return fmt.Errorf("open boards: %w", err)
	}
	defer arm.Close()

	ctx := context.Background()
	rows := make([][]string, 0, 4)
	for _, id := range motion.AllMotors() {
		h, err := arm.Handle(id)
		if err != nil {
			return err
		}
		s, err := arm.Telemetry(ctx, id)
		if err != nil {
			rows = append(rows, []string{id.String(), h.String(), "-", "-", "-", err.Error()})
			continue
		}
		var state string
		switch s.Buffer {
		case 0x80:
			state = "idle"
		case 0:
			state = "executing"
		default:
			state = fmt.Sprintf("%d queued", s.Buffer)
		}
		rows = append(rows, []string{
			id.String(),
			h.String(),
			fmt.Sprintf("%d", s.Encoder),
			fmt.Sprintf("%d", s.Speed),
			state,
			"",
		})
	}

	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableMotorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableErrorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Motor", "Channel", "Encoder", "Speed", "Buffer", "Error").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return tableHeaderStyle
			case col == 0:
				return tableMotorStyle
			case col == 5:
				return tableErrorStyle
			default:
				return tableCellStyle
			}
		})

	fmt.Println(t.Render())
	return nil
}
