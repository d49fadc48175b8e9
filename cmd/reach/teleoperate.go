package main

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"go.uber.org/zap"

	"github.com/reach-rig/reach/pkg/teleop"
)

type TeleoperateCommand struct {
	Layout  string `long:"layout" default:"keyboard" choice:"keyboard" choice:"gamepad" description:"Key binding table"`
	LogFile string `long:"log" default:"reach.log" description:"Log file (the terminal belongs to the UI)"`
}

const maxLogs = 5 // number of log messages to show

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	busyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

type teleopModel struct {
	ctrl     *teleop.Controller
	bindings []teleop.Binding
	layout   string
	state    teleop.State
	width    int
	logs     []string // last N log messages
	quitting bool
}

func (m *teleopModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// Messages from the controller
type stateMsg teleop.State
type logMsg string

func waitForState(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

func (m teleopModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
	)
}

func (m teleopModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		default:
			m.ctrl.Key(msg.String())
		}

	case stateMsg:
		m.state = teleop.State(msg)
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)
	}

	return m, nil
}

func (m teleopModel) View() string {
	if m.quitting {
		return "Teleoperation stopped.\n"
	}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render("REACH Teleoperate"))
	sb.WriteString(statusStyle.Render(fmt.Sprintf(" - %s layout", m.layout)))
	sb.WriteString("\n\n")

	sb.WriteString(m.renderBindings())
	sb.WriteString("\n")

	s := m.state
	switch {
	case s.Busy:
		sb.WriteString(busyStyle.Render(fmt.Sprintf("Moving %s...", s.Step)))
	case s.Error != nil:
		sb.WriteString(failStyle.Render(fmt.Sprintf("%s failed: %v", s.Step, s.Error)))
	case s.Moves > 0 && s.Outcome.Success:
		sb.WriteString(successStyle.Render(fmt.Sprintf("%s confirmed", s.Step)))
	case s.Moves > 0:
		sb.WriteString(failStyle.Render(fmt.Sprintf("%s not confirmed", s.Step)))
	default:
		sb.WriteString(statusStyle.Render("Idle"))
	}
	sb.WriteString(statusStyle.Render(fmt.Sprintf("  moves %d, confirmed %d, ignored while busy %d",
		s.Moves, s.Confirmed, s.Dropped)))
	sb.WriteString("\n")

	width := m.width - 4
	if width < 40 {
		width = 40
	}
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(width)

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press 'q' to quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func (m teleopModel) renderBindings() string {
	rows := make([][]string, 0, len(m.bindings))
	for _, b := range m.bindings {
		rows = append(rows, []string{b.Key, b.Step.Motor.String(), b.Step.Direction.String()})
	}

	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Key", "Motor", "Direction").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return tableHeaderStyle
			case col == 0:
				return keyStyle
			default:
				return cellStyle
			}
		}).
		Render()
}

func (c *TeleoperateCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(opts.Verbose, c.LogFile)
	if err != nil {
		return fmt.Errorf("open log %s: %w", c.LogFile, err)
	}
	defer logger.Sync()

	arm, err := openArm(cfg, logger)
	if err != nil {
		return fmt.Errorf("open arm: %w", err)
	}
	defer arm.Close()

	layout := teleop.Layout(c.Layout)
	bindings, err := teleop.Bindings(layout)
	if err != nil {
		return err
	}
	ctrl, err := teleop.NewController(arm, teleop.Config{Layout: layout, Logger: logger})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := ctrl.Start(ctx); err != nil && err != context.Canceled {
			logger.Error("controller stopped", zap.Error(err))
		}
	}()

	p := tea.NewProgram(teleopModel{
		ctrl:     ctrl,
		bindings: bindings,
		layout:   c.Layout,
	}, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run teleoperation UI: %w", err)
	}

	return nil
}
