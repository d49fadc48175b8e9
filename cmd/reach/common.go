package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/reach-rig/reach/pkg/loadcell"
	"github.com/reach-rig/reach/pkg/robot"
)

const simulatedRatePeriod = 20 * time.Millisecond

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// newLogger logs to the given paths; the TUI passes a file so output does
// not tear the screen.
func newLogger(verbose bool, paths ...string) (*zap.Logger, error) {
	if len(paths) == 0 {
		paths = []string{"stderr"}
	}
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(level),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       paths,
		ErrorOutputPaths:  paths,
	}.Build()
}

var errNoConfig = errors.New("no configuration found, run 'reach setup' first")

// exitError carries a process exit status out of a command, so the
// command's deferred cleanup runs before main exits.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// loadConfig loads opts.Config. With --sim a missing file falls back to the
// defaults; any other problem with the file is reported.
func loadConfig() (*robot.Config, error) {
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if err == nil {
		return cfg, nil
	}
	if _, serr := os.Stat(opts.Config); os.IsNotExist(serr) {
		if opts.Sim {
			d := robot.DefaultConfig()
			return &d, nil
		}
		return nil, errNoConfig
	}
	return nil, err
}

func openArm(cfg *robot.Config, logger *zap.Logger) (*robot.Arm, error) {
	if opts.Sim {
		logger.Info("using simulated boards")
		return robot.NewSimulatedArm(cfg, clock.New(), logger)
	}
	return robot.NewArm(cfg, clock.New(), logger)
}

// openLoadCells attaches the load cells selected by cfg and --sim and
// returns the source it used. The bank is nil when load cells are disabled.
func openLoadCells(ctx context.Context, cfg *robot.Config, clk clock.Clock, logger *zap.Logger) (*loadcell.Bank, string, error) {
	source, err := cfg.LoadCellSource(opts.Sim)
	if err != nil {
		return nil, "", err
	}
	if source == robot.SourceNone {
		return nil, source, nil
	}

	cal := cfg.LoadCells.Channels
	channels := make([]loadcell.Channel, len(cal))
	for i, c := range cal {
		channels[i] = loadcell.NewSimulated(i, c.Ratio(0), simulatedRatePeriod, clk)
	}

	bank := loadcell.NewBank(channels, cal, clk, logger.Named("loadcell"))
	if err := bank.Open(ctx, cfg.AttachTimeout()); err != nil {
		return nil, "", fmt.Errorf("attach load cells: %w", err)
	}
	return bank, source, nil
}

// recordingNote describes where forces go, flagging simulated data.
func recordingNote(source, path string) string {
	if source == robot.SourceSimulated {
		return failStyle.Render("SIMULATED load cells") + fmt.Sprintf(": recording synthetic forces to %s", path)
	}
	return fmt.Sprintf("Recording forces to %s", path)
}

// interruptContext is cancelled on SIGINT or SIGTERM.
func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
