package robot

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	yml "gopkg.in/yaml.v2"

	"github.com/reach-rig/reach/pkg/loadcell"
	"github.com/reach-rig/reach/pkg/motion"
	"github.com/reach-rig/reach/pkg/roboclaw"
)

const DefaultConfigFile = "reach.yaml"

// Load cell sources.
const (
	SourceSimulated = "simulated"
	SourceNone      = "none"
)

// Config holds the rig configuration
type Config struct {
	Board1    BoardConfig    `koanf:"board1" yaml:"board1"`
	Board2    BoardConfig    `koanf:"board2" yaml:"board2"`
	Motion    MotionConfig   `koanf:"motion" yaml:"motion"`
	Verify    VerifyConfig   `koanf:"verify" yaml:"verify"`
	LoadCells LoadCellConfig `koanf:"loadcells" yaml:"loadcells"`
	Sweep     SweepConfig    `koanf:"sweep" yaml:"sweep"`
}

// BoardConfig holds the serial connection of one motor controller
type BoardConfig struct {
	Port    string `koanf:"port" yaml:"port"`
	Baud    int    `koanf:"baud" yaml:"baud"`
	Address uint8  `koanf:"address" yaml:"address"`
	Retries int    `koanf:"retries" yaml:"retries"`
}

// MotionConfig is the move profile applied to every motor.
type MotionConfig struct {
	Speed    int32  `koanf:"speed" yaml:"speed"`
	Accel    int32  `koanf:"accel" yaml:"accel"`
	Distance uint32 `koanf:"distance" yaml:"distance"`
	Buffer   string `koanf:"buffer" yaml:"buffer"`
}

// VerifyConfig holds move verification timing, in milliseconds.
type VerifyConfig struct {
	SettleMS  int   `koanf:"settle_ms" yaml:"settle_ms"`
	MoveMS    int   `koanf:"move_ms" yaml:"move_ms"`
	BackoffMS int   `koanf:"backoff_ms" yaml:"backoff_ms"`
	Threshold int64 `koanf:"threshold" yaml:"threshold"`
	Retries   int   `koanf:"retries" yaml:"retries"`
}

// LoadCellConfig selects the load cell source and its calibration.
type LoadCellConfig struct {
	Source          string      `koanf:"source" yaml:"source"`
	AttachTimeoutMS int         `koanf:"attach_timeout_ms" yaml:"attach_timeout_ms"`
	CSV             string      `koanf:"csv" yaml:"csv"`
	Channels        Calibration `koanf:"channels" yaml:"channels"`
}

// SweepConfig holds sweep pacing.
type SweepConfig struct {
	Steps   int `koanf:"steps" yaml:"steps"`
	DwellMS int `koanf:"dwell_ms" yaml:"dwell_ms"`
	PauseMS int `koanf:"pause_ms" yaml:"pause_ms"`
}

// DefaultConfig returns the configuration of the rig as built.
func DefaultConfig() Config {
	p := motion.DefaultProfile()
	return Config{
		Board1: BoardConfig{Port: "/dev/ttyACM0", Baud: roboclaw.DefaultBaud, Address: 0x80, Retries: roboclaw.DefaultRetries},
		Board2: BoardConfig{Port: "/dev/ttyACM1", Baud: roboclaw.DefaultBaud, Address: 0x81, Retries: roboclaw.DefaultRetries},
		Motion: MotionConfig{
			Speed:    p.Speed,
			Accel:    p.Accel,
			Distance: p.Distance,
			Buffer:   "immediate",
		},
		Verify: VerifyConfig{
			SettleMS:  int(motion.DefaultSettle / time.Millisecond),
			MoveMS:    int(motion.DefaultMoveWait / time.Millisecond),
			BackoffMS: int(motion.DefaultBackoff / time.Millisecond),
			Threshold: motion.DefaultThreshold,
			Retries:   motion.DefaultRetries,
		},
		LoadCells: LoadCellConfig{
			Source:          SourceNone,
			AttachTimeoutMS: int(loadcell.DefaultAttachTimeout / time.Millisecond),
			CSV:             "reach_load_cell.csv",
			Channels:        DefaultCalibration(),
		},
		Sweep: SweepConfig{Steps: 5, DwellMS: 3000, PauseMS: 3000},
	}
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom layers a YAML file over DefaultConfig and validates the result.
func LoadConfigFrom(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := yml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}

// Validate reports every problem with the configuration.
func (c *Config) Validate() error {
	var err error
	for _, b := range []struct {
		name string
		cfg  BoardConfig
	}{{"board1", c.Board1}, {"board2", c.Board2}} {
		if b.cfg.Port == "" {
			err = multierr.Append(err, fmt.Errorf("%s: no serial port", b.name))
		}
		if b.cfg.Address < 0x80 || b.cfg.Address > 0x87 {
			err = multierr.Append(err, fmt.Errorf("%s: address %#x outside 0x80-0x87", b.name, b.cfg.Address))
		}
		if b.cfg.Baud < 0 {
			err = multierr.Append(err, fmt.Errorf("%s: negative baud rate", b.name))
		}
	}

	if c.Motion.Speed < 0 || c.Motion.Accel < 0 {
		err = multierr.Append(err, errors.New("motion: speed and accel are magnitudes and must not be negative"))
	}
	if _, perr := parseBuffer(c.Motion.Buffer); perr != nil {
		err = multierr.Append(err, perr)
	}

	if c.Verify.SettleMS < 0 || c.Verify.MoveMS < 0 || c.Verify.BackoffMS < 0 {
		err = multierr.Append(err, errors.New("verify: durations must not be negative"))
	}
	if c.Verify.Retries < 1 {
		err = multierr.Append(err, fmt.Errorf("verify: retries must be at least 1, got %d", c.Verify.Retries))
	}
	if c.Verify.Threshold < 0 {
		err = multierr.Append(err, errors.New("verify: threshold must not be negative"))
	}

	switch c.LoadCells.Source {
	case SourceNone, SourceSimulated:
	default:
		err = multierr.Append(err, fmt.Errorf("loadcells: unknown source %q", c.LoadCells.Source))
	}
	if c.LoadCells.Source == SourceSimulated || len(c.LoadCells.Channels) > 0 {
		if len(c.LoadCells.Channels) != 4 {
			err = multierr.Append(err, fmt.Errorf("loadcells: want 4 channels, got %d", len(c.LoadCells.Channels)))
		}
		for i, ch := range c.LoadCells.Channels {
			if ch.Gain == 0 {
				err = multierr.Append(err, fmt.Errorf("loadcells: channel %d has zero gain", i))
			}
		}
	}
	if c.LoadCells.AttachTimeoutMS < 0 {
		err = multierr.Append(err, errors.New("loadcells: attach timeout must not be negative"))
	}

	if c.Sweep.Steps < 1 {
		err = multierr.Append(err, fmt.Errorf("sweep: steps must be at least 1, got %d", c.Sweep.Steps))
	}
	if c.Sweep.DwellMS < 0 || c.Sweep.PauseMS < 0 {
		err = multierr.Append(err, errors.New("sweep: durations must not be negative"))
	}
	return err
}

// Profile returns the move profile.
func (c *Config) Profile() (motion.Profile, error) {
	buf, err := parseBuffer(c.Motion.Buffer)
	if err != nil {
		return motion.Profile{}, err
	}
	return motion.Profile{
		Speed:    c.Motion.Speed,
		Accel:    c.Motion.Accel,
		Distance: c.Motion.Distance,
		Buffer:   buf,
	}, nil
}

// VerifierConfig returns the verifier settings.
func (c *Config) VerifierConfig(clk clock.Clock, logger *zap.Logger) motion.VerifierConfig {
	return motion.VerifierConfig{
		Settle:    ms(c.Verify.SettleMS),
		MoveWait:  ms(c.Verify.MoveMS),
		Backoff:   ms(c.Verify.BackoffMS),
		Threshold: c.Verify.Threshold,
		Retries:   c.Verify.Retries,
		Clock:     clk,
		Logger:    logger,
	}
}

// LoadCellSource returns the load cell source to open. Simulated boards get
// simulated load cells; a simulated source on real boards is refused so made
// up forces never land next to real moves.
func (c *Config) LoadCellSource(simulatedBoards bool) (string, error) {
	if simulatedBoards {
		if len(c.LoadCells.Channels) == 0 {
			return "", errors.New("loadcells: no channel calibration to simulate")
		}
		return SourceSimulated, nil
	}
	if c.LoadCells.Source == SourceSimulated {
		return "", errors.New("loadcells: simulated source needs simulated boards (--sim); set source to none on the rig")
	}
	return c.LoadCells.Source, nil
}

// AttachTimeout returns the load cell attach timeout.
func (c *Config) AttachTimeout() time.Duration {
	if c.LoadCells.AttachTimeoutMS == 0 {
		return loadcell.DefaultAttachTimeout
	}
	return ms(c.LoadCells.AttachTimeoutMS)
}

// Dwell returns the wait after each sweep move.
func (c *Config) Dwell() time.Duration {
	return ms(c.Sweep.DwellMS)
}

// Pause returns the wait after each sweep segment.
func (c *Config) Pause() time.Duration {
	return ms(c.Sweep.PauseMS)
}

func (b BoardConfig) roboclaw() roboclaw.Config {
	return roboclaw.Config{
		Port:    b.Port,
		Baud:    b.Baud,
		Retries: b.Retries,
	}
}

func parseBuffer(s string) (motion.Buffer, error) {
	switch s {
	case "", "immediate":
		return motion.Immediate, nil
	case "buffered":
		return motion.Buffered, nil
	}
	return 0, fmt.Errorf("motion: unknown buffer mode %q (want immediate or buffered)", s)
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
