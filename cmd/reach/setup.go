package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"go.uber.org/zap"

	"github.com/reach-rig/reach/pkg/roboclaw"
	"github.com/reach-rig/reach/pkg/robot"
)

type SetupCommand struct {
	Baud int `long:"baud" default:"230400" description:"Baud rate to probe with"`
}

type boardInfo struct {
	port    string
	address uint8
	version string
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("REACH Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━"))
	fmt.Println()

	logger, err := newLogger(opts.Verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg := robot.DefaultConfig()
	if existing, err := robot.LoadConfigFrom(opts.Config); err == nil {
		cfg = *existing
	}

	fmt.Println("Scanning for motor controllers...")
	fmt.Println()

	boards := findBoards(c.Baud, logger)
	if len(boards) < 2 {
		fmt.Printf("Found %d motor controller(s), the arm needs two.\n", len(boards))
		fmt.Println("Make sure both boards are connected over USB and powered on.")
		return fmt.Errorf("found %d motor controller(s), need 2", len(boards))
	}

	fmt.Printf("Found %d motor controllers. Let's assign them...\n\n", len(boards))

	b1, ok := askBoard("Which controller drives motors 1 and 2?", "Board 1 (motor 1 on M2, motor 2 on M1)", boards)
	if !ok {
		return nil
	}
	rest := make([]boardInfo, 0, len(boards)-1)
	for _, b := range boards {
		if b.port != b1.port {
			rest = append(rest, b)
		}
	}
	b2, ok := askBoard("Which controller drives motors 3 and 4?", "Board 2 (motor 3 on M1, motor 4 on M2)", rest)
	if !ok {
		return nil
	}

	cfg.Board1.Port, cfg.Board1.Address, cfg.Board1.Baud = b1.port, b1.address, c.Baud
	cfg.Board2.Port, cfg.Board2.Address, cfg.Board2.Baud = b2.port, b2.address, c.Baud

	if err := cfg.SaveTo(opts.Config); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("  Board 1: %s @ %#x\n", b1.port, b1.address)
	fmt.Printf("  Board 2: %s @ %#x\n", b2.port, b2.address)
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Check the motors with: " + headerStyle.Render("reach probe"))

	return nil
}

// findBoards asks every serial port for a firmware version at the
// addresses the rig uses.
func findBoards(baud int, logger *zap.Logger) []boardInfo {
	ports, err := roboclaw.Ports()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return nil
	}

	var boards []boardInfo
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}

		link, err := roboclaw.Open(roboclaw.Config{Port: port, Baud: baud, Retries: -1}, logger)
		if err != nil {
			logger.Debug("skipping port", zap.String("port", port), zap.Error(err))
			continue
		}

		for _, addr := range []uint8{0x80, 0x81} {
			ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			version, err := link.ReadVersion(ctx, addr)
			cancel()
			if err != nil {
				continue
			}
			fmt.Printf("  Found %s on %s @ %#x\n", version, port, addr)
			boards = append(boards, boardInfo{port: port, address: addr, version: version})
			break
		}
		link.Close()
	}
	return boards
}

func askBoard(title, description string, boards []boardInfo) (boardInfo, bool) {
	options := make([]huh.Option[int], 0, len(boards)+1)
	for i, b := range boards {
		options = append(options, huh.NewOption(fmt.Sprintf("%s @ %#x (%s)", b.port, b.address, b.version), i))
	}
	options = append(options, huh.NewOption("Cancel setup", -1))

	var choice int
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title(title).
				Description(description).
				Options(options...).
				Value(&choice),
		),
	)

	if err := form.Run(); err != nil {
		fmt.Println()
		return boardInfo{}, false
	}
	if choice < 0 {
		return boardInfo{}, false
	}
	return boards[choice], true
}
