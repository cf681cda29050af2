package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli"
	"github.com/halfblock/dmg/dmg"
	"github.com/halfblock/dmg/dmg/backend"
	"github.com/halfblock/dmg/dmg/backend/headless"
	"github.com/halfblock/dmg/dmg/backend/sdl2"
	"github.com/halfblock/dmg/dmg/backend/terminal"
	"github.com/halfblock/dmg/dmg/events"
	"github.com/halfblock/dmg/dmg/input"
	"github.com/halfblock/dmg/dmg/input/action"
	inputevent "github.com/halfblock/dmg/dmg/input/event"
	"github.com/halfblock/dmg/dmg/memory"
	"github.com/halfblock/dmg/dmg/render"
	"github.com/halfblock/dmg/dmg/timing"
)

func main() {
	app := cli.NewApp()
	app.Name = "dmg"
	app.Description = "A simple gameboy emulator"
	app.Usage = "dmg [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run the emulator without a graphical interface",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode (required for headless)",
			Value: 0,
		},
		cli.BoolFlag{
			Name:  "test-pattern",
			Usage: "Display a test pattern instead of emulation (for debugging display)",
		},
		cli.IntFlag{
			Name:  "snapshot-interval",
			Usage: "Save frame snapshots every N frames in headless mode (0 = disabled)",
			Value: 0,
		},
		cli.StringFlag{
			Name:  "snapshot-dir",
			Usage: "Directory to save frame snapshots (default: temp directory)",
		},
		cli.BoolFlag{
			Name:  "event-driven",
			Usage: "Use event-driven emulation for cycle-accurate timing (experimental)",
		},
		cli.StringFlag{
			Name:  "backend",
			Usage: "Display backend to use for interactive mode: terminal or sdl2",
			Value: "terminal",
		},
		cli.IntFlag{
			Name:  "scale",
			Usage: "Pixel scale factor (sdl2 backend only)",
			Value: 4,
		},
		cli.BoolFlag{
			Name:  "fullscreen",
			Usage: "Run in fullscreen (sdl2 backend only)",
		},
		cli.BoolFlag{
			Name:  "show-debug",
			Usage: "Show the debug overlay/window on startup",
		},
	}
	app.Action = runEmulator

	err := app.Run(os.Args)
	if err != nil {
		slog.Error("Error running emulator", "error", err)
		os.Exit(1)
	}
}

func runEmulator(c *cli.Context) error {
	// Test pattern mode - no ROM needed
	if c.Bool("test-pattern") {
		slog.Info("Running in test pattern mode")
		return render.RunTestPattern()
	}

	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() > 0 {
			romPath = c.Args().Get(0)
		} else {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
	}

	if c.Bool("headless") {
		frames := c.Int("frames")
		if frames <= 0 {
			return errors.New("headless mode requires --frames option with a positive value")
		}

		snapshotInterval := c.Int("snapshot-interval")
		snapCfg, err := headless.CreateSnapshotConfig(snapshotInterval, c.String("snapshot-dir"), romPath)
		if err != nil {
			return err
		}

		// Set up debug logging for headless mode
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
		logger := slog.New(handler)
		slog.SetDefault(logger)

		eventDriven := c.Bool("event-driven")

		slog.Info("Running headless mode", "frames", frames, "snapshot_interval", snapshotInterval, "snapshot_dir", snapCfg.Directory, "event_driven", eventDriven)

		if eventDriven {
			// Use event-driven emulation
			romName := filepath.Base(romPath)
			romName = strings.TrimSuffix(romName, filepath.Ext(romName))
			return runEventDrivenHeadless(romPath, frames, snapshotInterval, snapCfg.Directory, romName)
		}

		emu, err := dmg.NewWithFile(romPath)
		if err != nil {
			return err
		}
		emu.SetFrameLimiter(nil)

		b := headless.New(frames, snapCfg)
		return runBackendLoop(emu, b, backend.BackendConfig{
			Title: "dmg headless",
		})
	}

	// Interactive mode
	emu, err := dmg.NewWithFile(romPath)
	if err != nil {
		return err
	}
	emu.SetFrameLimiter(timing.NewAdaptiveLimiter())

	var b backend.Backend
	switch c.String("backend") {
	case "sdl2":
		b = sdl2.New()
	case "terminal":
		b = terminal.New()
	default:
		return fmt.Errorf("unknown backend %q (expected terminal or sdl2)", c.String("backend"))
	}

	return runBackendLoop(emu, b, backend.BackendConfig{
		Title:         "dmg",
		Scale:         c.Int("scale"),
		Fullscreen:    c.Bool("fullscreen"),
		ShowDebug:     c.Bool("show-debug"),
		DebugProvider: emu,
	})
}

// runBackendLoop drives the emulator through a backend until the backend
// signals quit (window close, Escape key, headless frame budget reached).
// Debounced non-gameplay actions (snapshot, debug toggle, ...) are routed to
// the backend; gameplay and debugger actions are routed to the emulator.
func runBackendLoop(emu *dmg.Emulator, b backend.Backend, cfg backend.BackendConfig) error {
	if err := b.Init(cfg); err != nil {
		return err
	}
	defer b.Cleanup()

	debouncer := input.NewHandler()

	for {
		if err := emu.RunUntilFrame(); err != nil {
			return err
		}

		events, err := b.Update(emu.GetCurrentFrame())
		if err != nil {
			return err
		}

		for _, evt := range events {
			if !debouncer.ProcessEvent(evt) {
				continue
			}
			if evt.Action == action.EmulatorQuit {
				return nil
			}
			switch action.GetInfo(evt.Action).Category {
			case action.CategoryGameInput, action.CategoryEmulator:
				emu.HandleAction(evt.Action, evt.Type != inputevent.Release)
			default:
				if evt.Type != inputevent.Release {
					b.HandleAction(evt.Action)
				}
			}
		}
	}
}

// runEventDrivenHeadless runs the event-driven emulator in headless mode
func runEventDrivenHeadless(romPath string, frames, snapshotInterval int, snapshotDir, romName string) error {
	// Load ROM data
	data, err := os.ReadFile(romPath)
	if err != nil {
		return err
	}

	// Create memory management unit with ROM data
	cart, err := memory.NewCartridgeWithData(data)
	if err != nil {
		return err
	}
	mmu := memory.NewWithCartridge(cart)

	// Create event-driven emulator
	emu := events.NewEventDrivenEmulator(mmu)

	slog.Info("Starting event-driven emulator", "rom", romPath)

	// Track snapshots saved
	snapshotsToSave := make(map[int]string)
	if snapshotInterval > 0 {
		for i := snapshotInterval; i <= frames; i += snapshotInterval {
			snapshotPath := filepath.Join(snapshotDir, fmt.Sprintf("%s_frame_%d.txt", romName, i))
			snapshotsToSave[i] = snapshotPath
		}
	}

	// Run emulation with periodic snapshot saves
	go func() {
		// Monitor frame progress and save snapshots
		lastFrameCount := uint64(0)

		for {
			currentFrameCount := emu.GetFrameCount()

			if currentFrameCount != lastFrameCount {
				// Frame completed
				frameNum := int(currentFrameCount)

				// Save snapshot if needed
				if snapshotPath, shouldSave := snapshotsToSave[frameNum]; shouldSave {
					if err := saveFrameSnapshotEventDriven(emu, snapshotPath); err != nil {
						slog.Error("Failed to save snapshot", "frame", frameNum, "path", snapshotPath, "error", err)
					} else {
						slog.Info("Saved frame snapshot", "frame", frameNum, "path", snapshotPath)
					}
				}

				// Log progress
				if frameNum%10 == 0 {
					slog.Info("Frame progress", "completed", frameNum, "total", frames)
				}

				lastFrameCount = currentFrameCount
			}

			// Check if emulation is complete
			if currentFrameCount >= uint64(frames) {
				emu.Stop()
				break
			}

			// Brief pause to avoid busy waiting
			// time.Sleep(time.Millisecond) // Uncomment if needed
		}
	}()

	// Run the event loop (this will block until completion)
	emu.RunEventLoop(frames)

	slog.Info("Event-driven emulation completed",
		"frames", emu.GetFrameCount(),
		"instructions", emu.GetInstructionCount(),
		"events", emu.GetEventCount())

	return nil
}

// saveFrameSnapshotEventDriven saves a frame snapshot from event-driven emulator using half-blocks
func saveFrameSnapshotEventDriven(emu *events.EventDrivenEmulator, filename string) error {
	fb := emu.GetCurrentFrame()
	frame := fb.ToSlice()

	// Create output directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %v", err)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %v", err)
	}
	defer file.Close()

	// Write header
	fmt.Fprintf(file, "# Game Boy Frame Snapshot (Half-Block Rendering)\n")
	fmt.Fprintf(file, "# Frame: %d, Instructions: %d\n", emu.GetFrameCount(), emu.GetInstructionCount())
	fmt.Fprintf(file, "# Resolution: 160x144 pixels -> 160x72 text rows\n")
	fmt.Fprintf(file, "# Characters: ▀ ▄ █ (upper half, lower half, full block)\n")
	fmt.Fprintf(file, "#\n")

	// Use shared rendering utility to convert to half-blocks
	lines := render.RenderFrameToHalfBlocks(frame, 160, 144)

	// Write the rendered lines
	for _, line := range lines {
		fmt.Fprintf(file, "%s\n", line)
	}

	return nil
}
