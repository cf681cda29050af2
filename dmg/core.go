package dmg

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/halfblock/dmg/dmg/addr"
	"github.com/halfblock/dmg/dmg/cpu"
	"github.com/halfblock/dmg/dmg/debug"
	"github.com/halfblock/dmg/dmg/input/action"
	"github.com/halfblock/dmg/dmg/memory"
	"github.com/halfblock/dmg/dmg/timing"
	"github.com/halfblock/dmg/dmg/video"
)

// DebuggerState represents the current debugger mode
type DebuggerState int

const (
	DebuggerRunning   DebuggerState = iota // Normal execution
	DebuggerPaused                         // Paused, waiting for commands
	DebuggerStep                           // Execute one instruction then pause
	DebuggerStepFrame                      // Execute one frame then pause
)

// Emulator represents the root struct and entry point for running the emulation
type Emulator struct {
	cpu *cpu.CPU
	gpu *video.GPU
	mem *memory.MMU

	// Debugger state
	debuggerState    DebuggerState
	debuggerMutex    sync.RWMutex
	stepRequested    bool
	frameRequested   bool
	instructionCount uint64
	frameCount       uint64

	// Completion detection, used by test harnesses driving ROMs (such as
	// Blargg's test suite) that signal done-ness by looping forever at a
	// fixed PC rather than halting.
	completionMaxFrames    uint64
	completionMinLoopCount int

	limiter timing.Limiter
}

func (e *Emulator) init(mem *memory.MMU) {
	e.cpu = cpu.New(mem)
	e.gpu = video.NewGpu(mem)
	e.mem = mem
	e.limiter = timing.NewNoOpLimiter()
	mem.SetTimerSeed(0xABCC)
}

// New creates a new emulator instance
func New() *Emulator {
	e := &Emulator{}
	e.init(memory.NewWithCartridge(memory.NewCartridge()))

	return e
}

// NewTestPatternEmulator creates an emulator with no cartridge inserted, for
// exercising backends and rendering pipelines without a ROM to boot.
func NewTestPatternEmulator() *Emulator {
	return New()
}

// NewWithFile creates a new emulator instance and loads the file specified into it.
func NewWithFile(path string) (*Emulator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	slog.Debug("Loaded ROM data", "size", len(data))

	cart, err := memory.NewCartridgeWithData(data)
	if err != nil {
		return nil, fmt.Errorf("loading cartridge: %w", err)
	}
	if !cart.VerifyHeaderChecksum() {
		slog.Warn("cartridge header checksum mismatch, loading anyway", "title", cart.Title())
	}

	e := &Emulator{}
	e.init(memory.NewWithCartridge(cart))

	return e, nil
}

func (e *Emulator) RunUntilFrame() error {
	e.debuggerMutex.RLock()
	state := e.debuggerState
	e.debuggerMutex.RUnlock()

	// Handle paused state - don't execute anything
	if state == DebuggerPaused {
		return nil
	}

	// Handle step instruction - execute one instruction then pause
	if state == DebuggerStep {
		e.debuggerMutex.Lock()
		if e.stepRequested {
			e.stepRequested = false
			e.debuggerMutex.Unlock()

			// Execute one CPU instruction
			oldPC := e.cpu.GetPC()
			cycles := e.cpu.Tick()
			e.mem.Tick(cycles)
			e.gpu.Tick(cycles)
			e.instructionCount++

			// Log the executed instruction
			slog.Debug("Step executed", "pc", fmt.Sprintf("0x%04X", oldPC), "new_pc", fmt.Sprintf("0x%04X", e.cpu.GetPC()))

			// Pause after execution
			e.SetDebuggerState(DebuggerPaused)
		} else {
			e.debuggerMutex.Unlock()
		}
		return nil
	}

	// Handle step frame - execute one frame then pause
	if state == DebuggerStepFrame {
		e.debuggerMutex.Lock()
		frameRequested := e.frameRequested
		if frameRequested {
			e.frameRequested = false
		}
		e.debuggerMutex.Unlock()

		if frameRequested {
			// Execute one full frame
			total := 0
			for {
				cycles := e.cpu.Tick()
				e.mem.Tick(cycles)
				e.gpu.Tick(cycles)
				e.instructionCount++
				total += cycles

				if total >= timing.CyclesPerFrame {
					break
				}
			}
			e.frameCount++
			slog.Debug("Frame step completed", "frame", e.frameCount, "instructions", e.instructionCount)
			e.SetDebuggerState(DebuggerPaused)
		}
		return nil
	}

	// Normal execution (DebuggerRunning)
	total := 0
	for {
		cycles := e.cpu.Tick()
		e.mem.Tick(cycles)
		e.gpu.Tick(cycles)
		e.instructionCount++

		total += cycles

		if total >= timing.CyclesPerFrame {
			e.frameCount++
			// Log every 60 frames (once per second at 60 FPS) only when running
			if e.frameCount%60 == 0 {
				slog.Debug("Frame completed", "frame", e.frameCount, "pc", fmt.Sprintf("0x%04X", e.cpu.GetPC()))
			}
			e.limiter.WaitForNextFrame()
			return nil
		}
	}
}

// SetFrameLimiter installs the pacing strategy used to throttle RunUntilFrame
// to real time. A nil limiter disables pacing entirely.
func (e *Emulator) SetFrameLimiter(limiter timing.Limiter) {
	if limiter == nil {
		limiter = timing.NewNoOpLimiter()
	}
	e.limiter = limiter
}

// ResetFrameTiming clears any accumulated pacing state, used after a pause
// so the next frame isn't rushed to catch up.
func (e *Emulator) ResetFrameTiming() {
	e.limiter.Reset()
}

// ExtractDebugData snapshots CPU, memory, OAM and VRAM state for debug
// displays. The memory window is centered on PC so callers can disassemble
// around the current instruction. Returns nil when the emulator has no CPU
// or memory attached.
func (e *Emulator) ExtractDebugData() *debug.CompleteDebugData {
	if e.cpu == nil || e.mem == nil {
		return nil
	}
	pc := e.cpu.GetPC()
	ly := e.mem.Read(addr.LY)
	spriteHeight := 8
	if e.mem.ReadBit(2, addr.LCDC) {
		spriteHeight = 16
	}

	const windowBefore = 32
	const windowAfter = 32
	start := pc - windowBefore
	if pc < windowBefore {
		start = 0
	}
	length := windowBefore + windowAfter
	memBytes := make([]uint8, 0, length)
	for i := 0; i < length; i++ {
		memBytes = append(memBytes, e.mem.Read(start+uint16(i)))
	}

	return &debug.CompleteDebugData{
		OAM: debug.ExtractOAMData(e.mem, int(ly), spriteHeight),
		VRAM: debug.ExtractVRAMData(e.mem),
		CPU: &debug.CPUState{
			A: e.cpu.GetA(), F: e.cpu.GetF(),
			B: e.cpu.GetB(), C: e.cpu.GetC(),
			D: e.cpu.GetD(), E: e.cpu.GetE(),
			H: e.cpu.GetH(), L: e.cpu.GetL(),
			SP: e.cpu.GetSP(), PC: pc,
			IME:    e.cpu.IME(),
			Cycles: e.instructionCount,
		},
		Memory:          &debug.MemorySnapshot{StartAddr: start, Bytes: memBytes},
		DebuggerState:   e.debugDataState(),
		InterruptEnable: e.mem.Read(addr.IE),
		InterruptFlags:  e.mem.Read(addr.IF),
		SpriteVis:       debug.ExtractSpriteData(e.mem, ly),
		BackgroundVis:   debug.ExtractBackgroundData(e.mem),
		PaletteVis:      debug.ExtractPaletteData(e.mem),
	}
}

func (e *Emulator) debugDataState() debug.DebuggerState {
	switch e.GetDebuggerState() {
	case DebuggerPaused:
		return debug.DebuggerPaused
	case DebuggerStep:
		return debug.DebuggerStepInstruction
	case DebuggerStepFrame:
		return debug.DebuggerStepFrame
	default:
		return debug.DebuggerRunning
	}
}

// ConfigureCompletionDetection sets the bounds RunUntilComplete uses to
// decide a ROM has finished: run at most maxFrames frames, and consider the
// machine done once PC has stopped advancing for minLoopCount consecutive
// frame boundaries.
func (e *Emulator) ConfigureCompletionDetection(maxFrames uint64, minLoopCount int) {
	e.completionMaxFrames = maxFrames
	e.completionMinLoopCount = minLoopCount
}

// RunUntilComplete runs frames until the completion-detection bounds
// configured via ConfigureCompletionDetection are met.
func (e *Emulator) RunUntilComplete() {
	maxFrames := e.completionMaxFrames
	if maxFrames == 0 {
		maxFrames = 1
	}
	minLoopCount := e.completionMinLoopCount
	if minLoopCount <= 0 {
		minLoopCount = 1
	}

	var lastPC uint16
	repeats := 0
	for e.frameCount < maxFrames {
		e.RunUntilFrame()

		pc := e.cpu.GetPC()
		if pc == lastPC {
			repeats++
			if repeats >= minLoopCount {
				return
			}
		} else {
			repeats = 0
			lastPC = pc
		}
	}
}

// HandleAction routes a platform-independent input action to the joypad or
// debugger. pressed distinguishes a key-down from a key-up event; only
// Game Boy button actions care about the release edge.
func (e *Emulator) HandleAction(act action.Action, pressed bool) {
	if key, ok := joypadKeyForAction(act); ok {
		if pressed {
			e.HandleKeyPress(key)
		} else {
			e.HandleKeyRelease(key)
		}
		return
	}

	if !pressed {
		return
	}

	switch act {
	case action.EmulatorPauseToggle:
		if e.GetDebuggerState() == DebuggerPaused {
			e.DebuggerResume()
		} else {
			e.DebuggerPause()
		}
	case action.EmulatorStepInstruction:
		e.DebuggerStepInstruction()
	case action.EmulatorStepFrame:
		e.DebuggerStepFrame()
	}
}

func joypadKeyForAction(act action.Action) (memory.JoypadKey, bool) {
	switch act {
	case action.GBButtonA:
		return memory.JoypadA, true
	case action.GBButtonB:
		return memory.JoypadB, true
	case action.GBButtonStart:
		return memory.JoypadStart, true
	case action.GBButtonSelect:
		return memory.JoypadSelect, true
	case action.GBDPadUp:
		return memory.JoypadUp, true
	case action.GBDPadDown:
		return memory.JoypadDown, true
	case action.GBDPadLeft:
		return memory.JoypadLeft, true
	case action.GBDPadRight:
		return memory.JoypadRight, true
	default:
		return 0, false
	}
}

func (e *Emulator) GetCurrentFrame() *video.FrameBuffer {
	return e.gpu.GetFrameBuffer()
}

func (e *Emulator) HandleKeyPress(key memory.JoypadKey) {
	e.mem.HandleKeyPress(key)
}

func (e *Emulator) HandleKeyRelease(key memory.JoypadKey) {
	e.mem.HandleKeyRelease(key)
}

func (e *Emulator) GetCPU() *cpu.CPU {
	return e.cpu
}

// Debugger control methods
func (e *Emulator) SetDebuggerState(state DebuggerState) {
	e.debuggerMutex.Lock()
	defer e.debuggerMutex.Unlock()
	e.debuggerState = state
	slog.Debug("Debugger state changed", "state", state)
}

func (e *Emulator) GetDebuggerState() DebuggerState {
	e.debuggerMutex.RLock()
	defer e.debuggerMutex.RUnlock()
	return e.debuggerState
}

func (e *Emulator) DebuggerPause() {
	e.SetDebuggerState(DebuggerPaused)
	slog.Info("Emulator paused")
}

func (e *Emulator) DebuggerResume() {
	e.SetDebuggerState(DebuggerRunning)
	slog.Info("Emulator resumed")
}

func (e *Emulator) DebuggerStepInstruction() {
	e.debuggerMutex.Lock()
	defer e.debuggerMutex.Unlock()
	e.stepRequested = true
	e.debuggerState = DebuggerStep
	slog.Info("Step instruction requested")
}

func (e *Emulator) DebuggerStepFrame() {
	e.debuggerMutex.Lock()
	defer e.debuggerMutex.Unlock()
	e.frameRequested = true
	e.debuggerState = DebuggerStepFrame
	slog.Info("Step frame requested")
}

func (e *Emulator) GetInstructionCount() uint64 {
	return e.instructionCount
}

func (e *Emulator) GetFrameCount() uint64 {
	return e.frameCount
}

func (e *Emulator) GetMMU() *memory.MMU {
	return e.mem
}

