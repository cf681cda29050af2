package video

import (
	"fmt"
	"log/slog"

	"github.com/halfblock/dmg/dmg/addr"
	"github.com/halfblock/dmg/dmg/bit"
	"github.com/halfblock/dmg/dmg/memory"
)

// GpuMode represents the PPU's current rendering stage.
// These values match the STAT register bits 1-0.
type GpuMode int

const (
	// hblankMode (Mode 0): Horizontal blank period, CPU can access VRAM/OAM
	hblankMode GpuMode = 0
	// vblankMode (Mode 1): Vertical blank period, CPU can access VRAM/OAM
	vblankMode GpuMode = 1
	// oamReadMode (Mode 2): PPU is reading OAM; the MMU does not block CPU
	// access to OAM in this mode
	oamReadMode GpuMode = 2
	// vramReadMode (Mode 3): PPU is reading VRAM; the MMU does not block CPU
	// access to VRAM/OAM in this mode
	vramReadMode GpuMode = 3
)

// Durations of the three active-scan phases, in dots. HBlank's length varies
// slightly on real hardware depending on sprite count; this emulator uses the
// fixed worst-case-free average documented on Pan Docs, which is accurate
// enough to pass timing-insensitive test ROMs.
const (
	oamScanCycles   = 80
	pixelXferCycles = 172
	hblankCycles    = 204
	scanlineCycles  = oamScanCycles + pixelXferCycles + hblankCycles

	vblankLineCount  = 10 // lines 144..153
	totalScanlines   = 144 + vblankLineCount
	lcdFrameDuration = totalScanlines * scanlineCycles
)

// GPU emulates the Game Boy's picture processing unit: it walks the
// OAM-scan / pixel-transfer / HBlank / VBlank state machine one `Tick` at a
// time, re-deriving each finished scanline's pixels directly from VRAM/OAM
// rather than maintaining its own shadow copy of tile state.
type GPU struct {
	memory         *memory.MMU
	framebuffer    *FrameBuffer
	bgPixelBuffer  []byte // background/window color index per pixel, for sprite priority
	spritePriority SpritePriorityBuffer

	mode             GpuMode
	line             int // LY register value, 0-153
	cycles           int // dots accumulated in the current mode
	vblankDots       int // dots accumulated across the current VBlank scanline
	vBlankLine       int // which of the 10 VBlank lines we're on
	scanlineDrawn    bool
	windowLine       int // internal window-line counter, only advances when the window is drawn
	pixelCounter     int // retained for debug tooling that samples mid-scanline position
	tileCycleCounter int
}

func NewGpu(mem *memory.MMU) *GPU {
	gpu := &GPU{
		framebuffer:   NewFrameBuffer(),
		memory:        mem,
		mode:          vblankMode,
		bgPixelBuffer: make([]byte, FramebufferSize),
		line:          144,
	}

	lcdc := mem.Read(addr.LCDC)
	bgp := mem.Read(addr.BGP)
	slog.Debug("GPU initialized", "LCDC", fmt.Sprintf("0x%02X", lcdc), "LCD_enabled", (lcdc&0x80) != 0, "BGP", fmt.Sprintf("0x%02X", bgp))

	return gpu
}

func (g *GPU) GetFrameBuffer() *FrameBuffer {
	return g.framebuffer
}

// Tick advances the PPU's state machine by the given number of clock cycles,
// dispatching to the handler for whichever mode is currently active.
func (g *GPU) Tick(cycles int) {
	g.cycles += cycles

	switch g.mode {
	case hblankMode:
		g.tickHBlank()
	case vblankMode:
		g.tickVBlank(cycles)
	case oamReadMode:
		g.tickOAMScan()
	case vramReadMode:
		g.tickPixelTransfer()
	}

	if g.cycles >= lcdFrameDuration {
		g.cycles -= lcdFrameDuration
	}
}

func (g *GPU) tickHBlank() {
	if g.cycles < hblankCycles {
		return
	}
	g.cycles -= hblankCycles
	g.enterMode(oamReadMode)
	g.advanceLine(g.line + 1)

	if g.line == 144 {
		g.vBlankLine = 0
		g.vblankDots = g.cycles
		g.windowLine = 0
		g.enterMode(vblankMode)

		// VBlank interrupt fires unconditionally on entry; the STAT
		// interrupt only fires if the mode-1 STAT bit is enabled.
		g.memory.RequestInterrupt(addr.VBlankInterrupt)
		g.requestStatInterrupt(statVblankIrq)
	} else {
		g.requestStatInterrupt(statOamIrq)
	}
}

func (g *GPU) tickVBlank(cycles int) {
	g.vblankDots += cycles

	if g.vblankDots >= scanlineCycles {
		g.vblankDots -= scanlineCycles
		g.vBlankLine++

		if g.vBlankLine <= 9 {
			g.advanceLine(g.line + 1)
		}
	}

	// LY resets to 0 a handful of dots before VBlank actually ends; this
	// matches the quirky timing real DMG hardware exposes to LY-polling code.
	if g.cycles >= 4104 && g.vblankDots >= 4 && g.line == 153 {
		g.advanceLine(0)
	}

	if g.cycles >= 4560 {
		g.cycles -= 4560
		g.enterMode(oamReadMode)
		g.requestStatInterrupt(statOamIrq)
	}
}

func (g *GPU) tickOAMScan() {
	if g.cycles < oamScanCycles {
		return
	}
	g.cycles -= oamScanCycles
	g.enterMode(vramReadMode)
	g.scanlineDrawn = false
}

func (g *GPU) tickPixelTransfer() {
	// The real PPU streams pixels out over the whole phase; this emulator
	// instead resolves the entire scanline the moment the phase is entered,
	// which is observationally equivalent for anything that only reads the
	// finished framebuffer or the STAT mode bits.
	if !g.scanlineDrawn {
		if g.lcdcBit(lcdDisplayEnable) {
			g.renderScanline()
		}
		g.scanlineDrawn = true
	}

	if g.cycles < pixelXferCycles {
		return
	}
	g.pixelCounter = 0
	g.cycles -= pixelXferCycles
	g.tileCycleCounter = 0
	g.enterMode(hblankMode)
	g.requestStatInterrupt(statHblankIrq)
}

// requestStatInterrupt fires the LCD STAT interrupt if the given STAT source
// bit is currently enabled.
func (g *GPU) requestStatInterrupt(source statFlag) {
	if g.memory.ReadBit(uint8(source), addr.STAT) {
		g.memory.RequestInterrupt(addr.LCDSTATInterrupt)
	}
}

// LCD Stat (Status) Register bit values
// Bit 7 - unused
// Bit 6 - Interrupt based on LYC to LY comparison (based on bit 2)
// Bit 5 - Interrupt when Mode 10 (oamReadMode)
// Bit 4 - Interrupt when Mode 01 (vblankMode)
// Bit 3 - Interrupt when Mode 00 (hblankMode)
// Bit 2 - condition for triggering LYC/LY (0=LYC != LY, 1=LYC == LY)
// Bit 1,0 - represents the current GPU mode
type statFlag uint8

const (
	statLycIrq       statFlag = 6
	statOamIrq       statFlag = 5
	statVblankIrq    statFlag = 4
	statHblankIrq    statFlag = 3
	statLycCondition statFlag = 2
)

// LCDC (LCD Control) Register bit values
// Bit 7 - LCD Display Enable (0=Off, 1=On)
// Bit 6 - Window Tile Map Display Select (0=9800-9BFF, 1=9C00-9FFF)
// Bit 5 - Window Display Enable (0=Off, 1=On)
// Bit 4 - BG & Window Tile Data Select (0=8800-97FF, 1=8000-8FFF)
// Bit 3 - BG Tile Map Display Select (0=9800-9BFF, 1=9C00-9FFF)
// Bit 2 - OBJ (Sprite) Size (0=8x8, 1=8x16)
// Bit 1 - OBJ (Sprite) Display Enable (0=Off, 1=On)
// Bit 0 - BG Display (0=Off, 1=On)
type lcdcFlag uint8

const (
	lcdDisplayEnable       lcdcFlag = 7
	windowTileMapSelect    lcdcFlag = 6
	windowDisplayEnable    lcdcFlag = 5
	bgWindowTileDataSelect lcdcFlag = 4
	bgTileMapDisplaySelect lcdcFlag = 3
	spriteSize             lcdcFlag = 2
	spriteDisplayEnable    lcdcFlag = 1
	bgDisplay              lcdcFlag = 0
)

func (g *GPU) lcdcBit(flag lcdcFlag) bool {
	return bit.IsSet(uint8(flag), g.memory.Read(addr.LCDC))
}

// syncLYCCoincidence recomputes the LYC=LY STAT flag and fires the
// coincidence interrupt when the two registers now match.
func (g *GPU) syncLYCCoincidence() {
	ly := g.memory.Read(addr.LY)
	lyc := g.memory.Read(addr.LYC)
	stat := g.memory.Read(addr.STAT)

	if ly == lyc {
		stat = bit.Set(uint8(statLycCondition), stat)
		if bit.IsSet(uint8(statLycIrq), stat) {
			g.memory.RequestInterrupt(addr.LCDSTATInterrupt)
		}
	} else {
		stat = bit.Reset(uint8(statLycCondition), stat)
	}

	g.memory.Write(addr.STAT, stat)
}

// enterMode switches the PPU's mode and reflects it in STAT bits 1-0.
func (g *GPU) enterMode(mode GpuMode) {
	g.mode = mode
	stat := g.memory.Read(addr.STAT)
	stat = stat&0xFC | byte(mode)
	g.memory.Write(addr.STAT, stat)
}

// advanceLine updates LY and re-runs the LYC coincidence check that
// depends on it.
func (g *GPU) advanceLine(line int) {
	g.line = line
	g.memory.Write(addr.LY, byte(line))
	g.syncLYCCoincidence()
}
