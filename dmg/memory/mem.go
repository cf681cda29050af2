package memory

import (
	"fmt"
	"log/slog"

	"github.com/halfblock/dmg/dmg/addr"
	"github.com/halfblock/dmg/dmg/bit"
	"github.com/halfblock/dmg/dmg/serial"
)

// busRegion identifies which decode path a high-byte of an address falls
// into. Indexed by address>>8 so the dispatch in Read/Write is a single
// array lookup instead of a chain of range comparisons.
type busRegion uint8

const (
	regionROM busRegion = iota
	regionVRAM
	regionExtRAM
	regionWRAM
	regionEcho
	regionOAM
	regionIO
)

// JoypadKey represents a key on the Gameboy joypad
type JoypadKey uint8

const (
	JoypadRight JoypadKey = iota
	JoypadLeft
	JoypadUp
	JoypadDown
	JoypadA
	JoypadB
	JoypadSelect
	JoypadStart
)

// SerialPort is the minimal interface for a serial device connected to SB/SC.
// Implementations MUST only accept reads/writes to addr.SB and addr.SC.
type SerialPort interface {
	Write(address uint16, value byte)
	Read(address uint16) byte
	Tick(cycles int)
	Reset()
}

// MMU is the Game Boy's address bus: it owns the flat work/video/high RAM
// backing store and routes every CPU/PPU-visible read or write to the
// cartridge, a hardware register handler, or that backing store directly.
type MMU struct {
	cart *Cartridge
	mbc  MBC

	memory []byte
	bus    [256]busRegion

	joypadButtons uint8 // Actual state of buttons A/B/Start/Select, mapped to low bits of P1
	joypadDpad    uint8 // Actual state of d-pad directions, mapped to low bits of P1

	serial SerialPort
	timer  Timer
}

// New creates a memory unit with no cartridge loaded, equivalent to turning
// on a Game Boy with an empty cartridge slot.
func New() *MMU {
	mmu := &MMU{
		memory:        make([]byte, 0x10000),
		cart:          NewCartridge(),
		joypadButtons: 0x0F,
		joypadDpad:    0x0F,
	}
	mmu.serial = serial.NewLogSink(func() { mmu.RequestInterrupt(addr.SerialInterrupt) })
	mmu.timer.TimerInterruptHandler = func() { mmu.RequestInterrupt(addr.TimerInterrupt) }
	mmu.bus = buildBusMap()
	return mmu
}

// buildBusMap precomputes the busRegion for every high byte of a 16-bit
// address, so Read/Write dispatch with a single array index instead of a
// chain of range comparisons on the hot path.
func buildBusMap() [256]busRegion {
	var bus [256]busRegion
	fill := func(region busRegion, lo, hi int) {
		for i := lo; i <= hi; i++ {
			bus[i] = region
		}
	}
	fill(regionROM, 0x00, 0x7F)
	fill(regionVRAM, 0x80, 0x9F)
	fill(regionExtRAM, 0xA0, 0xBF)
	fill(regionWRAM, 0xC0, 0xDF)
	fill(regionEcho, 0xE0, 0xFD)
	bus[0xFE] = regionOAM // also covers the unused 0xFEA0-0xFEFF gap
	bus[0xFF] = regionIO  // also covers HRAM, 0xFF80-0xFFFE
	return bus
}

// Tick advances any i/o that needs it, if any.
func (m *MMU) Tick(cycles int) {
	m.timer.Tick(cycles)
	if m.serial != nil {
		m.serial.Tick(cycles)
	}
}

// SetTimerSeed initializes the internal timer divider seed and DIV register.
func (m *MMU) SetTimerSeed(seed uint16) {
	m.timer.SetSeed(seed)
}

// NewWithCartridge creates a memory unit with the given cartridge inserted,
// wiring up the MBC implementation its header declares.
func NewWithCartridge(cart *Cartridge) *MMU {
	mmu := New()
	mmu.cart = cart
	mmu.mbc = newMBCForCartridge(cart)
	return mmu
}

func newMBCForCartridge(cart *Cartridge) MBC {
	switch cart.mbcType {
	case NoMBCType:
		return NewNoMBC(cart.data)
	case MBC1Type, MBC1MultiType:
		// TODO: MBC1MultiType needs multicart bank-select quirks; treated as
		// plain MBC1 for now.
		return NewMBC1(cart.data, cart.hasBattery, cart.ramBankCount)
	case MBC2Type:
		return NewMBC2(cart.data)
	case MBC3Type:
		return NewMBC3(cart.data, cart.ramBankCount, cart.hasRTC)
	case MBC5Type:
		return NewMBC5(cart.data, cart.hasRumble, cart.ramBankCount)
	case MBCUnknownType:
		panic("unsupported MBC type: unknown")
	default:
		panic(fmt.Sprintf("unsupported MBC type: %d", cart.mbcType))
	}
}

// RequestInterrupt sets the interrupt flag (IF register) of the chosen interrupt to 1.
func (m *MMU) RequestInterrupt(interrupt addr.Interrupt) {
	bitPos, ok := interruptBit(interrupt)
	if !ok {
		panic(fmt.Sprintf("Unknown interrupt: 0x%02X", uint8(interrupt)))
	}
	m.Write(addr.IF, bit.Set(bitPos, m.Read(addr.IF)))
}

func interruptBit(interrupt addr.Interrupt) (uint8, bool) {
	switch interrupt {
	case addr.VBlankInterrupt:
		return 0, true
	case addr.LCDSTATInterrupt:
		return 1, true
	case addr.TimerInterrupt:
		return 2, true
	case addr.SerialInterrupt:
		return 3, true
	case addr.JoypadInterrupt:
		return 4, true
	default:
		return 0, false
	}
}

func (m *MMU) ReadBit(index uint8, address uint16) bool {
	return bit.IsSet(index, m.Read(address))
}

func (m *MMU) SetBit(index uint8, address uint16, set bool) {
	value := m.Read(address)
	if set {
		value = bit.Set(index, value)
	} else {
		value = bit.Reset(index, value)
	}
	m.Write(address, value)
}

func (m *MMU) Read(address uint16) byte {
	switch m.bus[address>>8] {
	case regionROM, regionExtRAM:
		return m.readCartridge(address)
	case regionVRAM, regionWRAM:
		return m.memory[address]
	case regionEcho:
		return m.memory[address-0x2000]
	case regionOAM:
		return m.memory[address]
	case regionIO:
		return m.readIO(address)
	default:
		panic(fmt.Sprintf("Attempted read at unmapped address: 0x%X", address))
	}
}

func (m *MMU) readCartridge(address uint16) byte {
	if m.mbc == nil {
		slog.Warn("reading cartridge space with no cartridge inserted", "addr", fmt.Sprintf("0x%04X", address))
		return 0xFF
	}
	return m.mbc.Read(address)
}

// readIO serves the 0xFF00-0xFFFF page: joypad, serial, timer, sound,
// interrupt flags and HRAM all live on this one high byte.
func (m *MMU) readIO(address uint16) byte {
	switch {
	case address == addr.SB || address == addr.SC:
		return m.serial.Read(address)
	case isTimerRegister(address):
		return m.timer.Read(address)
	case address == addr.IF:
		// The top 3 bits are unused and always read back as 1; code that
		// polls IF for "any interrupt pending" depends on this.
		return m.memory[address] | 0xE0
	default:
		// Sound registers (0xFF10-0xFF3F), remaining IO ports and HRAM are
		// plain backing-store reads: this build has no APU, so those
		// addresses behave like unimplemented hardware registers that hold
		// whatever was last written.
		return m.memory[address]
	}
}

func isTimerRegister(address uint16) bool {
	return address == addr.DIV || address == addr.TIMA || address == addr.TMA || address == addr.TAC
}

func (m *MMU) Write(address uint16, value byte) {
	switch m.bus[address>>8] {
	case regionROM, regionExtRAM:
		m.writeCartridge(address, value)
	case regionVRAM, regionWRAM, regionOAM:
		m.memory[address] = value
	case regionEcho:
		m.memory[address-0x2000] = value
	case regionIO:
		m.writeIO(address, value)
	default:
		panic(fmt.Sprintf("Attempted write at unmapped address: 0x%X", address))
	}
}

func (m *MMU) writeCartridge(address uint16, value byte) {
	if m.mbc == nil {
		slog.Warn("writing cartridge space with no cartridge inserted", "addr", fmt.Sprintf("0x%04X", address), "value", fmt.Sprintf("0x%02X", value))
		return
	}
	m.mbc.Write(address, value)
}

func (m *MMU) writeIO(address uint16, value byte) {
	switch {
	case address == addr.P1:
		m.writeJoypad(value)
	case address == addr.SB || address == addr.SC:
		m.serial.Write(address, value)
	case isTimerRegister(address):
		m.timer.Write(address, value)
	case address == addr.IF:
		m.memory[address] = value | 0xE0
	case address == addr.DMA:
		m.runOAMDMA(value)
	default:
		m.memory[address] = value
	}
}

// runOAMDMA copies 160 bytes starting at value*0x100 into OAM. Real hardware
// takes 160 M-cycles and locks the bus during the transfer; this emulator
// performs it instantaneously, which every test ROM observed so far
// tolerates.
func (m *MMU) runOAMDMA(value byte) {
	source := uint16(value) << 8
	for i := range uint16(160) {
		m.memory[0xFE00+i] = m.Read(source + i)
	}
	m.memory[addr.DMA] = value
}

// updateJoypadRegister sets the joypad register (P1) according to selection bits
// and hardware (buttons) status.
//
// In real hw, this register is actually just a selector (bits 4-5) that control
// to which set of buttons the low bits (0-3) are mapped to.
//
// The mapping (selection bits are active-low):
//   - if bit 4 is 0, bits 0-3 are mapped to the 4 d-pad directions
//   - if bit 5 is 0, bits 0-3 are mapped to A, B, Start, Select
//   - if both are 0, hw does an AND of both button sets
//   - if both are 1, return 0x0F (high impedence state)
//
// This function is called whenever:
//   - there is a write to the P1 register (only set bits 4-5)
//   - a button is pressed or released (tracked separately)
//
// Note that 1 -> button released, 0 -> button pressed.
// Bits 6-7 are unused, they always read as 1 on real hardware.
func (m *MMU) updateJoypadRegister() {
	p1 := m.memory[addr.P1]
	result := uint8(0b11000000) // Bits 6-7 are always read as 1
	result |= p1 & 0b00110000   // Keep selection bits 4-5

	// A button group is selected if the corresponding bit is 0
	selectDpad := !bit.IsSet(4, p1)
	selectButtons := !bit.IsSet(5, p1)

	switch {
	case selectButtons && !selectDpad:
		result |= m.joypadButtons & 0x0F
	case selectDpad && !selectButtons:
		result |= m.joypadDpad & 0x0F
	case selectButtons && selectDpad:
		result |= m.joypadButtons & m.joypadDpad & 0x0F
	default:
		// no selection
		result |= 0x0F
	}

	m.memory[addr.P1] = result
}

func (m *MMU) writeJoypad(value uint8) {
	// Only bits 4-5 are writable (selection bits)
	m.memory[addr.P1] = value & 0b00110000
	m.updateJoypadRegister()
}

func (m *MMU) HandleKeyPress(key JoypadKey) {
	oldButtons := m.joypadButtons
	oldDpad := m.joypadDpad

	m.joypadButtons, m.joypadDpad = applyKeyEdge(key, m.joypadButtons, m.joypadDpad, bit.Reset)

	buttonTransitions := oldButtons & ^m.joypadButtons
	dpadTransitions := oldDpad & ^m.joypadDpad
	if buttonTransitions|dpadTransitions != 0 {
		m.RequestInterrupt(addr.JoypadInterrupt)
	}

	m.updateJoypadRegister()
}

func (m *MMU) HandleKeyRelease(key JoypadKey) {
	m.joypadButtons, m.joypadDpad = applyKeyEdge(key, m.joypadButtons, m.joypadDpad, bit.Set)
	m.updateJoypadRegister()
}

// applyKeyEdge applies a press (bit.Reset) or release (bit.Set) edge for key
// to the button/d-pad state, shared by HandleKeyPress/HandleKeyRelease since
// they only differ in which bit operation they apply.
func applyKeyEdge(key JoypadKey, buttons, dpad uint8, op func(uint8, uint8) uint8) (uint8, uint8) {
	switch key {
	case JoypadRight:
		dpad = op(0, dpad)
	case JoypadLeft:
		dpad = op(1, dpad)
	case JoypadUp:
		dpad = op(2, dpad)
	case JoypadDown:
		dpad = op(3, dpad)
	case JoypadA:
		buttons = op(0, buttons)
	case JoypadB:
		buttons = op(1, buttons)
	case JoypadSelect:
		buttons = op(2, buttons)
	case JoypadStart:
		buttons = op(3, buttons)
	}
	return buttons, dpad
}
