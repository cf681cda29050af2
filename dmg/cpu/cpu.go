// Package cpu implements the Sharp LR35902 interpreter: register file,
// opcode tables, interrupt dispatch and HALT/STOP handling.
package cpu

import (
	"fmt"
	"log/slog"
)

// Bus is the subset of the memory bus the CPU needs to fetch, read and write.
type Bus interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// interrupt vectors, indexed by bit position (priority: lowest bit first).
var interruptVectors = [5]uint16{0x40, 0x48, 0x50, 0x58, 0x60}

const (
	addrIF uint16 = 0xFF0F
	addrIE uint16 = 0xFFFF
)

// CPU holds the full architectural state of the LR35902: the eight 8-bit
// registers (addressable in pairs as AF/BC/DE/HL), SP, PC, IME and its
// one-instruction-delayed pending form, and the HALT/STOP latches.
type CPU struct {
	bus Bus

	a, f byte
	b, c byte
	d, e byte
	h, l byte
	sp   uint16
	pc   uint16

	interruptsEnabled bool
	eiPending         bool
	halted            bool
	haltBug           bool
	stopped           bool

	currentOpcode uint16 // 0xNN for base opcodes, 0xCBNN for CB-prefixed
	cycles        uint64 // running total of clock cycles executed

	// Locked set to true after executing an undefined opcode; from then on
	// Step executes nothing. The emulation loops in dmg/core.go do not read
	// it and do not stop when it is set.
	Locked bool
}

// New returns a CPU wired to the given bus, with registers set to the
// canonical post-boot-ROM values (used when no boot ROM is supplied).
func New(bus Bus) *CPU {
	c := &CPU{bus: bus}
	c.a, c.f = 0x01, 0xB0
	c.setBC(0x0013)
	c.setDE(0x00D8)
	c.setHL(0x014D)
	c.sp = 0xFFFE
	c.pc = 0x0100
	return c
}

// NewAtBootROM returns a CPU reset to address 0x0000 with all registers
// zeroed, for use when a boot ROM image is mapped in.
func NewAtBootROM(bus Bus) *CPU {
	return &CPU{bus: bus}
}

// Tick is an alias for Step, matching the driver's naming for "advance the
// machine by one CPU instruction".
func (c *CPU) Tick() int { return c.Step() }

func (c *CPU) GetPC() uint16 { return c.pc }
func (c *CPU) GetSP() uint16 { return c.sp }
func (c *CPU) GetAF() uint16 { return c.getAF() }
func (c *CPU) GetBC() uint16 { return c.getBC() }
func (c *CPU) GetDE() uint16 { return c.getDE() }
func (c *CPU) GetHL() uint16 { return c.getHL() }
func (c *CPU) IME() bool     { return c.interruptsEnabled }
func (c *CPU) Halted() bool  { return c.halted }

func (c *CPU) GetA() uint8 { return c.a }
func (c *CPU) GetF() uint8 { return c.f }
func (c *CPU) GetB() uint8 { return c.b }
func (c *CPU) GetC() uint8 { return c.c }
func (c *CPU) GetD() uint8 { return c.d }
func (c *CPU) GetE() uint8 { return c.e }
func (c *CPU) GetH() uint8 { return c.h }
func (c *CPU) GetL() uint8 { return c.l }

// GetFlagString renders the Z/N/H/C flags as a four-character string, using
// a dash for each flag that is currently clear.
func (c *CPU) GetFlagString() string {
	render := func(set bool, ch byte) byte {
		if set {
			return ch
		}
		return '-'
	}
	return string([]byte{
		render(c.isSetFlag(zeroFlag), 'Z'),
		render(c.isSetFlag(subFlag), 'N'),
		render(c.isSetFlag(halfCarryFlag), 'H'),
		render(c.isSetFlag(carryFlag), 'C'),
	})
}

// RequestInterrupt is a convenience used by tests and by peripherals that
// hold a direct CPU reference; in the wired machine peripherals instead
// request through the bus's IF register, which is how real hardware works.
func (c *CPU) RequestInterrupt(bitPos uint8) {
	flags := c.bus.Read(addrIF)
	c.bus.Write(addrIF, flags|(1<<bitPos))
}

// Step performs exactly one of: interrupt dispatch, HALT wake check, or a
// single fetch-decode-execute cycle. It returns the number of clock cycles
// consumed (not machine cycles; one machine cycle is 4 clocks). A Locked CPU
// executes nothing and consumes 4 clocks per call.
func (c *CPU) Step() int {
	before := c.cycles

	if c.Locked {
		c.addCycles(4)
		return int(c.cycles - before)
	}

	if c.handleInterrupts() {
		if c.halted {
			c.halted = false
		}
		if c.interruptsEnabled {
			c.dispatchInterrupt()
			return int(c.cycles - before)
		}
	}

	if c.eiPending {
		c.eiPending = false
		c.interruptsEnabled = true
	}

	if c.halted {
		c.addCycles(4)
		return int(c.cycles - before)
	}

	c.executeOne()
	return int(c.cycles - before)
}

// handleInterrupts reports whether an enabled interrupt is pending
// (IF & IE & 0x1F != 0), independent of IME. It has no side effects: the
// HALT bug is latched by enterHalt and applied by executeOne.
func (c *CPU) handleInterrupts() bool {
	flags := c.bus.Read(addrIF)
	enabled := c.bus.Read(addrIE)
	return flags&enabled&0x1F != 0
}

// dispatchInterrupt clears the highest-priority pending IF bit, pushes PC
// and jumps to that source's vector. Costs 5 machine cycles.
func (c *CPU) dispatchInterrupt() {
	flags := c.bus.Read(addrIF)
	enabled := c.bus.Read(addrIE)
	pending := flags & enabled & 0x1F

	var bitPos uint8
	for bitPos = 0; bitPos < 5; bitPos++ {
		if pending&(1<<bitPos) != 0 {
			break
		}
	}

	c.interruptsEnabled = false
	c.bus.Write(addrIF, flags&^(1<<bitPos))

	c.pushStack(c.pc)
	c.pc = interruptVectors[bitPos]
	c.addCycles(20)
}

// executeOne fetches the opcode at PC (applying the HALT-bug non-increment
// quirk if latched), decodes and executes it.
func (c *CPU) executeOne() {
	opcodeAddr := c.pc
	opcode := c.bus.Read(opcodeAddr)

	if c.haltBug {
		c.haltBug = false
		// PC is not incremented: the same byte will be fetched again as
		// the start of the next instruction.
	} else {
		c.pc++
	}

	if opcode == 0xCB {
		cb := c.bus.Read(c.pc)
		c.pc++
		c.currentOpcode = 0xCB00 | uint16(cb)
		handler := cbOpcodeTable[cb]
		c.addCycles(handler(c))
		return
	}

	c.currentOpcode = uint16(opcode)
	handler := opcodeTable[opcode]
	if handler == nil {
		slog.Warn("undefined opcode executed", "opcode", fmt.Sprintf("0x%02X", opcode), "pc", fmt.Sprintf("0x%04X", opcodeAddr))
		c.Locked = true
		c.addCycles(4)
		return
	}
	c.addCycles(handler(c))
}

// enterHalt is called by the HALT opcode handler. It implements the
// well-known HALT bug: if IME is false but an interrupt is already
// pending at the moment HALT executes, the CPU does not actually halt;
// instead the next fetched opcode byte is read without PC advancing.
func (c *CPU) enterHalt() {
	if !c.interruptsEnabled && c.handleInterrupts() {
		c.haltBug = true
		return
	}
	c.halted = true
}

func (c *CPU) addCycles(clocks int) {
	c.cycles += uint64(clocks)
}

func (c *CPU) readImmediate() uint8 {
	v := c.bus.Read(c.pc)
	c.pc++
	return v
}

func (c *CPU) readImmediateWord() uint16 {
	low := c.readImmediate()
	high := c.readImmediate()
	return uint16(high)<<8 | uint16(low)
}
