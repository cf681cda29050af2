package cpu

// Opcode is a single decoded instruction handler. It returns the number of
// clock cycles (4 per machine cycle) the instruction consumed.
type Opcode func(*CPU) int

var opcodeTable [256]Opcode
var cbOpcodeTable [256]Opcode

func init() {
	buildOpcodeTable()
	buildCBTable()
}

// regPtr returns a pointer to the 8-bit register addressed by the standard
// 3-bit operand encoding used throughout the opcode map: B C D E H L (HL) A.
// index 6, (HL), has no backing register and is handled by the caller via
// readR8/writeR8 instead, since it goes through the bus.
func (c *CPU) regPtr(index uint8) *uint8 {
	switch index {
	case 0:
		return &c.b
	case 1:
		return &c.c
	case 2:
		return &c.d
	case 3:
		return &c.e
	case 4:
		return &c.h
	case 5:
		return &c.l
	case 7:
		return &c.a
	default:
		return nil
	}
}

func (c *CPU) readR8(index uint8) uint8 {
	if index == 6 {
		return c.bus.Read(c.getHL())
	}
	return *c.regPtr(index)
}

func (c *CPU) writeR8(index uint8, v uint8) {
	if index == 6 {
		c.bus.Write(c.getHL(), v)
		return
	}
	*c.regPtr(index) = v
}

// buildOpcodeTable fills in the regular, mechanically-repeating blocks of
// the base opcode map programmatically (LD r,r' and the ALU A,r block),
// then lets opcodes.go overwrite every irregular entry by direct index
// assignment in its own init().
func buildOpcodeTable() {
	// 0x40-0x7F: LD r,r' for all 64 combinations, except 0x76 which is HALT.
	for dst := uint8(0); dst < 8; dst++ {
		for src := uint8(0); src < 8; src++ {
			opcode := 0x40 + dst*8 + src
			if opcode == 0x76 {
				continue
			}
			d, s := dst, src
			cycles := 4
			if d == 6 || s == 6 {
				cycles = 8
			}
			opcodeTable[opcode] = func(c *CPU) int {
				c.writeR8(d, c.readR8(s))
				return cycles
			}
		}
	}

	// 0x80-0xBF: ALU A,r — ADD, ADC, SUB, SBC, AND, XOR, OR, CP, 8 ops x 8 operands.
	aluOps := [8]func(*CPU, uint8){
		func(c *CPU, v uint8) { c.addToA(v) },
		func(c *CPU, v uint8) { c.adc(v) },
		func(c *CPU, v uint8) { c.sub(v) },
		func(c *CPU, v uint8) { c.sbc(v) },
		func(c *CPU, v uint8) { c.and(v) },
		func(c *CPU, v uint8) { c.xor(v) },
		func(c *CPU, v uint8) { c.or(v) },
		func(c *CPU, v uint8) { c.cp(v) },
	}
	for op := uint8(0); op < 8; op++ {
		for src := uint8(0); src < 8; src++ {
			opcode := 0x80 + op*8 + src
			fn, s := aluOps[op], src
			cycles := 4
			if s == 6 {
				cycles = 8
			}
			opcodeTable[opcode] = func(c *CPU) int {
				fn(c, c.readR8(s))
				return cycles
			}
		}
	}
}

// buildCBTable fills in all 256 CB-prefixed opcodes programmatically: eight
// rotate/shift kinds over the 8 operands, then BIT/RES/SET for each of the
// 8 bit indices over the 8 operands.
func buildCBTable() {
	shiftOps := [8]func(*CPU, *uint8) Flag{
		func(c *CPU, r *uint8) Flag { return c.rlc(r) },
		func(c *CPU, r *uint8) Flag { return c.rrc(r) },
		func(c *CPU, r *uint8) Flag { return c.rl(r) },
		func(c *CPU, r *uint8) Flag { return c.rr(r) },
		func(c *CPU, r *uint8) Flag { return c.sla(r) },
		func(c *CPU, r *uint8) Flag { return c.sra(r) },
		func(c *CPU, r *uint8) Flag { return c.swap(r) },
		func(c *CPU, r *uint8) Flag { return c.srl(r) },
	}
	for op := uint8(0); op < 8; op++ {
		for src := uint8(0); src < 8; src++ {
			opcode := op*8 + src
			fn, s := shiftOps[op], src
			cycles := 8
			if s == 6 {
				cycles = 16
			}
			cbOpcodeTable[opcode] = func(c *CPU) int {
				if s == 6 {
					v := c.bus.Read(c.getHL())
					fn(c, &v)
					c.bus.Write(c.getHL(), v)
				} else {
					fn(c, c.regPtr(s))
				}
				return cycles
			}
		}
	}

	// 0x40-0x7F: BIT b,r
	for bitIdx := uint8(0); bitIdx < 8; bitIdx++ {
		for src := uint8(0); src < 8; src++ {
			opcode := 0x40 + bitIdx*8 + src
			b, s := bitIdx, src
			cycles := 8
			if s == 6 {
				cycles = 12
			}
			cbOpcodeTable[opcode] = func(c *CPU) int {
				c.bitTest(b, c.readR8(s))
				return cycles
			}
		}
	}

	// 0x80-0xBF: RES b,r
	for bitIdx := uint8(0); bitIdx < 8; bitIdx++ {
		for src := uint8(0); src < 8; src++ {
			opcode := 0x80 + bitIdx*8 + src
			b, s := bitIdx, src
			cycles := 8
			if s == 6 {
				cycles = 16
			}
			cbOpcodeTable[opcode] = func(c *CPU) int {
				c.writeR8(s, c.readR8(s)&^(1<<b))
				return cycles
			}
		}
	}

	// 0xC0-0xFF: SET b,r
	for bitIdx := uint8(0); bitIdx < 8; bitIdx++ {
		for src := uint8(0); src < 8; src++ {
			opcode := 0xC0 + bitIdx*8 + src
			b, s := bitIdx, src
			cycles := 8
			if s == 6 {
				cycles = 16
			}
			cbOpcodeTable[opcode] = func(c *CPU) int {
				c.writeR8(s, c.readR8(s)|(1<<b))
				return cycles
			}
		}
	}
}
