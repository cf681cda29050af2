package memory

import "fmt"

const titleLength = 16

const (
	titleAddress          = 0x134
	cartridgeTypeAddress  = 0x147
	romSizeAddress        = 0x148
	ramSizeAddress        = 0x149
	headerChecksumAddress = 0x14D
)

// MBCType identifies the bank controller chip declared in the cartridge header.
type MBCType uint8

const (
	NoMBCType MBCType = iota
	MBC1Type
	MBC1MultiType
	MBC2Type
	MBC3Type
	MBC5Type
	MBCUnknownType
)

var ramBankCountBySizeCode = map[uint8]uint8{
	0x00: 0,
	0x01: 0, // unused/unofficial size code
	0x02: 1,
	0x03: 4,
	0x04: 16,
	0x05: 8,
}

func mbcTypeFromCartType(cartType uint8) MBCType {
	switch cartType {
	case 0x00, 0x08, 0x09:
		return NoMBCType
	case 0x01, 0x02, 0x03:
		return MBC1Type
	case 0x05, 0x06:
		return MBC2Type
	case 0x0F, 0x10, 0x11, 0x12, 0x13:
		return MBC3Type
	case 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E:
		return MBC5Type
	default:
		return MBCUnknownType
	}
}

func hasBatteryBackup(cartType uint8) bool {
	switch cartType {
	case 0x03, 0x06, 0x09, 0x0F, 0x10, 0x13, 0x1B, 0x1E:
		return true
	default:
		return false
	}
}

func hasRTCChip(cartType uint8) bool {
	return cartType == 0x0F || cartType == 0x10
}

func hasRumbleMotor(cartType uint8) bool {
	switch cartType {
	case 0x1C, 0x1D, 0x1E:
		return true
	default:
		return false
	}
}

// Cartridge holds a ROM image plus the header fields needed to build the
// matching bank controller.
type Cartridge struct {
	data []byte

	title          string
	cartType       uint8
	mbcType        MBCType
	ramBankCount   uint8
	hasBattery     bool
	hasRTC         bool
	hasRumble      bool
	headerChecksum uint8
}

// NewCartridge creates an empty, ROM-only cartridge: turning on the machine
// with no game inserted.
func NewCartridge() *Cartridge {
	return &Cartridge{
		data:    make([]byte, 0x8000),
		mbcType: NoMBCType,
	}
}

// NewCartridgeWithData parses a ROM image's header and returns the cartridge
// it describes. A malformed header (image too small to contain one) is the
// only condition that fails to load; an invalid checksum does not prevent
// loading, matching real hardware, which has no way to refuse to boot.
func NewCartridgeWithData(data []byte) (*Cartridge, error) {
	if len(data) < 0x150 {
		return nil, fmt.Errorf("cartridge: image too small to contain a header: %d bytes", len(data))
	}

	cartType := data[cartridgeTypeAddress]
	ramSizeCode := data[ramSizeAddress]

	cart := &Cartridge{
		data:           make([]byte, len(data)),
		title:          cleanGameboyTitle(data[titleAddress : titleAddress+titleLength]),
		cartType:       cartType,
		mbcType:        mbcTypeFromCartType(cartType),
		ramBankCount:   ramBankCountBySizeCode[ramSizeCode],
		hasBattery:     hasBatteryBackup(cartType),
		hasRTC:         hasRTCChip(cartType),
		hasRumble:      hasRumbleMotor(cartType),
		headerChecksum: data[headerChecksumAddress],
	}
	copy(cart.data, data)

	return cart, nil
}

// VerifyHeaderChecksum recomputes the header checksum over 0x134-0x14C and
// reports whether it matches the value stored at 0x14D.
func (c *Cartridge) VerifyHeaderChecksum() bool {
	var sum uint8
	for addr := 0x134; addr <= 0x14C; addr++ {
		sum = sum - c.data[addr] - 1
	}
	return sum == c.headerChecksum
}

func (c *Cartridge) Title() string    { return c.title }
func (c *Cartridge) MBCType() MBCType { return c.mbcType }

// ReadByte reads a byte at the specified address, bypassing any bank
// controller. Used for header inspection before a MBC is constructed.
func (c *Cartridge) ReadByte(addr uint16) uint8 {
	if int(addr) >= len(c.data) {
		return 0xFF
	}
	return c.data[addr]
}
