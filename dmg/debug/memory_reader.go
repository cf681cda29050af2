package debug

import (
	"github.com/halfblock/dmg/dmg/addr"
	"github.com/halfblock/dmg/dmg/bit"
	"github.com/halfblock/dmg/dmg/video"
)

// MemoryReader is the read-only slice of the MMU debug tools need: byte
// reads plus single-bit peeks, so visualizers don't depend on the full
// bus implementation.
type MemoryReader interface {
	Read(addr uint16) uint8
	ReadBit(bit uint8, addr uint16) bool
}

func decodeDebugSprite(reader MemoryReader, index, currentLine, spriteHeight int) SpriteInfo {
	base := uint16(OAMBaseAddr + index*OAMBytesPerSprite)

	y := int(reader.Read(base)) - SpriteYOffset
	x := int(reader.Read(base+1)) - SpriteXOffset
	tileIndex := reader.Read(base + 2)
	flags := reader.Read(base + 3)

	sprite := video.Sprite{
		Y:         uint8(y),
		X:         uint8(x),
		TileIndex: tileIndex,
		Flags:     flags,
	}
	sprite.PaletteOBP1 = bit.IsSet(4, flags)
	sprite.FlipX = bit.IsSet(5, flags)
	sprite.FlipY = bit.IsSet(6, flags)
	sprite.BehindBG = bit.IsSet(7, flags)

	return SpriteInfo{
		Index:     index,
		Sprite:    sprite,
		IsVisible: y <= currentLine && y+spriteHeight > currentLine,
	}
}

// ExtractOAMDataFromReader walks all 40 OAM entries through a MemoryReader
// and reports which ones overlap currentLine at the given sprite height.
func ExtractOAMDataFromReader(reader MemoryReader, currentLine int, spriteHeight int) *OAMData {
	data := &OAMData{
		Sprites:      make([]SpriteInfo, OAMSpriteCount),
		CurrentLine:  currentLine,
		SpriteHeight: spriteHeight,
	}

	for i := 0; i < OAMSpriteCount; i++ {
		info := decodeDebugSprite(reader, i, currentLine, spriteHeight)
		data.Sprites[i] = info
		if info.IsVisible {
			data.ActiveSprites++
		}
	}

	return data
}

// ExtractVRAMDataFromReader decodes all 384 tile patterns and the current
// background/window tilemap selection through a MemoryReader.
func ExtractVRAMDataFromReader(reader MemoryReader) *VRAMData {
	data := &VRAMData{
		TilePatterns: make([]video.Tile, TilePatternCount),
	}

	for i := range TilePatternCount {
		baseAddr := uint16(VRAMBaseAddr + i*TileDataSize)
		data.TilePatterns[i] = video.FetchTileWithIndex(reader, baseAddr, i)
	}

	data.TilemapInfo = extractTilemapInfoFromReader(reader)

	return data
}

func extractTilemapInfoFromReader(reader MemoryReader) TilemapInfo {
	lcdc := reader.Read(addr.LCDC)

	return TilemapInfo{
		BackgroundActive: (lcdc & 0x01) != 0,
		WindowActive:     (lcdc & 0x20) != 0,
		LCDCValue:        lcdc,
	}
}
