package debug

import (
	"github.com/halfblock/dmg/dmg/video"
)

const tileByteSize = 16 // 8 rows, 2 bytes per row

// tileBaseAddress resolves a tile index to its VRAM address under LCDC's
// two addressing modes: unsigned (0x8000-based) or signed (0x8800-based,
// wrapping through 0x9000 for index 0).
func tileBaseAddress(tileIndex byte, baseAddr uint16, signed bool) uint16 {
	if !signed {
		return baseAddr + uint16(tileIndex)*tileByteSize
	}
	return uint16(int(baseAddr) + int(int8(tileIndex))*tileByteSize)
}

// FetchTileForIndex reads a tile's 8 rows the same way the PPU's fetcher
// does, so debug visualization matches actual rendering.
func FetchTileForIndex(reader MemoryReader, tileIndex byte, baseAddr uint16, signed bool) video.Tile {
	tileAddr := tileBaseAddress(tileIndex, baseAddr, signed)

	tile := video.Tile{Index: int(tileIndex)}
	for row := range tile.Rows {
		rowAddr := tileAddr + uint16(row*2)
		tile.Rows[row] = video.TileRow{
			Low:  reader.Read(rowAddr),
			High: reader.Read(rowAddr + 1),
		}
	}
	return tile
}

// GetTileForBackgroundIndex maps a background/window tile index into a flat
// tile slice, honoring LCDC's signed addressing remap (indices 0-127 live at
// slice offset 256+ under signed mode, 128-255 at offset 0+).
func GetTileForBackgroundIndex(tiles []video.Tile, tileIndex byte, useSigned bool) video.Tile {
	if !useSigned {
		return tiles[tileIndex]
	}
	if tileIndex >= 128 {
		return tiles[int(tileIndex)-128]
	}
	if arrayIndex := int(tileIndex) + 256; arrayIndex < len(tiles) {
		return tiles[arrayIndex]
	}
	return tiles[0]
}
