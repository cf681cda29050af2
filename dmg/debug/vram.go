package debug

import (
	"fmt"

	"github.com/halfblock/dmg/dmg/video"
)

const (
	VRAMBaseAddr     = 0x8000
	VRAMEndAddr      = 0x97FF
	TileDataSize     = 16
	TilePixelWidth   = 8
	TilePixelHeight  = 8
	TilePatternCount = 384
	TilesPerRow      = 16
	TileRows         = 24

	BackgroundTilemapAddr = 0x9800
	WindowTilemapAddr     = 0x9C00
	TilemapSize           = 0x400
)

type TilePattern struct {
	Index  int
	Pixels [TilePixelHeight][TilePixelWidth]video.GBColor
}

type TilemapInfo struct {
	BackgroundActive bool
	WindowActive     bool
	LCDCValue        uint8
}

type VRAMData struct {
	TilePatterns []video.Tile
	TilemapInfo  TilemapInfo
}

// ExtractVRAMData is a thin convenience wrapper over ExtractVRAMDataFromReader.
func ExtractVRAMData(reader MemoryReader) *VRAMData {
	return ExtractVRAMDataFromReader(reader)
}

// GetTileGrid lays the flat TilePatterns slice out as a TileRows x TilesPerRow
// grid, the shape a terminal/SDL tile viewer wants to iterate over.
func (data *VRAMData) GetTileGrid() [][]video.Tile {
	grid := make([][]video.Tile, TileRows)
	for row := range grid {
		grid[row] = make([]video.Tile, TilesPerRow)
		for col := range grid[row] {
			if idx := row*TilesPerRow + col; idx < TilePatternCount {
				grid[row][col] = data.TilePatterns[idx]
			}
		}
	}
	return grid
}

func activeLabel(active bool) string {
	if active {
		return "ACTIVE"
	}
	return "INACTIVE"
}

func (info *TilemapInfo) FormatSummary() string {
	return fmt.Sprintf("Background Map: 0x%04X [%s] | Window Map: 0x%04X [%s] | LCDC: 0x%02X",
		BackgroundTilemapAddr, activeLabel(info.BackgroundActive),
		WindowTilemapAddr, activeLabel(info.WindowActive), info.LCDCValue)
}
