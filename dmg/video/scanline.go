package video

import (
	"log/slog"

	"github.com/halfblock/dmg/dmg/addr"
	"github.com/halfblock/dmg/dmg/bit"
)

// renderScanline draws one full row (background, window, then sprites, in
// hardware priority order) of the current LY into the framebuffer.
func (g *GPU) renderScanline() {
	if !g.lcdcBit(lcdDisplayEnable) {
		g.clearLine(0xFFFFFFFF) // LCD off shows a blank white line
		return
	}

	g.renderBackground()
	g.renderWindow()
	g.renderSprites()
}

func (g *GPU) clearLine(color uint32) {
	base := g.line * FramebufferWidth
	for i := 0; i < FramebufferWidth; i++ {
		g.framebuffer.buffer[base+i] = color
	}
}

// tileLayer groups the VRAM addressing choices shared by the background and
// window layers, which differ from each other only in which tile map and
// scroll registers feed them.
type tileLayer struct {
	patternBase      uint16
	signedAddressing bool
	mapBase          uint16
}

func (g *GPU) backgroundLayer() tileLayer {
	return tileLayer{
		patternBase:      tileDataBase(g.lcdcBit(bgWindowTileDataSelect)),
		signedAddressing: !g.lcdcBit(bgWindowTileDataSelect),
		mapBase:          tileMapBase(!g.lcdcBit(bgTileMapDisplaySelect)),
	}
}

func (g *GPU) windowLayer() tileLayer {
	return tileLayer{
		patternBase:      tileDataBase(g.lcdcBit(bgWindowTileDataSelect)),
		signedAddressing: !g.lcdcBit(bgWindowTileDataSelect),
		mapBase:          tileMapBase(!g.lcdcBit(windowTileMapSelect)),
	}
}

func tileDataBase(unsignedSelect bool) uint16 {
	if unsignedSelect {
		return addr.TileData0
	}
	return addr.TileData2
}

func tileMapBase(zeroSelect bool) uint16 {
	if zeroSelect {
		return addr.TileMap0
	}
	return addr.TileMap1
}

// tileRowAddress resolves the VRAM address of a tile's pixel row, honoring
// the LCDC tile-data addressing mode (unsigned 0x8000 vs signed 0x8800).
func (l tileLayer) tileRowAddress(tileValue byte, rowInTile int) uint16 {
	rowOffset := rowInTile * 2
	if l.signedAddressing {
		return uint16(int(l.patternBase) + int(int8(tileValue))*16 + rowOffset)
	}
	return l.patternBase + uint16(int(tileValue)*16+rowOffset)
}

// tilePixel decodes the 2bpp color index (0-3) at bitIndex (7=leftmost) from
// a tile row's two bitplanes.
func tilePixel(bitIndex uint8, low, high byte) byte {
	pixel := byte(0)
	if bit.IsSet(bitIndex, low) {
		pixel |= 1
	}
	if bit.IsSet(bitIndex, high) {
		pixel |= 2
	}
	return pixel
}

func (g *GPU) paletteColor(paletteAddr uint16, colorIndex byte) uint32 {
	palette := g.memory.Read(paletteAddr)
	shade := (palette >> (colorIndex * 2)) & 0x03
	return uint32(ByteToColor(shade))
}

func (g *GPU) renderBackground() {
	base := g.line * FramebufferWidth

	if !g.lcdcBit(bgDisplay) {
		// With BG disabled, DMG hardware still shows BGP's color-0 shade.
		blank := g.paletteColor(addr.BGP, 0)
		for i := 0; i < FramebufferWidth; i++ {
			g.framebuffer.buffer[base+i] = blank
			g.bgPixelBuffer[base+i] = 0
		}
		return
	}

	layer := g.backgroundLayer()
	scrollX := g.memory.Read(addr.SCX)
	scrollY := g.memory.Read(addr.SCY)
	mapY := (g.line + int(scrollY)) & 0xFF // background wraps at 256px
	mapRow := (mapY / 8) * 32
	rowInTile := mapY % 8

	for x := 0; x < FramebufferWidth; x++ {
		mapX := (x + int(scrollX)) & 0xFF
		tileValue := g.memory.Read(layer.mapBase + uint16(mapRow+mapX/8))
		tileAddr := layer.tileRowAddress(tileValue, rowInTile)

		low := g.memory.Read(tileAddr)
		high := g.memory.Read(tileAddr + 1)
		colorIndex := tilePixel(uint8(7-mapX%8), low, high)

		pos := base + x
		g.framebuffer.buffer[pos] = g.paletteColor(addr.BGP, colorIndex)
		g.bgPixelBuffer[pos] = colorIndex
	}
}

func (g *GPU) renderWindow() {
	if g.windowLine > 143 || !g.lcdcBit(windowDisplayEnable) {
		return
	}

	// WX-7 wraps as a byte when WX<7; the wrapped value is always >159, which
	// the bounds check below turns into "window effectively hidden" for that
	// case, matching the quirky hardware behavior.
	wxByte := g.memory.Read(addr.WX) - 7
	wy := g.memory.Read(addr.WY)
	if wxByte > 159 || wy > 143 || int(wy) > g.line {
		return
	}
	wx := int(wxByte)

	if g.line < 5 {
		slog.Debug("Window rendering", "line", g.line, "windowLine", g.windowLine, "wx", wx, "wy", wy)
	}

	layer := g.windowLayer()
	mapRow := (g.windowLine / 8) * 32
	rowInTile := g.windowLine % 8
	base := g.line * FramebufferWidth

	visibleTiles := (FramebufferWidth - wx + 7) / 8
	if visibleTiles > 32 {
		visibleTiles = 32
	}

	for tileX := 0; tileX < visibleTiles; tileX++ {
		tileValue := g.memory.Read(layer.mapBase + uint16(mapRow+tileX))
		tileAddr := layer.tileRowAddress(tileValue, rowInTile)
		low := g.memory.Read(tileAddr)
		high := g.memory.Read(tileAddr + 1)

		for px := 0; px < 8; px++ {
			screenX := tileX*8 + px + wx
			if screenX < wx || screenX >= FramebufferWidth {
				continue
			}
			pos := base + screenX
			if pos >= len(g.framebuffer.buffer) {
				continue
			}

			colorIndex := tilePixel(uint8(7-px), low, high)
			g.framebuffer.buffer[pos] = g.paletteColor(addr.BGP, colorIndex)
			g.bgPixelBuffer[pos] = colorIndex
		}
	}

	g.windowLine++
}

// spriteHeight returns 8 or 16 depending on LCDC's OBJ size bit.
func (g *GPU) spriteHeight() int {
	if g.lcdcBit(spriteSize) {
		return 16
	}
	return 8
}

// spritesOnLine returns OAM indices (0-39) visible on the current scanline,
// in OAM order, capped at hardware's 10-sprites-per-line limit. Only Y
// position affects selection — off-screen X still counts toward the cap.
func (g *GPU) spritesOnLine(height int) []int {
	var found []int
	for sprite := 0; sprite < 40 && len(found) < 10; sprite++ {
		y := int(g.memory.Read(addr.OAMStart+uint16(sprite*4))) - 16
		if y <= g.line && g.line < y+height {
			found = append(found, sprite)
		}
	}
	return found
}

func (g *GPU) renderSprites() {
	if !g.lcdcBit(spriteDisplayEnable) {
		return
	}

	height := g.spriteHeight()
	sprites := g.spritesOnLine(height)
	base := g.line * FramebufferWidth

	g.spritePriority.Clear()
	for _, sprite := range sprites {
		x := int(g.memory.Read(addr.OAMStart+uint16(sprite*4+1))) - 8
		for px := 0; px < 8; px++ {
			g.spritePriority.TryClaimPixel(x+px, sprite, x)
		}
	}

	for _, sprite := range sprites {
		g.renderSprite(sprite, height, base)
	}
}

// renderSprite draws only the pixels `sprite` still owns after priority
// resolution (renderSprites already ran TryClaimPixel for every candidate).
func (g *GPU) renderSprite(sprite, height, lineBase int) {
	oamAddr := addr.OAMStart + uint16(sprite*4)
	y := int(g.memory.Read(oamAddr)) - 16
	x := int(g.memory.Read(oamAddr+1)) - 8
	tile := g.memory.Read(oamAddr + 2)
	flags := g.memory.Read(oamAddr + 3)

	owned := false
	for px := 0; px < 8; px++ {
		if g.spritePriority.GetOwner(x+px) == sprite {
			owned = true
			break
		}
	}
	if !owned {
		return
	}

	flipX := bit.IsSet(5, flags)
	flipY := bit.IsSet(6, flags)
	aboveBG := !bit.IsSet(7, flags)
	paletteAddr := addr.OBP0
	if bit.IsSet(4, flags) {
		paletteAddr = addr.OBP1
	}

	row := g.line - y
	if flipY {
		row = height - 1 - row
	}

	tileIndex := int(tile)
	if height == 16 {
		tileIndex &= 0xFE // 8x16 sprites ignore bit 0 of the tile index
	}
	rowOffset := row * 2
	if height == 16 && row >= 8 {
		rowOffset = (row - 8) * 2
		tileIndex++
	}
	// Sprites always use the unsigned 0x8000 tile-data addressing mode.
	tileAddr := addr.TileData0 + uint16(tileIndex*16+rowOffset)
	low := g.memory.Read(tileAddr)
	high := g.memory.Read(tileAddr + 1)

	for px := 0; px < 8; px++ {
		screenX := x + px
		if g.spritePriority.GetOwner(screenX) != sprite {
			continue
		}

		bitIndex := uint8(7 - px)
		if flipX {
			bitIndex = uint8(px)
		}
		colorIndex := tilePixel(bitIndex, low, high)
		if colorIndex == 0 {
			continue // color 0 is always transparent for sprites
		}

		pos := lineBase + screenX
		if !aboveBG && g.bgPixelBuffer[pos] != 0 {
			continue // background wins when the sprite is marked behind it
		}

		g.framebuffer.buffer[pos] = g.paletteColor(paletteAddr, colorIndex)
	}
}
