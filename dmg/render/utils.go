// Package render holds frame-buffer-to-text conversion shared by the
// terminal backend and any other text-mode consumer (snapshot dumps, tests).
package render

// whitePixel is the RGBA value SetPixel writes for an off/white DMG shade;
// used to pad a missing row when height is odd.
const whitePixel = 0xFFFFFFFF

// PixelToShade maps one of the four DMG grayscale RGBA values to a 0-3 shade
// index (0 = black, 3 = white). Anything else maps to black.
func PixelToShade(pixel uint32) int {
	switch pixel {
	case 0x000000FF:
		return 0
	case 0x4C4C4CFF:
		return 1
	case 0x989898FF:
		return 2
	case whitePixel:
		return 3
	default:
		return 0
	}
}

// GetHalfBlockChar picks the Unicode block character that renders a pair of
// vertically stacked shades as one terminal cell using half-block glyphs.
func GetHalfBlockChar(topShade, bottomShade int) rune {
	switch {
	case topShade == bottomShade:
		return '█'
	case topShade == 3 && bottomShade != 3:
		return '▄'
	default:
		return '▀'
	}
}

// RenderFrameToHalfBlocks packs a width x height frame buffer into
// ceil(height/2) lines of half-block characters, two pixel rows per
// terminal row.
func RenderFrameToHalfBlocks(frame []uint32, width, height int) []string {
	if len(frame) < width*height {
		return []string{}
	}

	textHeight := (height + 1) / 2
	lines := make([]string, textHeight)

	for textRow := range lines {
		topRow := textRow * 2
		bottomRow := topRow + 1

		line := make([]rune, width)
		for x := 0; x < width; x++ {
			top, bottom := uint32(whitePixel), uint32(whitePixel)
			if topRow < height {
				top = frame[topRow*width+x]
			}
			if bottomRow < height {
				bottom = frame[bottomRow*width+x]
			}
			line[x] = GetHalfBlockChar(PixelToShade(top), PixelToShade(bottom))
		}
		lines[textRow] = string(line)
	}

	return lines
}
