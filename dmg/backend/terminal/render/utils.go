// Package render holds terminal-backend-specific rendering helpers: the
// shade/half-block conversion (delegated to the shared dmg/render package)
// plus the in-memory log buffer the debug overlay reads from.
package render

import sharedrender "github.com/halfblock/dmg/dmg/render"

// PixelToShade converts a framebuffer pixel to a 0-3 DMG shade index.
func PixelToShade(pixel uint32) int {
	return sharedrender.PixelToShade(pixel)
}

// GetHalfBlockChar picks the half-block glyph for a pair of stacked shades.
func GetHalfBlockChar(topShade, bottomShade int) rune {
	return sharedrender.GetHalfBlockChar(topShade, bottomShade)
}
