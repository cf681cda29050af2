package video

import "math/rand"

type GBColor uint32

const (
	FramebufferWidth  = 160
	FramebufferHeight = 144
	FramebufferSize   = FramebufferWidth * FramebufferHeight
)

const (
	WhiteColor     GBColor = 0xFFFFFFFF
	LightGreyColor         = 0x989898FF
	DarkGreyColor          = 0x4C4C4CFF
	BlackColor             = 0x000000FF
)

// shadePalette maps a DMG 2-bit shade index (0=white..3=black) to its RGBA
// GBColor, and back via indexOfShade.
var shadePalette = [4]GBColor{WhiteColor, LightGreyColor, DarkGreyColor, BlackColor}

func ByteToColor(value byte) GBColor {
	if int(value) >= len(shadePalette) {
		return 0
	}
	return shadePalette[value]
}

func indexOfShade(color GBColor) (byte, bool) {
	for i, c := range shadePalette {
		if c == color {
			return byte(i), true
		}
	}
	return 0, false
}

type FrameBuffer struct {
	width  uint
	height uint
	buffer []uint32
}

func NewFrameBuffer() *FrameBuffer {
	colorSlice := make([]uint32, FramebufferSize)

	return &FrameBuffer{
		width:  FramebufferWidth,
		height: FramebufferHeight,
		buffer: colorSlice,
	}
}

func (fb FrameBuffer) GetPixel(x, y uint) uint32 {
	return fb.buffer[y*fb.width+x]
}

func (fb *FrameBuffer) SetPixel(x, y uint, color GBColor) {
	fb.buffer[y*fb.width+x] = uint32(color)
}

func (fb *FrameBuffer) ToSlice() []uint32 {
	return fb.buffer
}

// Clear resets the framebuffer to a black screen.
func (fb *FrameBuffer) Clear() {
	for i := range fb.buffer {
		fb.buffer[i] = 0
	}
}

// DrawNoise fills the buffer with random DMG shades, useful as a smoke test
// for renderers before real PPU output is wired up.
func (fb *FrameBuffer) DrawNoise() {
	for i := range fb.buffer {
		fb.buffer[i] = uint32(shadePalette[rand.Uint32()%uint32(len(shadePalette))])
	}
}

// ToBinaryData returns the framebuffer as raw binary data for test comparison
func (fb *FrameBuffer) ToBinaryData() []byte {
	data := make([]byte, len(fb.buffer)*4)
	for i, pixel := range fb.buffer {
		// Convert uint32 pixel to 4 bytes (RGBA format)
		data[i*4] = byte(pixel >> 24)   // R
		data[i*4+1] = byte(pixel >> 16) // G
		data[i*4+2] = byte(pixel >> 8)  // B
		data[i*4+3] = byte(pixel)       // A
	}
	return data
}

// ToGrayscale converts the framebuffer to grayscale values for simpler comparison
func (fb *FrameBuffer) ToGrayscale() []byte {
	data := make([]byte, len(fb.buffer))
	for i, pixel := range fb.buffer {
		shade, _ := indexOfShade(GBColor(pixel))
		data[i] = shade
	}
	return data
}
