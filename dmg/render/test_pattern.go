package render

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/halfblock/dmg/dmg/video"
)

const (
	// Test pattern constants
	testPatternCount = 4
	targetFPS        = 60
	animationFrames  = 30
	
	// Pattern generation constants
	checkerboardTileSize = 8
	stripeWidth          = 4
	diagonalTileSize     = 8
	
	// Display positioning
	displayOffsetX = 5
	displayOffsetY = 2
	verticalScale  = 2  // Skip every other line
	
	// Color thresholds for shade mapping
	shade1Threshold = 64
	shade2Threshold = 128
	shade3Threshold = 192
	maxColorValue   = 255
	
	// Animation speeds
	stripeAnimationSpeed   = 2
	diagonalAnimationSpeed = 4
)

// shadeChars maps a shade index (0 = black .. 3 = white) to the glyph drawn
// in white on the terminal's black background.
var shadeChars = []rune{' ', '░', '▒', '█'}

// RunTestPattern displays a test pattern to verify the rendering pipeline
func RunTestPattern() error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}

	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	screen.Clear()

	slog.Info("Starting test pattern display")

	// Create a test framebuffer, starting on the checkerboard pattern.
	fb := video.NewFrameBuffer()
	updatePattern(fb, 0)

	// Main loop
	running := true
	patternType := 0
	frameCount := 0
	
	go func() {
		for running {
			ev := screen.PollEvent()
			switch ev := ev.(type) {
			case *tcell.EventKey:
				switch ev.Key() {
				case tcell.KeyEscape, tcell.KeyCtrlC:
					running = false
					return
				case tcell.KeyRune:
					switch ev.Rune() {
					case ' ':
						// Cycle through patterns
						patternType = (patternType + 1) % testPatternCount
						updatePattern(fb, patternType)
					}
				}
			case *tcell.EventResize:
				screen.Sync()
			}
		}
	}()

	ticker := time.NewTicker(time.Second / targetFPS)
	defer ticker.Stop()

	for running {
		select {
		case <-ticker.C:
			frameCount++
			
			// Animate the pattern
			if frameCount%animationFrames == 0 {
				animatePattern(fb, patternType, frameCount/animationFrames)
			}
			
			// Draw the framebuffer
			drawTestFramebuffer(screen, fb)
			
			// Draw info text
			termWidth, termHeight := screen.Size()
			info := "Test Pattern Mode - Press SPACE to change pattern, ESC to exit"
			for i, ch := range info {
				if i < termWidth {
					screen.SetContent(i, termHeight-1, ch, nil, tcell.StyleDefault.Foreground(tcell.ColorYellow))
				}
			}
			
			patternName := []string{"Checkerboard", "Gradient", "Stripes", "Diagonal"}[patternType]
			status := "Pattern: " + patternName + " | Frame: " + strconv.Itoa(frameCount)
			for i, ch := range status {
				if i < termWidth {
					screen.SetContent(i, 0, ch, nil, tcell.StyleDefault.Foreground(tcell.ColorGreen))
				}
			}
			
			screen.Show()
		}
	}

	return nil
}

func drawTestFramebuffer(screen tcell.Screen, fb *video.FrameBuffer) {
	frame := fb.ToSlice()
	
	for y := 0; y < video.FramebufferHeight; y++ {
		for x := 0; x < video.FramebufferWidth; x++ {
			pixel := frame[y*video.FramebufferWidth+x]
			
			// Convert to shade character
			shade := 0
			switch pixel {
			case uint32(video.BlackColor):
				shade = 0
			case uint32(video.DarkGreyColor):
				shade = 1
			case uint32(video.LightGreyColor):
				shade = 2
			case uint32(video.WhiteColor):
				shade = 3
			default:
				// For test pattern, map intermediate values
				r := (pixel >> 24) & 0xFF
				if r < shade1Threshold {
					shade = 0
				} else if r < shade2Threshold {
					shade = 1
				} else if r < shade3Threshold {
					shade = 2
				} else {
					shade = 3
				}
			}
			
			char := shadeChars[shade]
			style := tcell.StyleDefault.Foreground(tcell.ColorWhite)
			
			// Draw at position with some offset for visibility
			screenX := x + displayOffsetX
			screenY := y/verticalScale + displayOffsetY // Compress vertically for terminal
			
			if y%verticalScale == 0 { // Skip every other line for terminal aspect ratio
				screen.SetContent(screenX, screenY, char, nil, style)
			}
		}
	}
}

// fillPattern paints every pixel of fb by calling colorAt(x, y) for each
// coordinate, the shared iteration shape behind every test pattern.
func fillPattern(fb *video.FrameBuffer, colorAt func(x, y int) uint32) {
	for y := 0; y < video.FramebufferHeight; y++ {
		for x := 0; x < video.FramebufferWidth; x++ {
			fb.SetPixel(uint(x), uint(y), video.GBColor(colorAt(x, y)))
		}
	}
}

func checkerboardColor(x, y, tileSize int) uint32 {
	if ((x/tileSize)+(y/tileSize))%2 == 0 {
		return uint32(video.WhiteColor)
	}
	return uint32(video.BlackColor)
}

func stripeColor(x, width int) uint32 {
	if (x/width)%2 == 0 {
		return uint32(video.WhiteColor)
	}
	return uint32(video.DarkGreyColor)
}

func diagonalColor(x, y, phase, tileSize int) uint32 {
	if ((x+y+phase)/tileSize)%2 == 0 {
		return uint32(video.LightGreyColor)
	}
	return uint32(video.DarkGreyColor)
}

func updatePattern(fb *video.FrameBuffer, patternType int) {
	switch patternType {
	case 0: // Checkerboard
		fillPattern(fb, func(x, y int) uint32 { return checkerboardColor(x, y, checkerboardTileSize) })
	case 1: // Gradient
		fillPattern(fb, func(x, y int) uint32 {
			gray := uint32(x * maxColorValue / video.FramebufferWidth)
			return (gray << 24) | (gray << 16) | (gray << 8) | maxColorValue
		})
	case 2: // Vertical stripes
		fillPattern(fb, func(x, y int) uint32 { return stripeColor(x, stripeWidth) })
	case 3: // Diagonal lines
		fillPattern(fb, func(x, y int) uint32 { return diagonalColor(x, y, 0, diagonalTileSize) })
	}
}

// animatePattern advances the stripe/diagonal patterns by frame steps; the
// checkerboard and gradient patterns are static and ignore it.
func animatePattern(fb *video.FrameBuffer, patternType int, frame int) {
	switch patternType {
	case 2:
		fillPattern(fb, func(x, y int) uint32 { return stripeColor(x+frame*stripeAnimationSpeed, stripeWidth) })
	case 3:
		fillPattern(fb, func(x, y int) uint32 { return diagonalColor(x, y, frame*diagonalAnimationSpeed, diagonalTileSize) })
	}
}