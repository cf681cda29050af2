package debug

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/halfblock/dmg/dmg/display"
	"github.com/halfblock/dmg/dmg/video"
)

// TakeSnapshot handles F12 snapshot logic for backends
func TakeSnapshot(frame *video.FrameBuffer, isTestPattern bool, testPatternType int) {
	if frame == nil {
		slog.Warn("No frame data available for snapshot")
		return
	}

	var baseName string
	if isTestPattern {
		patternNames := []string{"checkerboard", "gradient", "stripes", "diagonal"}
		baseName = fmt.Sprintf("dmg_snapshot_%s", patternNames[testPatternType])
	} else {
		baseName = "dmg_snapshot"
	}

	if err := SaveFramePNGToDir(frame, baseName, ""); err != nil {
		slog.Error("Failed to save snapshot", "error", err)
	}
}

// SaveFramePNGToDir saves a framebuffer as PNG with timestamp to a specific directory
func SaveFramePNGToDir(frame *video.FrameBuffer, baseName, directory string) error {
	frameData := frame.ToSlice()

	// Convert framebuffer to RGBA
	pixels := make([]byte, video.FramebufferWidth*video.FramebufferHeight*display.RGBABytesPerPixel)
	for i, gbPixel := range frameData {
		idx := i * display.RGBABytesPerPixel
		r, g, b, a := gbPixelToRGBA(gbPixel)
		pixels[idx] = byte(r)
		pixels[idx+1] = byte(g)
		pixels[idx+2] = byte(b)
		pixels[idx+3] = byte(a)
	}

	img := image.NewRGBA(image.Rect(0, 0, video.FramebufferWidth, video.FramebufferHeight))
	copy(img.Pix, pixels)

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("%s_%s.png", baseName, timestamp)

	// Determine output directory
	var outputDir string
	if directory != "" {
		outputDir = directory
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %v", err)
		}
		outputDir = cwd
	}

	filePath := filepath.Join(outputDir, filename)
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %v", filePath, err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("failed to encode PNG: %v", err)
	}

	slog.Info("Snapshot saved", "path", filePath, "size", fmt.Sprintf("%dx%d", video.FramebufferWidth, video.FramebufferHeight), "format", "PNG")
	return nil
}

// eightBitGray maps each DMG shade to an 8-bit grayscale level, used for
// the PNG snapshot paths below.
var eightBitGray = map[video.GBColor]uint8{
	video.BlackColor:     0,
	video.DarkGreyColor:  85,
	video.LightGreyColor: 170,
	video.WhiteColor:     255,
}

// SaveFrameGrayPNG saves a framebuffer as a grayscale PNG (used in integration tests)
func SaveFrameGrayPNG(frame *video.FrameBuffer, filepath string) error {
	img := image.NewGray(image.Rect(0, 0, video.FramebufferWidth, video.FramebufferHeight))

	frameData := frame.ToSlice()
	for y := range video.FramebufferHeight {
		for x := range video.FramebufferWidth {
			pixel := video.GBColor(frameData[y*video.FramebufferWidth+x])
			img.SetGray(x, y, color.Gray{eightBitGray[pixel]})
		}
	}

	file, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer file.Close()

	return png.Encode(file, img)
}

// gbColorRGBA maps each DMG shade to its RGBA quad for the color PNG path.
var gbColorRGBA = map[video.GBColor][4]uint32{
	video.WhiteColor:     {display.GrayscaleWhite, display.GrayscaleWhite, display.GrayscaleWhite, display.FullAlpha},
	video.LightGreyColor: {display.GrayscaleLightGray, display.GrayscaleLightGray, display.GrayscaleLightGray, display.FullAlpha},
	video.DarkGreyColor:  {display.GrayscaleDarkGray, display.GrayscaleDarkGray, display.GrayscaleDarkGray, display.FullAlpha},
	video.BlackColor:     {display.GrayscaleBlack, display.GrayscaleBlack, display.GrayscaleBlack, display.FullAlpha},
}

// gbPixelToRGBA converts a Game Boy pixel to RGBA, falling back to a
// red-channel-derived grayscale for non-standard values like test-pattern
// gradients that don't map onto the 4 real DMG shades.
func gbPixelToRGBA(gbPixel uint32) (r, g, b, a uint32) {
	if quad, ok := gbColorRGBA[video.GBColor(gbPixel)]; ok {
		return quad[0], quad[1], quad[2], quad[3]
	}
	red := (gbPixel >> display.RGBARShift) & display.RGBAColorMask
	return red, red, red, display.FullAlpha
}
