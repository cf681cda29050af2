package video

// LayerFramebuffer represents a single rendering layer's framebuffer
type LayerFramebuffer struct {
	Buffer []uint32 // RGBA pixels, same format as main framebuffer
	Width  int
	Height int
}

// RenderLayers contains separate framebuffers for each rendering layer
type RenderLayers struct {
	Background *LayerFramebuffer // 256x256 full tilemap
	Window     *LayerFramebuffer // 256x256 full tilemap
	Sprites    *LayerFramebuffer // 160x144 sprite layer
	Enabled    bool              // Whether layer rendering is active
}

func newLayerFramebuffer(width, height int) *LayerFramebuffer {
	return &LayerFramebuffer{
		Buffer: make([]uint32, width*height),
		Width:  width,
		Height: height,
	}
}

// NewRenderLayers creates a new set of render layer framebuffers. Background
// and Window cover the full 256x256 tilemap; Sprites is screen-sized since
// sprites are already composited to viewport coordinates.
func NewRenderLayers() *RenderLayers {
	return &RenderLayers{
		Background: newLayerFramebuffer(256, 256),
		Window:     newLayerFramebuffer(256, 256),
		Sprites:    newLayerFramebuffer(FramebufferWidth, FramebufferHeight),
	}
}

// Clear resets all layer framebuffers to transparent black (0x00000000);
// it does nothing while Enabled is false.
func (r *RenderLayers) Clear() {
	if !r.Enabled {
		return
	}
	for _, layer := range []*LayerFramebuffer{r.Background, r.Window, r.Sprites} {
		for i := range layer.Buffer {
			layer.Buffer[i] = 0
		}
	}
}
