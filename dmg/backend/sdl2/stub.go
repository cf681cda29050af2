//go:build !sdl2

package sdl2

import (
	"fmt"

	"github.com/halfblock/dmg/dmg/backend"
	"github.com/halfblock/dmg/dmg/debug"
	"github.com/halfblock/dmg/dmg/input/action"
	"github.com/halfblock/dmg/dmg/video"
)

var errSDL2Unavailable = fmt.Errorf("SDL2 backend not available - build with -tags sdl2 to enable")

// Backend is a no-op placeholder used when the sdl2 build tag is absent.
type Backend struct{}

// New creates a stub SDL2 backend that returns an error
func New() *Backend {
	return &Backend{}
}

// Init returns an error indicating SDL2 is not available
func (s *Backend) Init(config backend.BackendConfig) error {
	return errSDL2Unavailable
}

// Update returns an error
func (s *Backend) Update(frame *video.FrameBuffer) ([]backend.InputEvent, error) {
	return nil, errSDL2Unavailable
}

// Cleanup does nothing
func (s *Backend) Cleanup() error {
	return nil
}

// UpdateDebugData does nothing
func (s *Backend) UpdateDebugData(data *debug.CompleteDebugData) {
	// No-op
}

// ToggleDebugWindow does nothing
func (s *Backend) ToggleDebugWindow() {
	// No-op
}

// HandleAction does nothing
func (s *Backend) HandleAction(act action.Action) {
	// No-op
}
