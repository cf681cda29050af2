package headless_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/halfblock/dmg/dmg/backend"
	"github.com/halfblock/dmg/dmg/backend/headless"
	"github.com/halfblock/dmg/dmg/input/action"
	"github.com/halfblock/dmg/dmg/input/event"
	"github.com/halfblock/dmg/dmg/video"
)

func initHeadless(t *testing.T, frames int, testPattern bool) *headless.Backend {
	t.Helper()
	h := headless.New(frames, headless.SnapshotConfig{})
	err := h.Init(backend.BackendConfig{Title: "Test", TestPattern: testPattern})
	assert.NoError(t, err)
	return h
}

func TestHeadlessBackend(t *testing.T) {
	t.Run("normal operation", func(t *testing.T) {
		h := initHeadless(t, 3, false)
		frame := video.NewFrameBuffer()

		// Run for 3 frames
		for i := 0; i < 3; i++ {
			events, err := h.Update(frame)
			assert.NoError(t, err)

			if i < 2 {
				// Should not quit before reaching max frames
				assert.Empty(t, events)
			} else {
				// Should send quit event on last frame
				assert.Len(t, events, 1)
				assert.Equal(t, action.EmulatorQuit, events[0].Action)
				assert.Equal(t, event.Press, events[0].Type)
			}
		}

		// Cleanup
		err = h.Cleanup()
		assert.NoError(t, err)
	})

	t.Run("test pattern mode", func(t *testing.T) {
		h := initHeadless(t, 1, true)
		frame := video.NewFrameBuffer()

		// Should quit immediately in test pattern mode
		events, err := h.Update(frame)
		assert.NoError(t, err)
		assert.Len(t, events, 1)
		assert.Equal(t, action.EmulatorQuit, events[0].Action)

		err = h.Cleanup()
		assert.NoError(t, err)
	})
}

func TestHeadlessImplementsBackend(t *testing.T) {
	// Compile-time check that headless.Backend implements backend.Backend
	var _ backend.Backend = (*headless.Backend)(nil)
}
