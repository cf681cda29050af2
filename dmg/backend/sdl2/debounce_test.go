//go:build sdl2

package sdl2

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/halfblock/dmg/dmg/backend"
	"github.com/halfblock/dmg/dmg/input"
	"github.com/halfblock/dmg/dmg/input/action"
	"github.com/halfblock/dmg/dmg/input/event"
	"github.com/halfblock/dmg/dmg/video"
)

func TestSDL2Backend_DebugToggleDebouncing(t *testing.T) {
	b := New()

	err := b.Init(backend.BackendConfig{
		Title: "Test",
		Scale: 1,
	})
	require.NoError(t, err)
	defer b.Cleanup()

	handler := input.NewHandler()
	frame := video.NewFrameBuffer()

	// The handler debounces EmulatorDebugToggle the same way it would a
	// rapid F11 press; HandleAction itself only fires for events that
	// survive ProcessEvent, so only the first of these should toggle.
	toggleCount := 0
	for i := 0; i < 5; i++ {
		events, err := b.Update(frame)
		require.NoError(t, err)
		assert.Empty(t, events, "No events without SDL input")

		testEvent := backend.InputEvent{Action: action.EmulatorDebugToggle, Type: event.Press}
		if handler.ProcessEvent(testEvent) {
			b.HandleAction(testEvent.Action)
			toggleCount++
		}

		if i == 0 {
			assert.Equal(t, 1, toggleCount, "First press should be processed")
		} else {
			assert.Equal(t, 1, toggleCount, "Rapid presses should be debounced")
		}

		time.Sleep(50 * time.Millisecond)
	}
}

func TestSDL2Backend_EventFlow(t *testing.T) {
	// Create backend
	b := New()

	// Initialize
	err := b.Init(backend.BackendConfig{
		Title: "Test",
		Scale: 1,
	})
	require.NoError(t, err)
	defer b.Cleanup()

	// Create a test frame
	frame := video.NewFrameBuffer()

	// Without an event channel, we can't inject events directly
	// Just verify that Update works without errors

	// Update should work without errors
	events, err := b.Update(frame)
	require.NoError(t, err)

	// No events without actual SDL input
	assert.Empty(t, events, "No events without SDL input")
}
