package input

import (
	"time"

	"github.com/halfblock/dmg/dmg/backend"
	"github.com/halfblock/dmg/dmg/input/action"
	"github.com/halfblock/dmg/dmg/input/event"
)

// defaultDebounceDelay suppresses duplicate Press events arriving faster
// than a human could plausibly repeat a keypress (controller/keyboard
// bounce, or a backend that fires both on key-repeat).
const defaultDebounceDelay = 300 * time.Millisecond

// Handler debounces Press events per action, for actions whose
// ActionInfo.Debounce is set. Release and Hold events, and Press events of
// actions without Debounce (the Game Boy buttons), pass through untouched.
type Handler struct {
	lastFired map[action.Action]time.Time
	delay     time.Duration
}

func NewHandler() *Handler {
	return &Handler{
		lastFired: make(map[action.Action]time.Time),
		delay:     defaultDebounceDelay,
	}
}

// ProcessEvent reports whether evt should be delivered, false if it's a
// Press of a debounced action repeating within the debounce window.
func (h *Handler) ProcessEvent(evt backend.InputEvent) bool {
	if evt.Type != event.Press || !action.GetInfo(evt.Action).Debounce {
		return true
	}

	now := time.Now()
	if last, seen := h.lastFired[evt.Action]; seen && now.Sub(last) < h.delay {
		return false
	}
	h.lastFired[evt.Action] = now
	return true
}
