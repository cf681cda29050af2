package render

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// LogEntry is a single captured log record, stripped down to what the
// terminal overlay displays.
type LogEntry struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Source  string
}

// LogBuffer is a fixed-capacity ring buffer of LogEntry, safe for concurrent
// use by a slog.Handler writer and a UI reader goroutine.
type LogBuffer struct {
	entries []LogEntry
	next    int // write cursor: index the next Add will occupy
	count   int
	mutex   sync.RWMutex
}

// NewLogBuffer creates a log buffer holding up to capacity entries.
func NewLogBuffer(capacity int) *LogBuffer {
	return &LogBuffer{entries: make([]LogEntry, capacity)}
}

// Add appends an entry, overwriting the oldest one once the buffer is full.
func (lb *LogBuffer) Add(entry LogEntry) {
	lb.mutex.Lock()
	defer lb.mutex.Unlock()

	lb.entries[lb.next] = entry
	lb.next = (lb.next + 1) % len(lb.entries)
	if lb.count < len(lb.entries) {
		lb.count++
	}
}

// GetRecent returns up to maxCount entries, most recent first. maxCount <= 0
// means "all buffered entries".
func (lb *LogBuffer) GetRecent(maxCount int) []LogEntry {
	lb.mutex.RLock()
	defer lb.mutex.RUnlock()

	if lb.count == 0 {
		return nil
	}

	n := lb.count
	if maxCount > 0 && maxCount < n {
		n = maxCount
	}

	result := make([]LogEntry, n)
	capacity := len(lb.entries)
	for i := range result {
		result[i] = lb.entries[(lb.next-1-i+capacity)%capacity]
	}
	return result
}

// Clear empties the buffer without reallocating it.
func (lb *LogBuffer) Clear() {
	lb.mutex.Lock()
	defer lb.mutex.Unlock()

	lb.count = 0
	lb.next = 0
}

// LogBufferHandler is a slog.Handler that captures logs to a LogBuffer
type LogBufferHandler struct {
	buffer *LogBuffer
	level  slog.Level
}

// NewLogBufferHandler creates a new handler that writes to the given buffer
func NewLogBufferHandler(buffer *LogBuffer, level slog.Level) *LogBufferHandler {
	return &LogBufferHandler{
		buffer: buffer,
		level:  level,
	}
}

// Enabled reports whether the handler handles records at the given level
func (h *LogBufferHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle flattens a log record's attributes into the message text and
// stores it in the buffer.
func (h *LogBufferHandler) Handle(_ context.Context, record slog.Record) error {
	source := ""
	if record.PC != 0 {
		source = "app"
	}

	message := record.Message
	record.Attrs(func(a slog.Attr) bool {
		message += fmt.Sprintf(" %s=%v", a.Key, a.Value)
		return true
	})

	h.buffer.Add(LogEntry{
		Time:    record.Time,
		Level:   record.Level,
		Message: message,
		Source:  source,
	})
	return nil
}

// WithAttrs and WithGroup don't track scoped state; the overlay only ever
// needs flat Handle calls, so both return the handler unchanged.
func (h *LogBufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }
func (h *LogBufferHandler) WithGroup(name string) slog.Handler      { return h }

// FormatLogEntry formats a log entry for display
func FormatLogEntry(entry LogEntry) string {
	levelStr := ""
	switch entry.Level {
	case slog.LevelDebug:
		levelStr = "DBG"
	case slog.LevelInfo:
		levelStr = "INF"
	case slog.LevelWarn:
		levelStr = "WRN"
	case slog.LevelError:
		levelStr = "ERR"
	default:
		levelStr = "???"
	}

	timeStr := entry.Time.Format("15:04:05")
	return fmt.Sprintf("%s [%s] %s", timeStr, levelStr, entry.Message)
}
