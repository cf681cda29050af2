package serial

import (
	"log/slog"

	"github.com/halfblock/dmg/dmg/addr"
	"github.com/halfblock/dmg/dmg/bit"
)

// maxBufferedLine caps how many bytes LogSink accumulates between newlines,
// so a ROM that spams SB without ever sending '\n' can't grow the buffer
// unbounded.
const maxBufferedLine = 4096

// LogSink is a serial peripheral with nothing on the other end of the
// cable: every byte a ROM transmits is logged as text instead of being
// delivered to a peer. Useful for test ROMs (Blargg's suite among them)
// that report pass/fail by writing ASCII to the serial port.
type LogSink struct {
	irqHandler func()
	logger     *slog.Logger

	sb, sc         byte
	transferActive bool
	cyclesLeft     int

	immediateCompletion bool
	idleReadValue       byte // SB value left after a transfer completes

	line []byte
}

type LogSinkOption func(*LogSink)

// WithFixedTiming makes transfers complete after the real ~4096-cycle
// per-byte delay instead of instantly, for code that depends on serial
// timing rather than just the transferred byte.
func WithFixedTiming() LogSinkOption {
	return func(s *LogSink) { s.immediateCompletion = false }
}

// NewLogSink creates a logging serial device. irq is invoked once per
// completed transfer and should request the Serial interrupt.
func NewLogSink(irq func(), opts ...LogSinkOption) *LogSink {
	s := &LogSink{
		irqHandler:          irq,
		logger:              slog.Default(),
		immediateCompletion: true,
		idleReadValue:       0xFF,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Reset()
	return s
}

func (s *LogSink) Write(address uint16, value byte) {
	switch address {
	case addr.SB:
		s.sb = value
	case addr.SC:
		s.sc = value
		s.tryStartTransfer()
	default:
		panic("serial.LogSink: invalid write address")
	}
}

func (s *LogSink) Read(address uint16) byte {
	switch address {
	case addr.SB:
		return s.sb
	case addr.SC:
		return s.sc
	default:
		panic("serial.LogSink: invalid read address")
	}
}

func (s *LogSink) Tick(cycles int) {
	if s.immediateCompletion || !s.transferActive {
		return
	}
	s.cyclesLeft -= cycles
	if s.cyclesLeft <= 0 {
		s.cyclesLeft = 0
		s.finishTransfer()
	}
}

func (s *LogSink) Reset() {
	s.sb = 0
	s.sc = 0
	s.transferActive = false
	s.cyclesLeft = 0
	s.line = s.line[:0]
}

func (s *LogSink) transferRequested() bool {
	// A transfer starts when SC's start bit (7) and internal-clock bit (0)
	// are both set.
	return bit.IsSet(7, s.sc) && bit.IsSet(0, s.sc)
}

func (s *LogSink) tryStartTransfer() {
	if s.transferActive || !s.transferRequested() {
		return
	}

	s.bufferOutgoingByte(s.sb)

	if s.immediateCompletion {
		s.finishTransfer()
		return
	}

	s.transferActive = true
	s.cyclesLeft = 4096 // DMG's 8192 Hz serial clock, one bit every 512 cycles, 8 bits
}

// bufferOutgoingByte accumulates every byte other than 0, '\n' and '\r',
// and flushes a log line on any of those three (or when the buffer would
// otherwise grow unbounded).
func (s *LogSink) bufferOutgoingByte(b byte) {
	if b == 0 || b == '\n' || b == '\r' {
		s.flushLine()
		return
	}

	s.line = append(s.line, b)
	if len(s.line) >= maxBufferedLine {
		s.flushLine()
	}
}

func (s *LogSink) flushLine() {
	if len(s.line) == 0 {
		return
	}
	s.logger.Info("serial", "line", string(s.line))
	s.line = s.line[:0]
}

func (s *LogSink) finishTransfer() {
	s.sb = s.idleReadValue
	s.sc = bit.Reset(7, s.sc) // clear the start bit to signal completion
	s.transferActive = false
	if s.irqHandler != nil {
		s.irqHandler()
	}
}
