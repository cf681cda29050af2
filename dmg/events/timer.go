package events

import (
	"fmt"
	"log/slog"

	"github.com/halfblock/dmg/dmg/addr"
	"github.com/halfblock/dmg/dmg/memory"
)

// tacEnableBit is TAC bit 2: 0 disables TIMA counting entirely.
const tacEnableBit = 0x04

// tacFreqMask selects TAC's two clock-select bits.
const tacFreqMask = 0x03

// divPeriod is the cycle count between DIV increments (16384 Hz at the
// DMG's 4.194304 MHz clock).
const divPeriod = 256

// timaPeriodByTAC maps TAC's clock-select bits to the number of cycles
// between TIMA increments.
var timaPeriodByTAC = [4]int{
	0: 1024, // 4096 Hz
	1: 16,   // 262144 Hz
	2: 64,   // 65536 Hz
	3: 256,  // 16384 Hz
}

// overflowSequence tracks the 3-cycle TIMA overflow sequence: the cycle
// TIMA hit 0xFF and was zeroed, the cycle TMA gets loaded into TIMA, and
// the cycle the timer interrupt fires.
type overflowSequence struct {
	active         bool
	overflowCycle  uint64
	loadCycle      uint64
	interruptCycle uint64
}

// EventDrivenTimer drives DIV/TIMA/TMA/TAC register semantics by scheduling
// discrete events on an EventScheduler rather than ticking every cycle.
type EventDrivenTimer struct {
	memory *memory.MMU

	systemCounter    uint16
	nextDivIncrement uint64
	nextTimerTick    uint64
	overflow         overflowSequence
}

// NewEventDrivenTimer creates an event-driven timer bound to mem's DIV,
// TIMA, TMA and TAC registers.
func NewEventDrivenTimer(mem *memory.MMU) *EventDrivenTimer {
	return &EventDrivenTimer{
		memory:           mem,
		nextDivIncrement: divPeriod,
	}
}

// ScheduleEvents enqueues every DIV increment, TIMA tick, and pending
// overflow step that falls within the next `cycles` cycles.
func (t *EventDrivenTimer) ScheduleEvents(scheduler *EventScheduler, cycles int) {
	current := scheduler.GetCurrentCycle()
	end := current + uint64(cycles)

	for t.nextDivIncrement <= end {
		scheduler.Schedule(DivIncrement, t.nextDivIncrement, "div_increment")
		t.nextDivIncrement += divPeriod
	}

	if t.isTimerEnabled() {
		period := uint64(t.timaPeriod())
		if t.nextTimerTick == 0 {
			t.nextTimerTick = current + period
		}
		for t.nextTimerTick <= end {
			scheduler.Schedule(TimerTick, t.nextTimerTick, nil)
			t.nextTimerTick += period
		}
	}

	if t.overflow.active {
		if t.overflow.loadCycle <= end {
			scheduler.Schedule(TimerReload, t.overflow.loadCycle, nil)
		}
		if t.overflow.interruptCycle <= end {
			scheduler.Schedule(TimerInterrupt, t.overflow.interruptCycle, nil)
		}
	}
}

// ProcessDivIncrement advances the DIV register by one.
func (t *EventDrivenTimer) ProcessDivIncrement() {
	t.systemCounter++
	old := t.memory.Read(addr.DIV)
	// A bus write to DIV resets it, so the new value is set through the
	// MMU timer's seed instead.
	t.memory.SetTimerSeed(uint16(old+1) << 8)

	if old <= 5 || old%64 == 0 {
		slog.Debug("DIV increment", "old", fmt.Sprintf("0x%02X", old), "new", fmt.Sprintf("0x%02X", old+1), "system_counter", t.systemCounter)
	}
}

// ProcessTimerTick advances TIMA by one, entering the overflow sequence
// instead of wrapping if TIMA was already 0xFF.
func (t *EventDrivenTimer) ProcessTimerTick(scheduler *EventScheduler) {
	if !t.isTimerEnabled() {
		return
	}

	tima := t.memory.Read(addr.TIMA)
	if tima == 0xFF {
		t.beginOverflow(scheduler)
		return
	}

	next := tima + 1
	t.memory.Write(addr.TIMA, next)

	if tima <= 5 || tima%32 == 0 || next >= 0xF0 {
		slog.Debug("TIMA increment",
			"old", fmt.Sprintf("0x%02X", tima),
			"new", fmt.Sprintf("0x%02X", next),
			"tac", fmt.Sprintf("0x%02X", t.memory.Read(addr.TAC)),
			"frequency", t.timaPeriod(),
			"cycle", scheduler.GetCurrentCycle())
	}
}

// beginOverflow zeroes TIMA and schedules the TMA reload and interrupt
// that follow one and two cycles later respectively.
func (t *EventDrivenTimer) beginOverflow(scheduler *EventScheduler) {
	current := scheduler.GetCurrentCycle()
	t.overflow = overflowSequence{
		active:         true,
		overflowCycle:  current,
		loadCycle:      current + 1,
		interruptCycle: current + 2,
	}
	t.memory.Write(addr.TIMA, 0x00)

	slog.Debug("TIMA overflow starting",
		"cycle", current,
		"tma", fmt.Sprintf("0x%02X", t.memory.Read(addr.TMA)),
		"tac", fmt.Sprintf("0x%02X", t.memory.Read(addr.TAC)))

	scheduler.Schedule(TimerReload, t.overflow.loadCycle, nil)
	scheduler.Schedule(TimerInterrupt, t.overflow.interruptCycle, nil)
}

// ProcessTimerReload loads TMA into TIMA, the middle step of the overflow
// sequence.
func (t *EventDrivenTimer) ProcessTimerReload() {
	if !t.overflow.active {
		return
	}
	tma := t.memory.Read(addr.TMA)
	t.memory.Write(addr.TIMA, tma)
	slog.Debug("TIMA reload from TMA", "tma_value", fmt.Sprintf("0x%02X", tma), "load_cycle", t.overflow.loadCycle)
}

// ProcessTimerInterrupt requests the timer interrupt and closes out the
// overflow sequence.
func (t *EventDrivenTimer) ProcessTimerInterrupt() {
	if !t.overflow.active {
		return
	}
	t.memory.RequestInterrupt(addr.TimerInterrupt)
	slog.Debug("Timer interrupt requested", "interrupt_cycle", t.overflow.interruptCycle, "IF", fmt.Sprintf("0x%02X", t.memory.Read(addr.IF)))
	t.overflow.active = false
}

// HandleTimaWrite applies the hardware quirks of writing TIMA mid-overflow:
// a write on the overflow cycle cancels the pending reload/interrupt, a
// write on the load cycle is ignored outright, and any other write
// reschedules the next regular tick from here.
func (t *EventDrivenTimer) HandleTimaWrite(scheduler *EventScheduler, value uint8) {
	current := scheduler.GetCurrentCycle()

	if t.overflow.active {
		switch current {
		case t.overflow.overflowCycle:
			t.overflow.active = false
		case t.overflow.loadCycle:
			return
		}
	}

	t.nextTimerTick = current + uint64(t.timaPeriod())
}

// HandleTacWrite reschedules the next TIMA tick after TAC changes the
// timer's enable bit or clock-select bits.
func (t *EventDrivenTimer) HandleTacWrite(scheduler *EventScheduler, oldValue, newValue uint8) {
	if newValue&tacEnableBit != 0 {
		t.nextTimerTick = scheduler.GetCurrentCycle() + uint64(t.timaPeriod())
	} else {
		t.nextTimerTick = 0
	}
}

// HandleDivWrite resets DIV and the internal system counter to zero, as
// any write to DIV does on real hardware regardless of the written value.
func (t *EventDrivenTimer) HandleDivWrite(scheduler *EventScheduler) {
	t.memory.Write(addr.DIV, 0x00)
	t.systemCounter = 0
	t.nextDivIncrement = scheduler.GetCurrentCycle() + divPeriod
}

func (t *EventDrivenTimer) isTimerEnabled() bool {
	return t.memory.Read(addr.TAC)&tacEnableBit != 0
}

func (t *EventDrivenTimer) timaPeriod() int {
	return timaPeriodByTAC[t.memory.Read(addr.TAC)&tacFreqMask]
}
