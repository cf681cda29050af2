package timing

import (
	"log/slog"
	"time"
)

// AdaptiveLimiter uses precise timing with drift compensation.
// Combines sleep for efficiency with busy-waiting for accuracy.
type AdaptiveLimiter struct {
	targetFrameTime time.Duration
	nextFrameTime   time.Time
	frameCounter    int64
}

func NewAdaptiveLimiter() *AdaptiveLimiter {
	return &AdaptiveLimiter{
		targetFrameTime: FrameDuration(),
		nextFrameTime:   time.Now(),
	}
}

// busyWaitThreshold is the point below which we skip time.Sleep entirely:
// the OS scheduler's granularity makes sleeping for less than this too
// imprecise, so a tight spin loop gets closer to the deadline.
const busyWaitThreshold = 2 * time.Millisecond

// driftResyncThreshold is how far behind nextFrameTime must be before we
// give up catching up and just resync to now, rather than burning cycles
// trying to replay missed frames back-to-back.
const driftResyncThreshold = -5 * time.Millisecond

// driftCorrectionInterval is how many frames pass between drift samples.
const driftCorrectionInterval = 60

// driftCorrectionThreshold is how far actual time must diverge from the
// schedule, sampled every driftCorrectionInterval frames, before a
// correction is applied.
const driftCorrectionThreshold = 10 * time.Millisecond

func (a *AdaptiveLimiter) WaitForNextFrame() {
	now := time.Now()
	remaining := a.nextFrameTime.Sub(now)

	switch {
	case remaining > busyWaitThreshold:
		time.Sleep(remaining - time.Millisecond)
		spinUntil(a.nextFrameTime)
	case remaining > 0:
		spinUntil(a.nextFrameTime)
	case remaining < driftResyncThreshold:
		a.nextFrameTime = now
	}

	a.nextFrameTime = a.nextFrameTime.Add(a.targetFrameTime)
	a.frameCounter++

	if a.frameCounter%driftCorrectionInterval == 0 {
		a.correctDrift()
	}
}

func spinUntil(deadline time.Time) {
	for time.Now().Before(deadline) {
	}
}

// correctDrift nudges nextFrameTime toward actual elapsed time when the two
// have diverged by more than driftCorrectionThreshold, moving it by
// 1/driftCorrectionInterval of the drift per sample instead of snapping.
func (a *AdaptiveLimiter) correctDrift() {
	actualTime := time.Now()
	drift := actualTime.Sub(a.nextFrameTime)
	if drift.Abs() <= driftCorrectionThreshold {
		return
	}

	a.nextFrameTime = a.nextFrameTime.Add(drift / driftCorrectionInterval)
	elapsedSinceStart := actualTime.Sub(a.nextFrameTime.Add(-time.Duration(a.frameCounter) * a.targetFrameTime))
	slog.Debug("frame timing drift correction",
		"drift_ms", drift.Milliseconds(),
		"fps", float64(a.frameCounter)*float64(time.Second)/float64(elapsedSinceStart))
}

func (a *AdaptiveLimiter) Reset() {
	a.nextFrameTime = time.Now()
	a.frameCounter = 0
}
