package timing

import "time"

// TickerLimiter paces frames off a time.Ticker. Coarser than AdaptiveLimiter
// (subject to Go's scheduler granularity) but simpler, and fine when exact
// frame pacing doesn't matter.
type TickerLimiter struct {
	ticker *time.Ticker
}

func NewTickerLimiter() *TickerLimiter {
	return &TickerLimiter{ticker: time.NewTicker(FrameDuration())}
}

func (t *TickerLimiter) WaitForNextFrame() {
	<-t.ticker.C
}

func (t *TickerLimiter) Reset() {
	t.ticker.Reset(FrameDuration())
}

func (t *TickerLimiter) Stop() {
	t.ticker.Stop()
}
