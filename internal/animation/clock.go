package animation

import "time"

// Clock supplies the time used by the rate estimator.
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// WallClock returns the system clock.
func WallClock() Clock { return wallClock{} }

// Ticker is a one-shot tick source. The controller re-arms it with Reset
// after every tick, so a period change applies from the next tick on.
type Ticker interface {
	C() <-chan time.Time
	Reset(d time.Duration)
	Stop()
}

type timerTicker struct {
	t *time.Timer
}

// NewTimerTicker returns a stopped Ticker backed by time.Timer.
func NewTimerTicker() Ticker {
	t := time.NewTimer(time.Hour)
	t.Stop()
	return &timerTicker{t: t}
}

func (t *timerTicker) C() <-chan time.Time   { return t.t.C }
func (t *timerTicker) Reset(d time.Duration) { t.t.Reset(d) }
func (t *timerTicker) Stop()                 { t.t.Stop() }
