package animation

import (
	"sync"
	"time"
)

// FakeClock is a Clock that only moves when told to.
type FakeClock struct {
	mu  sync.RWMutex
	now time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ManualTicker is a Ticker fired explicitly with Fire. It records the
// period of the last Reset.
type ManualTicker struct {
	mu     sync.Mutex
	c      chan time.Time
	armed  bool
	cancel chan struct{}
	period time.Duration
	clock  Clock
}

// NewManualTicker returns a stopped ticker. Fired ticks carry clock.Now();
// a nil clock uses the wall clock.
func NewManualTicker(clock Clock) *ManualTicker {
	if clock == nil {
		clock = WallClock()
	}
	return &ManualTicker{c: make(chan time.Time), clock: clock}
}

func (m *ManualTicker) C() <-chan time.Time { return m.c }

func (m *ManualTicker) Reset(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.period = d
	if !m.armed {
		m.armed = true
		m.cancel = make(chan struct{})
	}
}

func (m *ManualTicker) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.armed {
		m.armed = false
		close(m.cancel)
	}
}

// Armed reports whether the ticker is waiting to fire.
func (m *ManualTicker) Armed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.armed
}

func (m *ManualTicker) Period() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.period
}

// Fire delivers one tick and blocks until the receiver takes it. It returns
// false without delivering when the ticker is stopped, or becomes stopped
// while waiting.
func (m *ManualTicker) Fire() bool {
	m.mu.Lock()
	if !m.armed {
		m.mu.Unlock()
		return false
	}
	cancel := m.cancel
	m.mu.Unlock()

	select {
	case m.c <- m.clock.Now():
		return true
	case <-cancel:
		return false
	}
}
