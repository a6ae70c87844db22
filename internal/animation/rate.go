package animation

import "time"

// DefaultWindow is the number of tick timestamps kept by a RateEstimator.
const DefaultWindow = 16

// RateEstimator measures ticks per second over a sliding window of recent
// tick timestamps. It is not safe for concurrent use.
type RateEstimator struct {
	clock Clock
	ring  []time.Time
	next  int
	n     int
}

// NewRateEstimator returns an empty estimator. A window smaller than two
// uses DefaultWindow.
func NewRateEstimator(clock Clock, window int) *RateEstimator {
	if window < 2 {
		window = DefaultWindow
	}
	if clock == nil {
		clock = WallClock()
	}
	return &RateEstimator{clock: clock, ring: make([]time.Time, window)}
}

// Update records a tick at the current time.
func (r *RateEstimator) Update() {
	r.ring[r.next] = r.clock.Now()
	r.next = (r.next + 1) % len(r.ring)
	r.n = min(r.n+1, len(r.ring))
}

// Rate returns ticks per second across the window, or 0 with fewer than two
// samples or no elapsed time.
func (r *RateEstimator) Rate() float64 {
	if r.n < 2 {
		return 0
	}
	size := len(r.ring)
	newest := r.ring[(r.next-1+size)%size]
	oldest := r.ring[(r.next-r.n+size)%size]
	span := newest.Sub(oldest).Seconds()
	if span <= 0 {
		return 0
	}
	return float64(r.n-1) / span
}

func (r *RateEstimator) Samples() int { return r.n }

// Reset empties the window.
func (r *RateEstimator) Reset() {
	clear(r.ring)
	r.next, r.n = 0, 0
}
