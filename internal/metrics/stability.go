package metrics

import "math"

// Stability counts the observed steps in which a particle moved faster
// than the threshold or left the finite numbers. A zero threshold means the
// speed of light for relativistic systems and no speed limit otherwise.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(sys System, t float64) {
	s.samples++
	limit := s.threshold
	if limit <= 0 {
		limit = math.Inf(1)
		if sys.Relativistic() {
			limit = sys.SpeedOfLight()
		}
	}
	for _, p := range sys.Particles() {
		speed := p.Vel.Len()
		if math.IsNaN(speed) || math.IsInf(speed, 0) || speed > limit || !finite(p.Pos[0]+p.Pos[1]+p.Pos[2]) {
			s.violations++
			return
		}
	}
}

// Value returns the fraction of stable steps.
func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1
	}
	return 1 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
