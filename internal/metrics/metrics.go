// Package metrics tracks scalar diagnostics of a running animation.
package metrics

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/pixi/internal/animation"
	"github.com/san-kum/pixi/internal/physics"
)

// System is the part of a simulation the metrics read.
type System interface {
	Particles() []*physics.Particle
	SpeedOfLight() float64
	Relativistic() bool
}

// Metric accumulates one value over the observed steps.
type Metric interface {
	Name() string
	Observe(sys System, t float64)
	Value() float64
	Reset()
}

// Set is an animation observer feeding every repaint to its metrics. Values
// may be read from any goroutine.
type Set struct {
	mu      sync.Mutex
	metrics []Metric
}

var _ animation.Observer = (*Set)(nil)

func NewSet(ms ...Metric) *Set {
	return &Set{metrics: ms}
}

func (s *Set) Repaint(f animation.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.metrics {
		m.Observe(f.Sim, f.Sim.Time())
	}
}

// Clear restarts every metric for the next simulation.
func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.metrics {
		m.Reset()
	}
}

// Names returns the metric names in registration order.
func (s *Set) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.metrics))
	for i, m := range s.metrics {
		names[i] = m.Name()
	}
	return names
}

func (s *Set) Values() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]float64, len(s.metrics))
	for _, m := range s.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

// Default returns the metrics shown by the commands.
func Default() *Set {
	return NewSet(NewEnergy(), NewEnergyDrift(), NewStability(0))
}

// KineticEnergy returns the total kinetic energy, (gamma-1)mc^2 per
// particle when relativistic.
func KineticEnergy(sys System) float64 {
	c := sys.SpeedOfLight()
	total := 0.0
	for _, p := range sys.Particles() {
		if sys.Relativistic() {
			total += (p.Gamma(c) - 1) * p.Mass * c * c
		} else {
			total += p.KineticEnergy()
		}
	}
	return total
}

// Momentum returns the total momentum.
func Momentum(sys System) mgl64.Vec3 {
	c := sys.SpeedOfLight()
	var total mgl64.Vec3
	for _, p := range sys.Particles() {
		m := p.Mass
		if sys.Relativistic() {
			m *= p.Gamma(c)
		}
		total = total.Add(p.Vel.Mul(m))
	}
	return total
}
