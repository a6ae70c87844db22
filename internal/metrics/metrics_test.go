package metrics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/pixi/internal/animation"
	"github.com/san-kum/pixi/internal/physics"
)

type fakeSystem struct {
	particles    []*physics.Particle
	c            float64
	relativistic bool
}

func (f *fakeSystem) Particles() []*physics.Particle { return f.particles }
func (f *fakeSystem) SpeedOfLight() float64          { return f.c }
func (f *fakeSystem) Relativistic() bool             { return f.relativistic }

func particle(vx float64) *physics.Particle {
	p := physics.NewParticle(mgl64.Vec3{}, 1)
	p.Vel = mgl64.Vec3{vx, 0, 0}
	return p
}

func TestKineticEnergy(t *testing.T) {
	sys := &fakeSystem{particles: []*physics.Particle{particle(2), particle(-1)}, c: 10}
	if got := KineticEnergy(sys); math.Abs(got-2.5) > 1e-12 {
		t.Errorf("expected classical energy 2.5, got %f", got)
	}

	sys.relativistic = true
	gamma := func(v float64) float64 { return 1 / math.Sqrt(1-v*v/100) }
	want := (gamma(2)-1)*100 + (gamma(1)-1)*100
	if got := KineticEnergy(sys); math.Abs(got-want) > 1e-9 {
		t.Errorf("expected relativistic energy %f, got %f", want, got)
	}
	if got := KineticEnergy(sys); got <= 2.5 {
		t.Errorf("relativistic energy %f should exceed the classical one", got)
	}
}

func TestMomentum(t *testing.T) {
	sys := &fakeSystem{particles: []*physics.Particle{particle(2), particle(-2)}, c: 10}
	if got := Momentum(sys); got.Len() > 1e-12 {
		t.Errorf("expected zero momentum, got %v", got)
	}
	sys.particles = sys.particles[:1]
	if got := Momentum(sys); math.Abs(got.X()-2) > 1e-12 {
		t.Errorf("expected momentum 2, got %v", got)
	}
}

func TestEnergyDrift(t *testing.T) {
	sys := &fakeSystem{particles: []*physics.Particle{particle(2)}, c: 10}
	d := NewEnergyDrift()

	d.Observe(sys, 0)
	if d.Value() != 0 {
		t.Errorf("expected no drift after one sample, got %f", d.Value())
	}

	sys.particles[0].Vel = mgl64.Vec3{3, 0, 0}
	d.Observe(sys, 1)
	sys.particles[0].Vel = mgl64.Vec3{2, 0, 0}
	d.Observe(sys, 2)
	if math.Abs(d.Value()-1.25) > 1e-12 {
		t.Errorf("expected max drift 1.25, got %f", d.Value())
	}

	d.Reset()
	if d.Value() != 0 {
		t.Error("expected zero drift after reset")
	}
}

func TestStability(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name         string
		threshold    float64
		relativistic bool
		speeds       []float64
		want         float64
	}{
		{"no samples", 0, true, nil, 1},
		{"relativistic limit is c", 0, true, []float64{1, 11, nan, 1}, 0.5},
		{"classical faster than c", 0, false, []float64{5, 11, 40}, 1},
		{"classical non-finite", 0, false, []float64{11, nan, math.Inf(1), 1}, 0.5},
		{"explicit threshold", 0.5, false, []float64{1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys := &fakeSystem{particles: []*physics.Particle{particle(0)}, c: 10, relativistic: tt.relativistic}
			s := NewStability(tt.threshold)
			for i, v := range tt.speeds {
				sys.particles[0].Vel = mgl64.Vec3{v, 0, 0}
				s.Observe(sys, float64(i))
			}
			if s.Value() != tt.want {
				t.Errorf("expected stability %f, got %f", tt.want, s.Value())
			}
			s.Reset()
			if s.Value() != 1 {
				t.Errorf("expected stable after reset, got %f", s.Value())
			}
		})
	}
}

func TestSetObservesFrames(t *testing.T) {
	sim, err := physics.NewPreset(4, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer sim.Close()

	set := Default()
	if names := set.Names(); len(names) != 3 || names[0] != "energy" {
		t.Fatalf("unexpected names %v", names)
	}

	sim.PrepareAllParticles()
	for i := range 5 {
		if err := sim.Step(); err != nil {
			t.Fatal(err)
		}
		set.Repaint(animation.Frame{Sim: sim, Tick: uint64(i + 1)})
	}
	v := set.Values()
	if v["energy"] != KineticEnergy(sim) {
		t.Errorf("expected energy %f, got %f", KineticEnergy(sim), v["energy"])
	}
	if v["stability"] != 1 {
		t.Errorf("expected a stable run, got %f", v["stability"])
	}

	set.Clear()
	if v := set.Values(); v["energy"] != 0 || v["energy_drift"] != 0 {
		t.Errorf("expected cleared values, got %v", v)
	}
}
