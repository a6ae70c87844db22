package physics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	DefaultTimeStep     = 0.2
	DefaultDuration     = 1000.0
	DefaultSpeedOfLight = 4.0
	DefaultGridStep     = 10.0
	DefaultGridCells    = 10
	DefaultRadius       = 2.0
)

// ParticleSpec describes one particle of the initial state.
type ParticleSpec struct {
	Pos    mgl64.Vec3
	Vel    mgl64.Vec3
	Mass   float64
	Charge float64
	Radius float64
}

// StreamSpec describes Count identical particles placed along a line that
// starts at Pos and advances by Spacing.
type StreamSpec struct {
	Count   int
	Pos     mgl64.Vec3
	Spacing mgl64.Vec3
	Vel     mgl64.Vec3
	Mass    float64
	Charge  float64
	Radius  float64
}

// Output configures the on-disk diagnostics. A zero step disables the
// corresponding file.
type Output struct {
	Path         string
	SampleStep   int
	SpectrumStep int
}

func (o Output) Enabled() bool {
	return o.Path != "" && (o.SampleStep > 0 || o.SpectrumStep > 0)
}

// Settings is everything needed to build a Simulation.
type Settings struct {
	TimeStep     float64
	Duration     float64
	SpeedOfLight float64
	GridStep     float64
	GridCellsX   int
	GridCellsY   int
	GridCellsZ   int
	Poisson      PoissonKind
	Relativistic bool
	Boundary     BoundaryKind
	UseGrid      bool
	Solver       SolverKind

	// Constant field initially installed in the force tree.
	Field ConstantField

	Particles []ParticleSpec
	Streams   []StreamSpec
	Output    Output
}

// DefaultSettings returns the defaults applied before a settings file.
func DefaultSettings() Settings {
	return Settings{
		TimeStep:     DefaultTimeStep,
		Duration:     DefaultDuration,
		SpeedOfLight: DefaultSpeedOfLight,
		GridStep:     DefaultGridStep,
		GridCellsX:   DefaultGridCells,
		GridCellsY:   DefaultGridCells,
		Poisson:      PoissonDefault,
		Relativistic: true,
		Boundary:     Periodic,
		UseGrid:      true,
		Solver:       Boris,
	}
}

func (s *Settings) Validate() error {
	switch {
	case s.TimeStep <= 0:
		return fmt.Errorf("%w: time step must be positive", ErrInvalidSettings)
	case s.SpeedOfLight <= 0:
		return fmt.Errorf("%w: speed of light must be positive", ErrInvalidSettings)
	case s.GridStep <= 0:
		return fmt.Errorf("%w: grid step must be positive", ErrInvalidSettings)
	case s.GridCellsX < 1 || s.GridCellsY < 1 || s.GridCellsZ < 0:
		return fmt.Errorf("%w: grid cells %dx%dx%d", ErrInvalidSettings, s.GridCellsX, s.GridCellsY, s.GridCellsZ)
	case s.Boundary < 0 || s.Boundary >= NumBoundaries:
		return fmt.Errorf("%w: boundary %d", ErrInvalidSettings, int(s.Boundary))
	case !s.Solver.Valid():
		return fmt.Errorf("%w: solver %d", ErrInvalidSettings, int(s.Solver))
	}
	for i, st := range s.Streams {
		if st.Count < 0 {
			return fmt.Errorf("%w: stream %d has negative count", ErrInvalidSettings, i)
		}
	}
	return nil
}

// Extent is the size of the simulation box.
func (s *Settings) Extent() mgl64.Vec3 {
	return mgl64.Vec3{
		float64(s.GridCellsX) * s.GridStep,
		float64(s.GridCellsY) * s.GridStep,
		float64(s.GridCellsZ) * s.GridStep,
	}
}

func (s *Settings) particles() []*Particle {
	var out []*Particle
	add := func(pos, vel mgl64.Vec3, mass, charge, radius float64) {
		p := NewParticle(pos, radius)
		p.Vel = vel
		if mass > 0 {
			p.Mass = mass
		}
		p.Charge = charge
		if radius <= 0 {
			p.Radius = DefaultRadius
		}
		p.Color = chargeColor(charge)
		out = append(out, p)
	}
	for _, ps := range s.Particles {
		add(ps.Pos, ps.Vel, ps.Mass, ps.Charge, ps.Radius)
	}
	for _, st := range s.Streams {
		for k := 0; k < st.Count; k++ {
			add(st.Pos.Add(st.Spacing.Mul(float64(k))), st.Vel, st.Mass, st.Charge, st.Radius)
		}
	}
	return out
}
