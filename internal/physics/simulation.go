package physics

import (
	"fmt"
	"image/color"

	"github.com/go-gl/mathgl/mgl64"
)

// Simulation owns the particle state together with the active force tree,
// solver, collision strategy and boundary.
type Simulation struct {
	particles []*Particle
	force     *CombinedForce
	solver    Solver
	detector  Detector
	resolver  Resolver
	boundary  BoundaryKind
	grid      *Grid
	gridOn    bool

	relativistic bool
	dt           float64
	c            float64
	duration     float64
	extent       mgl64.Vec3

	step int
	time float64
	diag *diagnostics
}

// NewSimulation builds a simulation from settings. The particles are left
// settled; call PrepareAllParticles before the first Step.
func NewSimulation(s Settings) (*Simulation, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	kind := s.Solver
	if s.Relativistic {
		if rel, ok := kind.RelativisticCounterpart(); ok {
			kind = rel
		}
	}
	solver, err := NewSolver(kind, s.SpeedOfLight)
	if err != nil {
		return nil, err
	}

	sim := &Simulation{
		particles:    s.particles(),
		solver:       solver,
		detector:     noDetector{},
		resolver:     noResolver{},
		boundary:     s.Boundary,
		grid:         NewGrid(s.GridCellsX, s.GridCellsY, s.GridCellsZ, s.GridStep, s.Poisson),
		relativistic: s.Relativistic,
		dt:           s.TimeStep,
		c:            s.SpeedOfLight,
		duration:     s.Duration,
		extent:       s.Extent(),
	}

	var constant Force = &ConstantForce{ConstantField: s.Field}
	if s.Relativistic {
		constant = &ConstantForceRelativistic{ConstantField: s.Field, C: s.SpeedOfLight}
	}
	sim.force = NewCombinedForce(constant)
	if s.UseGrid {
		sim.TurnGridForceOn()
	}
	if s.Output.Enabled() {
		sim.diag = newDiagnostics(s, len(sim.particles))
	}
	return sim, nil
}

// Step advances the simulation by one time step. The returned error, if
// any, is a *StepError from the diagnostics output; the particle state has
// been advanced regardless.
func (s *Simulation) Step() error {
	if s.detector.Kind() != DetectorNone {
		for _, pair := range s.detector.Detect(s.particles) {
			s.resolver.Resolve(s.particles[pair.A], s.particles[pair.B])
		}
	}
	if s.gridOn {
		s.grid.Update(s.particles)
	}
	s.eachParticle(func(p *Particle) {
		s.solver.Step(p, s.force, s.dt)
		s.boundary.apply(p, s.extent)
	})
	s.step++
	s.time += s.dt

	if s.diag != nil {
		if err := s.diag.record(s); err != nil {
			return &StepError{Step: s.step, Time: s.time, Wrapped: err}
		}
	}
	return nil
}

// CompleteAllParticles brings every particle to a settled state.
func (s *Simulation) CompleteAllParticles() {
	s.eachParticle(func(p *Particle) { s.solver.Complete(p, s.force, s.dt) })
}

// PrepareAllParticles brings every particle into the state expected by the
// active solver.
func (s *Simulation) PrepareAllParticles() {
	s.eachParticle(func(p *Particle) { s.solver.Prepare(p, s.force, s.dt) })
}

// TurnGridForceOn installs the grid leaf matching the relativistic flag.
// It is a no-op when the grid force is already on.
func (s *Simulation) TurnGridForceOn() {
	if s.gridOn {
		return
	}
	if s.relativistic {
		s.force.Add(NewGridForceRelativistic(s.grid, s.c))
	} else {
		s.force.Add(NewGridForce(s.grid))
	}
	s.gridOn = true
}

func (s *Simulation) TurnGridForceOff() {
	if !s.gridOn {
		return
	}
	s.force.RemoveKinds(ForceGrid, ForceGridRelativistic)
	s.gridOn = false
}

func (s *Simulation) GridForceOn() bool { return s.gridOn }

// SetTimeStep changes dt, re-staggering the particles around the change.
func (s *Simulation) SetTimeStep(dt float64) {
	if dt <= 0 || dt == s.dt {
		return
	}
	s.CompleteAllParticles()
	s.dt = dt
	s.PrepareAllParticles()
}

// ConstantField returns the first constant field of the force tree.
func (s *Simulation) ConstantField() (*ConstantField, bool) {
	f, ok := FirstOfKind(s.force, ForceConstant, ForceConstantRelativistic)
	if !ok {
		return nil, false
	}
	return f.(Tunable).Params(), true
}

// ChangeGridSize resizes the grid mesh to nx x ny x nz cells of the same
// step. The box follows the grid, and the boundary is applied once so that
// every particle ends up inside the new box.
func (s *Simulation) ChangeGridSize(nx, ny, nz int) error {
	if nx < 1 || ny < 1 || nz < 0 {
		return fmt.Errorf("%w: grid cells %dx%dx%d", ErrInvalidSettings, nx, ny, nz)
	}
	s.grid.ChangeSize(nx, ny, nz)
	s.extent = s.grid.Extent()
	for _, p := range s.particles {
		s.boundary.apply(p, s.extent)
	}
	return nil
}

func (s *Simulation) Particles() []*Particle     { return s.particles }
func (s *Simulation) Force() *CombinedForce      { return s.force }
func (s *Simulation) Solver() Solver             { return s.solver }
func (s *Simulation) SetSolver(solver Solver)    { s.solver = solver }
func (s *Simulation) Detector() Detector         { return s.detector }
func (s *Simulation) SetDetector(d Detector)     { s.detector = d }
func (s *Simulation) Resolver() Resolver         { return s.resolver }
func (s *Simulation) SetResolver(r Resolver)     { s.resolver = r }
func (s *Simulation) Boundary() BoundaryKind     { return s.boundary }
func (s *Simulation) SetBoundary(b BoundaryKind) { s.boundary = b }
func (s *Simulation) Relativistic() bool         { return s.relativistic }
func (s *Simulation) SetRelativistic(r bool)     { s.relativistic = r }
func (s *Simulation) TimeStep() float64          { return s.dt }
func (s *Simulation) SpeedOfLight() float64      { return s.c }
func (s *Simulation) Extent() mgl64.Vec3         { return s.extent }
func (s *Simulation) Grid() *Grid                { return s.grid }
func (s *Simulation) Steps() int                 { return s.step }
func (s *Simulation) Time() float64              { return s.time }
func (s *Simulation) Duration() float64          { return s.duration }

// RunID identifies the diagnostics directory, empty when output is off.
func (s *Simulation) RunID() string {
	if s.diag == nil {
		return ""
	}
	return s.diag.runID
}

// Close flushes and closes any diagnostics files.
func (s *Simulation) Close() error {
	if s.diag == nil {
		return nil
	}
	return s.diag.Close()
}

func chargeColor(q float64) color.RGBA {
	switch {
	case q > 0:
		return color.RGBA{R: 230, G: 60, B: 60, A: 255}
	case q < 0:
		return color.RGBA{R: 60, G: 110, B: 230, A: 255}
	}
	return color.RGBA{R: 200, G: 200, B: 200, A: 255}
}
