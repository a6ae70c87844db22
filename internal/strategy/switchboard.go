// Package strategy swaps the integrator, force variants, collision handling
// and boundary of a live simulation.
//
// Every operation leaves the simulation consistent: staggered particles are
// settled before a solver change and prepared again afterwards, force leaves
// always match the relativistic flag, and the collision detector and
// resolution algorithm are armed or disarmed together.
//
// A Switchboard is not safe for concurrent use. It must run on the goroutine
// that steps the simulation, between steps.
package strategy

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/san-kum/pixi/internal/physics"
)

var (
	// ErrInvalidSelector indicates a kind outside its enumeration.
	ErrInvalidSelector = errors.New("strategy: invalid selector")

	// ErrCollisionsDisabled indicates an algorithm change that would
	// separate the detector from its resolution algorithm.
	ErrCollisionsDisabled = errors.New("strategy: enable collisions first")
)

// Simulation is the part of a simulation the switchboard mutates.
type Simulation interface {
	CompleteAllParticles()
	PrepareAllParticles()

	Solver() physics.Solver
	SetSolver(physics.Solver)
	Force() *physics.CombinedForce
	Relativistic() bool
	SetRelativistic(bool)
	SpeedOfLight() float64

	Detector() physics.Detector
	SetDetector(physics.Detector)
	Resolver() physics.Resolver
	SetResolver(physics.Resolver)

	Boundary() physics.BoundaryKind
	SetBoundary(physics.BoundaryKind)
}

// DefaultAlgorithm is armed whenever a detector is selected.
const DefaultAlgorithm = physics.ResolutionSimple

// Selection is a snapshot of the active strategies as a user sees them.
type Selection struct {
	Integrator            physics.SolverKind
	Relativistic          bool
	RelativisticAvailable bool
	Detector              physics.DetectorKind
	Algorithm             physics.ResolutionKind
	AlgorithmEnabled      bool
	Boundary              physics.BoundaryKind
}

type Switchboard struct {
	sim Simulation
	log *slog.Logger
}

// New returns a switchboard for sim. A nil logger uses slog.Default.
func New(sim Simulation, log *slog.Logger) *Switchboard {
	if log == nil {
		log = slog.Default()
	}
	return &Switchboard{sim: sim, log: log}
}

// Selection reports the current strategies.
func (s *Switchboard) Selection() Selection {
	det := s.sim.Detector().Kind()
	return Selection{
		Integrator:            s.Integrator(),
		Relativistic:          s.sim.Relativistic(),
		RelativisticAvailable: s.RelativisticAvailable(),
		Detector:              det,
		Algorithm:             s.sim.Resolver().Kind(),
		AlgorithmEnabled:      det != physics.DetectorNone,
		Boundary:              s.sim.Boundary(),
	}
}

// Integrator returns the user-facing kind of the active solver. Relativistic
// solvers report their classical counterpart.
func (s *Switchboard) Integrator() physics.SolverKind {
	kind := s.sim.Solver().Kind()
	if c, ok := kind.ClassicCounterpart(); ok {
		return c
	}
	return kind
}

// RelativisticAvailable reports whether the active integrator has a
// relativistic counterpart.
func (s *Switchboard) RelativisticAvailable() bool {
	_, ok := s.Integrator().RelativisticCounterpart()
	return ok
}

// SetIntegrator replaces the solver. When the simulation is relativistic and
// kind has a relativistic counterpart, the counterpart is installed.
func (s *Switchboard) SetIntegrator(kind physics.SolverKind) error {
	if kind < 0 || int(kind) >= physics.NumUserSolvers {
		return fmt.Errorf("%w: integrator %d", ErrInvalidSelector, int(kind))
	}
	target := kind
	if s.sim.Relativistic() {
		if rel, ok := kind.RelativisticCounterpart(); ok {
			target = rel
		}
	}
	solver, err := physics.NewSolver(target, s.sim.SpeedOfLight())
	if err != nil {
		return err
	}

	prev := s.sim.Solver().Kind()
	s.sim.CompleteAllParticles()
	s.sim.SetSolver(solver)
	s.sim.PrepareAllParticles()

	s.log.Info("integrator changed", "from", prev, "to", target)
	return nil
}

// ToggleRelativistic flips the relativistic flag, converts every leaf force
// to its paired variant and swaps the solver when it has a counterpart.
// Solvers without one are left in place while the forces still flip.
func (s *Switchboard) ToggleRelativistic() error {
	rel := !s.sim.Relativistic()
	c := s.sim.SpeedOfLight()

	var convErr error
	s.sim.CompleteAllParticles()
	s.sim.SetRelativistic(rel)
	s.sim.Force().MapLeaves(func(f physics.Force) physics.Force {
		kind, ok := f.Kind().Counterpart(rel)
		if !ok || kind == f.Kind() {
			return f
		}
		out, err := physics.ConvertForce(f, kind, c)
		if err != nil {
			convErr = errors.Join(convErr, err)
			return f
		}
		return out
	})

	cur := s.sim.Solver().Kind()
	next, ok := cur.RelativisticCounterpart()
	if !rel {
		next, ok = cur.ClassicCounterpart()
	}
	if ok {
		solver, err := physics.NewSolver(next, c)
		if err != nil {
			convErr = errors.Join(convErr, err)
		} else {
			s.sim.SetSolver(solver)
		}
	} else {
		s.log.Info("integrator has no counterpart, left unchanged", "integrator", cur, "relativistic", rel)
	}
	s.sim.PrepareAllParticles()

	s.log.Info("relativistic toggled", "relativistic", rel, "integrator", s.sim.Solver().Kind())
	return convErr
}

// SetDetector replaces the collision detector. Selecting none disarms the
// resolution algorithm; any other detector arms DefaultAlgorithm.
func (s *Switchboard) SetDetector(kind physics.DetectorKind) error {
	if kind < 0 || kind >= physics.NumDetectors {
		return fmt.Errorf("%w: detector %d", ErrInvalidSelector, int(kind))
	}
	det, err := physics.NewDetector(kind)
	if err != nil {
		return err
	}
	algo := physics.ResolutionNone
	if kind != physics.DetectorNone {
		algo = DefaultAlgorithm
	}
	res, err := physics.NewResolver(algo)
	if err != nil {
		return err
	}

	s.sim.SetDetector(det)
	s.sim.SetResolver(res)
	s.log.Info("collision detector changed", "detector", kind, "algorithm", algo)
	return nil
}

// SetResolutionAlgorithm replaces the collision response. It fails with
// ErrCollisionsDisabled while no detector is selected, and when asked to
// disarm the algorithm of an armed detector.
func (s *Switchboard) SetResolutionAlgorithm(kind physics.ResolutionKind) error {
	if kind < 0 || kind >= physics.NumResolutions {
		return fmt.Errorf("%w: algorithm %d", ErrInvalidSelector, int(kind))
	}
	armed := s.sim.Detector().Kind() != physics.DetectorNone
	switch {
	case !armed && kind == physics.ResolutionNone:
		return nil
	case !armed:
		return fmt.Errorf("%w: algorithm %v", ErrCollisionsDisabled, kind)
	case kind == physics.ResolutionNone:
		return fmt.Errorf("%w: select no detector to disable collisions", ErrCollisionsDisabled)
	}
	res, err := physics.NewResolver(kind)
	if err != nil {
		return err
	}
	s.sim.SetResolver(res)
	s.log.Info("collision algorithm changed", "algorithm", kind)
	return nil
}

func (s *Switchboard) SetBoundary(kind physics.BoundaryKind) error {
	if kind < 0 || kind >= physics.NumBoundaries {
		return fmt.Errorf("%w: boundary %d", ErrInvalidSelector, int(kind))
	}
	s.sim.SetBoundary(kind)
	s.log.Info("boundary changed", "boundary", kind)
	return nil
}
