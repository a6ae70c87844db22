package physics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// SolverKind enumerates the integrators. The first eight values are the
// user-facing kinds in menu order; the remaining ones are the relativistic
// counterparts reachable only through the relativistic toggle.
type SolverKind int

const (
	EulerRichardson SolverKind = iota
	LeapFrog
	LeapFrogDamped
	LeapFrogHalfStep
	Boris
	BorisDamped
	SemiImplicitEuler
	Euler
	LeapFrogRelativistic
	BorisRelativistic
	SemiImplicitEulerRelativistic
	numSolverKinds
)

// NumUserSolvers is the number of integrator kinds offered for selection.
const NumUserSolvers = int(LeapFrogRelativistic)

var solverNames = [...]string{
	EulerRichardson:               "Euler Richardson",
	LeapFrog:                      "LeapFrog",
	LeapFrogDamped:                "LeapFrog Damped",
	LeapFrogHalfStep:              "LeapFrog Half Step",
	Boris:                         "Boris",
	BorisDamped:                   "Boris Damped",
	SemiImplicitEuler:             "Semi-implicit Euler",
	Euler:                         "Euler",
	LeapFrogRelativistic:          "LeapFrog (relativistic)",
	BorisRelativistic:             "Boris (relativistic)",
	SemiImplicitEulerRelativistic: "Semi-implicit Euler (relativistic)",
}

func (k SolverKind) String() string {
	if k < 0 || k >= numSolverKinds {
		return fmt.Sprintf("SolverKind(%d)", int(k))
	}
	return solverNames[k]
}

func (k SolverKind) Valid() bool { return k >= 0 && k < numSolverKinds }

// Relativistic reports whether k integrates proper velocity.
func (k SolverKind) Relativistic() bool { return k >= LeapFrogRelativistic && k < numSolverKinds }

// Solver advances a single particle by one time step.
//
// Staggered solvers keep the velocity half a step behind the position.
// Prepare moves a settled particle into that state and Complete moves it
// back; both are no-ops when the particle is already in the target state.
type Solver interface {
	Kind() SolverKind
	Step(p *Particle, f Force, dt float64)
	Prepare(p *Particle, f Force, dt float64)
	Complete(p *Particle, f Force, dt float64)
}

// NewSolver returns the solver for kind. c is the speed of light used by the
// relativistic kinds.
func NewSolver(kind SolverKind, c float64) (Solver, error) {
	switch kind {
	case EulerRichardson:
		return eulerRichardson{}, nil
	case LeapFrog:
		return leapFrog{}, nil
	case LeapFrogDamped:
		return leapFrogDamped{}, nil
	case LeapFrogHalfStep:
		return leapFrogHalfStep{}, nil
	case Boris:
		return boris{}, nil
	case BorisDamped:
		return borisDamped{}, nil
	case SemiImplicitEuler:
		return semiImplicitEuler{}, nil
	case Euler:
		return euler{}, nil
	case LeapFrogRelativistic:
		return leapFrogRelativistic{c: c}, nil
	case BorisRelativistic:
		return borisRelativistic{c: c}, nil
	case SemiImplicitEulerRelativistic:
		return semiImplicitEulerRelativistic{c: c}, nil
	}
	return nil, fmt.Errorf("%w: solver %d", ErrUnknownKind, int(kind))
}

// acceleration returns the Lorentz acceleration of p at its current state.
func acceleration(p *Particle, f Force) mgl64.Vec3 {
	force, b := f.Field(p)
	return force.Add(p.Vel.Cross(b).Mul(p.Charge)).Mul(1 / p.Mass)
}

func dragOf(f Force) float64 {
	if d, ok := f.(Dragger); ok {
		return d.Drag()
	}
	return 0
}

// settled is embedded by solvers whose particles never leave the settled
// state.
type settled struct{}

func (settled) Prepare(*Particle, Force, float64)  {}
func (settled) Complete(*Particle, Force, float64) {}

// staggered implements Prepare and Complete as half kicks of the
// classical acceleration.
type staggered struct{}

func (staggered) Prepare(p *Particle, f Force, dt float64) {
	if p.staggered {
		return
	}
	p.Vel = p.Vel.Sub(acceleration(p, f).Mul(dt / 2))
	p.staggered = true
}

func (staggered) Complete(p *Particle, f Force, dt float64) {
	if !p.staggered {
		return
	}
	p.Vel = p.Vel.Add(acceleration(p, f).Mul(dt / 2))
	p.staggered = false
}

type eulerRichardson struct{ settled }

func (eulerRichardson) Kind() SolverKind { return EulerRichardson }

func (eulerRichardson) Step(p *Particle, f Force, dt float64) {
	a := acceleration(p, f)
	pos, vel := p.Pos, p.Vel

	p.Pos = pos.Add(vel.Mul(dt / 2))
	p.Vel = vel.Add(a.Mul(dt / 2))
	vmid := p.Vel
	amid := acceleration(p, f)

	p.Pos = pos.Add(vmid.Mul(dt))
	p.Vel = vel.Add(amid.Mul(dt))
}

type leapFrog struct{ staggered }

func (leapFrog) Kind() SolverKind { return LeapFrog }

func (leapFrog) Step(p *Particle, f Force, dt float64) {
	p.Vel = p.Vel.Add(acceleration(p, f).Mul(dt))
	p.Pos = p.Pos.Add(p.Vel.Mul(dt))
}

// leapFrogDamped treats the drag term with a centred implicit average.
type leapFrogDamped struct{ staggered }

func (leapFrogDamped) Kind() SolverKind { return LeapFrogDamped }

func (leapFrogDamped) Step(p *Particle, f Force, dt float64) {
	k := dragOf(f) * dt / (2 * p.Mass)
	// undo the explicit drag contribution, then apply it implicitly
	a := acceleration(p, f).Add(p.Vel.Mul(dragOf(f) / p.Mass))
	p.Vel = p.Vel.Mul(1 - k).Add(a.Mul(dt)).Mul(1 / (1 + k))
	p.Pos = p.Pos.Add(p.Vel.Mul(dt))
}

// leapFrogHalfStep is the velocity Verlet form of the leapfrog scheme.
type leapFrogHalfStep struct{ settled }

func (leapFrogHalfStep) Kind() SolverKind { return LeapFrogHalfStep }

func (leapFrogHalfStep) Step(p *Particle, f Force, dt float64) {
	a := acceleration(p, f)
	p.Pos = p.Pos.Add(p.Vel.Mul(dt)).Add(a.Mul(0.5 * dt * dt))
	vhalf := p.Vel.Add(a.Mul(dt / 2))
	p.Vel = vhalf
	anew := acceleration(p, f)
	p.Vel = vhalf.Add(anew.Mul(dt / 2))
}

type boris struct{ staggered }

func (boris) Kind() SolverKind { return Boris }

func (boris) Step(p *Particle, f Force, dt float64) {
	force, b := f.Field(p)
	p.Vel = borisPush(p.Vel, force.Mul(1/p.Mass), b.Mul(p.Charge/p.Mass), dt)
	p.Pos = p.Pos.Add(p.Vel.Mul(dt))
}

type borisDamped struct{ staggered }

func (borisDamped) Kind() SolverKind { return BorisDamped }

func (borisDamped) Step(p *Particle, f Force, dt float64) {
	force, b := f.Field(p)
	drag := dragOf(f)
	k := drag * dt / (2 * p.Mass)
	a := force.Add(p.Vel.Mul(drag)).Mul(1 / p.Mass)

	vminus := p.Vel.Mul(1 - k).Add(a.Mul(dt / 2))
	vplus := rotate(vminus, b.Mul(p.Charge/p.Mass), dt)
	p.Vel = vplus.Add(a.Mul(dt / 2)).Mul(1 / (1 + k))
	p.Pos = p.Pos.Add(p.Vel.Mul(dt))
}

// borisPush applies half kick, magnetic rotation and half kick to v. a is
// the non-magnetic acceleration, w the charge-to-mass scaled field.
func borisPush(v, a, w mgl64.Vec3, dt float64) mgl64.Vec3 {
	vminus := v.Add(a.Mul(dt / 2))
	vplus := rotate(vminus, w, dt)
	return vplus.Add(a.Mul(dt / 2))
}

func rotate(v, w mgl64.Vec3, dt float64) mgl64.Vec3 {
	t := w.Mul(dt / 2)
	s := t.Mul(2 / (1 + t.Dot(t)))
	vprime := v.Add(v.Cross(t))
	return v.Add(vprime.Cross(s))
}

type semiImplicitEuler struct{ settled }

func (semiImplicitEuler) Kind() SolverKind { return SemiImplicitEuler }

func (semiImplicitEuler) Step(p *Particle, f Force, dt float64) {
	p.Vel = p.Vel.Add(acceleration(p, f).Mul(dt))
	p.Pos = p.Pos.Add(p.Vel.Mul(dt))
}

type euler struct{ settled }

func (euler) Kind() SolverKind { return Euler }

func (euler) Step(p *Particle, f Force, dt float64) {
	a := acceleration(p, f)
	p.Pos = p.Pos.Add(p.Vel.Mul(dt))
	p.Vel = p.Vel.Add(a.Mul(dt))
}
