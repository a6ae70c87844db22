package physics

import "github.com/go-gl/mathgl/mgl64"

// The relativistic solvers integrate the proper velocity u = gamma*v and
// store the coordinate velocity back on the particle after each update.
// acceleration then reads as du/dt since forces act on momentum.

func properVelocity(v mgl64.Vec3, c float64) mgl64.Vec3 {
	return v.Mul(gammaOf(v, c))
}

func coordinateVelocity(u mgl64.Vec3, c float64) mgl64.Vec3 {
	return u.Mul(1 / momentumGamma(u, c))
}

// relStaggered is the relativistic form of staggered: half kicks act on u.
type relStaggered struct{ c float64 }

func (r relStaggered) Prepare(p *Particle, f Force, dt float64) {
	if p.staggered {
		return
	}
	u := properVelocity(p.Vel, r.c).Sub(acceleration(p, f).Mul(dt / 2))
	p.Vel = coordinateVelocity(u, r.c)
	p.staggered = true
}

func (r relStaggered) Complete(p *Particle, f Force, dt float64) {
	if !p.staggered {
		return
	}
	u := properVelocity(p.Vel, r.c).Add(acceleration(p, f).Mul(dt / 2))
	p.Vel = coordinateVelocity(u, r.c)
	p.staggered = false
}

type leapFrogRelativistic struct{ c float64 }

func (leapFrogRelativistic) Kind() SolverKind { return LeapFrogRelativistic }

func (s leapFrogRelativistic) Prepare(p *Particle, f Force, dt float64) {
	relStaggered(s).Prepare(p, f, dt)
}

func (s leapFrogRelativistic) Complete(p *Particle, f Force, dt float64) {
	relStaggered(s).Complete(p, f, dt)
}

func (s leapFrogRelativistic) Step(p *Particle, f Force, dt float64) {
	u := properVelocity(p.Vel, s.c).Add(acceleration(p, f).Mul(dt))
	p.Vel = coordinateVelocity(u, s.c)
	p.Pos = p.Pos.Add(p.Vel.Mul(dt))
}

type borisRelativistic struct{ c float64 }

func (borisRelativistic) Kind() SolverKind { return BorisRelativistic }

func (s borisRelativistic) Prepare(p *Particle, f Force, dt float64) {
	relStaggered(s).Prepare(p, f, dt)
}

func (s borisRelativistic) Complete(p *Particle, f Force, dt float64) {
	relStaggered(s).Complete(p, f, dt)
}

func (s borisRelativistic) Step(p *Particle, f Force, dt float64) {
	force, b := f.Field(p)
	a := force.Mul(1 / p.Mass)

	uminus := properVelocity(p.Vel, s.c).Add(a.Mul(dt / 2))
	gamma := momentumGamma(uminus, s.c)
	uplus := rotate(uminus, b.Mul(p.Charge/(p.Mass*gamma)), dt)
	u := uplus.Add(a.Mul(dt / 2))

	p.Vel = coordinateVelocity(u, s.c)
	p.Pos = p.Pos.Add(p.Vel.Mul(dt))
}

type semiImplicitEulerRelativistic struct {
	settled
	c float64
}

func (semiImplicitEulerRelativistic) Kind() SolverKind { return SemiImplicitEulerRelativistic }

func (s semiImplicitEulerRelativistic) Step(p *Particle, f Force, dt float64) {
	u := properVelocity(p.Vel, s.c).Add(acceleration(p, f).Mul(dt))
	p.Vel = coordinateVelocity(u, s.c)
	p.Pos = p.Pos.Add(p.Vel.Mul(dt))
}
