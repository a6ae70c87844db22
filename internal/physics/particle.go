package physics

import (
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Particle is a charged sphere moving through the simulation box.
type Particle struct {
	Pos    mgl64.Vec3
	Vel    mgl64.Vec3
	Mass   float64
	Charge float64
	Radius float64
	Color  color.RGBA

	// staggered is set while Vel holds a half-step velocity.
	staggered bool
}

// NewParticle returns a unit-mass neutral particle at pos.
func NewParticle(pos mgl64.Vec3, radius float64) *Particle {
	return &Particle{
		Pos:    pos,
		Mass:   1,
		Radius: radius,
		Color:  color.RGBA{R: 0, G: 0, B: 255, A: 255},
	}
}

// Staggered reports whether the particle velocity is offset by half a step.
func (p *Particle) Staggered() bool { return p.staggered }

// Gamma returns the Lorentz factor of the particle for the speed of light c.
func (p *Particle) Gamma(c float64) float64 {
	return gammaOf(p.Vel, c)
}

// KineticEnergy returns the classical kinetic energy.
func (p *Particle) KineticEnergy() float64 {
	return 0.5 * p.Mass * p.Vel.Dot(p.Vel)
}

func gammaOf(v mgl64.Vec3, c float64) float64 {
	beta2 := v.Dot(v) / (c * c)
	if beta2 >= 1 {
		// clamp just below the light cone
		beta2 = 1 - 1e-12
	}
	return 1 / math.Sqrt(1-beta2)
}

// momentumGamma returns the Lorentz factor for proper velocity u.
func momentumGamma(u mgl64.Vec3, c float64) float64 {
	return math.Sqrt(1 + u.Dot(u)/(c*c))
}
