package physics

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type BoundaryKind int

const (
	Hardwall BoundaryKind = iota
	Periodic
	NumBoundaries
)

func (k BoundaryKind) String() string {
	switch k {
	case Hardwall:
		return "hardwall"
	case Periodic:
		return "periodic"
	}
	return fmt.Sprintf("BoundaryKind(%d)", int(k))
}

// ParseBoundary maps a settings name onto a boundary kind.
func ParseBoundary(name string) (BoundaryKind, error) {
	switch name {
	case "hardwall":
		return Hardwall, nil
	case "periodic", "":
		return Periodic, nil
	}
	return 0, fmt.Errorf("%w: boundary %q", ErrInvalidSettings, name)
}

// apply keeps p inside the box [0, size) on every axis with a positive
// extent.
func (k BoundaryKind) apply(p *Particle, size mgl64.Vec3) {
	for i := 0; i < 3; i++ {
		l := size[i]
		if l <= 0 {
			continue
		}
		switch k {
		case Hardwall:
			if p.Pos[i] < p.Radius {
				p.Pos[i] = 2*p.Radius - p.Pos[i]
				p.Vel[i] = math.Abs(p.Vel[i])
			} else if p.Pos[i] > l-p.Radius {
				p.Pos[i] = 2*(l-p.Radius) - p.Pos[i]
				p.Vel[i] = -math.Abs(p.Vel[i])
			}
		case Periodic:
			p.Pos[i] = math.Mod(p.Pos[i], l)
			if p.Pos[i] < 0 {
				p.Pos[i] += l
			}
		}
	}
}
