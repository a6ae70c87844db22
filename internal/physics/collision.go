package physics

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// DetectorKind enumerates the collision-pair discovery strategies.
type DetectorKind int

const (
	DetectorNone DetectorKind = iota
	DetectorAllPairs
	DetectorSweepAndPrune
	NumDetectors
)

var detectorNames = [...]string{"none", "all pairs", "sweep and prune"}

func (k DetectorKind) String() string {
	if k < 0 || k >= NumDetectors {
		return fmt.Sprintf("DetectorKind(%d)", int(k))
	}
	return detectorNames[k]
}

// ResolutionKind enumerates the collision responses.
type ResolutionKind int

const (
	ResolutionNone ResolutionKind = iota
	ResolutionSimple
	ResolutionVector
	ResolutionMatrix
	NumResolutions
)

var resolutionNames = [...]string{"none", "simple", "vector", "matrix"}

func (k ResolutionKind) String() string {
	if k < 0 || k >= NumResolutions {
		return fmt.Sprintf("ResolutionKind(%d)", int(k))
	}
	return resolutionNames[k]
}

// Pair indexes two overlapping particles, A < B.
type Pair struct {
	A, B int
}

type Detector interface {
	Kind() DetectorKind
	Detect(ps []*Particle) []Pair
}

type Resolver interface {
	Kind() ResolutionKind
	Resolve(a, b *Particle)
}

func NewDetector(kind DetectorKind) (Detector, error) {
	switch kind {
	case DetectorNone:
		return noDetector{}, nil
	case DetectorAllPairs:
		return allPairs{}, nil
	case DetectorSweepAndPrune:
		return &sweepAndPrune{}, nil
	}
	return nil, fmt.Errorf("%w: detector %d", ErrUnknownKind, int(kind))
}

func NewResolver(kind ResolutionKind) (Resolver, error) {
	switch kind {
	case ResolutionNone:
		return noResolver{}, nil
	case ResolutionSimple:
		return simpleResolver{}, nil
	case ResolutionVector:
		return vectorResolver{}, nil
	case ResolutionMatrix:
		return matrixResolver{}, nil
	}
	return nil, fmt.Errorf("%w: resolution %d", ErrUnknownKind, int(kind))
}

func overlaps(a, b *Particle) bool {
	d := a.Pos.Sub(b.Pos)
	r := a.Radius + b.Radius
	return d.Dot(d) < r*r
}

type noDetector struct{}

func (noDetector) Kind() DetectorKind        { return DetectorNone }
func (noDetector) Detect([]*Particle) []Pair { return nil }

type allPairs struct{}

func (allPairs) Kind() DetectorKind { return DetectorAllPairs }

func (allPairs) Detect(ps []*Particle) []Pair {
	var pairs []Pair
	for i := 0; i < len(ps); i++ {
		for j := i + 1; j < len(ps); j++ {
			if overlaps(ps[i], ps[j]) {
				pairs = append(pairs, Pair{A: i, B: j})
			}
		}
	}
	return pairs
}

// sweepAndPrune sorts particle extents along x and only tests pairs whose
// intervals overlap.
type sweepAndPrune struct {
	order []int
}

func (*sweepAndPrune) Kind() DetectorKind { return DetectorSweepAndPrune }

func (s *sweepAndPrune) Detect(ps []*Particle) []Pair {
	s.order = s.order[:0]
	for i := range ps {
		s.order = append(s.order, i)
	}
	sort.Slice(s.order, func(i, j int) bool {
		a, b := ps[s.order[i]], ps[s.order[j]]
		return a.Pos.X()-a.Radius < b.Pos.X()-b.Radius
	})

	var pairs []Pair
	for i, ai := range s.order {
		a := ps[ai]
		maxX := a.Pos.X() + a.Radius
		for _, bi := range s.order[i+1:] {
			b := ps[bi]
			if b.Pos.X()-b.Radius > maxX {
				break
			}
			if overlaps(a, b) {
				if ai < bi {
					pairs = append(pairs, Pair{A: ai, B: bi})
				} else {
					pairs = append(pairs, Pair{A: bi, B: ai})
				}
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
	return pairs
}

type noResolver struct{}

func (noResolver) Kind() ResolutionKind         { return ResolutionNone }
func (noResolver) Resolve(*Particle, *Particle) {}

// elastic1D returns the post-collision velocities of a head-on elastic
// collision between masses ma and mb.
func elastic1D(va, vb, ma, mb float64) (float64, float64) {
	m := ma + mb
	return ((ma-mb)*va + 2*mb*vb) / m, ((mb-ma)*vb + 2*ma*va) / m
}

func approaching(a, b *Particle) bool {
	return b.Vel.Sub(a.Vel).Dot(b.Pos.Sub(a.Pos)) < 0
}

// simpleResolver treats every collision as head-on and exchanges the
// velocity vectors componentwise.
type simpleResolver struct{}

func (simpleResolver) Kind() ResolutionKind { return ResolutionSimple }

func (simpleResolver) Resolve(a, b *Particle) {
	if !approaching(a, b) {
		return
	}
	var va, vb mgl64.Vec3
	for i := 0; i < 3; i++ {
		va[i], vb[i] = elastic1D(a.Vel[i], b.Vel[i], a.Mass, b.Mass)
	}
	a.Vel, b.Vel = va, vb
}

// vectorResolver exchanges momentum along the line of centres.
type vectorResolver struct{}

func (vectorResolver) Kind() ResolutionKind { return ResolutionVector }

func (vectorResolver) Resolve(a, b *Particle) {
	d := b.Pos.Sub(a.Pos)
	if d.Len() == 0 || !approaching(a, b) {
		return
	}
	n := d.Normalize()
	ua, ub := a.Vel.Dot(n), b.Vel.Dot(n)
	na, nb := elastic1D(ua, ub, a.Mass, b.Mass)
	a.Vel = a.Vel.Add(n.Mul(na - ua))
	b.Vel = b.Vel.Add(n.Mul(nb - ub))
}

// matrixResolver rotates both velocities into a frame whose first axis is
// the line of centres, collides along that axis and rotates back.
type matrixResolver struct{}

func (matrixResolver) Kind() ResolutionKind { return ResolutionMatrix }

func (matrixResolver) Resolve(a, b *Particle) {
	d := b.Pos.Sub(a.Pos)
	if d.Len() == 0 || !approaching(a, b) {
		return
	}
	basis := collisionBasis(d.Normalize())
	inv := basis.Transpose()

	la, lb := basis.Mul3x1(a.Vel), basis.Mul3x1(b.Vel)
	la[0], lb[0] = elastic1D(la[0], lb[0], a.Mass, b.Mass)
	a.Vel, b.Vel = inv.Mul3x1(la), inv.Mul3x1(lb)
}

// collisionBasis returns the orthonormal rotation whose first row is n.
func collisionBasis(n mgl64.Vec3) mgl64.Mat3 {
	helper := mgl64.Vec3{0, 0, 1}
	if math.Abs(n.Z()) > 0.9 {
		helper = mgl64.Vec3{1, 0, 0}
	}
	t := n.Cross(helper).Normalize()
	s := n.Cross(t)
	return mgl64.Mat3FromRows(n, t, s)
}
