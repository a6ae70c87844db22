package physics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// ForceKind identifies a node of a force composition.
type ForceKind int

const (
	ForceCombined ForceKind = iota
	ForceConstant
	ForceConstantRelativistic
	ForceGrid
	ForceGridRelativistic
	numForceKinds
)

var forceNames = [...]string{
	ForceCombined:             "combined",
	ForceConstant:             "constant",
	ForceConstantRelativistic: "constant (relativistic)",
	ForceGrid:                 "grid",
	ForceGridRelativistic:     "grid (relativistic)",
}

func (k ForceKind) String() string {
	if k < 0 || k >= numForceKinds {
		return fmt.Sprintf("ForceKind(%d)", int(k))
	}
	return forceNames[k]
}

// Leaf reports whether k is an atomic force.
func (k ForceKind) Leaf() bool { return k > ForceCombined && k < numForceKinds }

// Relativistic reports whether k is the relativistic variant of a leaf.
func (k ForceKind) Relativistic() bool {
	return k == ForceConstantRelativistic || k == ForceGridRelativistic
}

// Force evaluates the field acting on a particle.
type Force interface {
	Kind() ForceKind
	// Field returns the non-magnetic force on p and the magnetic field at p.
	// Solvers add the Lorentz term themselves.
	Field(p *Particle) (f, b mgl64.Vec3)
}

// Dragger is implemented by forces carrying a linear drag term. Damped
// solvers treat that term implicitly.
type Dragger interface {
	Drag() float64
}

// ConstantField holds the parameters of a homogeneous external field.
type ConstantField struct {
	E    mgl64.Vec3 // electric field
	B    mgl64.Vec3 // magnetic field
	G    mgl64.Vec3 // gravitational acceleration
	Drag float64    // linear drag coefficient
}

// ConstantForce is a homogeneous field acting on every particle.
type ConstantForce struct {
	ConstantField
}

func NewConstantForce() *ConstantForce { return &ConstantForce{} }

func (c *ConstantForce) Kind() ForceKind { return ForceConstant }
func (c *ConstantForce) Drag() float64   { return c.ConstantField.Drag }

// Params exposes the field parameters for live tuning.
func (c *ConstantForce) Params() *ConstantField { return &c.ConstantField }

func (c *ConstantForce) Field(p *Particle) (mgl64.Vec3, mgl64.Vec3) {
	f := c.E.Mul(p.Charge).
		Add(c.G.Mul(p.Mass)).
		Sub(p.Vel.Mul(c.ConstantField.Drag))
	return f, c.B
}

// ConstantForceRelativistic is the homogeneous field for relativistic
// kinematics: gravity and drag act on the relativistic mass.
type ConstantForceRelativistic struct {
	ConstantField
	C float64
}

func NewConstantForceRelativistic(c float64) *ConstantForceRelativistic {
	return &ConstantForceRelativistic{C: c}
}

func (c *ConstantForceRelativistic) Kind() ForceKind { return ForceConstantRelativistic }
func (c *ConstantForceRelativistic) Drag() float64   { return c.ConstantField.Drag }

func (c *ConstantForceRelativistic) Params() *ConstantField { return &c.ConstantField }

func (c *ConstantForceRelativistic) Field(p *Particle) (mgl64.Vec3, mgl64.Vec3) {
	gamma := p.Gamma(c.C)
	f := c.E.Mul(p.Charge).
		Add(c.G.Mul(gamma * p.Mass)).
		Sub(p.Vel.Mul(gamma * c.ConstantField.Drag))
	return f, c.B
}

// Tunable is implemented by forces with live-adjustable constant fields.
type Tunable interface {
	Force
	Params() *ConstantField
}

// GridForce applies the electric field interpolated from the grid.
type GridForce struct {
	grid *Grid
}

func NewGridForce(g *Grid) *GridForce { return &GridForce{grid: g} }

func (g *GridForce) Kind() ForceKind { return ForceGrid }

func (g *GridForce) Field(p *Particle) (mgl64.Vec3, mgl64.Vec3) {
	return g.grid.ElectricAt(p.Pos).Mul(p.Charge), mgl64.Vec3{}
}

// GridForceRelativistic is the grid force paired with relativistic solvers.
type GridForceRelativistic struct {
	grid *Grid
	C    float64
}

func NewGridForceRelativistic(g *Grid, c float64) *GridForceRelativistic {
	return &GridForceRelativistic{grid: g, C: c}
}

func (g *GridForceRelativistic) Kind() ForceKind { return ForceGridRelativistic }

func (g *GridForceRelativistic) Field(p *Particle) (mgl64.Vec3, mgl64.Vec3) {
	return g.grid.ElectricAt(p.Pos).Mul(p.Charge), mgl64.Vec3{}
}

// CombinedForce sums an ordered list of child forces.
type CombinedForce struct {
	Forces []Force
}

func NewCombinedForce(forces ...Force) *CombinedForce {
	return &CombinedForce{Forces: append([]Force(nil), forces...)}
}

func (c *CombinedForce) Kind() ForceKind { return ForceCombined }

func (c *CombinedForce) Add(f Force) { c.Forces = append(c.Forces, f) }

func (c *CombinedForce) Field(p *Particle) (mgl64.Vec3, mgl64.Vec3) {
	var f, b mgl64.Vec3
	for _, child := range c.Forces {
		cf, cb := child.Field(p)
		f = f.Add(cf)
		b = b.Add(cb)
	}
	return f, b
}

func (c *CombinedForce) Drag() float64 {
	d := 0.0
	for _, child := range c.Forces {
		if dr, ok := child.(Dragger); ok {
			d += dr.Drag()
		}
	}
	return d
}

// MapLeaves replaces every leaf of the tree, in place, with fn(leaf).
// Nested combined forces are walked depth-first; their order is kept.
func (c *CombinedForce) MapLeaves(fn func(Force) Force) {
	for i, child := range c.Forces {
		if nested, ok := child.(*CombinedForce); ok {
			nested.MapLeaves(fn)
			continue
		}
		c.Forces[i] = fn(child)
	}
}

// RemoveKinds drops every leaf whose kind is listed, at any depth.
// It returns the number of leaves removed.
func (c *CombinedForce) RemoveKinds(kinds ...ForceKind) int {
	removed := 0
	kept := c.Forces[:0]
	for _, child := range c.Forces {
		if nested, ok := child.(*CombinedForce); ok {
			removed += nested.RemoveKinds(kinds...)
			kept = append(kept, nested)
			continue
		}
		if containsKind(kinds, child.Kind()) {
			removed++
			continue
		}
		kept = append(kept, child)
	}
	for i := len(kept); i < len(c.Forces); i++ {
		c.Forces[i] = nil
	}
	c.Forces = kept
	return removed
}

// FirstOfKind returns the first force of one of the given kinds found by a
// depth-first walk of f, or false when the tree holds none.
func FirstOfKind(f Force, kinds ...ForceKind) (Force, bool) {
	if f == nil {
		return nil, false
	}
	if containsKind(kinds, f.Kind()) {
		return f, true
	}
	if c, ok := f.(*CombinedForce); ok {
		for _, child := range c.Forces {
			if found, ok := FirstOfKind(child, kinds...); ok {
				return found, true
			}
		}
	}
	return nil, false
}

// Leaves returns the leaf kinds of f in depth-first order.
func Leaves(f Force) []ForceKind {
	var out []ForceKind
	var walk func(Force)
	walk = func(f Force) {
		if c, ok := f.(*CombinedForce); ok {
			for _, child := range c.Forces {
				walk(child)
			}
			return
		}
		out = append(out, f.Kind())
	}
	if f != nil {
		walk(f)
	}
	return out
}

// ConvertForce builds the kind variant of the leaf f, keeping its
// parameters. Constant fields keep E, B, g and drag; grid forces keep their
// grid. c is the speed of light used by relativistic variants.
func ConvertForce(f Force, kind ForceKind, c float64) (Force, error) {
	switch src := f.(type) {
	case *ConstantForce:
		return convertConstant(src.ConstantField, kind, c)
	case *ConstantForceRelativistic:
		return convertConstant(src.ConstantField, kind, c)
	case *GridForce:
		return convertGrid(src.grid, kind, c)
	case *GridForceRelativistic:
		return convertGrid(src.grid, kind, c)
	}
	return nil, fmt.Errorf("%w: %v to %v", ErrNoVariant, f.Kind(), kind)
}

func convertConstant(params ConstantField, kind ForceKind, c float64) (Force, error) {
	switch kind {
	case ForceConstant:
		return &ConstantForce{ConstantField: params}, nil
	case ForceConstantRelativistic:
		return &ConstantForceRelativistic{ConstantField: params, C: c}, nil
	}
	return nil, fmt.Errorf("%w: constant to %v", ErrNoVariant, kind)
}

func convertGrid(g *Grid, kind ForceKind, c float64) (Force, error) {
	switch kind {
	case ForceGrid:
		return NewGridForce(g), nil
	case ForceGridRelativistic:
		return NewGridForceRelativistic(g, c), nil
	}
	return nil, fmt.Errorf("%w: grid to %v", ErrNoVariant, kind)
}

func containsKind(kinds []ForceKind, k ForceKind) bool {
	for _, kind := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}
