package scene

import (
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/pixi/internal/physics"
)

type disc struct {
	x, y, depth, r float64
	c              color.RGBA
}

func (d disc) Depth() float64 { return d.depth }

func (d disc) Paint(s Surface) {
	x, y := toSurface(s, d.x, d.y)
	s.Disc(x, y, surfaceLength(s, d.r), d.c)
}

type segment struct {
	x0, y0, x1, y1, depth float64
	c                     color.RGBA
}

func (l segment) Depth() float64 { return l.depth }

func (l segment) Paint(s Surface) {
	x0, y0 := toSurface(s, l.x0, l.y0)
	x1, y1 := toSurface(s, l.x1, l.y1)
	s.Line(x0, y0, x1, y1, l.c)
}

// nearClipper is implemented by projections that can see points behind
// the viewer.
type nearClipper interface {
	ClipNear(a, b mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3, bool)
}

// projectSegment projects ab, dropping the part behind the viewer. ok is
// false when nothing of the segment is left on screen.
func projectSegment(proj Projection, a, b mgl64.Vec3, c color.RGBA) (segment, bool) {
	if nc, ok := proj.(nearClipper); ok {
		var front bool
		if a, b, front = nc.ClipNear(a, b); !front {
			return segment{}, false
		}
	}
	x0, y0, d0, v0 := proj.Project(a)
	x1, y1, d1, v1 := proj.Project(b)
	if !v0 && !v1 {
		return segment{}, false
	}
	return segment{x0, y0, x1, y1, (d0 + d1) / 2, c}, true
}

// ParticleSource exposes the particles to draw.
type ParticleSource interface {
	Particles() []*physics.Particle
}

// Particles draws every particle as a disc in its own colour.
type Particles struct {
	src   ParticleSource
	prims []Primitive
}

func NewParticles(src ParticleSource) *Particles {
	return &Particles{src: src}
}

func (e *Particles) ApplyProjection(proj Projection) {
	e.prims = e.prims[:0]
	for _, p := range e.src.Particles() {
		x, y, depth, ok := proj.Project(p.Pos)
		if !ok {
			continue
		}
		e.prims = append(e.prims, disc{x: x, y: y, depth: depth, r: p.Radius * proj.Scale(depth), c: p.Color})
	}
}

func (e *Particles) Primitives() []Primitive { return e.prims }

var boxEdges = [12][2]int{
	{0, 1}, {1, 2}, {2, 3}, {3, 0},
	{4, 5}, {5, 6}, {6, 7}, {7, 4},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// Box draws the wireframe of the simulation box [0, extent]. A flat box
// draws only its bottom face.
type Box struct {
	Extent mgl64.Vec3
	Color  color.RGBA
	prims  []Primitive
}

func NewBox(extent mgl64.Vec3) *Box {
	return &Box{Extent: extent, Color: color.RGBA{R: 0x66, G: 0x66, B: 0x66, A: 0xff}}
}

func (b *Box) ApplyProjection(proj Projection) {
	b.prims = b.prims[:0]
	x, y, z := b.Extent.X(), b.Extent.Y(), b.Extent.Z()
	v := [8]mgl64.Vec3{{0, 0, 0}, {x, 0, 0}, {x, y, 0}, {0, y, 0}, {0, 0, z}, {x, 0, z}, {x, y, z}, {0, y, z}}
	edges := boxEdges[:]
	if z == 0 {
		edges = edges[:4]
	}
	for _, e := range edges {
		if seg, ok := projectSegment(proj, v[e[0]], v[e[1]], b.Color); ok {
			b.prims = append(b.prims, seg)
		}
	}
}

func (b *Box) Primitives() []Primitive { return b.prims }

// GridSource exposes the grid whose field is drawn.
type GridSource interface {
	Grid() *physics.Grid
	GridForceOn() bool
}

// Field draws the grid electric field as one segment per cell, pointing
// along the field from the cell centre. The longest segment spans 80% of a
// cell. Nothing is drawn while the grid force is off.
type Field struct {
	src   GridSource
	Color color.RGBA
	prims []Primitive
}

func NewField(src GridSource) *Field {
	return &Field{src: src, Color: color.RGBA{R: 0x00, G: 0x88, B: 0x88, A: 0xff}}
}

func (f *Field) ApplyProjection(proj Projection) {
	f.prims = f.prims[:0]
	g := f.src.Grid()
	if g == nil || !f.src.GridForceOn() {
		return
	}

	peak := 0.0
	for i := range g.NX {
		for j := range g.NY {
			peak = math.Max(peak, g.ElectricAt(cellCentre(g, i, j)).Len())
		}
	}
	if peak == 0 {
		return
	}
	scale := 0.8 * g.Step / peak

	for i := range g.NX {
		for j := range g.NY {
			c := cellCentre(g, i, j)
			tip := c.Add(g.ElectricAt(c).Mul(scale))
			if seg, ok := projectSegment(proj, c, tip, f.Color); ok {
				f.prims = append(f.prims, seg)
			}
		}
	}
}

func (f *Field) Primitives() []Primitive { return f.prims }

func cellCentre(g *physics.Grid, i, j int) mgl64.Vec3 {
	return mgl64.Vec3{(float64(i) + 0.5) * g.Step, (float64(j) + 0.5) * g.Step, 0}
}
