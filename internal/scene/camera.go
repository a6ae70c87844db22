package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Camera is a perspective projection orbiting the centre of a box.
type Camera struct {
	Center   mgl64.Vec3
	Distance float64
	FOV      float64
	Near     float64
	Far      float64
	RotX     float64
	RotY     float64
	RotZ     float64
	Zoom     float64

	view  mgl64.Mat4
	proj  mgl64.Mat4
	focal float64
	dirty bool
}

// NewCamera frames a box of the given extent.
func NewCamera(extent mgl64.Vec3) *Camera {
	size := math.Max(extent.X(), math.Max(extent.Y(), extent.Z()))
	if size <= 0 {
		size = 1
	}
	return &Camera{
		Center:   extent.Mul(0.5),
		Distance: 2 * size,
		FOV:      math.Pi / 4,
		Near:     0.1,
		Far:      100 * size,
		Zoom:     1,
		dirty:    true,
	}
}

func (c *Camera) RotateX(a float64) { c.RotX += a; c.dirty = true }
func (c *Camera) RotateY(a float64) { c.RotY += a; c.dirty = true }
func (c *Camera) RotateZ(a float64) { c.RotZ += a; c.dirty = true }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(10, c.Zoom*1.2); c.dirty = true }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.1, c.Zoom/1.2); c.dirty = true }

func (c *Camera) update() {
	if !c.dirty {
		return
	}
	eye := mgl64.Vec3{0, 0, c.Distance / c.Zoom}
	rot := mgl64.HomogRotate3DZ(c.RotZ).
		Mul4(mgl64.HomogRotate3DY(c.RotY)).
		Mul4(mgl64.HomogRotate3DX(c.RotX))
	model := rot.Mul4(mgl64.Translate3D(-c.Center.X(), -c.Center.Y(), -c.Center.Z()))
	c.view = mgl64.LookAtV(eye, mgl64.Vec3{}, mgl64.Vec3{0, 1, 0}).Mul4(model)
	c.proj = mgl64.Perspective(c.FOV, 1, c.Near, c.Far)
	c.focal = 1 / math.Tan(c.FOV/2)
	c.dirty = false
}

// Project returns the normalised device position of p. Depth is the view
// space z coordinate, negative in front of the camera.
func (c *Camera) Project(p mgl64.Vec3) (float64, float64, float64, bool) {
	c.update()
	v := c.view.Mul4x1(p.Vec4(1))
	clip := c.proj.Mul4x1(v)
	if clip.W() <= 0 {
		return 0, 0, v.Z(), false
	}
	x, y := clip.X()/clip.W(), clip.Y()/clip.W()
	visible := -v.Z() >= c.Near && -v.Z() <= c.Far && math.Abs(x) <= 1 && math.Abs(y) <= 1
	return x, y, v.Z(), visible
}

// ClipNear trims the segment ab to the part in front of the near plane.
// ok is false when the whole segment lies behind it.
func (c *Camera) ClipNear(a, b mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3, bool) {
	c.update()
	za := -c.view.Mul4x1(a.Vec4(1)).Z()
	zb := -c.view.Mul4x1(b.Vec4(1)).Z()
	switch {
	case za < c.Near && zb < c.Near:
		return a, b, false
	case za < c.Near:
		a = a.Add(b.Sub(a).Mul((c.Near - za) / (zb - za)))
	case zb < c.Near:
		b = b.Add(a.Sub(b).Mul((c.Near - zb) / (za - zb)))
	}
	return a, b, true
}

func (c *Camera) Scale(depth float64) float64 {
	c.update()
	if depth >= 0 {
		return 0
	}
	return c.focal / -depth
}

// Orthographic looks down the z axis onto the x-y plane of a box. Depth is
// the z coordinate.
type Orthographic struct {
	Center mgl64.Vec3
	scale  float64
}

// NewOrthographic fits a box of the given extent into the unit square.
func NewOrthographic(extent mgl64.Vec3) *Orthographic {
	size := math.Max(extent.X(), extent.Y())
	if size <= 0 {
		size = 1
	}
	return &Orthographic{Center: extent.Mul(0.5), scale: 2 / size}
}

func (o *Orthographic) Project(p mgl64.Vec3) (float64, float64, float64, bool) {
	x := (p.X() - o.Center.X()) * o.scale
	y := (p.Y() - o.Center.Y()) * o.scale
	return x, y, p.Z(), math.Abs(x) <= 1 && math.Abs(y) <= 1
}

func (o *Orthographic) Scale(float64) float64 { return o.scale }
