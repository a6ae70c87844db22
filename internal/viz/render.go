package viz

import (
	"log/slog"
	"time"

	"github.com/san-kum/pixi/internal/physics"
	"github.com/san-kum/pixi/internal/scene"
)

// Renderer paints a simulation through a Scene. Boxes with depth are seen
// through a perspective camera, flat ones from above. It rebinds its
// entities whenever it is handed a different simulation.
type Renderer struct {
	scene  *scene.Scene
	sim    *physics.Simulation
	box    *scene.Box
	camera *scene.Camera
	ortho  *scene.Orthographic
	rot    [3]float64
	zoom   int
}

func NewRenderer(log *slog.Logger) *Renderer {
	return &Renderer{scene: scene.New(scene.Config{Logger: log})}
}

func (r *Renderer) bind(sim *physics.Simulation) {
	r.scene.Reset()
	r.sim = sim
	ext := sim.Extent()
	r.box = scene.NewBox(ext)
	r.scene.Add(r.box)
	r.scene.Add(scene.NewField(sim))
	r.scene.Add(scene.NewParticles(sim))

	r.ortho = scene.NewOrthographic(ext)
	r.camera = nil
	if ext.Z() > 0 {
		r.camera = scene.NewCamera(ext)
		r.camera.RotateX(r.rot[0])
		r.camera.RotateY(r.rot[1])
		r.camera.RotateZ(r.rot[2])
		for range max(r.zoom, -r.zoom) {
			if r.zoom > 0 {
				r.camera.ZoomIn()
			} else {
				r.camera.ZoomOut()
			}
		}
	}
}

// Rotate turns the camera of three-dimensional boxes. The rotation carries
// over to later simulations.
func (r *Renderer) Rotate(dx, dy, dz float64) {
	r.rot[0] += dx
	r.rot[1] += dy
	r.rot[2] += dz
	if r.camera != nil {
		r.camera.RotateX(dx)
		r.camera.RotateY(dy)
		r.camera.RotateZ(dz)
	}
}

// Zoom moves the camera in (positive steps) or out.
func (r *Renderer) Zoom(steps int) {
	r.zoom += steps
	if r.camera == nil {
		return
	}
	for range max(steps, -steps) {
		if steps > 0 {
			r.camera.ZoomIn()
		} else {
			r.camera.ZoomOut()
		}
	}
}

func (r *Renderer) projection() scene.Projection {
	if r.camera != nil {
		return r.camera
	}
	return r.ortho
}

// Paint draws sim onto surf within budget.
func (r *Renderer) Paint(sim *physics.Simulation, surf scene.Surface, budget time.Duration) scene.FrameStats {
	if sim != r.sim {
		r.bind(sim)
	}
	if ext := sim.Extent(); ext != r.box.Extent {
		r.box.Extent = ext
		r.ortho = scene.NewOrthographic(ext)
	}
	return r.scene.Paint(r.projection(), surf, budget)
}

// Forget drops the bound simulation and its entities.
func (r *Renderer) Forget() {
	r.scene.Reset()
	r.sim = nil
	r.box = nil
}
