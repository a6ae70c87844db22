// Package scene paints projected entities back to front within a time
// budget.
//
// Every call to [Scene.Paint] projects all entities, collects their
// primitives, sorts them by ascending depth with a stable sort and paints
// them in that order. The budget is checked after each primitive, so a frame
// overruns it by at most the cost of one paint call. Primitives are rebuilt
// on every call; nothing is cached across frames.
package scene

import (
	"image/color"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// NoBudget disables the paint deadline.
const NoBudget = time.Duration(math.MaxInt64)

// Projection maps world coordinates onto the unit square [-1, 1]².
type Projection interface {
	// Project returns the normalised surface position of p and its depth.
	// Depth grows toward the viewer, so the farthest point has the lowest
	// depth.
	Project(p mgl64.Vec3) (x, y, depth float64, visible bool)
	// Scale returns the normalised length of one world unit at depth.
	Scale(depth float64) float64
}

// Surface receives paint calls in surface units: x to the right, y down,
// bounded by Bounds.
type Surface interface {
	Bounds() (w, h int)
	Dot(x, y float64, c color.RGBA)
	Line(x0, y0, x1, y1 float64, c color.RGBA)
	Disc(x, y, r float64, c color.RGBA)
}

// Primitive is one depth-sorted paint operation.
type Primitive interface {
	Depth() float64
	Paint(s Surface)
}

// Entity decomposes into primitives for a given projection.
type Entity interface {
	// ApplyProjection rebuilds the primitives of the entity for proj. It must
	// not change anything but the entity's primitive state.
	ApplyProjection(proj Projection)
	Primitives() []Primitive
}

// FrameStats describes one Paint call.
type FrameStats struct {
	Primitives int
	Painted    int
	TimedOut   bool
	Elapsed    time.Duration
}

type Config struct {
	// Now is the clock used for the budget. Nil uses time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// Scene is a list of entities painted together. It is not safe for
// concurrent use.
type Scene struct {
	entities []Entity
	order    []Primitive
	now      func() time.Time
	log      *slog.Logger
	last     FrameStats
}

func New(cfg Config) *Scene {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Scene{now: cfg.Now, log: cfg.Logger}
}

// Add registers e. Entities are not de-duplicated; registration order breaks
// depth ties.
func (s *Scene) Add(e Entity) {
	s.entities = append(s.entities, e)
}

// Reset drops every entity.
func (s *Scene) Reset() {
	clear(s.entities)
	s.entities = s.entities[:0]
	clear(s.order)
	s.order = s.order[:0]
}

func (s *Scene) Len() int { return len(s.entities) }

// LastFrame returns the statistics of the most recent Paint.
func (s *Scene) LastFrame() FrameStats { return s.last }

// Paint projects, sorts and paints every primitive onto surf. Painting stops
// once the elapsed time exceeds budget while primitives remain; a
// non-positive budget paints a single primitive.
func (s *Scene) Paint(proj Projection, surf Surface, budget time.Duration) FrameStats {
	for _, e := range s.entities {
		e.ApplyProjection(proj)
	}

	s.order = s.order[:0]
	for _, e := range s.entities {
		s.order = append(s.order, e.Primitives()...)
	}
	sort.SliceStable(s.order, func(i, j int) bool {
		return s.order[i].Depth() < s.order[j].Depth()
	})

	stats := FrameStats{Primitives: len(s.order)}
	start := s.now()
	for i, p := range s.order {
		p.Paint(surf)
		stats.Painted++
		if i == len(s.order)-1 {
			break
		}
		if budget <= 0 || s.now().Sub(start) > budget {
			stats.TimedOut = true
			break
		}
	}
	stats.Elapsed = s.now().Sub(start)
	s.last = stats

	if stats.TimedOut {
		s.log.Debug("render budget exceeded",
			"painted", stats.Painted, "primitives", stats.Primitives,
			"elapsed", stats.Elapsed, "budget", budget)
	}
	return stats
}

// toSurface maps a normalised position onto surf, keeping the aspect ratio.
func toSurface(surf Surface, x, y float64) (float64, float64) {
	w, h := surf.Bounds()
	half := float64(min(w, h)) / 2
	return float64(w)/2 + x*half, float64(h)/2 - y*half
}

// surfaceLength converts a normalised length to surface units.
func surfaceLength(surf Surface, l float64) float64 {
	w, h := surf.Bounds()
	return l * float64(min(w, h)) / 2
}
