package viz

import (
	"image/color"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/san-kum/pixi/internal/animation"
	"github.com/san-kum/pixi/internal/scene"
)

// DefaultBudget bounds the time spent painting one terminal frame.
const DefaultBudget = 10 * time.Millisecond

// Frame is one rendered canvas with its statistics.
type Frame struct {
	Cells  [][]rune
	Colors [][]color.RGBA
	Stats  scene.FrameStats
	Tick   uint64
	Rate   float64
	Time   float64
}

type cameraOps struct {
	rot  [3]float64
	zoom int
}

// Observer renders every repaint into a braille canvas and publishes the
// result for the terminal view. Camera changes requested from other
// goroutines are applied at the next repaint.
type Observer struct {
	mu      sync.Mutex
	pending cameraOps
	budget  time.Duration

	renderer *Renderer
	canvas   *scene.Canvas
	timeouts uint64

	latest atomic.Pointer[Frame]
}

var _ animation.Observer = (*Observer)(nil)

// NewObserver returns an observer drawing on cols x rows terminal cells.
func NewObserver(cols, rows int, log *slog.Logger) *Observer {
	o := &Observer{
		budget:   DefaultBudget,
		renderer: NewRenderer(log),
		canvas:   scene.NewCanvas(cols, rows),
	}
	o.latest.Store(&Frame{})
	return o
}

func (o *Observer) Repaint(f animation.Frame) {
	o.mu.Lock()
	ops, budget := o.pending, o.budget
	o.pending = cameraOps{}
	o.mu.Unlock()

	o.renderer.Rotate(ops.rot[0], ops.rot[1], ops.rot[2])
	if ops.zoom != 0 {
		o.renderer.Zoom(ops.zoom)
	}

	o.canvas.Clear()
	stats := o.renderer.Paint(f.Sim, o.canvas, budget)
	if stats.TimedOut {
		o.timeouts++
	}
	o.latest.Store(&Frame{
		Cells:  cloneRows(o.canvas.Grid),
		Colors: cloneRows(o.canvas.Colors),
		Stats:  stats,
		Tick:   f.Tick,
		Rate:   f.Rate,
		Time:   f.Sim.Time(),
	})
}

func (o *Observer) Clear() {
	o.renderer.Forget()
	o.canvas.Clear()
	o.latest.Store(&Frame{})
}

// Latest returns the most recent frame. It is safe for concurrent use.
func (o *Observer) Latest() *Frame { return o.latest.Load() }

func (o *Observer) Rotate(dx, dy, dz float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending.rot[0] += dx
	o.pending.rot[1] += dy
	o.pending.rot[2] += dz
}

func (o *Observer) Zoom(steps int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending.zoom += steps
}

// SetBudget changes the paint budget from the next repaint on.
func (o *Observer) SetBudget(d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.budget = d
}

func cloneRows[T any](rows [][]T) [][]T {
	out := make([][]T, len(rows))
	for i, r := range rows {
		out[i] = append([]T(nil), r...)
	}
	return out
}
