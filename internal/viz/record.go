package viz

import (
	"fmt"
	"image"
	"image/gif"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/san-kum/pixi/internal/animation"
	"github.com/san-kum/pixi/internal/scene"
)

// Recorder captures every Every-th repaint as a GIF frame. Frames beyond
// Limit are dropped.
type Recorder struct {
	Every int
	Limit int

	mu       sync.Mutex
	frames   []*image.Paletted
	elapsed  []time.Duration
	renderer *Renderer
	img      *scene.Image
	seen     int
}

var _ animation.Observer = (*Recorder)(nil)

func NewRecorder(w, h int, log *slog.Logger) *Recorder {
	return &Recorder{
		Every:    1,
		Limit:    1000,
		renderer: NewRenderer(log),
		img:      scene.NewImage(w, h),
	}
}

func (r *Recorder) Repaint(f animation.Frame) {
	r.seen++
	if r.seen%max(r.Every, 1) != 0 {
		return
	}
	r.mu.Lock()
	full := len(r.frames) >= r.Limit
	r.mu.Unlock()
	if full {
		return
	}

	r.img.Clear()
	stats := r.renderer.Paint(f.Sim, r.img, scene.NoBudget)
	frame := r.img.Frame()

	r.mu.Lock()
	r.frames = append(r.frames, frame)
	r.elapsed = append(r.elapsed, stats.Elapsed)
	r.mu.Unlock()
}

// Clear keeps the captured frames; recording continues with the next
// simulation.
func (r *Recorder) Clear() { r.renderer.Forget() }

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

// RenderTimes returns the paint time of every captured frame.
func (r *Recorder) RenderTimes() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.elapsed...)
}

// WriteGIF encodes the captured frames as a looping animation.
func (r *Recorder) WriteGIF(w io.Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return fmt.Errorf("viz: no frames recorded")
	}
	anim := gif.GIF{LoopCount: 0}
	for _, frame := range r.frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, 2)
	}
	return gif.EncodeAll(w, &anim)
}

// Save writes the GIF to path.
func (r *Recorder) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.WriteGIF(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
