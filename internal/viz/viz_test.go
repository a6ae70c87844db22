package viz

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/gif"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pixi/internal/animation"
	"github.com/san-kum/pixi/internal/metrics"
	"github.com/san-kum/pixi/internal/physics"
	"github.com/san-kum/pixi/internal/strategy"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func frameOf(t *testing.T, preset int, tick uint64) animation.Frame {
	t.Helper()
	sim, err := physics.NewPreset(preset, 1)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sim.Close() })
	return animation.Frame{Sim: sim, Tick: tick, Rate: 30}
}

func lit(f *Frame) int {
	n := 0
	for _, row := range f.Cells {
		for _, c := range row {
			if c != 0x2800 {
				n++
			}
		}
	}
	return n
}

func TestObserverPublishesFrames(t *testing.T) {
	g := NewWithT(t)
	o := NewObserver(40, 12, quiet)
	g.Expect(o.Latest().Cells).To(BeEmpty())

	o.Repaint(frameOf(t, 6, 3))
	f := o.Latest()
	g.Expect(f.Cells).To(HaveLen(12))
	g.Expect(f.Cells[0]).To(HaveLen(40))
	g.Expect(f.Tick).To(Equal(uint64(3)))
	g.Expect(f.Rate).To(Equal(30.0))
	g.Expect(f.Stats.Painted).To(Equal(f.Stats.Primitives))
	g.Expect(lit(f)).To(BeNumerically(">", 0))

	o.Clear()
	g.Expect(o.Latest().Cells).To(BeEmpty())
}

func TestObserverFrameIsACopy(t *testing.T) {
	g := NewWithT(t)
	o := NewObserver(20, 6, quiet)
	o.Repaint(frameOf(t, 6, 1))
	first := o.Latest()
	before := lit(first)

	o.Clear()
	g.Expect(lit(first)).To(Equal(before))
}

func TestObserverBudget(t *testing.T) {
	g := NewWithT(t)
	o := NewObserver(20, 6, quiet)
	o.SetBudget(0)
	o.Repaint(frameOf(t, 6, 1))
	g.Expect(o.Latest().Stats.Painted).To(Equal(1))
	g.Expect(o.Latest().Stats.TimedOut).To(BeTrue())
}

func TestRendererPicksProjection(t *testing.T) {
	g := NewWithT(t)
	r := NewRenderer(quiet)

	flat := frameOf(t, 7, 1).Sim
	r.Paint(flat, NewObserver(10, 5, quiet).canvas, time.Second)
	g.Expect(r.camera).To(BeNil())

	deep := frameOf(t, 12, 1).Sim
	r.Rotate(0.5, 0, 0)
	r.Zoom(2)
	r.Paint(deep, NewObserver(10, 5, quiet).canvas, time.Second)
	g.Expect(r.camera).NotTo(BeNil())
	g.Expect(r.camera.RotX).To(Equal(0.5))
	g.Expect(r.camera.Zoom).To(BeNumerically(">", 1))
}

func TestRecorder(t *testing.T) {
	g := NewWithT(t)
	rec := NewRecorder(32, 32, quiet)
	g.Expect(rec.WriteGIF(io.Discard)).NotTo(Succeed())

	rec.Every = 2
	for i := range 5 {
		rec.Repaint(frameOf(t, 6, uint64(i+1)))
	}
	g.Expect(rec.Len()).To(Equal(2))
	g.Expect(rec.RenderTimes()).To(HaveLen(2))

	var buf bytes.Buffer
	g.Expect(rec.WriteGIF(&buf)).To(Succeed())
	anim, err := gif.DecodeAll(&buf)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(anim.Image).To(HaveLen(2))
}

func TestRecorderLimit(t *testing.T) {
	g := NewWithT(t)
	rec := NewRecorder(8, 8, quiet)
	rec.Limit = 3
	f := frameOf(t, 6, 1)
	for range 5 {
		rec.Repaint(f)
	}
	g.Expect(rec.Len()).To(Equal(3))

	rec.Clear()
	g.Expect(rec.Len()).To(Equal(3))
}

func TestThemes(t *testing.T) {
	g := NewWithT(t)
	g.Expect(ThemeByName("ocean").Name).To(Equal("ocean"))
	g.Expect(ThemeByName("nope")).To(Equal(Themes[0]))

	th := Themes[0]
	for range Themes {
		th = NextTheme(th)
	}
	g.Expect(th).To(Equal(Themes[0]))
	g.Expect(ThemeNames()).To(HaveLen(len(Themes)))
}

type harness struct {
	anim   *animation.Animation
	obs    *Observer
	ticker *animation.ManualTicker
	clock  *animation.FakeClock
}

func newHarness(t *testing.T, preset int) *harness {
	t.Helper()
	g := NewWithT(t)
	h := &harness{clock: animation.NewFakeClock(time.Unix(0, 0))}
	h.ticker = animation.NewManualTicker(h.clock)

	anim, err := animation.New(animation.Config{
		Preset: preset,
		Seed:   1,
		Clock:  h.clock,
		Ticker: h.ticker,
		Logger: quiet,
	})
	g.Expect(err).NotTo(HaveOccurred())
	h.anim = anim
	h.obs = NewObserver(20, 8, quiet)
	anim.AddObserver(h.obs)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- anim.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

func (h *harness) fire(t *testing.T) {
	t.Helper()
	h.clock.Advance(20 * time.Millisecond)
	if !h.ticker.Fire() {
		t.Fatal("ticker not armed")
	}
	if err := h.anim.Sync(); err != nil {
		t.Fatal(err)
	}
}

func press(m tea.Model, key string) (tea.Model, tea.Msg) {
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
	if cmd == nil {
		return m, nil
	}
	out := cmd()
	if r, ok := out.(resultMsg); ok {
		m, _ = m.Update(r)
	}
	return m, out
}

func refresh(m tea.Model) tea.Model {
	m, _ = m.Update(TickMsg(time.Now()))
	return m
}

func TestModelStartStop(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t, 6)
	var m tea.Model = NewModel(h.anim, h.obs, ThemeCyberpunk)

	m, msg := press(m, " ")
	g.Expect(msg).To(Equal(resultMsg{action: "started"}))
	m = refresh(m)
	g.Expect(m.(Model).status.Running).To(BeTrue())

	h.fire(t)
	m = refresh(m)
	g.Expect(m.(Model).frame.Tick).To(Equal(uint64(1)))
	g.Expect(m.(Model).rates).NotTo(BeEmpty())
	g.Expect(m.View()).To(ContainSubstring("RUNNING"))

	m, _ = press(m, " ")
	m = refresh(m)
	g.Expect(m.(Model).status.Running).To(BeFalse())
	g.Expect(m.View()).To(ContainSubstring("STOPPED"))
}

func TestModelStrategyKeys(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t, 6)
	var m tea.Model = NewModel(h.anim, h.obs, ThemeCyberpunk)
	before := h.anim.Status().Strategy

	m, _ = press(m, "i")
	sel := h.anim.Status().Strategy
	g.Expect(sel.Integrator).To(Equal(physics.SolverKind((int(before.Integrator) + 1) % physics.NumUserSolvers)))

	m, _ = press(m, "b")
	g.Expect(h.anim.Status().Strategy.Boundary).To(Equal((before.Boundary + 1) % physics.NumBoundaries))

	if before.Detector == physics.DetectorNone {
		m, msg := press(m, "a")
		g.Expect(msg.(resultMsg).err).To(MatchError(strategy.ErrCollisionsDisabled))
		g.Expect(m.(Model).failed).To(BeTrue())
		g.Expect(m.View()).To(ContainSubstring("algorithm"))
	}

	m, _ = press(m, "c")
	g.Expect(h.anim.Status().Strategy.Detector).To(Equal((before.Detector + 1) % physics.NumDetectors))
	m, msg := press(m, "a")
	g.Expect(msg.(resultMsg).err).NotTo(HaveOccurred())
	g.Expect(m.(Model).failed).To(BeFalse())
}

func TestModelResetKeys(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t, 6)
	var m tea.Model = NewModel(h.anim, h.obs, ThemeCyberpunk)

	m, msg := press(m, "n")
	g.Expect(msg).To(Equal(resultMsg{action: "preset 7"}))
	m = refresh(m)
	g.Expect(m.(Model).status.Preset).To(Equal(7))
	g.Expect(m.(Model).status.Running).To(BeTrue())

	m, _ = press(m, "p")
	m = refresh(m)
	m, _ = press(m, "p")
	m = refresh(m)
	g.Expect(m.(Model).status.Preset).To(Equal(5))

	m, _ = press(m, "4")
	m = refresh(m)
	g.Expect(m.(Model).status.Preset).To(Equal(4))
	g.Expect(m.View()).To(ContainSubstring(physics.PresetNames()[4]))
}

func TestModelPeriodAndField(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t, 7)
	var m tea.Model = NewModel(h.anim, h.obs, ThemeCyberpunk)
	field := h.anim.Status().Field

	m, _ = press(m, "-")
	g.Expect(h.anim.Status().Period).To(Equal(animation.DefaultPeriod + periodStep*time.Millisecond))

	m, _ = press(m, "f")
	g.Expect(h.anim.Status().Field).To(Equal(!field))
}

func TestModelGridKeys(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t, 7)
	var m tea.Model = NewModel(h.anim, h.obs, ThemeCyberpunk)
	cells := h.anim.Status().GridCells
	g.Expect(cells[2]).To(BeZero())

	m, msg := press(m, "m")
	g.Expect(msg.(resultMsg).err).NotTo(HaveOccurred())
	g.Expect(h.anim.Status().GridCells).To(Equal([3]int{cells[0] + 1, cells[1] + 1, 0}))
	m = refresh(m)
	g.Expect(m.View()).To(ContainSubstring(fmt.Sprintf("%dx%dx0", cells[0]+1, cells[1]+1)))

	m, _ = press(m, "M")
	g.Expect(h.anim.Status().GridCells).To(Equal(cells))
}

func TestModelShowsUnpairedIntegrator(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t, 7)
	var m tea.Model = NewModel(h.anim, h.obs, ThemeCyberpunk)

	g.Expect(h.anim.Strategy(func(sb *strategy.Switchboard) error {
		return sb.SetIntegrator(physics.EulerRichardson)
	})).To(Succeed())
	m = refresh(m)
	sel := m.(Model).status.Strategy
	g.Expect(sel.Relativistic).To(BeTrue())
	g.Expect(sel.RelativisticAvailable).To(BeFalse())

	view := m.View()
	g.Expect(view).To(ContainSubstring("(unpaired)"))
	g.Expect(view).NotTo(ContainSubstring("n/a"))
	g.Expect(onOff(sel.Relativistic)).To(Equal("on"))
}

func TestModelViewKeys(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t, 6)
	var m tea.Model = NewModel(h.anim, h.obs, ThemeCyberpunk)

	m, _ = press(m, "t")
	g.Expect(m.(Model).theme.Name).To(Equal(NextTheme(ThemeCyberpunk).Name))

	m, _ = press(m, "?")
	g.Expect(m.View()).To(ContainSubstring("record GIF"))

	withMetrics := m.(Model)
	withMetrics.Metrics = metrics.Default()
	g.Expect(withMetrics.View()).To(ContainSubstring("energy_drift"))

	m, _ = press(m, "x")
	m, _ = press(m, "]")
	h.obs.mu.Lock()
	g.Expect(h.obs.pending.rot[0]).To(Equal(rotateStep))
	g.Expect(h.obs.pending.zoom).To(Equal(1))
	h.obs.mu.Unlock()

	_, msg := press(m, "q")
	g.Expect(msg).To(Equal(tea.QuitMsg{}))
}

func TestModelRecording(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t, 6)
	model := NewModel(h.anim, h.obs, ThemeCyberpunk)
	model.RecordDir = t.TempDir()
	model.now = func() time.Time { return time.Unix(42, 0) }
	var m tea.Model = model

	g.Expect(h.anim.Start()).To(Succeed())
	m, _ = press(m, "g")
	g.Expect(m.(Model).Recording()).To(BeTrue())
	h.fire(t)
	h.fire(t)

	m, msg := press(m, "g")
	g.Expect(m.(Model).Recording()).To(BeFalse())
	g.Expect(msg.(resultMsg).err).NotTo(HaveOccurred())

	path := filepath.Join(model.RecordDir, "pixi-42.gif")
	data, err := os.ReadFile(path)
	g.Expect(err).NotTo(HaveOccurred())
	anim, err := gif.DecodeAll(bytes.NewReader(data))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(anim.Image).To(HaveLen(2))
}

func TestRecordingWithoutFramesFails(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t, 6)
	model := NewModel(h.anim, h.obs, ThemeCyberpunk)
	model.RecordDir = t.TempDir()
	var m tea.Model = model

	m, _ = press(m, "g")
	_, msg := press(m, "g")
	err := msg.(resultMsg).err
	g.Expect(err).To(HaveOccurred())
	var pathErr *os.PathError
	g.Expect(errors.As(err, &pathErr)).To(BeFalse())
}
