package animation

import (
	"context"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"

	"github.com/san-kum/pixi/internal/physics"
	"github.com/san-kum/pixi/internal/strategy"
)

// recorder logs the notifications it receives.
type recorder struct {
	mu     sync.Mutex
	events []string
	sims   []*physics.Simulation
}

func (r *recorder) Repaint(f Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "repaint")
	r.sims = append(r.sims, f.Sim)
}

func (r *recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "clear")
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

var _ = Describe("Animation", func() {
	var (
		anim   *Animation
		ticker *ManualTicker
		clock  *FakeClock
		logs   *gbytes.Buffer
		cancel context.CancelFunc
		done   chan error
	)

	// fire delivers one tick and waits until it has been processed.
	fire := func() {
		GinkgoHelper()
		clock.Advance(20 * time.Millisecond)
		Expect(ticker.Fire()).To(BeTrue())
		Expect(anim.Sync()).To(Succeed())
	}

	run := func(cfg Config) {
		GinkgoHelper()
		clock = NewFakeClock(time.Unix(0, 0))
		ticker = NewManualTicker(clock)
		logs = gbytes.NewBuffer()
		cfg.Clock = clock
		cfg.Ticker = ticker
		cfg.Logger = slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
		if cfg.Seed == 0 {
			cfg.Seed = 1
		}

		var err error
		anim, err = New(cfg)
		Expect(err).NotTo(HaveOccurred())

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		done = make(chan error, 1)
		go func() { done <- anim.Run(ctx) }()
	}

	AfterEach(func() {
		cancel()
		Eventually(done).Should(Receive(MatchError(context.Canceled)))
		Expect(anim.Start()).To(MatchError(ErrClosed))
	})

	Describe("start and stop", func() {
		BeforeEach(func() { run(Config{}) })

		It("is stopped until started", func() {
			Expect(anim.Status().Running).To(BeFalse())
			Expect(ticker.Fire()).To(BeFalse())
		})

		It("ticks once per fired period", func() {
			Expect(anim.Start()).To(Succeed())
			Expect(ticker.Period()).To(Equal(DefaultPeriod))

			fire()
			fire()
			st := anim.Status()
			Expect(st.Running).To(BeTrue())
			Expect(st.Ticks).To(BeEquivalentTo(2))
			Expect(st.Step).To(Equal(2))
			Expect(ticker.Armed()).To(BeTrue())
		})

		It("is idempotent", func() {
			Expect(anim.Start()).To(Succeed())
			Expect(anim.Start()).To(Succeed())
			fire()
			Expect(anim.Stop()).To(Succeed())
			Expect(anim.Stop()).To(Succeed())
			Expect(anim.Status().Running).To(BeFalse())
			Expect(ticker.Fire()).To(BeFalse())
			Expect(anim.Status().Ticks).To(BeEquivalentTo(1))
		})
	})

	Describe("period", func() {
		BeforeEach(func() { run(Config{}) })

		It("applies from the next scheduled tick", func() {
			Expect(anim.Start()).To(Succeed())
			Expect(anim.SetPeriod(50)).To(Succeed())
			Expect(ticker.Period()).To(Equal(DefaultPeriod))

			fire()
			Expect(ticker.Period()).To(Equal(50 * time.Millisecond))
			Expect(anim.Status().Period).To(Equal(50 * time.Millisecond))
		})

		It("clamps non-positive values", func() {
			Expect(anim.SetPeriod(0)).To(Succeed())
			Expect(anim.Status().Period).To(Equal(MinPeriod))
			Expect(anim.SetPeriod(-20)).To(Succeed())
			Expect(anim.Status().Period).To(Equal(MinPeriod))
		})

		It("saturates huge values", func() {
			Expect(anim.SetPeriod(math.MaxInt)).To(Succeed())
			Expect(anim.Status().Period).To(Equal(MaxPeriod))
			Expect(anim.SetPeriod(int(MaxPeriod.Milliseconds()) - 1)).To(Succeed())
			Expect(anim.Status().Period).To(Equal(MaxPeriod - time.Millisecond))
		})
	})

	Describe("observers", func() {
		BeforeEach(func() { run(Config{}) })

		It("are repainted after every tick in registration order", func() {
			var (
				mu    sync.Mutex
				order []int
			)
			for i := range 3 {
				anim.AddObserver(&funcObserver{repaint: func(Frame) {
					mu.Lock()
					order = append(order, i)
					mu.Unlock()
				}})
			}
			Expect(anim.Start()).To(Succeed())
			fire()
			fire()

			mu.Lock()
			defer mu.Unlock()
			Expect(order).To(Equal([]int{0, 1, 2, 0, 1, 2}))
		})

		It("buffers removal requested during a notification", func() {
			rec := &recorder{}
			var self *funcObserver
			self = &funcObserver{repaint: func(Frame) { anim.RemoveObserver(self) }}
			anim.AddObserver(self)
			anim.AddObserver(rec)

			Expect(anim.Start()).To(Succeed())
			fire()
			fire()
			Expect(rec.Events()).To(Equal([]string{"repaint", "repaint"}))
			Expect(self.calls).To(Equal(1))
		})

		It("receive the live simulation", func() {
			rec := &recorder{}
			anim.AddObserver(rec)
			Expect(anim.Start()).To(Succeed())
			fire()

			var live *physics.Simulation
			Expect(anim.Inspect(func(sim *physics.Simulation) { live = sim })).To(Succeed())
			rec.mu.Lock()
			defer rec.mu.Unlock()
			Expect(rec.sims).To(ConsistOf(live))
		})
	})

	Describe("reset", func() {
		var rec *recorder

		BeforeEach(func() {
			run(Config{})
			rec = &recorder{}
			anim.AddObserver(rec)
		})

		It("leaves the animation running with a cleared rate", func() {
			Expect(anim.Start()).To(Succeed())
			fire()
			fire()
			fire()
			Expect(anim.Status().Rate).To(BeNumerically(">", 0))

			Expect(anim.Stop()).To(Succeed())
			Expect(anim.Reset(4)).To(Succeed())
			st := anim.Status()
			Expect(st.Running).To(BeTrue())
			Expect(st.Rate).To(BeZero())
			Expect(st.Ticks).To(BeZero())
			Expect(st.Step).To(BeZero())
			Expect(st.Preset).To(Equal(4))
			Expect(st.Particles).To(Equal(1))
			Expect(rec.Events()).To(Equal([]string{"repaint", "repaint", "repaint", "clear"}))
		})

		It("accepts settings with a cleared rate", func() {
			Expect(anim.Start()).To(Succeed())
			fire()
			fire()
			fire()
			Expect(anim.Status().Rate).To(BeNumerically(">", 0))

			s, err := physics.PresetSettings(6, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(anim.ResetSettings(s)).To(Succeed())

			st := anim.Status()
			Expect(st.Running).To(BeTrue())
			Expect(st.Rate).To(BeZero())
			Expect(st.Ticks).To(BeZero())
			Expect(st.Preset).To(Equal(-1))
			Expect(st.Particles).To(Equal(3))
			Expect(rec.Events()).To(Equal([]string{"repaint", "repaint", "repaint", "clear"}))
		})

		It("is all or nothing", func() {
			Expect(anim.Start()).To(Succeed())
			before := anim.Status()

			Expect(anim.Reset(physics.NumPresets)).To(MatchError(physics.ErrUnknownPreset))
			st := anim.Status()
			Expect(st.Running).To(BeFalse())
			Expect(st.Particles).To(Equal(before.Particles))
			Expect(st.Preset).To(Equal(before.Preset))
			Expect(rec.Events()).To(BeEmpty())

			bad := physics.DefaultSettings()
			bad.TimeStep = -1
			Expect(anim.ResetSettings(bad)).To(MatchError(physics.ErrInvalidSettings))
		})

		It("re-arms the field toggle", func() {
			Expect(anim.Status().Field).To(BeFalse())
			Expect(anim.ToggleField()).To(Succeed())
			Expect(anim.Status().Field).To(BeTrue())

			for _, reset := range []func() error{
				func() error { return anim.Reset(4) },
				func() error {
					s, _ := physics.PresetSettings(5, 1)
					return anim.ResetSettings(s)
				},
			} {
				Expect(reset()).To(Succeed())
				Expect(anim.Inspect(func(sim *physics.Simulation) {
					Expect(sim.GridForceOn()).To(BeTrue())
				})).To(Succeed())
			}

			Expect(anim.ToggleField()).To(Succeed())
			Expect(anim.Reset(7)).To(Succeed())
			Expect(anim.Inspect(func(sim *physics.Simulation) {
				Expect(sim.GridForceOn()).To(BeFalse())
			})).To(Succeed())
		})

		It("prepares the particles of the new simulation", func() {
			Expect(anim.Reset(7)).To(Succeed())
			Expect(anim.Inspect(func(sim *physics.Simulation) {
				for _, p := range sim.Particles() {
					Expect(p.Staggered()).To(BeTrue())
				}
			})).To(Succeed())
		})
	})

	Describe("grid resize", func() {
		var rec *recorder

		BeforeEach(func() {
			run(Config{Preset: 7})
			rec = &recorder{}
			anim.AddObserver(rec)
		})

		It("resizes the box between ticks and clears observers", func() {
			Expect(anim.Start()).To(Succeed())
			fire()
			Expect(anim.ResizeGrid(20, 12, 0)).To(Succeed())
			Expect(anim.Status().GridCells).To(Equal([3]int{20, 12, 0}))
			Expect(anim.Inspect(func(sim *physics.Simulation) {
				Expect(sim.Extent().X()).To(Equal(20 * sim.Grid().Step))
				for _, p := range sim.Particles() {
					Expect(p.Pos.X()).To(BeNumerically("<=", sim.Extent().X()))
					Expect(p.Pos.Y()).To(BeNumerically("<=", sim.Extent().Y()))
				}
			})).To(Succeed())

			fire()
			Expect(rec.Events()).To(Equal([]string{"repaint", "clear", "repaint"}))
			Expect(anim.Status().Running).To(BeTrue())
			Expect(logs).To(gbytes.Say("grid resized"))
		})

		It("rejects empty meshes", func() {
			before := anim.Status().GridCells
			Expect(anim.ResizeGrid(0, 4, 0)).To(MatchError(physics.ErrInvalidSettings))
			Expect(anim.Status().GridCells).To(Equal(before))
			Expect(rec.Events()).To(BeEmpty())
		})
	})

	Describe("step failures", func() {
		BeforeEach(func() {
			blocker := filepath.Join(GinkgoT().TempDir(), "file")
			Expect(os.WriteFile(blocker, nil, 0o644)).To(Succeed())

			s, err := physics.PresetSettings(4, 1)
			Expect(err).NotTo(HaveOccurred())
			s.Output = physics.Output{Path: filepath.Join(blocker, "out"), SampleStep: 1}
			run(Config{Settings: &s})
		})

		It("are logged and do not stop the animation", func() {
			Expect(anim.Start()).To(Succeed())
			fire()
			fire()
			Expect(logs).To(gbytes.Say("simulation step failed"))

			st := anim.Status()
			Expect(st.Running).To(BeTrue())
			Expect(st.Ticks).To(BeEquivalentTo(2))
		})
	})

	Describe("strategy swaps", func() {
		BeforeEach(func() { run(Config{}) })

		It("run between ticks", func() {
			Expect(anim.Start()).To(Succeed())
			fire()
			Expect(anim.Strategy(func(sb *strategy.Switchboard) error {
				return sb.SetIntegrator(physics.Boris)
			})).To(Succeed())
			Expect(anim.Strategy(func(sb *strategy.Switchboard) error {
				return sb.ToggleRelativistic()
			})).To(Succeed())
			fire()

			sel := anim.Status().Strategy
			Expect(sel.Integrator).To(Equal(physics.Boris))
			Expect(sel.Relativistic).To(BeTrue())
		})

		It("return selector errors", func() {
			err := anim.Strategy(func(sb *strategy.Switchboard) error {
				return sb.SetResolutionAlgorithm(physics.ResolutionVector)
			})
			Expect(err).To(MatchError(strategy.ErrCollisionsDisabled))
		})
	})

	Describe("tuning", func() {
		BeforeEach(func() { run(Config{Preset: 4}) })

		It("edits the constant field", func() {
			Expect(anim.TuneField(func(f *physics.ConstantField) { f.Drag = 0.3 })).To(Succeed())
			Expect(anim.Inspect(func(sim *physics.Simulation) {
				f, ok := sim.ConstantField()
				Expect(ok).To(BeTrue())
				Expect(f.Drag).To(Equal(0.3))
			})).To(Succeed())
		})

		It("changes the time step", func() {
			Expect(anim.SetTimeStep(0.05)).To(Succeed())
			Expect(anim.Status().TimeStep).To(Equal(0.05))
			Expect(anim.SetTimeStep(-1)).To(Succeed())
			Expect(anim.Status().TimeStep).To(Equal(0.05))
		})
	})
})

type funcObserver struct {
	repaint func(Frame)
	calls   int
}

func (o *funcObserver) Repaint(f Frame) {
	o.calls++
	o.repaint(f)
}

func (o *funcObserver) Clear() {}
