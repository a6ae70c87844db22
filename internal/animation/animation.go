// Package animation drives a simulation one step per tick and notifies
// observers after every step.
//
// All state of an Animation is owned by the goroutine executing Run. The
// public methods queue a command for that goroutine and wait for it, so a
// strategy swap or reset is never applied in the middle of a step. Commands
// are drained only between ticks.
package animation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/san-kum/pixi/internal/physics"
	"github.com/san-kum/pixi/internal/strategy"
)

var (
	// ErrClosed is returned by commands issued after Run has returned.
	ErrClosed = errors.New("animation: controller closed")

	// ErrNoField is returned by TuneField when the force tree holds no
	// constant field.
	ErrNoField = errors.New("animation: no constant field")
)

const (
	// DefaultPeriod is the tick period used when Config.Period is zero.
	DefaultPeriod = 30 * time.Millisecond

	// MinPeriod is the shortest accepted tick period.
	MinPeriod = time.Millisecond

	// MaxPeriod is the longest accepted tick period.
	MaxPeriod = time.Hour
)

// Config describes the initial simulation and the collaborators of an
// Animation.
type Config struct {
	// Settings builds the initial simulation. When nil, Preset is used.
	Settings *physics.Settings
	Preset   int
	Seed     int64

	Period time.Duration
	Window int

	Clock  Clock
	Ticker Ticker
	Logger *slog.Logger
}

// Status is a snapshot of the controller, published after every tick and
// command.
type Status struct {
	Running   bool
	Period    time.Duration
	Rate      float64
	Ticks     uint64
	Step      int
	Time      float64
	TimeStep  float64
	Particles int
	// Preset is the id of the last preset reset, or -1 for settings.
	Preset   int
	Field    bool
	Strategy strategy.Selection
	RunID    string
	// GridCells is the mesh size in cells along x, y and z.
	GridCells [3]int
}

type command struct {
	fn   func() error
	done chan error
}

// Animation is the tick loop around a single live simulation.
type Animation struct {
	cmds   chan command
	closed chan struct{}
	status atomic.Pointer[Status]
	seed   int64

	// Owned by the Run goroutine.
	sim       *physics.Simulation
	sb        *strategy.Switchboard
	observers Registry
	rate      *RateEstimator
	ticker    Ticker
	period    time.Duration
	running   bool
	fieldOn   bool
	preset    int
	ticks     uint64
	log       *slog.Logger
}

// New builds the initial simulation. The animation is stopped until Start.
func New(cfg Config) (*Animation, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = WallClock()
	}
	if cfg.Ticker == nil {
		cfg.Ticker = NewTimerTicker()
	}
	if cfg.Period == 0 {
		cfg.Period = DefaultPeriod
	}

	a := &Animation{
		cmds:   make(chan command),
		closed: make(chan struct{}),
		seed:   cfg.Seed,
		rate:   NewRateEstimator(cfg.Clock, cfg.Window),
		ticker: cfg.Ticker,
		period: min(max(cfg.Period, MinPeriod), MaxPeriod),
		log:    cfg.Logger,
	}

	var (
		sim *physics.Simulation
		err error
	)
	if cfg.Settings != nil {
		sim, err = physics.NewSimulation(*cfg.Settings)
		a.preset = -1
	} else {
		sim, err = physics.NewPreset(cfg.Preset, cfg.Seed)
		a.preset = cfg.Preset
	}
	if err != nil {
		return nil, fmt.Errorf("animation: initial simulation: %w", err)
	}
	a.install(sim)
	a.fieldOn = sim.GridForceOn()
	sim.PrepareAllParticles()
	a.publish()
	return a, nil
}

// Run executes ticks and queued commands until ctx is done. It must be
// called exactly once.
func (a *Animation) Run(ctx context.Context) error {
	defer close(a.closed)
	defer a.ticker.Stop()
	defer func() {
		if err := a.sim.Close(); err != nil {
			a.log.Error("closing simulation", "err", err)
		}
	}()

	for {
		var tick <-chan time.Time
		if a.running {
			tick = a.ticker.C()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case c := <-a.cmds:
			c.done <- c.fn()
			a.publish()
		case <-tick:
			a.tick()
			if a.running {
				a.ticker.Reset(a.period)
			}
			a.publish()
		}
	}
}

func (a *Animation) tick() {
	if err := a.sim.Step(); err != nil {
		a.log.Error("simulation step failed", "err", err)
	}
	a.rate.Update()
	a.ticks++
	a.observers.Repaint(Frame{Sim: a.sim, Tick: a.ticks, Rate: a.rate.Rate()})
}

func (a *Animation) publish() {
	g := a.sim.Grid()
	a.status.Store(&Status{
		Running:   a.running,
		Period:    a.period,
		Rate:      a.rate.Rate(),
		Ticks:     a.ticks,
		Step:      a.sim.Steps(),
		Time:      a.sim.Time(),
		TimeStep:  a.sim.TimeStep(),
		Particles: len(a.sim.Particles()),
		Preset:    a.preset,
		Field:     a.fieldOn,
		Strategy:  a.sb.Selection(),
		RunID:     a.sim.RunID(),
		GridCells: [3]int{g.NX, g.NY, g.NZ},
	})
}

// Status returns the latest published snapshot. It is safe to call from any
// goroutine.
func (a *Animation) Status() Status { return *a.status.Load() }

// do runs fn on the Run goroutine and returns its error.
func (a *Animation) do(fn func() error) error {
	c := command{fn: fn, done: make(chan error, 1)}
	select {
	case a.cmds <- c:
	case <-a.closed:
		return ErrClosed
	}
	return <-c.done
}

// AddObserver registers o. It is safe to call from any goroutine, including
// from an observer callback; the registration applies from the next
// notification.
func (a *Animation) AddObserver(o Observer) { a.observers.Add(o) }

// RemoveObserver unregisters o from the next notification on.
func (a *Animation) RemoveObserver(o Observer) { a.observers.Remove(o) }

// Sync waits until every command queued before it has been applied.
func (a *Animation) Sync() error {
	return a.do(func() error { return nil })
}

// Start begins ticking. Starting a running animation does nothing.
func (a *Animation) Start() error {
	return a.do(func() error {
		a.start()
		return nil
	})
}

func (a *Animation) start() {
	if a.running {
		return
	}
	a.running = true
	a.ticker.Reset(a.period)
	a.log.Debug("animation started", "period", a.period)
}

// Stop halts ticking before the next tick. Stopping a stopped animation
// does nothing.
func (a *Animation) Stop() error {
	return a.do(func() error {
		a.stop()
		return nil
	})
}

func (a *Animation) stop() {
	if !a.running {
		return
	}
	a.running = false
	a.ticker.Stop()
	a.log.Debug("animation stopped")
}

// SetPeriod changes the tick period in milliseconds. Values are clamped to
// [MinPeriod, MaxPeriod]. The tick already scheduled keeps its period.
func (a *Animation) SetPeriod(ms int) error {
	return a.do(func() error {
		a.period = periodOf(ms)
		return nil
	})
}

func periodOf(ms int) time.Duration {
	switch {
	case ms < 1:
		return MinPeriod
	case int64(ms) >= MaxPeriod.Milliseconds():
		return MaxPeriod
	}
	return time.Duration(ms) * time.Millisecond
}

// Reset replaces the simulation with preset id. On failure the animation
// is left stopped with the previous simulation.
func (a *Animation) Reset(id int) error {
	return a.do(func() error {
		return a.reset(id, func() (*physics.Simulation, error) {
			return physics.NewPreset(id, a.seed)
		})
	})
}

// ResetSettings replaces the simulation with one built from s. On failure
// the animation is left stopped with the previous simulation.
func (a *Animation) ResetSettings(s physics.Settings) error {
	return a.do(func() error {
		return a.reset(-1, func() (*physics.Simulation, error) {
			return physics.NewSimulation(s)
		})
	})
}

func (a *Animation) reset(preset int, build func() (*physics.Simulation, error)) error {
	a.stop()
	sim, err := build()
	if err != nil {
		return fmt.Errorf("animation: reset: %w", err)
	}

	a.observers.Clear()
	if err := a.sim.Close(); err != nil {
		a.log.Error("closing simulation", "err", err)
	}
	a.install(sim)
	a.preset = preset
	a.applyField()
	a.sim.PrepareAllParticles()
	a.rate.Reset()
	a.ticks = 0
	a.start()

	a.log.Info("simulation reset", "preset", preset, "particles", len(sim.Particles()), "field", a.fieldOn)
	return nil
}

func (a *Animation) install(sim *physics.Simulation) {
	a.sim = sim
	a.sb = strategy.New(sim, a.log)
}

func (a *Animation) applyField() {
	if a.fieldOn {
		a.sim.TurnGridForceOn()
	} else {
		a.sim.TurnGridForceOff()
	}
}

// ToggleField flips the grid force. The choice survives resets.
func (a *Animation) ToggleField() error {
	return a.do(func() error {
		a.fieldOn = !a.fieldOn
		a.applyField()
		a.log.Info("field force toggled", "on", a.fieldOn)
		return nil
	})
}

// TuneField edits the first constant field of the force tree in place.
func (a *Animation) TuneField(fn func(f *physics.ConstantField)) error {
	return a.do(func() error {
		f, ok := a.sim.ConstantField()
		if !ok {
			return ErrNoField
		}
		fn(f)
		return nil
	})
}

// ResizeGrid changes the grid to nx x ny x nz cells. The box follows the
// grid, so observers are cleared before the next repaint.
func (a *Animation) ResizeGrid(nx, ny, nz int) error {
	return a.do(func() error {
		if err := a.sim.ChangeGridSize(nx, ny, nz); err != nil {
			return fmt.Errorf("animation: resize grid: %w", err)
		}
		a.observers.Clear()
		a.log.Info("grid resized", "cells", [3]int{nx, ny, nz}, "extent", a.sim.Extent())
		return nil
	})
}

// SetTimeStep changes the simulation time step. Non-positive values are
// ignored.
func (a *Animation) SetTimeStep(dt float64) error {
	return a.do(func() error {
		a.sim.SetTimeStep(dt)
		return nil
	})
}

// Strategy runs fn with the switchboard of the live simulation, between
// ticks.
func (a *Animation) Strategy(fn func(sb *strategy.Switchboard) error) error {
	return a.do(func() error { return fn(a.sb) })
}

// Inspect runs fn with the live simulation, between ticks. fn must not keep
// the pointer.
func (a *Animation) Inspect(fn func(sim *physics.Simulation)) error {
	return a.do(func() error {
		fn(a.sim)
		return nil
	})
}
