package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/pixi/internal/animation"
	"github.com/san-kum/pixi/internal/metrics"
	"github.com/san-kum/pixi/internal/physics"
	"github.com/san-kum/pixi/internal/strategy"
)

const (
	rateHistory = 120
	periodStep  = 5
	rotateStep  = 0.1
)

type TickMsg time.Time

// resultMsg reports the outcome of a controller command.
type resultMsg struct {
	action string
	err    error
}

// Model is the interactive terminal view of an animation. Every controller
// call runs in a command goroutine so that Update never waits on a tick.
type Model struct {
	anim *animation.Animation
	obs  *Observer
	rec  *Recorder

	theme    Theme
	styles   styles
	status   animation.Status
	frame    *Frame
	rates    []float64
	message  string
	failed   bool
	showHelp bool
	width    int
	height   int

	// RecordDir is where GIF recordings are written.
	RecordDir string
	// Metrics, when set, are listed below the simulation state.
	Metrics *metrics.Set
	now       func() time.Time
}

// NewModel returns a view of anim drawn by obs, which must already be
// registered with anim.
func NewModel(anim *animation.Animation, obs *Observer, theme Theme) Model {
	return Model{
		anim:      anim,
		obs:       obs,
		theme:     theme,
		styles:    newStyles(theme),
		status:    anim.Status(),
		frame:     obs.Latest(),
		RecordDir: ".",
		now:       time.Now,
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), m.run("start", m.anim.Start))
}

// run executes fn off the update loop and reports it as a resultMsg.
func (m Model) run(action string, fn func() error) tea.Cmd {
	return func() tea.Msg { return resultMsg{action: action, err: fn()} }
}

func (m Model) strategy(action string, fn func(sb *strategy.Switchboard, sel strategy.Selection) error) tea.Cmd {
	return m.run(action, func() error {
		return m.anim.Strategy(func(sb *strategy.Switchboard) error {
			return fn(sb, sb.Selection())
		})
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.key(msg.String())
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case resultMsg:
		m.failed = msg.err != nil
		if m.failed {
			m.message = fmt.Sprintf("%s: %v", msg.action, msg.err)
		} else {
			m.message = msg.action
		}
	case TickMsg:
		m.status = m.anim.Status()
		m.frame = m.obs.Latest()
		if m.status.Running {
			m.rates = append(m.rates, m.status.Rate)
			if len(m.rates) > rateHistory {
				m.rates = m.rates[len(m.rates)-rateHistory:]
			}
		}
		return m, tick()
	}
	return m, nil
}

func (m Model) key(k string) (tea.Model, tea.Cmd) {
	switch k {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ":
		if m.status.Running {
			return m, m.run("stopped", m.anim.Stop)
		}
		return m, m.run("started", m.anim.Start)
	case "r":
		return m.resetTo(m.currentPreset())
	case "n":
		return m.resetTo((m.currentPreset() + 1) % physics.NumPresets)
	case "p":
		return m.resetTo((m.currentPreset() + physics.NumPresets - 1) % physics.NumPresets)
	case "0", "1", "2", "3", "4", "5", "6", "7", "8", "9":
		return m.resetTo(int(k[0] - '0'))
	case "i":
		return m, m.strategy("integrator", func(sb *strategy.Switchboard, sel strategy.Selection) error {
			return sb.SetIntegrator(physics.SolverKind((int(sel.Integrator) + 1) % physics.NumUserSolvers))
		})
	case "v":
		return m, m.strategy("relativistic", func(sb *strategy.Switchboard, _ strategy.Selection) error {
			return sb.ToggleRelativistic()
		})
	case "c":
		return m, m.strategy("collisions", func(sb *strategy.Switchboard, sel strategy.Selection) error {
			return sb.SetDetector((sel.Detector + 1) % physics.NumDetectors)
		})
	case "a":
		return m, m.strategy("algorithm", func(sb *strategy.Switchboard, sel strategy.Selection) error {
			return sb.SetResolutionAlgorithm(sel.Algorithm%(physics.NumResolutions-1) + 1)
		})
	case "b":
		return m, m.strategy("boundary", func(sb *strategy.Switchboard, sel strategy.Selection) error {
			return sb.SetBoundary((sel.Boundary + 1) % physics.NumBoundaries)
		})
	case "f":
		return m, m.run("field", m.anim.ToggleField)
	case "+", "=":
		return m, m.setPeriod(-periodStep)
	case "-", "_":
		return m, m.setPeriod(periodStep)
	case "x":
		m.obs.Rotate(rotateStep, 0, 0)
	case "X":
		m.obs.Rotate(-rotateStep, 0, 0)
	case "y":
		m.obs.Rotate(0, rotateStep, 0)
	case "Y":
		m.obs.Rotate(0, -rotateStep, 0)
	case "z":
		m.obs.Rotate(0, 0, rotateStep)
	case "Z":
		m.obs.Rotate(0, 0, -rotateStep)
	case "]":
		m.obs.Zoom(1)
	case "[":
		m.obs.Zoom(-1)
	case "t":
		m.theme = NextTheme(m.theme)
		m.styles = newStyles(m.theme)
	case "g":
		return m.toggleRecording()
	case "m":
		return m, m.resizeGrid(1)
	case "M":
		return m, m.resizeGrid(-1)
	case "?":
		m.showHelp = !m.showHelp
	}
	return m, nil
}

func (m Model) currentPreset() int {
	return max(m.status.Preset, 0)
}

func (m Model) resetTo(id int) (tea.Model, tea.Cmd) {
	m.rates = nil
	return m, m.run(fmt.Sprintf("preset %d", id), func() error { return m.anim.Reset(id) })
}

// setPeriod changes the tick period by delta milliseconds.
func (m Model) setPeriod(delta int) tea.Cmd {
	ms := int(m.status.Period/time.Millisecond) + delta
	return m.run(fmt.Sprintf("period %dms", max(ms, 1)), func() error { return m.anim.SetPeriod(ms) })
}

// resizeGrid adds delta cells along every axis the box spans.
func (m Model) resizeGrid(delta int) tea.Cmd {
	c := m.status.GridCells
	nx, ny, nz := c[0]+delta, c[1]+delta, c[2]
	if nz > 0 {
		nz = max(nz+delta, 1)
	}
	return m.run(fmt.Sprintf("grid %dx%dx%d", nx, ny, nz), func() error { return m.anim.ResizeGrid(nx, ny, nz) })
}

func (m Model) toggleRecording() (tea.Model, tea.Cmd) {
	if m.rec == nil {
		m.rec = NewRecorder(320, 320, nil)
		m.anim.AddObserver(m.rec)
		m.message = "recording"
		m.failed = false
		return m, nil
	}
	rec := m.rec
	m.rec = nil
	m.anim.RemoveObserver(rec)
	path := fmt.Sprintf("%s/pixi-%d.gif", strings.TrimRight(m.RecordDir, "/"), m.now().Unix())
	return m, m.run("saved "+path, func() error { return rec.Save(path) })
}

// Recording reports whether a GIF recording is in progress.
func (m Model) Recording() bool { return m.rec != nil }

func (m Model) View() string {
	s := m.styles
	canvas := s.canvas.Render(renderCells(m.frame.Cells, m.frame.Colors, m.theme))

	var b strings.Builder
	b.WriteString(s.header.Render("PIXI"))
	b.WriteString("\n")
	if m.status.Running {
		b.WriteString(s.running.Render("RUNNING"))
	} else {
		b.WriteString(s.stopped.Render("STOPPED"))
	}
	if m.rec != nil {
		b.WriteString(" " + s.err.Render(fmt.Sprintf("REC %d", m.rec.Len())))
	}
	b.WriteString("\n\n")

	preset := "settings"
	if m.status.Preset >= 0 {
		preset = physics.PresetNames()[m.status.Preset]
	}
	sel := m.status.Strategy
	b.WriteString(s.row("Preset", preset))
	b.WriteString(s.row("Particles", fmt.Sprintf("%d", m.status.Particles)))
	b.WriteString(s.row("Time", fmt.Sprintf("%.3f", m.status.Time)))
	b.WriteString(s.row("Step", fmt.Sprintf("%d (dt %.3g)", m.status.Step, m.status.TimeStep)))
	b.WriteString(s.row("Period", m.status.Period.String()))
	b.WriteString(s.row("Rate", fmt.Sprintf("%.1f ticks/s", m.status.Rate)))
	integrator := sel.Integrator.String()
	if !sel.RelativisticAvailable {
		integrator += " (unpaired)"
	}
	b.WriteString(s.row("Integrator", integrator))
	b.WriteString(s.row("Relativ.", onOff(sel.Relativistic)))
	b.WriteString(s.row("Collisions", sel.Detector.String()))
	b.WriteString(s.row("Algorithm", onOff(sel.AlgorithmEnabled)+" "+sel.Algorithm.String()))
	b.WriteString(s.row("Boundary", sel.Boundary.String()))
	b.WriteString(s.row("Field", onOff(m.status.Field)))
	b.WriteString(s.row("Grid", fmt.Sprintf("%dx%dx%d", m.status.GridCells[0], m.status.GridCells[1], m.status.GridCells[2])))
	b.WriteString(s.row("Paint", fmt.Sprintf("%d/%d in %s", m.frame.Stats.Painted, m.frame.Stats.Primitives, m.frame.Stats.Elapsed.Round(time.Microsecond))))

	if m.Metrics != nil {
		values := m.Metrics.Values()
		for _, name := range m.Metrics.Names() {
			b.WriteString(s.row(name, fmt.Sprintf("%.4g", values[name])))
		}
	}

	if chart := rateChart(m.rates, 30); chart != "" {
		b.WriteString("\n" + s.graph.Render(chart) + "\n")
	}
	if m.message != "" {
		msg := s.value.Render(m.message)
		if m.failed {
			msg = s.err.Render(m.message)
		}
		b.WriteString("\n" + msg + "\n")
	}
	if m.showHelp {
		b.WriteString(s.help.Render(helpText))
	} else {
		b.WriteString(s.help.Render("? help  q quit"))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, canvas, s.stats.Render(b.String()))
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

const helpText = `space start/stop   r reset   n/p next/prev preset
0-9   preset         i integrator   v relativistic
c     collisions     a algorithm    b boundary
f     field force    +/- period     t theme
x/y/z rotate         [ ] zoom       g record GIF
m/M   grow/shrink grid                q quit`
