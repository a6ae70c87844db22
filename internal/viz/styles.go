package viz

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

type styles struct {
	canvas  lipgloss.Style
	stats   lipgloss.Style
	header  lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	running lipgloss.Style
	stopped lipgloss.Style
	err     lipgloss.Style
	help    lipgloss.Style
	graph   lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		canvas: lipgloss.NewStyle().Padding(0, 1),
		stats: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), false, false, false, true).
			BorderForeground(t.Border).
			Padding(0, 2).
			Width(44),
		header:  lipgloss.NewStyle().Foreground(t.Primary).Bold(true).MarginBottom(1),
		label:   lipgloss.NewStyle().Foreground(t.Muted).Width(12),
		value:   lipgloss.NewStyle().Foreground(t.Text),
		running: lipgloss.NewStyle().Foreground(t.Running).Bold(true),
		stopped: lipgloss.NewStyle().Foreground(t.Stopped).Bold(true),
		err:     lipgloss.NewStyle().Foreground(t.Error),
		help:    lipgloss.NewStyle().Foreground(t.Muted).Italic(true).MarginTop(1),
		graph:   lipgloss.NewStyle().Foreground(t.Accent),
	}
}

func (s styles) row(label, value string) string {
	return s.label.Render(label) + s.value.Render(value) + "\n"
}

// renderCells colours runs of braille cells that share a colour. Mono
// themes draw every lit cell in the primary colour.
func renderCells(cells [][]rune, colors [][]color.RGBA, t Theme) string {
	var b strings.Builder
	for y, row := range cells {
		start := 0
		for x := 1; x <= len(row); x++ {
			if x < len(row) && colors[y][x] == colors[y][start] {
				continue
			}
			run := string(row[start:x])
			c := colors[y][start]
			switch {
			case c.A == 0:
				b.WriteString(run)
			case t.Mono:
				b.WriteString(lipgloss.NewStyle().Foreground(t.Primary).Render(run))
			default:
				b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(hexColor(c))).Render(run))
			}
			start = x
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// rateChart plots the recent tick rates.
func rateChart(rates []float64, width int) string {
	if len(rates) < 2 {
		return ""
	}
	return asciigraph.Plot(rates,
		asciigraph.Height(4),
		asciigraph.Width(width),
		asciigraph.Precision(0),
		asciigraph.Caption("ticks/s"))
}
