package physics

import (
	"encoding/csv"
	"fmt"
	"math/cmplx"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/mjibson/go-dsp/fft"

	"github.com/san-kum/pixi/internal/storage"
)

// diagnostics appends particle samples and charge spectra to CSV files in
// a per-run directory. The directory and its metadata are created on first
// write so that a missing or unwritable path surfaces as a step error.
type diagnostics struct {
	out   Output
	runID string
	dir   string
	store *storage.Store
	meta  storage.RunMetadata

	created   bool
	particles *csvFile
	spectrum  *csvFile
}

type csvFile struct {
	f *os.File
	w *csv.Writer
}

func newDiagnostics(s Settings, particles int) *diagnostics {
	id := uuid.NewString()
	st := storage.New(s.Output.Path)
	return &diagnostics{
		out:   s.Output,
		runID: id,
		dir:   st.RunDir(id),
		store: st,
		meta: storage.RunMetadata{
			ID:           id,
			Timestamp:    time.Now(),
			TimeStep:     s.TimeStep,
			Duration:     s.Duration,
			Solver:       s.Solver.String(),
			Relativistic: s.Relativistic,
			Boundary:     s.Boundary.String(),
			Particles:    particles,
			GridCells:    [3]int{s.GridCellsX, s.GridCellsY, s.GridCellsZ},
			SampleStep:   s.Output.SampleStep,
			SpectrumStep: s.Output.SpectrumStep,
		},
	}
}

func (d *diagnostics) open(name string, header []string) (*csvFile, error) {
	if !d.created {
		if err := d.store.WriteMetadata(d.meta); err != nil {
			return nil, err
		}
		d.created = true
	}
	f, err := os.Create(filepath.Join(d.dir, name))
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, err
	}
	return &csvFile{f: f, w: w}, nil
}

func (c *csvFile) write(rows [][]string) error {
	if err := c.w.WriteAll(rows); err != nil {
		return err
	}
	return c.w.Error()
}

func (d *diagnostics) record(s *Simulation) error {
	if d.out.SampleStep > 0 && s.step%d.out.SampleStep == 0 {
		if err := d.sample(s); err != nil {
			return fmt.Errorf("particle sample: %w", err)
		}
	}
	if d.out.SpectrumStep > 0 && s.step%d.out.SpectrumStep == 0 {
		if err := d.writeSpectrum(s); err != nil {
			return fmt.Errorf("spectrum: %w", err)
		}
	}
	return nil
}

func (d *diagnostics) sample(s *Simulation) error {
	if d.particles == nil {
		f, err := d.open(storage.ParticlesFile, []string{"step", "time", "id", "x", "y", "z", "vx", "vy", "vz"})
		if err != nil {
			return err
		}
		d.particles = f
	}
	step := strconv.Itoa(s.step)
	t := formatFloat(s.time)
	rows := make([][]string, 0, len(s.particles))
	for i, p := range s.particles {
		rows = append(rows, []string{
			step, t, strconv.Itoa(i),
			formatFloat(p.Pos[0]), formatFloat(p.Pos[1]), formatFloat(p.Pos[2]),
			formatFloat(p.Vel[0]), formatFloat(p.Vel[1]), formatFloat(p.Vel[2]),
		})
	}
	return d.particles.write(rows)
}

func (d *diagnostics) writeSpectrum(s *Simulation) error {
	if d.spectrum == nil {
		f, err := d.open(storage.SpectrumFile, []string{"step", "time", "k", "power"})
		if err != nil {
			return err
		}
		d.spectrum = f
	}
	power := ChargeSpectrum(s.grid)
	step := strconv.Itoa(s.step)
	t := formatFloat(s.time)
	rows := make([][]string, 0, len(power))
	for k, pw := range power {
		rows = append(rows, []string{step, t, strconv.Itoa(k), formatFloat(pw)})
	}
	return d.spectrum.write(rows)
}

// ChargeSpectrum returns the power spectrum of the grid charge density
// averaged over y, for wave numbers 0 to NX/2.
func ChargeSpectrum(g *Grid) []float64 {
	profile := make([]float64, g.NX)
	for i := 0; i < g.NX; i++ {
		sum := 0.0
		for j := 0; j < g.NY; j++ {
			sum += g.rho[i][j]
		}
		profile[i] = sum / float64(g.NY)
	}
	spec := fft.FFTReal(profile)
	power := make([]float64, g.NX/2+1)
	for k := range power {
		a := cmplx.Abs(spec[k])
		power[k] = a * a
	}
	return power
}

func (d *diagnostics) Close() error {
	var first error
	for _, c := range []*csvFile{d.particles, d.spectrum} {
		if c == nil {
			continue
		}
		c.w.Flush()
		if err := c.w.Error(); err != nil && first == nil {
			first = err
		}
		if err := c.f.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 8, 64)
}
