// Package config reads and writes simulation settings files.
//
// Files are YAML (.yaml, .yml) or TOML (.toml). Every key is optional; keys
// left out keep the value of physics.DefaultSettings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/pixi/internal/physics"
)

// ErrUnknownFormat is returned for a file extension that is neither YAML
// nor TOML.
var ErrUnknownFormat = errors.New("config: unknown settings format")

type Format int

const (
	YAML Format = iota
	TOML
)

// FormatOf picks the format from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, path)
}

type Vec [3]float64

func (v Vec) vec3() mgl64.Vec3 { return mgl64.Vec3(v) }

// File is the on-disk form of physics.Settings.
type File struct {
	TimeStep      *float64 `yaml:"timeStep,omitempty" toml:"timeStep,omitempty"`
	Duration      *float64 `yaml:"duration,omitempty" toml:"duration,omitempty"`
	SpeedOfLight  *float64 `yaml:"speedOfLight,omitempty" toml:"speedOfLight,omitempty"`
	GridStep      *float64 `yaml:"gridStep,omitempty" toml:"gridStep,omitempty"`
	GridCellsX    *int     `yaml:"gridCellsX,omitempty" toml:"gridCellsX,omitempty"`
	GridCellsY    *int     `yaml:"gridCellsY,omitempty" toml:"gridCellsY,omitempty"`
	GridCellsZ    *int     `yaml:"gridCellsZ,omitempty" toml:"gridCellsZ,omitempty"`
	PoissonSolver string   `yaml:"poissonsolver,omitempty" toml:"poissonsolver,omitempty"`
	Relativistic  *bool    `yaml:"relativistic,omitempty" toml:"relativistic,omitempty"`
	Boundary      string   `yaml:"boundary,omitempty" toml:"boundary,omitempty"`
	UseGrid       *bool    `yaml:"useGrid,omitempty" toml:"useGrid,omitempty"`
	Solver        string   `yaml:"solver,omitempty" toml:"solver,omitempty"`

	Field     *Field     `yaml:"field,omitempty" toml:"field,omitempty"`
	Particles []Particle `yaml:"particles,omitempty" toml:"particles,omitempty"`
	Streams   []Stream   `yaml:"streams,omitempty" toml:"streams,omitempty"`
	Output    *Output    `yaml:"output,omitempty" toml:"output,omitempty"`
}

type Field struct {
	E    Vec     `yaml:"e" toml:"e"`
	B    Vec     `yaml:"b" toml:"b"`
	G    Vec     `yaml:"g" toml:"g"`
	Drag float64 `yaml:"drag,omitempty" toml:"drag,omitempty"`
}

type Particle struct {
	Pos    Vec     `yaml:"pos" toml:"pos"`
	Vel    Vec     `yaml:"vel" toml:"vel"`
	Mass   float64 `yaml:"mass,omitempty" toml:"mass,omitempty"`
	Charge float64 `yaml:"charge,omitempty" toml:"charge,omitempty"`
	Radius float64 `yaml:"radius,omitempty" toml:"radius,omitempty"`
}

type Stream struct {
	Count   int     `yaml:"count" toml:"count"`
	Pos     Vec     `yaml:"pos" toml:"pos"`
	Spacing Vec     `yaml:"spacing" toml:"spacing"`
	Vel     Vec     `yaml:"vel" toml:"vel"`
	Mass    float64 `yaml:"mass,omitempty" toml:"mass,omitempty"`
	Charge  float64 `yaml:"charge,omitempty" toml:"charge,omitempty"`
	Radius  float64 `yaml:"radius,omitempty" toml:"radius,omitempty"`
}

type Output struct {
	Path         string `yaml:"path,omitempty" toml:"path,omitempty"`
	SampleStep   int    `yaml:"sampleStep,omitempty" toml:"sampleStep,omitempty"`
	SpectrumStep int    `yaml:"spectrumStep,omitempty" toml:"spectrumStep,omitempty"`
}

// Parse decodes data. Unknown keys are an error.
func Parse(data []byte, format Format) (*File, error) {
	f := &File{}
	switch format {
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("config: yaml: %w", err)
		}
	case TOML:
		md, err := toml.Decode(string(data), f)
		if err != nil {
			return nil, fmt.Errorf("config: toml: %w", err)
		}
		if keys := md.Undecoded(); len(keys) > 0 {
			return nil, fmt.Errorf("config: toml: unknown key %q", keys[0].String())
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, int(format))
	}
	return f, nil
}

// LoadFile reads and decodes path.
func LoadFile(path string) (*File, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, format)
}

// Load reads path and returns the resulting settings.
func Load(path string) (physics.Settings, error) {
	f, err := LoadFile(path)
	if err != nil {
		return physics.Settings{}, err
	}
	s := physics.DefaultSettings()
	if err := f.ApplyTo(&s); err != nil {
		return physics.Settings{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Save writes f to path in the format of its extension.
func Save(path string, f *File) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Write(&buf, f, format); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// Write encodes f onto w.
func Write(w io.Writer, f *File, format Format) error {
	switch format {
	case TOML:
		return toml.NewEncoder(w).Encode(f)
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(f); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("%w: %d", ErrUnknownFormat, int(format))
}

// ApplyTo overwrites the fields of s present in f. Particles and streams
// are appended.
func (f *File) ApplyTo(s *physics.Settings) error {
	setIf(&s.TimeStep, f.TimeStep)
	setIf(&s.Duration, f.Duration)
	setIf(&s.SpeedOfLight, f.SpeedOfLight)
	setIf(&s.GridStep, f.GridStep)
	setIf(&s.GridCellsX, f.GridCellsX)
	setIf(&s.GridCellsY, f.GridCellsY)
	setIf(&s.GridCellsZ, f.GridCellsZ)
	setIf(&s.Relativistic, f.Relativistic)
	setIf(&s.UseGrid, f.UseGrid)

	if f.PoissonSolver != "" {
		kind, err := physics.ParsePoisson(f.PoissonSolver)
		if err != nil {
			return err
		}
		s.Poisson = kind
	}
	if f.Boundary != "" {
		kind, err := physics.ParseBoundary(f.Boundary)
		if err != nil {
			return err
		}
		s.Boundary = kind
	}
	if f.Solver != "" {
		kind, err := ParseSolver(f.Solver)
		if err != nil {
			return err
		}
		s.Solver = kind
	}

	if f.Field != nil {
		s.Field = physics.ConstantField{E: f.Field.E.vec3(), B: f.Field.B.vec3(), G: f.Field.G.vec3(), Drag: f.Field.Drag}
	}
	for _, p := range f.Particles {
		s.Particles = append(s.Particles, physics.ParticleSpec{
			Pos: p.Pos.vec3(), Vel: p.Vel.vec3(), Mass: p.Mass, Charge: p.Charge, Radius: p.Radius,
		})
	}
	for _, st := range f.Streams {
		s.Streams = append(s.Streams, physics.StreamSpec{
			Count: st.Count, Pos: st.Pos.vec3(), Spacing: st.Spacing.vec3(), Vel: st.Vel.vec3(),
			Mass: st.Mass, Charge: st.Charge, Radius: st.Radius,
		})
	}
	if f.Output != nil {
		s.Output = physics.Output{Path: f.Output.Path, SampleStep: f.Output.SampleStep, SpectrumStep: f.Output.SpectrumStep}
	}
	return s.Validate()
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// FromSettings returns a file that reproduces s when applied to the
// defaults.
func FromSettings(s physics.Settings) *File {
	f := &File{
		TimeStep:     &s.TimeStep,
		Duration:     &s.Duration,
		SpeedOfLight: &s.SpeedOfLight,
		GridStep:     &s.GridStep,
		GridCellsX:   &s.GridCellsX,
		GridCellsY:   &s.GridCellsY,
		GridCellsZ:   &s.GridCellsZ,
		Relativistic: &s.Relativistic,
		UseGrid:      &s.UseGrid,
		Boundary:     s.Boundary.String(),
		Solver:       s.Solver.String(),
		Field: &Field{
			E: Vec(s.Field.E), B: Vec(s.Field.B), G: Vec(s.Field.G), Drag: s.Field.Drag,
		},
	}
	if s.Poisson != physics.PoissonDefault {
		f.PoissonSolver = s.Poisson.String()
	}
	for _, p := range s.Particles {
		f.Particles = append(f.Particles, Particle{
			Pos: Vec(p.Pos), Vel: Vec(p.Vel), Mass: p.Mass, Charge: p.Charge, Radius: p.Radius,
		})
	}
	for _, st := range s.Streams {
		f.Streams = append(f.Streams, Stream{
			Count: st.Count, Pos: Vec(st.Pos), Spacing: Vec(st.Spacing), Vel: Vec(st.Vel),
			Mass: st.Mass, Charge: st.Charge, Radius: st.Radius,
		})
	}
	if s.Output != (physics.Output{}) {
		f.Output = &Output{Path: s.Output.Path, SampleStep: s.Output.SampleStep, SpectrumStep: s.Output.SpectrumStep}
	}
	return f
}

// ParseSolver maps a solver name, in any case, onto its kind.
func ParseSolver(name string) (physics.SolverKind, error) {
	for k := physics.SolverKind(0); k.Valid(); k++ {
		if strings.EqualFold(k.String(), name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: solver %q", physics.ErrInvalidSettings, name)
}
