package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/pixi/internal/physics"
)

const sampleYAML = `
timeStep: 0.1
speedOfLight: 3
gridCellsX: 20
gridCellsY: 16
poissonsolver: fft
boundary: hardwall
solver: boris
field:
  e: [0.1, 0, 0]
  b: [0, 0, 0.05]
  g: [0, 0, 0]
particles:
  - pos: [10, 20, 0]
    vel: [1, 0, 0]
    charge: -1
streams:
  - count: 4
    pos: [0, 5, 0]
    spacing: [2, 0, 0]
    vel: [0, 1, 0]
    charge: 0.5
output:
  path: out
  sampleStep: 10
  spectrumStep: 50
`

const sampleTOML = `
timeStep = 0.1
speedOfLight = 3.0
gridCellsX = 20
gridCellsY = 16
poissonsolver = "fft"
boundary = "hardwall"
solver = "Boris"

[field]
e = [0.1, 0.0, 0.0]
b = [0.0, 0.0, 0.05]
g = [0.0, 0.0, 0.0]

[[particles]]
pos = [10.0, 20.0, 0.0]
vel = [1.0, 0.0, 0.0]
charge = -1.0

[[streams]]
count = 4
pos = [0.0, 5.0, 0.0]
spacing = [2.0, 0.0, 0.0]
vel = [0.0, 1.0, 0.0]
charge = 0.5

[output]
path = "out"
sampleStep = 10
spectrumStep = 50
`

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
	}{
		{"yaml", sampleYAML, YAML},
		{"toml", sampleTOML, TOML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse([]byte(tt.data), tt.format)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			s := physics.DefaultSettings()
			if err := f.ApplyTo(&s); err != nil {
				t.Fatalf("ApplyTo: %v", err)
			}

			if s.TimeStep != 0.1 || s.SpeedOfLight != 3 {
				t.Errorf("timeStep=%v speedOfLight=%v", s.TimeStep, s.SpeedOfLight)
			}
			if s.GridCellsX != 20 || s.GridCellsY != 16 || s.GridCellsZ != 0 {
				t.Errorf("cells %dx%dx%d", s.GridCellsX, s.GridCellsY, s.GridCellsZ)
			}
			if s.Poisson != physics.PoissonFFT {
				t.Errorf("poisson = %v", s.Poisson)
			}
			if s.Boundary != physics.Hardwall {
				t.Errorf("boundary = %v", s.Boundary)
			}
			if s.Solver != physics.Boris {
				t.Errorf("solver = %v", s.Solver)
			}
			if s.Field.B != (mgl64.Vec3{0, 0, 0.05}) {
				t.Errorf("field B = %v", s.Field.B)
			}
			if len(s.Particles) != 1 || s.Particles[0].Charge != -1 {
				t.Errorf("particles = %+v", s.Particles)
			}
			if len(s.Streams) != 1 || s.Streams[0].Count != 4 || s.Streams[0].Spacing.X() != 2 {
				t.Errorf("streams = %+v", s.Streams)
			}
			if s.Output != (physics.Output{Path: "out", SampleStep: 10, SpectrumStep: 50}) {
				t.Errorf("output = %+v", s.Output)
			}
		})
	}
}

func TestDefaultsSurviveEmptyFile(t *testing.T) {
	for _, format := range []Format{YAML, TOML} {
		f, err := Parse(nil, format)
		if err != nil {
			t.Fatalf("format %d: %v", format, err)
		}
		s := physics.DefaultSettings()
		if err := f.ApplyTo(&s); err != nil {
			t.Fatalf("format %d: %v", format, err)
		}
		if !reflect.DeepEqual(s, physics.DefaultSettings()) {
			t.Errorf("format %d: defaults changed: %+v", format, s)
		}
		if !s.Relativistic || !s.UseGrid || s.Boundary != physics.Periodic {
			t.Errorf("format %d: unexpected defaults %+v", format, s)
		}
	}
}

func TestRejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
		target error
	}{
		{"unknown poisson solver", "poissonsolver: multigrid\n", YAML, physics.ErrInvalidSettings},
		{"unknown boundary", "boundary: open\n", YAML, physics.ErrInvalidSettings},
		{"unknown solver", "solver = \"rk4\"\n", TOML, physics.ErrInvalidSettings},
		{"negative time step", "timeStep: -1\n", YAML, physics.ErrInvalidSettings},
		{"unknown yaml key", "timestep: 0.1\n", YAML, nil},
		{"unknown toml key", "gridcells = 3\n", TOML, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse([]byte(tt.data), tt.format)
			if err == nil {
				s := physics.DefaultSettings()
				err = f.ApplyTo(&s)
			}
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("error %v is not %v", err, tt.target)
			}
		})
	}
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path string
		want Format
		err  bool
	}{
		{"a.yaml", YAML, false},
		{"dir/b.YML", YAML, false},
		{"c.toml", TOML, false},
		{"d.json", 0, true},
		{"noext", 0, true},
	}
	for _, tt := range tests {
		got, err := FormatOf(tt.path)
		if (err != nil) != tt.err {
			t.Errorf("%s: err = %v", tt.path, err)
			continue
		}
		if err != nil && !errors.Is(err, ErrUnknownFormat) {
			t.Errorf("%s: err = %v, want ErrUnknownFormat", tt.path, err)
		}
		if got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestSaveLoad(t *testing.T) {
	want, err := physics.PresetSettings(7, 1)
	if err != nil {
		t.Fatal(err)
	}
	want.Poisson = physics.PoissonEmpty
	want.Output = physics.Output{Path: "runs", SampleStep: 5}

	for _, name := range []string{"pair.yaml", "pair.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			if err := Save(path, FromSettings(want)); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: %v", err)
	}
	if err := Save(filepath.Join(dir, "x.ini"), &File{}); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("save unknown format: %v", err)
	}
}
