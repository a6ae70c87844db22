package physics

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

type preset struct {
	name  string
	build func(rng *rand.Rand) Settings
}

var presets = [...]preset{
	{"10 random particles", func(r *rand.Rand) Settings { return randomParticles(r, 10, 2) }},
	{"100 random particles", func(r *rand.Rand) Settings { return randomParticles(r, 100, 1) }},
	{"1000 random particles", func(r *rand.Rand) Settings { return randomParticles(r, 1000, 0.5) }},
	{"10000 random particles", func(r *rand.Rand) Settings { return randomParticles(r, 10000, 0.01) }},
	{"Single particle in gravity", func(*rand.Rand) Settings { return gravity(1, 2) }},
	{"Single particle in el. field", func(*rand.Rand) Settings { return electric(1, 2) }},
	{"3 particles in magnetic field", func(*rand.Rand) Settings { return magnetic(3, 2) }},
	{"Pair of particles", func(*rand.Rand) Settings { return pair(0.1, 1, false) }},
	{"Two stream instability", func(r *rand.Rand) Settings { return twoStream(r, 0.1, 1, 1000, false) }},
	{"Weibel instability", func(r *rand.Rand) Settings { return weibel(r, 0.01, 1, 2000, 4, 0.9, false) }},
	{"One particle test", func(*rand.Rand) Settings { return oneTest(0.01, 1) }},
	{"Wave propagation test", func(*rand.Rand) Settings { return waveTest(0.2) }},
	{"Two particles in 3D", func(*rand.Rand) Settings { return pair(0.1, 1, true) }},
	{"Two stream instability in 3D", func(r *rand.Rand) Settings { return twoStream(r, 0.1, 0.1, 5000, true) }},
	{"Weibel instability in 3D", func(r *rand.Rand) Settings { return weibel(r, 0.01, 1, 1000, 2, 0.9, true) }},
}

// NumPresets is the number of built-in initial conditions.
const NumPresets = len(presets)

// PresetNames lists the built-in initial conditions by id.
func PresetNames() []string {
	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = p.name
	}
	return names
}

// PresetSettings returns the settings of preset id. The seed drives any
// random placement so that runs are reproducible.
func PresetSettings(id int, seed int64) (Settings, error) {
	if id < 0 || id >= len(presets) {
		return Settings{}, fmt.Errorf("%w: %d", ErrUnknownPreset, id)
	}
	return presets[id].build(rand.New(rand.NewSource(seed))), nil
}

// NewPreset builds the simulation for preset id.
func NewPreset(id int, seed int64) (*Simulation, error) {
	s, err := PresetSettings(id, seed)
	if err != nil {
		return nil, err
	}
	return NewSimulation(s)
}

func base2D(cellsX, cellsY int, step float64) Settings {
	s := DefaultSettings()
	s.GridStep = step
	s.GridCellsX = cellsX
	s.GridCellsY = cellsY
	s.GridCellsZ = 0
	s.Relativistic = false
	s.UseGrid = false
	s.Solver = EulerRichardson
	return s
}

func randomParticles(rng *rand.Rand, n int, radius float64) Settings {
	s := base2D(70, 50, 10)
	ext := s.Extent()
	s.Boundary = Hardwall
	for i := 0; i < n; i++ {
		q := 1.0
		if rng.Intn(2) == 0 {
			q = -1
		}
		s.Particles = append(s.Particles, ParticleSpec{
			Pos:    mgl64.Vec3{rng.Float64() * ext.X(), rng.Float64() * ext.Y(), 0},
			Vel:    mgl64.Vec3{rng.Float64()*2 - 1, rng.Float64()*2 - 1, 0},
			Mass:   1,
			Charge: q * 0.01,
			Radius: radius,
		})
	}
	return s
}

func single(s Settings, count int, radius float64, vel mgl64.Vec3, charge float64) Settings {
	ext := s.Extent()
	for i := 0; i < count; i++ {
		s.Particles = append(s.Particles, ParticleSpec{
			Pos:    mgl64.Vec3{ext.X() * float64(i+1) / float64(count+1), ext.Y() / 2, 0},
			Vel:    vel,
			Mass:   1,
			Charge: charge,
			Radius: radius,
		})
	}
	return s
}

func gravity(count int, radius float64) Settings {
	s := base2D(70, 50, 10)
	s.Boundary = Hardwall
	s.Field.G = mgl64.Vec3{0, -1, 0}
	return single(s, count, radius, mgl64.Vec3{1, 5, 0}, 0)
}

func electric(count int, radius float64) Settings {
	s := base2D(70, 50, 10)
	s.Boundary = Hardwall
	s.Field.E = mgl64.Vec3{0.1, 0, 0}
	return single(s, count, radius, mgl64.Vec3{0, 2, 0}, 1)
}

func magnetic(count int, radius float64) Settings {
	s := base2D(70, 50, 10)
	s.Solver = Boris
	s.Field.B = mgl64.Vec3{0, 0, 0.1}
	return single(s, count, radius, mgl64.Vec3{2, 0, 0}, 1)
}

func pair(charge, radius float64, threeD bool) Settings {
	s := base2D(10, 10, 10)
	s.Relativistic = true
	s.UseGrid = true
	s.Solver = Boris
	z := 0.0
	if threeD {
		s.GridCellsZ = 10
		z = 50
	}
	s.Particles = []ParticleSpec{
		{Pos: mgl64.Vec3{40, 50, z}, Vel: mgl64.Vec3{0, 0.1, 0}, Mass: 1, Charge: charge, Radius: radius},
		{Pos: mgl64.Vec3{60, 50, z}, Vel: mgl64.Vec3{0, -0.1, 0}, Mass: 1, Charge: -charge, Radius: radius},
	}
	return s
}

// twoStream places n particles in two counter-propagating beams.
func twoStream(rng *rand.Rand, charge, radius float64, n int, threeD bool) Settings {
	s := base2D(32, 8, 10)
	s.Relativistic = true
	s.UseGrid = true
	s.Solver = Boris
	s.Poisson = PoissonFFT
	if threeD {
		s.GridCellsZ = 8
	}
	ext := s.Extent()
	for i := 0; i < n; i++ {
		dir := 1.0
		if i%2 == 1 {
			dir = -1
		}
		pos := mgl64.Vec3{rng.Float64() * ext.X(), rng.Float64() * ext.Y(), rng.Float64() * ext.Z()}
		s.Particles = append(s.Particles, ParticleSpec{
			Pos:    pos,
			Vel:    mgl64.Vec3{dir * s.SpeedOfLight / 8, 0, 0},
			Mass:   1,
			Charge: -charge,
			Radius: radius,
		})
	}
	return s
}

// weibel seeds n particles with an anisotropic thermal spread. The spread
// across y is scaled by 1-anisotropy on the other axes.
func weibel(rng *rand.Rand, charge, radius float64, n int, v, anisotropy float64, threeD bool) Settings {
	s := base2D(16, 16, 10)
	s.Relativistic = true
	s.UseGrid = true
	s.Solver = Boris
	s.Poisson = PoissonFFT
	if threeD {
		s.GridCellsZ = 16
	}
	ext := s.Extent()
	scale := v * s.SpeedOfLight / 40
	for i := 0; i < n; i++ {
		q := charge
		if i%2 == 1 {
			q = -charge
		}
		vel := mgl64.Vec3{rng.NormFloat64() * scale * (1 - anisotropy), rng.NormFloat64() * scale, 0}
		if threeD {
			vel[2] = rng.NormFloat64() * scale * (1 - anisotropy)
		}
		s.Particles = append(s.Particles, ParticleSpec{
			Pos:    mgl64.Vec3{rng.Float64() * ext.X(), rng.Float64() * ext.Y(), rng.Float64() * ext.Z()},
			Vel:    vel,
			Mass:   1,
			Charge: q,
			Radius: radius,
		})
	}
	return s
}

func oneTest(charge, radius float64) Settings {
	s := base2D(10, 10, 10)
	s.Relativistic = true
	s.UseGrid = true
	s.Solver = Boris
	s.Field.B = mgl64.Vec3{0, 0, 0.5}
	s.Particles = []ParticleSpec{
		{Pos: mgl64.Vec3{50, 50, 0}, Vel: mgl64.Vec3{0.5, 0, 0}, Mass: 1, Charge: charge, Radius: radius},
	}
	return s
}

// waveTest lays a row of charges with a sinusoidal velocity perturbation of
// relative amplitude.
func waveTest(amplitude float64) Settings {
	s := base2D(64, 4, 10)
	s.Relativistic = true
	s.UseGrid = true
	s.Solver = Boris
	s.Poisson = PoissonFFT
	ext := s.Extent()
	const n = 256
	for i := 0; i < n; i++ {
		x := ext.X() * (float64(i) + 0.5) / n
		s.Particles = append(s.Particles, ParticleSpec{
			Pos:    mgl64.Vec3{x, ext.Y() / 2, 0},
			Vel:    mgl64.Vec3{amplitude * math.Sin(2*math.Pi*x/ext.X()), 0, 0},
			Mass:   1,
			Charge: -0.01,
			Radius: 1,
		})
	}
	return s
}
