package physics

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mjibson/go-dsp/fft"
)

// PoissonKind selects how the grid potential is solved.
type PoissonKind int

const (
	PoissonDefault PoissonKind = iota // Jacobi relaxation
	PoissonFFT                        // spectral, periodic box
	PoissonEmpty                      // no self field
)

func (k PoissonKind) String() string {
	switch k {
	case PoissonDefault:
		return "default"
	case PoissonFFT:
		return "fft"
	case PoissonEmpty:
		return "empty"
	}
	return fmt.Sprintf("PoissonKind(%d)", int(k))
}

// ParsePoisson maps a settings name onto a solver kind. An empty name picks
// the default solver.
func ParsePoisson(name string) (PoissonKind, error) {
	switch name {
	case "":
		return PoissonDefault, nil
	case "fft":
		return PoissonFFT, nil
	case "empty":
		return PoissonEmpty, nil
	}
	return 0, fmt.Errorf("%w: poisson solver %q", ErrInvalidSettings, name)
}

const jacobiIterations = 60

// Grid holds the charge density and electric field on a regular mesh in the
// x-y plane. Particles deposit to and sample from their nearest cell.
type Grid struct {
	Step   float64
	NX     int
	NY     int
	NZ     int
	Solver PoissonKind

	rho [][]float64
	phi [][]float64
	ex  [][]float64
	ey  [][]float64
}

func NewGrid(nx, ny, nz int, step float64, solver PoissonKind) *Grid {
	g := &Grid{Step: step, Solver: solver}
	g.ChangeSize(nx, ny, nz)
	return g
}

// ChangeSize reallocates the mesh. All field data is cleared.
func (g *Grid) ChangeSize(nx, ny, nz int) {
	g.NX, g.NY, g.NZ = max(nx, 1), max(ny, 1), max(nz, 0)
	g.rho = newField(g.NX, g.NY)
	g.phi = newField(g.NX, g.NY)
	g.ex = newField(g.NX, g.NY)
	g.ey = newField(g.NX, g.NY)
}

func newField(nx, ny int) [][]float64 {
	f := make([][]float64, nx)
	for i := range f {
		f[i] = make([]float64, ny)
	}
	return f
}

// Extent returns the physical size of the box spanned by the grid.
func (g *Grid) Extent() mgl64.Vec3 {
	return mgl64.Vec3{float64(g.NX) * g.Step, float64(g.NY) * g.Step, float64(g.NZ) * g.Step}
}

// Density returns the charge density of the last update, indexed [x][y].
func (g *Grid) Density() [][]float64 { return g.rho }

func (g *Grid) cell(pos mgl64.Vec3) (int, int) {
	i := int(math.Floor(pos.X() / g.Step))
	j := int(math.Floor(pos.Y() / g.Step))
	return wrap(i, g.NX), wrap(j, g.NY)
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// Update deposits the particle charges and recomputes the field.
func (g *Grid) Update(ps []*Particle) {
	g.deposit(ps)
	switch g.Solver {
	case PoissonFFT:
		g.solveFFT()
	case PoissonEmpty:
		clearField(g.phi)
	default:
		g.solveJacobi()
	}
	g.gradient()
}

func (g *Grid) deposit(ps []*Particle) {
	clearField(g.rho)
	area := g.Step * g.Step
	for _, p := range ps {
		i, j := g.cell(p.Pos)
		g.rho[i][j] += p.Charge / area
	}
}

func clearField(f [][]float64) {
	for i := range f {
		clear(f[i])
	}
}

// solveJacobi relaxes lap(phi) = -rho with periodic boundaries.
func (g *Grid) solveJacobi() {
	h2 := g.Step * g.Step
	next := newField(g.NX, g.NY)
	for it := 0; it < jacobiIterations; it++ {
		for i := 0; i < g.NX; i++ {
			ip, im := wrap(i+1, g.NX), wrap(i-1, g.NX)
			for j := 0; j < g.NY; j++ {
				jp, jm := wrap(j+1, g.NY), wrap(j-1, g.NY)
				next[i][j] = (g.phi[ip][j] + g.phi[im][j] + g.phi[i][jp] + g.phi[i][jm] + h2*g.rho[i][j]) / 4
			}
		}
		g.phi, next = next, g.phi
	}
}

// solveFFT inverts the discrete five-point Laplacian in Fourier space. The
// mean charge is dropped, which is the neutralising background of a
// periodic box.
func (g *Grid) solveFFT() {
	spec := fft.FFT2Real(g.rho)
	h2 := g.Step * g.Step
	for i := 0; i < g.NX; i++ {
		si := math.Sin(math.Pi * float64(i) / float64(g.NX))
		for j := 0; j < g.NY; j++ {
			if i == 0 && j == 0 {
				spec[i][j] = 0
				continue
			}
			sj := math.Sin(math.Pi * float64(j) / float64(g.NY))
			k2 := 4 * (si*si + sj*sj) / h2
			spec[i][j] /= complex(k2, 0)
		}
	}
	phi := fft.IFFT2(spec)
	for i := range phi {
		for j := range phi[i] {
			g.phi[i][j] = real(phi[i][j])
		}
	}
}

func (g *Grid) gradient() {
	inv := 1 / (2 * g.Step)
	for i := 0; i < g.NX; i++ {
		ip, im := wrap(i+1, g.NX), wrap(i-1, g.NX)
		for j := 0; j < g.NY; j++ {
			jp, jm := wrap(j+1, g.NY), wrap(j-1, g.NY)
			g.ex[i][j] = -(g.phi[ip][j] - g.phi[im][j]) * inv
			g.ey[i][j] = -(g.phi[i][jp] - g.phi[i][jm]) * inv
		}
	}
}

// ElectricAt returns the field of the cell containing pos.
func (g *Grid) ElectricAt(pos mgl64.Vec3) mgl64.Vec3 {
	i, j := g.cell(pos)
	return mgl64.Vec3{g.ex[i][j], g.ey[i][j], 0}
}

// Potential returns the potential of cell (i, j).
func (g *Grid) Potential(i, j int) float64 {
	return g.phi[wrap(i, g.NX)][wrap(j, g.NY)]
}
