package scene

import (
	"image/color"
	"math"
	"strings"
)

// Braille patterns: 2x4 dots per cell.
//
//	1 4
//	2 5
//	3 6
//	7 8
//
// Unicode offset 0x2800.
const brailleBlank = 0x2800

var pixelMap = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

// Canvas is a terminal surface of Width x Height braille cells. Its surface
// units are sub-pixels: Width*2 by Height*4. Each cell keeps the colour of
// the last dot set in it.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
	Colors        [][]color.RGBA
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
		Colors: make([][]color.RGBA, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
		c.Colors[i] = make([]color.RGBA, w)
	}
	c.Clear()
	return c
}

func (c *Canvas) Bounds() (int, int) { return c.Width * 2, c.Height * 4 }

// Set turns on the sub-pixel (x, y).
func (c *Canvas) Set(x, y int, col color.RGBA) {
	if x < 0 || y < 0 {
		return
	}
	cx, cy := x/2, y/4
	if cx >= c.Width || cy >= c.Height {
		return
	}
	c.Grid[cy][cx] |= pixelMap[y%4][x%2]
	c.Colors[cy][cx] = col
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
			c.Colors[i][j] = color.RGBA{}
		}
	}
}

func (c *Canvas) Dot(x, y float64, col color.RGBA) {
	c.Set(int(math.Floor(x)), int(math.Floor(y)), col)
}

// Line draws with Bresenham's algorithm.
func (c *Canvas) Line(x0, y0, x1, y1 float64, col color.RGBA) {
	bresenham(int(math.Floor(x0)), int(math.Floor(y0)), int(math.Floor(x1)), int(math.Floor(y1)), func(x, y int) {
		c.Set(x, y, col)
	})
}

func (c *Canvas) Disc(x, y, r float64, col color.RGBA) {
	fillDisc(x, y, r, func(px, py int) { c.Set(px, py, col) })
}

// Lit reports whether any dot of the cell at (col, row) is set.
func (c *Canvas) Lit(col, row int) bool {
	return c.Grid[row][col] != brailleBlank
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func bresenham(x0, y0, x1, y1 int, set func(x, y int)) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// fillDisc sets every unit cell whose centre lies within r of (x, y). Discs
// smaller than one unit still set their centre cell.
func fillDisc(x, y, r float64, set func(x, y int)) {
	if r < 0.5 {
		set(int(math.Floor(x)), int(math.Floor(y)))
		return
	}
	x0, x1 := int(math.Floor(x-r)), int(math.Ceil(x+r))
	y0, y1 := int(math.Floor(y-r)), int(math.Ceil(y+r))
	r2 := r * r
	for py := y0; py <= y1; py++ {
		for px := x0; px <= x1; px++ {
			dx, dy := float64(px)+0.5-x, float64(py)+0.5-y
			if dx*dx+dy*dy <= r2 {
				set(px, py)
			}
		}
	}
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
