package scene

import (
	"image"
	"image/color"
	"image/color/palette"
	"math"
)

// Image is a paletted raster surface. Surface units are pixels.
type Image struct {
	img *image.Paletted
}

// NewImage returns a w x h image using the Plan 9 palette, cleared to black.
func NewImage(w, h int) *Image {
	return &Image{img: image.NewPaletted(image.Rect(0, 0, w, h), palette.Plan9)}
}

func (m *Image) Bounds() (int, int) {
	b := m.img.Bounds()
	return b.Dx(), b.Dy()
}

func (m *Image) Set(x, y int, c color.RGBA) {
	if !(image.Point{X: x, Y: y}).In(m.img.Rect) {
		return
	}
	m.img.SetColorIndex(x, y, uint8(m.img.Palette.Index(c)))
}

// Clear fills the image with palette entry 0 (black).
func (m *Image) Clear() {
	clear(m.img.Pix)
}

func (m *Image) Dot(x, y float64, c color.RGBA) {
	m.Set(int(math.Floor(x)), int(math.Floor(y)), c)
}

func (m *Image) Line(x0, y0, x1, y1 float64, c color.RGBA) {
	idx := uint8(m.img.Palette.Index(c))
	bresenham(int(math.Floor(x0)), int(math.Floor(y0)), int(math.Floor(x1)), int(math.Floor(y1)), func(x, y int) {
		if (image.Point{X: x, Y: y}).In(m.img.Rect) {
			m.img.SetColorIndex(x, y, idx)
		}
	})
}

func (m *Image) Disc(x, y, r float64, c color.RGBA) {
	idx := uint8(m.img.Palette.Index(c))
	fillDisc(x, y, r, func(px, py int) {
		if (image.Point{X: px, Y: py}).In(m.img.Rect) {
			m.img.SetColorIndex(px, py, idx)
		}
	})
}

// Frame returns a copy of the current raster, suitable as a GIF frame.
func (m *Image) Frame() *image.Paletted {
	out := image.NewPaletted(m.img.Rect, m.img.Palette)
	copy(out.Pix, m.img.Pix)
	return out
}
