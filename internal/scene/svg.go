package scene

import (
	"fmt"
	"image/color"
	"strings"
)

// SVG records paint calls as SVG elements. Surface units are SVG user units.
type SVG struct {
	Width, Height int
	Background    color.RGBA

	body strings.Builder
}

func NewSVG(w, h int) *SVG {
	return &SVG{Width: w, Height: h, Background: color.RGBA{R: 0x0a, G: 0x0a, B: 0x0a, A: 0xff}}
}

func (s *SVG) Bounds() (int, int) { return s.Width, s.Height }

func (s *SVG) Dot(x, y float64, c color.RGBA) {
	fmt.Fprintf(&s.body, `<rect x="%.1f" y="%.1f" width="1" height="1" fill="%s"/>`+"\n", x, y, hexColor(c))
}

func (s *SVG) Line(x0, y0, x1, y1 float64, c color.RGBA) {
	fmt.Fprintf(&s.body, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s"/>`+"\n",
		x0, y0, x1, y1, hexColor(c))
}

func (s *SVG) Disc(x, y, r float64, c color.RGBA) {
	fmt.Fprintf(&s.body, `<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>`+"\n", x, y, max(r, 0.5), hexColor(c))
}

// Reset discards every recorded element.
func (s *SVG) Reset() { s.body.Reset() }

// String returns the complete document.
func (s *SVG) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, s.Width, s.Height, s.Width, s.Height, hexColor(s.Background))
	sb.WriteString(s.body.String())
	sb.WriteString("</svg>\n")
	return sb.String()
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
