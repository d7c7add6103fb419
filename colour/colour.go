/*
Package colour provides the color arithmetic used throughout retropal;
frequency-weighted RGB values, conversion to CIE L*a*b* under the D65
standard illuminant and the CIE76 and CIEDE2000 difference metrics.
*/
package colour

import (
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Color is an 8-bit RGB value carrying the number of pixels it accounted
// for wherever it was collected. The count is a weight only and takes no
// part in equality.
type Color struct {
	R, G, B uint8
	Count   uint32
}

// New returns an opaque color with a count of one.
func New(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b, Count: 1}
}

// Same reports whether two colors have identical channel values, ignoring
// their counts.
func (c Color) Same(o Color) bool {
	return c.R == o.R && c.G == o.G && c.B == o.B
}

// RGBA implements the color.Color interface. Colors are always opaque.
func (c Color) RGBA() (r, g, b, a uint32) {
	r = uint32(c.R)
	r |= r << 8
	g = uint32(c.G)
	g |= g << 8
	b = uint32(c.B)
	b |= b << 8
	return r, g, b, 0xffff
}

// NRGBA returns the color as an opaque color.NRGBA.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
}

func (c Color) colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}
}

// Lab is a point in CIE L*a*b* space on the conventional scale where L*
// runs from 0 to 100.
type Lab struct {
	L, A, B float64
}

// Lab converts the color to CIE L*a*b* assuming an sRGB source and the
// D65 reference white.
func (c Color) Lab() Lab {
	l, a, b := c.colorful().Lab()
	return Lab{L: l * 100, A: a * 100, B: b * 100}
}

// Distance returns the CIE76 difference, the Euclidean distance between
// the two points.
func (l Lab) Distance(m Lab) float64 {
	dl := l.L - m.L
	da := l.A - m.A
	db := l.B - m.B
	return math.Sqrt(dl*dl + da*da + db*db)
}

// Distance76 returns the CIE76 difference between two colors.
func (c Color) Distance76(o Color) float64 {
	return c.Lab().Distance(o.Lab())
}

// Distance2000 returns the CIEDE2000 difference between two colors. It is
// markedly more expensive than Distance76 and is reserved for matching
// against small fixed palettes.
func (c Color) Distance2000(o Color) float64 {
	return c.colorful().DistanceCIEDE2000(o.colorful()) * 100
}

func round(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(math.Round(v * 255))
}

// FromLab returns the nearest representable color to a Lab point, clamping
// anything that falls outside the sRGB gamut. The count is zero.
func FromLab(l Lab) Color {
	c := colorful.Lab(l.L/100, l.A/100, l.B/100).Clamped()
	return Color{R: round(c.R), G: round(c.G), B: round(c.B)}
}

// Gray returns the achromatic color with all three channels set to v.
func Gray(v uint8) Color {
	return Color{R: v, G: v, B: v}
}
