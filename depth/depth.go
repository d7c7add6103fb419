/*
Package depth reduces colors to the per-channel bit depths of the retro
display hardware retropal targets; two bits per channel for the Master
System, three for the Mega Drive, four for the Game Gear and so on.

Reduction scales a channel onto its reduced ladder and back, rounding both
ways, so reducing an already reduced color is a no-op.
*/
package depth

import (
	"fmt"
	"math"
	"sort"

	"github.com/bodgit/retropal/colour"
)

// Mode selects the per-channel bit depth of the target hardware.
type Mode int

const (
	// ModeNone performs no reduction; colors stay 8-8-8.
	ModeNone Mode = iota
	// RGB222 is the Master System ladder, four levels per channel.
	RGB222
	// RGB333 is the Mega Drive ladder, eight levels per channel.
	RGB333
	// RGB444 is the Game Gear ladder, sixteen levels per channel.
	RGB444
	// RGB555 is the 32X ladder, thirty-two levels per channel.
	RGB555
)

// Bits returns the number of bits per channel.
func (m Mode) Bits() int {
	switch m {
	case RGB222:
		return 2
	case RGB333:
		return 3
	case RGB444:
		return 4
	case RGB555:
		return 5
	}
	return 8
}

func (m Mode) levels() int {
	return 1 << uint(m.Bits())
}

// SpaceSize returns the number of distinct colors the reduced space can
// represent.
func (m Mode) SpaceSize() int {
	l := m.levels()
	return l * l * l
}

func (m Mode) String() string {
	if m == ModeNone {
		return "none"
	}
	b := m.Bits()
	return fmt.Sprintf("%d-%d-%d", b, b, b)
}

func (m Mode) reduce(v uint8) uint8 {
	if m == ModeNone {
		return v
	}
	steps := float64(m.levels() - 1)
	q := math.Round(float64(v) * steps / 255)
	return uint8(math.Round(q * 255 / steps))
}

func (m Mode) level(i int) uint8 {
	steps := float64(m.levels() - 1)
	return uint8(math.Round(float64(i) * 255 / steps))
}

// Reduce returns the color snapped to the reduced ladder. The count is
// carried through unchanged.
func (m Mode) Reduce(c colour.Color) colour.Color {
	return colour.Color{
		R:     m.reduce(c.R),
		G:     m.reduce(c.G),
		B:     m.reduce(c.B),
		Count: c.Count,
	}
}

// ReducePalette reduces every entry in place order, preserving positions
// and duplicates. Used when an ordered source palette must survive intact.
func (m Mode) ReducePalette(p []colour.Color) []colour.Color {
	out := make([]colour.Color, len(p))
	for i, c := range p {
		out[i] = m.Reduce(c)
	}
	return out
}

// ReduceHistogram reduces every entry and merges colors that collapse to
// the same reduced value, summing their counts. The result is sorted by
// descending count with channel values breaking ties, so identical inputs
// always produce identical output.
func (m Mode) ReduceHistogram(p []colour.Color) []colour.Color {
	merged := make(map[[3]uint8]uint32, len(p))
	for _, c := range p {
		r := m.Reduce(c)
		merged[[3]uint8{r.R, r.G, r.B}] += r.Count
	}

	out := make([]colour.Color, 0, len(merged))
	for k, count := range merged {
		out = append(out, colour.Color{R: k[0], G: k[1], B: k[2], Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].R != out[j].R {
			return out[i].R < out[j].R
		}
		if out[i].G != out[j].G {
			return out[i].G < out[j].G
		}
		return out[i].B < out[j].B
	})
	return out
}

// AllColors enumerates the full reduced space in channel order. It returns
// nil for ModeNone; the unreduced space is not enumerable in any useful
// sense.
func (m Mode) AllColors() []colour.Color {
	if m == ModeNone {
		return nil
	}
	l := m.levels()
	out := make([]colour.Color, 0, m.SpaceSize())
	for r := 0; r < l; r++ {
		for g := 0; g < l; g++ {
			for b := 0; b < l; b++ {
				out = append(out, colour.Color{
					R: m.level(r),
					G: m.level(g),
					B: m.level(b),
				})
			}
		}
	}
	return out
}
