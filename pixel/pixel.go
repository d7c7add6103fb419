/*
Package pixel implements the flat RGBA buffer the palette engine works on.

Pixels are stored row-major, four bytes per pixel in RGBA order, with
straight (non-premultiplied) alpha. The zero to 255 alpha byte is carried
through every transform untouched; a fully transparent pixel keeps
whatever color bytes it arrived with.
*/
package pixel

import (
	"image"
	"image/color"
	"sort"

	"github.com/bodgit/retropal/colour"
)

// Buffer is a width by height RGBA pixel array.
type Buffer struct {
	W, H int
	Pix  []uint8
}

// New returns a zeroed buffer of the given dimensions.
func New(w, h int) *Buffer {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Buffer{
		W:   w,
		H:   h,
		Pix: make([]uint8, w*h*4),
	}
}

// Offset returns the index of the first byte of the pixel at (x, y).
func (b *Buffer) Offset(x, y int) int {
	return (y*b.W + x) * 4
}

// Clone returns a deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	dup := &Buffer{
		W:   b.W,
		H:   b.H,
		Pix: make([]uint8, len(b.Pix)),
	}
	copy(dup.Pix, b.Pix)
	return dup
}

// FromImage converts any image.Image into a buffer, unpremultiplying as
// needed.
func FromImage(m image.Image) *Buffer {
	r := m.Bounds()
	b := New(r.Dx(), r.Dy())

	if n, ok := m.(*image.NRGBA); ok {
		for y := 0; y < b.H; y++ {
			i := n.PixOffset(r.Min.X, r.Min.Y+y)
			copy(b.Pix[b.Offset(0, y):], n.Pix[i:i+b.W*4])
		}
		return b
	}

	i := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := color.NRGBAModel.Convert(m.At(x, y)).(color.NRGBA)
			b.Pix[i+0] = c.R
			b.Pix[i+1] = c.G
			b.Pix[i+2] = c.B
			b.Pix[i+3] = c.A
			i += 4
		}
	}
	return b
}

// Image wraps the buffer as an image.NRGBA sharing the same pixel storage.
func (b *Buffer) Image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    b.Pix,
		Stride: b.W * 4,
		Rect:   image.Rect(0, 0, b.W, b.H),
	}
}

// Opaque reports whether the buffer contains no fully transparent pixels.
func (b *Buffer) Opaque() bool {
	for i := 3; i < len(b.Pix); i += 4 {
		if b.Pix[i] == 0 {
			return false
		}
	}
	return true
}

// Histogram collects the distinct colors of the buffer's visible pixels
// together with their frequencies, most frequent first with channel values
// breaking ties. Fully transparent pixels are not counted. When the buffer
// holds more than max pixels a uniform stride brings the sample back under
// the cap; max <= 0 means no cap.
func (b *Buffer) Histogram(max int) []colour.Color {
	n := b.W * b.H

	stride := 1
	if max > 0 && n > max {
		stride = (n + max - 1) / max
	}

	counts := make(map[[3]uint8]uint32)
	for p := 0; p < n; p += stride {
		i := p * 4
		if b.Pix[i+3] == 0 {
			continue
		}
		counts[[3]uint8{b.Pix[i], b.Pix[i+1], b.Pix[i+2]}]++
	}

	out := make([]colour.Color, 0, len(counts))
	for k, count := range counts {
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
