/*
Package indexed implements a minimal indexed PNG encoder.

The stream it builds is deliberately simple; 8-bit palette indices, every
row prefixed with the no-filter byte, the whole image carried in stored
(uncompressed) deflate blocks inside a zlib wrapper. Nothing about the
output depends on anything but the input, so the same image and palette
always produce the same bytes. Any standard PNG reader can decode it.
*/
package indexed

import (
	"encoding/binary"
	"errors"
	"hash/adler32"
	"hash/crc32"
	"image/color"
	"io"

	"github.com/bodgit/retropal/colour"
	"github.com/bodgit/retropal/pixel"
)

var signature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Stored deflate blocks carry at most this much data each.
const maxStored = 65535

var (
	errEmptyImage   = errors.New("indexed: empty image")
	errEmptyPalette = errors.New("indexed: empty palette")
	errPaletteSize  = errors.New("indexed: palette has more than 256 entries")
)

// Palette converts an engine palette into the encoder's form. All entries
// are opaque.
func Palette(p []colour.Color) []color.NRGBA {
	out := make([]color.NRGBA, len(p))
	for i, c := range p {
		out[i] = c.NRGBA()
	}
	return out
}

type encoder struct {
	w io.Writer
}

func (e *encoder) chunk(name string, data []byte) error {
	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[:4], uint32(len(data)))
	copy(hdr[4:], name)

	if _, err := e.w.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := e.w.Write(data); err != nil {
		return err
	}

	h := crc32.NewIEEE()
	h.Write(hdr[4:])
	h.Write(data)

	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], h.Sum32())
	_, err := e.w.Write(sum[:])
	return err
}

func (e *encoder) header(w, h int) error {
	var data [13]byte
	binary.BigEndian.PutUint32(data[0:4], uint32(w))
	binary.BigEndian.PutUint32(data[4:8], uint32(h))
	data[8] = 8  // bit depth
	data[9] = 3  // indexed
	data[10] = 0 // deflate
	data[11] = 0 // adaptive filtering
	data[12] = 0 // no interlace
	return e.chunk("IHDR", data[:])
}

func (e *encoder) palette(p []color.NRGBA) error {
	data := make([]byte, 0, len(p)*3)
	for _, c := range p {
		data = append(data, c.R, c.G, c.B)
	}
	if err := e.chunk("PLTE", data); err != nil {
		return err
	}

	opaque := true
	for _, c := range p {
		if c.A < 0xff {
			opaque = false
			break
		}
	}
	if opaque {
		return nil
	}

	alphas := make([]byte, len(p))
	for i, c := range p {
		alphas[i] = c.A
	}
	return e.chunk("tRNS", alphas)
}

// pixels wraps the filtered scanlines in a zlib container built from
// stored deflate blocks and writes them as a single IDAT chunk.
func (e *encoder) pixels(raw []byte) error {
	blocks := (len(raw) + maxStored - 1) / maxStored
	if blocks == 0 {
		blocks = 1
	}

	data := make([]byte, 0, 2+len(raw)+blocks*5+4)
	data = append(data, 0x78, 0x01)

	for off := 0; ; off += maxStored {
		n := len(raw) - off
		final := byte(0)
		if n <= maxStored {
			final = 1
		} else {
			n = maxStored
		}
		ln := uint16(n)
		data = append(data, final, byte(ln), byte(ln>>8), byte(^ln), byte(^ln>>8))
		data = append(data, raw[off:off+n]...)
		if final == 1 {
			break
		}
	}

	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], adler32.Checksum(raw))
	data = append(data, sum[:]...)

	return e.chunk("IDAT", data)
}

// Copied from color.sqDiff
func sqDiff(x, y uint8) uint32 {
	d := uint32(x) - uint32(y)
	return (d * d) >> 2
}

// index maps pixels onto palette slots; exact RGBA matches first, nearest
// match otherwise. Fully transparent pixels always land on the transparent
// slot whatever their color bytes say. Lookups are memoized per distinct
// pixel value.
type index struct {
	palette     []color.NRGBA
	exact       map[color.NRGBA]uint8
	transparent int
}

func newIndex(p []color.NRGBA) *index {
	ix := &index{
		palette:     p,
		exact:       make(map[color.NRGBA]uint8, len(p)),
		transparent: -1,
	}
	// First occurrence wins for duplicate entries
	for i := len(p) - 1; i >= 0; i-- {
		ix.exact[p[i]] = uint8(i)
		if p[i].A == 0 {
			ix.transparent = i
		}
	}
	return ix
}

func (ix *index) lookup(c color.NRGBA) uint8 {
	if c.A == 0 && ix.transparent >= 0 {
		return uint8(ix.transparent)
	}
	if i, ok := ix.exact[c]; ok {
		return i
	}

	best, bestSum := 0, uint32(1<<32-1)
	for i, p := range ix.palette {
		sum := sqDiff(c.R, p.R) + sqDiff(c.G, p.G) + sqDiff(c.B, p.B) + sqDiff(c.A, p.A)
		if sum < bestSum {
			best, bestSum = i, sum
		}
	}

	ix.exact[c] = uint8(best)
	return uint8(best)
}

// Encode writes buf to w as an indexed PNG using the given palette. If the
// buffer contains fully transparent pixels and the palette has no
// transparent entry, one is appended so those pixels survive the round
// trip.
func Encode(w io.Writer, buf *pixel.Buffer, palette []color.NRGBA) error {
	if buf.W < 1 || buf.H < 1 {
		return errEmptyImage
	}
	if len(palette) == 0 {
		return errEmptyPalette
	}

	p := append([]color.NRGBA(nil), palette...)
	if !buf.Opaque() && !hasTransparent(p) {
		if len(p) >= 256 {
			return errPaletteSize
		}
		p = append(p, color.NRGBA{})
	}
	if len(p) > 256 {
		return errPaletteSize
	}

	ix := newIndex(p)

	raw := make([]byte, 0, buf.H*(buf.W+1))
	for y := 0; y < buf.H; y++ {
		raw = append(raw, 0) // no filter
		i := buf.Offset(0, y)
		for x := 0; x < buf.W; x++ {
			raw = append(raw, ix.lookup(color.NRGBA{
				R: buf.Pix[i+0],
				G: buf.Pix[i+1],
				B: buf.Pix[i+2],
				A: buf.Pix[i+3],
			}))
			i += 4
		}
	}

	e := encoder{w: w}

	if _, err := e.w.Write(signature); err != nil {
		return err
	}
	if err := e.header(buf.W, buf.H); err != nil {
		return err
	}
	if err := e.palette(p); err != nil {
		return err
	}
	if err := e.pixels(raw); err != nil {
		return err
	}
	return e.chunk("IEND", nil)
}

func hasTransparent(p []color.NRGBA) bool {
	for _, c := range p {
		if c.A == 0 {
			return true
		}
	}
	return false
}
