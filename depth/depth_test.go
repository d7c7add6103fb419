package depth

import (
	"testing"

	"github.com/bodgit/retropal/colour"
	"github.com/stretchr/testify/assert"
)

func TestReduceIdempotent(t *testing.T) {
	for _, m := range []Mode{RGB222, RGB333, RGB444, RGB555} {
		t.Run(m.String(), func(t *testing.T) {
			for v := 0; v < 256; v++ {
				once := m.Reduce(colour.Color{R: uint8(v), G: uint8(v), B: uint8(v)})
				twice := m.Reduce(once)
				assert.True(t, once.Same(twice), "value %d", v)
			}
		})
	}
}

func TestReduceEndpoints(t *testing.T) {
	for _, m := range []Mode{RGB222, RGB333, RGB444, RGB555} {
		assert.True(t, m.Reduce(colour.Color{}).Same(colour.Color{}))
		white := colour.Color{R: 255, G: 255, B: 255}
		assert.True(t, m.Reduce(white).Same(white))
	}
}

func TestReduceKnownValues(t *testing.T) {
	tables := []struct {
		mode Mode
		in   uint8
		out  uint8
	}{
		{RGB222, 0x40, 0x55},
		{RGB222, 0x2a, 0x00},
		{RGB333, 0x80, 0x92},
		{RGB333, 0xff, 0xff},
		{RGB444, 0x80, 0x88},
		{ModeNone, 0x80, 0x80},
	}

	for _, table := range tables {
		got := table.mode.Reduce(colour.Color{R: table.in})
		assert.Equal(t, table.out, got.R, "%s %#02x", table.mode, table.in)
	}
}

func TestReducePreservesCount(t *testing.T) {
	c := colour.Color{R: 200, G: 100, B: 50, Count: 42}
	assert.Equal(t, uint32(42), RGB333.Reduce(c).Count)
}

func TestSpaceSize(t *testing.T) {
	assert.Equal(t, 64, RGB222.SpaceSize())
	assert.Equal(t, 512, RGB333.SpaceSize())
	assert.Equal(t, 4096, RGB444.SpaceSize())
	assert.Equal(t, 32768, RGB555.SpaceSize())
}

func TestAllColors(t *testing.T) {
	colors := RGB222.AllColors()
	assert.Len(t, colors, 64)

	seen := make(map[colour.Color]struct{})
	for _, c := range colors {
		assert.True(t, RGB222.Reduce(c).Same(c))
		seen[c] = struct{}{}
	}
	assert.Len(t, seen, 64)

	assert.Nil(t, ModeNone.AllColors())
}

func TestReduceHistogram(t *testing.T) {
	// 0x00 and 0x2a both collapse to 0x00 under 2-2-2
	in := []colour.Color{
		{R: 0x00, Count: 3},
		{R: 0x2a, Count: 2},
		{R: 0xff, Count: 4},
	}

	out := RGB222.ReduceHistogram(in)
	assert.Len(t, out, 2)
	assert.True(t, out[0].Same(colour.Color{R: 0x00}))
	assert.Equal(t, uint32(5), out[0].Count)
	assert.True(t, out[1].Same(colour.Color{R: 0xff}))
	assert.Equal(t, uint32(4), out[1].Count)
}

func TestReducePaletteKeepsOrder(t *testing.T) {
	in := []colour.Color{{R: 0xff}, {R: 0x2a}, {R: 0x00}}
	out := RGB222.ReducePalette(in)
	assert.Len(t, out, 3)
	assert.Equal(t, uint8(0xff), out[0].R)
	assert.Equal(t, uint8(0x00), out[1].R)
	assert.Equal(t, uint8(0x00), out[2].R)
}
