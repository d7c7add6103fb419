package pal

import (
	"testing"

	"github.com/bodgit/retropal/colour"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinaryRoundTrip(t *testing.T) {
	in := Palette{
		{R: 1, G: 2, B: 3},
		{R: 255, G: 128, B: 0},
	}

	b, err := in.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 255, 128, 0}, b)

	var out Palette
	require.NoError(t, out.UnmarshalBinary(b))
	require.Len(t, out, 2)
	for i := range in {
		assert.True(t, out[i].Same(in[i]))
	}
}

func TestUnmarshalBinaryErrors(t *testing.T) {
	var p Palette
	assert.Error(t, p.UnmarshalBinary([]byte{1, 2}))
	assert.Error(t, p.UnmarshalBinary(make([]byte, (maxEntries+1)*3)))
}

func TestMarshalText(t *testing.T) {
	p := Palette{
		{R: 0, G: 0, B: 0},
		{R: 255, G: 255, B: 255},
	}

	b, err := p.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "JASC-PAL\n0100\n2\n0 0 0\n255 255 255\n", string(b))
}

func TestUnmarshalText(t *testing.T) {
	var p Palette
	require.NoError(t, p.UnmarshalText([]byte("JASC-PAL\r\n0100\r\n2\r\n10 20 30\r\n1 2 3\r\n")))
	require.Len(t, p, 2)
	assert.True(t, p[0].Same(colour.Color{R: 10, G: 20, B: 30}))
	assert.True(t, p[1].Same(colour.Color{R: 1, G: 2, B: 3}))
}

func TestUnmarshalTextErrors(t *testing.T) {
	tables := []struct {
		name string
		text string
	}{
		{"wrong header", "RIFF-PAL\n0100\n0\n"},
		{"wrong version", "JASC-PAL\n0200\n0\n"},
		{"bad count", "JASC-PAL\n0100\nmany\n"},
		{"short", "JASC-PAL\n0100\n3\n1 2 3\n"},
		{"malformed entry", "JASC-PAL\n0100\n1\n1 2\n"},
		{"out of range", "JASC-PAL\n0100\n1\n1 2 300\n"},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			var p Palette
			assert.Error(t, p.UnmarshalText([]byte(table.text)))
		})
	}
}
