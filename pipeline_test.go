package retropal

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestImage(t *testing.T, file string) {
	t.Helper()

	m := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			c := color.NRGBA{R: 0xff, A: 0xff}
			if (x+y)%2 == 0 {
				c = color.NRGBA{G: 0xff, A: 0xff}
			}
			m.Set(x, y, c)
		}
	}

	f, err := os.Create(file)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, png.Encode(f, m))
}

func TestArtifactName(t *testing.T) {
	t.Parallel()

	p := mustProfile(t, "megadrive")
	assert.Equal(t, filepath.Join("x", "shot.megadrive.png"), artifactName(filepath.Join("x", "shot.png"), p))
	assert.Equal(t, "shot.megadrive.png", artifactName("shot.jpeg", p))
}

func TestIsArtifact(t *testing.T) {
	t.Parallel()

	assert.True(t, isArtifact("shot.megadrive.png"))
	assert.True(t, isArtifact("shot.gameboy.png"))
	assert.False(t, isArtifact("shot.png"))
	assert.False(t, isArtifact("shot.jpeg"))
}

func TestScan(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTestImage(t, filepath.Join(dir, "shot.png"))

	r := New(nil, testLogger())
	require.NoError(t, r.Scan(dir, mustProfile(t, "gameboy")))

	f, err := os.Open(filepath.Join(dir, "shot.gameboy.png"))
	require.NoError(t, err)
	defer f.Close()

	m, err := png.Decode(f)
	require.NoError(t, err)

	pm, ok := m.(*image.Paletted)
	require.True(t, ok)
	assert.LessOrEqual(t, len(pm.Palette), 4)
	assert.Equal(t, image.Rect(0, 0, 8, 8), pm.Bounds())

	// A second scan must not convert the artifact it just wrote
	require.NoError(t, r.Scan(dir, mustProfile(t, "gameboy")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestScanSkipsHidden(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTestImage(t, filepath.Join(dir, ".hidden.png"))

	r := New(nil, testLogger())
	require.NoError(t, r.Scan(dir, mustProfile(t, "gameboy")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestScanIgnoresBrokenImages(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.png"), []byte("not a png"), 0644))

	r := New(nil, testLogger())
	require.NoError(t, r.Scan(dir, mustProfile(t, "gameboy")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
