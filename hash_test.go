package retropal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFile(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "shot.png")
	writeTestImage(t, file)

	sha, buf, err := DecodeFile(file)
	require.NoError(t, err)
	assert.Regexp(t, "^[0-9A-F]{40}$", sha)
	assert.Equal(t, 8, buf.W)
	assert.Equal(t, 8, buf.H)

	again, _, err := DecodeFile(file)
	require.NoError(t, err)
	assert.Equal(t, sha, again)
}

func TestDecodeFileErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, _, err := DecodeFile(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)

	file := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(file, []byte("not a png"), 0644))
	_, _, err = DecodeFile(file)
	assert.Error(t, err)
}
