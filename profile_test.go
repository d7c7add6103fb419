package retropal

import (
	"testing"

	"github.com/bodgit/retropal/depth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileByName(t *testing.T) {
	t.Parallel()

	p, ok := ProfileByName("megadrive")
	require.True(t, ok)
	assert.Equal(t, 16, p.TargetColors)
	assert.Equal(t, depth.RGB333, p.Depth)
	assert.Equal(t, Diverse, p.Strategy)

	_, ok = ProfileByName("dreamcast")
	assert.False(t, ok)
}

func TestProfilesAreCopied(t *testing.T) {
	t.Parallel()

	first := Profiles()
	first[0].Name = "clobbered"

	second := Profiles()
	assert.NotEqual(t, "clobbered", second[0].Name)
}

func TestFixedProfileSizes(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"gameboy", "zxspectrum", "c64"} {
		p, ok := ProfileByName(name)
		require.True(t, ok, name)
		assert.Len(t, p.Fixed, p.TargetColors, name)
	}
}

func TestDerivedProfileBounds(t *testing.T) {
	t.Parallel()

	for _, p := range Profiles() {
		if len(p.Fixed) > 0 {
			continue
		}
		assert.Greater(t, p.TargetColors, 0, p.Name)
		assert.LessOrEqual(t, p.TargetColors, p.Depth.SpaceSize(), p.Name)
	}
}

func TestCacheKey(t *testing.T) {
	t.Parallel()

	p := mustProfile(t, "megadrive")
	assert.Equal(t, "megadrive@1", p.CacheKey())
}

func TestStrategyString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "diverse", Diverse.String())
	assert.Equal(t, "cluster", Cluster.String())
}
