package quant

import (
	"math/rand"
	"testing"

	"github.com/bodgit/retropal/colour"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomPopulation(seed int64, n int) []colour.Color {
	rng := rand.New(rand.NewSource(seed))
	out := make([]colour.Color, n)
	for i := range out {
		out[i] = colour.Color{
			R:     uint8(rng.Intn(256)),
			G:     uint8(rng.Intn(256)),
			B:     uint8(rng.Intn(256)),
			Count: uint32(rng.Intn(1000) + 1),
		}
	}
	return out
}

func TestKMeansShortcut(t *testing.T) {
	population := []colour.Color{
		{Count: 100},
		{R: 255, Count: 50},
		{G: 255, Count: 25},
	}

	out := KMeans(population, 16, Default())
	require.Len(t, out, 3)
	for i, c := range population {
		assert.True(t, out[i].Same(c))
		assert.Equal(t, c.Count, out[i].Count)
	}
}

func TestKMeansDeterministic(t *testing.T) {
	population := randomPopulation(1, 300)
	cfg := Default()

	first := KMeans(population, 16, cfg)
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, KMeans(population, 16, cfg))
	}
}

func TestKMeansTargetCount(t *testing.T) {
	// A spread lattice clusters cleanly into k groups
	var population []colour.Color
	for _, r := range []uint8{0, 85, 170, 255} {
		for _, g := range []uint8{0, 85, 170, 255} {
			for _, b := range []uint8{0, 85, 170, 255} {
				population = append(population, colour.Color{R: r, G: g, B: b, Count: 10})
			}
		}
	}

	out := KMeans(population, 8, Default())
	assert.Len(t, out, 8)
}

func TestKMeansFindsDominantClusters(t *testing.T) {
	var population []colour.Color
	for i := uint8(0); i < 5; i++ {
		population = append(population, colour.Color{R: 250 - i, G: 10, B: 10, Count: 1000})
		population = append(population, colour.Color{R: 10, G: 10, B: 250 - i, Count: 1000})
	}
	// Sparse noise must not drag the centroids off the dominant masses
	for _, c := range randomPopulation(2, 20) {
		c.Count = 1
		population = append(population, c)
	}

	out := KMeans(population, 2, Default())
	require.Len(t, out, 2)

	nearest := func(c colour.Color) float64 {
		best := out[0].Distance76(c)
		for _, p := range out[1:] {
			if d := p.Distance76(c); d < best {
				best = d
			}
		}
		return best
	}
	assert.Less(t, nearest(colour.Color{R: 248, G: 10, B: 10}), 20.0)
	assert.Less(t, nearest(colour.Color{R: 10, G: 10, B: 248}), 20.0)
}

func TestKMeansCountsOrdered(t *testing.T) {
	out := KMeans(randomPopulation(3, 200), 8, Default())
	for i := 1; i < len(out); i++ {
		assert.GreaterOrEqual(t, out[i-1].Count, out[i].Count)
	}
}

func TestKMeansDegenerateDistinct(t *testing.T) {
	// More entries than k but only three distinct colors; the empty
	// cluster repair must still terminate and duplicates must not leak
	// into the result.
	var population []colour.Color
	for i := 0; i < 20; i++ {
		c := []colour.Color{{R: 255}, {G: 255}, {B: 255}}[i%3]
		c.Count = uint32(10 + i)
		population = append(population, c)
	}

	out := KMeans(population, 16, Default())
	seen := make(map[[3]uint8]int)
	for _, c := range out {
		seen[[3]uint8{c.R, c.G, c.B}]++
		assert.False(t, c.Same(colour.Color{}), "pure black filler")
	}
	for k, n := range seen {
		assert.Equal(t, 1, n, "duplicate entry %v", k)
	}
}
