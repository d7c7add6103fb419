package quant

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"math/rand"
	"sort"

	"github.com/bodgit/retropal/colour"
	"github.com/bodgit/retropal/depth"
)

const (
	// Lloyd iterations are capped and also stop early once no centroid
	// moves further than moveEpsilon Lab units.
	maxIterations = 40
	moveEpsilon   = 0.25

	// The working set is bounded regardless of how many pixels the
	// histogram saw.
	maxSamples = 10000
)

type sample struct {
	lab    colour.Lab
	weight float64
}

// KMeans clusters a weighted color population down to at most k colors
// using multi-start k-means in Lab space. Populations no larger than k are
// returned as-is, in order. The seed is derived from the population, so
// identical input and config always produce identical output.
func KMeans(population []colour.Color, k int, cfg Config) []colour.Color {
	if len(population) <= k {
		return append([]colour.Color(nil), population...)
	}

	samples := buildSamples(population)

	kEff := k
	if len(samples) < kEff {
		kEff = len(samples)
	}

	starts := cfg.Starts
	if starts < 1 {
		starts = 1
	}

	base := seedFor(population)

	var best []colour.Lab
	bestCost := math.Inf(1)
	for run := 0; run < starts; run++ {
		rng := rand.New(rand.NewSource(base + int64(run)))
		centroids := seedCentroids(rng, samples, kEff)
		cost := lloyd(rng, samples, centroids)
		if cost < bestCost {
			bestCost, best = cost, centroids
		}
	}

	out := attachCounts(best, population)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })

	return PostProcess(out, population, k, depth.ModeNone, cfg)
}

// seedFor hashes the early population entries so repeat runs over the same
// input share a seed.
func seedFor(population []colour.Color) int64 {
	h := fnv.New64a()

	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(len(population)))
	h.Write(tmp[:])

	n := len(population)
	if n > 64 {
		n = 64
	}
	for _, c := range population[:n] {
		binary.LittleEndian.PutUint32(tmp[:4], c.Count)
		h.Write([]byte{c.R, c.G, c.B, tmp[0], tmp[1], tmp[2], tmp[3]})
	}
	return int64(h.Sum64())
}

// buildSamples bounds the population to a working set of at most
// maxSamples units of weight. Colors rarer than the sampling rate drop
// out; they remain candidates for the post-processor.
func buildSamples(population []colour.Color) []sample {
	var total uint64
	for _, c := range population {
		total += uint64(c.Count)
	}

	if total == 0 {
		// A count-free population clusters with uniform weight.
		out := make([]sample, len(population))
		for i, c := range population {
			out[i] = sample{lab: c.Lab(), weight: 1}
		}
		return out
	}

	rate := uint64(1)
	if total > maxSamples {
		rate = (total + maxSamples - 1) / maxSamples
	}

	out := make([]sample, 0, len(population))
	for _, c := range population {
		if w := uint64(c.Count) / rate; w > 0 {
			out = append(out, sample{lab: c.Lab(), weight: float64(w)})
		}
	}
	return out
}

// seedCentroids spreads k initial centroids across the samples; the first
// uniformly at random, the rest weighted by their distance to whatever has
// been chosen so far. The weighting is linear in distance, not squared;
// cached palettes depend on it staying that way.
func seedCentroids(rng *rand.Rand, samples []sample, k int) []colour.Lab {
	centroids := make([]colour.Lab, 0, k)

	first := pickWeighted(rng, len(samples), func(i int) float64 { return samples[i].weight })
	centroids = append(centroids, samples[first].lab)

	minDist := make([]float64, len(samples))
	for i := range samples {
		minDist[i] = samples[i].lab.Distance(centroids[0])
	}

	for len(centroids) < k {
		next := pickWeighted(rng, len(samples), func(i int) float64 {
			return samples[i].weight * minDist[i]
		})
		centroids = append(centroids, samples[next].lab)
		for i := range samples {
			if d := samples[i].lab.Distance(samples[next].lab); d < minDist[i] {
				minDist[i] = d
			}
		}
	}
	return centroids
}

func pickWeighted(rng *rand.Rand, n int, weight func(int) float64) int {
	var total float64
	for i := 0; i < n; i++ {
		total += weight(i)
	}
	if total <= 0 {
		return rng.Intn(n)
	}
	r := rng.Float64() * total
	for i := 0; i < n; i++ {
		r -= weight(i)
		if r < 0 {
			return i
		}
	}
	return n - 1
}

// lloyd iterates assign-and-recompute over the centroids in place and
// returns the total weighted intra-cluster distance of the result.
func lloyd(rng *rand.Rand, samples []sample, centroids []colour.Lab) float64 {
	type accum struct {
		l, a, b, w float64
	}

	assign := make([]int, len(samples))
	sums := make([]accum, len(centroids))

	for iter := 0; iter < maxIterations; iter++ {
		for i := range sums {
			sums[i] = accum{}
		}
		for i, s := range samples {
			assign[i] = nearestLab(centroids, s.lab)
			a := &sums[assign[i]]
			a.l += s.lab.L * s.weight
			a.a += s.lab.A * s.weight
			a.b += s.lab.B * s.weight
			a.w += s.weight
		}

		var moved float64
		for j := range centroids {
			if sums[j].w == 0 {
				// A cluster lost all its members; throw its centroid back
				// into the population the same way it was seeded.
				centroids[j] = reseed(rng, samples, centroids)
				moved = math.Inf(1)
				continue
			}
			next := colour.Lab{
				L: sums[j].l / sums[j].w,
				A: sums[j].a / sums[j].w,
				B: sums[j].b / sums[j].w,
			}
			if d := centroids[j].Distance(next); d > moved {
				moved = d
			}
			centroids[j] = next
		}

		if moved < moveEpsilon {
			break
		}
	}

	var cost float64
	for _, s := range samples {
		cost += s.weight * s.lab.Distance(centroids[nearestLab(centroids, s.lab)])
	}
	return cost
}

func reseed(rng *rand.Rand, samples []sample, centroids []colour.Lab) colour.Lab {
	i := pickWeighted(rng, len(samples), func(i int) float64 {
		var min float64 = math.Inf(1)
		for _, c := range centroids {
			if d := samples[i].lab.Distance(c); d < min {
				min = d
			}
		}
		return samples[i].weight * min
	})
	return samples[i].lab
}

func nearestLab(centroids []colour.Lab, l colour.Lab) int {
	best, bestDist := 0, math.Inf(1)
	for i, c := range centroids {
		if d := l.Distance(c); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// attachCounts converts centroids back to colors and credits each with the
// population weight that lands on it.
func attachCounts(centroids []colour.Lab, population []colour.Color) []colour.Color {
	out := make([]colour.Color, len(centroids))
	for i, c := range centroids {
		out[i] = colour.FromLab(c)
	}
	for _, p := range population {
		j := nearestLab(centroids, p.Lab())
		out[j].Count += p.Count
	}
	return out
}
