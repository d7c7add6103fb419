package quant

import (
	"math"
	"sort"

	"github.com/bodgit/retropal/colour"
	"github.com/bodgit/retropal/depth"
)

// Relaxing the spacing floor is bounded; after this many 10% cuts the best
// remaining candidate is taken regardless.
const maxRelaxations = 20

// Diverse selects up to k colors from a weighted population by greedy
// farthest-point traversal of Lab space. Distance dominates; frequency
// only breaks near-ties, weighted for the coarseness of the target ladder.
// Populations no larger than k are returned as-is, in order.
func Diverse(population []colour.Color, k int, mode depth.Mode, cfg Config) []colour.Color {
	if len(population) <= k {
		return append([]colour.Color(nil), population...)
	}
	if k < 2 {
		return mostFrequent(population, k)
	}

	pool := rareFilter(population, k, cfg)

	labs := make([]colour.Lab, len(pool))
	for i, c := range pool {
		labs[i] = c.Lab()
	}

	si, sj := farthestPair(labs)
	taken := make([]bool, len(pool))
	taken[si], taken[sj] = true, true
	selected := []int{si, sj}

	minDist := make([]float64, len(pool))
	for i := range pool {
		minDist[i] = math.Min(labs[i].Distance(labs[si]), labs[i].Distance(labs[sj]))
	}

	floor := cfg.MinSpacing(mode)
	lambda := cfg.TieBreakWeight(mode)
	relaxations := 0

	for len(selected) < k && len(selected) < len(pool) {
		best, bestAny := -1, -1
		bestScore, bestAnyScore := math.Inf(-1), math.Inf(-1)
		for i := range pool {
			if taken[i] {
				continue
			}
			score := minDist[i] + lambda*math.Log(float64(pool[i].Count)+1)
			if score > bestAnyScore {
				bestAnyScore, bestAny = score, i
			}
			if minDist[i] >= floor && score > bestScore {
				bestScore, best = score, i
			}
		}

		if best < 0 {
			if relaxations < maxRelaxations {
				relaxations++
				floor *= 0.9
				continue
			}
			best = bestAny
		}

		taken[best] = true
		selected = append(selected, best)
		for i := range pool {
			if d := labs[i].Distance(labs[best]); d < minDist[i] {
				minDist[i] = d
			}
		}
	}

	out := make([]colour.Color, len(selected))
	for i, idx := range selected {
		out[i] = pool[idx]
	}
	return out
}

// rareFilter drops colors carrying less than the configured share of the
// sampled pixels. If that leaves too thin a pool to select from, the
// filter backs off entirely.
func rareFilter(population []colour.Color, k int, cfg Config) []colour.Color {
	if cfg.RareColorMinFraction <= 0 {
		return population
	}

	var total float64
	for _, c := range population {
		total += float64(c.Count)
	}
	min := total * cfg.RareColorMinFraction

	kept := make([]colour.Color, 0, len(population))
	for _, c := range population {
		if float64(c.Count) >= min {
			kept = append(kept, c)
		}
	}

	if len(kept) < 2*k {
		return population
	}
	return kept
}

func farthestPair(labs []colour.Lab) (int, int) {
	bi, bj, bestDist := 0, 1, -1.0
	for i := 0; i < len(labs); i++ {
		for j := i + 1; j < len(labs); j++ {
			if d := labs[i].Distance(labs[j]); d > bestDist {
				bi, bj, bestDist = i, j, d
			}
		}
	}
	return bi, bj
}

func mostFrequent(population []colour.Color, k int) []colour.Color {
	out := append([]colour.Color(nil), population...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out[:k]
}
