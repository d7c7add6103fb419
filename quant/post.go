package quant

import (
	"math"

	"github.com/bodgit/retropal/colour"
	"github.com/bodgit/retropal/depth"
)

// PostProcess enforces palette hygiene after clustering and again after
// depth reduction: near-duplicates collapse into their more populous half,
// near-black entries are capped, removals are topped back up from the
// population and, only when the population has nothing left to give,
// non-pure-black grays fill the gap. Entries the processor introduces are
// snapped to the given ladder; pass depth.ModeNone when the palette has
// not been reduced yet.
func PostProcess(palette, population []colour.Color, k int, mode depth.Mode, cfg Config) []colour.Color {
	out := append([]colour.Color(nil), palette...)
	if len(out) > k {
		out = out[:k]
	}
	incoming := len(out)

	out = collapseDuplicates(out, cfg.DuplicateThreshold)
	out = capNearBlack(out, population, cfg)

	if len(out) < incoming {
		out = topUp(out, population, k, cfg)
		if len(out) < k {
			out = padGrays(out, k, mode, cfg)
		}
	}
	return out
}

// collapseDuplicates repeatedly merges the closest offending pair until no
// two entries sit within threshold of each other.
func collapseDuplicates(palette []colour.Color, threshold float64) []colour.Color {
	out := append([]colour.Color(nil), palette...)
	labs := make([]colour.Lab, len(out))
	for i, c := range out {
		labs[i] = c.Lab()
	}

	for changed := true; changed; {
		changed = false
	scan:
		for i := 0; i < len(out); i++ {
			for j := i + 1; j < len(out); j++ {
				if labs[i].Distance(labs[j]) >= threshold {
					continue
				}
				drop := j
				if out[j].Count > out[i].Count {
					drop = i
				}
				out = append(out[:drop], out[drop+1:]...)
				labs = append(labs[:drop], labs[drop+1:]...)
				changed = true
				break scan
			}
		}
	}
	return out
}

// capNearBlack keeps at most the configured number of near-black entries,
// earliest first, and swaps the excess for the most distinct non-near-black
// population colors available.
func capNearBlack(palette, population []colour.Color, cfg Config) []colour.Color {
	out := make([]colour.Color, 0, len(palette))
	kept, dropped := 0, 0
	for _, c := range palette {
		if c.Lab().L < cfg.NearBlackL {
			if kept >= cfg.MaxNearBlack {
				dropped++
				continue
			}
			kept++
		}
		out = append(out, c)
	}

	for ; dropped > 0; dropped-- {
		c, ok := bestCandidate(out, population, cfg, cfg.DuplicateThreshold)
		if !ok {
			break
		}
		out = append(out, c)
	}
	return out
}

func topUp(palette, population []colour.Color, k int, cfg Config) []colour.Color {
	out := palette
	for len(out) < k {
		c, ok := bestCandidate(out, population, cfg, cfg.DuplicateThreshold)
		if !ok {
			break
		}
		out = append(out, c)
	}
	return out
}

// bestCandidate returns the unused population color farthest from the
// current palette. Near-blacks are skipped once the palette holds its
// quota, and nothing closer than minDist to an existing entry qualifies.
func bestCandidate(palette, population []colour.Color, cfg Config, minDist float64) (colour.Color, bool) {
	labs := make([]colour.Lab, len(palette))
	nearBlack := 0
	for i, c := range palette {
		labs[i] = c.Lab()
		if labs[i].L < cfg.NearBlackL {
			nearBlack++
		}
	}

	var best colour.Color
	bestDist := -1.0
	for _, c := range population {
		if contains(palette, c) {
			continue
		}
		lab := c.Lab()
		if lab.L < cfg.NearBlackL && nearBlack >= cfg.MaxNearBlack {
			continue
		}
		d := math.Inf(1)
		for _, l := range labs {
			if dd := lab.Distance(l); dd < d {
				d = dd
			}
		}
		if d < minDist {
			continue
		}
		if d > bestDist {
			bestDist, best = d, c
		}
	}
	return best, bestDist >= 0
}

// padGrays is the last resort; fill remaining slots with grays off the
// target ladder, spaced away from what the palette already holds. Pure
// black never pads.
func padGrays(palette []colour.Color, k int, mode depth.Mode, cfg Config) []colour.Color {
	out := palette
	for v := 8; v < 256 && len(out) < k; v += 8 {
		g := mode.Reduce(colour.Gray(uint8(v)))
		if contains(out, g) {
			continue
		}
		lab := g.Lab()
		// Skipping near-blacks keeps the cap honest and rules out pure
		// black at the same time
		if lab.L < cfg.NearBlackL {
			continue
		}
		tooClose := false
		for _, c := range out {
			if lab.Distance(c.Lab()) < cfg.DuplicateThreshold {
				tooClose = true
				break
			}
		}
		if !tooClose {
			out = append(out, g)
		}
	}
	return out
}

func contains(palette []colour.Color, c colour.Color) bool {
	for _, p := range palette {
		if p.Same(c) {
			return true
		}
	}
	return false
}
