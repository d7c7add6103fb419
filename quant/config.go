/*
Package quant derives retro hardware palettes from weighted color
populations; seeded multi-start k-means clustering in Lab space, greedy
farthest-point diversity selection and the duplicate and near-black
post-processing both share.
*/
package quant

import (
	"fmt"

	"github.com/bodgit/retropal/depth"
)

// Config carries every tunable of palette derivation. It is a plain value
// threaded through calls; copy freely. The zero value derives nothing
// useful, start from Default.
type Config struct {
	// Starts is the number of independent seeded k-means runs.
	Starts int
	// SampleCap bounds how many pixels the histogram samples.
	SampleCap int
	// NearBlackL is the Lab lightness below which an entry counts as
	// near-black.
	NearBlackL float64
	// MaxNearBlack caps the near-black entries a palette may keep.
	MaxNearBlack int
	// DuplicateThreshold is the Lab distance under which two entries
	// collapse into one.
	DuplicateThreshold float64
	// RareColorMinFraction drops colors accounting for less than this
	// share of sampled pixels before diversity selection.
	RareColorMinFraction float64

	// MinSpacing is the farthest-point spacing floor per channel depth.
	// Coarser ladders need wider spacing to avoid wasting slots.
	MinSpacing222, MinSpacing333, MinSpacing444 float64
	// TieBreak weights frequency against distance when scoring diverse
	// candidates.
	TieBreak222, TieBreak333, TieBreak444 float64
}

// Default returns the tuning that ships with the engine.
func Default() Config {
	return Config{
		Starts:               8,
		SampleCap:            50000,
		NearBlackL:           10,
		MaxNearBlack:         1,
		DuplicateThreshold:   5,
		RareColorMinFraction: 0.0004,
		MinSpacing222:        14,
		MinSpacing333:        10,
		MinSpacing444:        8,
		TieBreak222:          0.55,
		TieBreak333:          0.40,
		TieBreak444:          0.35,
	}
}

// MinSpacing returns the spacing floor for a bit depth. Depths finer than
// 4-4-4 use the 4-4-4 value.
func (c Config) MinSpacing(m depth.Mode) float64 {
	switch m {
	case depth.RGB222:
		return c.MinSpacing222
	case depth.RGB333:
		return c.MinSpacing333
	}
	return c.MinSpacing444
}

// TieBreakWeight returns the frequency tie-break weight for a bit depth.
// Depths finer than 4-4-4 use the 4-4-4 value.
func (c Config) TieBreakWeight(m depth.Mode) float64 {
	switch m {
	case depth.RGB222:
		return c.TieBreak222
	case depth.RGB333:
		return c.TieBreak333
	}
	return c.TieBreak444
}

// String renders the config in a stable order, suitable for keying caches.
func (c Config) String() string {
	return fmt.Sprintf("s%d c%d nb%g/%d dup%g rare%g sp%g/%g/%g tb%g/%g/%g",
		c.Starts, c.SampleCap, c.NearBlackL, c.MaxNearBlack,
		c.DuplicateThreshold, c.RareColorMinFraction,
		c.MinSpacing222, c.MinSpacing333, c.MinSpacing444,
		c.TieBreak222, c.TieBreak333, c.TieBreak444)
}
