package retropal

import (
	"fmt"

	"github.com/bodgit/retropal/colour"
	"github.com/bodgit/retropal/depth"
)

// Strategy selects how a derived profile fills its palette slots.
type Strategy int

const (
	// Diverse spreads slots across Lab space by farthest-point selection.
	Diverse Strategy = iota
	// Cluster derives slots from multi-start k-means centroids.
	Cluster
)

func (s Strategy) String() string {
	if s == Cluster {
		return "cluster"
	}
	return "diverse"
}

// Profile binds a named hardware target to its palette size and channel
// depth. A profile carrying a Fixed palette bypasses derivation entirely
// and remaps against the exact color list.
type Profile struct {
	Name         string
	TargetColors int
	Depth        depth.Mode
	Strategy     Strategy
	Fixed        []colour.Color
}

// ProfileVersion identifies the revision of the built-in profile table.
// Cached palettes are keyed on it so table changes invalidate them.
const ProfileVersion = 1

var dmgPalette = []colour.Color{
	{R: 0x0f, G: 0x38, B: 0x0f},
	{R: 0x30, G: 0x62, B: 0x30},
	{R: 0x8b, G: 0xac, B: 0x0f},
	{R: 0x9b, G: 0xbc, B: 0x0f},
}

// Normal level 0xd7, bright level 0xff; bright black stays black.
var spectrumPalette = []colour.Color{
	{R: 0x00, G: 0x00, B: 0x00},
	{R: 0x00, G: 0x00, B: 0xd7},
	{R: 0xd7, G: 0x00, B: 0x00},
	{R: 0xd7, G: 0x00, B: 0xd7},
	{R: 0x00, G: 0xd7, B: 0x00},
	{R: 0x00, G: 0xd7, B: 0xd7},
	{R: 0xd7, G: 0xd7, B: 0x00},
	{R: 0xd7, G: 0xd7, B: 0xd7},
	{R: 0x00, G: 0x00, B: 0x00},
	{R: 0x00, G: 0x00, B: 0xff},
	{R: 0xff, G: 0x00, B: 0x00},
	{R: 0xff, G: 0x00, B: 0xff},
	{R: 0x00, G: 0xff, B: 0x00},
	{R: 0x00, G: 0xff, B: 0xff},
	{R: 0xff, G: 0xff, B: 0x00},
	{R: 0xff, G: 0xff, B: 0xff},
}

// Pepto's measured VIC-II colors.
var c64Palette = []colour.Color{
	{R: 0x00, G: 0x00, B: 0x00},
	{R: 0xff, G: 0xff, B: 0xff},
	{R: 0x68, G: 0x37, B: 0x2b},
	{R: 0x70, G: 0xa4, B: 0xb2},
	{R: 0x6f, G: 0x3d, B: 0x86},
	{R: 0x58, G: 0x8d, B: 0x43},
	{R: 0x35, G: 0x28, B: 0x79},
	{R: 0xb8, G: 0xc7, B: 0x6f},
	{R: 0x6f, G: 0x4f, B: 0x25},
	{R: 0x43, G: 0x39, B: 0x00},
	{R: 0x9a, G: 0x67, B: 0x59},
	{R: 0x44, G: 0x44, B: 0x44},
	{R: 0x6c, G: 0x6c, B: 0x6c},
	{R: 0x9a, G: 0xd2, B: 0x84},
	{R: 0x6c, G: 0x5e, B: 0xb5},
	{R: 0x95, G: 0x95, B: 0x95},
}

var profiles = []Profile{
	{Name: "megadrive", TargetColors: 16, Depth: depth.RGB333, Strategy: Diverse},
	{Name: "megadrive-full", TargetColors: 61, Depth: depth.RGB333, Strategy: Cluster},
	{Name: "gamegear", TargetColors: 32, Depth: depth.RGB444, Strategy: Cluster},
	{Name: "mastersystem", TargetColors: 16, Depth: depth.RGB222, Strategy: Diverse},
	{Name: "gameboy", TargetColors: 4, Fixed: dmgPalette},
	{Name: "zxspectrum", TargetColors: 16, Fixed: spectrumPalette},
	{Name: "c64", TargetColors: 16, Fixed: c64Palette},
}

// Profiles returns the built-in profile table.
func Profiles() []Profile {
	return append([]Profile(nil), profiles...)
}

// CacheKey names the profile in the palette cache, versioned so revised
// table entries do not collide with stale palettes.
func (p Profile) CacheKey() string {
	return fmt.Sprintf("%s@%d", p.Name, ProfileVersion)
}

// ProfileByName looks up a built-in profile.
func ProfileByName(name string) (Profile, bool) {
	for _, p := range profiles {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}
