package retropal

import (
	"errors"
	"log"
	"math"
	"sync"

	"github.com/bodgit/retropal/colour"
	"github.com/bodgit/retropal/depth"
	"github.com/bodgit/retropal/pixel"
	"github.com/bodgit/retropal/quant"
	"github.com/nfnt/resize"
)

// ScaleMode selects the resampling filter applied when a request carries a
// target resolution.
type ScaleMode int

const (
	// ScaleNearest keeps hard pixel edges; the right default for pixel art.
	ScaleNearest ScaleMode = iota
	ScaleBilinear
	ScaleBicubic
	ScaleLanczos
)

func (s ScaleMode) String() string {
	switch s {
	case ScaleBilinear:
		return "bilinear"
	case ScaleBicubic:
		return "bicubic"
	case ScaleLanczos:
		return "lanczos"
	}
	return "nearest"
}

func (s ScaleMode) interpolation() resize.InterpolationFunction {
	switch s {
	case ScaleBilinear:
		return resize.Bilinear
	case ScaleBicubic:
		return resize.Bicubic
	case ScaleLanczos:
		return resize.Lanczos3
	}
	return resize.NearestNeighbor
}

// Request describes one conversion. The engine never touches the caller's
// buffer; it works on a copy.
type Request struct {
	Pixels *pixel.Buffer
	// SourcePalette, when present and no larger than the profile target,
	// is preserved verbatim instead of deriving a palette.
	SourcePalette []colour.Color
	Profile       Profile
	// TargetWidth and TargetHeight resize the image before conversion;
	// zero for either keeps the aspect ratio, zero for both disables
	// scaling.
	TargetWidth, TargetHeight int
	Scale                     ScaleMode
	// Force makes the coordinator rerun a request whose key already
	// completed.
	Force bool
	// Progress, if set, receives a monotonically non-decreasing 0-100.
	Progress func(int)
}

// Result is the outcome of a conversion.
type Result struct {
	Pixels  *pixel.Buffer
	Palette []colour.Color
}

var errNoPixels = errors.New("retropal: request carries no pixel buffer")

// Engine derives palettes and remaps pixels. It is safe for concurrent
// use; the configuration is copied per request.
type Engine struct {
	mu     sync.Mutex
	cfg    quant.Config
	logger *log.Logger
}

func NewEngine(logger *log.Logger) *Engine {
	return &Engine{
		cfg:    quant.Default(),
		logger: logger,
	}
}

// Config returns the current tuning.
func (e *Engine) Config() quant.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// SetConfig replaces the tuning. Requests already in flight keep the
// values they started with.
func (e *Engine) SetConfig(cfg quant.Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
}

// Process runs one conversion.
func (e *Engine) Process(req Request) (*Result, error) {
	if req.Pixels == nil {
		return nil, errNoPixels
	}

	cfg := e.Config()
	progress := req.Progress
	if progress == nil {
		progress = func(int) {}
	}
	progress(0)

	buf := req.Pixels.Clone()
	if req.TargetWidth > 0 || req.TargetHeight > 0 {
		buf = scale(buf, req.TargetWidth, req.TargetHeight, req.Scale)
	}

	p := req.Profile

	var palette []colour.Color
	switch {
	case len(p.Fixed) > 0:
		palette = append([]colour.Color(nil), p.Fixed...)
		progress(25)
		remapWith(buf, nearestFixed(palette), progress)

	case len(req.SourcePalette) > 0 && len(req.SourcePalette) <= p.TargetColors:
		// A curated palette is never replaced with a derived one
		palette = p.Depth.ReducePalette(req.SourcePalette)
		progress(25)
		remapWith(buf, nearest76(palette), progress)

	default:
		palette = e.derive(buf, p, cfg, progress)
		remapWith(buf, nearest76(palette), progress)
	}

	progress(100)
	return &Result{Pixels: buf, Palette: palette}, nil
}

// derive builds a working palette from the image itself, entirely in the
// profile's reduced color space.
func (e *Engine) derive(buf *pixel.Buffer, p Profile, cfg quant.Config, progress func(int)) []colour.Color {
	population := p.Depth.ReduceHistogram(buf.Histogram(cfg.SampleCap))
	progress(10)

	// Degraded input; everything the image has fits, so that is the
	// palette. No padding.
	if len(population) <= p.TargetColors {
		progress(25)
		e.logger.Printf("Image has only %d distinct colors, using them directly\n", len(population))
		return population
	}

	var palette []colour.Color
	switch p.Strategy {
	case Cluster:
		palette = quant.KMeans(population, p.TargetColors, cfg)
	default:
		palette = quant.Diverse(population, p.TargetColors, p.Depth, cfg)
	}
	progress(20)

	// Centroids drift off the ladder even when their inputs are on it
	palette = p.Depth.ReducePalette(palette)
	palette = quant.PostProcess(palette, population, p.TargetColors, p.Depth, cfg)
	palette = repairCollisions(palette, population, p.Depth)
	progress(25)

	e.logger.Printf("Derived %d colors from %d candidates\n", len(palette), len(population))
	return palette
}

// repairCollisions replaces exact duplicates that depth reduction folded
// together; first from the image's own reduced colors, most frequent
// first, then from the nearest unused color of the full reduced space.
// With nothing left to draw on the slot is dropped rather than padded.
func repairCollisions(palette, population []colour.Color, mode depth.Mode) []colour.Color {
	out := make([]colour.Color, 0, len(palette))
	for _, c := range palette {
		if !paletteContains(out, c) {
			out = append(out, c)
			continue
		}
		if r, ok := firstUnused(population, out); ok {
			out = append(out, r)
			continue
		}
		if r, ok := nearestUnused(mode.AllColors(), out, c); ok {
			out = append(out, r)
		}
	}
	return out
}

func paletteContains(palette []colour.Color, c colour.Color) bool {
	for _, p := range palette {
		if p.Same(c) {
			return true
		}
	}
	return false
}

func firstUnused(pool, palette []colour.Color) (colour.Color, bool) {
	for _, c := range pool {
		if !paletteContains(palette, c) {
			return c, true
		}
	}
	return colour.Color{}, false
}

func nearestUnused(pool, palette []colour.Color, to colour.Color) (colour.Color, bool) {
	target := to.Lab()
	var best colour.Color
	bestDist := math.Inf(1)
	found := false
	for _, c := range pool {
		if paletteContains(palette, c) {
			continue
		}
		if d := c.Lab().Distance(target); d < bestDist {
			best, bestDist, found = c, d, true
		}
	}
	return best, found
}

func scale(buf *pixel.Buffer, w, h int, mode ScaleMode) *pixel.Buffer {
	if buf.W == 0 || buf.H == 0 {
		return buf
	}
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	m := resize.Resize(uint(w), uint(h), buf.Image(), mode.interpolation())
	return pixel.FromImage(m)
}

// nearest76 matches by Euclidean Lab distance with an exact short-circuit.
func nearest76(palette []colour.Color) func(colour.Color) (colour.Color, bool) {
	labs := make([]colour.Lab, len(palette))
	for i, c := range palette {
		labs[i] = c.Lab()
	}
	return func(c colour.Color) (colour.Color, bool) {
		if len(palette) == 0 {
			return colour.Color{}, false
		}
		lab := c.Lab()
		best, bestDist := 0, math.Inf(1)
		for i := range labs {
			if palette[i].Same(c) {
				return palette[i], true
			}
			if d := lab.Distance(labs[i]); d < bestDist {
				best, bestDist = i, d
			}
		}
		return palette[best], true
	}
}

// nearestFixed matches against a literal hardware palette; exact hits
// first, CIEDE2000 otherwise.
func nearestFixed(palette []colour.Color) func(colour.Color) (colour.Color, bool) {
	return func(c colour.Color) (colour.Color, bool) {
		if len(palette) == 0 {
			return colour.Color{}, false
		}
		best, bestDist := 0, math.Inf(1)
		for i, p := range palette {
			if p.Same(c) {
				return p, true
			}
			if d := c.Distance2000(p); d < bestDist {
				best, bestDist = i, d
			}
		}
		return palette[best], true
	}
}

// remapWith rewrites every visible pixel through the lookup, memoized per
// distinct color. Fully transparent pixels pass through untouched, color
// bytes included; that is an invariant, not an accident. Progress lands on
// every integer percentage step from 25 to 100.
func remapWith(buf *pixel.Buffer, lookup func(colour.Color) (colour.Color, bool), progress func(int)) {
	memo := make(map[[3]uint8]colour.Color)
	last := 25

	for y := 0; y < buf.H; y++ {
		i := buf.Offset(0, y)
		for x := 0; x < buf.W; x++ {
			if buf.Pix[i+3] != 0 {
				key := [3]uint8{buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2]}
				c, ok := memo[key]
				if !ok {
					c, ok = lookup(colour.Color{R: key[0], G: key[1], B: key[2]})
					if !ok {
						c = colour.Color{R: key[0], G: key[1], B: key[2]}
					}
					memo[key] = c
				}
				buf.Pix[i+0] = c.R
				buf.Pix[i+1] = c.G
				buf.Pix[i+2] = c.B
			}
			i += 4
		}
		if pct := 25 + 75*(y+1)/buf.H; pct > last {
			last = pct
			progress(pct)
		}
	}
}
