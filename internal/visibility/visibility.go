// Package visibility estimates how exposed each grid cell is.
//
// Instead of exact line-of-sight geometry, a Field is built by sampling random
// vantage points and flooding outward from each one through cells low enough
// to see over. Every reached cell within the visibility radius is credited;
// counts are normalised so the most exposed cell reads 1.
package visibility

import (
	"math"
	"math/rand"

	"github.com/golang/glog"
	"gonum.org/v1/gonum/floats"

	"influence-rl-go/internal/grid"
	"influence-rl-go/internal/metrics"
)

// Heights is the obstruction source a Field is built from.
type Heights interface {
	Bounds() grid.Bounds
	Height(p grid.Position) float64
}

// Config controls sampling.
type Config struct {
	// Samples is the number of random vantage points.
	Samples int `yaml:"samples"`
	// Radius is the maximum Euclidean distance a vantage point sees.
	Radius float64 `yaml:"radius"`
	// HeightThreshold: cells taller than this stop the flood.
	HeightThreshold float64 `yaml:"height_threshold"`
	// Diagonal floods through 8-connected neighbours instead of 4.
	Diagonal bool `yaml:"diagonal"`
}

func (c Config) sanitize() Config {
	if c.Samples <= 0 {
		c.Samples = 1000
	}
	if c.Radius <= 0 || math.IsNaN(c.Radius) {
		c.Radius = 8
	}
	if c.HeightThreshold < 0 || math.IsNaN(c.HeightThreshold) {
		c.HeightThreshold = 1
	}
	return c
}

// Field is an immutable per-cell exposure estimate in [0,1].
type Field struct {
	bounds grid.Bounds
	values []float64
	max    float64
}

// Build samples cfg.Samples vantage points with rng. rng must not be shared
// with concurrent users.
func Build(cfg Config, heights Heights, rng *rand.Rand, rec *metrics.Recorder) *Field {
	cfg = cfg.sanitize()
	bounds := heights.Bounds()
	counts := make([]float64, bounds.Cells())
	f := &Field{bounds: bounds, values: counts}
	if len(counts) == 0 {
		return f
	}

	actions := grid.Cardinal
	if cfg.Diagonal {
		actions = grid.Compass
	}
	obstructed := func(p grid.Position) bool {
		return heights.Height(p) > cfg.HeightThreshold
	}

	credited := 0
	for i := 0; i < cfg.Samples; i++ {
		vantage := grid.Position{X: rng.Intn(bounds.Width), Y: rng.Intn(bounds.Height)}
		grid.Flood(bounds, obstructed, vantage, actions, func(p grid.Position) {
			if p.Dist(vantage) <= cfg.Radius {
				counts[bounds.Index(p)]++
				credited++
			}
		})
		if glog.V(3) && i > 0 && i%100 == 0 {
			glog.Infof("visibility: %d/%d samples", i, cfg.Samples)
		}
	}

	f.max = floats.Max(counts)
	if f.max > 0 {
		// the busiest cell must read exactly 1
		for i := range counts {
			counts[i] /= f.max
		}
	}
	rec.ObserveVisibility(cfg.Samples, credited)
	if glog.V(1) {
		glog.Infof("visibility: %d samples over %dx%d, max count %.0f, mean exposure %.3f",
			cfg.Samples, bounds.Width, bounds.Height, f.max, floats.Sum(counts)/float64(len(counts)))
	}
	return f
}

// FromValues wraps precomputed exposure values in row-major order, clamped to
// [0,1].
func FromValues(bounds grid.Bounds, values []float64) *Field {
	f := &Field{bounds: bounds, values: make([]float64, bounds.Cells())}
	copy(f.values, values)
	for i, v := range f.values {
		f.values[i] = math.Max(0, math.Min(1, v))
	}
	return f
}

// Get returns the exposure of p; 0 outside the grid or for a nil field.
func (f *Field) Get(p grid.Position) float64 {
	if f == nil || !f.bounds.Contains(p) {
		return 0
	}
	return f.values[f.bounds.Index(p)]
}

func (f *Field) Bounds() grid.Bounds {
	return f.bounds
}

// MaxCount is the raw visit count that normalised to 1.
func (f *Field) MaxCount() float64 {
	return f.max
}
