package grid

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// TerrainConfig drives procedural arena generation.
type TerrainConfig struct {
	Seed int64 `yaml:"seed"`
	// Scale is the noise frequency per cell; smaller values give larger features.
	Scale float64 `yaml:"scale"`
	// MaxHeight is the obstruction height noise is stretched to.
	MaxHeight float64 `yaml:"max_height"`
	// Border, when set, makes the outermost ring of cells MaxHeight tall.
	Border bool `yaml:"border"`
}

func (c TerrainConfig) sanitize() TerrainConfig {
	if c.Scale <= 0 {
		c.Scale = 0.15
	}
	if c.MaxHeight <= 0 {
		c.MaxHeight = 4
	}
	return c
}

// GenerateHeights fills a height map from normalized OpenSimplex noise.
func GenerateHeights(bounds Bounds, cfg TerrainConfig) *HeightMap {
	cfg = cfg.sanitize()
	noise := opensimplex.NewNormalized(cfg.Seed)
	heights := make([]float64, bounds.Cells())
	for i := range heights {
		p := bounds.At(i)
		if cfg.Border && (p.X == 0 || p.Y == 0 || p.X == bounds.Width-1 || p.Y == bounds.Height-1) {
			heights[i] = cfg.MaxHeight
			continue
		}
		heights[i] = noise.Eval2(float64(p.X)*cfg.Scale, float64(p.Y)*cfg.Scale) * cfg.MaxHeight
	}
	return &HeightMap{bounds: bounds, heights: heights}
}
