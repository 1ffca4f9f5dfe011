// Package influence implements diffusable scalar potentials over grid cells.
//
// A Field spreads the values of its known cells to their neighbours one pass
// at a time: each cell moves toward the strongest exponentially attenuated
// neighbour value, blended by a momentum factor. Repeated passes approximate a
// steady-state potential without solving a linear system.
package influence

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"influence-rl-go/internal/grid"
	"influence-rl-go/internal/metrics"
)

const (
	DefaultDecay    = 0.2
	DefaultMomentum = 0.5
)

// Config holds the diffusion parameters of a field.
type Config struct {
	Name string `yaml:"name"`
	// Decay is the attenuation per unit of edge distance, in (0,1].
	Decay float64 `yaml:"decay"`
	// Momentum blends old values toward neighbour values, in [0,1].
	Momentum float64 `yaml:"momentum"`
}

func (c Config) sanitize() Config {
	if c.Decay <= 0 || c.Decay > 1 || math.IsNaN(c.Decay) {
		c.Decay = DefaultDecay
	}
	if c.Momentum < 0 || c.Momentum > 1 || math.IsNaN(c.Momentum) {
		c.Momentum = DefaultMomentum
	}
	return c
}

// Field is a diffusable potential bound to one blockage oracle and one
// neighbour source for its whole lifetime. Unknown cells read 0.
type Field struct {
	cfg       Config
	oracle    grid.BlockageOracle
	neighbors grid.NeighborSource
	recorder  *metrics.Recorder

	mu     sync.RWMutex
	values map[grid.Position]float64
}

// New creates an empty field. A nil neighbour source defaults to the
// 4-connected open neighbours of oracle.
func New(cfg Config, oracle grid.BlockageOracle, neighbors grid.NeighborSource) *Field {
	if neighbors == nil {
		neighbors = grid.GridNeighbors(oracle, grid.Cardinal)
	}
	return &Field{
		cfg:       cfg.sanitize(),
		oracle:    oracle,
		neighbors: neighbors,
		values:    make(map[grid.Position]float64),
	}
}

// NewChecked is New for oracles that are not already a *grid.BlockMap: the
// oracle is frozen first and grid.ErrInconsistentOracle is returned if it
// answers the same cell differently.
func NewChecked(cfg Config, oracle grid.BlockageOracle, neighbors grid.NeighborSource) (*Field, error) {
	frozen, err := grid.Freeze(oracle)
	if err != nil {
		return nil, fmt.Errorf("influence %q: %w", cfg.Name, err)
	}
	if neighbors == nil {
		neighbors = grid.GridNeighbors(frozen, grid.Cardinal)
	}
	return New(cfg, frozen, neighbors), nil
}

// WithRecorder attaches a metrics recorder and returns the field.
func (f *Field) WithRecorder(r *metrics.Recorder) *Field {
	f.recorder = r
	return f
}

func (f *Field) Name() string                   { return f.cfg.Name }
func (f *Field) Decay() float64                 { return f.cfg.Decay }
func (f *Field) Momentum() float64              { return f.cfg.Momentum }
func (f *Field) Oracle() grid.BlockageOracle    { return f.oracle }
func (f *Field) Neighbors() grid.NeighborSource { return f.neighbors }

// Set overwrites the value at p and registers p for diffusion.
func (f *Field) Set(p grid.Position, v float64) {
	f.mu.Lock()
	f.values[p] = v
	f.mu.Unlock()
}

// Get returns the value at p, or 0 when p is unknown or f is nil.
func (f *Field) Get(p grid.Position) float64 {
	if f == nil {
		return 0
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.values[p]
}

// Known reports whether p has been registered.
func (f *Field) Known(p grid.Position) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.values[p]
	return ok
}

// Len is the number of known cells.
func (f *Field) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.values)
}

// Keys returns the known cells sorted by row then column.
func (f *Field) Keys() []grid.Position {
	f.mu.RLock()
	keys := make([]grid.Position, 0, len(f.values))
	for p := range f.values {
		keys = append(keys, p)
	}
	f.mu.RUnlock()
	sortPositions(keys)
	return keys
}

// Values returns a copy of the known cells and their values.
func (f *Field) Values() map[grid.Position]float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[grid.Position]float64, len(f.values))
	for p, v := range f.values {
		out[p] = v
	}
	return out
}

// SeedReachable registers every open cell reachable from start with 0, leaving
// already known cells untouched, so diffusion can spread into them. It returns
// the number of cells newly registered.
func (f *Field) SeedReachable(start grid.Position) int {
	bounds := f.oracle.Bounds()
	f.mu.Lock()
	defer f.mu.Unlock()
	added := 0
	grid.Flood(bounds, f.oracle.IsBlocked, start, nil, func(p grid.Position) {
		if _, ok := f.values[p]; !ok {
			f.values[p] = 0
			added++
		}
	})
	return added
}

// Diffuse runs n diffusion passes. Each pass reads only the values of the
// previous pass; the new map replaces the old one while the write lock is held,
// so readers never observe a partially updated field.
//
// The neighbour contribution starts at 0, so negative values are never
// propagated and only ever relax toward 0.
func (f *Field) Diffuse(n int) {
	if n <= 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for pass := 0; pass < n; pass++ {
		next := make(map[grid.Position]float64, len(f.values))
		for p, old := range f.values {
			best := 0.0
			for _, nb := range f.neighbors.Neighbors(p) {
				contrib := f.values[nb.Position] * math.Exp(-nb.Distance*f.cfg.Decay)
				if contrib > best {
					best = contrib
				}
			}
			next[p] = lerp(old, best, f.cfg.Momentum)
		}
		f.values = next
	}
	f.recorder.ObserveDiffusion(f.cfg.Name, n, len(f.values))
	if glog.V(2) {
		glog.Infof("influence %q: %d pass(es) over %d cells", f.cfg.Name, n, len(f.values))
	}
}

// DiffuseAll diffuses independent fields concurrently. Fields must be distinct.
func DiffuseAll(ctx context.Context, passes int, fields ...*Field) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, field := range fields {
		field := field
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			field.Diffuse(passes)
			return nil
		})
	}
	return g.Wait()
}

func lerp(a, b, s float64) float64 {
	return a*(1-s) + b*s
}

func sortPositions(ps []grid.Position) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Y != ps[j].Y {
			return ps[i].Y < ps[j].Y
		}
		return ps[i].X < ps[j].X
	})
}
