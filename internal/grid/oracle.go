package grid

import (
	"errors"
	"fmt"
)

// ErrInconsistentOracle is returned when a blockage oracle answers differently
// for the same cell. Fields and visibility built on such an oracle are invalid.
var ErrInconsistentOracle = errors.New("blockage oracle answered inconsistently")

// BlockageOracle answers whether a cell can be walked on. Implementations must
// be stable for the lifetime of anything bound to them.
type BlockageOracle interface {
	IsBlocked(p Position) bool
	Bounds() Bounds
}

// BlockageFunc adapts a predicate and bounds into a BlockageOracle.
type BlockageFunc struct {
	Size    Bounds
	Blocked func(Position) bool
}

func (f BlockageFunc) IsBlocked(p Position) bool {
	if !f.Size.Contains(p) {
		return true
	}
	if f.Blocked == nil {
		return false
	}
	return f.Blocked(p)
}

func (f BlockageFunc) Bounds() Bounds {
	return f.Size
}

// BlockMap is an immutable bitmap oracle. Cells outside the bounds are blocked.
type BlockMap struct {
	bounds  Bounds
	blocked []bool
}

// Open returns a BlockMap with no blocked cells.
func Open(bounds Bounds) *BlockMap {
	return &BlockMap{bounds: bounds, blocked: make([]bool, bounds.Cells())}
}

// NewBlockMap copies the given blocked cells into a new map, ignoring any that
// fall outside the bounds.
func NewBlockMap(bounds Bounds, blocked []Position) *BlockMap {
	m := Open(bounds)
	for _, p := range blocked {
		if bounds.Contains(p) {
			m.blocked[bounds.Index(p)] = true
		}
	}
	return m
}

// Freeze snapshots an oracle into a BlockMap. Every cell is queried twice and
// any disagreement is reported as ErrInconsistentOracle.
func Freeze(oracle BlockageOracle) (*BlockMap, error) {
	if m, ok := oracle.(*BlockMap); ok {
		return m, nil
	}
	bounds := oracle.Bounds()
	m := Open(bounds)
	for i := range m.blocked {
		p := bounds.At(i)
		first := oracle.IsBlocked(p)
		if second := oracle.IsBlocked(p); second != first {
			return nil, fmt.Errorf("cell (%d,%d): %w", p.X, p.Y, ErrInconsistentOracle)
		}
		m.blocked[i] = first
	}
	return m, nil
}

func (m *BlockMap) IsBlocked(p Position) bool {
	if !m.bounds.Contains(p) {
		return true
	}
	return m.blocked[m.bounds.Index(p)]
}

func (m *BlockMap) Bounds() Bounds {
	return m.bounds
}

// OpenCells lists every unblocked cell in row-major order.
func (m *BlockMap) OpenCells() []Position {
	cells := make([]Position, 0, len(m.blocked))
	for i, blocked := range m.blocked {
		if !blocked {
			cells = append(cells, m.bounds.At(i))
		}
	}
	return cells
}

// HeightMap stores per-cell obstruction heights. It is never modified after
// construction.
type HeightMap struct {
	bounds  Bounds
	heights []float64
}

// NewHeightMap copies heights given in row-major order. Missing cells read 0.
func NewHeightMap(bounds Bounds, heights []float64) *HeightMap {
	h := &HeightMap{bounds: bounds, heights: make([]float64, bounds.Cells())}
	copy(h.heights, heights)
	return h
}

func (h *HeightMap) Bounds() Bounds {
	return h.bounds
}

// Height returns the obstruction height of p, 0 outside the grid.
func (h *HeightMap) Height(p Position) float64 {
	if !h.bounds.Contains(p) {
		return 0
	}
	return h.heights[h.bounds.Index(p)]
}

// Obstructed returns a predicate reporting cells taller than threshold.
func (h *HeightMap) Obstructed(threshold float64) func(Position) bool {
	return func(p Position) bool {
		return h.Height(p) > threshold
	}
}

// Walkable derives a blockage map: any cell taller than threshold is blocked.
func (h *HeightMap) Walkable(threshold float64) *BlockMap {
	m := Open(h.bounds)
	for i, height := range h.heights {
		m.blocked[i] = height > threshold
	}
	return m
}
