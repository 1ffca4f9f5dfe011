package grid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromWorldFloors(t *testing.T) {
	assert.Equal(t, Position{X: 3, Y: 7}, FromWorld(3.99, 7.01))
	assert.Equal(t, Position{X: -1, Y: 0}, FromWorld(-0.5, 0))
}

func TestFloodVisitsEachCellOnce(t *testing.T) {
	bounds := Bounds{Width: 5, Height: 5}
	seen := make(map[Position]int)
	n := Flood(bounds, nil, Position{X: 2, Y: 2}, Cardinal, func(p Position) { seen[p]++ })
	assert.Equal(t, 25, n)
	require.Len(t, seen, 25)
	for p, count := range seen {
		assert.Equal(t, 1, count, "cell %v", p)
	}
}

func TestFloodStopsAtWalls(t *testing.T) {
	bounds := Bounds{Width: 5, Height: 5}
	// ring of walls around (2,2)
	walls := NewBlockMap(bounds, []Position{
		{1, 1}, {2, 1}, {3, 1},
		{1, 2}, {3, 2},
		{1, 3}, {2, 3}, {3, 3},
	})
	var inside []Position
	n := Flood(bounds, walls.IsBlocked, Position{X: 2, Y: 2}, Cardinal, func(p Position) { inside = append(inside, p) })
	assert.Equal(t, 1, n)
	assert.Equal(t, []Position{{2, 2}}, inside)

	outside := Flood(bounds, walls.IsBlocked, Position{X: 0, Y: 0}, Cardinal, nil)
	assert.Equal(t, 25-9, outside)
}

func TestFloodDiagonalLeaksThroughCorners(t *testing.T) {
	bounds := Bounds{Width: 3, Height: 3}
	walls := NewBlockMap(bounds, []Position{{1, 0}, {0, 1}})
	assert.Equal(t, 1, Flood(bounds, walls.IsBlocked, Position{}, Cardinal, nil))
	assert.Equal(t, 7, Flood(bounds, walls.IsBlocked, Position{}, Compass, nil))
}

func TestFloodObstructedSeed(t *testing.T) {
	bounds := Bounds{Width: 3, Height: 3}
	walls := NewBlockMap(bounds, []Position{{1, 1}})
	called := false
	assert.Zero(t, Flood(bounds, walls.IsBlocked, Position{X: 1, Y: 1}, nil, func(Position) { called = true }))
	assert.Zero(t, Flood(bounds, walls.IsBlocked, Position{X: 9, Y: 9}, nil, func(Position) { called = true }))
	assert.False(t, called)
}

func TestGridNeighbors(t *testing.T) {
	bounds := Bounds{Width: 3, Height: 3}
	walls := NewBlockMap(bounds, []Position{{1, 2}})
	got := GridNeighbors(walls, Compass).Neighbors(Position{X: 1, Y: 1})
	require.Len(t, got, 7)
	for _, nb := range got {
		assert.NotEqual(t, Position{X: 1, Y: 2}, nb.Position)
		if nb.Position.X != 1 && nb.Position.Y != 1 {
			assert.InDelta(t, math.Sqrt2, nb.Distance, 1e-12)
		} else {
			assert.Equal(t, 1.0, nb.Distance)
		}
	}

	corner := GridNeighbors(walls, nil).Neighbors(Position{})
	assert.Len(t, corner, 2)
}

type flippingOracle struct {
	calls int
}

func (f *flippingOracle) IsBlocked(Position) bool {
	f.calls++
	return f.calls%2 == 0
}

func (f *flippingOracle) Bounds() Bounds { return Bounds{Width: 2, Height: 2} }

func TestFreeze(t *testing.T) {
	_, err := Freeze(&flippingOracle{})
	require.ErrorIs(t, err, ErrInconsistentOracle)

	stable := BlockageFunc{
		Size:    Bounds{Width: 4, Height: 2},
		Blocked: func(p Position) bool { return p.X == 2 },
	}
	m, err := Freeze(stable)
	require.NoError(t, err)
	assert.True(t, m.IsBlocked(Position{X: 2, Y: 1}))
	assert.False(t, m.IsBlocked(Position{X: 1, Y: 1}))
	assert.True(t, m.IsBlocked(Position{X: -1, Y: 0}))
	assert.Len(t, m.OpenCells(), 6)

	same, err := Freeze(m)
	require.NoError(t, err)
	assert.Same(t, m, same)
}

func TestHeightMapWalkable(t *testing.T) {
	bounds := Bounds{Width: 2, Height: 2}
	h := NewHeightMap(bounds, []float64{0, 0.5, 2, 1})
	walk := h.Walkable(0.5)
	assert.False(t, walk.IsBlocked(Position{X: 1, Y: 0}))
	assert.True(t, walk.IsBlocked(Position{X: 0, Y: 1}))
	assert.True(t, h.Obstructed(1)(Position{X: 0, Y: 1}))
	assert.False(t, h.Obstructed(1)(Position{X: 1, Y: 1}))
	assert.Zero(t, h.Height(Position{X: 5, Y: 5}))
}

func TestGenerateHeights(t *testing.T) {
	bounds := Bounds{Width: 16, Height: 12}
	cfg := TerrainConfig{Seed: 42, MaxHeight: 3, Border: true}
	a := GenerateHeights(bounds, cfg)
	b := GenerateHeights(bounds, cfg)
	assert.Equal(t, a.heights, b.heights)
	for i := range a.heights {
		p := bounds.At(i)
		h := a.Height(p)
		assert.GreaterOrEqual(t, h, 0.0)
		assert.LessOrEqual(t, h, 3.0)
		if p.X == 0 || p.Y == 0 || p.X == 15 || p.Y == 11 {
			assert.Equal(t, 3.0, h)
		}
	}
}
