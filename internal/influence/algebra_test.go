package influence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"influence-rl-go/internal/grid"
)

func algebraOperands() (*Field, *Field) {
	bounds := grid.Bounds{Width: 4, Height: 4}
	a := New(Config{Name: "a", Decay: 0.4, Momentum: 0.7}, grid.Open(bounds), nil)
	b := New(Config{Name: "b"}, grid.NewBlockMap(bounds, []grid.Position{{X: 3, Y: 3}}), nil)
	a.Set(grid.Position{X: 0, Y: 0}, 1)
	a.Set(grid.Position{X: 1, Y: 0}, 2)
	b.Set(grid.Position{X: 1, Y: 0}, 0.5)
	b.Set(grid.Position{X: 2, Y: 2}, -3)
	return a, b
}

func TestAlgebraMatchesPointwise(t *testing.T) {
	a, b := algebraOperands()
	sum := a.Add(b)
	diff := a.Sub(b)
	scaled := a.Scale(-2)

	union := []grid.Position{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 2}}
	assert.ElementsMatch(t, union, sum.Keys())
	assert.ElementsMatch(t, union, diff.Keys())
	for _, p := range union {
		assert.Equal(t, a.Get(p)+b.Get(p), sum.Get(p), "sum at %v", p)
		assert.Equal(t, a.Get(p)-b.Get(p), diff.Get(p), "diff at %v", p)
	}
	assert.ElementsMatch(t, a.Keys(), scaled.Keys())
	for _, p := range a.Keys() {
		assert.Equal(t, -2*a.Get(p), scaled.Get(p))
	}

	// operands untouched
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, 2, b.Len())
}

func TestAlgebraCarriesLeftTopology(t *testing.T) {
	a, b := algebraOperands()
	for _, out := range []*Field{a.Add(b), a.Sub(b), a.Scale(3), b.Add(a)} {
		require.NotNil(t, out.Oracle())
	}
	sum := a.Add(b)
	assert.Same(t, a.Oracle(), sum.Oracle())
	assert.Equal(t, a.Neighbors(), sum.Neighbors())
	assert.Equal(t, a.Decay(), sum.Decay())
	assert.Equal(t, a.Momentum(), sum.Momentum())
	assert.Same(t, b.Oracle(), b.Sub(a).Oracle())

	// the result diffuses on its own over a's open grid, including (3,3)
	sum.SeedReachable(grid.Position{})
	assert.True(t, sum.Known(grid.Position{X: 3, Y: 3}))
	sum.Diffuse(2)
	assert.Greater(t, sum.Get(grid.Position{X: 2, Y: 0}), 0.0)
}

func TestCombineKeyPolicies(t *testing.T) {
	bounds := grid.Bounds{Width: 3, Height: 1}
	left := New(Config{}, grid.NewBlockMap(bounds, []grid.Position{{X: 2, Y: 0}}), nil)
	right := New(Config{}, grid.Open(bounds), nil)
	left.Set(grid.Position{X: 0}, 1)
	right.Set(grid.Position{X: 1}, 2)
	right.Set(grid.Position{X: 2}, 3)
	add := func(a, b float64) float64 { return a + b }

	union := left.Combine(right, add, KeyUnion)
	assert.Equal(t, map[grid.Position]float64{{X: 0}: 1, {X: 1}: 2, {X: 2}: 3}, union.Values())

	topo := left.Combine(right, add, KeyLeftTopology)
	assert.Equal(t, map[grid.Position]float64{{X: 0}: 1, {X: 1}: 2}, topo.Values())
	assert.Zero(t, topo.Get(grid.Position{X: 2}))
}

func TestCombineWithNil(t *testing.T) {
	a, _ := algebraOperands()
	out := a.Add(nil)
	assert.Equal(t, a.Values(), out.Values())
}
