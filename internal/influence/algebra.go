package influence

import "influence-rl-go/internal/grid"

// KeyPolicy decides which keys of the right-hand operand survive a combination.
type KeyPolicy int

const (
	// KeyUnion keeps every key known to either operand.
	KeyUnion KeyPolicy = iota
	// KeyLeftTopology keeps right-only keys only when they are open cells of
	// the left operand's oracle.
	KeyLeftTopology
)

// Add returns f+other over the union of both key sets.
func (f *Field) Add(other *Field) *Field {
	return f.Combine(other, func(a, b float64) float64 { return a + b }, KeyUnion)
}

// Sub returns f-other over the union of both key sets.
func (f *Field) Sub(other *Field) *Field {
	return f.Combine(other, func(a, b float64) float64 { return a - b }, KeyUnion)
}

// Scale returns a copy of f with every value multiplied by s.
func (f *Field) Scale(s float64) *Field {
	out := f.derive()
	f.mu.RLock()
	defer f.mu.RUnlock()
	for p, v := range f.values {
		out.values[p] = v * s
	}
	return out
}

// Combine applies op cell by cell, reading missing cells as 0. The result is
// bound to f's oracle, neighbour source and diffusion parameters, so it can be
// diffused on its own.
func (f *Field) Combine(other *Field, op func(a, b float64) float64, policy KeyPolicy) *Field {
	out := f.derive()
	left := f.Values()
	var right map[grid.Position]float64
	if other != nil {
		right = other.Values()
	}
	for p, a := range left {
		out.values[p] = op(a, right[p])
	}
	for p, b := range right {
		if _, ok := left[p]; ok {
			continue
		}
		if policy == KeyLeftTopology && f.oracle.IsBlocked(p) {
			continue
		}
		out.values[p] = op(0, b)
	}
	return out
}

func (f *Field) derive() *Field {
	return &Field{
		cfg:       f.cfg,
		oracle:    f.oracle,
		neighbors: f.neighbors,
		recorder:  f.recorder,
		values:    make(map[grid.Position]float64),
	}
}
