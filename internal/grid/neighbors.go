package grid

// Neighbor is an adjacent cell together with the edge distance to it.
type Neighbor struct {
	Position Position
	Distance float64
}

// NeighborSource enumerates the cells adjacent to a position. Diffusion only
// depends on this, so other topologies can be plugged in without touching the
// field code.
type NeighborSource interface {
	Neighbors(p Position) []Neighbor
}

// NeighborFunc adapts a plain function into a NeighborSource.
type NeighborFunc func(p Position) []Neighbor

func (f NeighborFunc) Neighbors(p Position) []Neighbor {
	return f(p)
}

type gridNeighbors struct {
	oracle  BlockageOracle
	actions []Action
}

// GridNeighbors yields the open (in-bounds, unblocked) cells reachable with one
// of the given actions. Edge distance is the Euclidean length of the action.
func GridNeighbors(oracle BlockageOracle, actions []Action) NeighborSource {
	if len(actions) == 0 {
		actions = Cardinal
	}
	return &gridNeighbors{oracle: oracle, actions: actions}
}

func (g *gridNeighbors) Neighbors(p Position) []Neighbor {
	bounds := g.oracle.Bounds()
	out := make([]Neighbor, 0, len(g.actions))
	for _, a := range g.actions {
		next := p.Add(a)
		if !bounds.Contains(next) || g.oracle.IsBlocked(next) {
			continue
		}
		out = append(out, Neighbor{Position: next, Distance: a.Length()})
	}
	return out
}
