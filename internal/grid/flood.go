package grid

// Flood visits every cell reachable from seed through non-obstructed cells,
// moving with the given actions (Cardinal when empty). Each reachable cell is
// passed to visit exactly once; the order is unspecified. An out-of-bounds or
// obstructed seed visits nothing. It returns the number of cells visited.
func Flood(bounds Bounds, obstructed func(Position) bool, seed Position, actions []Action, visit func(Position)) int {
	if !bounds.Contains(seed) || (obstructed != nil && obstructed(seed)) {
		return 0
	}
	if len(actions) == 0 {
		actions = Cardinal
	}
	seen := make([]bool, bounds.Cells())
	seen[bounds.Index(seed)] = true
	stack := []Position{seed}
	count := 0
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		count++
		if visit != nil {
			visit(p)
		}
		for _, a := range actions {
			next := p.Add(a)
			if !bounds.Contains(next) {
				continue
			}
			idx := bounds.Index(next)
			if seen[idx] {
				continue
			}
			if obstructed != nil && obstructed(next) {
				continue
			}
			seen[idx] = true
			stack = append(stack, next)
		}
	}
	return count
}
