package engine

import (
	"sync"

	"influence-rl-go/internal/grid"
)

// State is what the learner sees of one agent. Terminal states have value 0.
type State struct {
	Position grid.Position
	Terminal bool
}

// NewState floors world coordinates into a State.
func NewState(x, y float64) State {
	return State{Position: grid.FromWorld(x, y)}
}

// StateModel enumerates the legal moves from a cell: the landing cell must be
// inside the grid, not blocked and not occupied by a living teammate.
type StateModel struct {
	oracle  grid.BlockageOracle
	actions []grid.Action

	mu       sync.RWMutex
	occupied map[grid.Position]struct{}
}

// NewStateModel binds the model to an oracle. actions defaults to grid.Cardinal.
func NewStateModel(oracle grid.BlockageOracle, actions []grid.Action) *StateModel {
	if len(actions) == 0 {
		actions = grid.Cardinal
	}
	return &StateModel{
		oracle:   oracle,
		actions:  append([]grid.Action(nil), actions...),
		occupied: make(map[grid.Position]struct{}),
	}
}

// SetOccupied replaces the cells currently held by living teammates.
func (m *StateModel) SetOccupied(cells []grid.Position) {
	occupied := make(map[grid.Position]struct{}, len(cells))
	for _, p := range cells {
		occupied[p] = struct{}{}
	}
	m.mu.Lock()
	m.occupied = occupied
	m.mu.Unlock()
}

// LegalActions lists the allowed moves from p in the model's fixed order. It
// is empty when every move is excluded.
func (m *StateModel) LegalActions(p grid.Position) []grid.Action {
	bounds := m.oracle.Bounds()
	m.mu.RLock()
	defer m.mu.RUnlock()
	legal := make([]grid.Action, 0, len(m.actions))
	for _, a := range m.actions {
		next := p.Add(a)
		if !bounds.Contains(next) || m.oracle.IsBlocked(next) {
			continue
		}
		if _, taken := m.occupied[next]; taken {
			continue
		}
		legal = append(legal, a)
	}
	return legal
}

func (m *StateModel) Actions() []grid.Action {
	return append([]grid.Action(nil), m.actions...)
}

func (m *StateModel) Bounds() grid.Bounds {
	return m.oracle.Bounds()
}
