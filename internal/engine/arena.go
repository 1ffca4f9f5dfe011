package engine

import (
	"fmt"
	"math/rand"

	"influence-rl-go/internal/grid"
)

const timeoutPenaltyMultiplier = 5.0

type outcome int

const (
	outcomeNone outcome = iota
	outcomeGoal
	outcomeCaught
	outcomeTimeout
)

// arena is a single-agent episode over a walkable height map: reach the goal,
// avoid the enemy cells.
type arena struct {
	bounds    grid.Bounds
	heights   *grid.HeightMap
	blocks    *grid.BlockMap
	start     grid.Position
	goal      grid.Position
	enemies   map[grid.Position]struct{}
	reachable []grid.Position

	goalReward   float64
	stepPenalty  float64
	enemyPenalty float64
	maxSteps     int

	curr       grid.Position
	stepsTaken int
}

func newArena(cfg Config) (*arena, error) {
	bounds := grid.Bounds{Width: cfg.Width, Height: cfg.Height}
	heights := make([]float64, bounds.Cells())
	if cfg.Terrain {
		terrain := grid.GenerateHeights(bounds, cfg.TerrainConfig)
		for i := range heights {
			heights[i] = terrain.Height(bounds.At(i))
		}
	}
	heights[bounds.Index(cfg.Start)] = 0
	heights[bounds.Index(cfg.Goal)] = 0
	hm := grid.NewHeightMap(bounds, heights)
	blocks := hm.Walkable(cfg.WalkThreshold)

	a := &arena{
		bounds:       bounds,
		heights:      hm,
		blocks:       blocks,
		start:        cfg.Start,
		goal:         cfg.Goal,
		enemies:      make(map[grid.Position]struct{}, len(cfg.Enemies)),
		goalReward:   cfg.GoalReward,
		stepPenalty:  cfg.StepPenalty,
		enemyPenalty: cfg.EnemyPenalty,
		maxSteps:     cfg.MaxSteps,
		curr:         cfg.Start,
	}
	for _, e := range cfg.Enemies {
		a.enemies[e] = struct{}{}
	}

	goalReached := false
	grid.Flood(bounds, blocks.IsBlocked, cfg.Start, cfg.actions(), func(p grid.Position) {
		if p == cfg.Goal {
			goalReached = true
			return
		}
		if _, enemy := a.enemies[p]; !enemy {
			a.reachable = append(a.reachable, p)
		}
	})
	if !goalReached {
		return nil, fmt.Errorf("goal %v is not reachable from start %v", cfg.Goal, cfg.Start)
	}
	return a, nil
}

func (a *arena) reset() {
	a.curr = a.start
	a.stepsTaken = 0
}

// randomStart moves the agent to a uniformly chosen reachable cell that is
// neither the goal nor an enemy.
func (a *arena) randomStart(rng *rand.Rand) {
	if len(a.reachable) == 0 {
		return
	}
	a.curr = a.reachable[rng.Intn(len(a.reachable))]
}

// step applies an already legal action. A grid.NoAction leaves the agent in
// place but still costs a step.
func (a *arena) step(action grid.Action) (float64, outcome) {
	if a.stepsTaken >= a.maxSteps {
		return 0, outcomeTimeout
	}
	next := a.curr.Add(action)
	if a.bounds.Contains(next) && !a.blocks.IsBlocked(next) {
		a.curr = next
	}
	a.stepsTaken++
	reward := -a.stepPenalty
	if a.curr == a.goal {
		return reward + a.goalReward, outcomeGoal
	}
	if _, caught := a.enemies[a.curr]; caught {
		return reward - a.enemyPenalty, outcomeCaught
	}
	if a.stepsTaken >= a.maxSteps {
		return reward - a.stepPenalty*timeoutPenaltyMultiplier, outcomeTimeout
	}
	return reward, outcomeNone
}
