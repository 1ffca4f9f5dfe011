package engine

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"influence-rl-go/internal/grid"
	"influence-rl-go/internal/influence"
	"influence-rl-go/internal/metrics"
	"influence-rl-go/internal/visibility"
)

func visibilitySamples(n int) visibility.Config {
	return visibility.Config{Samples: n}
}

func TestAttackerReachesFlagSmoke(t *testing.T) {
	cfg := Config{
		Episodes:     50,
		Seed:         7,
		Width:        6,
		Height:       6,
		GoalReward:   1,
		Epsilon:      0.5,
		EpsilonMin:   0.05,
		EpsilonDecay: 0.97,
		Alpha:        0.1,
		Gamma:        0.9,
		Visibility:   visibilitySamples(200),
	}

	trainer, err := NewTrainer(cfg, metrics.NewRecorder(prometheus.NewRegistry()))
	require.NoError(t, err)

	var final Snapshot
	for snapshot := range trainer.Run(context.Background()) {
		final = snapshot
	}

	assert.Equal(t, StatusDone, final.Status)
	assert.Equal(t, cfg.Episodes, final.EpisodesCompleted)
	assert.GreaterOrEqual(t, final.SuccessCount, 1)
	assert.Less(t, float64(final.TotalSteps)/float64(cfg.Episodes), float64(trainer.Config().MaxSteps))
	require.Len(t, final.ValueMap, 6)
	assert.Zero(t, final.ValueMap[5][5], "goal is terminal")

	policy := trainer.Policy()
	assert.Len(t, policy, 6*6-1)
	for p, a := range policy {
		assert.False(t, a.IsNone(), "cell %v", p)
	}
}

func TestEnemiesEndEpisodes(t *testing.T) {
	cfg := Config{
		Episodes:   30,
		Seed:       3,
		Width:      5,
		Height:     5,
		Enemies:    []grid.Position{{X: 1, Y: 0}, {X: 0, Y: 1}, {X: 9, Y: 9}},
		Epsilon:    1,
		Visibility: visibilitySamples(50),
	}
	trainer, err := NewTrainer(cfg, nil)
	require.NoError(t, err)
	assert.Len(t, trainer.Config().Enemies, 2, "out-of-grid enemy dropped")
	assert.Greater(t, trainer.Fields().Enemy.Get(grid.Position{X: 1, Y: 1}), 0.0)

	var final Snapshot
	for snapshot := range trainer.Run(context.Background()) {
		final = snapshot
	}
	// both moves out of the start corner land on an enemy
	assert.Equal(t, cfg.Episodes, final.CaughtCount)
	assert.Equal(t, cfg.Episodes, final.TotalSteps)
	assert.Less(t, final.Weights[FeatureBias], 0.0)
}

func TestUnreachableGoal(t *testing.T) {
	cfg := Config{
		Width:         5,
		Height:        5,
		Terrain:       true,
		TerrainConfig: grid.TerrainConfig{Border: true, MaxHeight: 10},
		WalkThreshold: 2,
		Start:         grid.Position{X: 0, Y: 0},
		Goal:          grid.Position{X: 2, Y: 2},
	}
	_, err := NewTrainer(cfg, nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not reachable"), err.Error())
}

func TestRandomStartAvoidsGoalAndEnemies(t *testing.T) {
	cfg := Config{
		Width:   4,
		Height:  4,
		Enemies: []grid.Position{{X: 2, Y: 2}},
	}.sanitize()
	env, err := newArena(cfg)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(11))
	starts := map[grid.Position]int{}
	for i := 0; i < 2000; i++ {
		env.randomStart(rng)
		starts[env.curr]++
	}
	assert.Len(t, starts, 14)
	assert.Zero(t, starts[cfg.Goal])
	assert.Zero(t, starts[grid.Position{X: 2, Y: 2}])

	env.reset()
	assert.Equal(t, cfg.Start, env.curr)
}

func TestCancelledRunReportsCancellation(t *testing.T) {
	cfg := Config{Episodes: 1000, Seed: 5, Width: 8, Height: 8, Visibility: visibilitySamples(50)}
	trainer, err := NewTrainer(cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var last Snapshot
	seen := 0
	for snapshot := range trainer.Run(ctx) {
		seen++
		if seen == 10 {
			cancel()
		}
		last = snapshot
	}
	cancel()
	assert.Equal(t, StatusCancelled, last.Status)
	assert.Less(t, last.EpisodesCompleted, cfg.Episodes)
}

func TestOwnInfluenceFollowsAgent(t *testing.T) {
	cfg := Config{Episodes: 1, Seed: 2, Width: 4, Height: 4, Visibility: visibilitySamples(20)}
	trainer, err := NewTrainer(cfg, nil)
	require.NoError(t, err)
	for range trainer.Run(context.Background()) {
	}
	own := trainer.Fields().Own
	assert.Equal(t, 16, own.Len())
	total := 0.0
	for _, v := range own.Values() {
		assert.False(t, math.IsNaN(v))
		total += v
	}
	assert.Greater(t, total, 0.0)
}

func TestConfigSanitize(t *testing.T) {
	cfg := Config{
		Width:   -1,
		Start:   grid.Position{X: 50, Y: 50},
		Epsilon: 4,
		Alpha:   -1,
		Gamma:   2,
		Enemies: []grid.Position{{X: 0, Y: 0}},
	}.sanitize()
	assert.Equal(t, 8, cfg.Width)
	assert.Equal(t, grid.Position{}, cfg.Start)
	assert.Equal(t, grid.Position{X: 7, Y: 7}, cfg.Goal)
	assert.Equal(t, 0.1, cfg.Epsilon)
	assert.Equal(t, DefaultAlpha, cfg.Alpha)
	assert.Equal(t, 0.9, cfg.Gamma)
	assert.Empty(t, cfg.Enemies, "enemy on the start cell dropped")
	assert.Equal(t, RoleAttacker, cfg.Role)
	assert.Equal(t, 160, cfg.MaxSteps)
	assert.Equal(t, grid.Cardinal, cfg.actions())
}

func TestDecodeConfigKeepsBase(t *testing.T) {
	base := Config{Episodes: 10, Width: 6, Alpha: 0.3}
	cfg, err := DecodeConfig(strings.NewReader(`
episodes: 25
goal: {x: 3, y: 4}
enemies:
  - {x: 1, y: 1}
goal_field:
  decay: 0.5
visibility:
  samples: 300
terrain_config:
  seed: 9
  border: true
`), base)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Episodes)
	assert.Equal(t, 6, cfg.Width)
	assert.Equal(t, 0.3, cfg.Alpha)
	assert.Equal(t, grid.Position{X: 3, Y: 4}, cfg.Goal)
	assert.Equal(t, []grid.Position{{X: 1, Y: 1}}, cfg.Enemies)
	assert.Equal(t, 0.5, cfg.GoalField.Decay)
	assert.Equal(t, 300, cfg.Visibility.Samples)
	assert.True(t, cfg.TerrainConfig.Border)

	empty, err := DecodeConfig(strings.NewReader(""), base)
	require.NoError(t, err)
	assert.Equal(t, base, empty)

	_, err = DecodeConfig(strings.NewReader("episodes: [nope"), base)
	require.Error(t, err)
}

func TestDecodeConfigLeavesBaseWeights(t *testing.T) {
	base := Config{Weights: map[string]float64{"bias": 1}}
	cfg, err := DecodeConfig(strings.NewReader("weights: {visibility: 2}\n"), base)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"bias": 1, "visibility": 2}, cfg.Weights)
	assert.Equal(t, map[string]float64{"bias": 1}, base.Weights)
}

func TestDefaultFieldsDiffuse(t *testing.T) {
	cfg := Config{Seed: 1, Width: 6, Height: 6, Enemies: []grid.Position{{X: 3, Y: 3}}, Visibility: visibilitySamples(20)}
	trainer, err := NewTrainer(cfg, nil)
	require.NoError(t, err)

	got := trainer.Config()
	assert.Equal(t, 0.5, got.OwnField.Momentum)
	assert.Equal(t, 0.5, got.EnemyField.Momentum)
	assert.Equal(t, 0.8, got.GoalField.Momentum)
	assert.Equal(t, 0.7, got.GoalField.Decay)

	fields := trainer.Fields()
	near := fields.Goal.Get(grid.Position{X: 4, Y: 5})
	far := fields.Goal.Get(grid.Position{X: 0, Y: 0})
	assert.Greater(t, near, 0.0)
	assert.Greater(t, near, far)
	assert.Greater(t, fields.Enemy.Get(grid.Position{X: 3, Y: 4}), 0.0)

	// an explicit field config is kept
	cfg.GoalField = influence.Config{Decay: 0.3, Momentum: 0.4}
	trainer, err = NewTrainer(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.3, trainer.Fields().Goal.Decay())
	assert.Equal(t, 0.4, trainer.Fields().Goal.Momentum())
}
