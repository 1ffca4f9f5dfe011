package engine

import (
	"context"
	"testing"

	"influence-rl-go/internal/grid"
	"influence-rl-go/internal/visibility"
)

func benchmarkEpisodes(b *testing.B, cfg Config) {
	for i := 0; i < b.N; i++ {
		trainer, err := NewTrainer(cfg, nil)
		if err != nil {
			b.Fatal(err)
		}
		ctx := context.Background()
		for range trainer.Run(ctx) {
		}
	}
}

func BenchmarkEpisodeOpenArena(b *testing.B) {
	cfg := Config{
		Episodes:     1,
		Seed:         99,
		Width:        12,
		Height:       12,
		StepPenalty:  0.01,
		Epsilon:      0.2,
		EpsilonMin:   0.05,
		EpsilonDecay: 0.999,
		Alpha:        0.2,
		Gamma:        0.9,
	}
	benchmarkEpisodes(b, cfg)
}

func BenchmarkEpisodeTerrainArena(b *testing.B) {
	cfg := Config{
		Episodes:      1,
		Seed:          99,
		Width:         12,
		Height:        12,
		Terrain:       true,
		TerrainConfig: grid.TerrainConfig{Seed: 4, MaxHeight: 3},
		WalkThreshold: 3,
		Visibility:    visibility.Config{HeightThreshold: 1.5},
		Diagonal:      true,
		Enemies:       []grid.Position{{X: 6, Y: 6}},
		StepPenalty:   0.01,
		Epsilon:       0.2,
		Alpha:         0.2,
		Gamma:         0.9,
	}
	benchmarkEpisodes(b, cfg)
}

func BenchmarkDecide(b *testing.B) {
	trainer, err := NewTrainer(Config{Seed: 1, Width: 16, Height: 16}, nil)
	if err != nil {
		b.Fatal(err)
	}
	l := trainer.Learner()
	s := State{Position: grid.Position{X: 8, Y: 8}}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a := l.Action(s)
		l.Update(s, a, State{Position: s.Position.Add(a)}, 0)
	}
}
