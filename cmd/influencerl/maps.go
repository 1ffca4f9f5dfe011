package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"

	"influence-rl-go/internal/engine"
	"influence-rl-go/internal/grid"
	"influence-rl-go/internal/influence"
	"influence-rl-go/internal/visibility"
)

func runInfluence(args []string) error {
	fs := flag.NewFlagSet("influence", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	arena := addArenaFlags(fs)
	passes := fs.Int("passes", 0, "diffusion passes (0 for width+height)")
	decay := fs.Float64("decay", 0, "decay rate applied to every field (0 keeps the per-field default)")
	momentum := fs.Float64("momentum", 0, "momentum applied to every field (0 keeps the per-field default)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := arena.load(fs)
	if err != nil {
		return err
	}
	if *passes > 0 {
		cfg.DiffusePasses = *passes
	}
	for _, fc := range []*influence.Config{&cfg.OwnField, &cfg.EnemyField, &cfg.GoalField} {
		if *decay > 0 {
			fc.Decay = *decay
		}
		if *momentum > 0 {
			fc.Momentum = *momentum
		}
	}

	trainer, err := engine.NewTrainer(cfg, nil)
	if err != nil {
		return err
	}
	cfg = trainer.Config()
	fields := trainer.Fields()
	bounds := grid.Bounds{Width: cfg.Width, Height: cfg.Height}

	fmt.Printf("influence => %dx%d passes=%d enemies=%d\n", cfg.Width, cfg.Height, cfg.DiffusePasses, len(cfg.Enemies))
	printField(os.Stdout, fields.Goal.Name(), bounds, fields.Goal)
	if len(cfg.Enemies) > 0 {
		printField(os.Stdout, fields.Enemy.Name(), bounds, fields.Enemy)
		// positive where the goal pulls harder than the enemy threatens
		advantage := fields.Goal.Combine(fields.Enemy, func(a, b float64) float64 { return a - b }, influence.KeyLeftTopology)
		printField(os.Stdout, "advantage", bounds, advantage)
	}
	return nil
}

func runVisibility(args []string) error {
	fs := flag.NewFlagSet("visibility", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	arena := addArenaFlags(fs)
	samples := fs.Int("samples", 0, "number of vantage samples")
	radius := fs.Float64("radius", 0, "sight radius in cells")
	threshold := fs.Float64("threshold", -1, "height above which a cell blocks sight")

	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := arena.load(fs)
	if err != nil {
		return err
	}
	if cfg.Width <= 0 {
		cfg.Width = 16
	}
	if cfg.Height <= 0 {
		cfg.Height = 16
	}
	vc := cfg.Visibility
	if *samples > 0 {
		vc.Samples = *samples
	}
	if *radius > 0 {
		vc.Radius = *radius
	}
	if *threshold >= 0 {
		vc.HeightThreshold = *threshold
	}

	bounds := grid.Bounds{Width: cfg.Width, Height: cfg.Height}
	heights := grid.NewHeightMap(bounds, nil)
	if cfg.Terrain {
		tc := cfg.TerrainConfig
		if tc.Seed == 0 {
			tc.Seed = cfg.Seed
		}
		heights = grid.GenerateHeights(bounds, tc)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = 1
	}
	field := visibility.Build(vc, heights, rand.New(rand.NewSource(seed)), nil)

	fmt.Printf("visibility => %dx%d max_count=%.0f\n", cfg.Width, cfg.Height, field.MaxCount())
	printGrid(os.Stdout, "heights", bounds, func(p grid.Position) (float64, bool) {
		return heights.Height(p), true
	})
	printGrid(os.Stdout, "exposure", bounds, func(p grid.Position) (float64, bool) {
		return field.Get(p), true
	})
	return nil
}
