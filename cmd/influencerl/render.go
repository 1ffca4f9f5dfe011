package main

import (
	"fmt"
	"io"
	"math"
	"sort"

	"influence-rl-go/internal/engine"
	"influence-rl-go/internal/grid"
	"influence-rl-go/internal/influence"
)

// printGrid prints one value per cell, north row first. Cells for which value
// reports false print as '#'.
func printGrid(w io.Writer, title string, bounds grid.Bounds, value func(grid.Position) (float64, bool)) {
	fmt.Fprintf(w, "%s:\n", title)
	for y := bounds.Height - 1; y >= 0; y-- {
		for x := 0; x < bounds.Width; x++ {
			v, ok := value(grid.Position{X: x, Y: y})
			if !ok || math.IsNaN(v) {
				fmt.Fprint(w, "     # ")
				continue
			}
			fmt.Fprintf(w, "%6.2f ", v)
		}
		fmt.Fprintln(w)
	}
}

func printField(w io.Writer, title string, bounds grid.Bounds, f *influence.Field) {
	printGrid(w, title, bounds, func(p grid.Position) (float64, bool) {
		return f.Get(p), !f.Oracle().IsBlocked(p)
	})
}

func printValueMap(w io.Writer, values [][]float64) {
	if len(values) == 0 {
		return
	}
	bounds := grid.Bounds{Width: len(values[0]), Height: len(values)}
	printGrid(w, "value map", bounds, func(p grid.Position) (float64, bool) {
		return values[p.Y][p.X], true
	})
}

func printWeights(w io.Writer, weights map[string]float64) {
	if len(weights) == 0 {
		return
	}
	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "weights:")
	for _, name := range names {
		fmt.Fprintf(w, "  %-16s %8.4f\n", name, weights[name])
	}
}

var policyArrows = map[grid.Action]string{
	grid.North:     "^",
	grid.South:     "v",
	grid.East:      ">",
	grid.West:      "<",
	grid.NorthEast: "/",
	grid.SouthWest: "/",
	grid.NorthWest: "\\",
	grid.SouthEast: "\\",
}

func printPolicy(w io.Writer, cfg engine.Config, policy map[grid.Position]grid.Action) {
	fmt.Fprintln(w, "greedy policy:")
	for y := cfg.Height - 1; y >= 0; y-- {
		for x := 0; x < cfg.Width; x++ {
			p := grid.Position{X: x, Y: y}
			switch a, ok := policy[p]; {
			case p == cfg.Goal:
				fmt.Fprint(w, " G")
			case !ok:
				fmt.Fprint(w, " #")
			case a.IsNone():
				fmt.Fprint(w, " .")
			default:
				fmt.Fprintf(w, " %s", policyArrows[a])
			}
		}
		fmt.Fprintln(w)
	}
}
