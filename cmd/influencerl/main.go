package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"influence-rl-go/internal/engine"
	"influence-rl-go/internal/metrics"
)

func main() {
	flag.Parse()
	err := run(flag.Args())
	glog.Flush()
	if err != nil {
		fmt.Fprintf(os.Stderr, "influencerl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 1 {
		return errors.New("missing subcommand; try 'train', 'influence' or 'visibility'")
	}

	subcommand := args[0]
	switch subcommand {
	case "train":
		return runTrain(args[1:])
	case "influence":
		return runInfluence(args[1:])
	case "visibility":
		return runVisibility(args[1:])
	default:
		return fmt.Errorf("unknown subcommand %q", subcommand)
	}
}

// arenaFlags are shared by every subcommand that builds an arena.
type arenaFlags struct {
	configPath *string
	seed       *int64
	width      *int
	height     *int
	terrain    *bool
	diagonal   *bool
}

func addArenaFlags(fs *flag.FlagSet) arenaFlags {
	return arenaFlags{
		configPath: fs.String("config", "", "YAML config file"),
		seed:       fs.Int64("seed", 0, "deterministic seed (0 for default)"),
		width:      fs.Int("width", 0, "arena width"),
		height:     fs.Int("height", 0, "arena height"),
		terrain:    fs.Bool("terrain", false, "generate noise terrain"),
		diagonal:   fs.Bool("diagonal", false, "allow diagonal moves"),
	}
}

// load reads the config file, then applies the flags that were set explicitly.
func (a arenaFlags) load(fs *flag.FlagSet) (engine.Config, error) {
	var cfg engine.Config
	if *a.configPath != "" {
		loaded, err := engine.LoadConfig(*a.configPath, cfg)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "seed":
			cfg.Seed = *a.seed
		case "width":
			cfg.Width = *a.width
		case "height":
			cfg.Height = *a.height
		case "terrain":
			cfg.Terrain = *a.terrain
		case "diagonal":
			cfg.Diagonal = *a.diagonal
		}
	})
	return cfg, nil
}

func runTrain(args []string) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	arena := addArenaFlags(fs)
	episodes := fs.Int("episodes", 0, "number of training episodes")
	epsilon := fs.Float64("epsilon", 0, "exploration rate (0-1)")
	alpha := fs.Float64("alpha", 0, "learning rate (0-1)")
	role := fs.String("role", "", "learner role (attacker or returner)")
	weightsIn := fs.String("weights-in", "", "resume from a weight snapshot file")
	weightsOut := fs.String("weights-out", "", "write learned weights to this file")
	metricsAddr := fs.String("metrics-addr", "", "serve Prometheus metrics on this address")

	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := arena.load(fs)
	if err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "episodes":
			cfg.Episodes = *episodes
		case "epsilon":
			cfg.Epsilon = *epsilon
		case "alpha":
			cfg.Alpha = *alpha
		case "role":
			cfg.Role = *role
		}
	})
	if cfg.Episodes <= 0 {
		cfg.Episodes = 1
	}
	if cfg.Epsilon < 0 || cfg.Epsilon > 1 {
		return fmt.Errorf("epsilon must be between 0 and 1 (got %.2f)", cfg.Epsilon)
	}
	if cfg.Alpha < 0 || cfg.Alpha > 1 {
		return fmt.Errorf("alpha must be between 0 and 1 (got %.2f)", cfg.Alpha)
	}
	if *weightsIn != "" {
		if cfg.Weights, err = loadWeights(*weightsIn, cfg.Role); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	rec := metrics.NewRecorder(reg)
	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, reg)
	}

	trainer, err := engine.NewTrainer(cfg, rec)
	if err != nil {
		return err
	}
	cfg = trainer.Config()
	fmt.Printf("train config => %dx%d role=%s episodes=%d seed=%d epsilon=%.2f alpha=%.2f gamma=%.2f\n",
		cfg.Width, cfg.Height, cfg.Role, cfg.Episodes, cfg.Seed, cfg.Epsilon, cfg.Alpha, cfg.Gamma)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var final engine.Snapshot
	for snapshot := range trainer.Run(ctx) {
		switch snapshot.Status {
		case engine.StatusEpisodeComplete:
			fmt.Printf("episode %d: reward=%.2f steps=%d epsilon=%.3f\n",
				snapshot.Episode, snapshot.EpisodeReward, snapshot.EpisodeSteps, snapshot.Epsilon)
		case engine.StatusCancelled:
			fmt.Printf("cancelled during episode %d\n", snapshot.Episode)
		}
		final = snapshot
	}

	if final.EpisodesCompleted > 0 {
		n := float64(final.EpisodesCompleted)
		fmt.Printf("summary: avg_reward=%.2f avg_steps=%.2f success_rate=%.2f caught_rate=%.2f\n",
			final.TotalReward/n, float64(final.TotalSteps)/n, float64(final.SuccessCount)/n, float64(final.CaughtCount)/n)
	}
	printWeights(os.Stdout, final.Weights)
	printValueMap(os.Stdout, final.ValueMap)
	printPolicy(os.Stdout, cfg, trainer.Policy())

	if *weightsOut != "" {
		if err := saveWeights(*weightsOut, trainer.Snapshots()); err != nil {
			return err
		}
		fmt.Printf("weights written to %s\n", *weightsOut)
	}
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	glog.Infof("serving metrics on %s/metrics", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		glog.Errorf("metrics server: %v", err)
	}
}

func loadWeights(path, role string) (map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	snapshots, err := engine.ReadSnapshots(f)
	if err != nil {
		return nil, err
	}
	if role == "" {
		role = engine.RoleAttacker
	}
	weights := engine.SnapshotWeights(snapshots, role)
	if weights == nil {
		return nil, fmt.Errorf("%s holds no weights for role %q", path, role)
	}
	return weights, nil
}

func saveWeights(path string, snapshots []engine.WeightSnapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := engine.WriteSnapshots(f, snapshots); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
