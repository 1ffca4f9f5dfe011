package engine

import (
	"fmt"
	"io"
	"maps"
	"math"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"influence-rl-go/internal/grid"
	"influence-rl-go/internal/influence"
	"influence-rl-go/internal/visibility"
)

const (
	RoleAttacker = "attacker"
	RoleReturner = "returner"
)

// Config drives a Trainer. Out-of-range values are replaced with defaults by
// NewTrainer, so the zero Config is a runnable 8x8 arena.
type Config struct {
	Episodes    int   `yaml:"episodes"`
	Seed        int64 `yaml:"seed"`
	StepDelayMs int   `yaml:"step_delay_ms"`

	Width         int                `yaml:"width"`
	Height        int                `yaml:"height"`
	Terrain       bool               `yaml:"terrain"`
	TerrainConfig grid.TerrainConfig `yaml:"terrain_config"`
	WalkThreshold float64            `yaml:"walk_threshold"`
	Diagonal      bool               `yaml:"diagonal"`

	Start       grid.Position   `yaml:"start"`
	Goal        grid.Position   `yaml:"goal"`
	RandomStart bool            `yaml:"random_start"`
	Enemies     []grid.Position `yaml:"enemies"`

	GoalReward   float64 `yaml:"goal_reward"`
	StepPenalty  float64 `yaml:"step_penalty"`
	EnemyPenalty float64 `yaml:"enemy_penalty"`
	MaxSteps     int     `yaml:"max_steps"`

	Role         string             `yaml:"role"`
	Epsilon      float64            `yaml:"epsilon"`
	EpsilonMin   float64            `yaml:"epsilon_min"`
	EpsilonDecay float64            `yaml:"epsilon_decay"`
	Alpha        float64            `yaml:"alpha"`
	Gamma        float64            `yaml:"gamma"`
	Weights      map[string]float64 `yaml:"weights,omitempty"`

	OwnField      influence.Config  `yaml:"own_field"`
	EnemyField    influence.Config  `yaml:"enemy_field"`
	GoalField     influence.Config  `yaml:"goal_field"`
	DiffusePasses int               `yaml:"diffuse_passes"`
	Visibility    visibility.Config `yaml:"visibility"`
}

// LoadConfig reads a YAML config file. Fields the file leaves out keep the
// values already present in base.
func LoadConfig(path string, base Config) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return base, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return DecodeConfig(f, base)
}

// DecodeConfig is LoadConfig for an already open reader.
func DecodeConfig(r io.Reader, base Config) (Config, error) {
	cfg := base
	cfg.Weights = maps.Clone(base.Weights)
	cfg.Enemies = slices.Clone(base.Enemies)
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && err != io.EOF {
		return base, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func (c Config) sanitize() Config {
	if c.Width <= 0 {
		c.Width = 8
	}
	if c.Height <= 0 {
		c.Height = 8
	}
	bounds := grid.Bounds{Width: c.Width, Height: c.Height}
	if !bounds.Contains(c.Start) {
		c.Start = grid.Position{}
	}
	if !bounds.Contains(c.Goal) || c.Goal == c.Start {
		c.Goal = grid.Position{X: c.Width - 1, Y: c.Height - 1}
	}
	enemies := c.Enemies[:0:0]
	for _, e := range c.Enemies {
		if bounds.Contains(e) && e != c.Start && e != c.Goal {
			enemies = append(enemies, e)
		}
	}
	c.Enemies = enemies
	if c.WalkThreshold <= 0 || math.IsNaN(c.WalkThreshold) {
		c.WalkThreshold = 2
	}
	if c.StepDelayMs < 0 {
		c.StepDelayMs = 0
	}
	if c.MaxSteps <= 0 {
		c.MaxSteps = c.Width * c.Height * 5 / 2
	}
	if c.MaxSteps < 10 {
		c.MaxSteps = 10
	}
	if c.GoalReward <= 0 {
		c.GoalReward = 1
	}
	if c.StepPenalty < 0 {
		c.StepPenalty = 0
	}
	if c.EnemyPenalty <= 0 {
		c.EnemyPenalty = c.GoalReward
	}
	if c.Role == "" {
		c.Role = RoleAttacker
	}
	if c.Epsilon <= 0 || c.Epsilon > 1 {
		c.Epsilon = 0.1
	}
	if c.EpsilonMin < 0 || c.EpsilonMin > c.Epsilon {
		c.EpsilonMin = 0
	}
	if c.EpsilonDecay < 0 || c.EpsilonDecay > 1 {
		c.EpsilonDecay = 0
	}
	if c.Alpha <= 0 || c.Alpha > 1 {
		c.Alpha = DefaultAlpha
	}
	if c.Gamma <= 0 || c.Gamma > 1 {
		c.Gamma = 0.9
	}
	c.OwnField = fieldDefaults(c.OwnField, "own", 0.2, 0.5)
	c.EnemyField = fieldDefaults(c.EnemyField, "enemy", 0.2, 0.5)
	c.GoalField = fieldDefaults(c.GoalField, "goal", 0.7, 0.8)
	if c.DiffusePasses <= 0 {
		c.DiffusePasses = c.Width + c.Height
	}
	return c
}

// fieldDefaults fills in an unset field config. A zero momentum would leave
// the field frozen at its seeded cells, so the trainer treats it as unset.
func fieldDefaults(fc influence.Config, name string, decay, momentum float64) influence.Config {
	if fc.Name == "" {
		fc.Name = name
	}
	if fc.Decay <= 0 {
		fc.Decay = decay
	}
	if fc.Momentum <= 0 {
		fc.Momentum = momentum
	}
	return fc
}

func (c Config) actions() []grid.Action {
	if c.Diagonal {
		return grid.Compass
	}
	return grid.Cardinal
}
