package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/golang/glog"

	"influence-rl-go/internal/grid"
	"influence-rl-go/internal/influence"
	"influence-rl-go/internal/metrics"
	"influence-rl-go/internal/visibility"
)

const (
	StatusRunning         = "running"
	StatusEpisodeComplete = "episode_complete"
	StatusDone            = "done"
	StatusCancelled       = "cancelled"
)

const trainerAgent = "trainer"

// Snapshot reports trainer progress. ValueMap is only filled on episode
// boundaries; it is indexed [y][x] and blocked cells read NaN.
type Snapshot struct {
	Step              int
	Episode           int
	EpisodeSteps      int
	EpisodeReward     float64
	Reward            float64
	Position          grid.Position
	Goal              grid.Position
	ValueMap          [][]float64
	Weights           map[string]float64
	Epsilon           float64
	SuccessCount      int
	CaughtCount       int
	EpisodesCompleted int
	TotalReward       float64
	TotalSteps        int
	Config            Config
	Status            string
}

// Trainer runs episodes of one learner in an arena, keeping the own-influence
// map current as the agent moves.
type Trainer struct {
	cfg       Config
	rng       *rand.Rand
	env       *arena
	fields    FieldSet
	extractor *MapFeatures
	model     *StateModel
	pool      *LearnerPool
	learner   *ApproximateQLearner

	epsilon           float64
	step              int
	successCount      int
	caughtCount       int
	episodesCompleted int
	totalReward       float64
	totalSteps        int
}

// NewTrainer sanitises cfg and builds the arena, the influence and visibility
// maps and the learner. rec may be nil.
func NewTrainer(cfg Config, rec *metrics.Recorder) (*Trainer, error) {
	cfg = cfg.sanitize()
	seed := cfg.Seed
	if seed == 0 {
		seed = 1
	}
	rng := rand.New(rand.NewSource(seed))

	env, err := newArena(cfg)
	if err != nil {
		return nil, err
	}
	neighbors := grid.GridNeighbors(env.blocks, cfg.actions())
	var maps [3]*influence.Field
	for i, fc := range []influence.Config{cfg.OwnField, cfg.EnemyField, cfg.GoalField} {
		f, err := influence.NewChecked(fc, env.blocks, neighbors)
		if err != nil {
			return nil, err
		}
		f.SeedReachable(cfg.Start)
		maps[i] = f.WithRecorder(rec)
	}
	own, enemy, goal := maps[0], maps[1], maps[2]
	goal.Set(cfg.Goal, 1)
	for _, e := range cfg.Enemies {
		enemy.Set(e, 1)
	}
	if err := influence.DiffuseAll(context.Background(), cfg.DiffusePasses, enemy, goal); err != nil {
		return nil, fmt.Errorf("diffuse static fields: %w", err)
	}

	visCfg := cfg.Visibility
	// only terrain well above walking height blocks sight
	if visCfg.HeightThreshold <= 0 {
		visCfg.HeightThreshold = cfg.WalkThreshold + 1
	}
	vis := visibility.Build(visCfg, env.heights, rng, rec)

	fields := FieldSet{Own: own, Enemy: enemy, Goal: goal, Visibility: vis}
	var extractor *MapFeatures
	switch cfg.Role {
	case RoleReturner:
		extractor = NewReturnerFeatures(fields, env.bounds)
	default:
		cfg.Role = RoleAttacker
		extractor = NewAttackerFeatures(fields, env.bounds)
	}
	// the arena goal is the flag for attackers and home for returners
	extractor.SetTarget(cfg.Goal)
	threats := make([]Threat, 0, len(cfg.Enemies))
	for _, e := range cfg.Enemies {
		threats = append(threats, Threat{Position: e})
	}
	extractor.TrackThreats(threats)

	t := &Trainer{
		cfg:       cfg,
		rng:       rng,
		env:       env,
		fields:    fields,
		extractor: extractor,
		model:     NewStateModel(env.blocks, cfg.actions()),
		pool:      NewLearnerPool(seed, rec),
		epsilon:   cfg.Epsilon,
	}
	err = t.pool.Register(cfg.Role, RoleConfig{
		Extractor: extractor,
		Model:     t.model,
		Sharing:   SharePerRole,
		Learner: LearnerConfig{
			Epsilon: TimeVarying(func() float64 { return t.epsilon }),
			Alpha:   Constant(cfg.Alpha),
			Gamma:   Constant(cfg.Gamma),
			Weights: cfg.Weights,
			Rand:    rand.New(rand.NewSource(seed + 1)),
		},
	})
	if err != nil {
		return nil, err
	}
	if t.learner, err = t.pool.Learner(cfg.Role, trainerAgent); err != nil {
		return nil, err
	}
	glog.V(1).Infof("trainer: %dx%d arena, %d reachable cells, role %s", cfg.Width, cfg.Height, len(env.reachable)+1, cfg.Role)
	return t, nil
}

func (t *Trainer) Config() Config                { return t.cfg }
func (t *Trainer) Learner() *ApproximateQLearner { return t.learner }
func (t *Trainer) Fields() FieldSet              { return t.fields }

// Snapshots exports the learner weights.
func (t *Trainer) Snapshots() []WeightSnapshot {
	return t.pool.Snapshots()
}

// Policy returns the greedy action of every open cell the agent can reach.
func (t *Trainer) Policy() map[grid.Position]grid.Action {
	policy := make(map[grid.Position]grid.Action, len(t.env.reachable))
	for _, p := range t.env.reachable {
		policy[p] = t.learner.Greedy(State{Position: p})
	}
	return policy
}

func (t *Trainer) Run(ctx context.Context) <-chan Snapshot {
	out := make(chan Snapshot)
	go func() {
		defer close(out)
		if t.cfg.Episodes <= 0 {
			return
		}
		for episode := 1; episode <= t.cfg.Episodes; episode++ {
			select {
			case <-ctx.Done():
				out <- t.snapshot(StatusCancelled, episode, 0, 0, 0)
				return
			default:
			}
			if !t.runEpisode(ctx, episode, out) {
				return
			}
			if t.cfg.EpsilonDecay > 0 {
				t.epsilon = math.Max(t.cfg.EpsilonMin, t.epsilon*t.cfg.EpsilonDecay)
			}
		}
		out <- t.snapshot(StatusDone, t.cfg.Episodes, 0, 0, 0)
	}()
	return out
}

// runEpisode reports false when the episode was cancelled.
func (t *Trainer) runEpisode(ctx context.Context, episode int, out chan<- Snapshot) bool {
	t.env.reset()
	if t.cfg.RandomStart {
		t.env.randomStart(t.rng)
	}
	t.resetOwnInfluence()

	state := State{Position: t.env.curr}
	visits := make(map[grid.Position]int, t.env.bounds.Cells())
	visits[state.Position]++
	steps := 0
	episodeReward := 0.0
	var lastReward float64
	result := outcomeNone
	for result == outcomeNone {
		select {
		case <-ctx.Done():
			out <- t.snapshot(StatusCancelled, episode, steps, episodeReward, lastReward)
			return false
		default:
		}
		action := t.learner.Action(state)
		reward, res := t.env.step(action)
		result = res
		next := State{Position: t.env.curr, Terminal: result == outcomeGoal || result == outcomeCaught}
		t.learner.Update(state, action, next, reward)
		t.markOwnInfluence(next.Position)

		episodeReward += reward
		lastReward = reward
		steps++
		t.step++
		visits[next.Position]++
		state = next
		out <- t.snapshot(StatusRunning, episode, steps, episodeReward, reward)
		if t.cfg.StepDelayMs > 0 {
			select {
			case <-ctx.Done():
				out <- t.snapshot(StatusCancelled, episode, steps, episodeReward, reward)
				return false
			case <-time.After(time.Duration(t.cfg.StepDelayMs) * time.Millisecond):
			}
		}
	}
	switch result {
	case outcomeGoal:
		t.successCount++
	case outcomeCaught:
		t.caughtCount++
	}
	t.totalReward += episodeReward
	t.totalSteps += steps
	t.episodesCompleted++
	t.logVisitHeatmap(episode, visits)
	out <- t.snapshot(StatusEpisodeComplete, episode, steps, episodeReward, lastReward)
	return true
}

func (t *Trainer) resetOwnInfluence() {
	for _, p := range t.fields.Own.Keys() {
		t.fields.Own.Set(p, 0)
	}
}

func (t *Trainer) markOwnInfluence(p grid.Position) {
	t.fields.Own.Set(p, 1)
	t.fields.Own.Diffuse(1)
}

func (t *Trainer) logVisitHeatmap(episode int, visits map[grid.Position]int) {
	if !glog.V(2) {
		return
	}
	var b strings.Builder
	for y := t.env.bounds.Height - 1; y >= 0; y-- {
		for x := 0; x < t.env.bounds.Width; x++ {
			p := grid.Position{X: x, Y: y}
			switch count := visits[p]; {
			case t.env.blocks.IsBlocked(p):
				b.WriteString("  # ")
			case count == 0:
				b.WriteString("  . ")
			default:
				fmt.Fprintf(&b, "%3d ", count)
			}
		}
		b.WriteByte('\n')
	}
	glog.Infof("visit heatmap (episode %d)\n%s", episode, b.String())
}

func (t *Trainer) valueMap() [][]float64 {
	values := make([][]float64, t.env.bounds.Height)
	for y := range values {
		values[y] = make([]float64, t.env.bounds.Width)
		for x := range values[y] {
			p := grid.Position{X: x, Y: y}
			if t.env.blocks.IsBlocked(p) {
				values[y][x] = math.NaN()
				continue
			}
			values[y][x] = t.learner.Value(State{Position: p, Terminal: p == t.env.goal})
		}
	}
	return values
}

func (t *Trainer) snapshot(status string, episode, episodeSteps int, episodeReward, reward float64) Snapshot {
	s := Snapshot{
		Step:              t.step,
		Episode:           episode,
		EpisodeSteps:      episodeSteps,
		EpisodeReward:     episodeReward,
		Reward:            reward,
		Position:          t.env.curr,
		Goal:              t.env.goal,
		Epsilon:           t.epsilon,
		SuccessCount:      t.successCount,
		CaughtCount:       t.caughtCount,
		EpisodesCompleted: t.episodesCompleted,
		TotalReward:       t.totalReward,
		TotalSteps:        t.totalSteps,
		Config:            t.cfg,
		Status:            status,
	}
	if status != StatusRunning {
		s.ValueMap = t.valueMap()
		s.Weights = t.learner.Weights()
	}
	return s
}
