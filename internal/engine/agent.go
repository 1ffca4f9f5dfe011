package engine

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/golang/glog"

	"influence-rl-go/internal/grid"
	"influence-rl-go/internal/metrics"
)

// ErrNoFeatureVocabulary is returned when a learner is requested for a role or
// extractor that has no feature vocabulary.
var ErrNoFeatureVocabulary = errors.New("no feature vocabulary established")

const (
	DefaultEpsilon = 0.05
	DefaultAlpha   = 0.2
	DefaultGamma   = 0.8
)

// LearnerConfig configures an ApproximateQLearner. Unset parameters fall back
// to DefaultEpsilon, DefaultAlpha and DefaultGamma.
type LearnerConfig struct {
	Role    string
	Epsilon Param
	Alpha   Param
	Gamma   Param
	// Weights seeds the weight vector, e.g. from a previous run.
	Weights  map[string]float64
	Rand     *rand.Rand
	Recorder *metrics.Recorder
}

// ApproximateQLearner learns Q(s,a) as a linear function of features:
// Q(s,a) = sum over f of weight[f] * feature[f](s,a).
//
// All methods are serialised by an internal mutex, so one learner can be
// shared by several agents without losing updates.
type ApproximateQLearner struct {
	role      string
	extractor FeatureExtractor
	model     *StateModel
	epsilon   Param
	alpha     Param
	gamma     Param
	rec       *metrics.Recorder

	mu      sync.Mutex
	rng     *rand.Rand
	weights *Weights
	updates int
}

func NewApproximateQLearner(extractor FeatureExtractor, model *StateModel, cfg LearnerConfig) (*ApproximateQLearner, error) {
	if extractor == nil || len(extractor.Vocabulary()) == 0 {
		return nil, fmt.Errorf("learner %q: %w", cfg.Role, ErrNoFeatureVocabulary)
	}
	if model == nil {
		return nil, fmt.Errorf("learner %q: state model is required", cfg.Role)
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &ApproximateQLearner{
		role:      cfg.Role,
		extractor: extractor,
		model:     model,
		epsilon:   cfg.Epsilon.or(DefaultEpsilon),
		alpha:     cfg.Alpha.or(DefaultAlpha),
		gamma:     cfg.Gamma.or(DefaultGamma),
		rec:       cfg.Recorder,
		rng:       rng,
		weights:   NewWeights(cfg.Weights),
	}, nil
}

func (l *ApproximateQLearner) Role() string                { return l.role }
func (l *ApproximateQLearner) Epsilon() float64            { return l.epsilon.Value() }
func (l *ApproximateQLearner) Alpha() float64              { return l.alpha.Value() }
func (l *ApproximateQLearner) Gamma() float64              { return l.gamma.Value() }
func (l *ApproximateQLearner) Model() *StateModel          { return l.model }
func (l *ApproximateQLearner) Extractor() FeatureExtractor { return l.extractor }

// Weights returns a copy of the current weight vector.
func (l *ApproximateQLearner) Weights() map[string]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.weights.Map()
}

// Updates is the number of updates applied so far.
func (l *ApproximateQLearner) Updates() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.updates
}

// QValue is the dot product of the weights and the features of (s, a).
func (l *ApproximateQLearner) QValue(s State, a grid.Action) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.qvalue(s, a)
}

// Value is the best Q-value over the legal actions of s; 0 for a terminal
// state or when nothing is legal.
func (l *ApproximateQLearner) Value(s State) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value(s)
}

// Action picks a uniformly random legal action with probability epsilon and
// the greedy action otherwise. It returns grid.NoAction when nothing is legal.
func (l *ApproximateQLearner) Action(s State) grid.Action {
	l.mu.Lock()
	defer l.mu.Unlock()
	legal := l.model.LegalActions(s.Position)
	if len(legal) == 0 {
		l.rec.ObserveAction(l.role, "none")
		return grid.NoAction
	}
	if l.rng.Float64() < l.epsilon.Value() {
		l.rec.ObserveAction(l.role, "explore")
		return legal[l.rng.Intn(len(legal))]
	}
	l.rec.ObserveAction(l.role, "exploit")
	return l.greedy(s, legal)
}

// Greedy returns the best legal action without exploring.
func (l *ApproximateQLearner) Greedy(s State) grid.Action {
	l.mu.Lock()
	defer l.mu.Unlock()
	legal := l.model.LegalActions(s.Position)
	if len(legal) == 0 {
		return grid.NoAction
	}
	return l.greedy(s, legal)
}

// Update applies one temporal-difference step for the transition
// (s, a) -> next with the given reward and returns the correction used:
//
//	delta = reward + gamma*V(next) - Q(s,a)
//	w[f] += alpha * delta * feature[f](s,a)
//
// alpha and gamma are read at call time. An update that would produce a
// non-finite weight is skipped.
func (l *ApproximateQLearner) Update(s State, a grid.Action, next State, reward float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	alpha := l.alpha.Value()
	gamma := l.gamma.Value()
	features := l.extractor.Features(s, a)
	delta := reward + gamma*l.value(next) - l.weights.Dot(features)
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		l.reject("delta", delta)
		return delta
	}
	for name, value := range features {
		if w := l.weights.Get(name) + alpha*delta*value; math.IsNaN(w) || math.IsInf(w, 0) {
			l.reject(name, w)
			return delta
		}
	}
	for name, value := range features {
		l.weights.add(name, alpha*delta*value)
	}
	l.updates++
	l.rec.ObserveUpdate(l.role, delta)
	return delta
}

// Snapshot exports the current weights.
func (l *ApproximateQLearner) Snapshot(agent string) WeightSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return newWeightSnapshot(l.role, agent, l.updates, l.weights.Map())
}

func (l *ApproximateQLearner) reject(what string, value float64) {
	l.rec.RejectUpdate(l.role)
	glog.Warningf("learner %q: skipping update, %s would be %v", l.role, what, value)
}

func (l *ApproximateQLearner) qvalue(s State, a grid.Action) float64 {
	return l.weights.Dot(l.extractor.Features(s, a))
}

func (l *ApproximateQLearner) value(s State) float64 {
	if s.Terminal {
		return 0
	}
	legal := l.model.LegalActions(s.Position)
	if len(legal) == 0 {
		return 0
	}
	best := math.Inf(-1)
	for _, a := range legal {
		best = math.Max(best, l.qvalue(s, a))
	}
	return best
}

// greedy keeps a running count of actions tied for the best score and
// replaces the pick with probability 1/count, which selects uniformly among
// all maximisers.
func (l *ApproximateQLearner) greedy(s State, legal []grid.Action) grid.Action {
	bestAction := legal[0]
	bestScore := math.Inf(-1)
	countBest := 0
	for _, a := range legal {
		score := l.qvalue(s, a)
		if score > bestScore {
			bestScore = score
			bestAction = a
			countBest = 1
		} else if score == bestScore {
			countBest++
			if l.rng.Intn(countBest) == 0 {
				bestAction = a
			}
		}
	}
	return bestAction
}
