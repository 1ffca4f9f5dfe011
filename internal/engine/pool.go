package engine

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"influence-rl-go/internal/metrics"
)

// Sharing decides whether agents holding the same role share one learner.
type Sharing int

const (
	// SharePerRole pools the experience of every agent holding the role.
	SharePerRole Sharing = iota
	// PerAgent gives each agent its own learner, seeded from the role's weights.
	PerAgent
)

func (s Sharing) String() string {
	switch s {
	case SharePerRole:
		return "shared"
	case PerAgent:
		return "per-agent"
	}
	return fmt.Sprintf("Sharing(%d)", int(s))
}

// RoleConfig describes how learners for one role are built.
type RoleConfig struct {
	Extractor FeatureExtractor
	Model     *StateModel
	Sharing   Sharing
	Learner   LearnerConfig
}

type agentBinding struct {
	role    string
	learner *ApproximateQLearner
}

// LearnerPool hands out learners by role and agent.
type LearnerPool struct {
	seed int64
	rec  *metrics.Recorder

	mu     sync.Mutex
	roles  map[string]RoleConfig
	shared map[string]*ApproximateQLearner
	agents map[string]agentBinding
	made   int64
}

func NewLearnerPool(seed int64, rec *metrics.Recorder) *LearnerPool {
	if seed == 0 {
		seed = 1
	}
	return &LearnerPool{
		seed:   seed,
		rec:    rec,
		roles:  make(map[string]RoleConfig),
		shared: make(map[string]*ApproximateQLearner),
		agents: make(map[string]agentBinding),
	}
}

// Register adds or replaces a role. The extractor must declare a vocabulary.
func (p *LearnerPool) Register(role string, cfg RoleConfig) error {
	if cfg.Extractor == nil || len(cfg.Extractor.Vocabulary()) == 0 {
		return fmt.Errorf("role %q: %w", role, ErrNoFeatureVocabulary)
	}
	if cfg.Model == nil {
		return fmt.Errorf("role %q: state model is required", role)
	}
	cfg.Learner.Role = role
	if cfg.Learner.Recorder == nil {
		cfg.Learner.Recorder = p.rec
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.roles[role] = cfg
	delete(p.shared, role)
	for agent, b := range p.agents {
		if b.role == role {
			delete(p.agents, agent)
		}
	}
	return nil
}

// Learner returns the learner agentID should use while holding role. An agent
// that changes role is moved to the new role's learner.
func (p *LearnerPool) Learner(role, agentID string) (*ApproximateQLearner, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cfg, ok := p.roles[role]
	if !ok {
		return nil, fmt.Errorf("role %q: %w", role, ErrNoFeatureVocabulary)
	}
	if b, ok := p.agents[agentID]; ok && b.role == role {
		return b.learner, nil
	}

	var learner *ApproximateQLearner
	switch cfg.Sharing {
	case PerAgent:
		l, err := p.build(cfg)
		if err != nil {
			return nil, err
		}
		learner = l
	default:
		learner = p.shared[role]
		if learner == nil {
			l, err := p.build(cfg)
			if err != nil {
				return nil, err
			}
			p.shared[role] = l
			learner = l
		}
	}
	p.agents[agentID] = agentBinding{role: role, learner: learner}
	return learner, nil
}

// Release forgets an agent, e.g. after it was killed. Shared learners keep
// their weights.
func (p *LearnerPool) Release(agentID string) {
	p.mu.Lock()
	delete(p.agents, agentID)
	p.mu.Unlock()
}

// Snapshots exports every live learner, sorted by role then agent. A shared
// learner appears once with no agent.
func (p *LearnerPool) Snapshots() []WeightSnapshot {
	p.mu.Lock()
	var out []WeightSnapshot
	for _, l := range p.shared {
		out = append(out, l.Snapshot(""))
	}
	for agent, b := range p.agents {
		if p.roles[b.role].Sharing == PerAgent {
			out = append(out, b.learner.Snapshot(agent))
		}
	}
	p.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Role != out[j].Role {
			return out[i].Role < out[j].Role
		}
		return out[i].Agent < out[j].Agent
	})
	return out
}

func (p *LearnerPool) build(cfg RoleConfig) (*ApproximateQLearner, error) {
	p.made++
	lc := cfg.Learner
	if lc.Rand == nil || cfg.Sharing == PerAgent {
		lc.Rand = rand.New(rand.NewSource(p.seed + p.made))
	}
	return NewApproximateQLearner(cfg.Extractor, cfg.Model, lc)
}
