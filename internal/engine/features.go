package engine

import (
	"math"
	"sync"

	"influence-rl-go/internal/grid"
	"influence-rl-go/internal/influence"
	"influence-rl-go/internal/visibility"
)

// FeatureExtractor maps a (state, action) pair to named features. The names it
// returns must come from Vocabulary, which is fixed for the extractor's
// lifetime.
type FeatureExtractor interface {
	Features(s State, a grid.Action) FeatureVector
	Vocabulary() []string
}

const (
	FeatureBias           = "bias"
	FeatureOwnInfluence   = "own-influence"
	FeatureEnemyInfluence = "enemy-influence"
	FeatureGoalInfluence  = "goal-influence"
	FeatureVisibility     = "visibility"
	FeatureThreatDistance = "threat-distance"

	// target distances, one per role
	FeatureFlagDistance = "flag-distance"
	FeatureHomeDistance = "home-distance"
)

// Threat is an observed enemy position. Stale observations are ignored.
type Threat struct {
	Position grid.Position
	Stale    bool
}

// FieldSet groups the shared maps features are sampled from. Any member may be
// nil and then reads 0.
type FieldSet struct {
	Own        *influence.Field
	Enemy      *influence.Field
	Goal       *influence.Field
	Visibility *visibility.Field
}

// MapFeatures samples the influence and visibility maps at the cell an action
// lands on, plus two distances:
//
//   - the target distance, 1 - d/diagonal, so closer targets score higher
//     (0 when no target is set);
//   - the nearest threat distance, d/diagonal, which reads 1 when no threat is
//     tracked.
type MapFeatures struct {
	fields     FieldSet
	bounds     grid.Bounds
	targetName string
	vocabulary []string

	mu        sync.RWMutex
	target    grid.Position
	hasTarget bool
	threats   []grid.Position
}

// NewMapFeatures builds an extractor whose target-distance feature is called
// targetName.
func NewMapFeatures(fields FieldSet, bounds grid.Bounds, targetName string) *MapFeatures {
	return &MapFeatures{
		fields:     fields,
		bounds:     bounds,
		targetName: targetName,
		vocabulary: []string{
			FeatureBias,
			FeatureOwnInfluence,
			FeatureEnemyInfluence,
			FeatureGoalInfluence,
			FeatureVisibility,
			targetName,
			FeatureThreatDistance,
		},
	}
}

// NewAttackerFeatures is the extractor for agents heading to the enemy flag.
func NewAttackerFeatures(fields FieldSet, bounds grid.Bounds) *MapFeatures {
	return NewMapFeatures(fields, bounds, FeatureFlagDistance)
}

// NewReturnerFeatures is the extractor for agents carrying the flag home.
func NewReturnerFeatures(fields FieldSet, bounds grid.Bounds) *MapFeatures {
	return NewMapFeatures(fields, bounds, FeatureHomeDistance)
}

func (m *MapFeatures) Vocabulary() []string {
	return append([]string(nil), m.vocabulary...)
}

// SetTarget sets the cell the target-distance feature measures against.
func (m *MapFeatures) SetTarget(p grid.Position) {
	m.mu.Lock()
	m.target, m.hasTarget = p, true
	m.mu.Unlock()
}

func (m *MapFeatures) ClearTarget() {
	m.mu.Lock()
	m.hasTarget = false
	m.mu.Unlock()
}

// TrackThreats replaces the tracked threats with the fresh ones in obs.
func (m *MapFeatures) TrackThreats(obs []Threat) {
	threats := make([]grid.Position, 0, len(obs))
	for _, t := range obs {
		if !t.Stale {
			threats = append(threats, t.Position)
		}
	}
	m.mu.Lock()
	m.threats = threats
	m.mu.Unlock()
}

func (m *MapFeatures) Features(s State, a grid.Action) FeatureVector {
	p := s.Position.Add(a)
	diag := m.bounds.Diagonal()

	m.mu.RLock()
	target, hasTarget := m.target, m.hasTarget
	nearest := math.Inf(1)
	for _, t := range m.threats {
		nearest = math.Min(nearest, p.Dist(t))
	}
	m.mu.RUnlock()

	targetScore := 0.0
	if hasTarget {
		targetScore = closeness(p.Dist(target), diag)
	}
	threatScore := 1.0
	if !math.IsInf(nearest, 1) {
		threatScore = 1 - closeness(nearest, diag)
	}

	return FeatureVector{
		FeatureBias:           1,
		FeatureOwnInfluence:   m.fields.Own.Get(p),
		FeatureEnemyInfluence: m.fields.Enemy.Get(p),
		FeatureGoalInfluence:  m.fields.Goal.Get(p),
		FeatureVisibility:     m.fields.Visibility.Get(p),
		m.targetName:          targetScore,
		FeatureThreatDistance: threatScore,
	}
}

// closeness is 1 - d/max clamped to [0,1].
func closeness(d, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return math.Max(0, math.Min(1, 1-d/max))
}
