package engine

import "sort"

// FeatureVector maps feature names to values for one (state, action) pair.
type FeatureVector map[string]float64

// Get returns the named feature, 0 when absent.
func (f FeatureVector) Get(name string) float64 {
	return f[name]
}

// Names returns the feature names in sorted order.
func (f FeatureVector) Names() []string {
	return sortedKeys(f)
}

// Weights is the learner's weight vector. Unknown names read 0.
type Weights struct {
	m map[string]float64
}

// NewWeights copies seed into a new weight vector.
func NewWeights(seed map[string]float64) *Weights {
	w := &Weights{m: make(map[string]float64, len(seed))}
	for k, v := range seed {
		w.m[k] = v
	}
	return w
}

// Get returns the weight for name, 0 when it has never been set.
func (w *Weights) Get(name string) float64 {
	return w.m[name]
}

func (w *Weights) Len() int {
	return len(w.m)
}

func (w *Weights) Names() []string {
	return sortedKeys(w.m)
}

// Dot is the weighted sum of a feature vector.
func (w *Weights) Dot(features FeatureVector) float64 {
	total := 0.0
	for name, value := range features {
		total += w.m[name] * value
	}
	return total
}

// Map returns a copy of the weights.
func (w *Weights) Map() map[string]float64 {
	out := make(map[string]float64, len(w.m))
	for k, v := range w.m {
		out[k] = v
	}
	return out
}

func (w *Weights) add(name string, delta float64) {
	w.m[name] += delta
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
