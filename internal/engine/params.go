package engine

import "math"

// Param is a learner hyperparameter: either a constant or a function evaluated
// on every access, e.g. an exploration rate decaying with match time.
type Param struct {
	value float64
	fn    func() float64
	set   bool
}

// Constant returns a fixed parameter.
func Constant(v float64) Param {
	return Param{value: v, set: true}
}

// TimeVarying returns a parameter re-evaluated by calling fn on each access.
func TimeVarying(fn func() float64) Param {
	if fn == nil {
		return Param{}
	}
	return Param{fn: fn, set: true}
}

// ExponentialDecay decays from initial toward floor as clock advances:
// max(floor, initial*exp(-rate*clock())). A nil clock stays at 0.
func ExponentialDecay(initial, floor, rate float64, clock func() float64) Param {
	if clock == nil {
		clock = func() float64 { return 0 }
	}
	return TimeVarying(func() float64 {
		return math.Max(floor, initial*math.Exp(-rate*clock()))
	})
}

// Value evaluates the parameter now.
func (p Param) Value() float64 {
	if p.fn != nil {
		return p.fn()
	}
	return p.value
}

// IsSet reports whether p was built with Constant or TimeVarying.
func (p Param) IsSet() bool {
	return p.set
}

// IsTimeVarying reports whether p is re-evaluated on each access.
func (p Param) IsTimeVarying() bool {
	return p.fn != nil
}

func (p Param) or(def float64) Param {
	if p.set {
		return p
	}
	return Constant(def)
}
