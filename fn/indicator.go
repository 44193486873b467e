package fn

import (
	"math"

	"github.com/lauramurgatroyd/cilgo/vec"
)

// IndicatorBox is the indicator of the box [Lower, Upper]^n: zero inside,
// +Inf outside. Its prox clips into the box regardless of step, so FISTA
// iterates stay exactly feasible from the first proximal step onwards.
// Either bound may be infinite.
type IndicatorBox struct {
	lower, upper float64
}

// NewIndicatorBox returns the box indicator. Use math.Inf for one-sided
// constraints, e.g. NewIndicatorBox(0, math.Inf(1)) for non-negativity.
func NewIndicatorBox(lower, upper float64) *IndicatorBox {
	return &IndicatorBox{lower: lower, upper: upper}
}

func (f *IndicatorBox) Evaluate(x *vec.Vector) (float64, error) {
	for _, v := range x.Data() {
		if v < f.lower || v > f.upper {
			return math.Inf(1), nil
		}
	}
	return 0, nil
}

func (f *IndicatorBox) Prox(x *vec.Vector, step float64) (*vec.Vector, error) {
	if err := checkStep(step); err != nil {
		return nil, err
	}
	out := x.Clone()
	out.Clip(f.lower, f.upper)
	return out, nil
}

// ConjugateValue is the support function of the box,
// Σᵢ max(lower·yᵢ, upper·yᵢ), which is +Inf whenever an unbounded side is
// pushed against.
func (f *IndicatorBox) ConjugateValue(y *vec.Vector) (float64, error) {
	var sum float64
	for _, v := range y.Data() {
		term := math.Max(f.lower*v, f.upper*v)
		if math.IsNaN(term) {
			// 0 * Inf from a zero coefficient against an unbounded side
			// contributes nothing.
			term = 0
		}
		sum += term
	}
	return sum, nil
}

// Zero is the identically zero function. Smooth, proximable (the prox is
// the identity) and conjugable (the indicator of the origin).
type Zero struct{}

// NewZero returns the zero function.
func NewZero() *Zero { return &Zero{} }

func (*Zero) Evaluate(x *vec.Vector) (float64, error) { return 0, nil }

func (*Zero) Gradient(x *vec.Vector) (*vec.Vector, error) {
	return x.Zeros(), nil
}

func (*Zero) Prox(x *vec.Vector, step float64) (*vec.Vector, error) {
	if err := checkStep(step); err != nil {
		return nil, err
	}
	return x.Clone(), nil
}

func (*Zero) ConjugateValue(y *vec.Vector) (float64, error) {
	if vec.NormInf(y) > conjTol {
		return math.Inf(1), nil
	}
	return 0, nil
}
