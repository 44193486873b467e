package fn

import (
	"fmt"
	"math"

	"github.com/lauramurgatroyd/cilgo/vec"
)

// conjTol absorbs rounding when deciding whether a dual point lies inside
// the unit ball of a conjugate indicator.
const conjTol = 1e-9

// L2NormSquared is
//
//	f(x) = ‖x - b‖²
//
// with b taken as zero when constructed with NewL2NormSquared. It is both
// smooth and proximable.
type L2NormSquared struct {
	b *vec.Vector
}

// NewL2NormSquared returns f(x) = ‖x‖².
func NewL2NormSquared() *L2NormSquared { return &L2NormSquared{} }

// NewL2NormSquaredShifted returns f(x) = ‖x - b‖².
func NewL2NormSquaredShifted(b *vec.Vector) *L2NormSquared {
	return &L2NormSquared{b: b.Clone()}
}

func (f *L2NormSquared) shifted(x *vec.Vector) (*vec.Vector, error) {
	if f.b == nil {
		return x.Clone(), nil
	}
	r := x.Zeros()
	if err := r.Sub(x, f.b); err != nil {
		return nil, err
	}
	return r, nil
}

func (f *L2NormSquared) Evaluate(x *vec.Vector) (float64, error) {
	r, err := f.shifted(x)
	if err != nil {
		return 0, err
	}
	n := vec.Norm(r)
	return n * n, nil
}

func (f *L2NormSquared) Gradient(x *vec.Vector) (*vec.Vector, error) {
	r, err := f.shifted(x)
	if err != nil {
		return nil, err
	}
	if err := r.Scale(2, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (f *L2NormSquared) Prox(x *vec.Vector, step float64) (*vec.Vector, error) {
	if err := checkStep(step); err != nil {
		return nil, err
	}
	// argmin ‖v-b‖² + 1/(2s)‖v-x‖²  =  (x + 2s·b) / (1 + 2s)
	out := x.Clone()
	if f.b != nil {
		if err := out.AddScaled(x, 2*step, f.b); err != nil {
			return nil, err
		}
	}
	if err := out.Scale(1/(1+2*step), out); err != nil {
		return nil, err
	}
	return out, nil
}

// ConjugateValue returns f*(y) = ‖y‖²/4 + <b, y>.
func (f *L2NormSquared) ConjugateValue(y *vec.Vector) (float64, error) {
	n := vec.Norm(y)
	val := n * n / 4
	if f.b != nil {
		d, err := vec.Dot(f.b, y)
		if err != nil {
			return 0, err
		}
		val += d
	}
	return val, nil
}

// L1Norm is f(x) = Σ|xᵢ|. Proximable (soft thresholding) but not smooth.
type L1Norm struct{}

// NewL1Norm returns the L1 norm term.
func NewL1Norm() *L1Norm { return &L1Norm{} }

func (*L1Norm) Evaluate(x *vec.Vector) (float64, error) {
	var sum float64
	for _, v := range x.Data() {
		sum += math.Abs(v)
	}
	return sum, nil
}

func (*L1Norm) Prox(x *vec.Vector, step float64) (*vec.Vector, error) {
	if err := checkStep(step); err != nil {
		return nil, err
	}
	out := x.Clone()
	d := out.Data()
	for i, v := range d {
		d[i] = softThreshold(v, step)
	}
	return out, nil
}

// ConjugateValue is the indicator of the unit max-norm ball.
func (*L1Norm) ConjugateValue(y *vec.Vector) (float64, error) {
	if vec.NormInf(y) > 1+conjTol {
		return math.Inf(1), nil
	}
	return 0, nil
}

func softThreshold(v, threshold float64) float64 {
	switch {
	case v > threshold:
		return v - threshold
	case v < -threshold:
		return v + threshold
	}
	return 0
}

// MixedL21 is the isotropic group norm over a stacked vector: the input is
// read as Groups consecutive segments of equal length (the layout a 2-D
// FiniteDifference or a Block operator produces), and
//
//	f(x) = Σⱼ sqrt( Σ_d x[d·L+j]² ).
//
// Its prox is groupwise soft thresholding, which is what makes isotropic
// total variation proximable in the dual.
type MixedL21 struct {
	groups int
}

// NewMixedL21 returns the mixed L2,1 norm reading its argument as the given
// number of stacked groups.
func NewMixedL21(groups int) (*MixedL21, error) {
	if groups < 1 {
		return nil, fmt.Errorf("fn: %d groups: %w", groups, vec.ErrShapeMismatch)
	}
	return &MixedL21{groups: groups}, nil
}

func (f *MixedL21) segment(x *vec.Vector) (int, error) {
	n := x.Len()
	if n%f.groups != 0 {
		return 0, fmt.Errorf("fn: %d elements not divisible into %d groups: %w",
			n, f.groups, vec.ErrShapeMismatch)
	}
	return n / f.groups, nil
}

func (f *MixedL21) Evaluate(x *vec.Vector) (float64, error) {
	l, err := f.segment(x)
	if err != nil {
		return 0, err
	}
	d := x.Data()
	var sum float64
	for j := 0; j < l; j++ {
		var sq float64
		for g := 0; g < f.groups; g++ {
			v := d[g*l+j]
			sq += v * v
		}
		sum += math.Sqrt(sq)
	}
	return sum, nil
}

func (f *MixedL21) Prox(x *vec.Vector, step float64) (*vec.Vector, error) {
	if err := checkStep(step); err != nil {
		return nil, err
	}
	l, err := f.segment(x)
	if err != nil {
		return nil, err
	}
	out := x.Clone()
	d := out.Data()
	for j := 0; j < l; j++ {
		var sq float64
		for g := 0; g < f.groups; g++ {
			v := d[g*l+j]
			sq += v * v
		}
		norm := math.Sqrt(sq)
		factor := 0.0
		if norm > step {
			factor = 1 - step/norm
		}
		for g := 0; g < f.groups; g++ {
			d[g*l+j] *= factor
		}
	}
	return out, nil
}

// ConjugateValue is the indicator of the dual ball: every group norm ≤ 1.
func (f *MixedL21) ConjugateValue(y *vec.Vector) (float64, error) {
	l, err := f.segment(y)
	if err != nil {
		return 0, err
	}
	d := y.Data()
	for j := 0; j < l; j++ {
		var sq float64
		for g := 0; g < f.groups; g++ {
			v := d[g*l+j]
			sq += v * v
		}
		if math.Sqrt(sq) > 1+conjTol {
			return math.Inf(1), nil
		}
	}
	return 0, nil
}
