package fn

import (
	"fmt"
	"math"

	"github.com/lauramurgatroyd/cilgo/op"
	"github.com/lauramurgatroyd/cilgo/vec"
)

// TVOptions bounds the inner loop that evaluates the total-variation prox.
// Zero values select the defaults.
type TVOptions struct {
	// Tolerance stops the inner loop once the relative change of the primal
	// estimate drops below it. Default 1e-5.
	Tolerance float64
	// MaxIterations caps the inner loop. Default 100. Hitting the cap is not
	// an error; the current estimate is returned.
	MaxIterations int
}

// TotalVariation is the discrete (isotropic) total variation
//
//	f(x) = ‖∇x‖_{2,1}
//
// over a fixed 1-D or 2-D shape. Unlike the simple norms its prox has no
// closed form: Prox runs an inner fast gradient projection loop on the dual
// problem, bounded by TVOptions, and executes synchronously within the
// caller's iteration.
type TotalVariation struct {
	shape vec.Shape
	grad  *op.FiniteDifference
	l21   *MixedL21
	// Lipschitz bound of ∇∇' used for the inner dual step: 4 in 1-D, 8 in 2-D.
	lip  float64
	opts TVOptions
}

// NewTotalVariation returns the TV term over vectors of the given shape.
func NewTotalVariation(opts TVOptions, shape ...int) (*TotalVariation, error) {
	grad, err := op.NewFiniteDifference(shape...)
	if err != nil {
		return nil, err
	}
	domain := grad.DomainShape()
	groups, lip := 1, 4.0
	if len(domain) == 2 {
		groups, lip = 2, 8.0
	}
	l21, err := NewMixedL21(groups)
	if err != nil {
		return nil, err
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = 1e-5
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 100
	}
	return &TotalVariation{shape: domain, grad: grad, l21: l21, lip: lip, opts: opts}, nil
}

// Gradient returns the underlying finite-difference operator, for callers
// that want to express TV through PDHG instead of the inner prox loop.
func (f *TotalVariation) Gradient() *op.FiniteDifference { return f.grad }

func (f *TotalVariation) Evaluate(x *vec.Vector) (float64, error) {
	g, err := f.grad.Apply(x)
	if err != nil {
		return 0, err
	}
	return f.l21.Evaluate(g)
}

// Prox solves argmin_v [ step·‖∇v‖_{2,1} + ½‖v-x‖² ] by fast gradient
// projection on the dual variable p:
//
//	v(p) = x - step·∇'p,   p ← proj( q + 1/(lip·step) ∇ v(q) ),
//
// with FISTA momentum on p and groupwise projection onto the unit ball.
func (f *TotalVariation) Prox(x *vec.Vector, step float64) (*vec.Vector, error) {
	if err := checkStep(step); err != nil {
		return nil, err
	}
	if !x.Shape().Equal(f.shape) {
		return nil, fmt.Errorf("fn: vector %v against tv domain %v: %w",
			x.Shape(), f.shape, vec.ErrShapeMismatch)
	}

	p := vec.New(f.grad.RangeShape()...)
	q := p.Clone()
	pPrev := p.Clone()
	v := x.Clone()
	vPrev := x.Clone()
	tk := 1.0

	for k := 0; k < f.opts.MaxIterations; k++ {
		// v = x - step·∇'q
		div, err := f.grad.Adjoint(q)
		if err != nil {
			return nil, err
		}
		if err := v.AddScaled(x, -step, div); err != nil {
			return nil, err
		}

		// p = proj(q + 1/(lip·step)·∇v)
		gv, err := f.grad.Apply(v)
		if err != nil {
			return nil, err
		}
		if err := p.AddScaled(q, 1/(f.lip*step), gv); err != nil {
			return nil, err
		}
		f.project(p)

		// Momentum on the dual variable.
		tNext := (1 + math.Sqrt(1+4*tk*tk)) / 2
		if err := q.Sub(p, pPrev); err != nil {
			return nil, err
		}
		if err := q.AddScaled(p, (tk-1)/tNext, q); err != nil {
			return nil, err
		}
		tk = tNext
		if err := pPrev.Copy(p); err != nil {
			return nil, err
		}

		diff := vPrev.Zeros()
		if err := diff.Sub(v, vPrev); err != nil {
			return nil, err
		}
		if vec.Norm(diff) <= f.opts.Tolerance*math.Max(vec.Norm(v), 1) {
			break
		}
		if err := vPrev.Copy(v); err != nil {
			return nil, err
		}
	}

	// Final primal estimate from the last accepted dual point.
	div, err := f.grad.Adjoint(p)
	if err != nil {
		return nil, err
	}
	if err := v.AddScaled(x, -step, div); err != nil {
		return nil, err
	}
	return v, nil
}

// project clips every dual group into the unit ball in place.
func (f *TotalVariation) project(p *vec.Vector) {
	d := p.Data()
	groups := 1
	if len(f.shape) == 2 {
		groups = 2
	}
	l := len(d) / groups
	for j := 0; j < l; j++ {
		var sq float64
		for g := 0; g < groups; g++ {
			v := d[g*l+j]
			sq += v * v
		}
		if norm := math.Sqrt(sq); norm > 1 {
			for g := 0; g < groups; g++ {
				d[g*l+j] /= norm
			}
		}
	}
}
