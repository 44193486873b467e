package solve

import (
	"context"
	"fmt"
	"math"

	"github.com/lauramurgatroyd/cilgo/fn"
	"github.com/lauramurgatroyd/cilgo/vec"
)

// FISTA minimises f(x) + g(x) with f smooth and g proximable by the
// accelerated proximal-gradient scheme
//
//	x_{k+1} = prox_g( y_k - step·∇f(y_k), step )
//	t_{k+1} = (1 + sqrt(1 + 4·t_k²)) / 2
//	y_{k+1} = x_{k+1} + ((t_k-1)/t_{k+1})·(x_{k+1} - x_k).
//
// The step must satisfy step ≤ 1/L for the Lipschitz constant L of ∇f for
// the convergence guarantee to hold; the engine does not verify this, it is
// the caller's responsibility.
type FISTA struct {
	f    fn.Differentiable
	g    fn.Function
	x0   *vec.Vector
	step float64
	set  Settings
}

// NewFISTA builds the solver. g must be proximable; the step must be
// positive and finite.
func NewFISTA(f fn.Differentiable, g fn.Function, x0 *vec.Vector, step float64, set Settings) (*FISTA, error) {
	if err := checkStep(step); err != nil {
		return nil, err
	}
	if _, ok := g.(fn.Proximable); !ok {
		return nil, fmt.Errorf("solve: fista regulariser %T: %w", g, fn.ErrNotProximable)
	}
	return &FISTA{f: f, g: g, x0: x0.Clone(), step: step, set: set}, nil
}

func (fi *FISTA) objective(x *vec.Vector) (float64, error) {
	fv, err := fi.f.Evaluate(x)
	if err != nil {
		return 0, err
	}
	gv, err := fi.g.Evaluate(x)
	if err != nil {
		return 0, err
	}
	return fv + gv, nil
}

// Run iterates until convergence, the iteration cap, failure or
// cancellation.
func (fi *FISTA) Run(ctx context.Context) (*Result, error) {
	r := newRun(fi.set, fi.x0)
	x := r.res.X
	y := x.Clone()
	prev := x.Clone()
	tk := 1.0

	for k := 0; k < r.set.MaxIterations; k++ {
		if res, err := r.cancelled(ctx, k); res != nil {
			return res, err
		}

		if r.due(k) {
			val, err := fi.objective(x)
			if err != nil {
				return r.fail(k, x, err)
			}
			if err := r.sample(k, val); err != nil {
				return r.fail(k, x, err)
			}
		}

		grad, err := fi.f.Gradient(y)
		if err != nil {
			return r.fail(k, x, err)
		}

		// Forward step at the extrapolated point, then the proximal step.
		if err := y.AddScaled(y, -fi.step, grad); err != nil {
			return r.fail(k, x, err)
		}
		next, err := fn.ProxOf(fi.g, y, fi.step)
		if err != nil {
			return r.fail(k, x, err)
		}
		if err := finite(next); err != nil {
			return r.fail(k, x, err)
		}

		tNext := (1 + math.Sqrt(1+4*tk*tk)) / 2
		// y = next + ((tk-1)/tNext)·(next - x)
		if err := y.Sub(next, x); err != nil {
			return r.fail(k, x, err)
		}
		if err := y.AddScaled(next, (tk-1)/tNext, y); err != nil {
			return r.fail(k, x, err)
		}
		tk = tNext

		if err := prev.Copy(x); err != nil {
			return r.fail(k, x, err)
		}
		if err := x.Copy(next); err != nil {
			return r.fail(k, x, err)
		}

		if r.set.Tolerance > 0 {
			change, err := relChange(x, prev)
			if err != nil {
				return r.fail(k, x, err)
			}
			if change <= r.set.Tolerance {
				val, err := fi.objective(x)
				if err != nil {
					return r.fail(k+1, x, err)
				}
				if err := r.sample(k+1, val); err != nil {
					return r.fail(k+1, x, err)
				}
				return r.finish(Converged, k+1), nil
			}
		}
	}

	val, err := fi.objective(x)
	if err != nil {
		return r.fail(r.set.MaxIterations, x, err)
	}
	if err := r.sample(r.set.MaxIterations, val); err != nil {
		return r.fail(r.set.MaxIterations, x, err)
	}
	return r.finish(MaxIterationReached, r.set.MaxIterations), nil
}
