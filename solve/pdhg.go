package solve

import (
	"context"
	"errors"
	"fmt"

	"github.com/lauramurgatroyd/cilgo/fn"
	"github.com/lauramurgatroyd/cilgo/op"
	"github.com/lauramurgatroyd/cilgo/vec"
)

// PDHGSteps configures the primal-dual step sizes. When Sigma and Tau are
// both zero, ‖K‖ is estimated by power iteration at construction and
// σ = τ = 1/‖K‖ is chosen, which satisfies σ·τ·‖K‖² ≤ 1. Caller-supplied
// steps are checked for positivity only; keeping the product condition is
// the caller's responsibility. Theta defaults to 1.
type PDHGSteps struct {
	Sigma, Tau float64
	Theta      float64
	// NormEstimate, when positive, is used as ‖K‖ instead of running power
	// iteration.
	NormEstimate float64
}

// PDHG is the primal-dual hybrid gradient method for
//
//	min_x f(K x) + g(x)
//
// with K linear and f, g proximable:
//
//	p_{k+1}  = prox_{σf*}( p_k + σ·K x̄_k )
//	x_{k+1}  = prox_{τg}( x_k - τ·K' p_{k+1} )
//	x̄_{k+1} = x_{k+1} + θ·(x_{k+1} - x_k).
//
// The dual prox comes from f's prox through the Moreau identity. When both
// f and g expose their convex conjugates the primal-dual gap is sampled
// alongside the primal objective; the gap tends to zero at the optimum and
// serves as the convergence diagnostic.
type PDHG struct {
	f, g  fn.Function
	k     op.Linear
	x0    *vec.Vector
	sigma float64
	tau   float64
	theta float64
	set   Settings
}

// NewPDHG builds the solver for min f(Kx) + g(x) starting from x0.
func NewPDHG(f, g fn.Function, k op.Linear, x0 *vec.Vector, steps PDHGSteps, set Settings) (*PDHG, error) {
	if !k.DomainShape().Equal(x0.Shape()) {
		return nil, fmt.Errorf("solve: pdhg start %v against operator domain %v: %w",
			x0.Shape(), k.DomainShape(), vec.ErrShapeMismatch)
	}
	if _, ok := f.(fn.Proximable); !ok {
		return nil, fmt.Errorf("solve: pdhg data term %T: %w", f, fn.ErrNotProximable)
	}
	if _, ok := g.(fn.Proximable); !ok {
		return nil, fmt.Errorf("solve: pdhg regulariser %T: %w", g, fn.ErrNotProximable)
	}

	sigma, tau := steps.Sigma, steps.Tau
	switch {
	case sigma == 0 && tau == 0:
		norm := steps.NormEstimate
		if norm <= 0 {
			var err error
			norm, err = op.PowerIteration(k, op.PowerIterationOptions{})
			if err != nil {
				return nil, err
			}
		}
		if norm <= 0 {
			norm = 1
		}
		sigma, tau = 1/norm, 1/norm
	default:
		if err := checkStep(sigma); err != nil {
			return nil, err
		}
		if err := checkStep(tau); err != nil {
			return nil, err
		}
	}
	theta := steps.Theta
	if theta == 0 {
		theta = 1
	}

	return &PDHG{f: f, g: g, k: k, x0: x0.Clone(),
		sigma: sigma, tau: tau, theta: theta, set: set}, nil
}

// Sigma returns the dual step in effect.
func (pd *PDHG) Sigma() float64 { return pd.sigma }

// Tau returns the primal step in effect.
func (pd *PDHG) Tau() float64 { return pd.tau }

// primal evaluates f(Kx) + g(x).
func (pd *PDHG) primal(x *vec.Vector) (float64, error) {
	kx, err := pd.k.Apply(x)
	if err != nil {
		return 0, err
	}
	fv, err := pd.f.Evaluate(kx)
	if err != nil {
		return 0, err
	}
	gv, err := pd.g.Evaluate(x)
	if err != nil {
		return 0, err
	}
	return fv + gv, nil
}

// dual evaluates -f*(p) - g*(-K'p) when both conjugates are available. The
// second return is false when either term lacks the capability, including
// composites that only discover the missing capability when evaluated.
func (pd *PDHG) dual(p *vec.Vector) (float64, bool, error) {
	fc, okF := pd.f.(fn.Conjugable)
	gc, okG := pd.g.(fn.Conjugable)
	if !okF || !okG {
		return 0, false, nil
	}
	fv, err := fc.ConjugateValue(p)
	if errors.Is(err, fn.ErrNotConjugable) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	kp, err := pd.k.Adjoint(p)
	if err != nil {
		return 0, false, err
	}
	if err := kp.Scale(-1, kp); err != nil {
		return 0, false, err
	}
	gv, err := gc.ConjugateValue(kp)
	if errors.Is(err, fn.ErrNotConjugable) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return -fv - gv, true, nil
}

// Run iterates until convergence, the iteration cap, failure or
// cancellation.
func (pd *PDHG) Run(ctx context.Context) (*Result, error) {
	r := newRun(pd.set, pd.x0)
	x := r.res.X
	xbar := x.Clone()
	prev := x.Clone()
	p := vec.New(pd.k.RangeShape()...)

	for k := 0; k < r.set.MaxIterations; k++ {
		if res, err := r.cancelled(ctx, k); res != nil {
			return res, err
		}

		if r.due(k) {
			if err := pd.sampleAt(r, k, x, p); err != nil {
				return r.fail(k, x, err)
			}
		}

		// Dual ascent on the extrapolated primal point.
		kx, err := pd.k.Apply(xbar)
		if err != nil {
			return r.fail(k, x, err)
		}
		if err := kx.AddScaled(p, pd.sigma, kx); err != nil {
			return r.fail(k, x, err)
		}
		p, err = fn.ProxConjugate(pd.f, kx, pd.sigma)
		if err != nil {
			return r.fail(k, x, err)
		}

		// Primal descent against the new dual point.
		adj, err := pd.k.Adjoint(p)
		if err != nil {
			return r.fail(k, x, err)
		}
		if err := adj.AddScaled(x, -pd.tau, adj); err != nil {
			return r.fail(k, x, err)
		}
		next, err := fn.ProxOf(pd.g, adj, pd.tau)
		if err != nil {
			return r.fail(k, x, err)
		}
		if err := finite(next); err != nil {
			return r.fail(k, x, err)
		}

		// Extrapolate for the next dual step.
		if err := xbar.Sub(next, x); err != nil {
			return r.fail(k, x, err)
		}
		if err := xbar.AddScaled(next, pd.theta, xbar); err != nil {
			return r.fail(k, x, err)
		}

		if err := prev.Copy(x); err != nil {
			return r.fail(k, x, err)
		}
		if err := x.Copy(next); err != nil {
			return r.fail(k, x, err)
		}

		if r.set.Tolerance > 0 {
			stop, err := pd.converged(x, prev, p)
			if err != nil {
				return r.fail(k, x, err)
			}
			if stop {
				if err := pd.sampleAt(r, k+1, x, p); err != nil {
					return r.fail(k+1, x, err)
				}
				return r.finish(Converged, k+1), nil
			}
		}
	}

	if err := pd.sampleAt(r, r.set.MaxIterations, x, p); err != nil {
		return r.fail(r.set.MaxIterations, x, err)
	}
	return r.finish(MaxIterationReached, r.set.MaxIterations), nil
}

// sampleAt records the primal objective and, when available, the
// primal-dual gap.
func (pd *PDHG) sampleAt(r *run, k int, x, p *vec.Vector) error {
	primal, err := pd.primal(x)
	if err != nil {
		return err
	}
	if err := r.sample(k, primal); err != nil {
		return err
	}
	dual, ok, err := pd.dual(p)
	if err != nil {
		return err
	}
	if ok {
		r.res.Gap = append(r.res.Gap, Sample{Iteration: k, Value: primal - dual})
	}
	return nil
}

// converged prefers the primal-dual gap when both conjugates are available
// and falls back to the relative iterate change otherwise.
func (pd *PDHG) converged(x, prev, p *vec.Vector) (bool, error) {
	primal, err := pd.primal(x)
	if err != nil {
		return false, err
	}
	dual, ok, err := pd.dual(p)
	if err != nil {
		return false, err
	}
	if ok {
		gap := primal - dual
		return gap >= 0 && gap <= pd.set.Tolerance, nil
	}
	change, err := relChange(x, prev)
	if err != nil {
		return false, err
	}
	return change <= pd.set.Tolerance, nil
}
