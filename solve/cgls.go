package solve

import (
	"context"
	"fmt"

	"github.com/lauramurgatroyd/cilgo/op"
	"github.com/lauramurgatroyd/cilgo/vec"
)

// CGLS solves min ‖Ax - b‖² by conjugate gradients on the normal equations
// without ever forming A'A. Convergence is judged on the normal-equation
// residual ‖A'(b - Ax)‖ relative to its starting value.
type CGLS struct {
	a   op.Linear
	b   *vec.Vector
	x0  *vec.Vector
	set Settings
}

// NewCGLS builds the solver for operator a, data b and starting point x0.
func NewCGLS(a op.Linear, b, x0 *vec.Vector, set Settings) (*CGLS, error) {
	if !a.RangeShape().Equal(b.Shape()) {
		return nil, fmt.Errorf("solve: cgls data %v against operator range %v: %w",
			b.Shape(), a.RangeShape(), vec.ErrShapeMismatch)
	}
	if !a.DomainShape().Equal(x0.Shape()) {
		return nil, fmt.Errorf("solve: cgls start %v against operator domain %v: %w",
			x0.Shape(), a.DomainShape(), vec.ErrShapeMismatch)
	}
	return &CGLS{a: a, b: b.Clone(), x0: x0.Clone(), set: set}, nil
}

func (cg *CGLS) objective(r *vec.Vector) float64 {
	n := vec.Norm(r)
	return n * n
}

// Run iterates until convergence, the iteration cap, failure or
// cancellation.
func (cg *CGLS) Run(ctx context.Context) (*Result, error) {
	rn := newRun(cg.set, cg.x0)
	x := rn.res.X

	// r = b - A x, s = A' r, p = s.
	ax, err := cg.a.Apply(x)
	if err != nil {
		return rn.fail(0, x, err)
	}
	resid := cg.b.Clone()
	if err := resid.Sub(cg.b, ax); err != nil {
		return rn.fail(0, x, err)
	}
	s, err := cg.a.Adjoint(resid)
	if err != nil {
		return rn.fail(0, x, err)
	}
	p := s.Clone()
	gamma, err := vec.Dot(s, s)
	if err != nil {
		return rn.fail(0, x, err)
	}
	gamma0 := gamma

	for k := 0; k < rn.set.MaxIterations; k++ {
		if res, err := rn.cancelled(ctx, k); res != nil {
			return res, err
		}
		if rn.due(k) {
			if err := rn.sample(k, cg.objective(resid)); err != nil {
				return rn.fail(k, x, err)
			}
		}
		if gamma == 0 {
			// The normal-equation residual vanished: x is the exact
			// least-squares solution.
			return rn.finish(Converged, k), nil
		}

		q, err := cg.a.Apply(p)
		if err != nil {
			return rn.fail(k, x, err)
		}
		qq, err := vec.Dot(q, q)
		if err != nil {
			return rn.fail(k, x, err)
		}
		if qq == 0 {
			return rn.fail(k, x, fmt.Errorf("search direction annihilated: %w", ErrDivergence))
		}
		alpha := gamma / qq

		if err := x.AddScaled(x, alpha, p); err != nil {
			return rn.fail(k, x, err)
		}
		if err := resid.AddScaled(resid, -alpha, q); err != nil {
			return rn.fail(k, x, err)
		}
		if err := finite(x); err != nil {
			return rn.fail(k, x, err)
		}

		s, err = cg.a.Adjoint(resid)
		if err != nil {
			return rn.fail(k, x, err)
		}
		gammaNext, err := vec.Dot(s, s)
		if err != nil {
			return rn.fail(k, x, err)
		}
		if err := p.AddScaled(s, gammaNext/gamma, p); err != nil {
			return rn.fail(k, x, err)
		}
		gamma = gammaNext

		if rn.set.Tolerance > 0 && gamma <= rn.set.Tolerance*rn.set.Tolerance*gamma0 {
			if err := rn.sample(k+1, cg.objective(resid)); err != nil {
				return rn.fail(k+1, x, err)
			}
			return rn.finish(Converged, k+1), nil
		}
	}

	if err := rn.sample(rn.set.MaxIterations, cg.objective(resid)); err != nil {
		return rn.fail(rn.set.MaxIterations, x, err)
	}
	return rn.finish(MaxIterationReached, rn.set.MaxIterations), nil
}
