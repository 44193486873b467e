package solve

import (
	"context"

	"github.com/lauramurgatroyd/cilgo/fn"
	"github.com/lauramurgatroyd/cilgo/vec"
)

// Backtracking configures the Armijo line search. Zero values select the
// defaults.
type Backtracking struct {
	// Initial trial step. Default 1.
	Initial float64
	// Shrink multiplies the step after each rejected trial. Default 0.5.
	Shrink float64
	// Slope is the sufficient-decrease constant c in
	// f(x - t·g) ≤ f(x) - c·t·‖g‖². Default 1e-4.
	Slope float64
	// MaxHalvings bounds the rejected trials per iteration; exhausting it
	// fails the run with ErrLineSearchFailed. Default 50.
	MaxHalvings int
}

func (bt Backtracking) withDefaults() Backtracking {
	if bt.Initial <= 0 {
		bt.Initial = 1
	}
	if bt.Shrink <= 0 || bt.Shrink >= 1 {
		bt.Shrink = 0.5
	}
	if bt.Slope <= 0 {
		bt.Slope = 1e-4
	}
	if bt.MaxHalvings <= 0 {
		bt.MaxHalvings = 50
	}
	return bt
}

// GradientDescent minimises a smooth term f by
//
//	x_{k+1} = x_k - step_k · ∇f(x_k)
//
// with either a fixed step supplied at construction or an Armijo
// backtracking line search.
type GradientDescent struct {
	f    fn.Differentiable
	x0   *vec.Vector
	step float64
	bt   *Backtracking
	set  Settings
}

// NewGradientDescent builds a fixed-step gradient descent from the starting
// point x0. The step must be positive and finite.
func NewGradientDescent(f fn.Differentiable, x0 *vec.Vector, step float64, set Settings) (*GradientDescent, error) {
	if err := checkStep(step); err != nil {
		return nil, err
	}
	return &GradientDescent{f: f, x0: x0.Clone(), step: step, set: set}, nil
}

// NewGradientDescentBacktracking builds a gradient descent whose step is
// found each iteration by backtracking until sufficient decrease holds.
func NewGradientDescentBacktracking(f fn.Differentiable, x0 *vec.Vector, bt Backtracking, set Settings) (*GradientDescent, error) {
	bt = bt.withDefaults()
	return &GradientDescent{f: f, x0: x0.Clone(), bt: &bt, set: set}, nil
}

// Run iterates until convergence, the iteration cap, failure or
// cancellation. The returned Result always carries a usable iterate.
func (gd *GradientDescent) Run(ctx context.Context) (*Result, error) {
	r := newRun(gd.set, gd.x0)
	x := r.res.X
	prev := x.Clone()

	for k := 0; k < r.set.MaxIterations; k++ {
		if res, err := r.cancelled(ctx, k); res != nil {
			return res, err
		}

		fx, err := gd.f.Evaluate(x)
		if err != nil {
			return r.fail(k, x, err)
		}
		if r.due(k) {
			if err := r.sample(k, fx); err != nil {
				return r.fail(k, x, err)
			}
		}

		g, err := gd.f.Gradient(x)
		if err != nil {
			return r.fail(k, x, err)
		}
		if err := finite(g); err != nil {
			return r.fail(k, x, err)
		}

		step := gd.step
		if gd.bt != nil {
			step, err = gd.lineSearch(x, g, fx)
			if err != nil {
				return r.fail(k, x, err)
			}
		}

		if err := prev.Copy(x); err != nil {
			return r.fail(k, x, err)
		}
		if err := x.AddScaled(x, -step, g); err != nil {
			return r.fail(k, prev.Clone(), err)
		}
		if err := finite(x); err != nil {
			return r.fail(k, prev.Clone(), err)
		}

		if r.set.Tolerance > 0 {
			change, err := relChange(x, prev)
			if err != nil {
				return r.fail(k, x, err)
			}
			if change <= r.set.Tolerance {
				if err := gd.sampleFinal(r, k+1, x); err != nil {
					return r.fail(k+1, x, err)
				}
				return r.finish(Converged, k+1), nil
			}
		}
	}

	if err := gd.sampleFinal(r, r.set.MaxIterations, x); err != nil {
		return r.fail(r.set.MaxIterations, x, err)
	}
	return r.finish(MaxIterationReached, r.set.MaxIterations), nil
}

func (gd *GradientDescent) sampleFinal(r *run, k int, x *vec.Vector) error {
	fx, err := gd.f.Evaluate(x)
	if err != nil {
		return err
	}
	return r.sample(k, fx)
}

// lineSearch backtracks from the initial trial step until the Armijo
// condition holds, failing after MaxHalvings rejected trials.
func (gd *GradientDescent) lineSearch(x, g *vec.Vector, fx float64) (float64, error) {
	gg, err := vec.Dot(g, g)
	if err != nil {
		return 0, err
	}
	step := gd.bt.Initial
	trial := x.Zeros()
	for halvings := 0; halvings <= gd.bt.MaxHalvings; halvings++ {
		if err := trial.AddScaled(x, -step, g); err != nil {
			return 0, err
		}
		ft, err := gd.f.Evaluate(trial)
		if err != nil {
			return 0, err
		}
		if ft <= fx-gd.bt.Slope*step*gg {
			return step, nil
		}
		step *= gd.bt.Shrink
	}
	return 0, ErrLineSearchFailed
}
