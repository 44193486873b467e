// Package fn defines objective terms for the solvers: a scalar value over a
// vector, with optional gradient, proximal-map and convex-conjugate
// capabilities. Capabilities are declared by satisfying the corresponding
// interface; the helpers in this file turn a missing capability into the
// matching sentinel error at the call site, so composites can check their
// children when they are built rather than by probing concrete types.
package fn

import (
	"fmt"
	"math"

	"github.com/lauramurgatroyd/cilgo/vec"
)

// Function associates a scalar value with a vector. Evaluate may return
// +Inf (indicator terms outside their set) but never NaN for a finite
// argument.
type Function interface {
	Evaluate(x *vec.Vector) (float64, error)
}

// Differentiable is a Function with a gradient, guaranteed only where the
// term is continuously differentiable.
type Differentiable interface {
	Function
	Gradient(x *vec.Vector) (*vec.Vector, error)
}

// Proximable is a Function with a proximal map,
//
//	Prox(x, step) = argmin_v [ f(v) + 1/(2*step) ‖v-x‖² ].
type Proximable interface {
	Function
	Prox(x *vec.Vector, step float64) (*vec.Vector, error)
}

// Conjugable is a Function that can evaluate its convex conjugate
// f*(y) = sup_x [ <x,y> - f(x) ]. Used to report PDHG's dual objective.
type Conjugable interface {
	Function
	ConjugateValue(y *vec.Vector) (float64, error)
}

// GradientOf evaluates the gradient of f at x, or fails with
// ErrNotDifferentiable when f lacks the capability.
func GradientOf(f Function, x *vec.Vector) (*vec.Vector, error) {
	d, ok := f.(Differentiable)
	if !ok {
		return nil, fmt.Errorf("fn: %T: %w", f, ErrNotDifferentiable)
	}
	return d.Gradient(x)
}

// ProxOf evaluates the proximal map of f at x, or fails with
// ErrNotProximable when f lacks the capability.
func ProxOf(f Function, x *vec.Vector, step float64) (*vec.Vector, error) {
	p, ok := f.(Proximable)
	if !ok {
		return nil, fmt.Errorf("fn: %T: %w", f, ErrNotProximable)
	}
	return p.Prox(x, step)
}

// ConjugateOf evaluates the convex conjugate of f at y, or fails with
// ErrNotConjugable when f lacks the capability.
func ConjugateOf(f Function, y *vec.Vector) (float64, error) {
	c, ok := f.(Conjugable)
	if !ok {
		return 0, fmt.Errorf("fn: %T: %w", f, ErrNotConjugable)
	}
	return c.ConjugateValue(y)
}

// ProxConjugate evaluates the proximal map of the convex conjugate of f
// through the Moreau identity,
//
//	prox_{step·f*}(x) = x - step · prox_{f/step}(x/step),
//
// so any Proximable term also provides the dual prox PDHG needs.
func ProxConjugate(f Function, x *vec.Vector, step float64) (*vec.Vector, error) {
	if err := checkStep(step); err != nil {
		return nil, err
	}
	scaled := x.Clone()
	if err := scaled.Scale(1/step, x); err != nil {
		return nil, err
	}
	inner, err := ProxOf(f, scaled, 1/step)
	if err != nil {
		return nil, err
	}
	out := x.Clone()
	if err := out.AddScaled(x, -step, inner); err != nil {
		return nil, err
	}
	return out, nil
}

func checkStep(step float64) error {
	if step <= 0 || math.IsNaN(step) || math.IsInf(step, 0) {
		return fmt.Errorf("fn: step %v: %w", step, ErrStep)
	}
	return nil
}
