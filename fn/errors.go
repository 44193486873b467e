package fn

import "errors"

var (
	// ErrNotDifferentiable is returned when a gradient is requested from a
	// term that does not declare one (e.g. the L1 norm at a kink).
	ErrNotDifferentiable = errors.New("fn: not differentiable")

	// ErrNotProximable is returned when a proximal map is requested from a
	// term that does not declare one. In particular the prox of a sum is not
	// the sum of the proxes, so Sum never exposes one.
	ErrNotProximable = errors.New("fn: not proximable")

	// ErrNotConjugable is returned when the convex-conjugate value of a term
	// that does not declare one is requested. Only PDHG's dual diagnostics
	// need this capability.
	ErrNotConjugable = errors.New("fn: convex conjugate unavailable")

	// ErrStep is returned by proximal maps given a non-positive or non-finite
	// step.
	ErrStep = errors.New("fn: step must be positive and finite")
)
