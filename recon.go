package cilgo

import (
	"github.com/lauramurgatroyd/cilgo/fn"
	"github.com/lauramurgatroyd/cilgo/op"
	"github.com/lauramurgatroyd/cilgo/solve"
	"github.com/lauramurgatroyd/cilgo/vec"
)

// safety backs the default steps off the theoretical 1/L bound to absorb
// the error in the power-iteration norm estimate.
const safety = 0.95

// LeastSquaresCGLS builds a CGLS run for min ‖Ax - b‖² starting from zero.
func LeastSquaresCGLS(a op.Linear, b *vec.Vector, set solve.Settings) (*solve.CGLS, error) {
	return solve.NewCGLS(a, b, vec.New(a.DomainShape()...), set)
}

// Tikhonov builds a gradient descent for the regularised problem
//
//	min ‖Ax - b‖² + α²‖x‖²
//
// starting from zero, with a fixed step derived from a power-iteration
// estimate of ‖A‖.
func Tikhonov(a op.Linear, b *vec.Vector, alpha float64, set solve.Settings) (*solve.GradientDescent, error) {
	ls, err := fn.NewLeastSquares(a, b)
	if err != nil {
		return nil, err
	}
	objective := fn.NewSum(ls, fn.NewScaled(alpha*alpha, fn.NewL2NormSquared()))

	norm, err := op.PowerIteration(a, op.PowerIterationOptions{})
	if err != nil {
		return nil, err
	}
	// ∇(‖Ax-b‖² + α²‖x‖²) is Lipschitz with L = 2(‖A‖² + α²).
	step := safety / (2 * (norm*norm + alpha*alpha))
	return solve.NewGradientDescent(objective, vec.New(a.DomainShape()...), step, set)
}

// SparseFISTA builds a FISTA run for the L1-regularised problem
//
//	min ‖Ax - b‖² + α‖x‖₁
//
// starting from zero.
func SparseFISTA(a op.Linear, b *vec.Vector, alpha float64, set solve.Settings) (*solve.FISTA, error) {
	ls, err := fn.NewLeastSquares(a, b)
	if err != nil {
		return nil, err
	}
	step, err := lipschitzStep(a)
	if err != nil {
		return nil, err
	}
	return solve.NewFISTA(ls, fn.NewScaled(alpha, fn.NewL1Norm()), vec.New(a.DomainShape()...), step, set)
}

// TVFISTA builds a FISTA run for the total-variation regularised problem
//
//	min ‖Ax - b‖² + α·TV(x)
//
// starting from zero. The TV prox runs its inner loop with opts.
func TVFISTA(a op.Linear, b *vec.Vector, alpha float64, opts fn.TVOptions, set solve.Settings) (*solve.FISTA, error) {
	ls, err := fn.NewLeastSquares(a, b)
	if err != nil {
		return nil, err
	}
	tv, err := fn.NewTotalVariation(opts, a.DomainShape()...)
	if err != nil {
		return nil, err
	}
	step, err := lipschitzStep(a)
	if err != nil {
		return nil, err
	}
	return solve.NewFISTA(ls, fn.NewScaled(alpha, tv), vec.New(a.DomainShape()...), step, set)
}

func lipschitzStep(a op.Linear) (float64, error) {
	norm, err := op.PowerIteration(a, op.PowerIterationOptions{})
	if err != nil {
		return 0, err
	}
	if norm == 0 {
		norm = 1
	}
	return safety / (2 * norm * norm), nil
}
