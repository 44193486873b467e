package op

import (
	"math"
	"math/rand"

	"github.com/lauramurgatroyd/cilgo/vec"
)

// PowerIterationOptions bounds the norm estimation loop. Zero values select
// the defaults.
type PowerIterationOptions struct {
	// Tolerance is the relative change between successive estimates below
	// which the loop stops. Default 1e-5.
	Tolerance float64
	// MaxIterations caps the loop. Default 50. Hitting the cap is not an
	// error; the current estimate is returned.
	MaxIterations int
	// Seed fixes the random starting vector for reproducible estimates.
	Seed int64
}

// PowerIteration estimates the operator norm ‖A‖ (largest singular value) by
// running the power method on A'A. The estimate is what PDHG uses to pick
// feasible step sizes when the caller supplies none.
func PowerIteration(a Linear, opts PowerIterationOptions) (float64, error) {
	tol := opts.Tolerance
	if tol <= 0 {
		tol = 1e-5
	}
	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = 50
	}

	rng := rand.New(rand.NewSource(opts.Seed + 1))
	x := vec.New(a.DomainShape()...)
	d := x.Data()
	for i := range d {
		d[i] = rng.NormFloat64()
	}
	if n := vec.Norm(x); n > 0 {
		if err := x.Scale(1/n, x); err != nil {
			return 0, err
		}
	}

	estimate := 0.0
	for k := 0; k < maxIter; k++ {
		y, err := a.Apply(x)
		if err != nil {
			return 0, err
		}
		z, err := a.Adjoint(y)
		if err != nil {
			return 0, err
		}
		zn := vec.Norm(z)
		if zn == 0 {
			// A annihilates the current direction; the operator is (numerically)
			// zero on this subspace.
			return 0, nil
		}
		next := math.Sqrt(zn)
		if estimate > 0 && math.Abs(next-estimate)/estimate < tol {
			estimate = next
			break
		}
		estimate = next
		if err := x.Scale(1/zn, z); err != nil {
			return 0, err
		}
	}
	return estimate, nil
}
