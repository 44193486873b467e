package solve

import "errors"

var (
	// ErrStepSize is returned at construction when a caller-supplied step is
	// non-positive, NaN or Inf.
	ErrStepSize = errors.New("solve: invalid step size")

	// ErrLineSearchFailed is returned when backtracking exhausts its halving
	// budget without satisfying the sufficient-decrease condition. The run
	// transitions to Failed with the last iterate preserved.
	ErrLineSearchFailed = errors.New("solve: line search failed")

	// ErrDivergence is returned when a NaN or Inf shows up in an iterate or
	// an objective sample. No further updates are attempted.
	ErrDivergence = errors.New("solve: numerical divergence")
)
