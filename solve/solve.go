// Package solve holds the iterative solvers: gradient descent, FISTA, PDHG
// and CGLS. Each solver is built from operators and function terms, owns its
// iterate buffers for the duration of one run, and reports progress through
// a Result holding the final iterate, the terminal status and a sparsely
// sampled objective history.
//
// Iterations are strictly sequential; operator and function evaluations may
// parallelise internally but each iteration completes before the next
// starts. Cancellation through the context is honoured at iteration
// boundaries only, so the returned iterate is always a fully computed one.
package solve

import (
	"context"
	"fmt"
	"math"

	"github.com/lauramurgatroyd/cilgo/vec"
)

// Status is the terminal (or current) state of a solver run.
type Status int

const (
	// Initialized: constructed, Run not yet called.
	Initialized Status = iota
	// Running: inside Run.
	Running
	// Converged: a configured tolerance was met.
	Converged
	// MaxIterationReached: the iteration cap was hit without meeting a
	// tolerance. This is a normal outcome with a usable solution, not an
	// error.
	MaxIterationReached
	// Stopped: the caller cancelled the run between iterations.
	Stopped
	// Failed: an operator/function error, divergence or line-search
	// exhaustion. The last successfully computed iterate is preserved.
	Failed
)

func (s Status) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case Running:
		return "running"
	case Converged:
		return "converged"
	case MaxIterationReached:
		return "max iterations reached"
	case Stopped:
		return "stopped"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Settings configures a solver run. The zero value is usable: 100
// iterations, objective sampled every iteration, no tolerance (the run ends
// at MaxIterationReached), silent.
type Settings struct {
	// MaxIterations caps the run. Default 100.
	MaxIterations int
	// Tolerance enables the Converged state: relative change of the iterate
	// (or the primal-dual gap for PDHG, residual reduction for CGLS) below
	// this value stops the run. Zero disables convergence checking.
	Tolerance float64
	// UpdateInterval is the objective sampling cadence in iterations. It is
	// purely a diagnostics/performance trade-off and never changes the
	// iterate sequence. Default 1.
	UpdateInterval int
	// Verbosity gates progress printing: 0 silent, 1 a summary line at the
	// end, 2 a line per objective sample. Printing never alters numerics.
	Verbosity int
}

func (s Settings) withDefaults() Settings {
	if s.MaxIterations <= 0 {
		s.MaxIterations = 100
	}
	if s.UpdateInterval <= 0 {
		s.UpdateInterval = 1
	}
	return s
}

// Sample is one objective-history entry.
type Sample struct {
	Iteration int
	Value     float64
}

// Result is the outcome of a run. X is the final iterate; after Failed it
// holds the last successfully computed one.
type Result struct {
	X          *vec.Vector
	Status     Status
	Iterations int
	// Objective holds the sampled objective history.
	Objective []Sample
	// Gap holds the sampled primal-dual gap (PDHG only).
	Gap []Sample
	// Err is set when Status is Failed, and carries the failing iteration.
	Err error
}

// Values returns the sampled objective values without their iteration
// indices, in sampling order.
func (r *Result) Values() []float64 {
	out := make([]float64, len(r.Objective))
	for i, s := range r.Objective {
		out[i] = s.Value
	}
	return out
}

// run carries the loop bookkeeping every solver shares.
type run struct {
	set Settings
	res *Result
}

func newRun(set Settings, x0 *vec.Vector) *run {
	return &run{
		set: set.withDefaults(),
		res: &Result{X: x0.Clone(), Status: Running},
	}
}

// fail records a terminal failure at iteration k, keeping last as the
// surviving iterate.
func (r *run) fail(k int, last *vec.Vector, err error) (*Result, error) {
	r.res.Status = Failed
	r.res.Iterations = k
	r.res.X = last
	r.res.Err = fmt.Errorf("solve: iteration %d: %w", k, err)
	return r.res, r.res.Err
}

// cancelled checks the context at an iteration boundary.
func (r *run) cancelled(ctx context.Context, k int) (*Result, error) {
	if ctx == nil || ctx.Err() == nil {
		return nil, nil
	}
	r.res.Status = Stopped
	r.res.Iterations = k
	return r.res, ctx.Err()
}

// due reports whether iteration k is an objective sampling point.
func (r *run) due(k int) bool {
	return k%r.set.UpdateInterval == 0 || k == r.set.MaxIterations
}

// sample appends an objective value and checks it for divergence.
func (r *run) sample(k int, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("objective %v: %w", value, ErrDivergence)
	}
	r.res.Objective = append(r.res.Objective, Sample{Iteration: k, Value: value})
	if r.set.Verbosity >= 2 {
		fmt.Printf("iteration %d, objective %v\n", k, value)
	}
	return nil
}

// finish records a normal terminal state.
func (r *run) finish(status Status, iterations int) *Result {
	r.res.Status = status
	r.res.Iterations = iterations
	if r.set.Verbosity >= 1 {
		last := math.NaN()
		if n := len(r.res.Objective); n > 0 {
			last = r.res.Objective[n-1].Value
		}
		fmt.Printf("%s after %d iterations, objective %v\n", status, iterations, last)
	}
	return r.res
}

// relChange is the convergence metric shared by the iterate-based solvers.
func relChange(cur, prev *vec.Vector) (float64, error) {
	diff := cur.Zeros()
	if err := diff.Sub(cur, prev); err != nil {
		return 0, err
	}
	return vec.Norm(diff) / math.Max(vec.Norm(cur), 1), nil
}

// checkStep validates a caller-supplied step size at construction.
func checkStep(step float64) error {
	if step <= 0 || math.IsNaN(step) || math.IsInf(step, 0) {
		return fmt.Errorf("solve: step %v: %w", step, ErrStepSize)
	}
	return nil
}

// finite guards an iterate against NaN/Inf.
func finite(x *vec.Vector) error {
	if !vec.Finite(x) {
		return fmt.Errorf("iterate: %w", ErrDivergence)
	}
	return nil
}
