package fn

import (
	"fmt"

	"github.com/lauramurgatroyd/cilgo/op"
	"github.com/lauramurgatroyd/cilgo/vec"
)

// LeastSquares is the data-fidelity term
//
//	f(x) = c ‖A x - b‖²
//
// with gradient 2c A'(A x - b). The weight c defaults to 1.
type LeastSquares struct {
	a op.Linear
	b *vec.Vector
	c float64
}

// NewLeastSquares builds the least-squares term for operator a and data b.
// The range of a must match the shape of b.
func NewLeastSquares(a op.Linear, b *vec.Vector) (*LeastSquares, error) {
	if !a.RangeShape().Equal(b.Shape()) {
		return nil, fmt.Errorf("fn: operator range %v against data %v: %w",
			a.RangeShape(), b.Shape(), vec.ErrShapeMismatch)
	}
	return &LeastSquares{a: a, b: b.Clone(), c: 1}, nil
}

// NewWeightedLeastSquares is NewLeastSquares with the weight c in
// f(x) = c‖Ax-b‖² set explicitly.
func NewWeightedLeastSquares(a op.Linear, b *vec.Vector, c float64) (*LeastSquares, error) {
	ls, err := NewLeastSquares(a, b)
	if err != nil {
		return nil, err
	}
	ls.c = c
	return ls, nil
}

// Operator returns the forward operator A.
func (ls *LeastSquares) Operator() op.Linear { return ls.a }

// Data returns a copy of b.
func (ls *LeastSquares) Data() *vec.Vector { return ls.b.Clone() }

func (ls *LeastSquares) residual(x *vec.Vector) (*vec.Vector, error) {
	r, err := ls.a.Apply(x)
	if err != nil {
		return nil, err
	}
	if err := r.Sub(r, ls.b); err != nil {
		return nil, err
	}
	return r, nil
}

func (ls *LeastSquares) Evaluate(x *vec.Vector) (float64, error) {
	r, err := ls.residual(x)
	if err != nil {
		return 0, err
	}
	n := vec.Norm(r)
	return ls.c * n * n, nil
}

func (ls *LeastSquares) Gradient(x *vec.Vector) (*vec.Vector, error) {
	r, err := ls.residual(x)
	if err != nil {
		return nil, err
	}
	g, err := ls.a.Adjoint(r)
	if err != nil {
		return nil, err
	}
	if err := g.Scale(2*ls.c, g); err != nil {
		return nil, err
	}
	return g, nil
}
