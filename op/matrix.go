package op

import (
	"gonum.org/v1/gonum/mat"

	"github.com/lauramurgatroyd/cilgo/vec"
)

// Matrix wraps a dense gonum matrix as a linear operator on flat vectors.
// The adjoint multiplies by the transpose.
type Matrix struct {
	m      mat.Matrix
	domain vec.Shape
	rng    vec.Shape
}

// NewMatrix returns the operator x -> m*x. The domain is the column count of
// m, the range its row count.
func NewMatrix(m mat.Matrix) *Matrix {
	r, c := m.Dims()
	return &Matrix{m: m, domain: vec.Shape{c}, rng: vec.Shape{r}}
}

func (a *Matrix) DomainShape() vec.Shape { return a.domain }
func (a *Matrix) RangeShape() vec.Shape  { return a.rng }

func (a *Matrix) Apply(x *vec.Vector) (*vec.Vector, error) {
	if err := checkShape(x, a.domain); err != nil {
		return nil, err
	}
	y := vec.New(a.rng...)
	y.Raw().MulVec(a.m, x.Raw())
	return y, nil
}

func (a *Matrix) Adjoint(y *vec.Vector) (*vec.Vector, error) {
	if err := checkShape(y, a.rng); err != nil {
		return nil, err
	}
	x := vec.New(a.domain...)
	x.Raw().MulVec(a.m.T(), y.Raw())
	return x, nil
}
