// Package op defines the operator abstraction the solvers are generic over:
// a map between two fixed vector shapes, with an optional adjoint. Leaves
// (identity, dense matrix, finite differences) and composites (scaling,
// composition, block stacks) all satisfy the same pair of interfaces, so a
// projection operator supplied from outside plugs in anywhere a built-in
// does.
package op

import (
	"fmt"

	"github.com/lauramurgatroyd/cilgo/vec"
)

// Operator maps vectors of DomainShape to vectors of RangeShape. Both shapes
// are fixed at construction. Apply must not retain or modify its argument.
type Operator interface {
	DomainShape() vec.Shape
	RangeShape() vec.Shape
	Apply(x *vec.Vector) (*vec.Vector, error)
}

// Linear is an Operator that also exposes its adjoint, mapping RangeShape
// back to DomainShape.
type Linear interface {
	Operator
	Adjoint(y *vec.Vector) (*vec.Vector, error)
}

// AdjointOf applies the adjoint of a when a declares one and returns
// ErrAdjointUnsupported otherwise.
func AdjointOf(a Operator, y *vec.Vector) (*vec.Vector, error) {
	l, ok := a.(Linear)
	if !ok {
		return nil, fmt.Errorf("op: %T: %w", a, ErrAdjointUnsupported)
	}
	return l.Adjoint(y)
}

// checkShape verifies that x matches want, for use at the top of Apply and
// Adjoint implementations.
func checkShape(got *vec.Vector, want vec.Shape) error {
	if !got.Shape().Equal(want) {
		return fmt.Errorf("op: vector %v against operator %v: %w",
			got.Shape(), want, vec.ErrShapeMismatch)
	}
	return nil
}
