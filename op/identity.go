package op

import (
	"fmt"

	"github.com/lauramurgatroyd/cilgo/vec"
)

// Identity maps every vector of its shape to a copy of itself. It is its own
// adjoint.
type Identity struct {
	shape vec.Shape
}

// NewIdentity returns the identity operator on vectors of the given shape.
func NewIdentity(shape ...int) *Identity {
	// Instantiate a probe vector so invalid shapes are rejected the same way
	// vec.New rejects them.
	probe := vec.New(shape...)
	return &Identity{shape: probe.Shape()}
}

func (id *Identity) DomainShape() vec.Shape { return id.shape }
func (id *Identity) RangeShape() vec.Shape  { return id.shape }

func (id *Identity) Apply(x *vec.Vector) (*vec.Vector, error) {
	if err := checkShape(x, id.shape); err != nil {
		return nil, err
	}
	return x.Clone(), nil
}

func (id *Identity) Adjoint(y *vec.Vector) (*vec.Vector, error) {
	return id.Apply(y)
}

// Scaled multiplies the output of a child operator by a constant. Its
// adjoint is the scaled adjoint of the child, and exists only when the child
// is Linear.
type Scaled struct {
	alpha float64
	a     Operator
}

// NewScaled wraps a with a scalar multiple alpha.
func NewScaled(alpha float64, a Operator) *Scaled {
	return &Scaled{alpha: alpha, a: a}
}

func (s *Scaled) DomainShape() vec.Shape { return s.a.DomainShape() }
func (s *Scaled) RangeShape() vec.Shape  { return s.a.RangeShape() }

func (s *Scaled) Apply(x *vec.Vector) (*vec.Vector, error) {
	y, err := s.a.Apply(x)
	if err != nil {
		return nil, err
	}
	if err := y.Scale(s.alpha, y); err != nil {
		return nil, err
	}
	return y, nil
}

func (s *Scaled) Adjoint(y *vec.Vector) (*vec.Vector, error) {
	x, err := AdjointOf(s.a, y)
	if err != nil {
		return nil, err
	}
	if err := x.Scale(s.alpha, x); err != nil {
		return nil, err
	}
	return x, nil
}

// Composed applies inner first and outer second, i.e. (outer ∘ inner)(x).
type Composed struct {
	outer, inner Operator
}

// NewComposed builds outer ∘ inner. The range of inner must match the domain
// of outer; otherwise construction fails with vec.ErrShapeMismatch.
func NewComposed(outer, inner Operator) (*Composed, error) {
	if !inner.RangeShape().Equal(outer.DomainShape()) {
		return nil, fmt.Errorf("op: inner range %v against outer domain %v: %w",
			inner.RangeShape(), outer.DomainShape(), vec.ErrShapeMismatch)
	}
	return &Composed{outer: outer, inner: inner}, nil
}

func (c *Composed) DomainShape() vec.Shape { return c.inner.DomainShape() }
func (c *Composed) RangeShape() vec.Shape  { return c.outer.RangeShape() }

func (c *Composed) Apply(x *vec.Vector) (*vec.Vector, error) {
	mid, err := c.inner.Apply(x)
	if err != nil {
		return nil, err
	}
	return c.outer.Apply(mid)
}

func (c *Composed) Adjoint(y *vec.Vector) (*vec.Vector, error) {
	mid, err := AdjointOf(c.outer, y)
	if err != nil {
		return nil, err
	}
	return AdjointOf(c.inner, mid)
}
