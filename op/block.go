package op

import (
	"fmt"
	"sync"

	"github.com/lauramurgatroyd/cilgo/vec"
)

// Block stacks operators with a common domain vertically. Applying the stack
// applies every child to the same input and concatenates the outputs into
// one flat range vector; the adjoint splits its argument back into segments
// and sums the child adjoints. Stacking a projection operator over a scaled
// gradient operator is how multi-term regularisation enters a single solver
// run.
type Block struct {
	ops     []Operator
	domain  vec.Shape
	rng     vec.Shape
	offsets []int
}

// NewBlock builds a vertical stack from the given operators. All children
// must share the same domain shape.
func NewBlock(ops ...Operator) (*Block, error) {
	if len(ops) == 0 {
		return nil, fmt.Errorf("op: block needs at least one operator: %w", vec.ErrShapeMismatch)
	}
	domain := ops[0].DomainShape()
	offsets := make([]int, len(ops)+1)
	for i, a := range ops {
		if !a.DomainShape().Equal(domain) {
			return nil, fmt.Errorf("op: block child %d domain %v against %v: %w",
				i, a.DomainShape(), domain, vec.ErrShapeMismatch)
		}
		offsets[i+1] = offsets[i] + a.RangeShape().Size()
	}
	return &Block{
		ops:     ops,
		domain:  domain,
		rng:     vec.Shape{offsets[len(ops)]},
		offsets: offsets,
	}, nil
}

func (b *Block) DomainShape() vec.Shape { return b.domain }
func (b *Block) RangeShape() vec.Shape  { return b.rng }

// Blocks returns the child operators in stacking order.
func (b *Block) Blocks() []Operator { return b.ops }

// Segment copies the i-th child's portion out of a range vector.
func (b *Block) Segment(y *vec.Vector, i int) (*vec.Vector, error) {
	if err := checkShape(y, b.rng); err != nil {
		return nil, err
	}
	part := vec.New(b.ops[i].RangeShape()...)
	copy(part.Data(), y.Data()[b.offsets[i]:b.offsets[i+1]])
	return part, nil
}

// Apply evaluates every child on x. The children run concurrently; the call
// returns only after all of them finish, so the stack behaves synchronously
// to its caller.
func (b *Block) Apply(x *vec.Vector) (*vec.Vector, error) {
	if err := checkShape(x, b.domain); err != nil {
		return nil, err
	}
	y := vec.New(b.rng...)
	errs := make([]error, len(b.ops))

	var wg sync.WaitGroup
	wg.Add(len(b.ops))
	for i, a := range b.ops {
		go func(i int, a Operator) {
			defer wg.Done()
			part, err := a.Apply(x)
			if err != nil {
				errs[i] = fmt.Errorf("op: block child %d: %w", i, err)
				return
			}
			copy(y.Data()[b.offsets[i]:b.offsets[i+1]], part.Data())
		}(i, a)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return y, nil
}

// Adjoint splits y into segments, applies each child adjoint and sums the
// results. It fails with ErrAdjointUnsupported if any child lacks one.
func (b *Block) Adjoint(y *vec.Vector) (*vec.Vector, error) {
	if err := checkShape(y, b.rng); err != nil {
		return nil, err
	}
	parts := make([]*vec.Vector, len(b.ops))
	errs := make([]error, len(b.ops))

	var wg sync.WaitGroup
	wg.Add(len(b.ops))
	for i, a := range b.ops {
		go func(i int, a Operator) {
			defer wg.Done()
			seg, err := b.Segment(y, i)
			if err != nil {
				errs[i] = err
				return
			}
			part, err := AdjointOf(a, seg)
			if err != nil {
				errs[i] = fmt.Errorf("op: block child %d: %w", i, err)
				return
			}
			parts[i] = part
		}(i, a)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	x := vec.New(b.domain...)
	for _, part := range parts {
		if err := x.Add(x, part); err != nil {
			return nil, err
		}
	}
	return x, nil
}
