package fn

import (
	"fmt"

	"github.com/lauramurgatroyd/cilgo/op"
	"github.com/lauramurgatroyd/cilgo/vec"
)

// Scaled is alpha·f. Value and gradient distribute over the scaling; the
// prox is obtained by rescaling the step, which requires alpha > 0.
type Scaled struct {
	alpha float64
	f     Function
}

// NewScaled returns alpha·f.
func NewScaled(alpha float64, f Function) *Scaled {
	return &Scaled{alpha: alpha, f: f}
}

func (s *Scaled) Evaluate(x *vec.Vector) (float64, error) {
	v, err := s.f.Evaluate(x)
	if err != nil {
		return 0, err
	}
	return s.alpha * v, nil
}

func (s *Scaled) Gradient(x *vec.Vector) (*vec.Vector, error) {
	g, err := GradientOf(s.f, x)
	if err != nil {
		return nil, err
	}
	if err := g.Scale(s.alpha, g); err != nil {
		return nil, err
	}
	return g, nil
}

// Prox uses prox_{α·f}(x, step) = prox_f(x, α·step), valid for α > 0.
func (s *Scaled) Prox(x *vec.Vector, step float64) (*vec.Vector, error) {
	if err := checkStep(step); err != nil {
		return nil, err
	}
	if s.alpha <= 0 {
		return nil, fmt.Errorf("fn: scale %v is not positive: %w", s.alpha, ErrNotProximable)
	}
	return ProxOf(s.f, x, s.alpha*step)
}

// ConjugateValue uses (α·f)*(y) = α·f*(y/α), valid for α > 0.
func (s *Scaled) ConjugateValue(y *vec.Vector) (float64, error) {
	if s.alpha <= 0 {
		return 0, fmt.Errorf("fn: scale %v is not positive: %w", s.alpha, ErrNotConjugable)
	}
	scaled := y.Clone()
	if err := scaled.Scale(1/s.alpha, y); err != nil {
		return 0, err
	}
	v, err := ConjugateOf(s.f, scaled)
	if err != nil {
		return 0, err
	}
	return s.alpha * v, nil
}

// Sum is f₁ + ... + fₙ over a shared domain. Value and gradient distribute
// over the terms. Sum deliberately has no Prox: the prox of a sum is not
// the sum of the proxes.
type Sum struct {
	terms []Function
}

// NewSum returns the sum of the given terms.
func NewSum(terms ...Function) *Sum {
	return &Sum{terms: terms}
}

func (s *Sum) Evaluate(x *vec.Vector) (float64, error) {
	var total float64
	for _, f := range s.terms {
		v, err := f.Evaluate(x)
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}

func (s *Sum) Gradient(x *vec.Vector) (*vec.Vector, error) {
	total := x.Zeros()
	for _, f := range s.terms {
		g, err := GradientOf(f, x)
		if err != nil {
			return nil, err
		}
		if err := total.Add(total, g); err != nil {
			return nil, err
		}
	}
	return total, nil
}

// BlockSeparable pairs one term with each child of a block operator and
// treats the stacked range vector blockwise: the value is the sum over
// segments and the prox applies each term's prox to its own segment
// independently, which is exact for block-separable sums.
type BlockSeparable struct {
	terms   []Function
	shapes  []vec.Shape
	offsets []int
}

// NewBlockSeparable pairs terms with the children of k, in stacking order.
func NewBlockSeparable(k *op.Block, terms ...Function) (*BlockSeparable, error) {
	children := k.Blocks()
	if len(terms) != len(children) {
		return nil, fmt.Errorf("fn: %d terms against %d blocks: %w",
			len(terms), len(children), vec.ErrShapeMismatch)
	}
	bs := &BlockSeparable{terms: terms, offsets: make([]int, len(terms)+1)}
	for i, child := range children {
		bs.shapes = append(bs.shapes, child.RangeShape())
		bs.offsets[i+1] = bs.offsets[i] + child.RangeShape().Size()
	}
	return bs, nil
}

func (bs *BlockSeparable) check(x *vec.Vector) error {
	if x.Len() != bs.offsets[len(bs.terms)] {
		return fmt.Errorf("fn: %d elements against block total %d: %w",
			x.Len(), bs.offsets[len(bs.terms)], vec.ErrShapeMismatch)
	}
	return nil
}

func (bs *BlockSeparable) split(x *vec.Vector) []*vec.Vector {
	parts := make([]*vec.Vector, len(bs.terms))
	for i := range bs.terms {
		parts[i] = vec.New(bs.shapes[i]...)
		copy(parts[i].Data(), x.Data()[bs.offsets[i]:bs.offsets[i+1]])
	}
	return parts
}

func (bs *BlockSeparable) Evaluate(x *vec.Vector) (float64, error) {
	if err := bs.check(x); err != nil {
		return 0, err
	}
	var total float64
	for i, part := range bs.split(x) {
		v, err := bs.terms[i].Evaluate(part)
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}

func (bs *BlockSeparable) Prox(x *vec.Vector, step float64) (*vec.Vector, error) {
	if err := checkStep(step); err != nil {
		return nil, err
	}
	if err := bs.check(x); err != nil {
		return nil, err
	}
	out := x.Zeros()
	for i, part := range bs.split(x) {
		p, err := ProxOf(bs.terms[i], part, step)
		if err != nil {
			return nil, err
		}
		copy(out.Data()[bs.offsets[i]:bs.offsets[i+1]], p.Data())
	}
	return out, nil
}

func (bs *BlockSeparable) ConjugateValue(y *vec.Vector) (float64, error) {
	if err := bs.check(y); err != nil {
		return 0, err
	}
	var total float64
	for i, part := range bs.split(y) {
		v, err := ConjugateOf(bs.terms[i], part)
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}
