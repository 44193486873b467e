// Package vec holds the dense vector type shared by every operator, function
// and solver in the module. A Vector is a fixed-shape array of float64; the
// shape is set at creation and never changes afterwards. All arithmetic is
// shape checked and returns ErrShapeMismatch on disagreement.
package vec

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Shape describes the extents of a vector along each axis. A flat signal has
// one entry, an image two, a stacked gradient field three.
type Shape []int

// Size returns the total number of elements a vector of this shape holds.
func (s Shape) Size() int {
	size := 1
	for _, n := range s {
		size *= n
	}
	return size
}

// Equal reports whether two shapes agree axis by axis.
func (s Shape) Equal(o Shape) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, n := range s {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, "x")
}

func (s Shape) clone() Shape {
	c := make(Shape, len(s))
	copy(c, s)
	return c
}

// Vector is a fixed-shape dense array. The element storage is a gonum
// VecDense so matrix-backed operators can multiply into it directly.
type Vector struct {
	shape Shape
	data  *mat.VecDense
}

// New returns a zero vector of the given shape. It panics on an empty or
// non-positive shape, which is a programming error rather than a runtime
// condition.
func New(shape ...int) *Vector {
	s := Shape(shape)
	if len(s) == 0 {
		panic("vec: empty shape")
	}
	for _, n := range s {
		if n <= 0 {
			panic("vec: non-positive axis length " + strconv.Itoa(n))
		}
	}
	return &Vector{shape: s.clone(), data: mat.NewVecDense(s.Size(), nil)}
}

// Of returns a vector of the given shape initialised with data. The data
// slice is copied, not retained.
func Of(data []float64, shape ...int) (*Vector, error) {
	v := New(shape...)
	if len(data) != v.Len() {
		return nil, fmt.Errorf("vec: %d elements do not fill shape %v: %w",
			len(data), v.shape, ErrShapeMismatch)
	}
	copy(v.Data(), data)
	return v, nil
}

// Full returns a vector of the given shape with every element set to value.
func Full(value float64, shape ...int) *Vector {
	v := New(shape...)
	v.Fill(value)
	return v
}

// Shape returns the vector's shape. Callers must not modify it.
func (v *Vector) Shape() Shape { return v.shape }

// Len returns the total number of elements.
func (v *Vector) Len() int { return v.data.Len() }

// Data returns the backing element slice. Writes through it are visible to
// the vector; the shape cannot be changed through it.
func (v *Vector) Data() []float64 { return v.data.RawVector().Data }

// Raw returns the vector as a gonum VecDense for matrix multiplication.
func (v *Vector) Raw() *mat.VecDense { return v.data }

// At returns the element at flat index i.
func (v *Vector) At(i int) float64 { return v.data.AtVec(i) }

// Set assigns the element at flat index i.
func (v *Vector) Set(i int, x float64) { v.data.SetVec(i, x) }

// Clone returns an independent copy of v.
func (v *Vector) Clone() *Vector {
	c := &Vector{shape: v.shape.clone(), data: mat.NewVecDense(v.Len(), nil)}
	c.data.CopyVec(v.data)
	return c
}

// Zeros returns a new zero vector with the same shape as v.
func (v *Vector) Zeros() *Vector {
	return &Vector{shape: v.shape.clone(), data: mat.NewVecDense(v.Len(), nil)}
}

// Fill sets every element to value.
func (v *Vector) Fill(value float64) {
	d := v.Data()
	for i := range d {
		d[i] = value
	}
}

func (v *Vector) check(others ...*Vector) error {
	for _, o := range others {
		if !v.shape.Equal(o.shape) {
			return fmt.Errorf("vec: %v against %v: %w", v.shape, o.shape, ErrShapeMismatch)
		}
	}
	return nil
}

// Copy overwrites v with a.
func (v *Vector) Copy(a *Vector) error {
	if err := v.check(a); err != nil {
		return err
	}
	v.data.CopyVec(a.data)
	return nil
}

// Add stores a + b into v. Any of the arguments may alias v.
func (v *Vector) Add(a, b *Vector) error {
	if err := v.check(a, b); err != nil {
		return err
	}
	v.data.AddVec(a.data, b.data)
	return nil
}

// Sub stores a - b into v. Any of the arguments may alias v.
func (v *Vector) Sub(a, b *Vector) error {
	if err := v.check(a, b); err != nil {
		return err
	}
	v.data.SubVec(a.data, b.data)
	return nil
}

// AddScaled stores a + alpha*b into v. Any of the arguments may alias v.
func (v *Vector) AddScaled(a *Vector, alpha float64, b *Vector) error {
	if err := v.check(a, b); err != nil {
		return err
	}
	v.data.AddScaledVec(a.data, alpha, b.data)
	return nil
}

// Scale stores alpha*a into v. The argument may alias v.
func (v *Vector) Scale(alpha float64, a *Vector) error {
	if err := v.check(a); err != nil {
		return err
	}
	v.data.ScaleVec(alpha, a.data)
	return nil
}

// MulElem stores the elementwise product a*b into v.
func (v *Vector) MulElem(a, b *Vector) error {
	if err := v.check(a, b); err != nil {
		return err
	}
	v.data.MulElemVec(a.data, b.data)
	return nil
}

// Clip bounds every element of v into [lo, hi] in place.
func (v *Vector) Clip(lo, hi float64) {
	d := v.Data()
	for i, x := range d {
		if x < lo {
			d[i] = lo
		} else if x > hi {
			d[i] = hi
		}
	}
}

// Dot returns the inner product of a and b.
func Dot(a, b *Vector) (float64, error) {
	if err := a.check(b); err != nil {
		return 0, err
	}
	return floats.Dot(a.Data(), b.Data()), nil
}

// Norm returns the Euclidean norm of a.
func Norm(a *Vector) float64 {
	return floats.Norm(a.Data(), 2)
}

// NormInf returns the maximum absolute element of a.
func NormInf(a *Vector) float64 {
	return floats.Norm(a.Data(), math.Inf(1))
}

// Sum returns the sum of the elements of a.
func Sum(a *Vector) float64 {
	return floats.Sum(a.Data())
}

// Finite reports whether every element of a is free of NaN and Inf.
func Finite(a *Vector) bool {
	for _, x := range a.Data() {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
