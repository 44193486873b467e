package op

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/lauramurgatroyd/cilgo/vec"
)

func randomVector(rng *rand.Rand, shape ...int) *vec.Vector {
	v := vec.New(shape...)
	d := v.Data()
	for i := range d {
		d[i] = rng.NormFloat64()
	}
	return v
}

func randomDense(rng *rand.Rand, r, c int) *mat.Dense {
	data := make([]float64, r*c)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	return mat.NewDense(r, c, data)
}

// checkAdjoint verifies <A x, y> == <x, A' y> for random x, y.
func checkAdjoint(t *testing.T, a Linear, rng *rand.Rand) {
	t.Helper()
	for trial := 0; trial < 5; trial++ {
		x := randomVector(rng, a.DomainShape()...)
		y := randomVector(rng, a.RangeShape()...)

		ax, err := a.Apply(x)
		require.NoError(t, err)
		aty, err := a.Adjoint(y)
		require.NoError(t, err)

		lhs, err := vec.Dot(ax, y)
		require.NoError(t, err)
		rhs, err := vec.Dot(x, aty)
		require.NoError(t, err)
		assert.InDelta(t, lhs, rhs, 1e-10*math.Max(1, math.Abs(lhs)))
	}
}

func TestIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	id := NewIdentity(6)
	checkAdjoint(t, id, rng)

	x := randomVector(rng, 6)
	y, err := id.Apply(x)
	require.NoError(t, err)
	assert.Equal(t, x.Data(), y.Data())

	_, err = id.Apply(vec.New(7))
	assert.ErrorIs(t, err, vec.ErrShapeMismatch)
}

func TestMatrixAdjoint(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	a := NewMatrix(randomDense(rng, 4, 7))
	assert.True(t, a.DomainShape().Equal(vec.Shape{7}))
	assert.True(t, a.RangeShape().Equal(vec.Shape{4}))
	checkAdjoint(t, a, rng)
}

func TestScaledAdjoint(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	a := NewScaled(-2.5, NewMatrix(randomDense(rng, 3, 5)))
	checkAdjoint(t, a, rng)
}

func TestComposedAdjoint(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	inner := NewMatrix(randomDense(rng, 4, 6))
	outer := NewMatrix(randomDense(rng, 3, 4))
	c, err := NewComposed(outer, inner)
	require.NoError(t, err)
	assert.True(t, c.DomainShape().Equal(vec.Shape{6}))
	assert.True(t, c.RangeShape().Equal(vec.Shape{3}))
	checkAdjoint(t, c, rng)
}

func TestComposedShapeCheck(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	inner := NewMatrix(randomDense(rng, 4, 6))
	outer := NewMatrix(randomDense(rng, 3, 5))
	_, err := NewComposed(outer, inner)
	assert.ErrorIs(t, err, vec.ErrShapeMismatch)
}

func TestFiniteDifference1D(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	d, err := NewFiniteDifference(8)
	require.NoError(t, err)
	checkAdjoint(t, d, rng)

	x, err := vec.Of([]float64{1, 2, 4, 4}, 4)
	require.NoError(t, err)
	d4, err := NewFiniteDifference(4)
	require.NoError(t, err)
	y, err := d4.Apply(x)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 0, 0}, y.Data())

	// The gradient of a constant image is zero.
	flat := vec.Full(3, 4)
	y, err = d4.Apply(flat)
	require.NoError(t, err)
	assert.Equal(t, 0.0, vec.Norm(y))
}

func TestFiniteDifference2D(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	d, err := NewFiniteDifference(5, 3)
	require.NoError(t, err)
	assert.True(t, d.RangeShape().Equal(vec.Shape{2, 5, 3}))
	checkAdjoint(t, d, rng)
}

func TestFiniteDifferenceRejects3D(t *testing.T) {
	_, err := NewFiniteDifference(2, 2, 2)
	assert.ErrorIs(t, err, vec.ErrShapeMismatch)
}

// square is a deliberately nonlinear operator for the capability checks.
type square struct{ shape vec.Shape }

func (s square) DomainShape() vec.Shape { return s.shape }
func (s square) RangeShape() vec.Shape  { return s.shape }
func (s square) Apply(x *vec.Vector) (*vec.Vector, error) {
	y := x.Clone()
	return y, y.MulElem(y, y)
}

func TestAdjointOfNonlinear(t *testing.T) {
	s := square{shape: vec.Shape{3}}
	_, err := AdjointOf(s, vec.New(3))
	assert.ErrorIs(t, err, ErrAdjointUnsupported)
}

func TestBlockApplyAndAdjoint(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	a := NewMatrix(randomDense(rng, 4, 6))
	d, err := NewFiniteDifference(6)
	require.NoError(t, err)
	b, err := NewBlock(a, NewScaled(0.1, d))
	require.NoError(t, err)
	assert.True(t, b.RangeShape().Equal(vec.Shape{10}))
	checkAdjoint(t, b, rng)

	// Segments line up with the children applied separately.
	x := randomVector(rng, 6)
	y, err := b.Apply(x)
	require.NoError(t, err)
	first, err := b.Segment(y, 0)
	require.NoError(t, err)
	direct, err := a.Apply(x)
	require.NoError(t, err)
	assert.InDeltaSlice(t, direct.Data(), first.Data(), 1e-14)
}

func TestBlockDomainCheck(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	a := NewMatrix(randomDense(rng, 4, 6))
	b := NewMatrix(randomDense(rng, 4, 5))
	_, err := NewBlock(a, b)
	assert.ErrorIs(t, err, vec.ErrShapeMismatch)
}

func TestBlockAdjointNonlinearChild(t *testing.T) {
	b, err := NewBlock(NewIdentity(3), square{shape: vec.Shape{3}})
	require.NoError(t, err)
	_, err = b.Adjoint(vec.New(6))
	assert.ErrorIs(t, err, ErrAdjointUnsupported)
}

func TestPowerIteration(t *testing.T) {
	// Diagonal matrix: the norm is the largest absolute diagonal entry.
	m := mat.NewDense(4, 4, []float64{
		0.5, 0, 0, 0,
		0, -3, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 2,
	})
	norm, err := PowerIteration(NewMatrix(m), PowerIterationOptions{MaxIterations: 200, Tolerance: 1e-10})
	require.NoError(t, err)
	assert.InDelta(t, 3.0, norm, 1e-6)
}

func TestPowerIterationIdentity(t *testing.T) {
	norm, err := PowerIteration(NewIdentity(5), PowerIterationOptions{})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, norm, 1e-8)
}
