package vec

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomVector(rng *rand.Rand, shape ...int) *Vector {
	v := New(shape...)
	d := v.Data()
	for i := range d {
		d[i] = rng.NormFloat64()
	}
	return v
}

func TestShape(t *testing.T) {
	s := Shape{3, 4}
	assert.Equal(t, 12, s.Size())
	assert.Equal(t, "3x4", s.String())
	assert.True(t, s.Equal(Shape{3, 4}))
	assert.False(t, s.Equal(Shape{4, 3}))
	assert.False(t, s.Equal(Shape{12}))
}

func TestOfRejectsWrongLength(t *testing.T) {
	_, err := Of([]float64{1, 2, 3}, 2, 2)
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestArithmeticShapeChecks(t *testing.T) {
	a := New(5)
	b := New(6)
	assert.ErrorIs(t, a.Add(a, b), ErrShapeMismatch)
	assert.ErrorIs(t, a.Sub(a, b), ErrShapeMismatch)
	assert.ErrorIs(t, a.AddScaled(a, 2, b), ErrShapeMismatch)
	assert.ErrorIs(t, a.Copy(b), ErrShapeMismatch)
	_, err := Dot(a, b)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestDotSymmetry(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 10; trial++ {
		a := randomVector(rng, 17)
		b := randomVector(rng, 17)
		ab, err := Dot(a, b)
		require.NoError(t, err)
		ba, err := Dot(b, a)
		require.NoError(t, err)
		assert.Equal(t, ab, ba)
	}
}

func TestNormProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for trial := 0; trial < 10; trial++ {
		a := randomVector(rng, 9)
		assert.GreaterOrEqual(t, Norm(a), 0.0)
	}
	z := New(9)
	assert.Equal(t, 0.0, Norm(z))
	z.Set(4, 1e-30)
	assert.Greater(t, Norm(z), 0.0)
}

func TestAddScaled(t *testing.T) {
	a, err := Of([]float64{1, 2, 3}, 3)
	require.NoError(t, err)
	b, err := Of([]float64{10, 10, 10}, 3)
	require.NoError(t, err)
	out := a.Zeros()
	require.NoError(t, out.AddScaled(a, 0.5, b))
	assert.Equal(t, []float64{6, 7, 8}, out.Data())
}

func TestClip(t *testing.T) {
	v, err := Of([]float64{-2, -0.5, 0.5, 2}, 4)
	require.NoError(t, err)
	v.Clip(-1, 1)
	assert.Equal(t, []float64{-1, -0.5, 0.5, 1}, v.Data())
}

func TestCloneIsIndependent(t *testing.T) {
	a := Full(3, 4)
	c := a.Clone()
	c.Set(0, -1)
	assert.Equal(t, 3.0, a.At(0))
	assert.Equal(t, -1.0, c.At(0))
}

func TestFinite(t *testing.T) {
	a := Full(1, 3)
	assert.True(t, Finite(a))
	a.Set(1, math.NaN())
	assert.False(t, Finite(a))
	a.Set(1, 1)
	a.Set(2, math.Inf(-1))
	assert.False(t, Finite(a))
}
