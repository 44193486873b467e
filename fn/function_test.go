package fn

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/lauramurgatroyd/cilgo/op"
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

func TestLeastSquaresValueAndGradient(t *testing.T) {
	a := op.NewMatrix(mat.NewDense(2, 2, []float64{2, 0, 0, 3}))
	b, err := vec.Of([]float64{1, 1}, 2)
	require.NoError(t, err)
	ls, err := NewLeastSquares(a, b)
	require.NoError(t, err)

	x, err := vec.Of([]float64{1, 1}, 2)
	require.NoError(t, err)
	// Ax - b = (1, 2), value 5, gradient 2A'(Ax-b) = (4, 12).
	v, err := ls.Evaluate(x)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, v, 1e-12)

	g, err := ls.Gradient(x)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{4, 12}, g.Data(), 1e-12)
}

func TestLeastSquaresShapeCheck(t *testing.T) {
	a := op.NewMatrix(mat.NewDense(2, 3, nil))
	_, err := NewLeastSquares(a, vec.New(3))
	assert.ErrorIs(t, err, vec.ErrShapeMismatch)
}

func TestCapabilityErrors(t *testing.T) {
	a := op.NewIdentity(3)
	ls, err := NewLeastSquares(a, vec.New(3))
	require.NoError(t, err)
	x := vec.New(3)

	_, err = ProxOf(ls, x, 1)
	assert.ErrorIs(t, err, ErrNotProximable)
	_, err = GradientOf(NewL1Norm(), x)
	assert.ErrorIs(t, err, ErrNotDifferentiable)
	_, err = ConjugateOf(ls, x)
	assert.ErrorIs(t, err, ErrNotConjugable)
}

func TestStepValidation(t *testing.T) {
	x := vec.New(3)
	for _, step := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := NewL1Norm().Prox(x, step)
		assert.ErrorIs(t, err, ErrStep)
	}
}

func TestL2NormSquaredProx(t *testing.T) {
	x, err := vec.Of([]float64{3, -6}, 2)
	require.NoError(t, err)
	// argmin ‖v‖² + 1/(2s)‖v-x‖² = x/(1+2s); s=1 halves... x/3.
	out, err := NewL2NormSquared().Prox(x, 1)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, -2}, out.Data(), 1e-12)
}

func TestL1NormProxSoftThresholds(t *testing.T) {
	x, err := vec.Of([]float64{3, -0.2, 0.2, -3}, 4)
	require.NoError(t, err)
	out, err := NewL1Norm().Prox(x, 0.5)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{2.5, 0, 0, -2.5}, out.Data(), 1e-12)
	// The input is left untouched.
	assert.Equal(t, []float64{3, -0.2, 0.2, -3}, x.Data())
}

func TestZeroProxIsIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	z := NewZero()
	for _, step := range []float64{0.01, 1, 100} {
		x := randomVector(rng, 6)
		out, err := z.Prox(x, step)
		require.NoError(t, err)
		assert.Equal(t, x.Data(), out.Data())
	}
}

func TestIndicatorBox(t *testing.T) {
	box := NewIndicatorBox(0, math.Inf(1))
	inside, err := vec.Of([]float64{0, 1, 2}, 3)
	require.NoError(t, err)
	outside, err := vec.Of([]float64{0, -1, 2}, 3)
	require.NoError(t, err)

	v, err := box.Evaluate(inside)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
	v, err = box.Evaluate(outside)
	require.NoError(t, err)
	assert.True(t, math.IsInf(v, 1))

	out, err := box.Prox(outside, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 2}, out.Data())
}

func TestIndicatorBoxConjugate(t *testing.T) {
	box := NewIndicatorBox(0, math.Inf(1))
	y, err := vec.Of([]float64{-1, 0, -2}, 3)
	require.NoError(t, err)
	v, err := box.ConjugateValue(y)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)

	y.Set(1, 0.5)
	v, err = box.ConjugateValue(y)
	require.NoError(t, err)
	assert.True(t, math.IsInf(v, 1))
}

func TestMixedL21(t *testing.T) {
	l21, err := NewMixedL21(2)
	require.NoError(t, err)
	// Two groups of length 2: points (3,4) and (0,0).
	x, err := vec.Of([]float64{3, 0, 4, 0}, 4)
	require.NoError(t, err)
	v, err := l21.Evaluate(x)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, v, 1e-12)

	out, err := l21.Prox(x, 1)
	require.NoError(t, err)
	// Group norm 5 shrinks by factor 1 - 1/5.
	assert.InDeltaSlice(t, []float64{2.4, 0, 3.2, 0}, out.Data(), 1e-12)

	_, err = l21.Evaluate(vec.New(5))
	assert.ErrorIs(t, err, vec.ErrShapeMismatch)
}

func TestScaledDistributes(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	x := randomVector(rng, 5)
	f := NewL2NormSquared()
	s := NewScaled(2.5, f)

	fv, err := f.Evaluate(x)
	require.NoError(t, err)
	sv, err := s.Evaluate(x)
	require.NoError(t, err)
	assert.InDelta(t, 2.5*fv, sv, 1e-12)

	fg, err := f.Gradient(x)
	require.NoError(t, err)
	sg, err := s.Gradient(x)
	require.NoError(t, err)
	for i := range fg.Data() {
		assert.InDelta(t, 2.5*fg.At(i), sg.At(i), 1e-12)
	}

	// prox_{αf}(x, s) == prox_f(x, αs)
	direct, err := f.Prox(x, 2.5*0.3)
	require.NoError(t, err)
	viaScaled, err := s.Prox(x, 0.3)
	require.NoError(t, err)
	assert.InDeltaSlice(t, direct.Data(), viaScaled.Data(), 1e-12)
}

func TestSumGradientAndNoProx(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	x := randomVector(rng, 4)
	b := randomVector(rng, 4)

	f1 := NewL2NormSquared()
	f2 := NewL2NormSquaredShifted(b)
	sum := NewSum(f1, f2)

	v, err := sum.Evaluate(x)
	require.NoError(t, err)
	v1, _ := f1.Evaluate(x)
	v2, _ := f2.Evaluate(x)
	assert.InDelta(t, v1+v2, v, 1e-12)

	g, err := sum.Gradient(x)
	require.NoError(t, err)
	g1, _ := f1.Gradient(x)
	g2, _ := f2.Gradient(x)
	for i := range g.Data() {
		assert.InDelta(t, g1.At(i)+g2.At(i), g.At(i), 1e-12)
	}

	_, err = ProxOf(sum, x, 1)
	assert.ErrorIs(t, err, ErrNotProximable)
}

func TestBlockSeparableProx(t *testing.T) {
	k, err := op.NewBlock(op.NewIdentity(3), op.NewIdentity(3))
	require.NoError(t, err)
	bs, err := NewBlockSeparable(k, NewL1Norm(), NewZero())
	require.NoError(t, err)

	x, err := vec.Of([]float64{2, -2, 0.1, 2, -2, 0.1}, 6)
	require.NoError(t, err)
	out, err := bs.Prox(x, 1)
	require.NoError(t, err)
	// First segment soft thresholded, second passed through by the zero term.
	assert.InDeltaSlice(t, []float64{1, -1, 0, 2, -2, 0.1}, out.Data(), 1e-12)
}

func TestProxConjugateMoreau(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	x := randomVector(rng, 6)
	sigma := 0.7
	// For f = ‖·‖², prox_{σf*}(x) = 2x/(σ+2) in closed form.
	out, err := ProxConjugate(NewL2NormSquared(), x, sigma)
	require.NoError(t, err)
	for i := range out.Data() {
		assert.InDelta(t, 2*x.At(i)/(sigma+2), out.At(i), 1e-12)
	}
}

func TestTotalVariationConstant(t *testing.T) {
	tv, err := NewTotalVariation(TVOptions{}, 4, 4)
	require.NoError(t, err)
	flat := vec.Full(2, 4, 4)
	v, err := tv.Evaluate(flat)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)

	out, err := tv.Prox(flat, 0.5)
	require.NoError(t, err)
	assert.InDeltaSlice(t, flat.Data(), out.Data(), 1e-10)
}

func TestTotalVariationProxDecreasesObjective(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	tv, err := NewTotalVariation(TVOptions{MaxIterations: 200, Tolerance: 1e-8}, 8, 8)
	require.NoError(t, err)

	x := randomVector(rng, 8, 8)
	step := 0.4
	out, err := tv.Prox(x, step)
	require.NoError(t, err)

	// step·TV(v) + ½‖v-x‖² must not exceed the objective at v = x.
	tvX, err := tv.Evaluate(x)
	require.NoError(t, err)
	tvOut, err := tv.Evaluate(out)
	require.NoError(t, err)
	diff := x.Zeros()
	require.NoError(t, diff.Sub(out, x))
	moved := vec.Norm(diff)
	assert.Less(t, step*tvOut+0.5*moved*moved, step*tvX)
	assert.Less(t, tvOut, tvX)
}
