package op

import (
	"fmt"

	"github.com/lauramurgatroyd/cilgo/vec"
)

// FiniteDifference is the forward-difference gradient operator with Neumann
// boundary conditions: the difference across the last element of an axis is
// zero. On a 1-D shape [n] the range is [n]; on a 2-D shape [ny nx] the
// range stacks one difference plane per axis into [2 ny nx]. The adjoint is
// the negative divergence with the matching boundary handling, so the
// adjoint identity <Dx, y> = <x, D'y> holds exactly.
type FiniteDifference struct {
	domain vec.Shape
	rng    vec.Shape
}

// NewFiniteDifference returns the gradient operator on vectors of the given
// shape. Only 1-D and 2-D shapes are supported.
func NewFiniteDifference(shape ...int) (*FiniteDifference, error) {
	probe := vec.New(shape...)
	domain := probe.Shape()
	switch len(domain) {
	case 1:
		return &FiniteDifference{domain: domain, rng: vec.Shape{domain[0]}}, nil
	case 2:
		return &FiniteDifference{domain: domain, rng: vec.Shape{2, domain[0], domain[1]}}, nil
	}
	return nil, fmt.Errorf("op: finite differences need a 1-D or 2-D domain, got %v: %w",
		domain, vec.ErrShapeMismatch)
}

func (d *FiniteDifference) DomainShape() vec.Shape { return d.domain }
func (d *FiniteDifference) RangeShape() vec.Shape  { return d.rng }

func (d *FiniteDifference) Apply(x *vec.Vector) (*vec.Vector, error) {
	if err := checkShape(x, d.domain); err != nil {
		return nil, err
	}
	y := vec.New(d.rng...)
	src := x.Data()
	if len(d.domain) == 1 {
		forwardDiff(y.Data(), src)
		return y, nil
	}
	ny, nx := d.domain[0], d.domain[1]
	dst := y.Data()
	// Plane 0 differentiates down the rows, plane 1 across the columns.
	for c := 0; c < nx; c++ {
		forwardDiffStrided(dst[c:], src[c:], ny, nx)
	}
	for r := 0; r < ny; r++ {
		forwardDiff(dst[ny*nx+r*nx:ny*nx+r*nx+nx], src[r*nx:r*nx+nx])
	}
	return y, nil
}

func (d *FiniteDifference) Adjoint(y *vec.Vector) (*vec.Vector, error) {
	if err := checkShape(y, d.rng); err != nil {
		return nil, err
	}
	x := vec.New(d.domain...)
	dst := x.Data()
	src := y.Data()
	if len(d.domain) == 1 {
		adjointDiff(dst, src)
		return x, nil
	}
	ny, nx := d.domain[0], d.domain[1]
	for c := 0; c < nx; c++ {
		adjointDiffStrided(dst[c:], src[c:], ny, nx)
	}
	for r := 0; r < ny; r++ {
		adjointDiff(dst[r*nx:r*nx+nx], src[ny*nx+r*nx:ny*nx+r*nx+nx])
	}
	return x, nil
}

// forwardDiff writes dst[i] = src[i+1] - src[i] with a zero in the last
// slot. dst and src hold n contiguous elements.
func forwardDiff(dst, src []float64) {
	n := len(src)
	for i := 0; i+1 < n; i++ {
		dst[i] = src[i+1] - src[i]
	}
	dst[n-1] = 0
}

func forwardDiffStrided(dst, src []float64, n, stride int) {
	for i := 0; i+1 < n; i++ {
		dst[i*stride] = src[(i+1)*stride] - src[i*stride]
	}
	dst[(n-1)*stride] = 0
}

// adjointDiff accumulates the transpose of forwardDiff into dst:
// dst[j] += src[j-1] - src[j], with the missing terms dropped at the ends.
func adjointDiff(dst, src []float64) {
	n := len(src)
	for j := 0; j < n; j++ {
		var v float64
		if j > 0 {
			v += src[j-1]
		}
		if j+1 < n {
			v -= src[j]
		}
		dst[j] += v
	}
}

func adjointDiffStrided(dst, src []float64, n, stride int) {
	for j := 0; j < n; j++ {
		var v float64
		if j > 0 {
			v += src[(j-1)*stride]
		}
		if j+1 < n {
			v -= src[j*stride]
		}
		dst[j*stride] += v
	}
}
