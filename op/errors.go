package op

import "errors"

var (
	// ErrAdjointUnsupported is returned when the adjoint of an operator that
	// never declared one is requested, e.g. through a composite whose child
	// is nonlinear.
	ErrAdjointUnsupported = errors.New("op: adjoint unsupported")
)
