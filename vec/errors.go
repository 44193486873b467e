package vec

import "errors"

var (
	// ErrShapeMismatch is returned whenever two vectors with incompatible
	// shapes meet in an arithmetic operation, or a data slice does not fill
	// the requested shape. Shapes are never broadcast.
	ErrShapeMismatch = errors.New("vec: shape mismatch")
)
