package stencil

import "errors"

var (
	// ErrInvalidArgument indicates a problem size below one or a row
	// index outside the global index space.
	ErrInvalidArgument = errors.New("stencil: invalid argument")

	// ErrUnsupportedMatrixType indicates a matrix type selector outside
	// the supported set of stencils.
	ErrUnsupportedMatrixType = errors.New("stencil: unsupported matrix type")
)
