package precond

import "errors"

var (
	// ErrZeroDiagonal indicates a row whose diagonal entry is zero or
	// missing.
	ErrZeroDiagonal = errors.New("precond: zero diagonal entry")
	// ErrNoTranspose indicates that the transposed preconditioner solve
	// is not available for the relaxation type and matrix.
	ErrNoTranspose = errors.New("precond: transposed solve not available")
	// ErrUnknownType indicates an unsupported relaxation type name.
	ErrUnknownType = errors.New("precond: unknown relaxation type")
	// ErrInvalidArgument indicates invalid sweeps or damping.
	ErrInvalidArgument = errors.New("precond: invalid argument")
)
