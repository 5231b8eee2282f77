package crs

import "errors"

var (
	// ErrRowNotOwned indicates an insertion into a row owned by another rank.
	ErrRowNotOwned = errors.New("crs: row not owned by this rank")
	// ErrInvalidEntry indicates mismatched, out-of-range or non-finite
	// column/value input.
	ErrInvalidEntry = errors.New("crs: invalid entry")
	// ErrFillComplete indicates a mutation or second finalize after
	// FillComplete.
	ErrFillComplete = errors.New("crs: fill already complete")
	// ErrMissingRank indicates that Assemble did not receive exactly one
	// finalized part per rank of the map.
	ErrMissingRank = errors.New("crs: missing or duplicate rank")
	// ErrRowNotFound indicates a row index outside the matrix.
	ErrRowNotFound = errors.New("crs: row not found")
)
