package partition

import "errors"

var (
	// ErrInvalidArgument indicates a non-positive size or worker count.
	ErrInvalidArgument = errors.New("partition: invalid argument")
	// ErrNotDisjoint indicates a global index owned by more than one worker.
	ErrNotDisjoint = errors.New("partition: global index owned by more than one worker")
	// ErrIncomplete indicates a global index owned by no worker.
	ErrIncomplete = errors.New("partition: global index not owned by any worker")
	// ErrOutOfRange indicates an owned index outside the global index space.
	ErrOutOfRange = errors.New("partition: global index out of range")
)
