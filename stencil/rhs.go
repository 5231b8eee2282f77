package stencil

import (
	"fmt"
	"iter"
	"math/rand/v2"
)

// Value is one entry of a right-hand side vector.
type Value struct {
	Row   int
	Value float64
}

// ConstantRHS returns value for every global row in owned, in the order of
// owned.
func ConstantRHS(owned []int, value float64) iter.Seq[Value] {
	return func(yield func(Value) bool) {
		for _, r := range owned {
			if !yield(Value{Row: r, Value: value}) {
				return
			}
		}
	}
}

// RowReader gives read access to rows of an assembled matrix. The returned
// slices must not be modified.
type RowReader interface {
	Row(r int) (cols []int, vals []float64, err error)
}

// ResidualRHS returns (A*x)[r] for every global row r in owned, in the order
// of owned. The rows of A are read from a, x is indexed by global index
// minus indexBase.
//
// Every column referenced by a row must lie within x; otherwise the returned
// error wraps ErrInvalidArgument. Errors from a are wrapped with the row,
// and validation happens before the sequence is returned.
func ResidualRHS(owned []int, a RowReader, x []float64, indexBase int) (iter.Seq[Value], error) {
	vals := make([]float64, len(owned))
	for k, r := range owned {
		cols, coef, err := a.Row(r)
		if err != nil {
			return nil, fmt.Errorf("ResidualRHS: row %d: %w", r, err)
		}
		var dot float64
		for i, c := range cols {
			j := c - indexBase
			if j < 0 || len(x) <= j {
				return nil, fmt.Errorf("ResidualRHS: row %d: column %d outside x: %w", r, c, ErrInvalidArgument)
			}
			dot += coef[i] * x[j]
		}
		vals[k] = dot
	}
	return func(yield func(Value) bool) {
		for k, r := range owned {
			if !yield(Value{Row: r, Value: vals[k]}) {
				return
			}
		}
	}, nil
}

// Fill selects how NewVector initializes a vector.
type Fill int

const (
	// FillZero sets all entries to zero.
	FillZero Fill = iota
	// FillRandom draws entries uniformly from [-1, 1).
	FillRandom
)

func (f Fill) String() string {
	switch f {
	case FillZero:
		return "zero"
	case FillRandom:
		return "random"
	}
	return fmt.Sprintf("Fill(%d)", int(f))
}

// NewVector returns a vector of length n filled according to fill. rnd is
// only used by FillRandom and must then be non-nil.
func NewVector(n int, fill Fill, rnd *rand.Rand) []float64 {
	x := make([]float64, n)
	switch fill {
	case FillZero:
	case FillRandom:
		if rnd == nil {
			panic("stencil: nil random source")
		}
		for i := range x {
			x[i] = 2*rnd.Float64() - 1
		}
	default:
		panic("stencil: invalid fill")
	}
	return x
}
