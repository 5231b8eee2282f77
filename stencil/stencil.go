// Package stencil assembles the rows of discretized differential operators
// over a partitioned global index space.
//
// The assembler is a pure function of its inputs. A worker passes the ordered
// list of global row indices it owns and receives one Row per index, in the
// same order, ready to be inserted into a sparse matrix builder. Validation
// happens up front; rows are generated lazily while the sequence is ranged
// over and nothing is retained afterwards.
package stencil

import (
	"fmt"
	"iter"
)

// Entry is a single coefficient of a row.
type Entry struct {
	Col   int
	Value float64
}

// Row holds the coefficients of one global row in increasing column order.
type Row struct {
	Row     int
	Entries []Entry
}

// Sum returns the sum of the coefficients of r.
func (r Row) Sum() float64 {
	var s float64
	for _, e := range r.Entries {
		s += e.Value
	}
	return s
}

// Cols returns the column indices and values of r as parallel slices.
func (r Row) Cols() (cols []int, vals []float64) {
	cols = make([]int, len(r.Entries))
	vals = make([]float64, len(r.Entries))
	for i, e := range r.Entries {
		cols[i] = e.Col
		vals[i] = e.Value
	}
	return cols, vals
}

// AssembleRows returns the rows of the n×n one-dimensional Laplacian
//
//	tridiag(-1, 2, -1)
//
// for the global indices in owned. Global indices range over
// [indexBase, indexBase+n).
//
// The first and last global rows have two entries, all others three. When
// n is one, the single row has only the diagonal entry 2.
//
// AssembleRows returns an error wrapping ErrInvalidArgument if n < 1 or any
// index in owned is outside the global index space. The rows are produced in
// the order of owned.
func AssembleRows(owned []int, n, indexBase int) (iter.Seq[Row], error) {
	if n < 1 {
		return nil, fmt.Errorf("AssembleRows: size %d: %w", n, ErrInvalidArgument)
	}
	if err := checkOwned(owned, n, indexBase); err != nil {
		return nil, fmt.Errorf("AssembleRows: %w", err)
	}
	return func(yield func(Row) bool) {
		for _, r := range owned {
			if !yield(Row{Row: r, Entries: laplace1D(r, n, indexBase)}) {
				return
			}
		}
	}, nil
}

func laplace1D(r, n, base int) []Entry {
	switch {
	case n == 1:
		return []Entry{{r, 2}}
	case r == base:
		return []Entry{{r, 2}, {r + 1, -1}}
	case r == base+n-1:
		return []Entry{{r - 1, -1}, {r, 2}}
	default:
		return []Entry{{r - 1, -1}, {r, 2}, {r + 1, -1}}
	}
}

func checkOwned(owned []int, n, indexBase int) error {
	for _, r := range owned {
		if r < indexBase || indexBase+n <= r {
			return fmt.Errorf("row %d not in [%d, %d): %w", r, indexBase, indexBase+n, ErrInvalidArgument)
		}
	}
	return nil
}
