// Package crs implements a row-distributed compressed sparse row matrix.
//
// Assembly follows an insert/finalize lifecycle. Every rank of a
// partition.Map owns a Builder that accepts entries only for its own rows.
// FillComplete freezes the structure of the rank's part, and Assemble joins
// one finalized part per rank into a Matrix ready for numerical operations.
package crs

import (
	"fmt"
	"math"

	"github.com/vladimir-ch/linsys/internal/triplet"
	"github.com/vladimir-ch/linsys/partition"
	"github.com/vladimir-ch/linsys/stencil"
)

// Builder collects the entries of the rows owned by one rank. A Builder is
// not safe for concurrent use; each rank uses its own.
type Builder struct {
	m     *partition.Map
	rank  int
	owned []int
	local map[int]int // global row -> local row

	stage  *triplet.Matrix
	filled bool
}

// NewBuilder returns an empty builder for the rows of m owned by rank.
func NewBuilder(m *partition.Map, rank int) *Builder {
	owned := m.Owned(rank)
	local := make(map[int]int, len(owned))
	for i, g := range owned {
		local[g] = i
	}
	return &Builder{
		m:     m,
		rank:  rank,
		owned: owned,
		local: local,
		stage: triplet.New(len(owned), m.NumGlobal()),
	}
}

// Rank returns the rank the builder assembles for.
func (b *Builder) Rank() int { return b.rank }

// InsertGlobalValues adds vals[k] to the entry (row, cols[k]) for every k.
// Entries inserted more than once at the same position are summed. The
// order of the columns is irrelevant.
func (b *Builder) InsertGlobalValues(row int, cols []int, vals []float64) error {
	if b.filled {
		return fmt.Errorf("InsertGlobalValues: row %d: %w", row, ErrFillComplete)
	}
	i, ok := b.local[row]
	if !ok {
		return fmt.Errorf("InsertGlobalValues: row %d on rank %d: %w", row, b.rank, ErrRowNotOwned)
	}
	if len(cols) != len(vals) {
		return fmt.Errorf("InsertGlobalValues: row %d: %d columns, %d values: %w", row, len(cols), len(vals), ErrInvalidEntry)
	}
	for k, c := range cols {
		if !b.m.Contains(c) {
			return fmt.Errorf("InsertGlobalValues: row %d: column %d: %w", row, c, ErrInvalidEntry)
		}
		if math.IsNaN(vals[k]) || math.IsInf(vals[k], 0) {
			return fmt.Errorf("InsertGlobalValues: row %d: column %d: value %v: %w", row, c, vals[k], ErrInvalidEntry)
		}
	}
	base := b.m.IndexBase()
	for k, c := range cols {
		b.stage.Append(i, c-base, vals[k])
	}
	return nil
}

// InsertRow inserts the entries of an assembled stencil row.
func (b *Builder) InsertRow(r stencil.Row) error {
	cols, vals := r.Cols()
	return b.InsertGlobalValues(r.Row, cols, vals)
}

// FillComplete compresses the staged entries and returns the finalized part
// of the rank. It must be called exactly once; later calls and insertions
// return an error wrapping ErrFillComplete.
func (b *Builder) FillComplete() (*Local, error) {
	if b.filled {
		return nil, fmt.Errorf("FillComplete: rank %d: %w", b.rank, ErrFillComplete)
	}
	b.filled = true
	rowPtr, colInd, vals := b.stage.CSR()
	b.stage = nil
	return &Local{
		rank:   b.rank,
		base:   b.m.IndexBase(),
		n:      b.m.NumGlobal(),
		rows:   b.owned,
		rowPtr: rowPtr,
		colInd: colInd,
		vals:   vals,
	}, nil
}

// Local is the finalized part of a matrix owned by one rank. Column indices
// are stored zero-based.
type Local struct {
	rank int
	base int
	n    int
	rows []int

	rowPtr []int
	colInd []int
	vals   []float64
}

// Rank returns the owning rank.
func (l *Local) Rank() int { return l.rank }

// NumRows returns the number of rows owned by the rank.
func (l *Local) NumRows() int { return len(l.rows) }

// NNZ returns the number of stored entries.
func (l *Local) NNZ() int { return len(l.vals) }

// Global returns the global index of local row i.
func (l *Local) Global(i int) int { return l.rows[i] }

// RowView returns the zero-based column indices and values of local row i.
// The slices alias the storage of l and must not be modified.
func (l *Local) RowView(i int) (cols []int, vals []float64) {
	return l.row(i)
}

func (l *Local) row(i int) ([]int, []float64) {
	lo, hi := l.rowPtr[i], l.rowPtr[i+1]
	return l.colInd[lo:hi], l.vals[lo:hi]
}

// mulVec computes the owned entries of dst = A*x.
func (l *Local) mulVec(dst, x []float64) {
	for i, g := range l.rows {
		cols, vals := l.row(i)
		var s float64
		for k, j := range cols {
			s += vals[k] * x[j]
		}
		dst[g-l.base] = s
	}
}

// mulTransVecAdd adds the contribution of the owned rows to dst = Aᵀ*x.
func (l *Local) mulTransVecAdd(dst, x []float64) {
	for i, g := range l.rows {
		xi := x[g-l.base]
		if xi == 0 {
			continue
		}
		cols, vals := l.row(i)
		for k, j := range cols {
			dst[j] += vals[k] * xi
		}
	}
}
