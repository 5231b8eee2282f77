package crs

import (
	"fmt"
	"math"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/vladimir-ch/linsys/partition"
)

// Matrix is a square sparse matrix whose rows are distributed over the
// ranks of a partition.Map. It is immutable and safe for concurrent reads.
//
// Vectors passed to MatVec and MatTransVec are global, indexed by global
// index minus the index base of the map. Each rank computes the entries it
// owns in its own goroutine.
type Matrix struct {
	m      *partition.Map
	locals []*Local

	// where[g-base] locates global row g.
	where []loc
}

type loc struct {
	rank, row int
}

// Assemble joins the finalized parts of all ranks of m. It returns an error
// wrapping ErrMissingRank unless parts holds exactly one part per rank.
func Assemble(m *partition.Map, parts []*Local) (*Matrix, error) {
	locals := make([]*Local, m.NumRanks())
	for _, l := range parts {
		if l == nil || l.rank < 0 || len(locals) <= l.rank {
			return nil, fmt.Errorf("Assemble: %w", ErrMissingRank)
		}
		if locals[l.rank] != nil {
			return nil, fmt.Errorf("Assemble: rank %d given twice: %w", l.rank, ErrMissingRank)
		}
		if l.base != m.IndexBase() || l.n != m.NumGlobal() || !slices.Equal(l.rows, m.Owned(l.rank)) {
			return nil, fmt.Errorf("Assemble: rank %d built for another map: %w", l.rank, ErrMissingRank)
		}
		locals[l.rank] = l
	}
	where := make([]loc, m.NumGlobal())
	for r, l := range locals {
		if l == nil {
			return nil, fmt.Errorf("Assemble: rank %d not finalized: %w", r, ErrMissingRank)
		}
		for i, g := range l.rows {
			where[g-m.IndexBase()] = loc{rank: r, row: i}
		}
	}
	return &Matrix{m: m, locals: locals, where: where}, nil
}

// Map returns the row map of a.
func (a *Matrix) Map() *partition.Map { return a.m }

// Dims returns the dimensions of a.
func (a *Matrix) Dims() (r, c int) {
	n := a.m.NumGlobal()
	return n, n
}

// NNZ returns the number of stored entries.
func (a *Matrix) NNZ() int {
	var n int
	for _, l := range a.locals {
		n += l.NNZ()
	}
	return n
}

// Local returns the finalized part of rank.
func (a *Matrix) Local(rank int) *Local {
	return a.locals[rank]
}

// Row returns the global column indices and values of global row r. The
// returned slices are freshly allocated.
func (a *Matrix) Row(r int) (cols []int, vals []float64, err error) {
	if !a.m.Contains(r) {
		return nil, nil, fmt.Errorf("Row: %d: %w", r, ErrRowNotFound)
	}
	base := a.m.IndexBase()
	w := a.where[r-base]
	zc, v := a.locals[w.rank].row(w.row)
	cols = make([]int, len(zc))
	for k, c := range zc {
		cols[k] = c + base
	}
	vals = append([]float64(nil), v...)
	return cols, vals, nil
}

// At returns the entry at global position (i, j).
func (a *Matrix) At(i, j int) float64 {
	if !a.m.Contains(i) || !a.m.Contains(j) {
		panic("crs: index out of range")
	}
	base := a.m.IndexBase()
	w := a.where[i-base]
	cols, vals := a.locals[w.rank].row(w.row)
	for k, c := range cols {
		if c == j-base {
			return vals[k]
		}
	}
	return 0
}

// Diagonal returns the diagonal of a as a global vector.
func (a *Matrix) Diagonal() []float64 {
	d := make([]float64, a.m.NumGlobal())
	base := a.m.IndexBase()
	for _, l := range a.locals {
		for i, g := range l.rows {
			cols, vals := l.row(i)
			for k, c := range cols {
				if c == g-base {
					d[c] = vals[k]
				}
			}
		}
	}
	return d
}

// NormInf returns the maximum absolute row sum of a.
func (a *Matrix) NormInf() float64 {
	var norm float64
	for _, l := range a.locals {
		for i := range l.rows {
			_, vals := l.row(i)
			var s float64
			for _, v := range vals {
				s += math.Abs(v)
			}
			norm = math.Max(norm, s)
		}
	}
	return norm
}

// Do calls fn for every stored entry with global indices, rank by rank and
// row by row in the order of the map.
func (a *Matrix) Do(fn func(i, j int, v float64)) {
	base := a.m.IndexBase()
	for _, l := range a.locals {
		for i, g := range l.rows {
			cols, vals := l.row(i)
			for k, c := range cols {
				fn(g, c+base, vals[k])
			}
		}
	}
}

// MatVec computes dst = A*x.
func (a *Matrix) MatVec(dst, x []float64) {
	n := a.m.NumGlobal()
	if len(x) != n || len(dst) != n {
		panic("crs: dimension mismatch")
	}
	var g errgroup.Group
	for _, l := range a.locals {
		g.Go(func() error {
			l.mulVec(dst, x)
			return nil
		})
	}
	_ = g.Wait()
}

// MatTransVec computes dst = Aᵀ*x. Every rank accumulates its contribution
// into a private buffer; the buffers are summed in rank order.
func (a *Matrix) MatTransVec(dst, x []float64) {
	n := a.m.NumGlobal()
	if len(x) != n || len(dst) != n {
		panic("crs: dimension mismatch")
	}
	parts := make([][]float64, len(a.locals))
	var g errgroup.Group
	for r, l := range a.locals {
		g.Go(func() error {
			p := make([]float64, n)
			l.mulTransVecAdd(p, x)
			parts[r] = p
			return nil
		})
	}
	_ = g.Wait()
	for i := range dst {
		dst[i] = 0
	}
	for _, p := range parts {
		for i, v := range p {
			dst[i] += v
		}
	}
}
