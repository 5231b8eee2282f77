package crs

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gonum.org/v1/gonum/mat"

	"github.com/vladimir-ch/linsys/partition"
	"github.com/vladimir-ch/linsys/stencil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// build assembles p over m rank by rank.
func build(t *testing.T, p stencil.Problem, m *partition.Map) *Matrix {
	t.Helper()
	parts := make([]*Local, m.NumRanks())
	for r := range parts {
		rows, err := p.Rows(m.Owned(r))
		require.NoError(t, err)
		b := NewBuilder(m, r)
		for row := range rows {
			require.NoError(t, b.InsertRow(row))
		}
		parts[r], err = b.FillComplete()
		require.NoError(t, err)
	}
	a, err := Assemble(m, parts)
	require.NoError(t, err)
	return a
}

// reference returns p as a dense matrix assembled serially.
func reference(t *testing.T, p stencil.Problem) *mat.Dense {
	t.Helper()
	n := p.NumRows()
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		row, err := p.Row(p.IndexBase + i)
		require.NoError(t, err)
		for _, e := range row.Entries {
			d.Set(i, e.Col-p.IndexBase, e.Value)
		}
	}
	return d
}

func maps(t *testing.T, nodes, base, dofs int) map[string]*partition.Map {
	t.Helper()
	out := make(map[string]*partition.Map)
	for _, ranks := range []int{1, 3, 4} {
		u, err := partition.NewUniform(nodes, base, ranks)
		require.NoError(t, err)
		c, err := partition.NewCyclic(nodes, base, ranks)
		require.NoError(t, err)
		for name, m := range map[string]*partition.Map{"uniform": u, "cyclic": c} {
			e, err := m.Expand(dofs)
			require.NoError(t, err)
			out[fmt.Sprintf("%s-%d", name, ranks)] = e
		}
	}
	return out
}

func TestMatVecMatchesDense(t *testing.T) {
	rnd := rand.New(rand.NewPCG(1, 2))
	for _, k := range stencil.Kinds() {
		for _, base := range []int{0, 1} {
			p := stencil.Problem{Kind: k, N: 11, Grid: stencil.Grid{Nx: 4, Ny: 3, Nz: 3}, IndexBase: base}
			want := reference(t, p)
			for name, m := range maps(t, p.NumNodes(), base, k.DofsPerNode()) {
				t.Run(fmt.Sprintf("%v/base=%d/%s", k, base, name), func(t *testing.T) {
					a := build(t, p, m)
					n := p.NumRows()
					x := stencil.NewVector(n, stencil.FillRandom, rnd)

					got := make([]float64, n)
					a.MatVec(got, x)
					var ref mat.VecDense
					ref.MulVec(want, mat.NewVecDense(n, x))
					require.InDeltaSlice(t, ref.RawVector().Data, got, 1e-13)

					a.MatTransVec(got, x)
					ref.MulVec(want.T(), mat.NewVecDense(n, x))
					require.InDeltaSlice(t, ref.RawVector().Data, got, 1e-13)

					for i := 0; i < n; i++ {
						require.Equal(t, want.At(i, i), a.Diagonal()[i])
					}
				})
			}
		}
	}
}

func TestAccessors(t *testing.T) {
	p := stencil.Problem{Kind: stencil.Laplace1D, N: 5, IndexBase: 1}
	m, err := partition.NewUniform(5, 1, 2)
	require.NoError(t, err)
	a := build(t, p, m)

	r, c := a.Dims()
	require.Equal(t, 5, r)
	require.Equal(t, 5, c)
	require.Equal(t, 13, a.NNZ())
	require.Equal(t, 4.0, a.NormInf())
	require.Equal(t, 2.0, a.At(3, 3))
	require.Equal(t, -1.0, a.At(3, 4))
	require.Equal(t, 0.0, a.At(1, 5))
	require.Panics(t, func() { a.At(0, 1) })

	cols, vals, err := a.Row(5)
	require.NoError(t, err)
	require.Equal(t, []int{4, 5}, cols)
	require.Equal(t, []float64{-1, 2}, vals)
	_, _, err = a.Row(6)
	require.ErrorIs(t, err, ErrRowNotFound)

	l := a.Local(1)
	require.Equal(t, 1, l.Rank())
	require.Equal(t, 2, l.NumRows())
	require.Equal(t, 4, l.Global(0))
	zc, zv := l.RowView(1)
	require.Equal(t, []int{3, 4}, zc)
	require.Equal(t, []float64{-1, 2}, zv)

	var count int
	var sum float64
	a.Do(func(i, j int, v float64) {
		require.True(t, m.Contains(i) && m.Contains(j))
		count++
		sum += v
	})
	require.Equal(t, a.NNZ(), count)
	require.Equal(t, 2.0, sum)
}

func TestBuilderLifecycle(t *testing.T) {
	m, err := partition.NewUniform(6, 0, 2)
	require.NoError(t, err)
	b := NewBuilder(m, 0)
	require.Equal(t, 0, b.Rank())

	err = b.InsertGlobalValues(4, []int{4}, []float64{1})
	require.ErrorIs(t, err, ErrRowNotOwned)
	err = b.InsertGlobalValues(0, []int{0, 1}, []float64{1})
	require.ErrorIs(t, err, ErrInvalidEntry)
	err = b.InsertGlobalValues(0, []int{6}, []float64{1})
	require.ErrorIs(t, err, ErrInvalidEntry)
	err = b.InsertGlobalValues(0, []int{0}, []float64{math.NaN()})
	require.ErrorIs(t, err, ErrInvalidEntry)
	err = b.InsertGlobalValues(0, []int{0}, []float64{math.Inf(-1)})
	require.ErrorIs(t, err, ErrInvalidEntry)

	// Duplicates are summed and columns sorted; off-rank columns are fine.
	require.NoError(t, b.InsertGlobalValues(1, []int{5, 1}, []float64{3, 1}))
	require.NoError(t, b.InsertGlobalValues(1, []int{1}, []float64{2}))

	l, err := b.FillComplete()
	require.NoError(t, err)
	require.Equal(t, 3, l.NumRows())
	require.Equal(t, 2, l.NNZ())
	cols, vals := l.RowView(1)
	require.Equal(t, []int{1, 5}, cols)
	require.Equal(t, []float64{3, 3}, vals)
	cols, _ = l.RowView(0)
	require.Empty(t, cols)

	_, err = b.FillComplete()
	require.ErrorIs(t, err, ErrFillComplete)
	err = b.InsertGlobalValues(0, []int{0}, []float64{1})
	require.ErrorIs(t, err, ErrFillComplete)
}

func TestAssembleErrors(t *testing.T) {
	m, err := partition.NewUniform(4, 0, 2)
	require.NoError(t, err)
	finalize := func(m *partition.Map, rank int) *Local {
		l, err := NewBuilder(m, rank).FillComplete()
		require.NoError(t, err)
		return l
	}
	l0, l1 := finalize(m, 0), finalize(m, 1)

	_, err = Assemble(m, []*Local{l0})
	require.ErrorIs(t, err, ErrMissingRank)
	_, err = Assemble(m, []*Local{l0, l0})
	require.ErrorIs(t, err, ErrMissingRank)
	_, err = Assemble(m, []*Local{l0, nil})
	require.ErrorIs(t, err, ErrMissingRank)

	other, err := partition.NewUniform(4, 1, 2)
	require.NoError(t, err)
	_, err = Assemble(m, []*Local{l0, finalize(other, 1)})
	require.ErrorIs(t, err, ErrMissingRank)

	// Same base and local row count, different global size.
	wide, err := partition.NewUniform(8, 0, 4)
	require.NoError(t, err)
	single, err := partition.NewUniform(2, 0, 1)
	require.NoError(t, err)
	_, err = Assemble(single, []*Local{finalize(wide, 0)})
	require.ErrorIs(t, err, ErrMissingRank)

	// Same sizes, different ownership.
	cyclic, err := partition.NewCyclic(4, 0, 2)
	require.NoError(t, err)
	_, err = Assemble(m, []*Local{finalize(cyclic, 0), finalize(cyclic, 1)})
	require.ErrorIs(t, err, ErrMissingRank)

	a, err := Assemble(m, []*Local{l1, l0})
	require.NoError(t, err)
	require.Equal(t, 0, a.NNZ())
}

func TestConcurrentMatVec(t *testing.T) {
	p := stencil.Problem{Kind: stencil.Laplace3D, Grid: stencil.Grid{Nx: 6, Ny: 5, Nz: 4}}
	m, err := partition.NewUniform(p.NumRows(), 0, 5)
	require.NoError(t, err)
	a := build(t, p, m)
	n := p.NumRows()
	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}
	want := make([]float64, n)
	a.MatVec(want, ones)

	done := make(chan []float64)
	for range 4 {
		go func() {
			dst := make([]float64, n)
			a.MatVec(dst, ones)
			done <- dst
		}()
	}
	for range 4 {
		require.Equal(t, want, <-done)
	}
}
