package partition

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// requireCover checks that the owned lists of m cover the global index space
// exactly once each and agree with Owner.
func requireCover(t *testing.T, m *Map) {
	t.Helper()
	lists := make([][]int, m.NumRanks())
	total := 0
	for r := range lists {
		lists[r] = m.Owned(r)
		require.Len(t, lists[r], m.NumLocal(r))
		total += len(lists[r])
		for _, g := range lists[r] {
			owner, ok := m.Owner(g)
			require.True(t, ok, "index %d", g)
			require.Equal(t, r, owner, "owner of %d", g)
		}
	}
	require.Equal(t, m.NumGlobal(), total)
	require.NoError(t, ValidateCover(m.NumGlobal(), m.IndexBase(), lists))
}

func TestNewUniform(t *testing.T) {
	for _, n := range []int{1, 2, 7, 50, 101} {
		for _, ranks := range []int{1, 2, 3, 4, 8, 120} {
			for _, base := range []int{0, 1} {
				t.Run(fmt.Sprintf("n=%d/ranks=%d/base=%d", n, ranks, base), func(t *testing.T) {
					m, err := NewUniform(n, base, ranks)
					require.NoError(t, err)
					require.Equal(t, ranks, m.NumRanks())
					require.True(t, m.IsContiguous())
					requireCover(t, m)
					for r := 0; r < ranks; r++ {
						want := n / ranks
						if r < n%ranks {
							want++
						}
						require.Equal(t, want, m.NumLocal(r), "rank %d", r)
					}
				})
			}
		}
	}
}

func TestNewUniformBlocks(t *testing.T) {
	m, err := NewUniform(10, 1, 3)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3, 4}, m.Owned(0))
	require.Equal(t, []int{5, 6, 7}, m.Owned(1))
	require.Equal(t, []int{8, 9, 10}, m.Owned(2))
}

func TestNewCyclic(t *testing.T) {
	m, err := NewCyclic(7, 0, 3)
	require.NoError(t, err)
	require.False(t, m.IsContiguous())
	require.Equal(t, []int{0, 3, 6}, m.Owned(0))
	require.Equal(t, []int{1, 4}, m.Owned(1))
	require.Equal(t, []int{2, 5}, m.Owned(2))
	requireCover(t, m)

	one, err := NewCyclic(5, 1, 1)
	require.NoError(t, err)
	require.True(t, one.IsContiguous())
}

func TestNewFromLists(t *testing.T) {
	m, err := NewFromLists(6, 1, [][]int{{6, 2}, {1, 3, 5}, {4}})
	require.NoError(t, err)
	require.False(t, m.IsContiguous())
	require.Equal(t, []int{6, 2}, m.Owned(0), "order within a list is kept")
	requireCover(t, m)

	_, err = NewFromLists(4, 0, [][]int{{0, 1}, {1, 2, 3}})
	require.ErrorIs(t, err, ErrNotDisjoint)
	_, err = NewFromLists(4, 0, [][]int{{0, 1}, {3}})
	require.ErrorIs(t, err, ErrIncomplete)
	_, err = NewFromLists(4, 0, [][]int{{0, 1, 2, 3, 4}})
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = NewFromLists(4, 1, [][]int{{0, 1, 2, 3}})
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestNewFromListsCopies(t *testing.T) {
	lists := [][]int{{0, 1}, {2}}
	m, err := NewFromLists(3, 0, lists)
	require.NoError(t, err)
	lists[0][0] = 2
	require.Equal(t, []int{0, 1}, m.Owned(0))

	owned := m.Owned(1)
	owned[0] = 0
	require.Equal(t, []int{2}, m.Owned(1))
}

func TestInvalidSizes(t *testing.T) {
	_, err := NewUniform(0, 0, 2)
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewUniform(5, 0, 0)
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewCyclic(-1, 0, 2)
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewFromLists(3, 0, nil)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestOwner(t *testing.T) {
	m, err := NewUniform(5, 1, 2)
	require.NoError(t, err)
	for _, g := range []int{0, 6, -3} {
		require.False(t, m.Contains(g))
		_, ok := m.Owner(g)
		require.False(t, ok)
	}
	r, ok := m.Owner(4)
	require.True(t, ok)
	require.Equal(t, 1, r)
	require.Panics(t, func() { m.Owned(2) })
}

func TestExpand(t *testing.T) {
	nodes, err := NewUniform(5, 1, 2)
	require.NoError(t, err)
	e, err := nodes.Expand(3)
	require.NoError(t, err)
	require.Equal(t, 15, e.NumGlobal())
	require.Equal(t, 1, e.IndexBase())
	require.True(t, e.IsContiguous())
	require.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9}, e.Owned(0))
	require.Equal(t, []int{10, 11, 12, 13, 14, 15}, e.Owned(1))
	requireCover(t, e)

	cyc, err := NewCyclic(3, 0, 2)
	require.NoError(t, err)
	ec, err := cyc.Expand(2)
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 4, 5}, ec.Owned(0))
	require.Equal(t, []int{2, 3}, ec.Owned(1))
	requireCover(t, ec)

	same, err := nodes.Expand(1)
	require.NoError(t, err)
	require.Same(t, nodes, same)

	_, err = nodes.Expand(0)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestString(t *testing.T) {
	m, err := NewCyclic(4, 0, 2)
	require.NoError(t, err)
	require.Equal(t, "Map{NumGlobal: 4, IndexBase: 0, NumRanks: 2, Contiguous: false}", m.String())
}
