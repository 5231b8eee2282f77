// Package partition distributes a global index space over a fixed number of
// workers.
//
// A Map assigns every global index in [IndexBase, IndexBase+NumGlobal) to
// exactly one worker (rank). Each rank sees its indices as an ordered list;
// the stencil assembler produces rows in that order and the crs builder of
// the rank accepts exactly those rows. A Map is immutable once constructed.
package partition

import (
	"fmt"
	"slices"
)

// Map is a disjoint, complete cover of a contiguous global index space.
type Map struct {
	numGlobal int
	indexBase int

	owned [][]int
	// owner[g-indexBase] is the rank owning global index g.
	owner []int

	contiguous bool
}

// NewUniform returns a map with contiguous blocks of nearly equal size. Rank
// r owns n/ranks indices, plus one more when r < n%ranks. Ranks beyond n own
// nothing.
func NewUniform(n, indexBase, ranks int) (*Map, error) {
	if err := checkSizes(n, ranks); err != nil {
		return nil, fmt.Errorf("NewUniform: %w", err)
	}
	lists := make([][]int, ranks)
	q, rem := n/ranks, n%ranks
	start := indexBase
	for r := range lists {
		cnt := q
		if r < rem {
			cnt++
		}
		list := make([]int, cnt)
		for i := range list {
			list[i] = start + i
		}
		lists[r] = list
		start += cnt
	}
	m := build(n, indexBase, lists)
	m.contiguous = true
	return m, nil
}

// NewCyclic returns a map that deals global indices to ranks round-robin,
// so that rank r owns indexBase+r, indexBase+r+ranks, and so on.
func NewCyclic(n, indexBase, ranks int) (*Map, error) {
	if err := checkSizes(n, ranks); err != nil {
		return nil, fmt.Errorf("NewCyclic: %w", err)
	}
	lists := make([][]int, ranks)
	for i := 0; i < n; i++ {
		r := i % ranks
		lists[r] = append(lists[r], indexBase+i)
	}
	m := build(n, indexBase, lists)
	m.contiguous = ranks == 1
	return m, nil
}

// NewFromLists returns a map from caller supplied ownership lists, one per
// rank. The order within each list is kept. The lists must form a disjoint,
// complete cover of [indexBase, indexBase+n).
func NewFromLists(n, indexBase int, lists [][]int) (*Map, error) {
	if err := checkSizes(n, len(lists)); err != nil {
		return nil, fmt.Errorf("NewFromLists: %w", err)
	}
	if err := ValidateCover(n, indexBase, lists); err != nil {
		return nil, fmt.Errorf("NewFromLists: %w", err)
	}
	cp := make([][]int, len(lists))
	for r, l := range lists {
		cp[r] = slices.Clone(l)
	}
	m := build(n, indexBase, cp)
	m.contiguous = isContiguous(cp)
	return m, nil
}

// ValidateCover reports whether lists is a disjoint and complete cover of
// [indexBase, indexBase+n). It returns an error wrapping ErrOutOfRange,
// ErrNotDisjoint or ErrIncomplete for the first violation found.
func ValidateCover(n, indexBase int, lists [][]int) error {
	seen := make([]int, n)
	for i := range seen {
		seen[i] = -1
	}
	for r, l := range lists {
		for _, g := range l {
			i := g - indexBase
			if i < 0 || n <= i {
				return fmt.Errorf("rank %d: index %d not in [%d, %d): %w", r, g, indexBase, indexBase+n, ErrOutOfRange)
			}
			if seen[i] != -1 {
				return fmt.Errorf("index %d on ranks %d and %d: %w", g, seen[i], r, ErrNotDisjoint)
			}
			seen[i] = r
		}
	}
	for i, r := range seen {
		if r == -1 {
			return fmt.Errorf("index %d: %w", indexBase+i, ErrIncomplete)
		}
	}
	return nil
}

func checkSizes(n, ranks int) error {
	if n < 1 {
		return fmt.Errorf("global size %d: %w", n, ErrInvalidArgument)
	}
	if ranks < 1 {
		return fmt.Errorf("rank count %d: %w", ranks, ErrInvalidArgument)
	}
	return nil
}

func build(n, indexBase int, lists [][]int) *Map {
	owner := make([]int, n)
	for r, l := range lists {
		for _, g := range l {
			owner[g-indexBase] = r
		}
	}
	return &Map{
		numGlobal: n,
		indexBase: indexBase,
		owned:     lists,
		owner:     owner,
	}
}

func isContiguous(lists [][]int) bool {
	for _, l := range lists {
		for i := 1; i < len(l); i++ {
			if l[i] != l[i-1]+1 {
				return false
			}
		}
	}
	return true
}

// NumGlobal returns the size of the global index space.
func (m *Map) NumGlobal() int { return m.numGlobal }

// IndexBase returns the smallest global index.
func (m *Map) IndexBase() int { return m.indexBase }

// NumRanks returns the number of workers.
func (m *Map) NumRanks() int { return len(m.owned) }

// NumLocal returns the number of indices owned by rank.
func (m *Map) NumLocal(rank int) int {
	m.checkRank(rank)
	return len(m.owned[rank])
}

// Owned returns a copy of the ordered list of global indices owned by rank.
func (m *Map) Owned(rank int) []int {
	m.checkRank(rank)
	return slices.Clone(m.owned[rank])
}

// Contains reports whether g belongs to the global index space.
func (m *Map) Contains(g int) bool {
	i := g - m.indexBase
	return 0 <= i && i < m.numGlobal
}

// Owner returns the rank owning global index g. ok is false when g is not
// part of the global index space.
func (m *Map) Owner(g int) (rank int, ok bool) {
	if !m.Contains(g) {
		return -1, false
	}
	return m.owner[g-m.indexBase], true
}

// IsContiguous reports whether every rank owns a run of consecutive global
// indices in increasing order.
func (m *Map) IsContiguous() bool { return m.contiguous }

// Expand returns the map of a block problem with dofs unknowns per index of
// m. Global index g of m becomes the dofs consecutive indices starting at
// indexBase + (g-indexBase)*dofs, owned by the same rank.
func (m *Map) Expand(dofs int) (*Map, error) {
	if dofs < 1 {
		return nil, fmt.Errorf("Expand: %d dofs per index: %w", dofs, ErrInvalidArgument)
	}
	if dofs == 1 {
		return m, nil
	}
	lists := make([][]int, len(m.owned))
	for r, l := range m.owned {
		dl := make([]int, 0, len(l)*dofs)
		for _, g := range l {
			first := m.indexBase + (g-m.indexBase)*dofs
			for d := 0; d < dofs; d++ {
				dl = append(dl, first+d)
			}
		}
		lists[r] = dl
	}
	e := build(m.numGlobal*dofs, m.indexBase, lists)
	e.contiguous = m.contiguous
	return e, nil
}

func (m *Map) String() string {
	return fmt.Sprintf("Map{NumGlobal: %d, IndexBase: %d, NumRanks: %d, Contiguous: %v}",
		m.numGlobal, m.indexBase, len(m.owned), m.contiguous)
}

func (m *Map) checkRank(rank int) {
	if rank < 0 || len(m.owned) <= rank {
		panic("partition: rank out of range")
	}
}
