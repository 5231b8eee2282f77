package stencil

import (
	"fmt"
	"iter"
	"slices"
)

// Grid holds the number of nodes along each axis of a structured grid.
// Axes beyond the dimension of a Kind are ignored.
type Grid struct {
	Nx, Ny, Nz int
}

// Lame holds the material of the elasticity kinds.
type Lame struct {
	// E is Young's modulus.
	E float64
	// Nu is Poisson's ratio, in (-1, 0.5).
	Nu float64
}

// DefaultLame is used by the elasticity kinds when Problem.Lame is zero.
var DefaultLame = Lame{E: 1, Nu: 0.25}

// Parameters returns the Lamé parameters λ and μ.
func (l Lame) Parameters() (lambda, mu float64) {
	lambda = l.E * l.Nu / ((1 + l.Nu) * (1 - 2*l.Nu))
	mu = l.E / (2 * (1 + l.Nu))
	return lambda, mu
}

// Problem describes a discretized operator on a structured grid.
//
// Nodes are numbered lexicographically, x fastest. For kinds with several
// unknowns per node, node p owns the consecutive rows
// IndexBase + p*DofsPerNode + d. Neighbors that fall outside the grid are
// dropped, which amounts to homogeneous Dirichlet conditions on all sides.
type Problem struct {
	Kind Kind
	// N is the number of unknowns of Laplace1D.
	N int
	// Grid is used by all other kinds.
	Grid      Grid
	IndexBase int
	// Lame is used by the elasticity kinds. The zero value means
	// DefaultLame.
	Lame Lame
}

// Validate checks the sizes required by p.Kind.
func (p Problem) Validate() error {
	if !p.Kind.valid() {
		return fmt.Errorf("%v: %w", p.Kind, ErrUnsupportedMatrixType)
	}
	if p.Kind == Laplace1D {
		if p.N < 1 {
			return fmt.Errorf("%v: size %d: %w", p.Kind, p.N, ErrInvalidArgument)
		}
		return nil
	}
	dims := []int{p.Grid.Nx, p.Grid.Ny, p.Grid.Nz}[:p.Kind.Dim()]
	for axis, n := range dims {
		if n < 1 {
			return fmt.Errorf("%v: %d nodes along axis %d: %w", p.Kind, n, axis, ErrInvalidArgument)
		}
	}
	if p.Kind == Elasticity2D || p.Kind == Elasticity3D {
		l := p.lame()
		if l.E <= 0 || l.Nu <= -1 || 0.5 <= l.Nu {
			return fmt.Errorf("%v: material %+v: %w", p.Kind, l, ErrInvalidArgument)
		}
	}
	return nil
}

// NumNodes returns the number of grid nodes.
func (p Problem) NumNodes() int {
	switch p.Kind.Dim() {
	case 1:
		return p.N
	case 2:
		return p.Grid.Nx * p.Grid.Ny
	default:
		return p.Grid.Nx * p.Grid.Ny * p.Grid.Nz
	}
}

// NumRows returns the size of the global index space of p.
func (p Problem) NumRows() int {
	return p.NumNodes() * p.Kind.DofsPerNode()
}

// Rows returns the rows of p for the global indices in owned, in the order
// of owned. Errors wrap ErrUnsupportedMatrixType or ErrInvalidArgument.
func (p Problem) Rows(owned []int) (iter.Seq[Row], error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("Rows: %w", err)
	}
	if p.Kind == Laplace1D {
		return AssembleRows(owned, p.N, p.IndexBase)
	}
	if err := checkOwned(owned, p.NumRows(), p.IndexBase); err != nil {
		return nil, fmt.Errorf("Rows: %w", err)
	}
	gen := p.generator()
	return func(yield func(Row) bool) {
		for _, r := range owned {
			if !yield(Row{Row: r, Entries: gen(r - p.IndexBase)}) {
				return
			}
		}
	}, nil
}

// Row returns the single row r of p.
func (p Problem) Row(r int) (Row, error) {
	rows, err := p.Rows([]int{r})
	if err != nil {
		return Row{}, err
	}
	for row := range rows {
		return row, nil
	}
	panic("unreachable")
}

func (p Problem) lame() Lame {
	if p.Lame == (Lame{}) {
		return DefaultLame
	}
	return p.Lame
}

// generator returns a function computing the entries of the zero-based
// local row i, with columns shifted by IndexBase.
func (p Problem) generator() func(i int) []Entry {
	switch p.Kind {
	case Laplace2D:
		return p.scalar(cross2D)
	case Laplace3D:
		return p.scalar(cross3D)
	case Star2D:
		return p.scalar(star2D)
	case BigStar2D:
		return p.scalar(bigStar2D)
	case Brick3D:
		return p.scalar(brick3D)
	case Elasticity2D, Elasticity3D:
		lambda, mu := p.lame().Parameters()
		return p.elasticity(lambda, mu)
	}
	panic("stencil: no generator for " + p.Kind.String())
}

// offset is a stencil coefficient at a relative grid position.
type offset struct {
	dx, dy, dz int
	v          float64
}

// Offsets are listed in (dz, dy, dx) lexicographic order so that the
// generated columns increase.
var (
	cross2D = []offset{
		{0, -1, 0, -1},
		{-1, 0, 0, -1}, {0, 0, 0, 4}, {1, 0, 0, -1},
		{0, 1, 0, -1},
	}
	cross3D = []offset{
		{0, 0, -1, -1},
		{0, -1, 0, -1},
		{-1, 0, 0, -1}, {0, 0, 0, 6}, {1, 0, 0, -1},
		{0, 1, 0, -1},
		{0, 0, 1, -1},
	}
	star2D    = box(2, 8)
	brick3D   = box(3, 26)
	bigStar2D = []offset{
		{0, -2, 0, 1},
		{-1, -1, 0, 2}, {0, -1, 0, -8}, {1, -1, 0, 2},
		{-2, 0, 0, 1}, {-1, 0, 0, -8}, {0, 0, 0, 20}, {1, 0, 0, -8}, {2, 0, 0, 1},
		{-1, 1, 0, 2}, {0, 1, 0, -8}, {1, 1, 0, 2},
		{0, 2, 0, 1},
	}
)

// box returns the full 3^dim neighborhood with diag at the center and -1
// elsewhere.
func box(dim int, diag float64) []offset {
	zr := []int{0}
	if dim == 3 {
		zr = []int{-1, 0, 1}
	}
	var s []offset
	for _, dz := range zr {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				v := -1.0
				if dx == 0 && dy == 0 && dz == 0 {
					v = diag
				}
				s = append(s, offset{dx, dy, dz, v})
			}
		}
	}
	return s
}

func (p Problem) coords(node int) (x, y, z int) {
	nx, ny := p.Grid.Nx, p.Grid.Ny
	x = node % nx
	y = (node / nx) % max(ny, 1)
	if p.Kind.Dim() == 3 {
		z = node / (nx * ny)
	}
	return x, y, z
}

// neighbor returns the node at (x+dx, y+dy, z+dz), or false when it lies
// outside the grid.
func (p Problem) neighbor(x, y, z, dx, dy, dz int) (int, bool) {
	nx, ny, nz := p.Grid.Nx, p.Grid.Ny, p.Grid.Nz
	if p.Kind.Dim() < 3 {
		nz = 1
	}
	x, y, z = x+dx, y+dy, z+dz
	if x < 0 || nx <= x || y < 0 || ny <= y || z < 0 || nz <= z {
		return 0, false
	}
	return x + nx*(y+ny*z), true
}

func (p Problem) scalar(st []offset) func(i int) []Entry {
	return func(i int) []Entry {
		x, y, z := p.coords(i)
		row := make([]Entry, 0, len(st))
		for _, o := range st {
			if j, ok := p.neighbor(x, y, z, o.dx, o.dy, o.dz); ok {
				row = append(row, Entry{Col: p.IndexBase + j, Value: o.v})
			}
		}
		return row
	}
}

// elasticity assembles
//
//	μ (L ⊗ I) + (λ+μ) GᵀG,
//
// where L is the compact Laplacian and G = [D_1 … D_dim] is the truncated
// central-difference divergence, D_a u(p) = (u(p+e_a) - u(p-e_a))/2. The
// operator is symmetric positive definite.
func (p Problem) elasticity(lambda, mu float64) func(i int) []Entry {
	dim := p.Kind.Dim()
	dofs := p.Kind.DofsPerNode()
	lap := cross2D
	if dim == 3 {
		lap = cross3D
	}
	c := lambda + mu
	unit := func(a, s int) (dx, dy, dz int) {
		switch a {
		case 0:
			return s, 0, 0
		case 1:
			return 0, s, 0
		}
		return 0, 0, s
	}
	return func(i int) []Entry {
		node, a := i/dofs, i%dofs
		x, y, z := p.coords(node)
		acc := make(map[int]float64)
		add := func(n, b int, v float64) {
			acc[n*dofs+b] += v
		}

		for _, o := range lap {
			if j, ok := p.neighbor(x, y, z, o.dx, o.dy, o.dz); ok {
				add(j, a, mu*o.v)
			}
		}
		for b := 0; b < dim; b++ {
			if a == b {
				for _, s := range [2]int{-1, 1} {
					dx, dy, dz := unit(a, s)
					if _, ok := p.neighbor(x, y, z, dx, dy, dz); ok {
						add(node, a, c/4)
					}
					if j, ok := p.neighbor(x, y, z, 2*dx, 2*dy, 2*dz); ok {
						add(j, a, -c/4)
					}
				}
				continue
			}
			for _, sa := range [2]int{-1, 1} {
				for _, sb := range [2]int{-1, 1} {
					ax, ay, az := unit(a, sa)
					bx, by, bz := unit(b, sb)
					if j, ok := p.neighbor(x, y, z, ax+bx, ay+by, az+bz); ok {
						add(j, b, -c*float64(sa*sb)/4)
					}
				}
			}
		}

		row := make([]Entry, 0, len(acc))
		for col, v := range acc {
			row = append(row, Entry{Col: p.IndexBase + col, Value: v})
		}
		slices.SortFunc(row, func(e, f Entry) int { return e.Col - f.Col })
		return row
	}
}
