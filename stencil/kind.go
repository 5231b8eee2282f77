package stencil

import (
	"fmt"
	"strings"
)

// Kind selects the discretized operator assembled by a Problem.
type Kind int

const (
	// Laplace1D is the 3-point second difference on a line.
	Laplace1D Kind = iota
	// Laplace2D is the 5-point Laplacian on an Nx×Ny grid.
	Laplace2D
	// Laplace3D is the 7-point Laplacian on an Nx×Ny×Nz grid.
	Laplace3D
	// Star2D is the 9-point stencil with 8 on the diagonal and -1 on all
	// eight neighbors.
	Star2D
	// BigStar2D is the 13-point biharmonic stencil.
	BigStar2D
	// Brick3D is the 27-point stencil with 26 on the diagonal and -1 on
	// all neighbors.
	Brick3D
	// Elasticity2D is the plane linear elasticity operator with two
	// unknowns per grid node.
	Elasticity2D
	// Elasticity3D is the linear elasticity operator with three unknowns
	// per grid node.
	Elasticity3D
)

var kindNames = [...]string{
	Laplace1D:    "Laplace1D",
	Laplace2D:    "Laplace2D",
	Laplace3D:    "Laplace3D",
	Star2D:       "Star2D",
	BigStar2D:    "BigStar2D",
	Brick3D:      "Brick3D",
	Elasticity2D: "Elasticity2D",
	Elasticity3D: "Elasticity3D",
}

// Kinds returns all supported kinds in declaration order.
func Kinds() []Kind {
	ks := make([]Kind, len(kindNames))
	for i := range ks {
		ks[i] = Kind(i)
	}
	return ks
}

func (k Kind) valid() bool {
	return 0 <= k && int(k) < len(kindNames)
}

func (k Kind) String() string {
	if !k.valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind returns the Kind named s. The comparison ignores case.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if strings.EqualFold(s, name) {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%q (want one of %s): %w", s, strings.Join(kindNames[:], ", "), ErrUnsupportedMatrixType)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.valid() {
		return nil, fmt.Errorf("%v: %w", k, ErrUnsupportedMatrixType)
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Dim returns the spatial dimension of the grid.
func (k Kind) Dim() int {
	switch k {
	case Laplace1D:
		return 1
	case Laplace2D, Star2D, BigStar2D, Elasticity2D:
		return 2
	case Laplace3D, Brick3D, Elasticity3D:
		return 3
	}
	panic("stencil: invalid kind")
}

// DofsPerNode returns the number of unknowns per grid node.
func (k Kind) DofsPerNode() int {
	switch k {
	case Elasticity2D:
		return 2
	case Elasticity3D:
		return 3
	}
	return 1
}
