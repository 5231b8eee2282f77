// Package precond provides relaxation preconditioners for matrices assembled
// by the crs package.
//
// The Gauss-Seidel variants are processor-local: within one sweep every
// rank updates its own rows in map order using its latest values, while
// entries owned by other ranks keep the value they had when the sweep
// started. Ranks run concurrently, and across ranks the preconditioner acts
// like block Jacobi.
package precond

import (
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vladimir-ch/linsys/crs"
)

// Type is a relaxation method.
type Type int

const (
	Jacobi Type = iota
	GaussSeidel
	SymmetricGaussSeidel
)

var typeNames = [...]string{
	Jacobi:               "Jacobi",
	GaussSeidel:          "Gauss-Seidel",
	SymmetricGaussSeidel: "Symmetric Gauss-Seidel",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// ParseType returns the Type named s, ignoring case. "SGS" and "GS" are
// accepted as abbreviations.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(s) {
	case "gs":
		return GaussSeidel, nil
	case "sgs":
		return SymmetricGaussSeidel, nil
	}
	for i, name := range typeNames {
		if strings.EqualFold(s, name) {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("%q: %w", s, ErrUnknownType)
}

// Params configures a Relaxation.
type Params struct {
	Type Type
	// Sweeps is the number of relaxation sweeps per application. Zero
	// means one.
	Sweeps int
	// Damping is the relaxation factor ω in (0, 2). Zero means one.
	Damping float64
}

// Relaxation applies a fixed number of relaxation sweeps to M z = r,
// starting from z = 0. It is safe for concurrent use only if the calls
// do not share destination vectors.
type Relaxation struct {
	a         *crs.Matrix
	p         Params
	invDiag   []float64
	symmetric bool
}

// NewRelaxation returns a relaxation preconditioner for a. It returns an
// error wrapping ErrZeroDiagonal if some diagonal entry of a is zero.
func NewRelaxation(a *crs.Matrix, p Params) (*Relaxation, error) {
	if p.Type < Jacobi || SymmetricGaussSeidel < p.Type {
		return nil, fmt.Errorf("NewRelaxation: %v: %w", p.Type, ErrUnknownType)
	}
	if p.Sweeps == 0 {
		p.Sweeps = 1
	}
	if p.Damping == 0 {
		p.Damping = 1
	}
	if p.Sweeps < 0 {
		return nil, fmt.Errorf("NewRelaxation: %d sweeps: %w", p.Sweeps, ErrInvalidArgument)
	}
	if p.Damping <= 0 || 2 <= p.Damping {
		return nil, fmt.Errorf("NewRelaxation: damping %v: %w", p.Damping, ErrInvalidArgument)
	}

	d := a.Diagonal()
	base := a.Map().IndexBase()
	for i, v := range d {
		if v == 0 {
			return nil, fmt.Errorf("NewRelaxation: row %d: %w", base+i, ErrZeroDiagonal)
		}
		d[i] = 1 / v
	}
	return &Relaxation{
		a:         a,
		p:         p,
		invDiag:   d,
		symmetric: isSymmetric(a),
	}, nil
}

// Params returns the parameters in effect, defaults applied.
func (r *Relaxation) Params() Params { return r.p }

// Apply stores into dst the result of the relaxation sweeps for M z = rhs.
// It has the signature of iterative.Settings.PSolve.
func (r *Relaxation) Apply(dst, rhs []float64) error {
	n := len(r.invDiag)
	if len(dst) != n || len(rhs) != n {
		panic("precond: dimension mismatch")
	}
	for i := range dst {
		dst[i] = 0
	}
	switch r.p.Type {
	case Jacobi:
		r.jacobi(dst, rhs)
	case GaussSeidel:
		for s := 0; s < r.p.Sweeps; s++ {
			r.gaussSeidel(dst, rhs, false)
		}
	case SymmetricGaussSeidel:
		for s := 0; s < r.p.Sweeps; s++ {
			r.gaussSeidel(dst, rhs, true)
		}
	}
	return nil
}

// ApplyTrans stores into dst the result of the transposed solve Mᵀ z = rhs.
// It is available for a single Jacobi sweep, and for Jacobi and symmetric
// Gauss-Seidel when the matrix is symmetric. Otherwise it returns an error
// wrapping ErrNoTranspose.
func (r *Relaxation) ApplyTrans(dst, rhs []float64) error {
	if !r.HasTranspose() {
		return fmt.Errorf("ApplyTrans: %v: %w", r.p.Type, ErrNoTranspose)
	}
	return r.Apply(dst, rhs)
}

// HasTranspose reports whether ApplyTrans is available.
func (r *Relaxation) HasTranspose() bool {
	switch r.p.Type {
	case Jacobi:
		return r.p.Sweeps == 1 || r.symmetric
	case SymmetricGaussSeidel:
		return r.symmetric
	}
	return false
}

// jacobi performs z += ω D⁻¹ (rhs - A z) Sweeps times.
func (r *Relaxation) jacobi(z, rhs []float64) {
	omega := r.p.Damping
	for i, v := range rhs {
		z[i] = omega * r.invDiag[i] * v
	}
	if r.p.Sweeps == 1 {
		return
	}
	az := make([]float64, len(z))
	for s := 1; s < r.p.Sweeps; s++ {
		r.a.MatVec(az, z)
		for i := range z {
			z[i] += omega * r.invDiag[i] * (rhs[i] - az[i])
		}
	}
}

// gaussSeidel performs one processor-local forward sweep, followed by a
// backward sweep if symmetric is set. Entries owned by other ranks are read
// from a snapshot taken before the sweep.
func (r *Relaxation) gaussSeidel(z, rhs []float64, symmetric bool) {
	m := r.a.Map()
	snap := append([]float64(nil), z...)
	omega := r.p.Damping

	var g errgroup.Group
	for rank := 0; rank < m.NumRanks(); rank++ {
		l := r.a.Local(rank)
		g.Go(func() error {
			update := func(i int) {
				gi := l.Global(i) - m.IndexBase()
				cols, vals := l.RowView(i)
				s := rhs[gi]
				for k, c := range cols {
					if owner, _ := m.Owner(c + m.IndexBase()); owner == rank {
						s -= vals[k] * z[c]
					} else {
						s -= vals[k] * snap[c]
					}
				}
				z[gi] += omega * r.invDiag[gi] * s
			}
			for i := 0; i < l.NumRows(); i++ {
				update(i)
			}
			if symmetric {
				for i := l.NumRows() - 1; i >= 0; i-- {
					update(i)
				}
			}
			return nil
		})
	}
	_ = g.Wait()
}

func isSymmetric(a *crs.Matrix) bool {
	sym := true
	a.Do(func(i, j int, v float64) {
		if sym && i != j && a.At(j, i) != v {
			sym = false
		}
	})
	return sym
}
