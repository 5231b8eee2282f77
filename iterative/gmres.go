// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package iterative

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"
)

// GMRES implements the restarted Generalized Minimal RESidual method with
// left preconditioning for solving systems of linear equations
//
//	Ax = b,
//
// where A is a general non-singular matrix.
//
// The residual norm monitored inside a cycle is the estimate obtained from
// the Givens-reduced Hessenberg system. Convergence is only accepted after
// it has been confirmed with the true residual b - A*x.
//
// GMRES needs MatVec and PSolve matrix operations.
type GMRES struct {
	// Restart is the number of inner iterations in one cycle.
	// If it is 0 or larger than the dimension of the system, the
	// dimension is used.
	Restart int

	k      int // Restart in effect.
	resume int
	i      int // Counter for inner iterations.

	x0 []float64
	s  []float64
	w  []float64
	y  []float64
	av []float64

	v    []float64
	ldv  int
	h    []float64
	ldh  int
	givs []givens
}

type givens struct {
	c, s float64
}

// Init implements the Method interface.
func (g *GMRES) Init(dim int) {
	if dim <= 0 {
		panic("iterative: dimension not positive")
	}
	if g.Restart < 0 {
		panic("iterative: negative GMRES.Restart")
	}

	g.k = g.Restart
	if g.k == 0 || dim < g.k {
		g.k = dim
	}
	k := g.k

	g.x0 = reuse(g.x0, dim)
	g.s = reuse(g.s, k+1)
	g.w = reuse(g.w, dim)
	g.y = reuse(g.y, k+1)
	g.av = reuse(g.av, dim)

	g.ldv = dim
	g.v = reuse(g.v, g.ldv*(k+1))
	g.ldh = k + 1
	g.h = reuse(g.h, g.ldh*k)
	if cap(g.givs) < k {
		g.givs = make([]givens, k)
	} else {
		g.givs = g.givs[:k]
	}

	g.resume = 1
}

// Iterate implements the Method interface.
func (g *GMRES) Iterate(ctx *Context) (Operation, error) {
	n := len(ctx.X)
	ldv := g.ldv
	switch g.resume {
	case 1:
		// Start a new cycle from the current approximation.
		copy(g.x0, ctx.X)
		ctx.Src = ctx.Residual
		ctx.Dst = g.v[:n]
		g.resume = 2
		return PSolve, nil
		// Solve M V[:,0] = r.
	case 2:
		rnorm := floats.Norm(g.v[:n], 2)
		if rnorm == 0 {
			g.resume = 0
			return NoOperation, fmt.Errorf("%w: preconditioned residual vanished", ErrBreakdown)
		}
		floats.Scale(1/rnorm, g.v[:n])
		for i := range g.s {
			g.s[i] = 0
		}
		g.s[0] = rnorm
		g.i = 0
		fallthrough
	case 3:
		i := g.i
		if i == g.k {
			// End of cycle. X holds x0 + V*y from the last inner
			// iteration.
			ctx.Src = nil
			ctx.Dst = nil
			g.resume = 8
			return ComputeResidual, nil
		}
		ctx.Src = g.v[i*ldv : i*ldv+n]
		ctx.Dst = g.av
		g.resume = 4
		return MatVec, nil
		// Compute A V[:,i].
	case 4:
		ctx.Src = g.av
		ctx.Dst = g.w
		g.resume = 5
		return PSolve, nil
		// Solve M w = A V[:,i].
	case 5:
		i := g.i
		hi := g.h[i*g.ldh : i*g.ldh+g.k+1]

		// Modified Gram-Schmidt against the previous columns of V.
		for k := 0; k <= i; k++ {
			vk := g.v[k*ldv : k*ldv+n]
			hki := floats.Dot(vk, g.w)
			hi[k] = hki
			floats.AddScaled(g.w, -hki, vk)
		}
		wnorm := floats.Norm(g.w, 2)
		hi[i+1] = wnorm
		vip1 := g.v[(i+1)*ldv : (i+1)*ldv+n]
		copy(vip1, g.w)
		if wnorm != 0 {
			floats.Scale(1/wnorm, vip1)
		}

		// Apply the previous Givens rotations to the new column of H.
		for j := 0; j < i; j++ {
			hi[j], hi[j+1] = rotvec(hi[j], hi[j+1], g.givs[j])
		}
		// Compute and apply the rotation that zeroes H[i+1,i].
		g.givs[i] = drotg(hi[i], hi[i+1])
		hi[i], hi[i+1] = rotvec(hi[i], hi[i+1], g.givs[i])
		g.s[i], g.s[i+1] = rotvec(g.s[i], g.s[i+1], g.givs[i])

		ctx.ResidualNorm = math.Abs(g.s[i+1])
		ctx.Src = nil
		ctx.Dst = nil
		ctx.Converged = false
		g.resume = 6
		return CheckResidualNorm, nil
	case 6:
		g.update(ctx.X)
		if ctx.Converged {
			g.resume = 7
			return ComputeResidual, nil
		}
		g.i++
		g.resume = 3
		return EndIteration, nil
	case 7:
		// Confirm the estimate with the true residual.
		ctx.ResidualNorm = floats.Norm(ctx.Residual, 2)
		ctx.Converged = false
		g.resume = 9
		return CheckResidualNorm, nil
	case 8:
		ctx.ResidualNorm = floats.Norm(ctx.Residual, 2)
		g.resume = 1
		return NoOperation, nil
	case 9:
		// The inner step that led to case 7 is counted here, converged
		// or not.
		if ctx.Converged {
			g.resume = 0 // Calling Iterate again without Init will panic.
			return EndIteration, nil
		}
		g.resume = 1
		return EndIteration, nil

	default:
		panic("iterative: GMRES.Init not called")
	}
}

// update stores x0 + V*y into x where y solves the upper triangular system
// H[:i+1,:i+1]*y = s[:i+1].
func (g *GMRES) update(x []float64) {
	i := g.i
	y := g.y[:i+1]
	copy(y, g.s[:i+1])
	// H is upper triangular but stored in column-major order while Dtrsv
	// expects row-major.
	bi := blas64.Implementation()
	bi.Dtrsv(blas.Lower, blas.Trans, blas.NonUnit, i+1, g.h, g.ldh, y, 1)

	n := len(x)
	copy(x, g.x0[:n])
	for j := 0; j <= i; j++ {
		vj := g.v[j*g.ldv : j*g.ldv+n]
		floats.AddScaled(x, y[j], vj)
	}
}

func drotg(a, b float64) givens {
	if b == 0 {
		return givens{c: 1, s: 0}
	}
	if math.Abs(b) > math.Abs(a) {
		tmp := -a / b
		s := 1 / math.Sqrt(1+tmp*tmp)
		return givens{c: tmp * s, s: s}
	}
	tmp := -b / a
	c := 1 / math.Sqrt(1+tmp*tmp)
	return givens{c: c, s: tmp * c}
}

func rotvec(x, y float64, g givens) (rx, ry float64) {
	rx = g.c*x - g.s*y
	ry = g.s*x + g.c*y
	return
}
