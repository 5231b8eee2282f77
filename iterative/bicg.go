// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package iterative

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// BiCG implements the biconjugate gradient iterative method with
// preconditioning for solving the system of linear equations
//
//	Ax = b,
//
// where A is a non-symmetric matrix. For symmetric positive definite systems
// use CG.
//
// BiCG needs MatVec, MatTransVec, PSolve and PSolveTrans matrix operations.
// Every assembled crs.Matrix provides MatTransVec. Among the relaxations of
// the precond package only Jacobi and symmetric Gauss-Seidel provide
// PSolveTrans; forward Gauss-Seidel cannot be used.
//
// A vanishing ρ or pᵀq ends the solve with an error wrapping ErrBreakdown.
// BiCGSTAB avoids the transposed operations altogether and usually
// converges more smoothly.
type BiCG struct {
	first  bool
	resume int

	rho, rhoPrev float64
	alpha        float64

	rt    []float64
	z, zt []float64
	p, pt []float64
}

// Init implements the Method interface.
func (b *BiCG) Init(dim int) {
	if dim <= 0 {
		panic("iterative: dimension not positive")
	}

	b.rt = reuse(b.rt, dim)
	b.z = reuse(b.z, dim)
	b.zt = reuse(b.zt, dim)
	b.p = reuse(b.p, dim)
	b.pt = reuse(b.pt, dim)

	b.first = true
	b.resume = 1
}

// Iterate implements the Method interface.
func (b *BiCG) Iterate(ctx *Context) (Operation, error) {
	switch b.resume {
	case 1:
		if b.first {
			copy(b.rt, ctx.Residual)
		}
		ctx.Src = ctx.Residual
		ctx.Dst = b.z
		b.resume = 2
		return PSolve, nil
		// Solve M z = r_{i-1}.
	case 2:
		ctx.Src = b.rt
		ctx.Dst = b.zt
		b.resume = 3
		return PSolveTrans, nil
		// Solve Mᵀ zt = rt_{i-1}.
	case 3:
		b.rho = floats.Dot(b.z, b.rt)
		if math.Abs(b.rho) < dlamchE*dlamchE {
			b.resume = 0 // Calling Iterate again without Init will panic.
			return NoOperation, fmt.Errorf("%w: rho vanished", ErrBreakdown)
		}
		if !b.first {
			beta := b.rho / b.rhoPrev
			floats.AddScaled(b.z, beta, b.p)
			floats.AddScaled(b.zt, beta, b.pt)
		}
		copy(b.p, b.z)
		copy(b.pt, b.zt)
		ctx.Src = b.p
		ctx.Dst = b.z // == q
		b.resume = 4
		return MatVec, nil
		// Compute q = A p.
	case 4:
		ctx.Src = b.pt
		ctx.Dst = b.zt // == qt
		b.resume = 5
		return MatTransVec, nil
		// Compute qt = Aᵀ pt.
	case 5:
		ptq := floats.Dot(b.pt, b.z)
		if math.Abs(ptq) < dlamchE*dlamchE {
			b.resume = 0
			return NoOperation, fmt.Errorf("%w: pt·q vanished", ErrBreakdown)
		}
		b.alpha = b.rho / ptq
		floats.AddScaled(ctx.X, b.alpha, b.p)
		floats.AddScaled(ctx.Residual, -b.alpha, b.z)
		ctx.Src = nil
		ctx.Dst = nil
		ctx.ResidualNorm = floats.Norm(ctx.Residual, 2)
		ctx.Converged = false
		b.resume = 6
		return CheckResidualNorm, nil
	case 6:
		if ctx.Converged {
			b.resume = 0 // Calling Iterate again without Init will panic.
			return EndIteration, nil
		}
		// Prepare for the next iteration.
		floats.AddScaled(b.rt, -b.alpha, b.zt)
		b.rhoPrev = b.rho
		b.first = false
		b.resume = 1
		return EndIteration, nil

	default:
		panic("iterative: BiCG.Init not called")
	}
}
