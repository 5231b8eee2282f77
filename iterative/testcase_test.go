// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package iterative

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/vladimir-ch/linsys/internal/triplet"
)

type testCase struct {
	name  string
	n     int
	iters int     // Iteration limit.
	tol   float64 // Tolerance on the max-norm error of the solution.
	a     MatrixOps
}

// randomSPD returns a dense random symmetric positive definite matrix made
// diagonally dominant by adding n to the diagonal.
func randomSPD(n int, rnd *rand.Rand) testCase {
	a := make([]float64, n*n)
	lda := n
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			a[i*lda+j] = rnd.Float64()
		}
	}
	for i := 0; i < n; i++ {
		a[i*lda+i] += float64(n)
	}
	bi := blas64.Implementation()
	matvec := func(dst, x []float64) {
		bi.Dsymv(blas.Upper, n, 1, a, lda, x, 1, 0, dst, 1)
	}
	return testCase{
		name:  fmt.Sprintf("randomSPD-%d", n),
		n:     n,
		iters: 2 * n,
		tol:   1e-10,
		a:     MatrixOps{MatVec: matvec, MatTransVec: matvec},
	}
}

// randomGeneral returns a dense random non-symmetric matrix that is strictly
// diagonally dominant.
func randomGeneral(n int, rnd *rand.Rand) testCase {
	a := make([]float64, n*n)
	lda := n
	for i := range a {
		a[i] = rnd.Float64()
	}
	for i := 0; i < n; i++ {
		a[i*lda+i] += float64(n)
	}
	bi := blas64.Implementation()
	return testCase{
		name:  fmt.Sprintf("randomGeneral-%d", n),
		n:     n,
		iters: 2 * n,
		tol:   1e-10,
		a: MatrixOps{
			MatVec: func(dst, x []float64) {
				bi.Dgemv(blas.NoTrans, n, n, 1, a, lda, x, 1, 0, dst, 1)
			},
			MatTransVec: func(dst, x []float64) {
				bi.Dgemv(blas.Trans, n, n, 1, a, lda, x, 1, 0, dst, 1)
			},
		},
	}
}

// convectionDiffusion returns the 5-point discretization of -Δu + β∂u/∂x on
// an nx×nx grid with Dirichlet boundary. β = 0 gives the discrete Laplacian.
func convectionDiffusion(nx int, beta float64) testCase {
	n := nx * nx
	m := triplet.New(n, n)
	for y := 0; y < nx; y++ {
		for x := 0; x < nx; x++ {
			i := y*nx + x
			m.Append(i, i, 4)
			if x > 0 {
				m.Append(i, i-1, -1-beta)
			}
			if x < nx-1 {
				m.Append(i, i+1, -1+beta)
			}
			if y > 0 {
				m.Append(i, i-nx, -1)
			}
			if y < nx-1 {
				m.Append(i, i+nx, -1)
			}
		}
	}
	name := fmt.Sprintf("laplace2D-%d", nx)
	if beta != 0 {
		name = fmt.Sprintf("convdiff2D-%d-%g", nx, beta)
	}
	return testCase{
		name:  name,
		n:     n,
		iters: 4 * n,
		tol:   1e-7,
		a:     MatrixOps{MatVec: m.MulVec, MatTransVec: m.MulTransVec},
	}
}

// onesRHS returns b = A*[1,...,1] and the solution vector.
func onesRHS(tc testCase) (b, want []float64) {
	want = make([]float64, tc.n)
	for i := range want {
		want[i] = 1
	}
	b = make([]float64, tc.n)
	tc.a.MatVec(b, want)
	return b, want
}
