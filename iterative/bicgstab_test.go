// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package iterative

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestBiCGSTAB(t *testing.T) {
	rnd := rand.New(rand.NewPCG(1, 1))
	for _, tc := range []testCase{
		randomSPD(1, rnd),
		randomSPD(2, rnd),
		randomSPD(3, rnd),
		randomSPD(10, rnd),
		randomSPD(100, rnd),
		randomSPD(200, rnd),
		randomGeneral(5, rnd),
		randomGeneral(50, rnd),
		randomGeneral(200, rnd),
		convectionDiffusion(10, 0),
		convectionDiffusion(10, 0.25),
		convectionDiffusion(15, 0.5),
	} {
		b, want := onesRHS(tc)
		r, err := LinearSolve(tc.a, b, &BiCGSTAB{}, Settings{
			MaxIterations: 10 * tc.iters,
			Tolerance:     1e-12,
		})
		if err != nil {
			t.Errorf("Case %v: unexpected error %v", tc.name, err)
			continue
		}
		dist := floats.Distance(r.X, want, math.Inf(1))
		if dist > tc.tol {
			t.Errorf("Case %v: unexpected solution, |want-got|=%v", tc.name, dist)
		}
	}
}

func TestBiCG(t *testing.T) {
	rnd := rand.New(rand.NewPCG(2, 2))
	for _, tc := range []testCase{
		randomSPD(1, rnd),
		randomSPD(4, rnd),
		randomSPD(50, rnd),
		randomGeneral(5, rnd),
		randomGeneral(50, rnd),
		convectionDiffusion(10, 0),
		convectionDiffusion(10, 0.25),
	} {
		b, want := onesRHS(tc)
		r, err := LinearSolve(tc.a, b, &BiCG{}, Settings{
			MaxIterations: 10 * tc.iters,
			Tolerance:     1e-12,
		})
		if err != nil {
			t.Errorf("Case %v: unexpected error %v", tc.name, err)
			continue
		}
		dist := floats.Distance(r.X, want, math.Inf(1))
		if dist > tc.tol {
			t.Errorf("Case %v: unexpected solution, |want-got|=%v", tc.name, dist)
		}
	}
}

func TestBreakdown(t *testing.T) {
	// For the permutation [0 1; 1 0] and b = e_1 the first search direction
	// is mapped onto a vector orthogonal to the shadow residual.
	swap := func(dst, x []float64) { dst[0], dst[1] = x[1], x[0] }
	a := MatrixOps{MatVec: swap, MatTransVec: swap}
	b := []float64{1, 0}
	for _, method := range []Method{&BiCG{}, &BiCGSTAB{}} {
		_, err := LinearSolve(a, b, method, Settings{MaxIterations: 10})
		if !errors.Is(err, ErrBreakdown) {
			t.Errorf("%T: got error %v, want ErrBreakdown", method, err)
		}
	}
}
