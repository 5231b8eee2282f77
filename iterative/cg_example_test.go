// Copyright ©2016 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package iterative_test

import (
	"fmt"
	"math"

	"github.com/vladimir-ch/linsys/iterative"
)

// L2Projector returns the mass matrix and load vector of the L2 projection of
// f onto piecewise linear functions on n uniform intervals of [x0, x1].
func L2Projector(x0, x1 float64, n int, f func(float64) float64) (a iterative.MatrixOps, b []float64) {
	h := (x1 - x0) / float64(n)

	matvec := func(dst, src []float64) {
		dst[0] = h / 3 * (src[0] + src[1]/2)
		for i := 1; i < n; i++ {
			dst[i] = h / 3 * (src[i-1]/2 + 2*src[i] + src[i+1]/2)
		}
		dst[n] = h / 3 * (src[n-1]/2 + src[n])
	}

	b = make([]float64, n+1)
	b[0] = f(x0) * h / 2
	for i := 1; i < n; i++ {
		b[i] = f(x0+float64(i)*h) * h
	}
	b[n] = f(x1) * h / 2

	return iterative.MatrixOps{MatVec: matvec}, b
}

func ExampleCG() {
	A, b := L2Projector(0, 1, 10, func(x float64) float64 {
		return x * math.Sin(x)
	})
	res, err := iterative.LinearSolve(A, b, &iterative.CG{}, iterative.Settings{Tolerance: 1e-10})
	if err != nil {
		fmt.Println("Error:", err)
	} else {
		fmt.Printf("Converged: %v\n", res.Stats.Converged)
		fmt.Printf("Solution: %.4f\n", res.X)
	}

	// Output:
	// Converged: true
	// Solution: [-0.0033 0.0067 0.0365 0.0856 0.1530 0.2371 0.3370 0.4476 0.5782 0.6827 0.9208]
}
