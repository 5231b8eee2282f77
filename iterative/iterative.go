// Copyright ©2016 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package iterative provides Krylov subspace methods for solving the linear
// systems assembled by the stencil and crs packages.
//
// A Method never sees the matrix. It drives the solve through a
// reverse-communication loop: every call to Iterate returns the Operation the
// caller has to carry out next, so the same method works with a serial
// triplet matrix, a distributed CSR matrix or a matrix-free closure.
package iterative

import "errors"

var (
	// ErrIterationLimit is returned by LinearSolve when the method did not
	// reach the requested tolerance within Settings.MaxIterations. The
	// Result returned with it holds the last iterate.
	ErrIterationLimit = errors.New("iterative: iteration limit reached")

	// ErrBreakdown is returned when a method encounters a division by a
	// quantity that vanished in floating point.
	ErrBreakdown = errors.New("iterative: breakdown")
)

// Operation specifies the type of operation.
type Operation uint64

// Operations commanded by Method.Iterate.
const (
	NoOperation Operation = 0

	// Multiply A*x where x is stored in Context.Src and the result will be
	// stored in Context.Dst.
	MatVec Operation = 1 << (iota - 1)

	// Multiply A^T*x where x is stored in Context.Src and the result will
	// be stored in Context.Dst.
	MatTransVec

	// Do the preconditioner solve
	//
	//	M z = r,
	//
	// where r is stored in Context.Src, and store the solution z in
	// Context.Dst.
	PSolve

	// Do the preconditioner solve
	//
	//	M^T z = r,
	//
	// where r is stored in Context.Src, and store the solution z in
	// Context.Dst.
	PSolveTrans

	// Compute b - A*x where x is stored in Context.X and store the result
	// into Context.Residual.
	ComputeResidual

	// Check convergence using the residual norm in Context.ResidualNorm.
	// The caller sets Context.Converged accordingly.
	CheckResidualNorm

	// EndIteration indicates that Method has finished what it considers
	// to be one iteration. If Context.Converged is true, the iterative
	// process must be terminated, and Method.Init must be called before
	// calling Method.Iterate again.
	EndIteration
)

func (op Operation) String() string {
	switch op {
	case NoOperation:
		return "NoOperation"
	case MatVec:
		return "MatVec"
	case MatTransVec:
		return "MatTransVec"
	case PSolve:
		return "PSolve"
	case PSolveTrans:
		return "PSolveTrans"
	case ComputeResidual:
		return "ComputeResidual"
	case CheckResidualNorm:
		return "CheckResidualNorm"
	case EndIteration:
		return "EndIteration"
	}
	return "Operation(invalid)"
}

// Method is an iterative method that produces a sequence of vectors
// converging to the vector x satisfying a system of linear equations
//
//	A x = b,
//
// where A is a non-singular dim×dim matrix, and x and b are vectors of
// dimension dim.
type Method interface {
	// Init initializes the method for solving a dim×dim linear system.
	Init(dim int)

	// Iterate retrieves data from Context, updates it, and returns the
	// next operation. The caller must perform the Operation using data in
	// Context, and depending on the state call Iterate again.
	Iterate(*Context) (Operation, error)
}

// Context mediates the communication between a Method and the caller. It
// must not be modified or accessed apart from the commanded Operations.
type Context struct {
	// X is the current approximate solution. On the first call to
	// Method.Iterate, X must contain the initial estimate. Method must
	// update X with the current estimate when it commands
	// ComputeResidual and EndIteration.
	X []float64
	// Residual is the current residual b-A*x. On the first call to
	// Method.Iterate, Residual must contain the initial residual.
	Residual []float64
	// ResidualNorm is (an estimate of) the norm of the current residual.
	// Method must update it when it commands CheckResidualNorm. GMRES
	// estimates it without forming the residual.
	ResidualNorm float64
	// Converged is set by the caller as the result of CheckResidualNorm.
	Converged bool

	// Src and Dst are the source and destination vectors for the
	// MatVec, MatTransVec, PSolve and PSolveTrans operations.
	Src, Dst []float64
}

func reuse(v []float64, n int) []float64 {
	if cap(v) < n {
		return make([]float64, n)
	}
	v = v[:n]
	for i := range v {
		v[i] = 0
	}
	return v
}

const dlamchE = 1.0 / (1 << 53)
