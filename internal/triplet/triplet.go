// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package triplet implements coordinate (COO) storage used to stage matrix
// entries before they are compressed into CSR form.
package triplet

import (
	"cmp"
	"slices"
)

type triplet struct {
	i, j int
	v    float64
}

// Matrix is an r×c matrix stored as an unordered list of (i, j, v)
// triplets. Entries with the same position are summed.
type Matrix struct {
	r, c int
	data []triplet
}

// New returns an empty r×c matrix.
func New(r, c int) *Matrix {
	return &Matrix{
		r: r,
		c: c,
	}
}

// Dims returns the dimensions of m.
func (m *Matrix) Dims() (r, c int) {
	return m.r, m.c
}

// Len returns the number of stored triplets, duplicates included.
func (m *Matrix) Len() int {
	return len(m.data)
}

// Append adds v to the entry at (i, j).
func (m *Matrix) Append(i, j int, v float64) {
	if i < 0 || m.r <= i {
		panic("row index out of range")
	}
	if j < 0 || m.c <= j {
		panic("column index out of range")
	}
	m.data = append(m.data, triplet{i, j, v})
}

// MulVec computes dst = m*x.
func (m *Matrix) MulVec(dst, x []float64) {
	if m.c != len(x) {
		panic("dimension mismatch")
	}
	if m.r != len(dst) {
		panic("dimension mismatch")
	}
	for i := range dst {
		dst[i] = 0
	}
	for _, aij := range m.data {
		dst[aij.i] += aij.v * x[aij.j]
	}
}

// MulTransVec computes dst = mᵀ*x.
func (m *Matrix) MulTransVec(dst, x []float64) {
	if m.c != len(dst) {
		panic("dimension mismatch")
	}
	if m.r != len(x) {
		panic("dimension mismatch")
	}
	for i := range dst {
		dst[i] = 0
	}
	for _, aij := range m.data {
		dst[aij.j] += aij.v * x[aij.i]
	}
}

// CSR compresses m into compressed sparse row arrays. Columns are sorted
// within each row and duplicate positions are summed. Entries keep their
// insertion order among duplicates so the sums are reproducible.
func (m *Matrix) CSR() (rowPtr, colInd []int, vals []float64) {
	data := slices.Clone(m.data)
	slices.SortStableFunc(data, func(a, b triplet) int {
		if c := cmp.Compare(a.i, b.i); c != 0 {
			return c
		}
		return cmp.Compare(a.j, b.j)
	})

	rowPtr = make([]int, m.r+1)
	colInd = make([]int, 0, len(data))
	vals = make([]float64, 0, len(data))
	for k, t := range data {
		if k > 0 && data[k-1].i == t.i && data[k-1].j == t.j {
			vals[len(vals)-1] += t.v
			continue
		}
		colInd = append(colInd, t.j)
		vals = append(vals, t.v)
		rowPtr[t.i+1]++
	}
	for i := 0; i < m.r; i++ {
		rowPtr[i+1] += rowPtr[i]
	}
	return rowPtr, colInd, vals
}
