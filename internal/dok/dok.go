// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dok implements dictionary-of-keys sparse storage. It is used
// where entries arrive in arbitrary order and may be overwritten, as when
// reading Matrix Market files.
package dok

import (
	"cmp"
	"slices"
)

type DOK struct {
	Rows, Cols int

	data map[index]float64
}

type index struct {
	row, col int
}

// Entry is a stored entry of a DOK.
type Entry struct {
	Row, Col int
	Value    float64
}

func New(r, c int) *DOK {
	return &DOK{
		Rows: r,
		Cols: c,
		data: make(map[index]float64),
	}
}

func (m *DOK) check(i, j int) {
	if i < 0 || m.Rows <= i {
		panic("row index out of range")
	}
	if j < 0 || m.Cols <= j {
		panic("column index out of range")
	}
}

// SetAt stores v at (i, j), replacing any earlier value. Explicit zeros
// are stored.
func (m *DOK) SetAt(i, j int, v float64) {
	m.check(i, j)
	m.data[index{i, j}] = v
}

// Len returns the number of stored entries.
func (m *DOK) Len() int {
	return len(m.data)
}

// Entries returns the stored entries in row-major order.
func (m *DOK) Entries() []Entry {
	es := make([]Entry, 0, len(m.data))
	for ij, v := range m.data {
		es = append(es, Entry{Row: ij.row, Col: ij.col, Value: v})
	}
	slices.SortFunc(es, func(a, b Entry) int {
		if c := cmp.Compare(a.Row, b.Row); c != 0 {
			return c
		}
		return cmp.Compare(a.Col, b.Col)
	})
	return es
}
