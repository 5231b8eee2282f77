// Package market reads and writes sparse matrices in the Matrix Market
// coordinate format.
//
// Only real matrices are supported. Write emits the general layout; Read
// accepts general and symmetric files and mirrors the entries of the
// latter.
package market

import (
	"bufio"
	"cmp"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/vladimir-ch/linsys/internal/dok"
)

// ErrFormat indicates malformed Matrix Market input.
var ErrFormat = errors.New("market: invalid format")

const banner = "%%MatrixMarket"

// Source is a sparse matrix that can be written. Do must visit every stored
// entry with global indices starting at base.
type Source interface {
	Dims() (r, c int)
	NNZ() int
	Do(fn func(i, j int, v float64))
}

// Write writes a in coordinate real general format. base is the smallest
// index used by a; indices are written one-based.
func Write(w io.Writer, a Source, base int) error {
	bw := bufio.NewWriter(w)
	r, c := a.Dims()
	fmt.Fprintf(bw, "%s matrix coordinate real general\n", banner)
	fmt.Fprintf(bw, "%d %d %d\n", r, c, a.NNZ())
	a.Do(func(i, j int, v float64) {
		fmt.Fprintf(bw, "%d %d %s\n", i-base+1, j-base+1, strconv.FormatFloat(v, 'g', -1, 64))
	})
	return bw.Flush()
}

// Matrix is a matrix read from a Matrix Market file. Entries are stored in
// row-major order with zero-based indices.
type Matrix struct {
	Rows, Cols int
	Symmetric  bool
	Entries    []dok.Entry
}

// Dims returns the dimensions of m.
func (m *Matrix) Dims() (r, c int) { return m.Rows, m.Cols }

// NNZ returns the number of stored entries.
func (m *Matrix) NNZ() int { return len(m.Entries) }

// Do calls fn for every entry with zero-based indices.
func (m *Matrix) Do(fn func(i, j int, v float64)) {
	for _, e := range m.Entries {
		fn(e.Row, e.Col, e.Value)
	}
}

// MatVec computes dst = m*x.
func (m *Matrix) MatVec(dst, x []float64) {
	if len(x) != m.Cols || len(dst) != m.Rows {
		panic("market: dimension mismatch")
	}
	for i := range dst {
		dst[i] = 0
	}
	for _, e := range m.Entries {
		dst[e.Row] += e.Value * x[e.Col]
	}
}

// Row returns the entries of the zero-based row i. The slice aliases
// m.Entries.
func (m *Matrix) Row(i int) []dok.Entry {
	lo, _ := slices.BinarySearchFunc(m.Entries, i, func(e dok.Entry, i int) int { return cmp.Compare(e.Row, i) })
	hi, _ := slices.BinarySearchFunc(m.Entries[lo:], i+1, func(e dok.Entry, i int) int { return cmp.Compare(e.Row, i) })
	return m.Entries[lo : lo+hi]
}

// Read parses a coordinate real matrix. Duplicate positions keep the last
// value. Errors wrap ErrFormat and carry the line number.
func Read(r io.Reader) (*Matrix, error) {
	sc := bufio.NewScanner(r)
	line := 0
	next := func() (string, bool) {
		for sc.Scan() {
			line++
			s := strings.TrimSpace(sc.Text())
			if s == "" || (strings.HasPrefix(s, "%") && !strings.HasPrefix(s, banner)) {
				continue
			}
			return s, true
		}
		return "", false
	}
	fail := func(format string, args ...any) error {
		return fmt.Errorf("line %d: %s: %w", line, fmt.Sprintf(format, args...), ErrFormat)
	}

	hdr, ok := next()
	if !ok {
		return nil, readErr(sc, fail("missing header"))
	}
	fields := strings.Fields(strings.ToLower(hdr))
	if len(fields) != 5 || fields[0] != strings.ToLower(banner) || fields[1] != "matrix" {
		return nil, fail("bad header %q", hdr)
	}
	if fields[2] != "coordinate" || fields[3] != "real" {
		return nil, fail("unsupported %s %s", fields[2], fields[3])
	}
	var symmetric bool
	switch fields[4] {
	case "general":
	case "symmetric":
		symmetric = true
	default:
		return nil, fail("unsupported symmetry %s", fields[4])
	}

	size, ok := next()
	if !ok {
		return nil, readErr(sc, fail("missing size line"))
	}
	var rows, cols, nnz int
	if _, err := fmt.Sscan(size, &rows, &cols, &nnz); err != nil || rows < 0 || cols < 0 || nnz < 0 {
		return nil, fail("bad size line %q", size)
	}
	if symmetric && rows != cols {
		return nil, fail("symmetric matrix is %d×%d", rows, cols)
	}

	d := dok.New(rows, cols)
	for k := 0; k < nnz; k++ {
		s, ok := next()
		if !ok {
			return nil, readErr(sc, fail("expected %d entries, got %d", nnz, k))
		}
		f := strings.Fields(s)
		if len(f) != 3 {
			return nil, fail("bad entry %q", s)
		}
		i, err1 := strconv.Atoi(f[0])
		j, err2 := strconv.Atoi(f[1])
		v, err3 := strconv.ParseFloat(f[2], 64)
		if err := errors.Join(err1, err2, err3); err != nil {
			return nil, fail("bad entry %q", s)
		}
		if i < 1 || rows < i || j < 1 || cols < j {
			return nil, fail("entry (%d,%d) outside %d×%d", i, j, rows, cols)
		}
		d.SetAt(i-1, j-1, v)
		if symmetric && i != j {
			d.SetAt(j-1, i-1, v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return &Matrix{
		Rows:      rows,
		Cols:      cols,
		Symmetric: symmetric,
		Entries:   d.Entries(),
	}, nil
}

func readErr(sc *bufio.Scanner, err error) error {
	if sc.Err() != nil {
		return sc.Err()
	}
	return err
}
