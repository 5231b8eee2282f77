package stencil

import (
	"errors"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// problemReader serves rows straight from a Problem.
type problemReader struct{ p Problem }

func (r problemReader) Row(i int) ([]int, []float64, error) {
	row, err := r.p.Row(i)
	if err != nil {
		return nil, nil, err
	}
	cols, vals := row.Cols()
	return cols, vals, nil
}

func TestConstantRHS(t *testing.T) {
	var got []float64
	for v := range ConstantRHS(span(0, 5), 1) {
		got = append(got, v.Value)
	}
	if diff := cmp.Diff([]float64{1, 1, 1, 1, 1}, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestResidualRHS(t *testing.T) {
	p := Problem{Kind: Laplace1D, N: 5, IndexBase: 1}
	x := []float64{1, 2, 3, 4, 5}
	vals, err := ResidualRHS([]int{5, 1, 3}, problemReader{p}, x, 1)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	want := []Value{
		{5, -4 + 10},
		{1, 2 - 2},
		{3, -2 + 6 - 4},
	}
	if diff := cmp.Diff(want, slices.Collect(vals)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestResidualRHSOnes(t *testing.T) {
	// A*1 is the row sum: zero inside, one on the boundary.
	p := Problem{Kind: Laplace1D, N: 6}
	ones := []float64{1, 1, 1, 1, 1, 1}
	vals, err := ResidualRHS(span(0, 6), problemReader{p}, ones, 0)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	var got []float64
	for v := range vals {
		got = append(got, v.Value)
	}
	if diff := cmp.Diff([]float64{1, 0, 0, 0, 0, 1}, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestResidualRHSErrors(t *testing.T) {
	p := Problem{Kind: Laplace1D, N: 5}
	// Row 4 reads columns 3 and 4, both beyond a vector of length 3.
	if _, err := ResidualRHS([]int{4}, problemReader{p}, make([]float64, 3), 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("short x: got error %v, want ErrInvalidArgument", err)
	}
	// Row 0 reads columns 0 and 1 only.
	if _, err := ResidualRHS([]int{0}, problemReader{p}, make([]float64, 3), 0); err != nil {
		t.Errorf("columns within x: unexpected error %v", err)
	}
	if _, err := ResidualRHS([]int{7}, problemReader{p}, make([]float64, 5), 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("row outside: got error %v, want ErrInvalidArgument", err)
	}
}

func TestNewVector(t *testing.T) {
	if diff := cmp.Diff(make([]float64, 4), NewVector(4, FillZero, nil)); diff != "" {
		t.Errorf("FillZero (-want +got):\n%s", diff)
	}
	a := NewVector(100, FillRandom, rand.New(rand.NewPCG(3, 4)))
	b := NewVector(100, FillRandom, rand.New(rand.NewPCG(3, 4)))
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same seed gave different vectors:\n%s", diff)
	}
	for i, v := range a {
		if v < -1 || 1 <= v {
			t.Errorf("entry %d = %v outside [-1, 1)", i, v)
		}
	}
	if FillRandom.String() != "random" || Fill(7).String() != "Fill(7)" {
		t.Errorf("unexpected Fill names %q, %q", FillRandom, Fill(7))
	}
}
