package dok

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDOK(t *testing.T) {
	m := New(2, 3)
	m.SetAt(1, 2, 4)
	m.SetAt(0, 1, 3)
	m.SetAt(1, 2, -1)
	m.SetAt(1, 0, 0)

	if m.Len() != 3 {
		t.Errorf("Len = %d, want 3", m.Len())
	}
	want := []Entry{
		{Row: 0, Col: 1, Value: 3},
		{Row: 1, Col: 0, Value: 0},
		{Row: 1, Col: 2, Value: -1},
	}
	if diff := cmp.Diff(want, m.Entries()); diff != "" {
		t.Errorf("Entries (-want +got):\n%s", diff)
	}
}

func TestSetAtPanics(t *testing.T) {
	for _, ij := range [][2]int{{-1, 0}, {2, 0}, {0, -1}, {0, 3}} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("SetAt%v did not panic", ij)
				}
			}()
			New(2, 3).SetAt(ij[0], ij[1], 1)
		}()
	}
}
