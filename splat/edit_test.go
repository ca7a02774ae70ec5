package splat

import (
	"errors"
	"testing"
)

func TestMergeConcatenatesAndOrsAntialiased(t *testing.T) {
	a := makeStore(t, 3)
	b := makeStore(t, 2)
	b.SetAntialiased(true)

	if err := a.Merge(b); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if a.Len() != 5 {
		t.Fatalf("len = %d, want 5", a.Len())
	}
	if !a.Antialiased() {
		t.Fatal("antialiased flag was not ORed")
	}
	if a.Means()[3] != b.Means()[0] {
		t.Fatalf("merged means misordered: %v", a.Means())
	}
}

func TestMergeRejectsDegreeMismatch(t *testing.T) {
	a := makeStore(t, 1)

	means := [][3]float32{{0, 0, 0}}
	rotations := [][4]float32{{0, 0, 0, 1}}
	logScales := [][3]float32{{0, 0, 0}}
	sh := [][]float32{make([]float32, 12)} // degree 1
	opacities := []float32{0}
	b, err := New(means, rotations, logScales, sh, opacities)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := a.Merge(b); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("want ErrConfiguration, got %v", err)
	}
}

func TestClearPreservesCapacityAndFlags(t *testing.T) {
	s := makeStore(t, 4)
	s.SetAntialiased(true)
	capBefore := s.Capacity()

	s.Clear()
	if s.Len() != 0 {
		t.Fatalf("len = %d after clear", s.Len())
	}
	if s.Capacity() != capBefore {
		t.Fatalf("capacity = %d, want %d", s.Capacity(), capBefore)
	}
	if !s.Antialiased() {
		t.Fatal("antialiased flag lost on clear")
	}
}

func TestWithCapacityGrows(t *testing.T) {
	s := makeStore(t, 2)
	s.WithCapacity(16)
	if s.Capacity() != 16 || s.Len() != 2 {
		t.Fatalf("capacity=%d len=%d", s.Capacity(), s.Len())
	}
	s.WithCapacity(8) // shrink is a no-op
	if s.Capacity() != 16 {
		t.Fatalf("capacity shrank to %d", s.Capacity())
	}
}

func TestDuplicateSelected(t *testing.T) {
	s := makeStore(t, 3)
	s.SetSelection([]int{0, 2}, SelectionOpSet)

	offset := [3]float32{10, 0, 0}
	start := s.DuplicateSelected(&offset)
	if start != 3 {
		t.Fatalf("start = %d, want 3", start)
	}
	if s.Len() != 5 {
		t.Fatalf("len = %d, want 5", s.Len())
	}
	if s.Means()[3] != [3]float32{10, 0, 0} || s.Means()[4] != [3]float32{12, 0, 0} {
		t.Fatalf("cloned means = %v, %v", s.Means()[3], s.Means()[4])
	}
	// Clones are appended with clean state.
	if s.State()[3] != 0 || s.State()[4] != 0 {
		t.Fatalf("clone state = %v", s.State()[3:])
	}
}

func TestDuplicateSelectedWithoutOffset(t *testing.T) {
	s := makeStore(t, 2)
	s.Select(1)
	start := s.DuplicateSelected(nil)
	if start != 2 || s.Len() != 3 {
		t.Fatalf("start=%d len=%d", start, s.Len())
	}
	if s.Means()[2] != s.Means()[1] {
		t.Fatalf("clone mean = %v, want %v", s.Means()[2], s.Means()[1])
	}
}

func TestExtractSubset(t *testing.T) {
	s := makeStore(t, 4)
	s.Select(2)

	sub := s.ExtractSubset([]int{2, 0})
	if sub.Len() != 2 {
		t.Fatalf("len = %d", sub.Len())
	}
	if sub.Means()[0] != s.Means()[2] || sub.Means()[1] != s.Means()[0] {
		t.Fatalf("subset order wrong: %v", sub.Means())
	}
	if sub.State()[0]&StateSelected == 0 {
		t.Fatal("state bits not carried over")
	}
	if sub.NumSelected() != 1 {
		t.Fatalf("subset selected = %d", sub.NumSelected())
	}
}
