package splat

import "testing"

// recountedCounts recomputes the state counts directly, for comparison against the cached
// values every selection operation must keep in sync.
func recountedCounts(s *Store) (selected, locked, deleted int) {
	for _, st := range s.State() {
		if st&StateSelected != 0 {
			selected++
		}
		if st&StateLocked != 0 {
			locked++
		}
		if st&StateDeleted != 0 {
			deleted++
		}
	}
	return
}

func checkCounts(t *testing.T, s *Store) {
	t.Helper()
	selected, locked, deleted := recountedCounts(s)
	if s.NumSelected() != selected || s.NumLocked() != locked || s.NumDeleted() != deleted {
		t.Fatalf("cached counts (%d, %d, %d) != recomputed (%d, %d, %d)",
			s.NumSelected(), s.NumLocked(), s.NumDeleted(), selected, locked, deleted)
	}
}

func TestSelectionCountsStayInSync(t *testing.T) {
	s := makeStore(t, 8)

	s.Select(0)
	checkCounts(t, s)
	s.Select(3)
	checkCounts(t, s)
	s.Deselect(0)
	checkCounts(t, s)
	s.SetSelection([]int{1, 2, 5}, SelectionOpSet)
	checkCounts(t, s)
	s.SetSelection([]int{2, 6}, SelectionOpAdd)
	checkCounts(t, s)
	s.SetSelection([]int{1}, SelectionOpRemove)
	checkCounts(t, s)
	s.Invert()
	checkCounts(t, s)
	s.LockSelected()
	checkCounts(t, s)
	s.UnlockAll()
	checkCounts(t, s)
	s.DeselectAll()
	checkCounts(t, s)
}

func TestSelectAllAfterLockAll(t *testing.T) {
	s := makeStore(t, 6)
	s.SelectAll()
	s.LockSelected()
	if s.NumLocked() != 6 || s.NumSelected() != 0 {
		t.Fatalf("after lock: selected=%d locked=%d", s.NumSelected(), s.NumLocked())
	}

	s.SelectAll()
	if s.NumSelected() != 0 {
		t.Fatalf("select_all over locked splats selected %d, want 0", s.NumSelected())
	}
	if s.NumLocked() != 6 {
		t.Fatalf("locked count changed to %d", s.NumLocked())
	}
}

func TestDeleteSelectedIsIdempotent(t *testing.T) {
	s := makeStore(t, 5)
	s.SetSelection([]int{1, 3}, SelectionOpSet)

	s.DeleteSelected()
	first := append([]uint8(nil), s.State()...)

	s.DeleteSelected()
	for i, st := range s.State() {
		if st != first[i] {
			t.Fatalf("second delete changed state[%d] from %d to %d", i, first[i], st)
		}
	}
}

func TestDeleteThenUndeleteRoundTrip(t *testing.T) {
	s := makeStore(t, 4)
	s.SetSelection([]int{0, 2}, SelectionOpSet)
	s.DeleteSelected()

	want := []uint8{StateDeleted, 0, StateDeleted, 0}
	for i, st := range s.State() {
		if st != want[i] {
			t.Fatalf("state = %v, want %v", s.State(), want)
		}
	}
	if s.NumSelected() != 0 || s.NumDeleted() != 2 {
		t.Fatalf("selected=%d deleted=%d", s.NumSelected(), s.NumDeleted())
	}

	s.UndeleteAll()
	for i, st := range s.State() {
		if st != 0 {
			t.Fatalf("state[%d] = %d after undelete_all", i, st)
		}
	}
	if s.NumDeleted() != 0 {
		t.Fatalf("deleted=%d after undelete_all", s.NumDeleted())
	}
}

func TestSelectionNeverMutatesLockedOrDeleted(t *testing.T) {
	s := makeStore(t, 4)
	s.Select(0)
	s.LockSelected() // 0 locked
	s.Select(1)
	s.DeleteSelected() // 1 deleted

	s.SetSelection([]int{0, 1, 2, 3}, SelectionOpSet)
	if s.State()[0]&StateSelected != 0 || s.State()[1]&StateSelected != 0 {
		t.Fatalf("locked/deleted splats were selected: %v", s.State())
	}
	if s.NumSelected() != 2 {
		t.Fatalf("selected=%d, want 2", s.NumSelected())
	}

	s.Invert()
	if s.State()[0] != StateLocked || s.State()[1] != StateDeleted {
		t.Fatalf("invert touched locked/deleted splats: %v", s.State())
	}
}

func TestSelectionSetsDirty(t *testing.T) {
	s := makeStore(t, 2)
	s.ClearDirty()
	s.Select(0)
	if !s.Dirty() {
		t.Fatal("selection change did not set dirty")
	}
}
