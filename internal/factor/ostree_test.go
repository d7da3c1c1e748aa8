package factor

import "testing"

func TestOrderStatTree_RankLessAndSelect(t *testing.T) {
	var tr orderStatTree
	values := []float64{5, 1, 9, 3, 7}
	for _, v := range values {
		tr.Insert(v)
	}

	if rank := tr.RankLess(5); rank != 2 {
		t.Errorf("RankLess(5): want 2 (1 and 3 are less), got %d", rank)
	}
	if rank := tr.RankLess(0); rank != 0 {
		t.Errorf("RankLess(0): want 0, got %d", rank)
	}
	if rank := tr.RankLess(10); rank != 5 {
		t.Errorf("RankLess(10): want 5, got %d", rank)
	}

	sorted := []float64{1, 3, 5, 7, 9}
	for i, want := range sorted {
		got, ok := tr.Select(i)
		if !ok {
			t.Fatalf("Select(%d): expected a value", i)
		}
		if got != want {
			t.Errorf("Select(%d): want %v, got %v", i, want, got)
		}
	}
}

func TestOrderStatTree_RemoveUpdatesRanks(t *testing.T) {
	var tr orderStatTree
	for _, v := range []float64{2, 4, 6, 8} {
		tr.Insert(v)
	}
	tr.Remove(4)

	if rank := tr.RankLess(6); rank != 1 {
		t.Errorf("after removing 4, RankLess(6): want 1, got %d", rank)
	}
	got, ok := tr.Select(1)
	if !ok || got != 6 {
		t.Errorf("after removing 4, Select(1): want 6, got %v (ok=%v)", got, ok)
	}
}

func TestOrderStatTree_DuplicateValues(t *testing.T) {
	var tr orderStatTree
	for _, v := range []float64{3, 3, 3} {
		tr.Insert(v)
	}
	if rank := tr.RankLess(3); rank != 0 {
		t.Errorf("RankLess(3) with only 3s present: want 0, got %d", rank)
	}
	tr.Remove(3)
	if rank := tr.RankLess(4); rank != 2 {
		t.Errorf("after removing one 3, RankLess(4): want 2, got %d", rank)
	}
}
