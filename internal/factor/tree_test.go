package factor

import (
	"math"
	"testing"
)

func sampleFactor(t *testing.T) *Factor {
	t.Helper()
	f, err := Parse("(+ :close (Sum 3 :volume))")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return f
}

func TestFactor_LenAndDepth(t *testing.T) {
	f := sampleFactor(t)
	// nodes: +, :close, Sum, :volume = 4
	if f.Len() != 4 {
		t.Errorf("want Len 4, got %d", f.Len())
	}
	if f.Depth() != 3 {
		t.Errorf("want Depth 3, got %d", f.Depth())
	}
}

func TestFactor_ChildIndices(t *testing.T) {
	f := sampleFactor(t)
	indices := f.ChildIndices()
	want := []int{1, 2}
	if len(indices) != len(want) {
		t.Fatalf("want %d child indices, got %d: %v", len(want), len(indices), indices)
	}
	for i, w := range want {
		if indices[i] != w {
			t.Errorf("child index %d: want %d, got %d", i, w, indices[i])
		}
	}
}

func TestFactor_Columns(t *testing.T) {
	f := sampleFactor(t)
	cols := f.Columns()
	want := []string{"close", "volume"}
	if len(cols) != len(want) {
		t.Fatalf("want columns %v, got %v", want, cols)
	}
	for i, w := range want {
		if cols[i] != w {
			t.Errorf("column %d: want %s, got %s", i, w, cols[i])
		}
	}
}

func TestFactor_GetClonesSubtree(t *testing.T) {
	f := sampleFactor(t)
	sub, err := f.Get(2)
	if err != nil {
		t.Fatalf("Get(2) failed: %v", err)
	}
	if sub.String() != "(Sum 3 :volume)" {
		t.Errorf("want \"(Sum 3 :volume)\", got %q", sub.String())
	}
}

func TestFactor_GetWholeTree(t *testing.T) {
	f := sampleFactor(t)
	sub, err := f.Get(0)
	if err != nil {
		t.Fatalf("Get(0) failed: %v", err)
	}
	if !sub.Equal(f) {
		t.Errorf("Get(0) should clone the whole factor: want %q, got %q", f.String(), sub.String())
	}
}

func TestFactor_GetOutOfRange(t *testing.T) {
	f := sampleFactor(t)
	if _, err := f.Get(f.Len()); err == nil {
		t.Error("expected an error for an out-of-range index")
	}
	if _, err := f.Get(-1); err == nil {
		t.Error("expected an error for a negative index")
	}
}

func TestFactor_ReplaceSubtree(t *testing.T) {
	f := sampleFactor(t)
	replacement, err := Parse(":open")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	newFactor, displaced, err := f.Replace(1, replacement)
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if newFactor.String() != "(+ :open (Sum 3 :volume))" {
		t.Errorf("unexpected result: %q", newFactor.String())
	}
	if displaced.String() != ":close" {
		t.Errorf("unexpected displaced subtree: %q", displaced.String())
	}
	// The original factor is untouched.
	if f.String() != "(+ :close (Sum 3 :volume))" {
		t.Errorf("original factor was mutated: %q", f.String())
	}
}

func TestFactor_ReplaceWholeFactorAtIndexZero(t *testing.T) {
	f := sampleFactor(t)
	replacement, err := Parse(":open")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	newFactor, displaced, err := f.Replace(0, replacement)
	if err != nil {
		t.Fatalf("Replace(0, ...) failed: %v", err)
	}
	if newFactor.String() != ":open" {
		t.Errorf("want :open, got %q", newFactor.String())
	}
	if !displaced.Equal(f) {
		t.Errorf("displaced subtree should equal the original factor")
	}
}

func TestReplace_IndexZeroForbiddenAtTreeLevel(t *testing.T) {
	f := sampleFactor(t)
	sub, _ := Parse(":open")
	if _, _, err := Replace(f.Root(), 0, sub.Root()); err == nil {
		t.Error("expected the package-level Replace to forbid index 0")
	}
}

func TestFactor_CloneIsIndependent(t *testing.T) {
	f, err := Parse("(Sum 2 :x)")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	clone := f.Clone()
	if !clone.Equal(f) {
		t.Error("clone should be equal to the original in canonical form")
	}

	// Advance f's streaming state past its own warm-up.
	if _, err := feedRows(f, []float64{1, 2, 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The clone's state was not advanced by f's updates: fed the same
	// rows from scratch, its first row is still a warm-up NaN.
	cloneOut, err := feedRows(clone, []float64{1, 2, 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !math.IsNaN(cloneOut[0]) {
		t.Errorf("clone should still be warming up on its first row, got %v", cloneOut[0])
	}
}

func TestFactor_EqualIgnoresStreamingState(t *testing.T) {
	a, _ := Parse("(Sum 2 :x)")
	b, _ := Parse("(Sum 2 :x)")
	if !a.Equal(b) {
		t.Error("two freshly parsed equivalent factors should be Equal")
	}
}
