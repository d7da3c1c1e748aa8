package factor

import (
	"math"
	"sort"
)

// columnBatch is a minimal in-memory Batch backed by named column
// slices, used throughout this package's tests.
type columnBatch struct {
	names   []string
	columns [][]float64
	n       int
}

func newColumnBatch(cols map[string][]float64) *columnBatch {
	b := &columnBatch{}
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		values := cols[name]
		b.names = append(b.names, name)
		b.columns = append(b.columns, values)
		if len(values) > b.n {
			b.n = len(values)
		}
	}
	return b
}

func (b *columnBatch) Len() int { return b.n }

func (b *columnBatch) IndexOf(name string) (int, bool) {
	for i, n := range b.names {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

func (b *columnBatch) Values(i int) ([]float64, bool) {
	if i < 0 || i >= len(b.columns) {
		return nil, false
	}
	return b.columns[i], true
}

// feedRows replays a factor over a column one row at a time, the way a
// real streaming driver would, and returns the concatenated output.
func feedRows(f *Factor, col []float64) ([]float64, error) {
	out := make([]float64, 0, len(col))
	for _, v := range col {
		batch := newColumnBatch(map[string][]float64{"x": {v}})
		vals, err := f.Update(batch)
		if err != nil {
			return nil, err
		}
		out = append(out, vals...)
	}
	return out, nil
}

func feedRowsXY(f *Factor, x, y []float64) ([]float64, error) {
	out := make([]float64, 0, len(x))
	for i := range x {
		batch := newColumnBatch(map[string][]float64{"x": {x[i]}, "y": {y[i]}})
		vals, err := f.Update(batch)
		if err != nil {
			return nil, err
		}
		out = append(out, vals...)
	}
	return out, nil
}

func nans(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func allNaN(xs ...float64) bool {
	for _, x := range xs {
		if !math.IsNaN(x) {
			return false
		}
	}
	return true
}

func almostEqual(a, b, tol float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	return math.Abs(a-b) <= tol
}
