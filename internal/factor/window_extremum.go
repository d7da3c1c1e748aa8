package factor

import (
	"fmt"
	"math"
)

// dequeEntry is a (seq, value) pair held in the monotone deque: seq is
// the strictly increasing per-node row counter at the time value was
// pushed.
type dequeEntry struct {
	seq   int
	value float64
}

// extremum implements Min, Max, ArgMin and ArgMax via a monotone
// deque. moreThan reports whether candidate strictly dominates
// incumbent for this operator's sense (value comparison only; seq
// ordering is handled separately by front expiry).
type extremum struct {
	name     string
	n        int
	child    Operator
	g        gate
	deque    []dequeEntry
	seq      int
	arg      bool
	moreThan func(candidate, incumbent float64) bool
}

func newMin(n int, x Operator) Operator {
	return &extremum{name: "Min", n: n, child: x, moreThan: func(c, i float64) bool { return c < i }}
}
func newMax(n int, x Operator) Operator {
	return &extremum{name: "Max", n: n, child: x, moreThan: func(c, i float64) bool { return c > i }}
}
func newArgMin(n int, x Operator) Operator {
	return &extremum{name: "ArgMin", n: n, child: x, arg: true, moreThan: func(c, i float64) bool { return c < i }}
}
func newArgMax(n int, x Operator) Operator {
	return &extremum{name: "ArgMax", n: n, child: x, arg: true, moreThan: func(c, i float64) bool { return c > i }}
}

func (e *extremum) ReadyOffset() int     { return e.child.ReadyOffset() + e.n - 1 }
func (e *extremum) Children() []Operator { return []Operator{e.child} }

func (e *extremum) Clone() Operator {
	return &extremum{name: e.name, n: e.n, child: e.child.Clone(), arg: e.arg, moreThan: e.moreThan}
}

func (e *extremum) withChildren(children []Operator) Operator {
	return &extremum{name: e.name, n: e.n, child: children[0], arg: e.arg, moreThan: e.moreThan}
}

func (e *extremum) String() string {
	return fmt.Sprintf("(%s %s %s)", e.name, formatNumber(float64(e.n)), e.child.String())
}

func (e *extremum) Update(batch Batch) ([]float64, error) {
	values, err := e.child.Update(batch)
	if err != nil {
		return nil, err
	}
	childReady := e.child.ReadyOffset()
	out := make([]float64, len(values))
	for i, v := range values {
		if !e.g.next(childReady) {
			out[i] = math.NaN()
			continue
		}
		// Drop expired front entries: no longer within the last N rows.
		for len(e.deque) > 0 && e.deque[0].seq+e.n <= e.seq {
			e.deque = e.deque[1:]
		}
		// Drop back entries dominated by the incoming value.
		for len(e.deque) > 0 && e.moreThan(v, e.deque[len(e.deque)-1].value) {
			e.deque = e.deque[:len(e.deque)-1]
		}
		e.deque = append(e.deque, dequeEntry{seq: e.seq, value: v})

		// The window is full once e.seq has advanced N-1 steps past the
		// first post-gate row (seq starts at 0 for the first such row).
		if e.seq >= e.n-1 {
			front := e.deque[0]
			if e.arg {
				out[i] = float64(front.seq + e.n - e.seq - 1)
			} else {
				out[i] = front.value
			}
		} else {
			out[i] = math.NaN()
		}
		e.seq++
	}
	return out, nil
}
