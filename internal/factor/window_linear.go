package factor

import (
	"fmt"
	"math"

	"github.com/tickerfactor/factorctl/pkg/collections"
)

// runningSum implements Sum, Mean and SMA: a fixed-capacity ring buffer
// of the live window plus an incrementally maintained total, updated on
// push and evict ("maintain sum incrementally" rule). SMA is
// Mean under a distinct constructor, kept for round-trip compatibility
// with the legacy overlap-studies alias.
type runningSum struct {
	name    string
	n       int
	child   Operator
	g       gate
	buf     *collections.RingBuffer[float64]
	sum     float64
	divisor func(sum float64, n int) float64
}

func newRunningSum(name string, n int, x Operator, divisor func(sum float64, n int) float64) *runningSum {
	return &runningSum{name: name, n: n, child: x, buf: collections.NewRingBuffer[float64](n), divisor: divisor}
}

func newSum(n int, x Operator) Operator {
	return newRunningSum("Sum", n, x, func(sum float64, n int) float64 { return sum })
}

func newMean(n int, x Operator) Operator {
	return newRunningSum("Mean", n, x, func(sum float64, n int) float64 { return sum / float64(n) })
}

func newSMA(n int, x Operator) Operator {
	return newRunningSum("SMA", n, x, func(sum float64, n int) float64 { return sum / float64(n) })
}

func (r *runningSum) ReadyOffset() int     { return r.child.ReadyOffset() + r.n - 1 }
func (r *runningSum) Children() []Operator { return []Operator{r.child} }

func (r *runningSum) Clone() Operator {
	return newRunningSum(r.name, r.n, r.child.Clone(), r.divisor)
}

func (r *runningSum) withChildren(children []Operator) Operator {
	return newRunningSum(r.name, r.n, children[0], r.divisor)
}

func (r *runningSum) String() string {
	return fmt.Sprintf("(%s %s %s)", r.name, formatNumber(float64(r.n)), r.child.String())
}

func (r *runningSum) Update(batch Batch) ([]float64, error) {
	values, err := r.child.Update(batch)
	if err != nil {
		return nil, err
	}
	childReady := r.child.ReadyOffset()
	out := make([]float64, len(values))
	for i, v := range values {
		if !r.g.next(childReady) {
			out[i] = math.NaN()
			continue
		}
		r.buf.Push(v)
		r.sum += v
		if r.buf.Len() == r.n {
			result, err := fchecked(r.divisor(r.sum, r.n), r.name)
			if err != nil {
				return nil, err
			}
			out[i] = result
			old, _ := r.buf.Pop()
			r.sum -= old
		} else {
			out[i] = math.NaN()
		}
	}
	return out, nil
}
