package factor

import (
	"fmt"
	"math"

	"github.com/tickerfactor/factorctl/pkg/collections"
)

// rankOp implements Rank(N, x): an order-statistics multiset plus a
// parallel FIFO of the N live values.
type rankOp struct {
	n      int
	child  Operator
	g      gate
	values *collections.RingBuffer[float64]
	tree   orderStatTree
}

func newRank(n int, x Operator) Operator {
	return &rankOp{n: n, child: x, values: collections.NewRingBuffer[float64](n)}
}

func (r *rankOp) ReadyOffset() int     { return r.child.ReadyOffset() + r.n - 1 }
func (r *rankOp) Children() []Operator { return []Operator{r.child} }
func (r *rankOp) Clone() Operator      { return newRank(r.n, r.child.Clone()) }
func (r *rankOp) withChildren(children []Operator) Operator {
	return newRank(r.n, children[0])
}
func (r *rankOp) String() string {
	return fmt.Sprintf("(Rank %s %s)", formatNumber(float64(r.n)), r.child.String())
}

func (r *rankOp) Update(batch Batch) ([]float64, error) {
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
		r.tree.Insert(v)
		r.values.Push(v)
		if r.values.Len() == r.n {
			rank, err := fchecked(float64(r.tree.RankLess(v)), "Rank")
			if err != nil {
				return nil, err
			}
			out[i] = rank
			old, _ := r.values.Pop()
			r.tree.Remove(old)
		} else {
			out[i] = math.NaN()
		}
	}
	return out, nil
}

// quantileOp implements Quantile(N, q, x): same multiset/FIFO pair as
// Rank, reporting select(r) at the precomputed target ordinal
// r = floor((N-1)*q) once the window is full.
type quantileOp struct {
	n      int
	q      float64
	r      int
	child  Operator
	g      gate
	values *collections.RingBuffer[float64]
	tree   orderStatTree
}

// newQuantile requires q in [0,1], validated by the parser.
func newQuantile(n int, q float64, x Operator) Operator {
	return &quantileOp{n: n, q: q, r: int(math.Floor(float64(n-1) * q)), child: x, values: collections.NewRingBuffer[float64](n)}
}

func (q *quantileOp) ReadyOffset() int     { return q.child.ReadyOffset() + q.n - 1 }
func (q *quantileOp) Children() []Operator { return []Operator{q.child} }
func (q *quantileOp) Clone() Operator      { return newQuantile(q.n, q.q, q.child.Clone()) }
func (q *quantileOp) withChildren(children []Operator) Operator {
	return newQuantile(q.n, q.q, children[0])
}
func (q *quantileOp) String() string {
	return fmt.Sprintf("(Quantile %s %s %s)", formatNumber(float64(q.n)), formatNumber(q.q), q.child.String())
}

func (q *quantileOp) Update(batch Batch) ([]float64, error) {
	values, err := q.child.Update(batch)
	if err != nil {
		return nil, err
	}
	childReady := q.child.ReadyOffset()
	out := make([]float64, len(values))
	for i, v := range values {
		if !q.g.next(childReady) {
			out[i] = math.NaN()
			continue
		}
		q.tree.Insert(v)
		q.values.Push(v)
		if q.values.Len() == q.n {
			sel, _ := q.tree.Select(q.r)
			sel, err := fchecked(sel, "Quantile")
			if err != nil {
				return nil, err
			}
			out[i] = sel
			old, _ := q.values.Pop()
			q.tree.Remove(old)
		} else {
			out[i] = math.NaN()
		}
	}
	return out, nil
}
