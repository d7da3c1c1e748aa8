package factor

import (
	"fmt"
	"math"

	"github.com/tickerfactor/factorctl/pkg/collections"
)

// delayOp implements Delay(N, x): a pure FIFO of capacity N+1. Ready
// offset is child.ReadyOffset() + N, not the usual N-1: the one
// deliberate exception to the common window frame. N may be 0, in
// which case the FIFO has capacity 1 and Delay is the identity.
type delayOp struct {
	n     int
	child Operator
	g     gate
	buf   *collections.RingBuffer[float64]
}

func newDelay(n int, x Operator) Operator {
	return &delayOp{n: n, child: x, buf: collections.NewRingBuffer[float64](n + 1)}
}

func (d *delayOp) ReadyOffset() int     { return d.child.ReadyOffset() + d.n }
func (d *delayOp) Children() []Operator { return []Operator{d.child} }
func (d *delayOp) Clone() Operator      { return newDelay(d.n, d.child.Clone()) }
func (d *delayOp) withChildren(children []Operator) Operator {
	return newDelay(d.n, children[0])
}
func (d *delayOp) String() string {
	return fmt.Sprintf("(Delay %s %s)", formatNumber(float64(d.n)), d.child.String())
}

func (d *delayOp) Update(batch Batch) ([]float64, error) {
	values, err := d.child.Update(batch)
	if err != nil {
		return nil, err
	}
	childReady := d.child.ReadyOffset()
	out := make([]float64, len(values))
	for i, v := range values {
		if !d.g.next(childReady) {
			out[i] = math.NaN()
			continue
		}
		d.buf.Push(v)
		if d.buf.IsFull() {
			front, _ := d.buf.Pop()
			out[i] = front
		} else {
			out[i] = math.NaN()
		}
	}
	return out, nil
}

// logReturnOp implements LogReturn(N, x): FIFO of N+1 values, emitting
// ln(back/front) once full, a FIFO-of-(N+1) shape rather than a plain
// N-window (see DESIGN.md for why).
type logReturnOp struct {
	n     int
	child Operator
	g     gate
	buf   *collections.RingBuffer[float64]
}

func newLogReturn(n int, x Operator) Operator {
	return &logReturnOp{n: n, child: x, buf: collections.NewRingBuffer[float64](n + 1)}
}

func (l *logReturnOp) ReadyOffset() int     { return l.child.ReadyOffset() + l.n }
func (l *logReturnOp) Children() []Operator { return []Operator{l.child} }
func (l *logReturnOp) Clone() Operator      { return newLogReturn(l.n, l.child.Clone()) }
func (l *logReturnOp) withChildren(children []Operator) Operator {
	return newLogReturn(l.n, children[0])
}
func (l *logReturnOp) String() string {
	return fmt.Sprintf("(LogReturn %s %s)", formatNumber(float64(l.n)), l.child.String())
}

func (l *logReturnOp) Update(batch Batch) ([]float64, error) {
	values, err := l.child.Update(batch)
	if err != nil {
		return nil, err
	}
	childReady := l.child.ReadyOffset()
	out := make([]float64, len(values))
	for i, v := range values {
		if !l.g.next(childReady) {
			out[i] = math.NaN()
			continue
		}
		l.buf.Push(v)
		if l.buf.IsFull() {
			front, _ := l.buf.Pop()
			back := v
			result, err := fchecked(math.Log(back/front), "LogReturn")
			if err != nil {
				return nil, err
			}
			out[i] = result
		} else {
			out[i] = math.NaN()
		}
	}
	return out, nil
}
