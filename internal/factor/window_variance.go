package factor

import (
	"fmt"
	"math"

	"github.com/tickerfactor/factorctl/pkg/collections"
)

// twoPassStat implements Stdev and Skew: both need a second pass over
// the live window once its mean is known, so they share a ring buffer
// of raw values plus an incremental sum for the mean, and differ only
// in the compute function run once the window is full.
type twoPassStat struct {
	name    string
	n       int
	child   Operator
	g       gate
	buf     *collections.RingBuffer[float64]
	sum     float64
	compute func(window []float64, mean float64, n int) float64
}

func (s *twoPassStat) ReadyOffset() int     { return s.child.ReadyOffset() + s.n - 1 }
func (s *twoPassStat) Children() []Operator { return []Operator{s.child} }

func (s *twoPassStat) Clone() Operator {
	return &twoPassStat{name: s.name, n: s.n, child: s.child.Clone(), buf: collections.NewRingBuffer[float64](s.n), compute: s.compute}
}

func (s *twoPassStat) withChildren(children []Operator) Operator {
	return &twoPassStat{name: s.name, n: s.n, child: children[0], buf: collections.NewRingBuffer[float64](s.n), compute: s.compute}
}

func (s *twoPassStat) String() string {
	return fmt.Sprintf("(%s %s %s)", s.name, formatNumber(float64(s.n)), s.child.String())
}

func (s *twoPassStat) Update(batch Batch) ([]float64, error) {
	values, err := s.child.Update(batch)
	if err != nil {
		return nil, err
	}
	childReady := s.child.ReadyOffset()
	out := make([]float64, len(values))
	for i, v := range values {
		if !s.g.next(childReady) {
			out[i] = math.NaN()
			continue
		}
		s.buf.Push(v)
		s.sum += v
		if s.buf.Len() == s.n {
			window := s.buf.Snapshot()
			mean := s.sum / float64(s.n)
			result, err := fchecked(s.compute(window, mean, s.n), s.name)
			if err != nil {
				return nil, err
			}
			out[i] = result
			old, _ := s.buf.Pop()
			s.sum -= old
		} else {
			out[i] = math.NaN()
		}
	}
	return out, nil
}

// newStdev requires n >= 2, validated by the parser before construction.
func newStdev(n int, x Operator) Operator {
	return &twoPassStat{name: "Stdev", n: n, child: x, buf: collections.NewRingBuffer[float64](n), compute: stdevOf}
}

func stdevOf(window []float64, mean float64, n int) float64 {
	var ss float64
	for _, v := range window {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// newSkew requires n >= 3, validated by the parser before construction.
func newSkew(n int, x Operator) Operator {
	return &twoPassStat{name: "Skew", n: n, child: x, buf: collections.NewRingBuffer[float64](n), compute: skewOf}
}

func skewOf(window []float64, mean float64, n int) float64 {
	var m2, m3 float64
	for _, v := range window {
		d := v - mean
		m2 += d * d
		m3 += d * d * d
	}
	nf := float64(n)
	m2 /= nf
	m3 /= nf
	if m2 == 0 {
		return 0
	}
	correction := math.Sqrt(nf*(nf-1)) / (nf - 2)
	return correction * m3 / math.Pow(m2, 1.5)
}
