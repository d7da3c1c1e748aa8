package factor

import (
	"fmt"
	"math"

	"github.com/tickerfactor/factorctl/pkg/collections"
)

// correlation implements Corr(N, x, y): a rolling Pearson correlation
// over aligned pairs, with both children evaluated in parallel.
type correlation struct {
	n        int
	children []Operator // [x, y]
	g        gate
	xbuf     *collections.RingBuffer[float64]
	ybuf     *collections.RingBuffer[float64]
	xsum     float64
	ysum     float64
}

func newCorrelation(n int, x, y Operator) Operator {
	return &correlation{
		n:        n,
		children: []Operator{x, y},
		xbuf:     collections.NewRingBuffer[float64](n),
		ybuf:     collections.NewRingBuffer[float64](n),
	}
}

func (c *correlation) ReadyOffset() int     { return maxReady(c.children) + c.n - 1 }
func (c *correlation) Children() []Operator { return c.children }

func (c *correlation) Clone() Operator {
	return newCorrelation(c.n, c.children[0].Clone(), c.children[1].Clone())
}

func (c *correlation) withChildren(children []Operator) Operator {
	return newCorrelation(c.n, children[0], children[1])
}

func (c *correlation) String() string {
	return fmt.Sprintf("(Corr %s %s %s)", formatNumber(float64(c.n)), c.children[0].String(), c.children[1].String())
}

func (c *correlation) Update(batch Batch) ([]float64, error) {
	parts, err := evalChildrenParallel(batch, c.children)
	if err != nil {
		return nil, err
	}
	xs, ys := parts[0], parts[1]
	childReady := maxReady(c.children)
	out := make([]float64, len(xs))
	for i := range out {
		if !c.g.next(childReady) {
			out[i] = math.NaN()
			continue
		}
		x, y := xs[i], ys[i]
		c.xbuf.Push(x)
		c.ybuf.Push(y)
		c.xsum += x
		c.ysum += y
		if c.xbuf.Len() == c.n {
			xw := c.xbuf.Snapshot()
			yw := c.ybuf.Snapshot()
			mx := c.xsum / float64(c.n)
			my := c.ysum / float64(c.n)
			var num, dx2, dy2 float64
			for k := range xw {
				ddx := xw[k] - mx
				ddy := yw[k] - my
				num += ddx * ddy
				dx2 += ddx * ddx
				dy2 += ddy * ddy
			}
			denom := math.Sqrt(dx2) * math.Sqrt(dy2)
			var result float64
			if denom == 0 {
				result = 0
			} else {
				result = num / denom
			}
			result, err = fchecked(result, "Corr")
			if err != nil {
				return nil, err
			}
			out[i] = result
			oldX, _ := c.xbuf.Pop()
			oldY, _ := c.ybuf.Pop()
			c.xsum -= oldX
			c.ysum -= oldY
		} else {
			out[i] = math.NaN()
		}
	}
	return out, nil
}
