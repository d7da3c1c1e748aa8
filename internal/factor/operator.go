package factor

import (
	"math"
	"sync"
)

// epsilon is the machine epsilon used by Div's zero-guard and LogAbs.
const epsilon = 2.220446049250313e-16

// Operator is the uniform streaming interface implemented by every node
// in a factor tree: leaves, elementwise nodes, and window nodes alike.
//
// Update consumes one batch and returns one f64 per row (length =
// batch.Len()); it may fail with a *SchemaError or *NumericError.
// ReadyOffset, Children, Clone and String are the read-only tree-algebra
// primitives consumed by the free functions in tree.go.
type Operator interface {
	Update(batch Batch) ([]float64, error)
	ReadyOffset() int
	Children() []Operator
	Clone() Operator
	String() string
}

// rebuilder is implemented by every composite operator so the tree
// algebra in tree.go can replace a subtree functionally, constructing a
// new operator of the same kind over a different child set, instead of
// requiring type-specific mutation throughout the package.
type rebuilder interface {
	withChildren(children []Operator) Operator
}

// gate implements the shared streaming discipline: a per-node row
// counter that decides, independent of any window, whether enough rows
// have been consumed yet to emit a real value.
type gate struct {
	seen int
}

// next reports whether the node is past the given ready offset, and
// always advances the counter: the counter tracks rows consumed, not
// rows successfully computed.
func (g *gate) next(readyOffset int) bool {
	ready := g.seen >= readyOffset
	g.seen++
	return ready
}

// fchecked rejects a computed value that is infinite or NaN. It must
// never be applied to a structural warm-up NaN: those are inserted
// directly without passing through this check.
func fchecked(v float64, op string) (float64, error) {
	if math.IsInf(v, 0) {
		return 0, &NumericError{Kind: NumericErrorInf, Op: op, Value: v}
	}
	if math.IsNaN(v) {
		return 0, &NumericError{Kind: NumericErrorNaN, Op: op, Value: v}
	}
	return v, nil
}

// maxReady is the "intrinsic warm-up plus the max of its children's
// offsets" composition rule, for nodes with no intrinsic warm-up of
// their own (every elementwise node).
func maxReady(children []Operator) int {
	m := 0
	for _, c := range children {
		if r := c.ReadyOffset(); r > m {
			m = r
		}
	}
	return m
}

// evalChildrenParallel evaluates every child concurrently, mirroring the
// fork/join the original engine does with rayon::join for bivariate and
// ternary nodes. The first child error observed wins; all goroutines
// still run to completion before return.
func evalChildrenParallel(batch Batch, children []Operator) ([][]float64, error) {
	results := make([][]float64, len(children))
	errs := make([]error, len(children))
	var wg sync.WaitGroup
	wg.Add(len(children))
	for i, c := range children {
		go func(i int, c Operator) {
			defer wg.Done()
			v, err := c.Update(batch)
			results[i] = v
			errs[i] = err
		}(i, c)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
