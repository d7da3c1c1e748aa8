package factor

import "fmt"

// Len returns the total node count of op's subtree (self + children's
// subtrees), using pre-order indexing.
func Len(op Operator) int {
	n := 1
	for _, c := range op.Children() {
		n += Len(c)
	}
	return n
}

// Depth returns the subtree's height; leaves have depth 1.
func Depth(op Operator) int {
	children := op.Children()
	if len(children) == 0 {
		return 1
	}
	max := 0
	for _, c := range children {
		if d := Depth(c); d > max {
			max = d
		}
	}
	return 1 + max
}

// ChildIndices returns the pre-order starting index of each direct
// child, relative to op treated as root (root = 0).
func ChildIndices(op Operator) []int {
	children := op.Children()
	indices := make([]int, 0, len(children))
	idx := 1
	for _, c := range children {
		indices = append(indices, idx)
		idx += Len(c)
	}
	return indices
}

// Columns returns the union, in left-to-right order with duplicates
// preserved, of column names referenced by leaf getters in op's
// subtree.
func Columns(op Operator) []string {
	var out []string
	collectColumns(op, &out)
	return out
}

func collectColumns(op Operator, out *[]string) {
	if g, ok := op.(*Getter); ok {
		*out = append(*out, g.Name())
		return
	}
	for _, c := range op.Children() {
		collectColumns(c, out)
	}
}

// Get returns a deep clone of the i-th node in op's pre-order subtree
// indexing (get(0) clones op itself).
func Get(op Operator, i int) (Operator, error) {
	if i < 0 || i >= Len(op) {
		return nil, &ParseError{Msg: fmt.Sprintf("index %d out of range for subtree of length %d", i, Len(op))}
	}
	if i == 0 {
		return op.Clone(), nil
	}
	rel := i - 1
	for _, c := range op.Children() {
		l := Len(c)
		if rel < l {
			return Get(c, rel)
		}
		rel -= l
	}
	// Unreachable given the bounds check above.
	return nil, &ParseError{Msg: fmt.Sprintf("index %d not found in subtree", i)}
}

// Replace returns a new tree with the subtree at pre-order index i
// replaced by sub, plus the displaced subtree. insert(0, ...) is
// forbidden; index 0 means "replace the whole factor", handled one
// level up by Factor.Replace.
func Replace(op Operator, i int, sub Operator) (Operator, Operator, error) {
	if i <= 0 {
		return nil, nil, &ParseError{Msg: "insert(0, ...) is forbidden; replace the whole factor instead"}
	}
	if i >= Len(op) {
		return nil, nil, &ParseError{Msg: fmt.Sprintf("index %d out of range for subtree of length %d", i, Len(op))}
	}
	newOp, displaced, err := replaceWithin(op, i, sub)
	if err != nil {
		return nil, nil, err
	}
	return newOp, displaced, nil
}

// replaceWithin treats op's own index as 0 for this call.
func replaceWithin(op Operator, i int, sub Operator) (Operator, Operator, error) {
	if i == 0 {
		return sub, op.Clone(), nil
	}
	rb, ok := op.(rebuilder)
	if !ok {
		return nil, nil, &ParseError{Msg: "cannot replace a subtree inside a leaf"}
	}
	children := op.Children()
	newChildren := make([]Operator, len(children))
	copy(newChildren, children)
	rel := i - 1
	for idx, c := range children {
		l := Len(c)
		if rel < l {
			newChild, displaced, err := replaceWithin(c, rel, sub)
			if err != nil {
				return nil, nil, err
			}
			newChildren[idx] = newChild
			return rb.withChildren(newChildren), displaced, nil
		}
		rel -= l
	}
	return nil, nil, &ParseError{Msg: fmt.Sprintf("index %d not found in subtree", i)}
}

// Factor wraps an Operator root. Root returns the live root operator
// itself and Update advances the tree's streaming state; every other
// method returns either read-only data or a new Factor.
type Factor struct {
	root Operator
}

// NewFactor wraps an already-constructed operator tree, typically the
// output of Parse.
func NewFactor(root Operator) *Factor { return &Factor{root: root} }

func (f *Factor) Root() Operator { return f.root }

func (f *Factor) Len() int             { return Len(f.root) }
func (f *Factor) Depth() int           { return Depth(f.root) }
func (f *Factor) ChildIndices() []int  { return ChildIndices(f.root) }
func (f *Factor) Columns() []string    { return Columns(f.root) }
func (f *Factor) ReadyOffset() int     { return f.root.ReadyOffset() }
func (f *Factor) String() string       { return f.root.String() }
func (f *Factor) Update(b Batch) ([]float64, error) { return f.root.Update(b) }

// Get clones the subtree at pre-order index i as a standalone factor.
func (f *Factor) Get(i int) (*Factor, error) {
	op, err := Get(f.root, i)
	if err != nil {
		return nil, err
	}
	return &Factor{root: op}, nil
}

// Replace returns a new factor with the subtree at pre-order index i
// replaced by sub, and the displaced subtree as its own factor. Index 0
// means "replace the whole factor with sub", unlike the internal
// Replace helper where index 0 is forbidden.
func (f *Factor) Replace(i int, sub *Factor) (*Factor, *Factor, error) {
	if i == 0 {
		return &Factor{root: sub.root.Clone()}, &Factor{root: f.root.Clone()}, nil
	}
	newRoot, displaced, err := Replace(f.root.Clone(), i, sub.root.Clone())
	if err != nil {
		return nil, nil, err
	}
	return &Factor{root: newRoot}, &Factor{root: displaced}, nil
}

// Clone returns an independent deep copy with fresh streaming state.
func (f *Factor) Clone() *Factor { return &Factor{root: f.root.Clone()} }

// Equal compares canonical string form.
func (f *Factor) Equal(other *Factor) bool { return f.String() == other.String() }
