package factor

import (
	"fmt"
	"math"
)

// bivariate implements Add, Sub, Mul, Div and the comparison/logical
// pairs (Lt, Lte, Gt, Gte, Eq, And, Or): every operator whose shape is
// "combine two child series pointwise". Children are evaluated in
// parallel.
type bivariate struct {
	name     string
	children []Operator
	g        gate
	combine  func(l, r float64) float64
	checked  bool
}

func newBivariate(name string, l, r Operator, combine func(l, r float64) float64, checked bool) *bivariate {
	return &bivariate{name: name, children: []Operator{l, r}, combine: combine, checked: checked}
}

func (b *bivariate) Update(batch Batch) ([]float64, error) {
	parts, err := evalChildrenParallel(batch, b.children)
	if err != nil {
		return nil, err
	}
	left, right := parts[0], parts[1]
	ready := maxReady(b.children)
	out := make([]float64, len(left))
	for i := range out {
		if !b.g.next(ready) {
			out[i] = math.NaN()
			continue
		}
		v := b.combine(left[i], right[i])
		if b.checked {
			v, err = fchecked(v, b.name)
			if err != nil {
				return nil, err
			}
		}
		out[i] = v
	}
	return out, nil
}

func (b *bivariate) ReadyOffset() int     { return maxReady(b.children) }
func (b *bivariate) Children() []Operator { return b.children }

func (b *bivariate) Clone() Operator {
	return &bivariate{
		name:     b.name,
		children: []Operator{b.children[0].Clone(), b.children[1].Clone()},
		combine:  b.combine,
		checked:  b.checked,
	}
}

func (b *bivariate) withChildren(children []Operator) Operator {
	return &bivariate{name: b.name, children: children, combine: b.combine, checked: b.checked}
}

func (b *bivariate) String() string {
	return fmt.Sprintf("(%s %s %s)", b.name, b.children[0].String(), b.children[1].String())
}

func newAdd(l, r Operator) Operator { return newBivariate("+", l, r, func(a, b float64) float64 { return a + b }, true) }
func newSub(l, r Operator) Operator { return newBivariate("-", l, r, func(a, b float64) float64 { return a - b }, true) }
func newMul(l, r Operator) Operator { return newBivariate("*", l, r, func(a, b float64) float64 { return a * b }, true) }

func newDiv(l, r Operator) Operator {
	return newBivariate("/", l, r, func(a, b float64) float64 {
		denom := b
		if denom == 0 {
			denom = epsilon
		}
		return math.Copysign(1, b) * a / denom
	}, true)
}

func newLt(l, r Operator) Operator  { return newBivariate("<", l, r, boolFn(func(a, b float64) bool { return a < b }), true) }
func newLte(l, r Operator) Operator { return newBivariate("<=", l, r, boolFn(func(a, b float64) bool { return a <= b }), true) }
func newGt(l, r Operator) Operator  { return newBivariate(">", l, r, boolFn(func(a, b float64) bool { return a > b }), true) }
func newGte(l, r Operator) Operator { return newBivariate(">=", l, r, boolFn(func(a, b float64) bool { return a >= b }), true) }
func newEq(l, r Operator) Operator  { return newBivariate("==", l, r, boolFn(func(a, b float64) bool { return a == b }), true) }

func newAnd(l, r Operator) Operator {
	return newBivariate("And", l, r, boolFn(func(a, b float64) bool { return a > 0 && b > 0 }), true)
}
func newOr(l, r Operator) Operator {
	return newBivariate("Or", l, r, boolFn(func(a, b float64) bool { return a > 0 || b > 0 }), true)
}

func boolFn(pred func(a, b float64) bool) func(a, b float64) float64 {
	return func(a, b float64) float64 {
		if pred(a, b) {
			return 1
		}
		return 0
	}
}

// unary implements the single-child elementwise operators: Neg, Abs,
// Sign, LogAbs and Not. Not is the one exception with gated set false:
// it reports ReadyOffset() == 0 rather than forwarding its child's, so
// a parent built on top of Not sees no added warm-up latency of its
// own. That only changes what Not's ready offset advertises upstream;
// Update still masks every row the child itself hasn't warmed up yet,
// the same as every other unary.
type unary struct {
	name    string
	child   Operator
	g       gate
	fn      func(x float64) float64
	checked bool
	gated   bool
}

func (u *unary) ReadyOffset() int {
	if !u.gated {
		return 0
	}
	return u.child.ReadyOffset()
}

func (u *unary) Update(batch Batch) ([]float64, error) {
	values, err := u.child.Update(batch)
	if err != nil {
		return nil, err
	}
	ready := u.child.ReadyOffset()
	out := make([]float64, len(values))
	for i, x := range values {
		if !u.g.next(ready) {
			out[i] = math.NaN()
			continue
		}
		v := u.fn(x)
		if u.checked {
			v, err = fchecked(v, u.name)
			if err != nil {
				return nil, err
			}
		}
		out[i] = v
	}
	return out, nil
}

func (u *unary) Children() []Operator { return []Operator{u.child} }
func (u *unary) Clone() Operator {
	return &unary{name: u.name, child: u.child.Clone(), fn: u.fn, checked: u.checked, gated: u.gated}
}
func (u *unary) withChildren(children []Operator) Operator {
	return &unary{name: u.name, child: children[0], fn: u.fn, checked: u.checked, gated: u.gated}
}
func (u *unary) String() string { return fmt.Sprintf("(%s %s)", u.name, u.child.String()) }

func newNeg(x Operator) Operator {
	return &unary{name: "Neg", child: x, fn: func(v float64) float64 { return -v }, checked: true, gated: true}
}

func newAbs(x Operator) Operator {
	return &unary{name: "Abs", child: x, fn: math.Abs, checked: true, gated: true}
}

func newSign(x Operator) Operator {
	return &unary{name: "Sign", child: x, fn: signOf, checked: true, gated: true}
}

func newLogAbs(x Operator) Operator {
	return &unary{name: "LogAbs", child: x, fn: func(v float64) float64 { return math.Log(math.Abs(v) + epsilon) }, checked: true, gated: true}
}

func newNot(x Operator) Operator {
	return &unary{name: "!", child: x, fn: func(v float64) float64 {
		if v > 0 {
			return 0
		}
		return 1
	}, checked: false, gated: false}
}

func signOf(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// power implements Pow(p, x) and SignedPow(p, x), the two
// constant-parametrized unary operators. The constant is printed before
// the series argument in String().
type power struct {
	name   string
	p      float64
	child  Operator
	g      gate
	signed bool
}

func newPow(p float64, x Operator) Operator    { return &power{name: "^", p: p, child: x} }
func newSignedPow(p float64, x Operator) Operator {
	return &power{name: "SPow", p: p, child: x, signed: true}
}

func (p *power) ReadyOffset() int     { return p.child.ReadyOffset() }
func (p *power) Children() []Operator { return []Operator{p.child} }
func (p *power) Clone() Operator {
	return &power{name: p.name, p: p.p, child: p.child.Clone(), signed: p.signed}
}
func (p *power) withChildren(children []Operator) Operator {
	return &power{name: p.name, p: p.p, child: children[0], signed: p.signed}
}
func (p *power) String() string {
	return fmt.Sprintf("(%s %s %s)", p.name, formatNumber(p.p), p.child.String())
}

func (p *power) Update(batch Batch) ([]float64, error) {
	values, err := p.child.Update(batch)
	if err != nil {
		return nil, err
	}
	ready := p.child.ReadyOffset()
	out := make([]float64, len(values))
	for i, x := range values {
		if !p.g.next(ready) {
			out[i] = math.NaN()
			continue
		}
		var v float64
		if p.signed {
			v = signOf(x) * math.Pow(math.Abs(x), p.p)
		} else {
			v = math.Pow(x, p.p)
		}
		v, err = fchecked(v, p.name)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ifOp implements the ternary If(cond, t, f): picks t when cond > 0,
// else f, without finite-checking the result since it only ever
// forwards an already-checked child value.
type ifOp struct {
	children []Operator // [cond, t, f]
	g        gate
}

func newIf(cond, t, f Operator) Operator {
	return &ifOp{children: []Operator{cond, t, f}}
}

func (n *ifOp) ReadyOffset() int     { return maxReady(n.children) }
func (n *ifOp) Children() []Operator { return n.children }
func (n *ifOp) Clone() Operator {
	return &ifOp{children: []Operator{n.children[0].Clone(), n.children[1].Clone(), n.children[2].Clone()}}
}
func (n *ifOp) withChildren(children []Operator) Operator { return &ifOp{children: children} }
func (n *ifOp) String() string {
	return fmt.Sprintf("(If %s %s %s)", n.children[0].String(), n.children[1].String(), n.children[2].String())
}

func (n *ifOp) Update(batch Batch) ([]float64, error) {
	parts, err := evalChildrenParallel(batch, n.children)
	if err != nil {
		return nil, err
	}
	cond, t, f := parts[0], parts[1], parts[2]
	ready := maxReady(n.children)
	out := make([]float64, len(cond))
	for i := range out {
		if !n.g.next(ready) {
			out[i] = math.NaN()
			continue
		}
		if cond[i] > 0 {
			out[i] = t[i]
		} else {
			out[i] = f[i]
		}
	}
	return out, nil
}
