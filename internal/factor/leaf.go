package factor

import "strconv"

// Getter resolves a column by name. The column index is resolved once,
// on the first Update call, and cached for the life of this operator;
// cloning produces a fresh, unresolved Getter.
type Getter struct {
	name     string
	idx      int
	resolved bool
}

// NewGetter constructs a column accessor for the given name.
func NewGetter(name string) *Getter {
	return &Getter{name: name}
}

func (g *Getter) Update(batch Batch) ([]float64, error) {
	if !g.resolved {
		idx, ok := batch.IndexOf(g.name)
		if !ok {
			return nil, &SchemaError{Column: g.name}
		}
		g.idx = idx
		g.resolved = true
	}
	values, ok := batch.Values(g.idx)
	if !ok {
		return nil, &SchemaError{Column: g.name}
	}
	out := make([]float64, len(values))
	copy(out, values)
	return out, nil
}

func (g *Getter) ReadyOffset() int      { return 0 }
func (g *Getter) Children() []Operator  { return nil }
func (g *Getter) Clone() Operator       { return &Getter{name: g.name} }
func (g *Getter) String() string        { return ":" + g.name }
func (g *Getter) Name() string          { return g.name }

// Constant broadcasts a fixed value across every row of the batch.
type Constant struct {
	value float64
}

// NewConstant constructs a broadcast constant.
func NewConstant(value float64) *Constant {
	return &Constant{value: value}
}

func (c *Constant) Update(batch Batch) ([]float64, error) {
	out := make([]float64, batch.Len())
	for i := range out {
		out[i] = c.value
	}
	return out, nil
}

func (c *Constant) ReadyOffset() int     { return 0 }
func (c *Constant) Children() []Operator { return nil }
func (c *Constant) Clone() Operator      { return &Constant{value: c.value} }
func (c *Constant) String() string       { return formatNumber(c.value) }
func (c *Constant) Value() float64       { return c.value }

// formatNumber renders a float64 in the shortest round-tripping decimal
// form the parser accepts back as a Constant.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
