package factor

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Parse builds a Factor from an S-expression string. Parsing is pure
// and side-effect-free: it never touches a batch, only validates
// arity, parameter kinds, and constant ranges.
func Parse(expr string) (*Factor, error) {
	tokens := tokenize(expr)
	if len(tokens) == 0 {
		return nil, &ParseError{Msg: "empty expression"}
	}
	op, pos, err := parseExpr(tokens, 0)
	if err != nil {
		return nil, err
	}
	if pos != len(tokens) {
		return nil, &ParseError{Msg: "unexpected trailing tokens after expression"}
	}
	return NewFactor(op), nil
}

func tokenize(s string) []string {
	var tokens []string
	i, n := 0, len(s)
	for i < n {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(' || c == ')':
			tokens = append(tokens, string(c))
			i++
		default:
			j := i
			for j < n && s[j] != '(' && s[j] != ')' && s[j] != ' ' && s[j] != '\t' && s[j] != '\n' && s[j] != '\r' {
				j++
			}
			tokens = append(tokens, s[i:j])
			i = j
		}
	}
	return tokens
}

func parseExpr(tokens []string, pos int) (Operator, int, error) {
	if pos >= len(tokens) {
		return nil, pos, &ParseError{Msg: "unexpected end of expression"}
	}
	tok := tokens[pos]
	switch {
	case tok == "(":
		return parseList(tokens, pos)
	case tok == ")":
		return nil, pos, &ParseError{Msg: "unexpected ')'"}
	case strings.HasPrefix(tok, ":"):
		name := tok[1:]
		if name == "" {
			return nil, pos, &ParseError{Msg: "empty column name after ':'"}
		}
		return NewGetter(name), pos + 1, nil
	default:
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, pos, &ParseError{Msg: fmt.Sprintf("unexpected symbol %q", tok)}
		}
		return NewConstant(v), pos + 1, nil
	}
}

func parseList(tokens []string, pos int) (Operator, int, error) {
	pos++ // consume "("
	if pos >= len(tokens) {
		return nil, pos, &ParseError{Msg: "unexpected end of expression after '('"}
	}
	rawName := tokens[pos]
	pos++

	canonical, ok := resolveAlias(rawName)
	if !ok {
		return nil, pos, &ParseError{Op: rawName, Msg: "unknown operator"}
	}
	spec := dispatchTable[canonical]

	params := make([]any, 0, len(spec.kinds))
	for idx, kind := range spec.kinds {
		if pos >= len(tokens) || tokens[pos] == ")" {
			return nil, pos, &ParseError{Op: canonical, Msg: fmt.Sprintf("missing parameter %d", idx+1)}
		}
		switch kind {
		case kindConst:
			if tokens[pos] == "(" {
				return nil, pos, &ParseError{Op: canonical, Msg: fmt.Sprintf("parameter %d must be a constant, got an operator", idx+1)}
			}
			v, err := strconv.ParseFloat(tokens[pos], 64)
			if err != nil {
				return nil, pos, &ParseError{Op: canonical, Msg: fmt.Sprintf("parameter %d must be a constant, got %q", idx+1, tokens[pos])}
			}
			params = append(params, v)
			pos++
		case kindOp:
			op, newPos, err := parseExpr(tokens, pos)
			if err != nil {
				return nil, pos, err
			}
			params = append(params, op)
			pos = newPos
		}
	}
	if pos >= len(tokens) || tokens[pos] != ")" {
		return nil, pos, &ParseError{Op: canonical, Msg: "too many parameters or missing ')'"}
	}
	pos++ // consume ")"

	built, err := spec.build(params)
	if err != nil {
		return nil, pos, &ParseError{Op: canonical, Msg: err.Error()}
	}
	return built, pos, nil
}

type paramKind int

const (
	kindConst paramKind = iota
	kindOp
)

type opSpec struct {
	kinds []paramKind
	build func(params []any) (Operator, error)
}

func op(i int, p []any) Operator   { return p[i].(Operator) }
func cst(i int, p []any) float64   { return p[i].(float64) }

var dispatchTable = map[string]opSpec{
	"+": {kinds: []paramKind{kindOp, kindOp}, build: func(p []any) (Operator, error) { return newAdd(op(0, p), op(1, p)), nil }},
	"-": {kinds: []paramKind{kindOp, kindOp}, build: func(p []any) (Operator, error) { return newSub(op(0, p), op(1, p)), nil }},
	"*": {kinds: []paramKind{kindOp, kindOp}, build: func(p []any) (Operator, error) { return newMul(op(0, p), op(1, p)), nil }},
	"/": {kinds: []paramKind{kindOp, kindOp}, build: func(p []any) (Operator, error) { return newDiv(op(0, p), op(1, p)), nil }},
	"<": {kinds: []paramKind{kindOp, kindOp}, build: func(p []any) (Operator, error) { return newLt(op(0, p), op(1, p)), nil }},
	"<=": {kinds: []paramKind{kindOp, kindOp}, build: func(p []any) (Operator, error) { return newLte(op(0, p), op(1, p)), nil }},
	">": {kinds: []paramKind{kindOp, kindOp}, build: func(p []any) (Operator, error) { return newGt(op(0, p), op(1, p)), nil }},
	">=": {kinds: []paramKind{kindOp, kindOp}, build: func(p []any) (Operator, error) { return newGte(op(0, p), op(1, p)), nil }},
	"==": {kinds: []paramKind{kindOp, kindOp}, build: func(p []any) (Operator, error) { return newEq(op(0, p), op(1, p)), nil }},
	"And": {kinds: []paramKind{kindOp, kindOp}, build: func(p []any) (Operator, error) { return newAnd(op(0, p), op(1, p)), nil }},
	"Or": {kinds: []paramKind{kindOp, kindOp}, build: func(p []any) (Operator, error) { return newOr(op(0, p), op(1, p)), nil }},
	"Neg": {kinds: []paramKind{kindOp}, build: func(p []any) (Operator, error) { return newNeg(op(0, p)), nil }},
	"Abs": {kinds: []paramKind{kindOp}, build: func(p []any) (Operator, error) { return newAbs(op(0, p)), nil }},
	"Sign": {kinds: []paramKind{kindOp}, build: func(p []any) (Operator, error) { return newSign(op(0, p)), nil }},
	"LogAbs": {kinds: []paramKind{kindOp}, build: func(p []any) (Operator, error) { return newLogAbs(op(0, p)), nil }},
	"!": {kinds: []paramKind{kindOp}, build: func(p []any) (Operator, error) { return newNot(op(0, p)), nil }},
	"^": {kinds: []paramKind{kindConst, kindOp}, build: func(p []any) (Operator, error) { return newPow(cst(0, p), op(1, p)), nil }},
	"SPow": {kinds: []paramKind{kindConst, kindOp}, build: func(p []any) (Operator, error) { return newSignedPow(cst(0, p), op(1, p)), nil }},
	"If": {kinds: []paramKind{kindOp, kindOp, kindOp}, build: func(p []any) (Operator, error) { return newIf(op(0, p), op(1, p), op(2, p)), nil }},
	"Sum": {kinds: []paramKind{kindConst, kindOp}, build: buildWindow("Sum", newSum)},
	"Mean": {kinds: []paramKind{kindConst, kindOp}, build: buildWindow("Mean", newMean)},
	"SMA": {kinds: []paramKind{kindConst, kindOp}, build: buildWindow("SMA", newSMA)},
	"Min": {kinds: []paramKind{kindConst, kindOp}, build: buildWindow("Min", newMin)},
	"Max": {kinds: []paramKind{kindConst, kindOp}, build: buildWindow("Max", newMax)},
	"ArgMin": {kinds: []paramKind{kindConst, kindOp}, build: buildWindow("ArgMin", newArgMin)},
	"ArgMax": {kinds: []paramKind{kindConst, kindOp}, build: buildWindow("ArgMax", newArgMax)},
	"Delay": {kinds: []paramKind{kindConst, kindOp}, build: buildWindowMin("Delay", 0, newDelay)},
	"Rank": {kinds: []paramKind{kindConst, kindOp}, build: buildWindow("Rank", newRank)},
	"LogReturn": {kinds: []paramKind{kindConst, kindOp}, build: buildWindow("LogReturn", newLogReturn)},
	"Stdev": {
		kinds: []paramKind{kindConst, kindOp},
		build: func(p []any) (Operator, error) {
			n, err := validateWindowSize(cst(0, p))
			if err != nil {
				return nil, err
			}
			if n < 2 {
				return nil, fmt.Errorf("Stdev requires a window size of at least 2, got %d", n)
			}
			return newStdev(n, op(1, p)), nil
		},
	},
	"Skew": {
		kinds: []paramKind{kindConst, kindOp},
		build: func(p []any) (Operator, error) {
			n, err := validateWindowSize(cst(0, p))
			if err != nil {
				return nil, err
			}
			if n < 3 {
				return nil, fmt.Errorf("Skew requires a window size of at least 3, got %d", n)
			}
			return newSkew(n, op(1, p)), nil
		},
	},
	"Corr": {
		kinds: []paramKind{kindConst, kindOp, kindOp},
		build: func(p []any) (Operator, error) {
			n, err := validateWindowSize(cst(0, p))
			if err != nil {
				return nil, err
			}
			return newCorrelation(n, op(1, p), op(2, p)), nil
		},
	},
	"Quantile": {
		kinds: []paramKind{kindConst, kindConst, kindOp},
		build: func(p []any) (Operator, error) {
			n, err := validateWindowSize(cst(0, p))
			if err != nil {
				return nil, err
			}
			q := cst(1, p)
			if q < 0 || q > 1 {
				return nil, fmt.Errorf("Quantile requires q in [0,1], got %v", q)
			}
			return newQuantile(n, q, op(2, p)), nil
		},
	},
}

// buildWindow adapts the common (constant N, operator x) window
// constructors into an opSpec build function, requiring a positive
// window size.
func buildWindow(name string, ctor func(n int, x Operator) Operator) func(p []any) (Operator, error) {
	return buildWindowMin(name, 1, ctor)
}

// buildWindowMin is buildWindow with a caller-chosen lower bound. Delay
// is the one window operator that accepts a size of 0: (Delay 0 :x) is
// a valid identity lag, so it takes min 0 while every other window
// operator still requires at least 1 row.
func buildWindowMin(name string, min int, ctor func(n int, x Operator) Operator) func(p []any) (Operator, error) {
	return func(p []any) (Operator, error) {
		n, err := validateWindowSizeMin(cst(0, p), min)
		if err != nil {
			return nil, err
		}
		return ctor(n, op(1, p)), nil
	}
}

func validateWindowSize(v float64) (int, error) {
	return validateWindowSizeMin(v, 1)
}

func validateWindowSizeMin(v float64, min int) (int, error) {
	if v != math.Trunc(v) || v < float64(min) {
		return 0, fmt.Errorf("window size must be an integer >= %d, got %v", min, v)
	}
	return int(v), nil
}

// windowNames are the canonical window operators eligible for the
// legacy "TS"-prefixed alias, kept for compatibility with callers that
// still write "TSSum" in place of "Sum".
var windowNames = []string{
	"Sum", "Mean", "Stdev", "Skew", "Corr", "Min", "Max", "ArgMin",
	"ArgMax", "Delay", "Rank", "Quantile", "LogReturn", "SMA",
}

var aliasTable = buildAliasTable()

func buildAliasTable() map[string]string {
	m := make(map[string]string, len(dispatchTable)+len(windowNames))
	for name := range dispatchTable {
		m[name] = name
	}
	for _, name := range windowNames {
		m["TS"+name] = name
	}
	return m
}

// resolveAlias maps a parsed head symbol to its canonical dispatch-table
// name, accepting the legacy TS-prefixed window aliases.
func resolveAlias(name string) (string, bool) {
	canonical, ok := aliasTable[name]
	return canonical, ok
}
