package factor

import "testing"

func TestParse_SimpleGetterAndConstant(t *testing.T) {
	f, err := Parse(":close")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.String() != ":close" {
		t.Errorf("want :close, got %q", f.String())
	}

	f, err = Parse("3.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.String() != "3.5" {
		t.Errorf("want 3.5, got %q", f.String())
	}
}

func TestParse_RoundTripsThroughString(t *testing.T) {
	exprs := []string{
		"(+ :close :open)",
		"(If (> :close :open) 1 -1)",
		"(Sum 10 :volume)",
		"(Stdev 5 (/ :close :open))",
		"(Corr 20 :close :volume)",
		"(Quantile 10 0.5 :close)",
		"(Delay 3 :close)",
		"(LogReturn 1 :close)",
		"(Neg (Abs :close))",
		"(^ 2 :close)",
		"(SPow 0.5 :close)",
		"(! (And (> :close 0) (< :volume 100)))",
	}
	for _, expr := range exprs {
		f, err := Parse(expr)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", expr, err)
		}
		if f.String() != expr {
			t.Errorf("round trip mismatch: parsed %q, got back %q", expr, f.String())
		}
	}
}

func TestParse_TSPrefixedAliasesResolveToCanonicalForm(t *testing.T) {
	cases := map[string]string{
		"(TSSum 5 :x)":      "(Sum 5 :x)",
		"(TSMean 5 :x)":     "(Mean 5 :x)",
		"(TSStdev 5 :x)":    "(Stdev 5 :x)",
		"(TSMin 5 :x)":      "(Min 5 :x)",
		"(TSMax 5 :x)":      "(Max 5 :x)",
		"(TSArgMax 5 :x)":   "(ArgMax 5 :x)",
		"(TSDelay 5 :x)":    "(Delay 5 :x)",
		"(TSLogReturn 5 :x)": "(LogReturn 5 :x)",
	}
	for alias, canonical := range cases {
		f, err := Parse(alias)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", alias, err)
		}
		if f.String() != canonical {
			t.Errorf("Parse(%q): want canonical form %q, got %q", alias, canonical, f.String())
		}
	}
}

func TestParse_UnknownOperator(t *testing.T) {
	_, err := Parse("(Bogus 1 :x)")
	if err == nil {
		t.Fatal("expected a parse error for an unknown operator")
	}
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.Op != "Bogus" {
		t.Errorf("want Op %q, got %q", "Bogus", pe.Op)
	}
}

func TestParse_WrongArity(t *testing.T) {
	_, err := Parse("(+ :x)")
	if err == nil {
		t.Fatal("expected a parse error for missing parameter")
	}
}

func TestParse_TooManyParameters(t *testing.T) {
	_, err := Parse("(+ :x :y :z)")
	if err == nil {
		t.Fatal("expected a parse error for an extra parameter")
	}
}

func TestParse_ConstantExpectedButGotOperator(t *testing.T) {
	_, err := Parse("(Sum (+ :x :y) :z)")
	if err == nil {
		t.Fatal("expected a parse error: first parameter of Sum must be a constant")
	}
}

func TestParse_StdevRejectsTooSmallWindow(t *testing.T) {
	if _, err := Parse("(Stdev 1 :x)"); err == nil {
		t.Error("expected an error: Stdev needs a window of at least 2")
	}
	if _, err := Parse("(Stdev 2 :x)"); err != nil {
		t.Errorf("Stdev with N=2 should parse cleanly, got %v", err)
	}
}

func TestParse_SkewRejectsTooSmallWindow(t *testing.T) {
	if _, err := Parse("(Skew 2 :x)"); err == nil {
		t.Error("expected an error: Skew needs a window of at least 3")
	}
	if _, err := Parse("(Skew 3 :x)"); err != nil {
		t.Errorf("Skew with N=3 should parse cleanly, got %v", err)
	}
}

func TestParse_QuantileRejectsOutOfRangeQ(t *testing.T) {
	if _, err := Parse("(Quantile 5 1.5 :x)"); err == nil {
		t.Error("expected an error for q > 1")
	}
	if _, err := Parse("(Quantile 5 -0.1 :x)"); err == nil {
		t.Error("expected an error for q < 0")
	}
}

func TestParse_WindowSizeMustBePositiveInteger(t *testing.T) {
	if _, err := Parse("(Sum 0 :x)"); err == nil {
		t.Error("expected an error for a window size of 0")
	}
	if _, err := Parse("(Sum 2.5 :x)"); err == nil {
		t.Error("expected an error for a non-integer window size")
	}
	if _, err := Parse("(Sum -3 :x)"); err == nil {
		t.Error("expected an error for a negative window size")
	}
}

func TestParse_DelayAcceptsZero(t *testing.T) {
	f, err := Parse("(Delay 0 :x)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.ReadyOffset() != 0 {
		t.Errorf("Delay(0,x) should add no warm-up latency, got ReadyOffset()=%d", f.ReadyOffset())
	}
	if _, err := Parse("(Delay -1 :x)"); err == nil {
		t.Error("expected an error for a negative Delay window size")
	}
}

func TestParse_EmptyExpression(t *testing.T) {
	if _, err := Parse(""); err == nil {
		t.Error("expected an error for an empty expression")
	}
	if _, err := Parse("   "); err == nil {
		t.Error("expected an error for a whitespace-only expression")
	}
}

func TestParse_TrailingTokens(t *testing.T) {
	if _, err := Parse(":x :y"); err == nil {
		t.Error("expected an error for trailing tokens after a complete expression")
	}
}

func TestParse_UnbalancedParens(t *testing.T) {
	if _, err := Parse("(+ :x :y"); err == nil {
		t.Error("expected an error for a missing closing paren")
	}
	if _, err := Parse("(+ :x :y))"); err == nil {
		t.Error("expected an error for an extra closing paren")
	}
}
