package merlin

import "testing"

func TestEvalExprHexLiteral(t *testing.T) {
	v, err := evalExpr("$1000", nil, NoSelector)
	if err != nil {
		t.Fatalf("evalExpr: %v", err)
	}
	if v != 0x1000 {
		t.Fatalf("got %d, want 4096", v)
	}
}

func TestEvalExprSymbolPlusOffset(t *testing.T) {
	syms := SymbolTable{"START": 0x2000}
	v, err := evalExpr("START+4", syms, NoSelector)
	if err != nil {
		t.Fatalf("evalExpr: %v", err)
	}
	if v != 0x2004 {
		t.Fatalf("got %#x, want 0x2004", v)
	}
}

func TestEvalExprByteSelectors(t *testing.T) {
	cases := []struct {
		sel  ByteSelector
		want int64
	}{
		{LowByte, 0x34}, {HighByte, 0x12}, {BankByte, 0x01},
	}
	for _, c := range cases {
		v, err := evalExpr("$011234", nil, c.sel)
		if err != nil {
			t.Fatalf("evalExpr: %v", err)
		}
		if v != c.want {
			t.Fatalf("selector %v: got %#x, want %#x", c.sel, v, c.want)
		}
	}
}

func TestEvalExprUndefinedSymbol(t *testing.T) {
	if _, err := evalExpr("NOPE", SymbolTable{}, NoSelector); err == nil {
		t.Fatal("expected error for undefined symbol")
	}
}

func TestEvalExprLeftToRight(t *testing.T) {
	v, err := evalExpr("2*3+4", nil, NoSelector)
	if err != nil {
		t.Fatalf("evalExpr: %v", err)
	}
	if v != 10 {
		t.Fatalf("got %d, want 10 (left-to-right, no precedence)", v)
	}
}
