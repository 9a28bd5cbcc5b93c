package integer

import (
	"strings"
	"testing"
)

func TestTokenizeDetokenizeRoundTrip(t *testing.T) {
	src := "10 PRINT \"HI\"\n20 GOTO 10\n"
	tok, err := Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	got, err := Detokenize(tok)
	if err != nil {
		t.Fatalf("Detokenize: %v", err)
	}
	if !strings.Contains(got, "PRINT") || !strings.Contains(got, "\"HI\"") {
		t.Fatalf("got %q, expected PRINT and the string literal preserved", got)
	}
	if !strings.Contains(got, "GOTO") {
		t.Fatalf("got %q, expected GOTO", got)
	}
}

func TestNumericLiteralRoundTrip(t *testing.T) {
	tok, err := Tokenize("10 LET X = 12345\n")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	got, err := Detokenize(tok)
	if err != nil {
		t.Fatalf("Detokenize: %v", err)
	}
	if !strings.Contains(got, "12345") {
		t.Fatalf("got %q, expected the numeric literal 12345 preserved", got)
	}
}

func TestLineTooLongIsRejected(t *testing.T) {
	long := strings.Repeat("A", 130)
	if _, err := Tokenize("10 REM " + long + "\n"); err == nil {
		t.Fatalf("expected an error tokenizing a line over the 126-byte limit")
	}
}

func TestVariableNameTokenizedAsNegativeASCII(t *testing.T) {
	tok, err := Tokenize("10 LET X = 1\n")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	found := false
	for _, b := range tok {
		if b == 'X'+128 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected variable X to be encoded as negative ASCII, got % x", tok)
	}
}

func TestRemPreservesTrailingText(t *testing.T) {
	tok, err := Tokenize("10 REM hello world\n")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	got, err := Detokenize(tok)
	if err != nil {
		t.Fatalf("Detokenize: %v", err)
	}
	if !strings.Contains(got, "hello world") {
		t.Fatalf("got %q, expected REM text preserved verbatim", got)
	}
}
