package applesoft

import (
	"strings"
	"testing"
)

func TestTokenizeDetokenizeRoundTrip(t *testing.T) {
	src := "10 PRINT \"HELLO\"\n20 GOTO 10\n"
	tok, err := Tokenize(src, 2049)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	got, err := Detokenize(tok)
	if err != nil {
		t.Fatalf("Detokenize: %v", err)
	}
	if !strings.Contains(got, "PRINT") || !strings.Contains(got, "\"HELLO\"") {
		t.Fatalf("got %q, expected PRINT and the string literal preserved", got)
	}
	if !strings.Contains(got, "GOTO") {
		t.Fatalf("got %q, expected GOTO", got)
	}
}

func TestTokenizeEndsWithDoubleZero(t *testing.T) {
	tok, err := Tokenize("10 END\n", 2049)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if len(tok) < 2 || tok[len(tok)-1] != 0 || tok[len(tok)-2] != 0 {
		t.Fatalf("expected a trailing 00 00 end-of-program marker, got % x", tok)
	}
}

func TestTokenizeRejectsMissingLineNumber(t *testing.T) {
	if _, err := Tokenize("PRINT 1\n", 2049); err == nil {
		t.Fatalf("expected an error tokenizing a line with no line number")
	}
}

func TestRemPreservesTrailingText(t *testing.T) {
	tok, err := Tokenize("10 REM hello world\n", 2049)
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

func TestDetokenizeRejectsUnrecognizedToken(t *testing.T) {
	// a minimal line whose body byte has no entry in detokMap
	img := []byte{5, 0, 10, 0, 0xff, 0, 0, 0}
	if _, err := Detokenize(img); err == nil {
		t.Fatalf("expected an error on an unrecognized token byte")
	}
}

func TestMatchKeywordRequiresWordBoundary(t *testing.T) {
	if _, _, ok := matchKeyword("TOAST"); ok {
		t.Fatalf("expected TO not to match inside the identifier TOAST")
	}
}
