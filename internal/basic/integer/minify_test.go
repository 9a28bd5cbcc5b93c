package integer

import "testing"

func TestMinifyLevel1StripsWhitespace(t *testing.T) {
	got, err := MinifyLevel1("10 PRINT HI\n")
	if err != nil {
		t.Fatalf("MinifyLevel1: %v", err)
	}
	want := "10PRINTHI"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestMinifyLevel1PreservesRemText(t *testing.T) {
	got, err := MinifyLevel1("10 REM  two  spaces\n")
	if err != nil {
		t.Fatalf("MinifyLevel1: %v", err)
	}
	want := "10REM  two  spaces"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
