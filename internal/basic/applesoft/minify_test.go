package applesoft

import "testing"

func TestMinifyLevel1StripsWhitespace(t *testing.T) {
	got, err := MinifyLevel1("10 HOME\n20 PRINT HELLO\n")
	if err != nil {
		t.Fatalf("MinifyLevel1: %v", err)
	}
	want := "10HOME\n20PRINTHELLO"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestMinifyLevel1PreservesStringSpacing(t *testing.T) {
	got, err := MinifyLevel1("10 PRINT \"A  B\"\n")
	if err != nil {
		t.Fatalf("MinifyLevel1: %v", err)
	}
	want := "10PRINT\"A  B\""
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
