package cmd

import (
	"strings"
	"testing"

	"a2disk/internal/basic/linenum"
)

func TestScanRenumberRequestFindsPrimariesAndReferences(t *testing.T) {
	lines := strings.Split("10 GOTO 30\n20 PRINT \"HI\"\n30 END\n", "\n")
	req := scanRenumberRequest(lines)
	if len(req.Primaries) != 3 {
		t.Fatalf("expected 3 primaries, got %d", len(req.Primaries))
	}
	if _, ok := req.Primaries[10]; !ok {
		t.Fatalf("expected a primary at line 10")
	}
	if refs, ok := req.References[30]; !ok || len(refs) != 1 {
		t.Fatalf("expected one reference to line 30, got %v", req.References[30])
	}
}

func TestApplyEditsRewritesRightToLeft(t *testing.T) {
	lines := []string{"10 GOTO 30"}
	edits := []linenum.TextEdit{
		{Range: linenum.Range{Start: linenum.Position{Line: 0, Col: 8}, End: linenum.Position{Line: 0, Col: 10}}, NewText: "99"},
		{Range: linenum.Range{Start: linenum.Position{Line: 0, Col: 0}, End: linenum.Position{Line: 0, Col: 2}}, NewText: "5"},
	}
	got := applyEdits(lines, edits)
	if got != "5 GOTO 99" {
		t.Fatalf("applyEdits = %q, want %q", got, "5 GOTO 99")
	}
}

func TestParseExternalSet(t *testing.T) {
	set := parseExternalSet(" 10, 20 ,30")
	for _, n := range []int{10, 20, 30} {
		if !set[n] {
			t.Errorf("expected %d in external set", n)
		}
	}
	if len(set) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(set))
	}
}
