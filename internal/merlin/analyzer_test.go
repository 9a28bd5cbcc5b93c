package merlin

import "testing"

func hasMessage(diags []Diagnostic, substr string) bool {
	for _, d := range diags {
		if containsStr(d.Message, substr) {
			return true
		}
	}
	return false
}

func containsStr(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

func TestAnalyzeUndefinedSymbol(t *testing.T) {
	lines := []Line{{Op: "LDA", Operand: "NOPE"}}
	a := NewAnalyzer()
	_, diags := a.Analyze(lines)
	if !hasMessage(diags, "undefined symbol") {
		t.Fatalf("expected undefined-symbol diagnostic, got %+v", diags)
	}
}

func TestAnalyzeResolvesDefinedLabel(t *testing.T) {
	lines := []Line{
		{Label: "START", Op: "NOP"},
		{Op: "JMP", Operand: "START"},
	}
	a := NewAnalyzer()
	_, diags := a.Analyze(lines)
	if hasMessage(diags, "undefined symbol") {
		t.Fatalf("did not expect undefined-symbol diagnostic, got %+v", diags)
	}
}

func TestAnalyzeWarnsUnusedLabel(t *testing.T) {
	lines := []Line{{Label: "UNUSED", Op: "NOP"}}
	a := NewAnalyzer()
	_, diags := a.Analyze(lines)
	if !hasMessage(diags, "never referenced") {
		t.Fatalf("expected unused-label warning, got %+v", diags)
	}
}

func TestAnalyzeRejectsEquWithLocalLabel(t *testing.T) {
	lines := []Line{{Label: ":LOOP", Op: "EQU", Operand: "$10"}}
	a := NewAnalyzer()
	_, diags := a.Analyze(lines)
	if !hasMessage(diags, "local labels cannot be assigned with EQU") {
		t.Fatalf("expected EQU-with-local-label error, got %+v", diags)
	}
}

func TestAnalyzeMacroUsedAsOperandErrors(t *testing.T) {
	lines := []Line{
		{Label: "ADDUP", Op: "MAC"},
		{Op: "EOM"},
		{Op: "LDA", Operand: "ADDUP"},
	}
	a := NewAnalyzer()
	_, diags := a.Analyze(lines)
	if !hasMessage(diags, "is a macro, not a label") {
		t.Fatalf("expected macro-instead-of-label error, got %+v", diags)
	}
}

func TestFoldsMatchesDoFin(t *testing.T) {
	lines := []Line{{Op: "DO", Operand: "1"}, {Op: "NOP"}, {Op: "FIN"}}
	a := NewAnalyzer()
	folds, diags := a.Folds(lines)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", diags)
	}
	if len(folds) != 1 || folds[0].StartRow != 0 || folds[0].EndRow != 2 {
		t.Fatalf("got %+v", folds)
	}
}

func TestFoldsReportsUnterminated(t *testing.T) {
	lines := []Line{{Op: "LUP", Operand: "5"}, {Op: "NOP"}}
	a := NewAnalyzer()
	_, diags := a.Folds(lines)
	if !hasMessage(diags, "unterminated fold") {
		t.Fatalf("expected unterminated-fold diagnostic, got %+v", diags)
	}
}

func TestLintFlagsLongLabelForMerlin8(t *testing.T) {
	lines := []Line{{Label: "THISLABELISWAYTOOLONGFORV8", Op: "NOP"}}
	a := NewAnalyzer()
	_, diags := a.Analyze(lines)
	if !hasMessage(diags, "exceeds") {
		t.Fatalf("expected label-length warning, got %+v", diags)
	}
}
