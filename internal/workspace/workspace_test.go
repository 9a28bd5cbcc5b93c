package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestScanDiscoversAndLinksIncludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "MAIN.S", " ORG $2000\n JSR HELLO\n PUT HELLO\n RTS\n")
	writeFile(t, dir, "HELLO.S", "HELLO EQU $FBDD\n RTS\n")

	ws := New(dir)
	if err := ws.Scan(); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(ws.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(ws.Documents))
	}
	main := filepath.Join(dir, "MAIN.S")
	hello := filepath.Join(dir, "HELLO.S")
	targets := ws.Graph[main]
	if len(targets) != 1 || targets[0] != hello {
		t.Fatalf("expected MAIN.S to include HELLO.S, got %v", targets)
	}
}

func TestMasterOfPicksIncludingDocument(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "MAIN.S", " PUT LIB\n")
	writeFile(t, dir, "LIB.S", " EQU $00\n")

	ws := New(dir)
	if err := ws.Scan(); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	lib := filepath.Join(dir, "LIB.S")
	main := filepath.Join(dir, "MAIN.S")
	master, ok := ws.MasterOf(lib)
	if !ok || master != main {
		t.Fatalf("got master=%q ok=%v, want %q", master, ok, main)
	}
}

func TestLinkerOnlyDetection(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "EXTERNS.S", "FOO EXT\nBAR EXT\nBAZ EXT\n")
	ws := New(dir)
	if err := ws.Scan(); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	doc := ws.Documents[filepath.Join(dir, "EXTERNS.S")]
	if !doc.LinkerOnly {
		t.Fatalf("expected an all-EXT file to be classified linker-only")
	}
}

func TestAmbiguousIncludeProducesDiagnostic(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "a"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "b"), 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "a"), "LIB.S", " EQU $01\n")
	writeFile(t, filepath.Join(dir, "b"), "LIB.S", " EQU $02\n")
	writeFile(t, dir, "MAIN.S", " PUT LIB\n")

	ws := New(dir)
	if err := ws.Scan(); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	main := ws.Documents[filepath.Join(dir, "MAIN.S")]
	found := false
	for _, d := range main.Diags {
		if d.Message != "" && containsSubstr(d.Message, "multiple matches") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an ambiguous-include diagnostic, got %+v", main.Diags)
	}
}

func containsSubstr(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
