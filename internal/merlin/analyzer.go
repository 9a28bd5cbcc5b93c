package merlin

import "fmt"

// Severity mirrors the LSP diagnostic severity levels the analyzer
// reports at (spec §4.6.5).
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// Diagnostic is one analyzer finding attached to a specific source row.
type Diagnostic struct {
	Row      int
	Severity Severity
	Message  string
}

// Symbol is one entry in the analyzer's scope tree: a global label, a
// local label, a macro, or a variable (spec §4.6.5 step 1's
// "{globals, macros, vars}").
type Symbol struct {
	Name       string
	Row        int
	IsMacro    bool
	IsLocal    bool
	Referenced bool
}

// Scope holds the symbol table the Gather pass builds and the Verify
// pass consults, for one document.
type Scope struct {
	Globals map[string]*Symbol
	Macros  map[string]*Symbol
}

func newScope() *Scope {
	return &Scope{Globals: map[string]*Symbol{}, Macros: map[string]*Symbol{}}
}

// Analyzer runs the three-pass analysis spec §4.6.5 describes — Gather,
// Verify, Lint — over a single document's already-parsed Line slice.
// Unlike the original's tree-sitter-driven, multi-document workspace
// walk, this analyzer operates on one document at a time with a fresh
// Scope per call; wiring multiple documents together is
// internal/workspace's job, which calls this per document in
// master-then-include order. Symbols from one document are not visible
// while another is analyzed.
type Analyzer struct {
	ColumnWidths  [3]int
	CaseSensitive bool
	MerlinVersion int // 8, 16, 17 (16+), or 32
}

// NewAnalyzer returns an Analyzer configured for Merlin 8 defaults.
func NewAnalyzer() *Analyzer {
	return &Analyzer{ColumnWidths: DefaultColumnWidths, MerlinVersion: 8}
}

// Analyze runs Gather, Verify, and Lint over lines and returns every
// diagnostic produced across all three passes, plus the resulting
// scope (so a caller can e.g. drive completions from it).
func (a *Analyzer) Analyze(lines []Line) (*Scope, []Diagnostic) {
	scope := newScope()
	var diags []Diagnostic
	diags = append(diags, a.gather(lines, scope)...)
	diags = append(diags, a.verify(lines, scope)...)
	diags = append(diags, a.lint(lines)...)
	return scope, diags
}

// gather builds the scope tree: every line outside a macro body whose
// Label is not a local (:) label becomes a global (MAC defines a macro
// instead, per the pseudo-op's own column 2).
func (a *Analyzer) gather(lines []Line, scope *Scope) []Diagnostic {
	var diags []Diagnostic
	var inMacro bool
	for row, l := range lines {
		op := l.Op
		switch {
		case eqFold(op, "MAC"):
			inMacro = true
			if l.Label != "" {
				if _, dup := scope.Macros[key(l.Label, a.CaseSensitive)]; dup {
					diags = append(diags, errAt(row, fmt.Sprintf("macro %q redefined", l.Label)))
				}
				scope.Macros[key(l.Label, a.CaseSensitive)] = &Symbol{Name: l.Label, Row: row, IsMacro: true}
			}
		case eqFold(op, "EOM"):
			inMacro = false
		case l.Label != "" && !inMacro:
			if isLocalLabel(l.Label) {
				continue // local labels are not recorded in the scope
			}
			if _, dup := scope.Globals[key(l.Label, a.CaseSensitive)]; dup {
				diags = append(diags, errAt(row, fmt.Sprintf("label %q redefined", l.Label)))
			}
			scope.Globals[key(l.Label, a.CaseSensitive)] = &Symbol{Name: l.Label, Row: row}
		}
	}
	return diags
}

// verify resolves every operand reference to a known symbol, emitting
// the errors/warnings spec §4.6.5 step 2 names. EQU-with-local-label
// and macro-instead-of-label are caught here rather than in gather,
// since they require comparing a usage site against the scope tree.
func (a *Analyzer) verify(lines []Line, scope *Scope) []Diagnostic {
	var diags []Diagnostic
	for row, l := range lines {
		if l.Label != "" && isLocalLabel(l.Label) && eqFold(l.Op, "EQU") {
			diags = append(diags, errAt(row, fmt.Sprintf("EQU %q: local labels cannot be assigned with EQU", l.Label)))
		}
		ref := operandSymbolRef(l.Operand)
		if ref == "" {
			continue
		}
		if isLocalLabel(ref) {
			continue // local-label resolution needs the enclosing global scope, not tracked at this granularity
		}
		if sym, ok := scope.Macros[key(ref, a.CaseSensitive)]; ok {
			sym.Referenced = true
			if !eqFold(l.Op, ref) {
				// referenced as an operand rather than invoked as a macro name in column 2
				diags = append(diags, errAt(row, fmt.Sprintf("%q is a macro, not a label", ref)))
			}
			continue
		}
		sym, ok := scope.Globals[key(ref, a.CaseSensitive)]
		if !ok {
			if eqFold(l.Op, "EXT") || eqFold(l.Op, "ENT") {
				continue // forward-declared by another object file
			}
			diags = append(diags, errAt(row, fmt.Sprintf("undefined symbol %q", ref)))
			continue
		}
		sym.Referenced = true
		if sym.Row > row && !hasExternalDecl(lines, ref) {
			diags = append(diags, errAt(row, fmt.Sprintf("forward reference to %q without EXT", ref)))
		}
	}
	for _, sym := range scope.Globals {
		if !sym.Referenced {
			diags = append(diags, warnAt(sym.Row, fmt.Sprintf("label %q is never referenced", sym.Name)))
		}
	}
	for _, sym := range scope.Macros {
		if !sym.Referenced {
			diags = append(diags, warnAt(sym.Row, fmt.Sprintf("macro %q is never referenced", sym.Name)))
		}
	}
	return diags
}

// lint applies the style checks spec §4.6.5 step 3 names that do not
// require full symbol resolution: column width and label-length limits
// (spec §4.6.5: labels <=13 for v8, <=26 for v16/16+, unbounded for
// v32).
func (a *Analyzer) lint(lines []Line) []Diagnostic {
	var diags []Diagnostic
	maxLabel := 13
	switch a.MerlinVersion {
	case 16, 17:
		maxLabel = 26
	case 32:
		maxLabel = 0 // unbounded
	}
	for row, l := range lines {
		if maxLabel > 0 && len(l.Label) > maxLabel {
			diags = append(diags, warnAt(row, fmt.Sprintf("label %q exceeds %d characters for Merlin %d", l.Label, maxLabel, a.MerlinVersion)))
		}
		if len(l.Label) > a.ColumnWidths[0] || len(l.Op) > a.ColumnWidths[1] || len(l.Operand) > a.ColumnWidths[2] {
			diags = append(diags, warnAt(row, "column exceeds configured width"))
		}
	}
	return diags
}

// FoldKind names a matched fold-range pair (spec §4.6.5's closing
// paragraph).
type FoldKind int

const (
	FoldDo FoldKind = iota
	FoldIf
	FoldLup
	FoldMac
	FoldDum
)

// FoldRange is one matched opener/closer pair's row span.
type FoldRange struct {
	Kind     FoldKind
	StartRow int
	EndRow   int
}

var foldOpeners = map[string]struct {
	kind  FoldKind
	close string
}{
	"DO":  {FoldDo, "FIN"},
	"IF":  {FoldIf, "FIN"},
	"LUP": {FoldLup, "--^"},
	"MAC": {FoldMac, "EOM"},
	"DUM": {FoldDum, "DEND"},
}

// Folds scans lines for matched DO/FIN, IF/FIN, LUP/--^, MAC/EOM, and
// DUM/DEND pairs, returning one FoldRange per match. An unmatched
// opener is reported as a Diagnostic rather than a FoldRange.
func (a *Analyzer) Folds(lines []Line) ([]FoldRange, []Diagnostic) {
	var folds []FoldRange
	var diags []Diagnostic
	var stack []struct {
		kind  FoldKind
		close string
		row   int
	}
	for row, l := range lines {
		op := upperOp(l.Op)
		if opener, ok := foldOpeners[op]; ok {
			stack = append(stack, struct {
				kind  FoldKind
				close string
				row   int
			}{opener.kind, opener.close, row})
			continue
		}
		if len(stack) > 0 && op == stack[len(stack)-1].close {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			folds = append(folds, FoldRange{Kind: top.kind, StartRow: top.row, EndRow: row})
		}
	}
	for _, open := range stack {
		diags = append(diags, errAt(open.row, "unterminated fold"))
	}
	return folds, diags
}

func isLocalLabel(label string) bool {
	return len(label) > 0 && label[0] == ':'
}

func operandSymbolRef(operand string) string {
	operand = trimExprDecorations(operand)
	if operand == "" || !isSymbolStart(operand[0]) {
		return ""
	}
	return operand
}

func trimExprDecorations(s string) string {
	for len(s) > 0 && (s[0] == '#' || s[0] == '>' || s[0] == '<' || s[0] == '^' || s[0] == '(') {
		s = s[1:]
	}
	for i := 0; i < len(s); i++ {
		if !isSymbolChar(s[i]) {
			return s[:i]
		}
	}
	return s
}

func isSymbolStart(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == ':' || c == ']'
}

func isSymbolChar(c byte) bool {
	return isSymbolStart(c) || (c >= '0' && c <= '9')
}

func hasExternalDecl(lines []Line, name string) bool {
	for _, l := range lines {
		if eqFold(l.Op, "EXT") && eqFold(l.Operand, name) {
			return true
		}
	}
	return false
}

func key(name string, caseSensitive bool) string {
	if caseSensitive {
		return name
	}
	return upperOp(name)
}

func eqFold(a, b string) bool { return upperOp(a) == upperOp(b) }

func upperOp(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

func errAt(row int, msg string) Diagnostic  { return Diagnostic{Row: row, Severity: SeverityError, Message: msg} }
func warnAt(row int, msg string) Diagnostic { return Diagnostic{Row: row, Severity: SeverityWarning, Message: msg} }
