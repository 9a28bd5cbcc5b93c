// Package workspace implements the multi-document side of the Merlin
// assembly subsystem (spec §4.7): discovering source files, parsing
// each into a Document, and linking them through PUT/USE include
// edges so the analyzer (internal/merlin) can be driven in
// master-then-include order instead of one file at a time.
package workspace

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"

	"a2disk/internal/merlin"
)

// maxDocuments bounds a scan the way spec §4.7 requires ("discovers
// .S files in configured folders, bounded at 1000").
const maxDocuments = 1000

// linkerOnlyExtFraction is the EXT-declaration share above which a
// document is treated as a linker-only file (mostly external
// declarations, nothing to analyze) and skipped.
const linkerOnlyExtFraction = 0.6

// Document is one parsed .S file plus the bookkeeping the Workspace
// needs to link it to others.
type Document struct {
	Path       string
	Lines      []merlin.Line
	Scope      *merlin.Scope
	Diags      []merlin.Diagnostic
	Includes   []string // raw PUT/USE operands, in source order
	LinkerOnly bool
}

// Workspace is a scanned tree of Documents plus the include graph
// and master assignment spec §4.7 describes.
type Workspace struct {
	Root      string
	Documents map[string]*Document // keyed by Path

	// Graph holds include edges A => B: Graph[A] lists every document
	// path B that a PUT/USE in A resolved to.
	Graph map[string][]string

	// PreferredMaster lets a caller override the automatic master
	// selection (see MasterOf) for a given display document.
	PreferredMaster map[string]string

	analyzer *merlin.Analyzer
}

// New returns an empty Workspace rooted at root, ready for Scan.
func New(root string) *Workspace {
	return &Workspace{
		Root:            root,
		Documents:       map[string]*Document{},
		Graph:           map[string][]string{},
		PreferredMaster: map[string]string{},
		analyzer:        merlin.NewAnalyzer(),
	}
}

// Scan walks Root for ".S" files (case-insensitive), parses each one,
// and links the result via buildIncludeGraph. Per-file read/parse
// failures are collected rather than aborting the whole scan, since a
// single unreadable document shouldn't hide diagnostics for the rest
// of the workspace; the aggregate is returned as a single error via
// go-multierror (nil if nothing failed).
func (w *Workspace) Scan() error {
	var found []string
	err := filepath.WalkDir(w.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".s") {
			return nil
		}
		found = append(found, path)
		if len(found) >= maxDocuments {
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return err
	}

	var scanErrs *multierror.Error
	for _, path := range found {
		doc, err := w.loadDocument(path)
		if err != nil {
			scanErrs = multierror.Append(scanErrs, err)
			continue
		}
		w.Documents[path] = doc
	}
	w.buildIncludeGraph()
	return scanErrs.ErrorOrNil()
}

func (w *Workspace) loadDocument(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lines []merlin.Line
	for _, row := range strings.Split(string(raw), "\n") {
		lines = append(lines, merlin.ParseLine(row, merlin.DefaultColumnWidths))
	}
	scope, diags := w.analyzer.Analyze(lines)

	doc := &Document{Path: path, Lines: lines, Scope: scope, Diags: diags}
	for _, l := range lines {
		op := strings.ToUpper(l.Op)
		if op == "PUT" || op == "USE" {
			if operand := strings.Trim(l.Operand, `"`); operand != "" {
				doc.Includes = append(doc.Includes, operand)
			}
		}
	}
	doc.LinkerOnly = isLinkerOnly(lines)
	return doc, nil
}

// isLinkerOnly applies the "fraction of EXT declarations" heuristic
// spec §4.7 names for skipping linker-only files.
func isLinkerOnly(lines []merlin.Line) bool {
	var opLines, extLines int
	for _, l := range lines {
		if l.Op == "" {
			continue
		}
		opLines++
		if strings.EqualFold(l.Op, "EXT") {
			extLines++
		}
	}
	if opLines == 0 {
		return false
	}
	return float64(extLines)/float64(opLines) >= linkerOnlyExtFraction
}

// buildIncludeGraph resolves every PUT/USE operand recorded on each
// Document to the Documents whose Path suffix-matches it, recording
// an edge for an unambiguous match and a diagnostic for a tie.
func (w *Workspace) buildIncludeGraph() {
	w.Graph = map[string][]string{}
	for path, doc := range w.Documents {
		for _, operand := range doc.Includes {
			candidates := w.suffixMatches(operand)
			switch len(candidates) {
			case 0:
				// no resolvable target; nothing to link.
			case 1:
				w.Graph[path] = append(w.Graph[path], candidates[0])
			default:
				doc.Diags = append(doc.Diags, merlin.Diagnostic{
					Severity: merlin.SeverityWarning,
					Message:  "multiple matches could not be resolved for include " + strconv.Quote(operand),
				})
			}
		}
	}
}

// suffixMatches returns every document path whose base name, with its
// extension dropped, ends with operand (a trailing .S on operand is
// ignored). Every match has the same rank, the operand's length, so
// all of them are returned: an exact name and a longer name ending in
// operand tie.
func (w *Workspace) suffixMatches(operand string) []string {
	operand = strings.ToUpper(strings.TrimSuffix(operand, ".S"))
	bestRank := -1
	var best []string
	for path := range w.Documents {
		base := strings.ToUpper(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
		rank := suffixRank(base, operand)
		if rank < 0 {
			continue
		}
		switch {
		case rank > bestRank:
			bestRank = rank
			best = []string{path}
		case rank == bestRank:
			best = append(best, path)
		}
	}
	return best
}

// suffixRank reports how many trailing characters base and operand
// share, or -1 if operand isn't a suffix of base at all.
func suffixRank(base, operand string) int {
	if !strings.HasSuffix(base, operand) {
		return -1
	}
	return len(operand)
}

// MasterOf chooses the master document for display, honoring
// PreferredMaster first and otherwise picking, among the documents
// with an include edge to path, the one with the most source lines,
// on the theory that a driver program is usually the larger file
// (among equal line counts the choice is not defined).
func (w *Workspace) MasterOf(path string) (string, bool) {
	if preferred, ok := w.PreferredMaster[path]; ok {
		if _, exists := w.Documents[preferred]; exists {
			return preferred, true
		}
	}
	var best string
	bestLines := -1
	for candidate, targets := range w.Graph {
		for _, t := range targets {
			if t != path {
				continue
			}
			lines := len(w.Documents[candidate].Lines)
			if lines > bestLines {
				bestLines = lines
				best = candidate
			}
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}

// AnalyzeOrdered re-runs Analyze for path in master-then-include
// order: the master document (if any) is re-analyzed first and its
// Scope/Diags refreshed, then path itself. Each Analyze call builds its
// own scope, so symbols defined in the master are not visible while
// path is analyzed and do not resolve its references.
func (w *Workspace) AnalyzeOrdered(path string) (*merlin.Scope, []merlin.Diagnostic, error) {
	doc, ok := w.Documents[path]
	if !ok {
		return nil, nil, os.ErrNotExist
	}
	if master, ok := w.MasterOf(path); ok && master != path {
		if mdoc, ok := w.Documents[master]; ok {
			scope, diags := w.analyzer.Analyze(mdoc.Lines)
			mdoc.Scope, mdoc.Diags = scope, diags
		}
	}
	scope, diags := w.analyzer.Analyze(doc.Lines)
	doc.Scope, doc.Diags = scope, diags
	return scope, diags, nil
}
