// Package merlin implements the Merlin 8/16/16+/32 assembly-language
// subsystem (spec §4.6): the four-column source model, a table-driven
// processor model, and an assembler/disassembler pair.
//
// Grounded on original_source/src/lang/merlin/tokenizer.rs's
// format_tokens/column handling for the source model. The original
// parses source through a tree-sitter grammar (tree_sitter_merlin6502);
// no Go port of that grammar exists in the example pack, so ParseLine
// here is a direct column/field scanner over the four-column text
// layout instead of a grammar-driven tree walk — sufficient to round
// trip well-formed lines, but it does not validate operand syntax the
// way the real grammar would.
package merlin

import "strings"

// DefaultColumnWidths is Merlin's default four-column layout
// (label/op/operand), spec §4.6.1.
var DefaultColumnWidths = [3]int{9, 6, 11}

// Line is one parsed Merlin source line in its four logical fields.
type Line struct {
	Label   string
	Op      string
	Operand string
	Comment string
}

// FormatMode selects how Formatter renders a Line back to text.
type FormatMode int

const (
	// Pasteable separates columns with a single space each.
	Pasteable FormatMode = iota
	// TabSeparated separates columns with a tab character.
	TabSeparated
	// VariablePadded pads each column out to its configured width,
	// Merlin's traditional fixed-column layout.
	VariablePadded
)

// colSep is the internal column-separator rune the original encodes
// as a negative-ASCII space (0xA0) in the tokenized on-disk form; here
// it is a private-use-area rune so FormatLine/ParseLine can round trip
// through a plain Go string without colliding with real source text.
const colSep = ''

// callTok is the out-of-band parser hint marker (spec §4.6.1): a line
// prefixed with it has all its column coordinates shifted by -2,
// letting macro-expansion output and format-on-type synthesize lines
// without corrupting a real parse tree. Since this package does not
// drive an actual tree-sitter grammar, the marker is recognized and
// stripped but the column-shift it implies has no further effect here.
const callTok = ''

// ParseLine splits a raw Merlin source line into its four columns.
// A line containing the internal column separator (colSep) is split on
// it; any other line is split on whitespace runs, with a label column
// present only when the line does not start with whitespace. widths is
// not consulted: fixed-width text is parsed by the same whitespace
// split.
func ParseLine(raw string, widths [3]int) Line {
	raw = strings.TrimPrefix(raw, string(callTok))
	if i := strings.IndexByte(raw, ';'); i >= 0 && isCommentOnly(raw, i) {
		return Line{Comment: raw[i:]}
	}
	if strings.ContainsRune(raw, colSep) {
		return parseSeparated(raw)
	}
	return parseFixedWidth(raw, widths)
}

func isCommentOnly(raw string, semiPos int) bool {
	return strings.TrimSpace(raw[:semiPos]) == ""
}

func parseSeparated(raw string) Line {
	fields := strings.SplitN(raw, string(colSep), 4)
	var l Line
	if len(fields) > 0 {
		l.Label = fields[0]
	}
	if len(fields) > 1 {
		l.Op = fields[1]
	}
	if len(fields) > 2 {
		l.Operand = fields[2]
	}
	if len(fields) > 3 {
		l.Comment = fields[3]
	}
	return l
}

func parseFixedWidth(raw string, widths [3]int) Line {
	var l Line
	// A line beginning with whitespace has no label.
	hasLabel := len(raw) > 0 && raw[0] != ' ' && raw[0] != '\t'
	pos := 0
	if hasLabel {
		end := nextFieldEnd(raw, pos)
		l.Label = raw[pos:end]
		pos = end
	}
	pos = skipSpace(raw, pos)
	end := nextFieldEnd(raw, pos)
	l.Op = raw[pos:end]
	pos = skipSpace(raw, end)
	end = nextFieldEnd(raw, pos)
	l.Operand = raw[pos:end]
	pos = skipSpace(raw, end)
	if pos < len(raw) {
		l.Comment = raw[pos:]
	}
	_ = widths
	return l
}

func nextFieldEnd(raw string, start int) int {
	i := start
	for i < len(raw) && raw[i] != ' ' && raw[i] != '\t' {
		i++
	}
	return i
}

func skipSpace(raw string, start int) int {
	i := start
	for i < len(raw) && (raw[i] == ' ' || raw[i] == '\t') {
		i++
	}
	return i
}

// FormatLine renders l back to text in the requested mode, grounded
// on format_tokens's per-column padding/truncation rule: a column
// narrower than its configured width is padded out to it; one wider
// than its width still gets at least one separating space.
func FormatLine(l Line, mode FormatMode, widths [3]int) string {
	cols := []string{l.Label, l.Op, l.Operand}
	var out strings.Builder
	for i, col := range cols {
		if col == "" && l.Comment == "" && i == len(cols)-1 {
			break
		}
		out.WriteString(col)
		switch mode {
		case TabSeparated:
			out.WriteByte('\t')
		case VariablePadded:
			pad := widths[i] - len(col)
			if pad < 1 {
				pad = 1
			}
			out.WriteString(strings.Repeat(" ", pad))
		default:
			out.WriteByte(' ')
		}
	}
	out.WriteString(l.Comment)
	return strings.TrimRight(out.String(), " \t")
}
