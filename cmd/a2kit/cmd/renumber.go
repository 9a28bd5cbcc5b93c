package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"a2disk/internal/basic/linenum"
)

var renumBeg, renumEnd int
var renumStart, renumStep int
var renumMin, renumMax int
var renumExternal string
var renumUpdateRefs bool
var renumAllowMove bool

var renumberCmd = &cobra.Command{
	Use:                   "renumber",
	Short:                 "Renumbers a BASIC program's line numbers, read from stdin",
	Long: `Reads BASIC source from stdin, renumbers every primary line in
[--beg,--end) to --start, --start+--step, ... and rewrites every
GOTO/GOSUB/THEN/ON...GOTO/ON...GOSUB reference that names a renumbered
line (unless --update-refs=false), then writes the edited source to
stdout.`,
	Args:                  cobra.NoArgs,
	DisableFlagsInUseLine: true,
	RunE: func(c *cobra.Command, args []string) error {
		src, err := io.ReadAll(os.Stdin)
		if err != nil {
			return ioErrorf("reading stdin: %v", err)
		}
		lines := strings.Split(string(src), "\n")
		req := scanRenumberRequest(lines)
		req.Beg, req.End = renumBeg, renumEnd
		req.Start, req.Step = renumStart, renumStep
		req.MinNum, req.MaxNum = renumMin, renumMax
		req.UpdateRefs = renumUpdateRefs
		req.AllowMove = renumAllowMove
		req.External = parseExternalSet(renumExternal)

		edits, err := linenum.Renumber(req)
		if err != nil {
			return parseErrorf("renumbering: %v", err)
		}
		fmt.Print(applyEdits(lines, edits))
		return nil
	},
}

func init() {
	renumberCmd.Flags().IntVar(&renumBeg, "beg", 0, "selection range start (inclusive, line-number space)")
	renumberCmd.Flags().IntVar(&renumEnd, "end", 1<<20, "selection range end (exclusive, line-number space)")
	renumberCmd.Flags().IntVar(&renumStart, "start", 10, "first new line number")
	renumberCmd.Flags().IntVar(&renumStep, "step", 10, "increment between new line numbers")
	renumberCmd.Flags().IntVar(&renumMin, "min", 0, "smallest line number the target dialect allows")
	renumberCmd.Flags().IntVar(&renumMax, "max", 63999, "largest line number the target dialect allows")
	renumberCmd.Flags().StringVar(&renumExternal, "external", "", "comma-separated line numbers that must keep their value")
	renumberCmd.Flags().BoolVar(&renumUpdateRefs, "update-refs", true, "rewrite GOTO/GOSUB/THEN references to renumbered lines")
	renumberCmd.Flags().BoolVar(&renumAllowMove, "allow-move", false, "allow a selected block to be interleaved with unselected lines")
	rootCmd.AddCommand(renumberCmd)
}

func parseExternalSet(s string) map[int]bool {
	out := map[int]bool{}
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if n, err := strconv.Atoi(tok); err == nil {
			out[n] = true
		}
	}
	return out
}

// refKeywords are the statement keywords spec §4.5.3 names as carrying
// line-number references; a bare number following ON's comma list, or
// one of these keywords, is scanned as a reference occurrence.
var refKeywords = []string{"GOTO", "GOSUB", "THEN"}

// scanRenumberRequest builds a linenum.Request's Primaries/References
// maps from raw source text: each line's leading digits are its
// primary definition, and every digit run immediately following GOTO,
// GOSUB, THEN, or a comma inside an ON...GOTO/GOSUB list is a
// reference. This is a pragmatic recognizer, not a full BASIC
// tokenizer; it does not look inside string or REM literals.
func scanRenumberRequest(lines []string) linenum.Request {
	req := linenum.Request{
		Primaries:  map[int]linenum.Label{},
		References: map[int][]linenum.Label{},
	}
	for row, line := range lines {
		i := 0
		for i < len(line) && line[i] == ' ' {
			i++
		}
		leading := i > 0
		start := i
		for i < len(line) && line[i] >= '0' && line[i] <= '9' {
			i++
		}
		if i > start {
			n, _ := strconv.Atoi(line[start:i])
			trailing := i < len(line) && line[i] == ' '
			req.Primaries[n] = linenum.Label{
				Range:         linenum.Range{Start: linenum.Position{Line: row, Col: start}, End: linenum.Position{Line: row, Col: i}},
				LeadingSpace:  leading,
				TrailingSpace: trailing,
			}
		}
		scanReferences(line, row, &req)
	}
	return req
}

func scanReferences(line string, row int, req *linenum.Request) {
	upper := strings.ToUpper(line)
	inList := false
	for i := 0; i < len(line); i++ {
		for _, kw := range refKeywords {
			if strings.HasPrefix(upper[i:], kw) && !isIdentByte(byteAt(upper, i-1)) && !isIdentByte(byteAt(upper, i+len(kw))) {
				i += len(kw)
				inList = true
				break
			}
		}
		if line[i] == ':' {
			inList = false
		}
		if !inList {
			continue
		}
		if line[i] == ' ' || line[i] == ',' {
			continue
		}
		if line[i] >= '0' && line[i] <= '9' {
			start := i
			leading := i > 0 && line[i-1] == ' '
			for i < len(line) && line[i] >= '0' && line[i] <= '9' {
				i++
			}
			n, _ := strconv.Atoi(line[start:i])
			trailing := i < len(line) && line[i] == ' '
			lbl := linenum.Label{
				Range:         linenum.Range{Start: linenum.Position{Line: row, Col: start}, End: linenum.Position{Line: row, Col: i}},
				LeadingSpace:  leading,
				TrailingSpace: trailing,
			}
			req.References[n] = append(req.References[n], lbl)
			i--
			if i+1 < len(line) && line[i+1] != ',' {
				inList = false
			}
			continue
		}
		inList = false
	}
}

func byteAt(s string, i int) byte {
	if i < 0 || i >= len(s) {
		return 0
	}
	return s[i]
}

func isIdentByte(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// applyEdits rewrites lines with edits applied back-to-front per line
// so earlier column offsets on the same line stay valid.
func applyEdits(lines []string, edits []linenum.TextEdit) string {
	byLine := map[int][]linenum.TextEdit{}
	for _, e := range edits {
		byLine[e.Range.Start.Line] = append(byLine[e.Range.Start.Line], e)
	}
	for row, es := range byLine {
		for i := 1; i < len(es); i++ {
			for j := i; j > 0 && es[j].Range.Start.Col > es[j-1].Range.Start.Col; j-- {
				es[j], es[j-1] = es[j-1], es[j]
			}
		}
		line := lines[row]
		for _, e := range es {
			line = line[:e.Range.Start.Col] + e.NewText + line[e.Range.End.Col:]
		}
		lines[row] = line
	}
	return strings.Join(lines, "\n")
}
