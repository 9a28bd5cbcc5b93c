package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"a2disk/internal/merlin"
)

var asmCmd = &cobra.Command{
	Use:                   "asm",
	Short:                 "Assembles Merlin source read from stdin",
	Long: `Reads Merlin assembly source from stdin and writes the assembled
object bytes to stdout. If stdin is a terminal, falls back to a
line-entry REPL (spec §6: asm is the one verb that accepts interactive
input).`,
	Args:                  cobra.NoArgs,
	DisableFlagsInUseLine: true,
	RunE: func(c *cobra.Command, args []string) error {
		var src string
		if stdinIsTTY() {
			src = runAsmREPL()
		} else {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return ioErrorf("reading stdin: %v", err)
			}
			src = string(data)
		}
		lines := splitSourceLines(src)
		asm := merlin.NewAssembler()
		assembled, err := asm.Assemble(lines)
		if err != nil {
			return parseErrorf("assembling: %v", err)
		}
		for _, a := range assembled {
			if _, err := os.Stdout.Write(a.Bytes); err != nil {
				return ioErrorf("writing stdout: %v", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(asmCmd)
}

func splitSourceLines(src string) []merlin.Line {
	raw := splitOnNewline(src)
	lines := make([]merlin.Line, len(raw))
	for i, r := range raw {
		lines[i] = merlin.ParseLine(r, merlin.DefaultColumnWidths)
	}
	return lines
}

func splitOnNewline(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return out
}

// runAsmREPL reads lines from the terminal one at a time until a
// blank line, the fallback spec §6 describes for asm when stdin isn't
// piped.
func runAsmREPL() string {
	fmt.Fprintln(os.Stderr, "a2kit asm: enter source lines, blank line to assemble")
	var sb []byte
	reader := io.Reader(os.Stdin)
	buf := make([]byte, 1)
	line := make([]byte, 0, 64)
	for {
		n, err := reader.Read(buf)
		if n == 0 || err != nil {
			break
		}
		if buf[0] == '\n' {
			if len(line) == 0 {
				break
			}
			sb = append(sb, line...)
			sb = append(sb, '\n')
			line = line[:0]
			continue
		}
		line = append(line, buf[0])
	}
	return string(sb)
}
