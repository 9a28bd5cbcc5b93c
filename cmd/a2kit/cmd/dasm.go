package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"a2disk/internal/merlin"
)

var dasmOrg int
var dasmLabels string

var dasmCmd = &cobra.Command{
	Use:                   "dasm",
	Short:                 "Disassembles a raw 6502/65C02 binary read from stdin",
	Args:                  cobra.NoArgs,
	DisableFlagsInUseLine: true,
	RunE: func(c *cobra.Command, args []string) error {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return ioErrorf("reading stdin: %v", err)
		}
		var mode merlin.LabelMode
		switch dasmLabels {
		case "none":
			mode = merlin.LabelNone
		case "all":
			mode = merlin.LabelAll
		default:
			return fmt.Errorf("unsupported --labels %q (want none or all)", dasmLabels)
		}
		d := merlin.NewDisassembler(mode)
		lines, err := d.Disassemble(data, int64(dasmOrg))
		if err != nil {
			return parseErrorf("disassembling: %v", err)
		}
		for _, l := range lines {
			fmt.Println(merlin.FormatLine(l.Line, merlin.VariablePadded, merlin.DefaultColumnWidths))
		}
		return nil
	},
}

func init() {
	dasmCmd.Flags().IntVar(&dasmOrg, "org", 0x0800, "base address of the first byte")
	dasmCmd.Flags().StringVar(&dasmLabels, "labels", "all", "label style: none or all")
	rootCmd.AddCommand(dasmCmd)
}
