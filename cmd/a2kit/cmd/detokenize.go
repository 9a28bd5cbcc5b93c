package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"a2disk/internal/basic/applesoft"
	"a2disk/internal/basic/integer"
)

var detokenizeDialect string

var detokenizeCmd = &cobra.Command{
	Use:                   "detokenize",
	Short:                 "Detokenizes a tokenized BASIC program read from stdin",
	Args:                  cobra.NoArgs,
	DisableFlagsInUseLine: true,
	RunE: func(c *cobra.Command, args []string) error {
		src, err := io.ReadAll(os.Stdin)
		if err != nil {
			return ioErrorf("reading stdin: %v", err)
		}
		var out string
		switch detokenizeDialect {
		case "applesoft":
			out, err = applesoft.Detokenize(src)
		case "integer":
			out, err = integer.Detokenize(src)
		default:
			return fmt.Errorf("unsupported --lang %q (want applesoft or integer)", detokenizeDialect)
		}
		if err != nil {
			return parseErrorf("detokenizing: %v", err)
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	detokenizeCmd.Flags().StringVar(&detokenizeDialect, "lang", "applesoft", "dialect: applesoft or integer")
	rootCmd.AddCommand(detokenizeCmd)
}
