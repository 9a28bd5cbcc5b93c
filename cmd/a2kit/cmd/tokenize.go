package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"a2disk/internal/basic/applesoft"
	"a2disk/internal/basic/integer"
)

var tokenizeDialect string
var tokenizeAddr int

var tokenizeCmd = &cobra.Command{
	Use:                   "tokenize",
	Short:                 "Tokenizes Applesoft or Integer BASIC source read from stdin",
	Long:                  `Reads BASIC source from stdin and writes its tokenized byte image to stdout.`,
	Args:                  cobra.NoArgs,
	DisableFlagsInUseLine: true,
	RunE: func(c *cobra.Command, args []string) error {
		src, err := io.ReadAll(os.Stdin)
		if err != nil {
			return ioErrorf("reading stdin: %v", err)
		}
		var out []byte
		switch tokenizeDialect {
		case "applesoft":
			out, err = applesoft.Tokenize(string(src), uint16(tokenizeAddr))
		case "integer":
			out, err = integer.Tokenize(string(src))
		default:
			return fmt.Errorf("unsupported --lang %q (want applesoft or integer)", tokenizeDialect)
		}
		if err != nil {
			return parseErrorf("tokenizing: %v", err)
		}
		if _, err := os.Stdout.Write(out); err != nil {
			return ioErrorf("writing stdout: %v", err)
		}
		return nil
	},
}

func init() {
	tokenizeCmd.Flags().StringVar(&tokenizeDialect, "lang", "applesoft", "dialect: applesoft or integer")
	tokenizeCmd.Flags().IntVar(&tokenizeAddr, "addr", 0x0801, "program start address (applesoft only)")
	rootCmd.AddCommand(tokenizeCmd)
}
