package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"a2disk/internal/basic/applesoft"
	"a2disk/internal/basic/integer"
)

var minifyDialect string

var minifyCmd = &cobra.Command{
	Use:                   "minify",
	Short:                 "Minifies BASIC source read from stdin (level 1: whitespace only)",
	Args:                  cobra.NoArgs,
	DisableFlagsInUseLine: true,
	RunE: func(c *cobra.Command, args []string) error {
		src, err := io.ReadAll(os.Stdin)
		if err != nil {
			return ioErrorf("reading stdin: %v", err)
		}
		var out string
		switch minifyDialect {
		case "applesoft":
			out, err = applesoft.MinifyLevel1(string(src))
		case "integer":
			out, err = integer.MinifyLevel1(string(src))
		default:
			return fmt.Errorf("unsupported --lang %q (want applesoft or integer)", minifyDialect)
		}
		if err != nil {
			return parseErrorf("minifying: %v", err)
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	minifyCmd.Flags().StringVar(&minifyDialect, "lang", "applesoft", "dialect: applesoft or integer")
	rootCmd.AddCommand(minifyCmd)
}
