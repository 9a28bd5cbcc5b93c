package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"a2disk/internal/lsp"
)

var lspLang string
var lspDebug bool

var lspCmd = &cobra.Command{
	Use:                   "lsp",
	Short:                 "Starts a language server over stdio",
	Long: `Runs one of the three LSP servers (--lang applesoft, integerbasic,
or merlin6502) over stdin/stdout, content-length framed per the LSP
specification (spec §6).`,
	Args:                  cobra.NoArgs,
	DisableFlagsInUseLine: true,
	RunE: func(c *cobra.Command, args []string) error {
		switch lspLang {
		case "applesoft", "integerbasic", "merlin6502":
		default:
			return fmt.Errorf("unsupported --lang %q (want applesoft, integerbasic, or merlin6502)", lspLang)
		}
		s := lsp.NewServer(lspLang)
		s.SetDebug(lspDebug)
		if err := s.Run(os.Stdin, os.Stdout); err != nil {
			return ioErrorf("lsp server: %v", err)
		}
		return nil
	},
}

func init() {
	lspCmd.Flags().StringVar(&lspLang, "lang", "merlin6502", "language: applesoft, integerbasic, or merlin6502")
	lspCmd.Flags().BoolVar(&lspDebug, "debug", false, "trace requests/responses to the log")
	rootCmd.AddCommand(lspCmd)
}
