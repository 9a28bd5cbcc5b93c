// Package cmd implements a2kit's cobra verb table (spec §6): disk
// image creation/catalog/file transfer, BASIC tokenize/detokenize/
// minify/renumber, and Merlin assemble/disassemble, plus the `lsp`
// subcommand that starts one of internal/lsp's language servers.
//
// Grounded on the per-verb cobra command files in
// aiSzzPL-retroio/cmd (one file per verb, a package-level *cobra.Command
// var, flags registered from init()); that pack's cmd/ directory never
// kept a root-command file, so rootCmd and main()'s wiring are built
// fresh in the same spirit rather than copied from anywhere.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"a2disk/internal/a2log"
)

var osFlag string
var verbose bool

var rootCmd = &cobra.Command{
	Use:   "a2kit",
	Short: "Apple II / CP/M / FAT disk image toolkit",
	Long: `a2kit reads and writes Apple II DOS 3.x, ProDOS, Pascal, CP/M, and
FAT disk images, tokenizes and detokenizes Applesoft and Integer BASIC
programs, and assembles or disassembles Merlin source.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			a2log.SetLevel("debug")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command and returns the process exit code
// spec §6 assigns to the error it produced, if any.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "a2kit:", err)
		return exitCodeOf(err)
	}
	return int(exitOK)
}

// osFlagHelp documents the shared -o flag every disk-image verb
// registers (spec §6's `-o {dos32,dos33,prodos,pascal,cpm2}`).
const osFlagHelp = "target filesystem: dos32, dos33, prodos, pascal, cpm2, fat"

func registerOSFlag(c *cobra.Command) {
	c.Flags().StringVarP(&osFlag, "os", "o", "", osFlagHelp)
	_ = c.MarkFlagRequired("os")
}
