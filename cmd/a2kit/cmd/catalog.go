package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:                   "catalog FILE",
	Short:                 "Lists a disk image's directory",
	Args:                  cobra.ExactArgs(1),
	DisableFlagsInUseLine: true,
	RunE: func(c *cobra.Command, args []string) error {
		fs, _, err := openDiskAt(args[0], osFlag)
		if err != nil {
			return ioErrorf("opening %s: %v", args[0], err)
		}
		entries, err := fs.CatalogToVec()
		if err != nil {
			return wrapFSErr(err)
		}
		for _, e := range entries {
			lock := " "
			if e.Locked {
				lock = "*"
			}
			kind := e.Type
			if e.IsDir {
				kind = "dir"
			}
			fmt.Printf("%s%-4s %8d %6d  %s\n", lock, kind, e.Bytes, e.Blocks, e.Path)
		}
		return nil
	},
}

func init() {
	registerOSFlag(catalogCmd)
	rootCmd.AddCommand(catalogCmd)
}
