package cmd

import (
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:                   "delete DISK PATH",
	Short:                 "Deletes a file from a disk image",
	Args:                  cobra.ExactArgs(2),
	DisableFlagsInUseLine: true,
	RunE: func(c *cobra.Command, args []string) error {
		fs, img, err := openDiskAt(args[0], osFlag)
		if err != nil {
			return ioErrorf("opening %s: %v", args[0], err)
		}
		if err := fs.Delete(args[1]); err != nil {
			return wrapFSErr(err)
		}
		if err := saveImage(args[0], img); err != nil {
			return ioErrorf("writing %s: %v", args[0], err)
		}
		return nil
	},
}

func init() {
	registerOSFlag(deleteCmd)
	rootCmd.AddCommand(deleteCmd)
}
