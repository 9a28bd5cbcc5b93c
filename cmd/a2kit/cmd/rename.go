package cmd

import (
	"github.com/spf13/cobra"
)

var renameCmd = &cobra.Command{
	Use:                   "rename DISK OLDPATH NEWPATH",
	Short:                 "Renames a file on a disk image without moving its data",
	Args:                  cobra.ExactArgs(3),
	DisableFlagsInUseLine: true,
	RunE: func(c *cobra.Command, args []string) error {
		fs, img, err := openDiskAt(args[0], osFlag)
		if err != nil {
			return ioErrorf("opening %s: %v", args[0], err)
		}
		if err := fs.Rename(args[1], args[2]); err != nil {
			return wrapFSErr(err)
		}
		if err := saveImage(args[0], img); err != nil {
			return ioErrorf("writing %s: %v", args[0], err)
		}
		return nil
	},
}

func init() {
	registerOSFlag(renameCmd)
	rootCmd.AddCommand(renameCmd)
}
