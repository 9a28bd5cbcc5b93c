package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"a2disk/internal/fileimage"
)

var mputCmd = &cobra.Command{
	Use:                   "mput DISK DIR",
	Short:                 "Writes every FileImage JSON file under DIR to a disk image",
	Long: `Walks DIR for *.json files (each one a FileImage produced by
get -t any or pack) and puts each at its recorded full_path, letting a
single invocation restore a whole directory's worth of files.`,
	Args:                  cobra.ExactArgs(2),
	DisableFlagsInUseLine: true,
	RunE: func(c *cobra.Command, args []string) error {
		fs, img, err := openDiskAt(args[0], osFlag)
		if err != nil {
			return ioErrorf("opening %s: %v", args[0], err)
		}
		dir := args[1]
		count := 0
		walkErr := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || filepath.Ext(p) != ".json" {
				return nil
			}
			data, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			fimg, err := fileimage.FromJSON(data)
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			if err := fs.Put(fimg.FullPath, fimg); err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			count++
			return nil
		})
		if walkErr != nil {
			return wrapFSErr(walkErr)
		}
		if err := saveImage(args[0], img); err != nil {
			return ioErrorf("writing %s: %v", args[0], err)
		}
		fmt.Printf("wrote %d files\n", count)
		return nil
	},
}

func init() {
	registerOSFlag(mputCmd)
	rootCmd.AddCommand(mputCmd)
}
