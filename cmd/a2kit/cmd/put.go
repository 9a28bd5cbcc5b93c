package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"a2disk/internal/fileimage"
)

var putType string

var putCmd = &cobra.Command{
	Use:                   "put DISK PATH",
	Short:                 "Writes stdin to one file on a disk image",
	Long: `Writes stdin to PATH on DISK. -t any reads a FileImage JSON
document (spec §6's pipeline format, the output of get -t any or
pack); -t text reads UTF-8 and re-encodes it with the target
filesystem's native line endings and character set.`,
	Args:                  cobra.ExactArgs(2),
	DisableFlagsInUseLine: true,
	RunE: func(c *cobra.Command, args []string) error {
		if stdinIsTTY() {
			return parseErrorf("put requires piped input (stdin is a terminal); pipe a FileImage or redirect a file")
		}
		fs, img, err := openDiskAt(args[0], osFlag)
		if err != nil {
			return ioErrorf("opening %s: %v", args[0], err)
		}
		path := args[1]
		switch putType {
		case "any":
			data, err := drainStdin()
			if err != nil {
				return ioErrorf("reading stdin: %v", err)
			}
			fimg, err := fileimage.FromJSON(data)
			if err != nil {
				return parseErrorf("decoding FileImage: %v", err)
			}
			if err := fs.Put(path, fimg); err != nil {
				return wrapFSErr(err)
			}
		case "text":
			data, err := drainStdin()
			if err != nil {
				return ioErrorf("reading stdin: %v", err)
			}
			if err := fs.WriteText(path, string(data)); err != nil {
				return wrapFSErr(err)
			}
		default:
			return fmt.Errorf("unsupported -t %q (want any or text)", putType)
		}
		if err := saveImage(args[0], img); err != nil {
			return ioErrorf("writing %s: %v", args[0], err)
		}
		return nil
	},
}

func init() {
	registerOSFlag(putCmd)
	putCmd.Flags().StringVarP(&putType, "type", "t", "any", "payload form: any, text")
	rootCmd.AddCommand(putCmd)
}

// stdinIsTTY reports whether stdin is an interactive terminal (spec
// §6: put/pack refuse TTY input since there is nothing to pipe).
func stdinIsTTY() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
