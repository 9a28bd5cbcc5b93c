package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var getType string

var getCmd = &cobra.Command{
	Use:                   "get DISK PATH",
	Short:                 "Reads one file and writes it to stdout",
	Long: `Reads PATH from DISK and writes it to stdout. -t any emits the
full FileImage JSON (spec §6's pipeline format, consumable by put -t
any); -t text decodes the file to UTF-8; -t raw writes the file's raw
native-encoded bytes unmodified.`,
	Args:                  cobra.ExactArgs(2),
	DisableFlagsInUseLine: true,
	RunE: func(c *cobra.Command, args []string) error {
		fs, _, err := openDiskAt(args[0], osFlag)
		if err != nil {
			return ioErrorf("opening %s: %v", args[0], err)
		}
		path := args[1]
		switch getType {
		case "any":
			fimg, err := fs.Get(path)
			if err != nil {
				return wrapFSErr(err)
			}
			js, err := fimg.ToJSON(2)
			if err != nil {
				return parseErrorf("encoding FileImage: %v", err)
			}
			fmt.Println(js)
			return nil
		case "text":
			txt, err := fs.ReadText(path)
			if err != nil {
				return wrapFSErr(err)
			}
			fmt.Print(txt)
			return nil
		case "raw":
			fimg, err := fs.Get(path)
			if err != nil {
				return wrapFSErr(err)
			}
			if _, err := os.Stdout.Write(fimg.Sequence()); err != nil {
				return ioErrorf("writing stdout: %v", err)
			}
			return nil
		default:
			return fmt.Errorf("unsupported -t %q (want any, text, or raw)", getType)
		}
	},
}

func init() {
	registerOSFlag(getCmd)
	getCmd.Flags().StringVarP(&getType, "type", "t", "any", "payload form: any, text, raw")
	rootCmd.AddCommand(getCmd)
}

func drainStdin() ([]byte, error) {
	return io.ReadAll(os.Stdin)
}
