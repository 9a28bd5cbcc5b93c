package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"a2disk/internal/diskfs/packing"
	"a2disk/internal/fileimage"
)

var packType string
var packLoad int
var packChunkLen int
var packTSLen int

var fsKindTag = map[string]fileimage.FileSystem{
	osDOS32:  fileimage.FSDos,
	osDOS33:  fileimage.FSDos,
	osProDOS: fileimage.FSProDOS,
	osPascal: fileimage.FSPascal,
	osCPM:    fileimage.FSCPM,
	osFAT:    fileimage.FSFAT,
}

var packCmd = &cobra.Command{
	Use:                   "pack FILE",
	Short:                 "Wraps a local file's bytes into a FileImage JSON document",
	Long: `Reads FILE from the local filesystem and prints a FileImage JSON
document to stdout (spec §6's pipeline format), tagged for -o's
filesystem and packed according to -t: text (native line-ending
conversion), bin (raw bytes plus --load), atok/itok (tokenized
Applesoft/Integer BASIC source).`,
	Args:                  cobra.ExactArgs(1),
	DisableFlagsInUseLine: true,
	RunE: func(c *cobra.Command, args []string) error {
		fsys, ok := fsKindTag[osFlag]
		if !ok {
			return fmt.Errorf("unsupported -o %q for pack", osFlag)
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return ioErrorf("reading %s: %v", args[0], err)
		}
		chunkLen := packChunkLen
		if chunkLen == 0 {
			chunkLen = 256
		}
		fimg := fileimage.New(fsys, chunkLen, packTSLen)
		fimg.FullPath = args[0]

		switch packType {
		case "text":
			if err := packing.PackText(fimg, string(data)); err != nil {
				return parseErrorf("packing text: %v", err)
			}
		case "bin":
			packing.PackBinary(fimg, packLoad, data)
		case "atok":
			if err := packing.PackTokens(fimg, data, packLoad, false); err != nil {
				return parseErrorf("packing Applesoft tokens: %v", err)
			}
		case "itok":
			if err := packing.PackTokens(fimg, data, packLoad, true); err != nil {
				return parseErrorf("packing Integer tokens: %v", err)
			}
		default:
			return fmt.Errorf("unsupported -t %q (want text, bin, atok, or itok)", packType)
		}

		js, err := fimg.ToJSON(2)
		if err != nil {
			return parseErrorf("encoding FileImage: %v", err)
		}
		fmt.Println(js)
		return nil
	},
}

func init() {
	registerOSFlag(packCmd)
	packCmd.Flags().StringVarP(&packType, "type", "t", "bin", "payload form: text, bin, atok, itok")
	packCmd.Flags().IntVar(&packLoad, "load", 0, "load address (bin/tokenized programs)")
	packCmd.Flags().IntVar(&packChunkLen, "chunk-len", 0, "chunk size in bytes (0 selects 256)")
	packCmd.Flags().IntVar(&packTSLen, "ts-len", 2, "track/sector or block pointer size recorded in the FileImage")
	rootCmd.AddCommand(packCmd)
}
