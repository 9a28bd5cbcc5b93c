package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"a2disk/internal/diskfs/cpm"
	"a2disk/internal/diskfs/dos3x"
	"a2disk/internal/diskfs/fat"
	"a2disk/internal/diskfs/pascal"
	"a2disk/internal/diskfs/prodos"
	"a2disk/internal/dpb"
	"a2disk/internal/imagecodec"
)

var mkdskVolume string
var mkdskBlocks int

var mkdskCmd = &cobra.Command{
	Use:                   "mkdsk FILE",
	Short:                 "Creates a blank disk image and formats it",
	Long:                  `Creates FILE as a blank disk image of the requested filesystem and geometry.`,
	Args:                  cobra.ExactArgs(1),
	DisableFlagsInUseLine: true,
	RunE: func(c *cobra.Command, args []string) error {
		path := args[0]
		img, err := newBlankImage(osFlag, mkdskBlocks)
		if err != nil {
			return err
		}
		if err := formatFilesystem(img, osFlag, mkdskVolume); err != nil {
			return err
		}
		if err := saveImage(path, img); err != nil {
			return ioErrorf("writing %s: %v", path, err)
		}
		return nil
	},
}

func init() {
	registerOSFlag(mkdskCmd)
	mkdskCmd.Flags().StringVar(&mkdskVolume, "volume", "BLANK", "volume/label name")
	mkdskCmd.Flags().IntVar(&mkdskBlocks, "blocks", 0, "block/sector count (0 selects the filesystem's conventional default)")
	rootCmd.AddCommand(mkdskCmd)
}

// newBlankImage picks the container shape a freshly formatted disk of
// kind needs: DO for DOS 3.x (13 or 16 sectors/track depending on
// osDOS32/osDOS33), PO (block-addressed) for everything else.
func newBlankImage(kind string, blocks int) (*imagecodec.Image, error) {
	switch kind {
	case osDOS32:
		return imagecodec.NewDO(35, 13), nil
	case osDOS33:
		return imagecodec.NewDO(35, 16), nil
	case osProDOS:
		if blocks == 0 {
			blocks = 280 // 140K 5.25" floppy, ProDOS's smallest conventional size
		}
		return imagecodec.NewPO(blocks), nil
	case osPascal:
		if blocks == 0 {
			blocks = 280
		}
		return imagecodec.NewPO(blocks), nil
	case osCPM:
		cpmBlocks := (dpb.A2525.DiskCapacity() + 511) / 512
		return imagecodec.NewPO(cpmBlocks), nil
	case osFAT:
		if blocks == 0 {
			blocks = 1440 // 720K 3.5" floppy sector count
		}
		return imagecodec.NewPO(blocks), nil
	default:
		return nil, fmt.Errorf("unsupported filesystem %q", kind)
	}
}

func formatFilesystem(img *imagecodec.Image, kind, volume string) error {
	switch kind {
	case osDOS32:
		_, err := dos3x.Format(img, 35, 13, 254)
		return wrapFSErr(err)
	case osDOS33:
		_, err := dos3x.Format(img, 35, 16, 254)
		return wrapFSErr(err)
	case osProDOS:
		_, err := prodos.Format(img, mkdskBlocksOrDefault(280), volume)
		return wrapFSErr(err)
	case osPascal:
		_, err := pascal.Format(img, mkdskBlocksOrDefault(280), volume)
		return wrapFSErr(err)
	case osCPM:
		_, err := cpm.Format(img, dpb.A2525)
		return wrapFSErr(err)
	case osFAT:
		_, err := fat.Format(img, mkdskBlocksOrDefault(1440), 1, 2, 224, 1, 9, volume)
		return wrapFSErr(err)
	default:
		return fmt.Errorf("unsupported filesystem %q", kind)
	}
}

func mkdskBlocksOrDefault(def int) int {
	if mkdskBlocks == 0 {
		return def
	}
	return mkdskBlocks
}
