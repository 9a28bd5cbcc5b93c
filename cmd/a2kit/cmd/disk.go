package cmd

import (
	"fmt"
	"os"

	"a2disk/internal/diskfs"
	"a2disk/internal/diskfs/cpm"
	"a2disk/internal/diskfs/dos3x"
	"a2disk/internal/diskfs/fat"
	"a2disk/internal/diskfs/pascal"
	"a2disk/internal/diskfs/prodos"
	"a2disk/internal/dpb"
	"a2disk/internal/imagecodec"
)

// Filesystem kind names accepted by every command's -o/--os flag (spec
// §6). dos32 and dos33 both open through dos3x.Open, which reads its
// own geometry from the VTOC; the two names only matter to mkdsk,
// where they pick 13 versus 16 sectors/track.
const (
	osDOS32   = "dos32"
	osDOS33   = "dos33"
	osProDOS  = "prodos"
	osPascal  = "pascal"
	osCPM     = "cpm2"
	osFAT     = "fat"
)

// openImage reads path and runs every codec's auto-detection rule
// against its bytes (spec §4.2).
func openImage(path string) (*imagecodec.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return imagecodec.FromBytes(data)
}

// saveImage serializes img back to path.
func saveImage(path string, img *imagecodec.Image) error {
	data, err := img.ToBytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// openFilesystem binds a DiskFS driver to img according to kind. The
// container format alone never tells you which filesystem it holds
// (a PO-ordered image is equally valid as ProDOS or Pascal), so the
// caller's -o flag is the one source of truth spec §6 trusts.
func openFilesystem(img *imagecodec.Image, kind string) (diskfs.DiskFS, error) {
	switch kind {
	case osDOS32, osDOS33:
		return dos3x.Open(img)
	case osProDOS:
		return prodos.Open(img)
	case osPascal:
		return pascal.Open(img)
	case osCPM:
		return cpm.Open(img, dpb.A2525)
	case osFAT:
		return fat.Open(img)
	default:
		return nil, fmt.Errorf("unsupported filesystem %q (want one of dos32, dos33, prodos, pascal, cpm2, fat)", kind)
	}
}

// openDiskAt is the common path+kind entry point most verbs share:
// read the image file, then bind the requested filesystem driver.
func openDiskAt(path, kind string) (diskfs.DiskFS, *imagecodec.Image, error) {
	img, err := openImage(path)
	if err != nil {
		return nil, nil, err
	}
	fs, err := openFilesystem(img, kind)
	if err != nil {
		return nil, nil, err
	}
	return fs, img, nil
}
