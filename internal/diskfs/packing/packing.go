// Package packing implements FileImage's auto-classification and
// native-encoding dispatch (spec §4.3.6): given a raw byte stream or an
// already-tagged FileImage, decide among Binary/Text/Records/
// ApplesoftTokens/IntegerTokens/MerlinTokens/AppleSingle and reach for
// the owning filesystem driver's pack/unpack pair.
//
// Grounded on original_source/src/fs/dos3x/pack.rs's Packing trait
// (the `pack_txt`/`pack_bin` entry points every filesystem's packer
// implements) and the corresponding prodos/pascal/cpm/fat modules;
// generalized here into one dispatcher keyed on fileimage.FileSystem
// instead of one trait implementation per filesystem.
package packing

import (
	"fmt"

	"a2disk/internal/diskfs/cpm"
	"a2disk/internal/diskfs/dos3x"
	"a2disk/internal/diskfs/fat"
	"a2disk/internal/diskfs/pascal"
	"a2disk/internal/diskfs/prodos"
	"a2disk/internal/fileimage"
)

// Kind is the auto-classified payload shape a FileImage's fs_type
// narrows down to (spec §4.3.6).
type Kind int

const (
	Binary Kind = iota
	Text
	Records
	ApplesoftTokens
	IntegerTokens
	MerlinTokens
	AppleSingle
)

func (k Kind) String() string {
	switch k {
	case Binary:
		return "binary"
	case Text:
		return "text"
	case Records:
		return "records"
	case ApplesoftTokens:
		return "applesoft_tokens"
	case IntegerTokens:
		return "integer_tokens"
	case MerlinTokens:
		return "merlin_tokens"
	case AppleSingle:
		return "applesingle"
	default:
		return "unknown"
	}
}

// nullFraction is the fraction of NUL bytes in dat, the heuristic
// spec §4.3.6 uses to auto-classify an untagged byte stream as text
// (<1%, or 0% for most filesystems) versus binary.
func nullFraction(dat []byte) float64 {
	if len(dat) == 0 {
		return 0
	}
	n := 0
	for _, b := range dat {
		if b == 0 {
			n++
		}
	}
	return float64(n) / float64(len(dat))
}

// ClassifyStream auto-classifies a raw byte stream as Text or Binary.
// Every filesystem except those explicitly noted requires an exact 0%
// null fraction; DOS 3.x's sparse sector-chain text files tolerate up
// to 1% (a short last sector reads as a handful of trailing NULs).
func ClassifyStream(fs fileimage.FileSystem, dat []byte) Kind {
	if fs == fileimage.FSDos {
		if nullFraction(dat) < 0.01 {
			return Text
		}
		return Binary
	}
	if nullFraction(dat) == 0 {
		return Text
	}
	return Binary
}

// Classify inspects an already-tagged FileImage's fs_type. DOS and
// ProDOS type bytes map to ApplesoftTokens, IntegerTokens, Text or
// Binary, and Pascal type bytes to Text or Binary; anything else falls
// back to ClassifyStream's null-fraction test. Classify never returns
// Records, MerlinTokens or AppleSingle.
func Classify(fimg *fileimage.FileImage) Kind {
	ft := fimg.GetFType()
	switch fimg.FileSystem {
	case fileimage.FSDos:
		switch dos3x.FileType(ft) {
		case dos3x.TypeApplesoft:
			return ApplesoftTokens
		case dos3x.TypeInteger:
			return IntegerTokens
		case dos3x.TypeBinary:
			return Binary
		case dos3x.TypeText:
			return Text
		}
	case fileimage.FSProDOS:
		switch prodos.FileType(ft) {
		case prodos.TypeApplesoftCode:
			return ApplesoftTokens
		case prodos.TypeIntegerCode:
			return IntegerTokens
		case prodos.TypeText:
			return Text
		case prodos.TypeBinary:
			return Binary
		}
	case fileimage.FSPascal:
		switch pascal.FileType(ft) {
		case pascal.TypeText:
			return Text
		case pascal.TypeCode, pascal.TypeData, pascal.TypeBad:
			return Binary
		}
	}
	return ClassifyStream(fimg.FileSystem, fimg.Sequence())
}

// PackText converts UTF-8 text to the owning filesystem's native
// encoding and tags fimg accordingly (spec §4.3.6's pack_txt: positive
// ASCII with CR for ProDOS, negative ASCII with CR for DOS, ASCII with
// CRLF for CP/M/FAT, indent-compressed paginated form for Pascal).
func PackText(fimg *fileimage.FileImage, txt string) error {
	switch fimg.FileSystem {
	case fileimage.FSDos:
		return dos3x.PackText(fimg, txt)
	case fileimage.FSProDOS:
		return prodos.PackText(fimg, txt)
	case fileimage.FSPascal:
		return pascal.PackText(fimg, txt)
	case fileimage.FSCPM:
		return cpm.PackText(fimg, txt)
	case fileimage.FSFAT:
		return fat.PackText(fimg, txt)
	default:
		return fmt.Errorf("packing: unknown filesystem %q", fimg.FileSystem)
	}
}

// UnpackText decodes fimg's native-encoded body back to UTF-8.
func UnpackText(fimg *fileimage.FileImage) (string, error) {
	switch fimg.FileSystem {
	case fileimage.FSDos:
		return dos3x.UnpackText(fimg)
	case fileimage.FSProDOS:
		return prodos.UnpackText(fimg)
	case fileimage.FSPascal:
		return pascal.UnpackText(fimg)
	case fileimage.FSCPM:
		return cpm.UnpackText(fimg)
	case fileimage.FSFAT:
		return fat.UnpackText(fimg)
	default:
		return "", fmt.Errorf("packing: unknown filesystem %q", fimg.FileSystem)
	}
}

// PackBinary stores payload as a binary file, adding the FS-specific
// header spec §4.3.6 names: DOS binary gets a (start,len) header;
// ProDOS, CP/M, Pascal, and FAT have no binary framing of their own
// and simply store the raw stream (their "header" is the directory
// entry's aux/type/size fields, set by the caller).
func PackBinary(fimg *fileimage.FileImage, loadAddress int, payload []byte) {
	if fimg.FileSystem == fileimage.FSDos {
		dos3x.PackBinary(fimg, loadAddress, payload)
		return
	}
	if fimg.FileSystem == fileimage.FSProDOS {
		prodos.PackBinary(fimg, loadAddress, payload)
		return
	}
	fimg.FsType = []byte{0}
	fimg.Desequence(payload)
}

// UnpackBinary recovers the raw payload (and, for DOS, the load
// address its header carries).
func UnpackBinary(fimg *fileimage.FileImage) (loadAddress int, payload []byte, err error) {
	switch fimg.FileSystem {
	case fileimage.FSDos:
		return dos3x.UnpackBinary(fimg)
	case fileimage.FSProDOS:
		return fimg.GetAux(), prodos.UnpackBinary(fimg), nil
	default:
		return 0, fimg.SequenceLimited(fimg.GetEof()), nil
	}
}

// PackTokens stores a tokenized BASIC program, tagging fimg for the
// given dialect. Only DOS and ProDOS carry a distinct Applesoft/
// Integer file type; spec §9 scopes tokenized-program storage to
// those two filesystems.
func PackTokens(fimg *fileimage.FileImage, tokens []byte, loadAddress int, integer bool) error {
	switch fimg.FileSystem {
	case fileimage.FSDos:
		dos3x.PackTokens(fimg, tokens, integer)
		return nil
	case fileimage.FSProDOS:
		prodos.PackTokens(fimg, tokens, loadAddress, integer)
		return nil
	default:
		return fmt.Errorf("packing: %q has no tokenized-program convention", fimg.FileSystem)
	}
}

// UnpackTokens recovers a tokenized BASIC program's raw token stream.
func UnpackTokens(fimg *fileimage.FileImage) ([]byte, error) {
	switch fimg.FileSystem {
	case fileimage.FSDos:
		return dos3x.UnpackTokens(fimg)
	case fileimage.FSProDOS:
		return prodos.UnpackTokens(fimg), nil
	default:
		return nil, fmt.Errorf("packing: %q has no tokenized-program convention", fimg.FileSystem)
	}
}
