package dos3x

import (
	"encoding/binary"
	"fmt"

	"a2disk/internal/fileimage"
)

// New returns an empty DOS-tagged FileImage with the standard 256-byte
// sector chunk length, independent of any open volume.
func New() *fileimage.FileImage {
	return fileimage.New(fileimage.FSDos, 256, 0)
}

// textConverter implements fileimage.TextConverter for DOS 3.x: negative
// ASCII (high bit set) with CR (0x8d) line separators, grounded on
// original_source/src/fs/dos3x/types.rs's Encoder.
type textConverter struct{}

func (textConverter) ToUTF8(native []byte) (string, bool) {
	out := make([]byte, len(native))
	for i, b := range native {
		switch {
		case b == 0x8d:
			out[i] = '\n'
		case b > 127:
			out[i] = b - 0x80
		default:
			out[i] = 0
		}
	}
	return string(out), true
}

func (textConverter) FromUTF8(s string) ([]byte, bool) {
	src := []byte(s)
	out := make([]byte, 0, len(src)+1)
	for i := 0; i < len(src); i++ {
		if i+1 < len(src) && src[i] == 0x0d && src[i+1] == 0x0a {
			continue
		}
		switch {
		case src[i] == 0x0a || src[i] == 0x0d:
			out = append(out, 0x8d)
		case src[i] < 128:
			out = append(out, src[i]+0x80)
		default:
			return nil, false
		}
	}
	if len(out) == 0 || out[len(out)-1] != 0x8d {
		out = append(out, 0x8d)
	}
	return out, true
}

// UnpackText strips the sparse-chunk layout back down to a plain UTF-8
// sequential-text file, trimming at the first NUL (a short last sector)
// and running it through textConverter (spec §4.3's pack_txt/unpack_txt
// pair).
func UnpackText(fimg *fileimage.FileImage) (string, error) {
	raw := fimg.Sequence()
	if i := indexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	txt, ok := textConverter{}.ToUTF8(raw)
	if !ok {
		return "", fmt.Errorf("dos3x: could not decode sequential text (non-negative-ASCII byte present)")
	}
	return txt, nil
}

// PackText encodes txt for a sequential text file (no record structure).
func PackText(fimg *fileimage.FileImage, txt string) error {
	dat, ok := textConverter{}.FromUTF8(txt)
	if !ok {
		return fmt.Errorf("dos3x: text contains a byte outside 7-bit ASCII")
	}
	fimg.FsType = []byte{byte(TypeText)}
	fimg.Desequence(dat)
	return nil
}

// UnpackBinary recovers the (loadAddress, payload) pair from a binary
// file's 4-byte header: 2-byte LE load address, 2-byte LE length.
func UnpackBinary(fimg *fileimage.FileImage) (loadAddress int, payload []byte, err error) {
	raw := fimg.Sequence()
	if len(raw) < 4 {
		return 0, nil, fmt.Errorf("dos3x: binary file too short for its header")
	}
	loadAddress = int(binary.LittleEndian.Uint16(raw[0:2]))
	length := int(binary.LittleEndian.Uint16(raw[2:4]))
	if 4+length > len(raw) {
		return 0, nil, fmt.Errorf("dos3x: binary file header claims %d bytes but only %d are present", length, len(raw)-4)
	}
	return loadAddress, raw[4 : 4+length], nil
}

// PackBinary builds a binary file's 4-byte header around payload.
func PackBinary(fimg *fileimage.FileImage, loadAddress int, payload []byte) {
	hdr := make([]byte, 4)
	binary.LittleEndian.PutUint16(hdr[0:2], uint16(loadAddress))
	binary.LittleEndian.PutUint16(hdr[2:4], uint16(len(payload)))
	fimg.FsType = []byte{byte(TypeBinary)}
	fimg.Desequence(append(hdr, payload...))
}

// UnpackTokens recovers a tokenized BASIC program's length-prefixed body
// (2-byte LE length, then that many bytes of tokens).
func UnpackTokens(fimg *fileimage.FileImage) ([]byte, error) {
	raw := fimg.Sequence()
	if len(raw) < 2 {
		return nil, fmt.Errorf("dos3x: tokenized program too short for its length header")
	}
	end := int(binary.LittleEndian.Uint16(raw[0:2]))
	if 2+end > len(raw) {
		return nil, fmt.Errorf("dos3x: tokenized program claims length %d but file holds only %d bytes", end, len(raw)-2)
	}
	return raw[2 : 2+end], nil
}

// PackTokens builds a tokenized program's length-prefixed body and tags
// fimg with the given BASIC dialect's file type (Applesoft or Integer).
func PackTokens(fimg *fileimage.FileImage, tokens []byte, integer bool) {
	hdr := make([]byte, 2)
	binary.LittleEndian.PutUint16(hdr, uint16(len(tokens)))
	t := TypeApplesoft
	if integer {
		t = TypeInteger
	}
	fimg.FsType = []byte{byte(t)}
	fimg.Desequence(append(hdr, tokens...))
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
