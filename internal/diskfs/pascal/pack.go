package pascal

import (
	"encoding/binary"
	"fmt"
	"time"

	"a2disk/internal/fileimage"
)

// textPageSize is Pascal's text-file page granularity: the editor
// header occupies exactly one page (spec §9's Pascal header open
// question).
const textPageSize = 1024

// New returns an empty Pascal-tagged FileImage, independent of any
// open volume.
func New() *fileimage.FileImage {
	return fileimage.New(fileimage.FSPascal, blockSize, 2)
}

// textConverter implements fileimage.TextConverter for Pascal text:
// positive ASCII with CR line separators and a run-length indent
// escape (0x10 followed by 0x20+count), grounded on
// original_source/src/fs/pascal/types.rs's Encoder.
type textConverter struct{}

func (textConverter) ToUTF8(native []byte) (string, bool) {
	out := make([]byte, 0, len(native))
	awaitIndent := false
	for _, b := range native {
		switch {
		case awaitIndent:
			if b >= 32 {
				for i := byte(0); i < b-32; i++ {
					out = append(out, ' ')
				}
			}
			awaitIndent = false
		case b == 0x0d:
			out = append(out, '\n')
		case b == 0x10:
			awaitIndent = true
		case b > 0 && b < 127:
			out = append(out, b)
		}
	}
	return string(out), true
}

func (textConverter) FromUTF8(s string) ([]byte, bool) {
	src := []byte(s)
	var out []byte
	startingLine := true
	indenting := 0
	for i := 0; i < len(src); i++ {
		if i+1 < len(src) && src[i] == 0x0d && src[i+1] == 0x0a {
			continue
		}
		switch {
		case startingLine:
			if i > 0 && src[i] == 0x20 {
				indenting++
				startingLine = false
				continue
			}
			if i > 0 {
				out = append(out, 0x10, 0x20)
			}
			if src[i] != 0x0a && src[i] != 0x0d {
				startingLine = false
				out = append(out, src[i])
			} else {
				out = append(out, 0x0d)
			}
		case indenting > 0:
			if src[i] == 0x20 && indenting+0x20 < 0xff {
				indenting++
				continue
			}
			out = append(out, 0x10, byte(0x20+indenting))
			if src[i] != 0x0a && src[i] != 0x0d {
				out = append(out, src[i])
			} else {
				out = append(out, 0x0d)
				startingLine = true
			}
			indenting = 0
		case src[i] == 0x0a || src[i] == 0x0d:
			out = append(out, 0x0d)
			startingLine = true
		case src[i] < 128:
			out = append(out, src[i])
			startingLine = false
		default:
			return nil, false
		}
	}
	if len(out) == 0 || out[len(out)-1] != 0x0d {
		out = append(out, 0x0d)
	}
	for len(out)%textPageSize != 0 {
		out = append(out, 0)
	}
	return out, true
}

// createTextHeader returns the 1024-byte text-editor header Pascal
// prepends to every text file. The field meanings beyond a handful of
// pointer-like words are undocumented even in the original this was
// grounded on (spec §9's open question) -- it is carried verbatim as
// an opaque template rather than interpreted.
func createTextHeader() []byte {
	h := make([]byte, textPageSize)
	h[0] = 1
	copy(h[0x70:0x80], []byte{0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x4F, 0x00, 0x05, 0x00, 0x5E, 0x00})
	copy(h[0x80:0x90], []byte{0x13, 0xA3, 0x13, 0xA3, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00})
	return h
}

// PackText builds a text file: a 1024-byte opaque header followed by
// the page-structured encoded text.
func PackText(fimg *fileimage.FileImage, txt string) error {
	body, ok := textConverter{}.FromUTF8(txt)
	if !ok {
		return fmt.Errorf("pascal: text contains a byte outside 7-bit ASCII")
	}
	fimg.FsType = []byte{byte(TypeText)}
	fimg.Desequence(append(createTextHeader(), body...))
	return nil
}

// UnpackText strips the 1024-byte header and decodes the remainder.
func UnpackText(fimg *fileimage.FileImage) (string, error) {
	raw := fimg.Sequence()
	if len(raw) < textPageSize {
		return "", fmt.Errorf("pascal: text file shorter than its required header page")
	}
	txt, ok := textConverter{}.ToUTF8(raw[textPageSize:])
	if !ok {
		return "", fmt.Errorf("pascal: could not decode text body")
	}
	return txt, nil
}

// PackDate encodes t into Pascal's 2-byte date field (month|day<<4|
// (year%100)<<9), grounded on pack.rs's pack_date.
func PackDate(t time.Time) []byte {
	v := uint16(t.Month()) | uint16(t.Day())<<4 | uint16(t.Year()%100)<<9
	out := make([]byte, 2)
	binary.LittleEndian.PutUint16(out, v)
	return out
}

// UnpackDate decodes a Pascal date field. The year is always
// interpreted as 1900+year%100, matching the original's documented
// choice to stay in the 20th century.
func UnpackDate(raw []byte) (time.Time, bool) {
	if len(raw) != 2 {
		return time.Time{}, false
	}
	v := binary.LittleEndian.Uint16(raw)
	year := 1900 + int(v>>9)
	month := int(v & 15)
	day := int(v>>4) & 31
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}
