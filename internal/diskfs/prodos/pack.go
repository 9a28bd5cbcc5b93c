package prodos

import (
	"encoding/binary"
	"fmt"
	"time"

	"a2disk/internal/fileimage"
)

// New returns an empty ProDOS-tagged FileImage, independent of any open
// volume.
func New() *fileimage.FileImage {
	return fileimage.New(fileimage.FSProDOS, blockSize, 4)
}

// textConverter implements fileimage.TextConverter for ProDOS: positive
// ASCII with CR line separators, grounded on
// original_source/src/fs/prodos/types.rs's TextConverter.
type textConverter struct{}

func (textConverter) ToUTF8(native []byte) (string, bool) {
	out := make([]byte, len(native))
	for i, b := range native {
		switch {
		case b == 0x0d:
			out[i] = '\n'
		case b < 128:
			out[i] = b
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
			out = append(out, 0x0d)
		case src[i] < 128:
			out = append(out, src[i])
		default:
			return nil, false
		}
	}
	if len(out) == 0 || out[len(out)-1] != 0x0d {
		out = append(out, 0x0d)
	}
	return out, true
}

// UnpackText decodes a sequential text file, trimming at the first NUL.
func UnpackText(fimg *fileimage.FileImage) (string, error) {
	raw := fimg.SequenceLimited(fimg.GetEof())
	if i := indexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	txt, ok := textConverter{}.ToUTF8(raw)
	if !ok {
		return "", fmt.Errorf("prodos: could not decode sequential text")
	}
	return txt, nil
}

// PackText encodes txt as a sequential text file.
func PackText(fimg *fileimage.FileImage, txt string) error {
	dat, ok := textConverter{}.FromUTF8(txt)
	if !ok {
		return fmt.Errorf("prodos: text contains a byte outside 7-bit ASCII")
	}
	fimg.FsType = []byte{byte(TypeText)}
	fimg.Access = []byte{stdAccess}
	fimg.Desequence(dat)
	return nil
}

// PackBinary tags fimg as binary with the given load address (the aux
// type field) and raw payload.
func PackBinary(fimg *fileimage.FileImage, loadAddress int, payload []byte) {
	fimg.FsType = []byte{byte(TypeBinary)}
	fimg.Access = []byte{stdAccess}
	fimg.Aux = []byte{byte(loadAddress), byte(loadAddress >> 8)}
	fimg.Desequence(payload)
}

// UnpackBinary returns the raw payload truncated to the file's EOF.
func UnpackBinary(fimg *fileimage.FileImage) []byte {
	return fimg.SequenceLimited(fimg.GetEof())
}

// PackTokens tags fimg as Applesoft or Integer tokenized code.
func PackTokens(fimg *fileimage.FileImage, tokens []byte, loadAddress int, integer bool) {
	t := TypeApplesoftCode
	if integer {
		t = TypeIntegerCode
	}
	fimg.FsType = []byte{byte(t)}
	fimg.Access = []byte{stdAccess}
	fimg.Aux = []byte{byte(loadAddress), byte(loadAddress >> 8)}
	fimg.Desequence(tokens)
}

// UnpackTokens returns the raw token stream truncated to the file's EOF.
func UnpackTokens(fimg *fileimage.FileImage) []byte {
	return fimg.SequenceLimited(fimg.GetEof())
}

// PackTime encodes t into ProDOS's 4-byte date/time field (spec §3's
// Y2K-window date packing): a 2-byte LE packed date
// (day|month<<5|(year%100)<<9) and a 2-byte LE packed time
// (minute|hour<<8).
func PackTime(t time.Time) []byte {
	year := t.Year() % 100
	date := uint16(t.Day()) | uint16(t.Month())<<5 | uint16(year)<<9
	clock := uint16(t.Minute()) | uint16(t.Hour())<<8
	out := make([]byte, 4)
	binary.LittleEndian.PutUint16(out[0:2], date)
	binary.LittleEndian.PutUint16(out[2:4], clock)
	return out
}

// UnpackTime decodes a ProDOS date/time field. The century is inferred
// by ProDOS Technical Note #28's Y2K scheme: year%100 < 79 maps to
// 2000+year%100, else 1900+year%100 (valid range 1979-2078, chosen to
// start one year before SOS's release per the original's comment).
func UnpackTime(raw []byte) (time.Time, bool) {
	if len(raw) != 4 {
		return time.Time{}, false
	}
	date := binary.LittleEndian.Uint16(raw[0:2])
	clock := binary.LittleEndian.Uint16(raw[2:4])
	yearMod100 := int(date >> 9)
	month := int(date>>5) & 15
	day := int(date) & 31
	hour := int(clock>>8) & 255
	minute := int(clock) & 255
	var year int
	if yearMod100 < 79 {
		year = 2000 + yearMod100
	} else {
		year = 1900 + yearMod100
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC), true
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
