package fat

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"a2disk/internal/diskfs"
	"a2disk/internal/fileimage"
)

// invalidChars mirrors original_source/src/fs/fat/pack.rs's INVALID_CHARS.
const invalidChars = "\"*+,./:;<=>?[\\]|"

// New returns an empty FAT-tagged FileImage, independent of any open
// volume.
func New(clusterSize int) *fileimage.FileImage {
	return fileimage.New(fileimage.FSFAT, clusterSize, 4)
}

// textConverter implements fileimage.TextConverter for FAT sequential
// text: plain ASCII with CRLF line separators (no EOF padding
// convention, unlike CP/M's Ctrl-Z -- FAT tracks length precisely via
// the directory entry's size field).
type textConverter struct{}

func (textConverter) ToUTF8(native []byte) (string, bool) {
	var out strings.Builder
	for i := 0; i < len(native); i++ {
		b := native[i]
		if b == 0x0d && i+1 < len(native) && native[i+1] == 0x0a {
			out.WriteByte('\n')
			i++
			continue
		}
		if b >= 0x20 && b < 0x7f || b == '\t' || b == '\n' {
			out.WriteByte(b)
		}
	}
	return out.String(), true
}

func (textConverter) FromUTF8(s string) ([]byte, bool) {
	var out []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c > 127 {
			return nil, false
		}
		if c == '\n' {
			out = append(out, 0x0d, 0x0a)
			continue
		}
		if c != '\r' {
			out = append(out, c)
		}
	}
	return out, true
}

// PackText encodes txt as a FAT sequential text file body.
func PackText(fimg *fileimage.FileImage, txt string) error {
	body, ok := textConverter{}.FromUTF8(txt)
	if !ok {
		return fmt.Errorf("fat: text contains a byte outside 7-bit ASCII")
	}
	fimg.Desequence(body)
	return nil
}

// UnpackText decodes a FAT sequential text file.
func UnpackText(fimg *fileimage.FileImage) (string, error) {
	txt, _ := textConverter{}.ToUTF8(fimg.Sequence())
	return txt, nil
}

// PackDate encodes a date into FAT's 2-byte field, pegging anything
// outside [1980,2107] to the nearest representable year, grounded on
// pack.rs's pack_date.
func PackDate(t time.Time) []byte {
	year := t.Year()
	switch {
	case year < 1980:
		year = 1980
	case year > 2107:
		year = 2107
	}
	v := uint16(t.Day()) + uint16(t.Month())<<5 + uint16(year-1980)<<9
	out := make([]byte, 2)
	binary.LittleEndian.PutUint16(out, v)
	return out
}

// UnpackDate decodes a FAT date field; an all-zero field (no date
// recorded) reports ok=false, matching pack.rs's unpack_date.
func UnpackDate(raw []byte) (time.Time, bool) {
	if len(raw) != 2 || (raw[0] == 0 && raw[1] == 0) {
		return time.Time{}, false
	}
	v := binary.LittleEndian.Uint16(raw)
	year := 1980 + int(v>>9)
	month := int((v & 0x01e0) >> 5)
	day := int(v & 0x1f)
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}

// PackTime encodes a time-of-day into FAT's 2-byte field (2-second
// resolution), grounded on pack.rs's pack_time.
func PackTime(t time.Time) []byte {
	v := uint16(t.Second()/2) + uint16(t.Minute())<<5 + uint16(t.Hour())<<11
	out := make([]byte, 2)
	binary.LittleEndian.PutUint16(out, v)
	return out
}

// UnpackTime decodes a FAT time-of-day field.
func UnpackTime(raw []byte) (hour, minute, second int, ok bool) {
	if len(raw) != 2 {
		return 0, 0, 0, false
	}
	v := binary.LittleEndian.Uint16(raw)
	hour = int(v >> 11)
	minute = int((v & 0x07e0) >> 5)
	second = int(v&0x1f) * 2
	if hour > 23 || minute > 59 || second > 59 {
		return 0, 0, 0, false
	}
	return hour, minute, second, true
}

// SplitName validates and splits a path's final component into its
// 8.3 name and extension, grounded on pack.rs's is_name_valid.
func SplitName(path string) (name, ext string, err error) {
	base := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		base = path[i+1:]
	}
	base = strings.ToUpper(base)
	parts := strings.SplitN(base, ".", 2)
	name = parts[0]
	if len(parts) == 2 {
		ext = parts[1]
	}
	if !isNameValid(name, ext) {
		return "", "", diskfs.ErrNameInvalid
	}
	return name, ext, nil
}

func isNameValid(name, ext string) bool {
	if len(name) == 0 || len(name) > 8 || len(ext) > 3 {
		return false
	}
	for _, c := range name + ext {
		if c > 127 || c < 0x20 || strings.ContainsRune(invalidChars, c) {
			return false
		}
	}
	return true
}
