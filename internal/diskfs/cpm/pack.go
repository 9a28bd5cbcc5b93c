package cpm

import (
	"fmt"
	"strings"
	"time"

	"a2disk/internal/fileimage"
)

const recordSize = 128
const eofMark = 0x1a

// New returns an empty CP/M-tagged FileImage, independent of any open
// volume.
func New(blockSize int) *fileimage.FileImage {
	return fileimage.New(fileimage.FSCPM, blockSize, 0)
}

// textConverter implements fileimage.TextConverter for CP/M sequential
// text: positive ASCII with CRLF line separators, padded with 0x1a
// (Ctrl-Z) to the next 128-byte record boundary, grounded on
// original_source/src/fs/cpm/types.rs's SequentialText/Encoder.
type textConverter struct{}

func (textConverter) ToUTF8(native []byte) (string, bool) {
	var out strings.Builder
	for i := 0; i < len(native); i++ {
		b := native[i]
		if b == eofMark {
			break
		}
		if b == 0x0d && i+1 < len(native) && native[i+1] == 0x0a {
			out.WriteByte('\n')
			i++
			continue
		}
		if b >= 0x20 && b < 0x7f || b == '\t' {
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
	out = append(out, eofMark)
	for len(out)%recordSize != 0 {
		out = append(out, eofMark)
	}
	return out, true
}

// PackText encodes txt as a CP/M sequential text file body.
func PackText(fimg *fileimage.FileImage, txt string) error {
	body, ok := textConverter{}.FromUTF8(txt)
	if !ok {
		return fmt.Errorf("cpm: text contains a byte outside 7-bit ASCII")
	}
	fimg.Desequence(body)
	return nil
}

// UnpackText decodes a CP/M sequential text file, stopping at the
// first Ctrl-Z padding byte.
func UnpackText(fimg *fileimage.FileImage) (string, error) {
	txt, _ := textConverter{}.ToUTF8(fimg.Sequence())
	return txt, nil
}

// cpmEpoch is CP/M's date-stamp reference day (1978-01-01), grounded
// on original_source/src/fs/cpm/pack.rs's pack_date/unpack_date.
var cpmEpoch = time.Date(1978, time.January, 1, 0, 0, 0, 0, time.UTC)

// PackDate encodes t into CP/M's 4-byte timestamp field: a 16-bit day
// count since cpmEpoch followed by BCD-packed hour and minute.
func PackDate(t time.Time) []byte {
	days := int(t.Sub(cpmEpoch).Hours() / 24)
	out := make([]byte, 4)
	out[0] = byte(days)
	out[1] = byte(days >> 8)
	out[2] = toBCD(t.Hour())
	out[3] = toBCD(t.Minute())
	return out
}

// UnpackDate decodes a CP/M timestamp field produced by PackDate.
func UnpackDate(raw []byte) (time.Time, bool) {
	if len(raw) != 4 {
		return time.Time{}, false
	}
	days := int(raw[0]) | int(raw[1])<<8
	hour, ok1 := fromBCD(raw[2])
	minute, ok2 := fromBCD(raw[3])
	if !ok1 || !ok2 {
		return time.Time{}, false
	}
	t := cpmEpoch.AddDate(0, 0, days)
	return time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, time.UTC), true
}

func toBCD(v int) byte {
	return byte((v/10)<<4 | (v % 10))
}

func fromBCD(b byte) (int, bool) {
	hi, lo := int(b>>4), int(b&0xf)
	if hi > 9 || lo > 9 {
		return 0, false
	}
	return hi*10 + lo, true
}

// splitUserFilename parses CP/M's "user:filename" prefix syntax
// (e.g. "2:FOO.TXT"), grounded on pack.rs's split_user_filename.
func splitUserFilename(s string) (user int, rest string) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) == 2 {
		n := 0
		valid := len(parts[0]) > 0
		for _, c := range parts[0] {
			if c < '0' || c > '9' {
				valid = false
				break
			}
			n = n*10 + int(c-'0')
		}
		if valid && n >= 0 && n < userEnd {
			return n, parts[1]
		}
	}
	return 0, s
}
