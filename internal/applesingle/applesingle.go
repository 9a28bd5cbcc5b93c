// Package applesingle implements the AppleSingle container format
// (spec §4.4): a single binary file bundling a data fork with whatever
// metadata entries the source filesystem can supply.
//
// Grounded on original_source/src/fs/fimg/as.rs's AppleSingleFile,
// generalized from its binrw-derived struct into explicit big-endian
// encoding/decoding, since no pack example reaches for a binary-struct
// derive library (binrw has no ecosystem Go analogue among the pack
// repos; hand-rolled encoding/binary is how every pack repo that reads
// fixed binary headers does it).
package applesingle

import (
	"encoding/binary"
	"fmt"
	"time"
)

const magic = 0x00051600
const version2 = 0x00020000
const headerLen = 26
const entryLen = 12

// EntryType names one section of an AppleSingle container (spec
// §4.4's supported subset).
type EntryType uint32

const (
	DataFork       EntryType = 1
	ResourceFork   EntryType = 2
	RealName       EntryType = 3
	FileDatesInfo  EntryType = 8
	ProdosFileInfo EntryType = 11
	MsdosFileInfo  EntryType = 12
)

// epoch is AppleSingle's FileDatesInfo reference instant, 2000-01-01.
var epoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// ProdosInfo is the ProdosFileInfo entry's payload.
type ProdosInfo struct {
	Access   uint16
	FileType uint16
	AuxType  uint32
}

// Dates is the FileDatesInfo entry's payload. A zero time.Time in any
// field means "unknown", encoded as math.MinInt32 seconds from epoch
// per the original's unknown_time marker.
type Dates struct {
	Create, Modify, Backup, Access time.Time
}

// File is a parsed or to-be-written AppleSingle container.
type File struct {
	HomeFS     string
	DataFork   []byte
	RealName   string
	Dates      *Dates
	ProdosInfo *ProdosInfo
	MsdosAttr  *uint8
}

// Test reports whether dat begins with the version 1 or version 2
// AppleSingle magic, mirroring AppleSingleFile::test.
func Test(dat []byte) bool {
	if len(dat) < 8 {
		return false
	}
	return (dat[0] == 0 && dat[1] == 5 && dat[2] == 0x16 && dat[3] == 0 &&
		dat[4] == 0 && dat[6] == 0 && dat[7] == 0 && (dat[5] == 1 || dat[5] == 2))
}

// Parse decodes an AppleSingle container.
func Parse(dat []byte) (*File, error) {
	if len(dat) < headerLen {
		return nil, fmt.Errorf("applesingle: container shorter than its header")
	}
	magicWord := binary.BigEndian.Uint32(dat[0:4])
	version := binary.BigEndian.Uint32(dat[4:8])
	if magicWord != magic {
		return nil, fmt.Errorf("applesingle: bad magic %#08x", magicWord)
	}
	if version != 0x00010000 && version != version2 {
		return nil, fmt.Errorf("applesingle: unsupported version %#08x", version)
	}
	home := trimNUL(dat[8:24])
	numEntries := int(binary.BigEndian.Uint16(dat[24:26]))
	f := &File{HomeFS: home}
	off := headerLen
	for i := 0; i < numEntries; i++ {
		if off+entryLen > len(dat) {
			return nil, fmt.Errorf("applesingle: truncated entry table")
		}
		typ := EntryType(binary.BigEndian.Uint32(dat[off : off+4]))
		entryOff := binary.BigEndian.Uint32(dat[off+4 : off+8])
		entryLenBytes := binary.BigEndian.Uint32(dat[off+8 : off+12])
		off += entryLen
		if int(entryOff)+int(entryLenBytes) > len(dat) {
			return nil, fmt.Errorf("applesingle: entry %d's payload runs past the end of the container", typ)
		}
		payload := dat[entryOff : entryOff+entryLenBytes]
		switch typ {
		case DataFork:
			f.DataFork = append([]byte{}, payload...)
		case RealName:
			f.RealName = string(payload)
		case FileDatesInfo:
			if len(payload) != 16 {
				return nil, fmt.Errorf("applesingle: FileDatesInfo entry has wrong length %d", len(payload))
			}
			f.Dates = &Dates{
				Create:  unpackTime(int32(binary.BigEndian.Uint32(payload[0:4]))),
				Modify:  unpackTime(int32(binary.BigEndian.Uint32(payload[4:8]))),
				Backup:  unpackTime(int32(binary.BigEndian.Uint32(payload[8:12]))),
				Access:  unpackTime(int32(binary.BigEndian.Uint32(payload[12:16]))),
			}
		case ProdosFileInfo:
			if len(payload) != 8 {
				return nil, fmt.Errorf("applesingle: ProdosFileInfo entry has wrong length %d", len(payload))
			}
			f.ProdosInfo = &ProdosInfo{
				Access:   binary.BigEndian.Uint16(payload[0:2]),
				FileType: binary.BigEndian.Uint16(payload[2:4]),
				AuxType:  binary.BigEndian.Uint32(payload[4:8]),
			}
		case MsdosFileInfo:
			if len(payload) != 2 {
				return nil, fmt.Errorf("applesingle: MsdosFileInfo entry has wrong length %d", len(payload))
			}
			attr := uint8(binary.BigEndian.Uint16(payload))
			f.MsdosAttr = &attr
		}
	}
	return f, nil
}

func trimNUL(b []byte) string {
	if i := indexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// unpackTime converts a signed 32-bit epoch offset to a time.Time.
func unpackTime(v int32) time.Time {
	if v == -2147483648 {
		return time.Time{}
	}
	return epoch.Add(time.Duration(v) * time.Second)
}

func packTime(t time.Time) int32 {
	if t.IsZero() {
		return -2147483648
	}
	return int32(t.Sub(epoch) / time.Second)
}

// entries renders each entry's raw payload bytes in write order:
// RealName, FileDatesInfo, ProdosFileInfo, MsdosFileInfo, DataFork.
// DataFork is written last so its offset never has to shift for a
// variable-length RealName ahead of it (spec §4.4's "writing computes
// offsets post-hoc").
func (f *File) entries() []struct {
	typ     EntryType
	payload []byte
} {
	var entries []struct {
		typ     EntryType
		payload []byte
	}
	if f.RealName != "" {
		entries = append(entries, struct {
			typ     EntryType
			payload []byte
		}{RealName, []byte(f.RealName)})
	}
	if f.Dates != nil {
		p := make([]byte, 16)
		binary.BigEndian.PutUint32(p[0:4], uint32(packTime(f.Dates.Create)))
		binary.BigEndian.PutUint32(p[4:8], uint32(packTime(f.Dates.Modify)))
		binary.BigEndian.PutUint32(p[8:12], uint32(packTime(f.Dates.Backup)))
		binary.BigEndian.PutUint32(p[12:16], uint32(packTime(f.Dates.Access)))
		entries = append(entries, struct {
			typ     EntryType
			payload []byte
		}{FileDatesInfo, p})
	}
	if f.ProdosInfo != nil {
		p := make([]byte, 8)
		binary.BigEndian.PutUint16(p[0:2], f.ProdosInfo.Access)
		binary.BigEndian.PutUint16(p[2:4], f.ProdosInfo.FileType)
		binary.BigEndian.PutUint32(p[4:8], f.ProdosInfo.AuxType)
		entries = append(entries, struct {
			typ     EntryType
			payload []byte
		}{ProdosFileInfo, p})
	}
	if f.MsdosAttr != nil {
		p := make([]byte, 2)
		binary.BigEndian.PutUint16(p, uint16(*f.MsdosAttr))
		entries = append(entries, struct {
			typ     EntryType
			payload []byte
		}{MsdosFileInfo, p})
	}
	entries = append(entries, struct {
		typ     EntryType
		payload []byte
	}{DataFork, f.DataFork})
	return entries
}

// ToBytes serializes f to the AppleSingle v2 wire format.
func (f *File) ToBytes() []byte {
	entries := f.entries()
	out := make([]byte, headerLen)
	binary.BigEndian.PutUint32(out[0:4], magic)
	binary.BigEndian.PutUint32(out[4:8], version2)
	copy(out[8:24], []byte(f.HomeFS))
	binary.BigEndian.PutUint16(out[24:26], uint16(len(entries)))

	entryTable := make([]byte, entryLen*len(entries))
	curOffset := uint32(headerLen + entryLen*len(entries))
	var payloads []byte
	for i, e := range entries {
		off := i * entryLen
		binary.BigEndian.PutUint32(entryTable[off:off+4], uint32(e.typ))
		binary.BigEndian.PutUint32(entryTable[off+4:off+8], curOffset)
		binary.BigEndian.PutUint32(entryTable[off+8:off+12], uint32(len(e.payload)))
		curOffset += uint32(len(e.payload))
		payloads = append(payloads, e.payload...)
	}
	out = append(out, entryTable...)
	out = append(out, payloads...)
	return out
}

// prodosToDOSType translates a ProDOS file type byte to DOS 3.x's
// type+load-address convention, grounded on as.rs's prodos_to_dos_type.
func prodosToDOSType(typ uint16) uint8 {
	switch typ {
	case 0x04:
		return 0
	case 0xfa:
		return 1
	case 0xfc:
		return 2
	default:
		return 4
	}
}

func dosToProdosType(typ uint8) uint16 {
	switch typ {
	case 0:
		return 0x04
	case 1:
		return 0xfa
	case 2:
		return 0xfc
	default:
		return 0x06
	}
}

// AddDOS3xInfo synthesizes a ProdosFileInfo entry from DOS 3.x file
// metadata (spec §4.4's DOS-via-ProDOS translation). The high bit of
// fileType marks a locked file.
func (f *File) AddDOS3xInfo(fileType uint8, loadAddr uint16) {
	access := uint16(0x01)
	if fileType&0x80 != 0 {
		access = 0xc3
	}
	f.ProdosInfo = &ProdosInfo{
		Access:   access,
		FileType: dosToProdosType(fileType & 0x7f),
		AuxType:  uint32(loadAddr),
	}
}

// DOS3xInfo recovers (fileType, loadAddr) by translating a stored
// ProdosFileInfo entry back to DOS 3.x's convention; ok is false when
// no ProDOS info entry is present.
func (f *File) DOS3xInfo() (fileType uint8, loadAddr uint16, ok bool) {
	if f.ProdosInfo == nil {
		return 0, 0, false
	}
	t := prodosToDOSType(f.ProdosInfo.FileType)
	if f.ProdosInfo.Access > 1 {
		t |= 0x80
	}
	return t, uint16(f.ProdosInfo.AuxType), true
}
