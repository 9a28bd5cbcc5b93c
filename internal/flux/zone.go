package flux

// ZoneFormat describes one physical zone's flux encoding parameters
// (spec §4.1): the GCR field layout used to locate and validate address
// and data fields within a raw bitstream.
type ZoneFormat struct {
	Cylinders  []int // cylinders this zone covers
	Heads      []int
	SectorsPerTrack int
	FieldCode  string // "4and4", "5and3", "6and2"
	SpeedKBPS  int
	SyncBits   int // 8, 9, or 10
	AddrPrologue []byte
	AddrEpilogue []byte
	DataPrologue []byte
	DataEpilogue []byte
	GapBytesA    int // gap1: post-index
	GapBytesB    int // gap2: address-to-data
	GapBytesC    int // gap3: inter-sector
}

// Covers reports whether this zone applies to the given cylinder.
func (z ZoneFormat) Covers(cylinder int) bool {
	for _, c := range z.Cylinders {
		if c == cylinder {
			return true
		}
	}
	return false
}

// StandardA2525 is the Disk II 4-and-4/6-and-2 zone used by 5.25" DOS
// 3.3/ProDOS images, a single uniform zone across all 35 tracks.
var StandardA2525 = ZoneFormat{
	Cylinders:       rangeInts(0, 35),
	Heads:           []int{0},
	SectorsPerTrack: 16,
	FieldCode:       "6and2",
	SpeedKBPS:       250,
	SyncBits:        10,
	AddrPrologue:    []byte{0xd5, 0xaa, 0x96},
	AddrEpilogue:    []byte{0xde, 0xaa, 0xeb},
	DataPrologue:    []byte{0xd5, 0xaa, 0xad},
	DataEpilogue:    []byte{0xde, 0xaa, 0xeb},
	GapBytesA:       16,
	GapBytesB:       8,
	GapBytesC:       28,
}

func rangeInts(start, end int) []int {
	out := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, i)
	}
	return out
}
