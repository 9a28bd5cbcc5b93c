package imagecodec

import (
	"bytes"
	"fmt"
)

// ImageDisk (.IMD) sector mode codes; a sector's data may be stored
// verbatim or as a single repeated byte ("compressed").
const (
	imdModeNormal     = 1
	imdModeCompressed = 2
)

// imdTrack holds one cylinder/head's sector table and data, keeping
// its declared sector-number map since IMD tracks are free to order
// and number sectors arbitrarily (spec §4.2: "variable-geometry
// nibble+sector hybrid").
type imdTrack struct {
	cyl, head  int
	sectorSize int
	sectorMap  []int // declared sector numbers, in physical order
	data       map[int][]byte
}

type imdImage struct {
	comment string
	tracks  []imdTrack
}

func (im *imdImage) findTrack(cyl int) (*imdTrack, error) {
	for i := range im.tracks {
		if im.tracks[i].cyl == cyl {
			return &im.tracks[i], nil
		}
	}
	return nil, fmt.Errorf("%w: cylinder %d not present in IMD image", ErrSectorNotFound, cyl)
}

func (im *imdImage) readSector(cyl, sector int) ([]byte, error) {
	tr, err := im.findTrack(cyl)
	if err != nil {
		return nil, err
	}
	dat, ok := tr.data[sector]
	if !ok {
		return nil, fmt.Errorf("%w: sector %d not declared on cylinder %d", ErrSectorNotFound, sector, cyl)
	}
	out := make([]byte, len(dat))
	copy(out, dat)
	return out, nil
}

func (im *imdImage) writeSector(cyl, sector int, data []byte) error {
	tr, err := im.findTrack(cyl)
	if err != nil {
		return err
	}
	if _, ok := tr.data[sector]; !ok {
		return fmt.Errorf("%w: sector %d not declared on cylinder %d", ErrSectorNotFound, sector, cyl)
	}
	tr.data[sector] = quantize(data, tr.sectorSize)
	return nil
}

// toBytes re-serializes the ASCII comment header (terminated by 0x1a)
// followed by each track's 5-byte descriptor, sector numbering map,
// and sector data records.
func (im *imdImage) toBytes() []byte {
	var buf bytes.Buffer
	buf.WriteString(im.comment)
	buf.WriteByte(0x1a)
	for _, tr := range im.tracks {
		mode := byte(0) // 500 kbps FM is mode 0; this codec does not round-trip original data-rate mode
		buf.WriteByte(mode)
		buf.WriteByte(byte(tr.cyl))
		buf.WriteByte(byte(tr.head))
		buf.WriteByte(byte(len(tr.sectorMap)))
		buf.WriteByte(sectorSizeCode(tr.sectorSize))
		for _, s := range tr.sectorMap {
			buf.WriteByte(byte(s))
		}
		for _, s := range tr.sectorMap {
			d := tr.data[s]
			if allSameByte(d) {
				buf.WriteByte(imdModeCompressed)
				buf.WriteByte(d[0])
			} else {
				buf.WriteByte(imdModeNormal)
				buf.Write(d)
			}
		}
	}
	return buf.Bytes()
}

func allSameByte(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, v := range b[1:] {
		if v != b[0] {
			return false
		}
	}
	return true
}

func sectorSizeCode(n int) byte {
	switch n {
	case 128:
		return 0
	case 256:
		return 1
	case 512:
		return 2
	case 1024:
		return 3
	case 2048:
		return 4
	default:
		return 2
	}
}

func sectorSizeFromCode(c byte) (int, bool) {
	switch c {
	case 0:
		return 128, true
	case 1:
		return 256, true
	case 2:
		return 512, true
	case 3:
		return 1024, true
	case 4:
		return 2048, true
	default:
		return 0, false
	}
}

// imdFromBytes parses the ASCII comment (terminated by 0x1a) then a
// sequence of track descriptors until input is exhausted.
func imdFromBytes(data []byte) (*imdImage, bool) {
	sep := bytes.IndexByte(data, 0x1a)
	if sep < 0 {
		return nil, false
	}
	im := &imdImage{comment: string(data[:sep])}
	pos := sep + 1
	for pos < len(data) {
		if pos+5 > len(data) {
			return nil, false
		}
		cyl := int(data[pos+1])
		head := int(data[pos+2] & 0x3f)
		numSecs := int(data[pos+3])
		secSize, ok := sectorSizeFromCode(data[pos+4])
		if !ok {
			return nil, false
		}
		pos += 5
		if pos+numSecs > len(data) {
			return nil, false
		}
		sectorMap := make([]int, numSecs)
		for i := 0; i < numSecs; i++ {
			sectorMap[i] = int(data[pos+i])
		}
		pos += numSecs
		tr := imdTrack{cyl: cyl, head: head, sectorSize: secSize, sectorMap: sectorMap, data: map[int][]byte{}}
		for _, s := range sectorMap {
			if pos >= len(data) {
				return nil, false
			}
			mode := data[pos]
			pos++
			switch mode {
			case imdModeNormal:
				if pos+secSize > len(data) {
					return nil, false
				}
				buf := make([]byte, secSize)
				copy(buf, data[pos:pos+secSize])
				tr.data[s] = buf
				pos += secSize
			case imdModeCompressed:
				if pos >= len(data) {
					return nil, false
				}
				buf := make([]byte, secSize)
				for i := range buf {
					buf[i] = data[pos]
				}
				tr.data[s] = buf
				pos++
			default:
				return nil, false
			}
		}
		im.tracks = append(im.tracks, tr)
	}
	return im, true
}
