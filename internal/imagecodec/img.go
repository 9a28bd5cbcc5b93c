package imagecodec

import (
	"fmt"

	"a2disk/internal/geometry"
)

// imgImage is a flat CHS sector dump for IBM-geometry media (FAT
// floppies, 3.5" disks addressed by cylinder/head/sector rather than
// ProDOS block number). Geometry is identified purely from file size
// (spec §4.2).
type imgImage struct {
	dk        geometry.DiskKind
	secSize   int
	cylinders int
	heads     int
	sectors   int // sectors per track, 1-indexed on disk
	data      []byte
}

func newIMGImage(dk geometry.DiskKind) (*imgImage, error) {
	layout := geometry.Layout(dk)
	if len(layout.Zones) != 1 {
		return nil, fmt.Errorf("%w: IMG requires a single-zone geometry", ErrImageTypeMismatch)
	}
	z := layout.Zones[0]
	cyls := z.CylinderHi - z.CylinderLo + 1
	return &imgImage{
		dk:        dk,
		secSize:   z.BytesPerSector,
		cylinders: cyls,
		heads:     z.Sides,
		sectors:   z.SectorsPerTrk,
		data:      make([]byte, layout.TotalBytes()),
	}, nil
}

func (im *imgImage) trackCount() int { return im.cylinders * im.heads }

func (im *imgImage) chsOffset(cyl, head, sec int) (int, error) {
	track := cyl*im.heads + head
	if track >= im.trackCount() || head >= im.heads || sec < 1 || sec > im.sectors {
		return 0, fmt.Errorf("%w: chs %d/%d/%d out of range (0-%d/0-%d/1-%d)",
			ErrSectorNotFound, cyl, head, sec, im.trackCount()-1, im.heads-1, im.sectors)
	}
	return (track*im.sectors + sec - 1) * im.secSize, nil
}

// readSector addresses by (cylinder, physical sector 1..N); head is
// always 0 for the codec.Image single-head sector API and folded into
// the cylinder index for multi-sided media by the caller.
func (im *imgImage) readSector(cyl, sec int) ([]byte, error) {
	off, err := im.chsOffset(cyl/im.heads, cyl%im.heads, sec)
	if err != nil {
		return nil, err
	}
	out := make([]byte, im.secSize)
	copy(out, im.data[off:off+im.secSize])
	return out, nil
}

func (im *imgImage) writeSector(cyl, sec int, data []byte) error {
	off, err := im.chsOffset(cyl/im.heads, cyl%im.heads, sec)
	if err != nil {
		return err
	}
	copy(im.data[off:off+im.secSize], quantize(data, im.secSize))
	return nil
}

func (im *imgImage) toBytes() []byte {
	out := make([]byte, len(im.data))
	copy(out, im.data)
	return out
}

// imgFromBytes auto-identifies geometry purely from file size, trying
// every standard IBM-style layout (spec §4.2).
func imgFromBytes(data []byte) (*imgImage, bool) {
	dk, ok := geometry.IdentifyBySize(len(data))
	if !ok {
		return nil, false
	}
	im, err := newIMGImage(dk)
	if err != nil {
		return nil, false
	}
	copy(im.data, data)
	return im, true
}
