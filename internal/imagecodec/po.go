package imagecodec

import (
	"fmt"

	"a2disk/internal/geometry"
)

// poImage is a ProDOS-ordered flat image: blocks are stored
// sequentially and natively addressable; sector access goes through
// the same DOS-block decomposition as doImage, just without the DOS
// logical-order indirection.
type poImage struct {
	dk     geometry.DiskKind
	blocks int
	data   []byte
}

func newPOImage(blocks int) *poImage {
	return &poImage{blocks: blocks, data: make([]byte, blocks*blockSize)}
}

func (p *poImage) readBlock(block int) ([]byte, error) {
	if block < 0 || block >= p.blocks {
		return nil, fmt.Errorf("%w: block %d out of range (max %d)", ErrSectorNotFound, block, p.blocks-1)
	}
	off := block * blockSize
	out := make([]byte, blockSize)
	copy(out, p.data[off:off+blockSize])
	return out, nil
}

func (p *poImage) writeBlock(block int, data []byte) error {
	if block < 0 || block >= p.blocks {
		return fmt.Errorf("%w: block %d out of range (max %d)", ErrSectorNotFound, block, p.blocks-1)
	}
	off := block * blockSize
	copy(p.data[off:off+blockSize], quantize(data, blockSize))
	return nil
}

// readSector locates the ProDOS block containing the given DOS
// track/logical-sector pair and returns the matching 256-byte half.
func (p *poImage) readSector(track, physSector int) ([]byte, error) {
	lsec := geometry.Dos33PhysicalToLogical[physSector%16]
	block, half, err := blockAndHalfForTS(track, lsec)
	if err != nil {
		return nil, err
	}
	buf, err := p.readBlock(block)
	if err != nil {
		return nil, err
	}
	return buf[half*sectorSize : half*sectorSize+sectorSize], nil
}

func (p *poImage) writeSector(track, physSector int, data []byte) error {
	lsec := geometry.Dos33PhysicalToLogical[physSector%16]
	block, half, err := blockAndHalfForTS(track, lsec)
	if err != nil {
		return err
	}
	buf, err := p.readBlock(block)
	if err != nil {
		return err
	}
	copy(buf[half*sectorSize:half*sectorSize+sectorSize], quantize(data, sectorSize))
	return p.writeBlock(block, buf)
}

// blockAndHalfForTS inverts TSFromProDOSBlock525: given a DOS
// track/logical-sector pair, find the ProDOS block and which half
// (0 or 1) of it the sector occupies.
func blockAndHalfForTS(track, lsec int) (block, half int, err error) {
	for rel := 0; rel < 8; rel++ {
		b := track*8 + rel
		ts := geometry.TSFromProDOSBlock525(b)
		if ts[0][1] == lsec {
			return b, 0, nil
		}
		if ts[1][1] == lsec {
			return b, 1, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: no block maps track %d logical sector %d", ErrSectorNotFound, track, lsec)
}

func (p *poImage) toBytes() []byte {
	out := make([]byte, len(p.data))
	copy(out, p.data)
	return out
}

// poFromBytes applies the same size screening as DO (spec §4.2: DO and
// PO share an auto-detect size rule and are disambiguated by the
// filesystem layer, not the container).
func poFromBytes(data []byte) (*poImage, bool) {
	if len(data)%blockSize != 0 {
		return nil, false
	}
	blocks := len(data) / blockSize
	if blocks > maxBlocks || blocks < minBlocks {
		return nil, false
	}
	dk := geometry.Unknown
	if blocks == 280 {
		dk = geometry.A2525_16
	}
	p := &poImage{dk: dk, blocks: blocks, data: make([]byte, len(data))}
	copy(p.data, data)
	return p, true
}
